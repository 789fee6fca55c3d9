package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"outletradar/internal/chat/application/ports/out"
	"outletradar/internal/chat/domain"
	locdomain "outletradar/internal/location/domain"
	"outletradar/internal/shared/logger"
)

// Coordinator владеет жизненным циклом чат-сессии и транскриптом
// одного посетителя. Один экземпляр на посетителя; все мутации
// сериализованы через mu. Отправки сообщений выполняются строго
// по одной — конкурирующая отправка отклоняется с ErrBusy, очереди
// нет. Это тривиально гарантирует порядок транскрипта: каждый ответ
// ассистента следует сразу за своим пользовательским сообщением.
type Coordinator struct {
	userID    string
	backend   out.ChatBackend
	notifier  out.SessionNotifier
	publisher out.EventPublisher

	// Раздельные бюджеты: создание сессии терпит cold start бэкенда,
	// обычная отправка — нет
	createTimeout time.Duration
	sendTimeout   time.Duration

	mu         sync.Mutex
	sessionID  string
	status     domain.Status
	transcript []domain.Message
	lastError  error
	location   *locdomain.UserLocation

	log *logger.Logger
}

// NewCoordinator создает координатор сессии для посетителя
func NewCoordinator(
	userID string,
	backend out.ChatBackend,
	notifier out.SessionNotifier,
	publisher out.EventPublisher,
	createTimeout time.Duration,
	sendTimeout time.Duration,
	log *logger.Logger,
) *Coordinator {
	return &Coordinator{
		userID:        userID,
		backend:       backend,
		notifier:      notifier,
		publisher:     publisher,
		createTimeout: createTimeout,
		sendTimeout:   sendTimeout,
		status:        domain.StatusAbsent,
		log:           log,
	}
}

// Snapshot возвращает read-only снимок состояния сессии
func (c *Coordinator) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// CreateSession создает сессию на бэкенде. Идемпотентна: при уже
// активной сессии возвращает существующий id без нового обращения к
// бэкенду; пока создание или завершение в полете — ErrBusy (id еще
// нет либо уже нет). Не более одной активной сессии на координатор.
func (c *Coordinator) CreateSession(ctx context.Context) (string, error) {
	c.mu.Lock()
	switch c.status {
	case domain.StatusActive, domain.StatusSending:
		id := c.sessionID
		c.mu.Unlock()
		return id, nil
	case domain.StatusCreating, domain.StatusEnding:
		c.mu.Unlock()
		return "", domain.ErrBusy
	}
	c.status = domain.StatusCreating
	c.notifyLocked()
	c.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, c.createTimeout)
	defer cancel()
	result, err := c.backend.CreateSession(callCtx)

	c.mu.Lock()
	// Сброс за время запроса (EndSession/Dispose) делает результат устаревшим
	if c.status != domain.StatusCreating {
		c.mu.Unlock()
		if err == nil {
			c.deleteOrphan(result.SessionID)
		}
		return "", domain.ErrNoActiveSession
	}

	if err != nil {
		c.status = domain.StatusAbsent
		c.lastError = fmt.Errorf("%w: %v", domain.ErrCreateFailed, err)
		c.notifyLocked()
		c.mu.Unlock()
		c.log.Error(logger.Entry{
			Action:  "session_create_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return "", fmt.Errorf("%w: %v", domain.ErrCreateFailed, err)
	}

	c.sessionID = result.SessionID
	c.status = domain.StatusActive
	if result.WelcomeMessage != "" {
		c.appendLocked(domain.RoleAssistant, result.WelcomeMessage)
	}
	c.notifyLocked()
	sessionID := c.sessionID
	c.mu.Unlock()

	c.log.Info(logger.Entry{
		Action:    "session_created",
		Message:   "chat session active",
		SessionID: sessionID,
	})

	if pubErr := c.publisher.PublishSessionCreated(ctx, out.SessionEventData{
		UserID:    c.userID,
		SessionID: sessionID,
	}); pubErr != nil {
		c.log.Error(logger.Entry{
			Action:    "publish_session_created_failed",
			Message:   pubErr.Error(),
			SessionID: sessionID,
			Error:     &logger.ErrObj{Msg: pubErr.Error()},
		})
		// Не возвращаем ошибку, т.к. сессия уже активна
	}

	return sessionID, nil
}

// SendMessage отправляет текст пользователя и возвращает ответ
// ассистента. Пользовательское сообщение добавляется в транскрипт
// оптимистично и при сбое не откатывается; текущая позиция посетителя
// прикладывается к запросу, если известна. Неочищенная предыдущая
// ошибка блокирует отправку до явного ClearError.
func (c *Coordinator) SendMessage(ctx context.Context, text string) (string, error) {
	c.mu.Lock()
	switch {
	case c.status == domain.StatusSending:
		c.mu.Unlock()
		return "", domain.ErrBusy
	case c.status != domain.StatusActive:
		c.mu.Unlock()
		return "", domain.ErrNoActiveSession
	case c.lastError != nil:
		c.mu.Unlock()
		return "", domain.ErrPendingError
	}

	userMsg := c.appendLocked(domain.RoleUser, text)
	c.status = domain.StatusSending
	c.notifyLocked()

	sessionID := c.sessionID
	var loc *locdomain.UserLocation
	if c.location != nil {
		v := *c.location
		loc = &v
	}
	c.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, c.sendTimeout)
	defer cancel()
	response, err := c.backend.SendMessage(callCtx, sessionID, text, loc)

	c.mu.Lock()
	// EndSession за время отправки сбросил сессию — ответ отбрасывается
	if c.status != domain.StatusSending || c.sessionID != sessionID {
		c.mu.Unlock()
		return "", domain.ErrNoActiveSession
	}
	c.status = domain.StatusActive

	if err != nil {
		c.lastError = fmt.Errorf("%w: %v", domain.ErrSendFailed, err)
		c.notifyLocked()
		c.mu.Unlock()
		c.log.Error(logger.Entry{
			Action:    "message_send_failed",
			Message:   err.Error(),
			SessionID: sessionID,
			Error:     &logger.ErrObj{Msg: err.Error()},
		})
		return "", fmt.Errorf("%w: %v", domain.ErrSendFailed, err)
	}

	c.appendLocked(domain.RoleAssistant, response)
	c.notifyLocked()
	c.mu.Unlock()

	if pubErr := c.publisher.PublishMessageSent(ctx, out.MessageEventData{
		UserID:       c.userID,
		SessionID:    sessionID,
		MessageID:    userMsg.ID,
		HasLocation:  loc != nil,
		ResponseSize: len(response),
	}); pubErr != nil {
		c.log.Error(logger.Entry{
			Action:    "publish_message_sent_failed",
			Message:   pubErr.Error(),
			SessionID: sessionID,
			Error:     &logger.ErrObj{Msg: pubErr.Error()},
		})
	}

	return response, nil
}

// SetLocation обновляет позицию, прикладываемую к будущим отправкам.
// Значение, равное текущему по (lat, lng), игнорируется без каких-либо
// уведомлений — защита от реакций на семантически неизменённые
// обновления, доставленные разными экземплярами.
func (c *Coordinator) SetLocation(loc locdomain.UserLocation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.location != nil && c.location.Equal(loc) {
		return
	}
	v := loc
	c.location = &v
}

// EndSession удаляет сессию на бэкенде и безусловно сбрасывает
// локальное состояние в absent: сессия должна быть завершаемой локально
// даже при недоступном бэкенде. Сбой удаления логируется и возвращается
// вызывающему, но сброс не блокирует.
func (c *Coordinator) EndSession(ctx context.Context) error {
	c.mu.Lock()
	if c.status == domain.StatusAbsent {
		c.mu.Unlock()
		return nil
	}
	sessionID := c.sessionID
	c.status = domain.StatusEnding
	c.notifyLocked()
	c.mu.Unlock()

	var deleteErr error
	if sessionID != "" {
		callCtx, cancel := context.WithTimeout(ctx, c.sendTimeout)
		defer cancel()
		deleteErr = c.backend.DeleteSession(callCtx, sessionID)
	}

	c.mu.Lock()
	c.sessionID = ""
	c.status = domain.StatusAbsent
	c.transcript = nil
	c.lastError = nil
	// c.location сохраняется: позиция посетителя переживает сессию
	c.notifyLocked()
	c.mu.Unlock()

	if deleteErr != nil {
		c.log.Error(logger.Entry{
			Action:    "session_delete_failed",
			Message:   deleteErr.Error(),
			SessionID: sessionID,
			Error:     &logger.ErrObj{Msg: deleteErr.Error()},
		})
		return fmt.Errorf("%w: %v", domain.ErrDeleteFailed, deleteErr)
	}

	if sessionID != "" {
		if pubErr := c.publisher.PublishSessionEnded(ctx, out.SessionEventData{
			UserID:    c.userID,
			SessionID: sessionID,
		}); pubErr != nil {
			c.log.Error(logger.Entry{
				Action:    "publish_session_ended_failed",
				Message:   pubErr.Error(),
				SessionID: sessionID,
				Error:     &logger.ErrObj{Msg: pubErr.Error()},
			})
		}
	}

	return nil
}

// ClearTranscript очищает сообщения, не трогая статус сессии
func (c *Coordinator) ClearTranscript() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.transcript) == 0 {
		return
	}
	c.transcript = nil
	c.notifyLocked()
}

// ClearError снимает удержанную ошибку и разблокирует отправку
func (c *Coordinator) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastError == nil {
		return
	}
	c.lastError = nil
	c.notifyLocked()
}

// appendLocked добавляет сообщение в транскрипт. Вызывается под mu.
func (c *Coordinator) appendLocked(role domain.Role, text string) domain.Message {
	msg := domain.Message{
		ID:        uuid.New().String(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
	c.transcript = append(c.transcript, msg)
	return msg
}

// snapshotLocked строит снимок с копией транскрипта. Вызывается под mu.
func (c *Coordinator) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		SessionID:  c.sessionID,
		Status:     c.status,
		Transcript: make([]domain.Message, len(c.transcript)),
	}
	copy(snap.Transcript, c.transcript)
	if c.lastError != nil {
		snap.LastError = c.lastError.Error()
	}
	return snap
}

// notifyLocked отправляет снимок потребителю. Вызывается под mu;
// notifier обязан не блокироваться.
func (c *Coordinator) notifyLocked() {
	if c.notifier == nil {
		return
	}
	c.notifier.NotifySnapshot(c.userID, c.snapshotLocked())
}

// deleteOrphan удаляет сессию, созданную бэкендом уже после локального
// сброса координатора
func (c *Coordinator) deleteOrphan(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.sendTimeout)
	defer cancel()
	if err := c.backend.DeleteSession(ctx, sessionID); err != nil {
		c.log.Warn(logger.Entry{
			Action:    "orphan_session_delete_failed",
			Message:   err.Error(),
			SessionID: sessionID,
		})
	}
}
