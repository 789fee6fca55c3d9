package bootstrap

import (
	"sync"
	"time"

	chatout "outletradar/internal/chat/application/ports/out"
	chatusecase "outletradar/internal/chat/application/usecase"
	locout "outletradar/internal/location/application/ports/out"
	locusecase "outletradar/internal/location/application/usecase"
	locdomain "outletradar/internal/location/domain"
	proxusecase "outletradar/internal/proximity/application/usecase"
	"outletradar/internal/proximity/highlight"
	"outletradar/internal/shared/logger"
)

// SensorFactory создает платформенный сенсор позиции для посетителя
type SensorFactory func(userID string) locout.PositionSensor

// visitorKit — компоненты с состоянием одного посетителя.
// Acquirer, Coordinator и Highlighter владеют состоянием посетителя
// (не сервиса), поэтому живут по экземпляру на userID.
type visitorKit struct {
	acquirer    *locusecase.Acquirer
	coordinator *chatusecase.Coordinator
	highlighter *highlight.Highlighter
	unsubscribe func()
}

// VisitorRegistry лениво создает и хранит компоненты посетителей.
// При создании acquirer подписывается на coordinator.SetLocation:
// успешно полученная позиция автоматически прикладывается к будущим
// сообщениям чата.
type VisitorRegistry struct {
	sensorFor        SensorFactory
	backend          chatout.ChatBackend
	notifier         chatout.SessionNotifier
	publisher        chatout.EventPublisher
	indexHolder      *proxusecase.IndexHolder
	createTimeout    time.Duration
	sendTimeout      time.Duration
	firstFixOverride time.Duration
	maxTimeout       time.Duration

	// OnState вызывается при каждом изменении состояния acquirer'а
	// посетителя (WS push, публикация событий). Устанавливается до
	// первого обращения к реестру; callback не должен обращаться к
	// acquirer'у синхронно.
	OnState func(userID string, state locdomain.State)

	mu       sync.Mutex
	visitors map[string]*visitorKit

	log *logger.Logger
}

// NewVisitorRegistry создает реестр компонентов посетителей
func NewVisitorRegistry(
	sensorFor SensorFactory,
	backend chatout.ChatBackend,
	notifier chatout.SessionNotifier,
	publisher chatout.EventPublisher,
	indexHolder *proxusecase.IndexHolder,
	createTimeout time.Duration,
	sendTimeout time.Duration,
	firstFixOverride time.Duration,
	maxTimeout time.Duration,
	log *logger.Logger,
) *VisitorRegistry {
	return &VisitorRegistry{
		sensorFor:        sensorFor,
		backend:          backend,
		notifier:         notifier,
		publisher:        publisher,
		indexHolder:      indexHolder,
		createTimeout:    createTimeout,
		sendTimeout:      sendTimeout,
		firstFixOverride: firstFixOverride,
		maxTimeout:       maxTimeout,
		visitors:         make(map[string]*visitorKit),
		log:              log,
	}
}

// Acquirer возвращает acquirer посетителя, создавая компоненты при
// первом обращении
func (r *VisitorRegistry) Acquirer(userID string) *locusecase.Acquirer {
	return r.kit(userID).acquirer
}

// Coordinator возвращает координатор сессии посетителя
func (r *VisitorRegistry) Coordinator(userID string) *chatusecase.Coordinator {
	return r.kit(userID).coordinator
}

// Highlighter возвращает highlighter выбора посетителя
func (r *VisitorRegistry) Highlighter(userID string) *highlight.Highlighter {
	return r.kit(userID).highlighter
}

// HasVisitor проверяет, созданы ли компоненты посетителя
// (без ленивого создания)
func (r *VisitorRegistry) HasVisitor(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.visitors[userID]
	return ok
}

// Dispose убирает компоненты посетителя: сбрасывает acquirer, чтобы
// поздние результаты сенсора не применились, и снимает подписку
func (r *VisitorRegistry) Dispose(userID string) {
	r.mu.Lock()
	kit, ok := r.visitors[userID]
	if ok {
		delete(r.visitors, userID)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	kit.unsubscribe()
	kit.acquirer.Reset()
	kit.highlighter.Clear()
}

func (r *VisitorRegistry) kit(userID string) *visitorKit {
	r.mu.Lock()
	defer r.mu.Unlock()

	if kit, ok := r.visitors[userID]; ok {
		return kit
	}

	// Платформа клиента неизвестна на этом уровне; сенсор получает
	// таймауты браузерного профиля
	acquirer := locusecase.NewAcquirer(r.sensorFor(userID), "desktop", r.firstFixOverride, r.maxTimeout, r.log)
	coordinator := chatusecase.NewCoordinator(
		userID, r.backend, r.notifier, r.publisher,
		r.createTimeout, r.sendTimeout, r.log,
	)
	highlighter := highlight.NewHighlighter(r.indexHolder)

	unsubscribe := acquirer.Subscribe(func(state locdomain.State) {
		if state.Location != nil {
			coordinator.SetLocation(*state.Location)
		}
		if r.OnState != nil {
			r.OnState(userID, state)
		}
	})

	kit := &visitorKit{
		acquirer:    acquirer,
		coordinator: coordinator,
		highlighter: highlighter,
		unsubscribe: unsubscribe,
	}
	r.visitors[userID] = kit

	r.log.Debug(logger.Entry{
		Action:  "visitor_registered",
		Message: userID,
	})

	return kit
}
