package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"outletradar/internal/location/application/ports/out"
	"outletradar/internal/location/domain"
	"outletradar/internal/shared/logger"
)

// acquireResult — исход одного цикла обращения к сенсору
type acquireResult struct {
	loc domain.UserLocation
	err error
}

// inflightCall — дедупликация конкурирующих Acquire: все вызовы,
// пришедшие во время активного запроса, ждут его done-канал и получают
// один и тот же результат.
type inflightCall struct {
	done   chan struct{}
	result acquireResult
}

// Acquirer управляет получением позиции одного посетителя.
// Один экземпляр на посетителя; все мутации состояния сериализованы
// через mu. Физический сенсор вызывается не более одного раза
// одновременно независимо от числа конкурирующих Acquire.
type Acquirer struct {
	sensor   out.PositionSensor
	platform string

	firstFixOverride time.Duration
	maxTimeout       time.Duration

	mu          sync.Mutex
	state       domain.State
	generation  uint64
	call        *inflightCall
	subscribers map[uint64]func(domain.State)
	nextSubID   uint64

	log *logger.Logger
}

// NewAcquirer создает Acquirer для посетителя на указанной платформе.
// firstFixOverride == 0 означает использование табличного T0 платформы.
func NewAcquirer(
	sensor out.PositionSensor,
	platform string,
	firstFixOverride time.Duration,
	maxTimeout time.Duration,
	log *logger.Logger,
) *Acquirer {
	return &Acquirer{
		sensor:           sensor,
		platform:         platform,
		firstFixOverride: firstFixOverride,
		maxTimeout:       maxTimeout,
		state:            domain.State{Permission: domain.PermissionUnknown},
		subscribers:      make(map[uint64]func(domain.State)),
		log:              log,
	}
}

// State возвращает текущий снапшот состояния
func (a *Acquirer) State() domain.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Subscribe регистрирует подписчика на изменения состояния.
// Уведомления приходят только при фактическом изменении снапшота
// (сравнение по значению). Возвращает функцию отписки.
func (a *Acquirer) Subscribe(fn func(domain.State)) func() {
	a.mu.Lock()
	id := a.nextSubID
	a.nextSubID++
	a.subscribers[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.subscribers, id)
		a.mu.Unlock()
	}
}

// NotifyPermission применяет внешний сигнал платформы об изменении
// разрешения. Единственный способ смены Permission помимо исхода Acquire.
func (a *Acquirer) NotifyPermission(p domain.Permission) {
	a.mu.Lock()
	next := a.state
	next.Permission = p
	a.applyStateLocked(next)
	a.mu.Unlock()
}

// Reset сбрасывает состояние к начальному и инвалидирует результат
// активного запроса: сенсорный вызов не прерывается, но его исход
// будет отброшен (generation не совпадёт). Ожидающие вызовы Acquire
// всё равно получат ответ сенсора.
func (a *Acquirer) Reset() {
	a.mu.Lock()
	a.generation++
	next := a.state
	next.Location = nil
	next.InFlight = false
	a.applyStateLocked(next)
	a.mu.Unlock()
}

// Acquire запрашивает позицию у сенсора. Конкурирующие вызовы
// дедуплицируются: выполняется один физический запрос, результат
// раздаётся всем ожидающим. Повтор автоматически выполняется только
// при PositionUnavailable, одной relaxed-попыткой по таблице политик.
func (a *Acquirer) Acquire(ctx context.Context) (domain.UserLocation, error) {
	a.mu.Lock()

	// Присоединение к активному запросу вместо нового вызова сенсора
	if a.call != nil {
		call := a.call
		a.mu.Unlock()
		select {
		case <-call.done:
			return call.result.loc, call.result.err
		case <-ctx.Done():
			return domain.UserLocation{}, ctx.Err()
		}
	}

	if !a.sensor.Supported() {
		a.mu.Unlock()
		return domain.UserLocation{}, domain.ErrNotSupported
	}

	call := &inflightCall{done: make(chan struct{})}
	a.call = call
	gen := a.generation

	next := a.state
	next.InFlight = true
	if next.Permission == domain.PermissionUnknown {
		next.Permission = domain.PermissionPrompt
	}
	a.applyStateLocked(next)
	a.mu.Unlock()

	loc, err := a.runAttempts(ctx)

	a.mu.Lock()
	call.result = acquireResult{loc: loc, err: err}
	close(call.done)
	if a.call == call {
		a.call = nil
	}

	// Исход применяется к состоянию только если Reset не произошёл
	// за время запроса; ожидающие всё равно получили результат выше.
	if gen == a.generation {
		next := a.state
		next.InFlight = false
		switch {
		case err == nil:
			v := loc
			next.Location = &v
			next.Permission = domain.PermissionGranted
		case errors.Is(err, domain.ErrPermissionDenied):
			next.Permission = domain.PermissionDenied
		}
		a.applyStateLocked(next)
	} else {
		a.log.Debug(logger.Entry{
			Action:  "acquire_result_stale",
			Message: "position result discarded after reset",
		})
	}
	a.mu.Unlock()

	return loc, err
}

// runAttempts обходит таблицу политик: первая попытка highAccuracy,
// relaxed-повтор только после PositionUnavailable. Все остальные
// ошибки завершают цикл немедленно.
func (a *Acquirer) runAttempts(ctx context.Context) (domain.UserLocation, error) {
	policies := domain.AttemptPolicies(a.platform, a.firstFixOverride, a.maxTimeout)

	var lastErr error
	for i, policy := range policies {
		loc, err := a.sensor.RequestPosition(ctx, policy)
		if err == nil {
			return loc, nil
		}
		lastErr = err

		if !errors.Is(err, domain.ErrPositionUnavailable) {
			return domain.UserLocation{}, err
		}

		a.log.Warn(logger.Entry{
			Action:  "position_unavailable",
			Message: fmt.Sprintf("attempt %d of %d failed", i+1, len(policies)),
			Additional: map[string]any{
				"platform":      a.platform,
				"high_accuracy": policy.HighAccuracy,
				"timeout_ms":    policy.Timeout.Milliseconds(),
			},
		})
	}

	return domain.UserLocation{}, lastErr
}

// applyStateLocked записывает новый снапшот и уведомляет подписчиков
// при фактическом изменении. Вызывается только под mu; уведомления
// выполняются синхронно — подписчики не должны обращаться к Acquirer
// из callback'а.
func (a *Acquirer) applyStateLocked(next domain.State) {
	if a.state.Equal(next) {
		return
	}
	a.state = next
	for _, fn := range a.subscribers {
		fn(next)
	}
}
