package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outletradar/internal/location/domain"
	"outletradar/internal/shared/logger"
)

// fakeSensor — управляемый сенсор для тестов: скриптованные ответы
// плюс опциональная блокировка для проверки конкурентных сценариев.
type fakeSensor struct {
	mu        sync.Mutex
	supported bool
	responses []fakeResponse
	calls     []domain.AcquisitionPolicy
	block     chan struct{}
}

type fakeResponse struct {
	loc domain.UserLocation
	err error
}

func newFakeSensor(responses ...fakeResponse) *fakeSensor {
	return &fakeSensor{supported: true, responses: responses}
}

func (f *fakeSensor) Supported() bool { return f.supported }

func (f *fakeSensor) RequestPosition(ctx context.Context, policy domain.AcquisitionPolicy) (domain.UserLocation, error) {
	f.mu.Lock()
	f.calls = append(f.calls, policy)
	idx := len(f.calls) - 1
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if idx >= len(f.responses) {
		return domain.UserLocation{}, &domain.UnknownError{Detail: "no scripted response"}
	}
	r := f.responses[idx]
	return r.loc, r.err
}

func (f *fakeSensor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestAcquirer(sensor *fakeSensor) *Acquirer {
	return NewAcquirer(sensor, "desktop", 0, 30*time.Second, logger.NewLogger("test"))
}

func TestAcquire_Success(t *testing.T) {
	loc := domain.UserLocation{Lat: 3.1570, Lng: 101.7123}
	sensor := newFakeSensor(fakeResponse{loc: loc})
	a := newTestAcquirer(sensor)

	got, err := a.Acquire(context.Background())

	require.NoError(t, err)
	assert.True(t, got.Equal(loc))
	assert.Equal(t, 1, sensor.callCount())

	st := a.State()
	require.NotNil(t, st.Location)
	assert.True(t, st.Location.Equal(loc))
	assert.Equal(t, domain.PermissionGranted, st.Permission)
	assert.False(t, st.InFlight)
}

func TestAcquire_NotSupported(t *testing.T) {
	sensor := newFakeSensor()
	sensor.supported = false
	a := newTestAcquirer(sensor)

	_, err := a.Acquire(context.Background())

	assert.ErrorIs(t, err, domain.ErrNotSupported)
	assert.Equal(t, 0, sensor.callCount())
}

func TestAcquire_RetriesOnceOnPositionUnavailable(t *testing.T) {
	loc := domain.UserLocation{Lat: 3.16, Lng: 101.71}
	sensor := newFakeSensor(
		fakeResponse{err: domain.ErrPositionUnavailable},
		fakeResponse{loc: loc},
	)
	a := newTestAcquirer(sensor)

	got, err := a.Acquire(context.Background())

	require.NoError(t, err)
	assert.True(t, got.Equal(loc))
	require.Equal(t, 2, sensor.callCount())

	// Первая попытка — highAccuracy с T0 платформы, вторая — relaxed
	// с таймаутом T0 × 1.5
	first, second := sensor.calls[0], sensor.calls[1]
	assert.True(t, first.HighAccuracy)
	assert.Equal(t, 8*time.Second, first.Timeout)
	assert.False(t, second.HighAccuracy)
	assert.Equal(t, 12*time.Second, second.Timeout)
}

func TestAcquire_RelaxedTimeoutCapped(t *testing.T) {
	sensor := newFakeSensor(
		fakeResponse{err: domain.ErrPositionUnavailable},
		fakeResponse{err: domain.ErrPositionUnavailable},
	)
	a := NewAcquirer(sensor, "desktop", 0, 10*time.Second, logger.NewLogger("test"))

	_, err := a.Acquire(context.Background())

	assert.ErrorIs(t, err, domain.ErrPositionUnavailable)
	require.Equal(t, 2, sensor.callCount())
	assert.Equal(t, 10*time.Second, sensor.calls[1].Timeout)
}

func TestAcquire_NoRetryOnTimeout(t *testing.T) {
	sensor := newFakeSensor(fakeResponse{err: domain.ErrTimeout})
	a := newTestAcquirer(sensor)

	_, err := a.Acquire(context.Background())

	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.Equal(t, 1, sensor.callCount())
}

func TestAcquire_PermissionDenied(t *testing.T) {
	sensor := newFakeSensor(fakeResponse{err: domain.ErrPermissionDenied})
	a := newTestAcquirer(sensor)

	_, err := a.Acquire(context.Background())

	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	assert.Equal(t, 1, sensor.callCount())
	assert.Equal(t, domain.PermissionDenied, a.State().Permission)
}

func TestAcquire_DeduplicatesConcurrentCalls(t *testing.T) {
	loc := domain.UserLocation{Lat: 3.2, Lng: 101.8}
	sensor := newFakeSensor(fakeResponse{loc: loc})
	sensor.block = make(chan struct{})
	a := newTestAcquirer(sensor)

	const callers = 5
	var wg sync.WaitGroup
	var success atomic.Int32
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			got, err := a.Acquire(context.Background())
			if err == nil && got.Equal(loc) {
				success.Add(1)
			}
		}()
	}

	// Ждём пока первый вызов дойдёт до сенсора, остальные присоединятся
	require.Eventually(t, func() bool {
		return sensor.callCount() == 1 && a.State().InFlight
	}, time.Second, 5*time.Millisecond)

	close(sensor.block)
	wg.Wait()

	assert.Equal(t, 1, sensor.callCount())
	assert.Equal(t, int32(callers), success.Load())
}

func TestAcquire_ResetDiscardsStaleResult(t *testing.T) {
	loc := domain.UserLocation{Lat: 3.2, Lng: 101.8}
	sensor := newFakeSensor(fakeResponse{loc: loc})
	sensor.block = make(chan struct{})
	a := newTestAcquirer(sensor)

	done := make(chan error, 1)
	go func() {
		_, err := a.Acquire(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool {
		return sensor.callCount() == 1
	}, time.Second, 5*time.Millisecond)

	a.Reset()
	close(sensor.block)

	require.NoError(t, <-done)

	// Вызывающий получил позицию, но в состояние она не попала
	st := a.State()
	assert.Nil(t, st.Location)
	assert.False(t, st.InFlight)
}

func TestAcquire_CallerContextCancelWhileJoined(t *testing.T) {
	sensor := newFakeSensor(fakeResponse{loc: domain.UserLocation{Lat: 1, Lng: 2}})
	sensor.block = make(chan struct{})
	a := newTestAcquirer(sensor)

	go func() { _, _ = a.Acquire(context.Background()) }()
	require.Eventually(t, func() bool {
		return sensor.callCount() == 1
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Acquire(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	close(sensor.block)
}

func TestSubscribe_NotifiesOnChangeOnly(t *testing.T) {
	sensor := newFakeSensor()
	a := newTestAcquirer(sensor)

	var notifications []domain.State
	unsub := a.Subscribe(func(s domain.State) {
		notifications = append(notifications, s)
	})

	a.NotifyPermission(domain.PermissionDenied)
	a.NotifyPermission(domain.PermissionDenied) // без изменения — без уведомления
	a.NotifyPermission(domain.PermissionGranted)

	require.Len(t, notifications, 2)
	assert.Equal(t, domain.PermissionDenied, notifications[0].Permission)
	assert.Equal(t, domain.PermissionGranted, notifications[1].Permission)

	unsub()
	a.NotifyPermission(domain.PermissionDenied)
	assert.Len(t, notifications, 2)
}

func TestAcquire_UnknownErrorPreservesPermission(t *testing.T) {
	sensor := newFakeSensor(fakeResponse{err: &domain.UnknownError{Detail: "gps glitch"}})
	a := newTestAcquirer(sensor)

	_, err := a.Acquire(context.Background())

	var ue *domain.UnknownError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "gps glitch", ue.Detail)
	// Неизвестный сбой не трогает разрешение
	assert.Equal(t, domain.PermissionPrompt, a.State().Permission)
}
