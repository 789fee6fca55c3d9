package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outletradar/internal/chat/application/ports/out"
	"outletradar/internal/chat/domain"
	locdomain "outletradar/internal/location/domain"
	"outletradar/internal/shared/logger"
)

type sendCall struct {
	sessionID string
	text      string
	location  *locdomain.UserLocation
}

// fakeBackend — управляемый чат-бэкенд: скриптованные ответы плюс
// опциональная блокировка отправки для конкурентных сценариев
type fakeBackend struct {
	mu          sync.Mutex
	createID    string
	welcome     string
	createErr   error
	createCalls int
	createBlock chan struct{}
	sendResp    string
	sendErr     error
	sendCalls   []sendCall
	sendBlock   chan struct{}
	deleteErr   error
	deleteCalls []string
}

func (f *fakeBackend) CreateSession(ctx context.Context) (*out.CreateSessionResult, error) {
	f.mu.Lock()
	f.createCalls++
	block := f.createBlock
	f.mu.Unlock()

	if block != nil {
		<-block
	}

	if f.createErr != nil {
		return nil, f.createErr
	}
	return &out.CreateSessionResult{SessionID: f.createID, WelcomeMessage: f.welcome}, nil
}

func (f *fakeBackend) SendMessage(ctx context.Context, sessionID, text string, location *locdomain.UserLocation) (string, error) {
	f.mu.Lock()
	f.sendCalls = append(f.sendCalls, sendCall{sessionID: sessionID, text: text, location: location})
	block := f.sendBlock
	f.mu.Unlock()

	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendResp, f.sendErr
}

func (f *fakeBackend) DeleteSession(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, sessionID)
	return f.deleteErr
}

func (f *fakeBackend) sendCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sendCalls)
}

type nopNotifier struct{}

func (nopNotifier) NotifySnapshot(string, domain.Snapshot) {}

type nopPublisher struct{}

func (nopPublisher) PublishSessionCreated(context.Context, out.SessionEventData) error { return nil }
func (nopPublisher) PublishMessageSent(context.Context, out.MessageEventData) error    { return nil }
func (nopPublisher) PublishSessionEnded(context.Context, out.SessionEventData) error   { return nil }

func newTestCoordinator(backend *fakeBackend) *Coordinator {
	return NewCoordinator(
		"user-1", backend, nopNotifier{}, nopPublisher{},
		30*time.Second, 15*time.Second,
		logger.NewLogger("test"),
	)
}

func TestCreateSession_Success(t *testing.T) {
	backend := &fakeBackend{createID: "sess-1", welcome: "Привет! Чем помочь?"}
	c := newTestCoordinator(backend)

	id, err := c.CreateSession(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "sess-1", id)

	snap := c.Snapshot()
	assert.Equal(t, domain.StatusActive, snap.Status)
	require.Len(t, snap.Transcript, 1)
	assert.Equal(t, domain.RoleAssistant, snap.Transcript[0].Role)
	assert.Equal(t, "Привет! Чем помочь?", snap.Transcript[0].Text)
}

func TestCreateSession_Idempotent(t *testing.T) {
	backend := &fakeBackend{createID: "sess-1"}
	c := newTestCoordinator(backend)

	first, err := c.CreateSession(context.Background())
	require.NoError(t, err)
	second, err := c.CreateSession(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, backend.createCalls)
}

func TestCreateSession_RejectedWhileCreateInFlight(t *testing.T) {
	backend := &fakeBackend{createID: "sess-1", createBlock: make(chan struct{})}
	c := newTestCoordinator(backend)

	done := make(chan struct{})
	go func() {
		defer close(done)
		id, err := c.CreateSession(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, "sess-1", id)
	}()

	// Ждем, пока первый вызов дойдет до бэкенда
	require.Eventually(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return backend.createCalls == 1
	}, time.Second, 5*time.Millisecond)

	// Второй вызов не получает пустой id под видом идемпотентности
	_, err := c.CreateSession(context.Background())
	assert.ErrorIs(t, err, domain.ErrBusy)

	close(backend.createBlock)
	<-done

	assert.Equal(t, 1, backend.createCalls)
}

func TestCreateSession_BackendFailure(t *testing.T) {
	backend := &fakeBackend{createErr: errors.New("backend down")}
	c := newTestCoordinator(backend)

	_, err := c.CreateSession(context.Background())

	assert.ErrorIs(t, err, domain.ErrCreateFailed)
	snap := c.Snapshot()
	assert.Equal(t, domain.StatusAbsent, snap.Status)
	assert.Contains(t, snap.LastError, "backend down")
}

func TestSendMessage_NoActiveSession(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestCoordinator(backend)

	_, err := c.SendMessage(context.Background(), "hello")

	assert.ErrorIs(t, err, domain.ErrNoActiveSession)
	assert.Empty(t, c.Snapshot().Transcript)
}

func TestSendMessage_Success(t *testing.T) {
	backend := &fakeBackend{createID: "sess-1", sendResp: "ближайший outlet в 0.4 км"}
	c := newTestCoordinator(backend)
	_, err := c.CreateSession(context.Background())
	require.NoError(t, err)

	c.SetLocation(locdomain.UserLocation{Lat: 3.1570, Lng: 101.7123})

	resp, err := c.SendMessage(context.Background(), "где ближайший outlet?")

	require.NoError(t, err)
	assert.Equal(t, "ближайший outlet в 0.4 км", resp)

	require.Len(t, backend.sendCalls, 1)
	call := backend.sendCalls[0]
	assert.Equal(t, "sess-1", call.sessionID)
	require.NotNil(t, call.location)
	assert.Equal(t, 3.1570, call.location.Lat)

	snap := c.Snapshot()
	require.Len(t, snap.Transcript, 2)
	assert.Equal(t, domain.RoleUser, snap.Transcript[0].Role)
	assert.Equal(t, domain.RoleAssistant, snap.Transcript[1].Role)
	assert.Equal(t, domain.StatusActive, snap.Status)
}

func TestSendMessage_ConcurrentSendRejectedWithBusy(t *testing.T) {
	backend := &fakeBackend{createID: "sess-1", sendResp: "ответ"}
	backend.sendBlock = make(chan struct{})
	c := newTestCoordinator(backend)
	_, err := c.CreateSession(context.Background())
	require.NoError(t, err)

	firstDone := make(chan error, 1)
	go func() {
		_, err := c.SendMessage(context.Background(), "первое")
		firstDone <- err
	}()

	require.Eventually(t, func() bool {
		return backend.sendCallCount() == 1
	}, time.Second, 5*time.Millisecond)

	_, err = c.SendMessage(context.Background(), "второе")
	assert.ErrorIs(t, err, domain.ErrBusy)

	close(backend.sendBlock)
	require.NoError(t, <-firstDone)

	// Ровно одна пара user+assistant от первой отправки
	snap := c.Snapshot()
	require.Len(t, snap.Transcript, 2)
	assert.Equal(t, "первое", snap.Transcript[0].Text)
	assert.Equal(t, 1, backend.sendCallCount())
}

func TestSendMessage_FailureHoldsErrorUntilCleared(t *testing.T) {
	backend := &fakeBackend{createID: "sess-1", sendErr: errors.New("llm overloaded")}
	c := newTestCoordinator(backend)
	_, err := c.CreateSession(context.Background())
	require.NoError(t, err)

	_, err = c.SendMessage(context.Background(), "hello")
	assert.ErrorIs(t, err, domain.ErrSendFailed)

	// Оптимистично добавленное сообщение не откатывается
	snap := c.Snapshot()
	require.Len(t, snap.Transcript, 1)
	assert.Equal(t, domain.RoleUser, snap.Transcript[0].Role)
	assert.Contains(t, snap.LastError, "llm overloaded")

	// Неочищенная ошибка блокирует следующую отправку
	_, err = c.SendMessage(context.Background(), "again")
	assert.ErrorIs(t, err, domain.ErrPendingError)

	c.ClearError()
	backend.mu.Lock()
	backend.sendErr = nil
	backend.sendResp = "ok"
	backend.mu.Unlock()

	resp, err := c.SendMessage(context.Background(), "again")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
}

func TestEndSession_ResetsEvenWhenDeleteFails(t *testing.T) {
	backend := &fakeBackend{createID: "sess-1", deleteErr: errors.New("backend unreachable")}
	c := newTestCoordinator(backend)
	_, err := c.CreateSession(context.Background())
	require.NoError(t, err)

	err = c.EndSession(context.Background())

	assert.ErrorIs(t, err, domain.ErrDeleteFailed)
	snap := c.Snapshot()
	assert.Equal(t, domain.StatusAbsent, snap.Status)
	assert.Empty(t, snap.SessionID)
	assert.Empty(t, snap.Transcript)
}

func TestEndSession_NoopWhenAbsent(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestCoordinator(backend)

	require.NoError(t, c.EndSession(context.Background()))
	assert.Empty(t, backend.deleteCalls)
}

func TestEndSession_AllowsNewSession(t *testing.T) {
	backend := &fakeBackend{createID: "sess-1"}
	c := newTestCoordinator(backend)

	first, err := c.CreateSession(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.EndSession(context.Background()))

	backend.mu.Lock()
	backend.createID = "sess-2"
	backend.mu.Unlock()

	second, err := c.CreateSession(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, []string{"sess-1"}, backend.deleteCalls)
}

func TestEndSession_DuringSendDiscardsResponse(t *testing.T) {
	backend := &fakeBackend{createID: "sess-1", sendResp: "поздний ответ"}
	backend.sendBlock = make(chan struct{})
	c := newTestCoordinator(backend)
	_, err := c.CreateSession(context.Background())
	require.NoError(t, err)

	sendDone := make(chan error, 1)
	go func() {
		_, err := c.SendMessage(context.Background(), "hello")
		sendDone <- err
	}()

	require.Eventually(t, func() bool {
		return backend.sendCallCount() == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, c.EndSession(context.Background()))
	close(backend.sendBlock)

	assert.ErrorIs(t, <-sendDone, domain.ErrNoActiveSession)
	assert.Empty(t, c.Snapshot().Transcript)
}

func TestClearTranscript_KeepsStatus(t *testing.T) {
	backend := &fakeBackend{createID: "sess-1", welcome: "hi"}
	c := newTestCoordinator(backend)
	_, err := c.CreateSession(context.Background())
	require.NoError(t, err)

	c.ClearTranscript()

	snap := c.Snapshot()
	assert.Empty(t, snap.Transcript)
	assert.Equal(t, domain.StatusActive, snap.Status)
	assert.Equal(t, "sess-1", snap.SessionID)
}

func TestSetLocation_EqualValueIsNoop(t *testing.T) {
	backend := &fakeBackend{createID: "sess-1", sendResp: "ok"}
	c := newTestCoordinator(backend)
	_, err := c.CreateSession(context.Background())
	require.NoError(t, err)

	loc := locdomain.UserLocation{Lat: 3.16, Lng: 101.71}
	c.SetLocation(loc)
	c.SetLocation(locdomain.UserLocation{Lat: 3.16, Lng: 101.71})

	_, err = c.SendMessage(context.Background(), "msg")
	require.NoError(t, err)
	require.NotNil(t, backend.sendCalls[0].location)
	assert.True(t, backend.sendCalls[0].location.Equal(loc))
}
