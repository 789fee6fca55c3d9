package out_ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"outletradar/internal/location/domain"
	"outletradar/internal/shared/logger"
	"outletradar/internal/shared/ws"
)

// Коды ошибок браузерного Geolocation API
const (
	geoErrPermissionDenied    = 1
	geoErrPositionUnavailable = 2
	geoErrTimeout             = 3
)

// positionRequest — сообщение position_request, отправляемое в браузер
type positionRequest struct {
	RequestID    string `json:"request_id"`
	HighAccuracy bool   `json:"high_accuracy"`
	TimeoutMs    int64  `json:"timeout_ms"`
}

// PositionResponse — сообщение position_response из браузера
type PositionResponse struct {
	RequestID string   `json:"request_id"`
	Lat       *float64 `json:"lat,omitempty"`
	Lng       *float64 `json:"lng,omitempty"`
	ErrorCode int      `json:"error_code,omitempty"`
	ErrorMsg  string   `json:"error_msg,omitempty"`
}

// WSPositionSensor реализует PositionSensor поверх WebSocket-соединения
// посетителя: физический сенсор находится в браузере, сервис запрашивает
// позицию сообщением position_request и ждёт position_response.
// Один экземпляр на посетителя; ответы маршрутизируются в ожидающий
// запрос через реестр pending по request_id.
type WSPositionSensor struct {
	hub    *ws.Hub
	userID string

	mu      sync.Mutex
	pending map[string]chan PositionResponse

	log *logger.Logger
}

func NewWSPositionSensor(hub *ws.Hub, userID string, log *logger.Logger) *WSPositionSensor {
	return &WSPositionSensor{
		hub:     hub,
		userID:  userID,
		pending: make(map[string]chan PositionResponse),
		log:     log,
	}
}

// Supported проверяет наличие активного WebSocket-соединения — без него
// до браузерного сенсора не достучаться
func (s *WSPositionSensor) Supported() bool {
	return s.hub.IsUserConnected(s.userID)
}

// RequestPosition отправляет запрос позиции в браузер и ждёт ответ.
// Ошибки Geolocation API транслируются в типизированные ошибки domain.
func (s *WSPositionSensor) RequestPosition(ctx context.Context, policy domain.AcquisitionPolicy) (domain.UserLocation, error) {
	requestID := uuid.New().String()
	respCh := make(chan PositionResponse, 1)

	s.mu.Lock()
	s.pending[requestID] = respCh
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, requestID)
		s.mu.Unlock()
	}()

	err := s.hub.SendTypedMessage(s.userID, "position_request", positionRequest{
		RequestID:    requestID,
		HighAccuracy: policy.HighAccuracy,
		TimeoutMs:    policy.Timeout.Milliseconds(),
	})
	if err != nil {
		return domain.UserLocation{}, domain.ErrNotSupported
	}

	// Бюджет ожидания = таймаут сенсора + запас на доставку по сети
	timer := time.NewTimer(policy.Timeout + 2*time.Second)
	defer timer.Stop()

	select {
	case resp := <-respCh:
		return s.translate(resp)
	case <-timer.C:
		return domain.UserLocation{}, domain.ErrTimeout
	case <-ctx.Done():
		return domain.UserLocation{}, ctx.Err()
	}
}

// HandleResponse маршрутизирует position_response из WebSocket в
// ожидающий запрос. Вызывается из MessageHandler хаба; ответы на
// неизвестные (устаревшие) request_id молча отбрасываются.
func (s *WSPositionSensor) HandleResponse(data json.RawMessage) {
	var resp PositionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		s.log.Warn(logger.Entry{
			Action:  "position_response_malformed",
			Message: err.Error(),
		})
		return
	}

	s.mu.Lock()
	ch, ok := s.pending[resp.RequestID]
	s.mu.Unlock()
	if !ok {
		return
	}

	select {
	case ch <- resp:
	default:
	}
}

func (s *WSPositionSensor) translate(resp PositionResponse) (domain.UserLocation, error) {
	if resp.ErrorCode == 0 && resp.Lat != nil && resp.Lng != nil {
		return domain.UserLocation{Lat: *resp.Lat, Lng: *resp.Lng}, nil
	}

	switch resp.ErrorCode {
	case geoErrPermissionDenied:
		return domain.UserLocation{}, domain.ErrPermissionDenied
	case geoErrPositionUnavailable:
		return domain.UserLocation{}, domain.ErrPositionUnavailable
	case geoErrTimeout:
		return domain.UserLocation{}, domain.ErrTimeout
	default:
		return domain.UserLocation{}, &domain.UnknownError{Detail: resp.ErrorMsg}
	}
}
