package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"outletradar/internal/location/application/usecase"
	"outletradar/internal/location/domain"
	"outletradar/internal/shared/logger"
)

// AcquirerProvider отдаёт acquirer конкретного посетителя
// (состояние получения локации — состояние посетителя, не сервиса)
type AcquirerProvider func(userID string) *usecase.Acquirer

// HTTPHandler обрабатывает HTTP запросы location-контекста
type HTTPHandler struct {
	acquirerFor AcquirerProvider
	log         *logger.Logger
}

// NewHTTPHandler создает новый HTTP handler
func NewHTTPHandler(acquirerFor AcquirerProvider, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		acquirerFor: acquirerFor,
		log:         log,
	}
}

// RegisterRoutes регистрирует все HTTP маршруты
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("POST /location/acquire", authMiddleware(h.handleAcquire))
	mux.HandleFunc("GET /location", authMiddleware(h.handleState))
	mux.HandleFunc("DELETE /location", authMiddleware(h.handleReset))
}

// handleAcquire обрабатывает POST /location/acquire.
// Блокируется до исхода запроса к сенсору; конкурирующие запросы одного
// посетителя дедуплицируются внутри acquirer.
func (h *HTTPHandler) handleAcquire(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(ContextKeyUserID).(string)
	if !ok || userID == "" {
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	loc, err := h.acquirerFor(userID).Acquire(r.Context())
	if err != nil {
		h.handleAcquireError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"location": loc})
}

// handleState обрабатывает GET /location
func (h *HTTPHandler) handleState(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(ContextKeyUserID).(string)
	if !ok || userID == "" {
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	h.respondJSON(w, http.StatusOK, h.acquirerFor(userID).State())
}

// handleReset обрабатывает DELETE /location
func (h *HTTPHandler) handleReset(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(ContextKeyUserID).(string)
	if !ok || userID == "" {
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	h.acquirerFor(userID).Reset()
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// handleAcquireError транслирует типизированные ошибки сенсора в HTTP статусы
func (h *HTTPHandler) handleAcquireError(w http.ResponseWriter, err error) {
	h.log.Warn(logger.Entry{
		Action:  "acquire_failed",
		Message: err.Error(),
	})

	switch {
	case errors.Is(err, domain.ErrNotSupported):
		h.respondError(w, http.StatusServiceUnavailable, "position sensor not available")
	case errors.Is(err, domain.ErrPermissionDenied):
		h.respondError(w, http.StatusForbidden, "position permission denied")
	case errors.Is(err, domain.ErrPositionUnavailable):
		h.respondError(w, http.StatusServiceUnavailable, "position unavailable")
	case errors.Is(err, domain.ErrTimeout):
		h.respondError(w, http.StatusGatewayTimeout, "position request timed out")
	default:
		h.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// respondJSON отправляет JSON ответ
func (h *HTTPHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error(logger.Entry{
			Action:  "encode_response_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
}

// respondError отправляет JSON с ошибкой
func (h *HTTPHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
