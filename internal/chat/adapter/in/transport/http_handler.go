package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"outletradar/internal/chat/application/usecase"
	"outletradar/internal/chat/domain"
	"outletradar/internal/shared/logger"
)

const maxBodySize = 1 << 20 // 1MB

// CoordinatorProvider отдаёт координатор сессии конкретного посетителя
type CoordinatorProvider func(userID string) *usecase.Coordinator

// HTTPHandler обрабатывает HTTP запросы chat-контекста
type HTTPHandler struct {
	coordinatorFor CoordinatorProvider
	log            *logger.Logger
}

// NewHTTPHandler создает новый HTTP handler
func NewHTTPHandler(coordinatorFor CoordinatorProvider, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		coordinatorFor: coordinatorFor,
		log:            log,
	}
}

// RegisterRoutes регистрирует все HTTP маршруты
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("POST /chat/session", authMiddleware(h.handleCreateSession))
	mux.HandleFunc("DELETE /chat/session", authMiddleware(h.handleEndSession))
	mux.HandleFunc("POST /chat/messages", authMiddleware(h.handleSendMessage))
	mux.HandleFunc("GET /chat", authMiddleware(h.handleSnapshot))
	mux.HandleFunc("DELETE /chat/transcript", authMiddleware(h.handleClearTranscript))
	mux.HandleFunc("DELETE /chat/error", authMiddleware(h.handleClearError))
}

// handleCreateSession обрабатывает POST /chat/session
func (h *HTTPHandler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	sessionID, err := h.coordinatorFor(userID).CreateSession(r.Context())
	if err != nil {
		h.handleCoordinatorError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"session_id": sessionID})
}

// handleEndSession обрабатывает DELETE /chat/session.
// Локальное состояние сбрасывается всегда; сбой удаления на бэкенде
// отражается статусом, но сессия для посетителя уже завершена.
func (h *HTTPHandler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.coordinatorFor(userID).EndSession(r.Context()); err != nil {
		h.respondJSON(w, http.StatusOK, map[string]string{
			"status": "ended",
			"note":   "backend delete failed, session reset locally",
		})
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

// SendMessageHTTPRequest — HTTP DTO отправки сообщения
type SendMessageHTTPRequest struct {
	Text string `json:"text"`
}

// handleSendMessage обрабатывает POST /chat/messages
func (h *HTTPHandler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req SendMessageHTTPRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		h.respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	response, err := h.coordinatorFor(userID).SendMessage(r.Context(), req.Text)
	if err != nil {
		h.handleCoordinatorError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"response": response})
}

// handleSnapshot обрабатывает GET /chat
func (h *HTTPHandler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	h.respondJSON(w, http.StatusOK, h.coordinatorFor(userID).Snapshot())
}

// handleClearTranscript обрабатывает DELETE /chat/transcript
func (h *HTTPHandler) handleClearTranscript(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	h.coordinatorFor(userID).ClearTranscript()
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// handleClearError обрабатывает DELETE /chat/error
func (h *HTTPHandler) handleClearError(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	h.coordinatorFor(userID).ClearError()
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// handleCoordinatorError транслирует ошибки координатора в HTTP статусы
func (h *HTTPHandler) handleCoordinatorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBusy):
		h.respondError(w, http.StatusConflict, "send already in progress")
	case errors.Is(err, domain.ErrNoActiveSession):
		h.respondError(w, http.StatusConflict, "no active session")
	case errors.Is(err, domain.ErrPendingError):
		h.respondError(w, http.StatusConflict, "previous error not cleared")
	case errors.Is(err, domain.ErrCreateFailed), errors.Is(err, domain.ErrSendFailed):
		h.respondError(w, http.StatusBadGateway, err.Error())
	default:
		h.log.Error(logger.Entry{
			Action:  "coordinator_error",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		h.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// userID достает ID пользователя из контекста запроса
func (h *HTTPHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := r.Context().Value(ContextKeyUserID).(string)
	if !ok || userID == "" {
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return userID, true
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
