package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"outletradar/internal/proximity/application/ports/in"
	"outletradar/internal/proximity/highlight"
	"outletradar/internal/shared/logger"
)

const maxBodySize = 1 << 20 // 1MB

// HighlighterProvider отдаёт highlighter конкретного посетителя
// (выбор outlet — состояние посетителя, не сервиса).
type HighlighterProvider func(userID string) *highlight.Highlighter

// HTTPHandler обрабатывает HTTP запросы proximity-контекста
type HTTPHandler struct {
	listOutletsUC  in.ListOutletsUseCase
	refreshIndexUC in.RefreshIndexUseCase
	highlighterFor HighlighterProvider
	log            *logger.Logger
}

// NewHTTPHandler создает новый HTTP handler
func NewHTTPHandler(
	listOutletsUC in.ListOutletsUseCase,
	refreshIndexUC in.RefreshIndexUseCase,
	highlighterFor HighlighterProvider,
	log *logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		listOutletsUC:  listOutletsUC,
		refreshIndexUC: refreshIndexUC,
		highlighterFor: highlighterFor,
		log:            log,
	}
}

// RegisterRoutes регистрирует все HTTP маршруты
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /outlets", authMiddleware(h.handleListOutlets))
	mux.HandleFunc("GET /outlets/{outlet_id}/intersections", authMiddleware(h.handleSelectOutlet))
	mux.HandleFunc("DELETE /outlets/selection", authMiddleware(h.handleClearSelection))
	mux.HandleFunc("POST /proximity/refresh", authMiddleware(h.handleRefreshIndex))
}

// handleListOutlets обрабатывает GET /outlets
func (h *HTTPHandler) handleListOutlets(w http.ResponseWriter, r *http.Request) {
	output, err := h.listOutletsUC.Execute(r.Context())
	if err != nil {
		h.handleUseCaseError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, output)
}

// handleSelectOutlet обрабатывает GET /outlets/{outlet_id}/intersections.
// Выбор запоминается в highlighter посетителя; ответ — копия списка соседей.
func (h *HTTPHandler) handleSelectOutlet(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(ContextKeyUserID).(string)
	if !ok || userID == "" {
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	outletID := r.PathValue("outlet_id")
	if outletID == "" {
		h.respondError(w, http.StatusBadRequest, "outlet_id is required")
		return
	}

	neighbors := h.highlighterFor(userID).Select(outletID)

	h.respondJSON(w, http.StatusOK, map[string]any{
		"outlet_id": outletID,
		"neighbors": neighbors,
	})
}

// handleClearSelection обрабатывает DELETE /outlets/selection
func (h *HTTPHandler) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(ContextKeyUserID).(string)
	if !ok || userID == "" {
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	h.highlighterFor(userID).Clear()
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// RefreshIndexHTTPRequest — HTTP DTO для пересчёта индекса
type RefreshIndexHTTPRequest struct {
	RadiusKm float64 `json:"radius_km,omitempty"`
}

// handleRefreshIndex обрабатывает POST /proximity/refresh
func (h *HTTPHandler) handleRefreshIndex(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req RefreshIndexHTTPRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log.Error(logger.Entry{
			Action:  "parse_request_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		h.respondError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	output, err := h.refreshIndexUC.Execute(r.Context(), in.RefreshIndexInput{RadiusKm: req.RadiusKm})
	if err != nil {
		h.handleUseCaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, output)
}

// handleUseCaseError обрабатывает ошибки use case
func (h *HTTPHandler) handleUseCaseError(w http.ResponseWriter, err error) {
	h.log.Error(logger.Entry{
		Action:  "usecase_error",
		Message: err.Error(),
		Error:   &logger.ErrObj{Msg: err.Error()},
	})
	h.respondError(w, http.StatusInternalServerError, "internal server error")
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
