package bootstrap

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"outletradar/internal/shared/auth"
	"outletradar/internal/shared/logger"
	"outletradar/internal/shared/user"
)

// LoginHandler обрабатывает аутентификацию по email/паролю и выдаёт JWT
type LoginHandler struct {
	userRepo   user.Repository
	jwtService *auth.JWTService
	log        *logger.Logger
}

// NewLoginHandler создает handler аутентификации
func NewLoginHandler(userRepo user.Repository, jwtService *auth.JWTService, log *logger.Logger) *LoginHandler {
	return &LoginHandler{
		userRepo:   userRepo,
		jwtService: jwtService,
		log:        log,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// HandleLogin обрабатывает POST /auth/login
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		respondJSONError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	u, err := h.userRepo.FindByEmail(r.Context(), email)
	if err != nil {
		// Единый ответ для несуществующего пользователя и неверного
		// пароля, чтобы не раскрывать наличие аккаунта
		if errors.Is(err, user.ErrUserNotFound) {
			respondJSONError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.log.Error(logger.Entry{
			Action:  "login_lookup_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		respondJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !u.CheckPassword(req.Password) {
		respondJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !u.IsActive() {
		if u.Status == "BANNED" {
			respondJSONError(w, http.StatusForbidden, user.ErrUserBanned.Error())
			return
		}
		respondJSONError(w, http.StatusForbidden, user.ErrUserInactive.Error())
		return
	}

	token, err := h.jwtService.GenerateToken(u.ID, u.Email, u.Role)
	if err != nil {
		h.log.Error(logger.Entry{
			Action:  "token_generation_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		respondJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.log.Info(logger.Entry{
		Action:  "user_logged_in",
		Message: u.ID,
	})

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(loginResponse{Token: token, Role: u.Role})
}

func respondJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
