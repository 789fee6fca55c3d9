package out

import (
	"context"

	locdomain "outletradar/internal/location/domain"
)

// CreateSessionResult — ответ бэкенда на создание сессии
type CreateSessionResult struct {
	SessionID      string
	WelcomeMessage string
}

// ChatBackend — интерфейс удалённого чат-бэкенда. Три логические
// операции; транспорт непрозрачен, гарантируется только
// request/response-семантика и возможность повышенной латентности
// первого запроса (cold start).
type ChatBackend interface {
	CreateSession(ctx context.Context) (*CreateSessionResult, error)

	// SendMessage отправляет текст пользователя; location прикладывается
	// как контекст сообщения, если известна
	SendMessage(ctx context.Context, sessionID, text string, location *locdomain.UserLocation) (string, error)

	DeleteSession(ctx context.Context, sessionID string) error
}
