package out

import "context"

// SessionEventData — полезная нагрузка событий жизненного цикла сессии
type SessionEventData struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// MessageEventData — полезная нагрузка события отправленного сообщения
type MessageEventData struct {
	UserID       string `json:"user_id"`
	SessionID    string `json:"session_id"`
	MessageID    string `json:"message_id"`
	HasLocation  bool   `json:"has_location"`
	ResponseSize int    `json:"response_size"`
}

// EventPublisher публикует события чат-контекста в брокер
type EventPublisher interface {
	PublishSessionCreated(ctx context.Context, data SessionEventData) error
	PublishMessageSent(ctx context.Context, data MessageEventData) error
	PublishSessionEnded(ctx context.Context, data SessionEventData) error
}
