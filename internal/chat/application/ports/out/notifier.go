package out

import "outletradar/internal/chat/domain"

// SessionNotifier доставляет снимки состояния сессии потребителю
// (WebSocket-push в браузер посетителя)
type SessionNotifier interface {
	NotifySnapshot(userID string, snapshot domain.Snapshot)
}
