package out_ws

import (
	"outletradar/internal/chat/domain"
	"outletradar/internal/shared/logger"
	"outletradar/internal/shared/ws"
)

// WSNotifier доставляет снимки состояния сессии в браузер посетителя
// через WebSocket. Доставка best-effort: отключённый посетитель получит
// актуальное состояние запросом снапшота при переподключении.
type WSNotifier struct {
	hub *ws.Hub
	log *logger.Logger
}

func NewWSNotifier(hub *ws.Hub, log *logger.Logger) *WSNotifier {
	return &WSNotifier{hub: hub, log: log}
}

// NotifySnapshot отправляет сообщение chat_snapshot посетителю
func (n *WSNotifier) NotifySnapshot(userID string, snapshot domain.Snapshot) {
	if !n.hub.IsUserConnected(userID) {
		return
	}
	if err := n.hub.SendTypedMessage(userID, "chat_snapshot", snapshot); err != nil {
		n.log.Warn(logger.Entry{
			Action:    "chat_snapshot_send_failed",
			Message:   err.Error(),
			SessionID: snapshot.SessionID,
		})
	}
}
