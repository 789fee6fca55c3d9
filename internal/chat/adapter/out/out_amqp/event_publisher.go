package out_amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"outletradar/internal/chat/application/ports/out"
	"outletradar/internal/shared/logger"
	"outletradar/internal/shared/mq"
)

// ChatEventPublisher публикует события чат-контекста в RabbitMQ
type ChatEventPublisher struct {
	mq  *mq.RabbitMQ
	log *logger.Logger
}

// NewChatEventPublisher создает новый publisher
func NewChatEventPublisher(mqConn *mq.RabbitMQ, log *logger.Logger) *ChatEventPublisher {
	return &ChatEventPublisher{
		mq:  mqConn,
		log: log,
	}
}

// PublishSessionCreated публикует событие chat.session.created
func (p *ChatEventPublisher) PublishSessionCreated(ctx context.Context, data out.SessionEventData) error {
	return p.publish(ctx, "chat.session.created", data.SessionID, data)
}

// PublishMessageSent публикует событие chat.message.sent
func (p *ChatEventPublisher) PublishMessageSent(ctx context.Context, data out.MessageEventData) error {
	return p.publish(ctx, "chat.message.sent", data.SessionID, data)
}

// PublishSessionEnded публикует событие chat.session.ended
func (p *ChatEventPublisher) PublishSessionEnded(ctx context.Context, data out.SessionEventData) error {
	return p.publish(ctx, "chat.session.ended", data.SessionID, data)
}

func (p *ChatEventPublisher) publish(ctx context.Context, routingKey, sessionID string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	if err := p.mq.Publish(ctx, "chat_topic", routingKey, payload); err != nil {
		p.log.Error(logger.Entry{
			Action:    "publish_chat_event_failed",
			Message:   err.Error(),
			SessionID: sessionID,
			Error:     &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{
				"routing_key": routingKey,
			},
		})
		return fmt.Errorf("publish to rabbitmq: %w", err)
	}

	p.log.Debug(logger.Entry{
		Action:    "chat_event_published",
		Message:   routingKey,
		SessionID: sessionID,
	})

	return nil
}
