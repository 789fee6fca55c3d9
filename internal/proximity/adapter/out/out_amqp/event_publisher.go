package out_amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"outletradar/internal/proximity/application/ports/out"
	"outletradar/internal/shared/logger"
	"outletradar/internal/shared/mq"
)

// IndexEventPublisher публикует события индекса в RabbitMQ
type IndexEventPublisher struct {
	mq  *mq.RabbitMQ
	log *logger.Logger
}

// NewIndexEventPublisher создает новый publisher
func NewIndexEventPublisher(mqConn *mq.RabbitMQ, log *logger.Logger) *IndexEventPublisher {
	return &IndexEventPublisher{
		mq:  mqConn,
		log: log,
	}
}

// PublishIndexRecomputed публикует событие outlet.index.recomputed
func (p *IndexEventPublisher) PublishIndexRecomputed(ctx context.Context, data out.IndexEventData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	if err := p.mq.Publish(ctx, "outlet_topic", "outlet.index.recomputed", payload); err != nil {
		p.log.Error(logger.Entry{
			Action:  "publish_index_event_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{
				"version": data.Version,
			},
		})
		return fmt.Errorf("publish to rabbitmq: %w", err)
	}

	p.log.Debug(logger.Entry{
		Action:  "index_event_published",
		Message: "outlet.index.recomputed",
		Additional: map[string]any{
			"version":      data.Version,
			"radius_km":    data.RadiusKm,
			"outlet_count": data.OutletCount,
		},
	})

	return nil
}
