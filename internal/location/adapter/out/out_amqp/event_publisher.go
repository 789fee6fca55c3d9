package out_amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"outletradar/internal/location/application/ports/out"
	"outletradar/internal/shared/logger"
	"outletradar/internal/shared/mq"
)

// LocationEventPublisher публикует полученные позиции в RabbitMQ.
// Exchange fanout: позицию получают все подписанные потребители.
type LocationEventPublisher struct {
	mq  *mq.RabbitMQ
	log *logger.Logger
}

// NewLocationEventPublisher создает новый publisher
func NewLocationEventPublisher(mqConn *mq.RabbitMQ, log *logger.Logger) *LocationEventPublisher {
	return &LocationEventPublisher{
		mq:  mqConn,
		log: log,
	}
}

// PublishAcquired публикует событие полученной позиции в location_fanout
func (p *LocationEventPublisher) PublishAcquired(ctx context.Context, data out.AcquiredEventData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	// routing key пустой: fanout игнорирует маршрутизацию
	if err := p.mq.Publish(ctx, "location_fanout", "", payload); err != nil {
		p.log.Error(logger.Entry{
			Action:  "publish_location_event_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return fmt.Errorf("publish to rabbitmq: %w", err)
	}

	p.log.Debug(logger.Entry{
		Action:  "location_event_published",
		Message: "location.acquired",
	})

	return nil
}
