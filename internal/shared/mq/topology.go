package mq

import (
	"context"
	"fmt"

	"outletradar/internal/shared/logger"
)

// SetupTopology создает все exchanges, queues и bindings согласно ТЗ
func SetupTopology(ctx context.Context, mq *RabbitMQ, log *logger.Logger) error {
	ch := mq.Channel()
	if ch == nil {
		return fmt.Errorf("rabbitmq channel not available")
	}

	// 1. Exchange: chat_topic (topic) — события жизненного цикла чат-сессий
	if err := ch.ExchangeDeclare(
		"chat_topic", // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // args
	); err != nil {
		return fmt.Errorf("declare chat_topic: %w", err)
	}

	// 2. Exchange: outlet_topic (topic) — события индекса пересечений
	if err := ch.ExchangeDeclare(
		"outlet_topic",
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("declare outlet_topic: %w", err)
	}

	// 3. Exchange: location_fanout (fanout) — полученные позиции посетителей
	if err := ch.ExchangeDeclare(
		"location_fanout",
		"fanout",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("declare location_fanout: %w", err)
	}

	// 4. Очереди для chat_topic
	chatQueues := []string{
		"chat.session.created",
		"chat.message.sent",
		"chat.session.ended",
	}
	for _, q := range chatQueues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
		routingKey := q // chat.session.created, chat.message.sent, etc.
		if err := ch.QueueBind(q, routingKey, "chat_topic", false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q, err)
		}
	}

	// 5. Очереди для outlet_topic
	outletQueues := []string{
		"outlet.index.recomputed",
	}
	for _, q := range outletQueues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
		routingKey := q
		if err := ch.QueueBind(q, routingKey, "outlet_topic", false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q, err)
		}
	}

	// 6. Очередь для location_fanout (каждый потребитель создаст свою эксклюзивную очередь при consume)
	if _, err := ch.QueueDeclare("location.broadcast", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare location.broadcast: %w", err)
	}
	if err := ch.QueueBind("location.broadcast", "", "location_fanout", false, nil); err != nil {
		return fmt.Errorf("bind location.broadcast: %w", err)
	}

	log.Info(logger.Entry{
		Action:  "topology_setup_complete",
		Message: "all exchanges and queues created",
	})

	return nil
}
