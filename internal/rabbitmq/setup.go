package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// Exchange — точка обмена для событий учета.
const Exchange = "usage-events"

// Маршрутные ключи событий.
const (
	RoutingKeyTracked = "tracked"
	RoutingKeyReset   = "reset"
)

// QueueConfig описывает очередь и её привязку к точке обмена.
type QueueConfig struct {
	Name       string
	RoutingKey string
}

// DefaultQueues — очереди, создаваемые при старте.
var DefaultQueues = []QueueConfig{
	{Name: "usage-tracked", RoutingKey: RoutingKeyTracked},
	{Name: "usage-reset", RoutingKey: RoutingKeyReset},
}

// SetupChannel открывает канал, объявляет точку обмена и очереди.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.Name, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := ch.QueueBind(q.Name, q.RoutingKey, Exchange, false, nil); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return ch, nil
}
