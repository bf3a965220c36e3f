package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Relay доставляет готовое событие подключенным клиентам комнаты.
type Relay interface {
	Deliver(gameID string, payload []byte) int
}

// EventConsumer читает события из exchange через собственную временную очередь
// и передает их в локальный Relay.
type EventConsumer struct {
	conn        *amqp091.Connection
	ch          *amqp091.Channel
	relay       Relay
	exchange    string
	queueName   string
	consumerTag string
	logger      *zap.Logger
}

func NewEventConsumer(conn *amqp091.Connection, exchange string, relay Relay, logger *zap.Logger) (*EventConsumer, error) {
	if conn == nil {
		return nil, fmt.Errorf("rabbitmq connection is nil")
	}
	if relay == nil {
		return nil, fmt.Errorf("relay is nil")
	}
	consumerTag := fmt.Sprintf("roleplay_events_consumer_%d", time.Now().UnixNano())
	c := &EventConsumer{
		conn:        conn,
		relay:       relay,
		exchange:    exchange,
		consumerTag: consumerTag,
		logger:      logger.Named("EventConsumer").With(zap.String("consumerTag", consumerTag)),
	}
	if err := c.setupChannelAndQueue(); err != nil {
		return nil, err
	}
	c.logger.Info("Event consumer initialised", zap.String("exchange", exchange), zap.String("queue", c.queueName))
	return c, nil
}

// setupChannelAndQueue объявляет exchange и эксклюзивную очередь этого экземпляра.
func (c *EventConsumer) setupChannelAndQueue() error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := declareExchange(ch, c.exchange); err != nil {
		_ = ch.Close()
		return err
	}

	q, err := ch.QueueDeclare(
		"",    // имя выдаст брокер
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", c.exchange, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("failed to bind queue '%s' to exchange '%s': %w", q.Name, c.exchange, err)
	}

	c.ch = ch
	c.queueName = q.Name
	return nil
}

// StartConsuming блокирует до отмены ctx или закрытия канала.
func (c *EventConsumer) StartConsuming(ctx context.Context) error {
	msgs, err := c.ch.Consume(
		c.queueName,
		c.consumerTag,
		false, // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}
	c.logger.Info("Waiting for game events", zap.String("queue", c.queueName))

	for {
		select {
		case <-ctx.Done():
			if err := c.ch.Cancel(c.consumerTag, false); err != nil {
				c.logger.Warn("Failed to cancel consumer", zap.Error(err))
			}
			return nil
		case d, ok := <-msgs:
			if !ok {
				c.logger.Warn("RabbitMQ delivery channel closed")
				return nil
			}
			c.handle(d)
		}
	}
}

type eventEnvelope struct {
	GameID string `json:"gameId"`
}

// handle передает событие в комнату. Сообщения без gameId отбрасываются без повтора.
func (c *EventConsumer) handle(d amqp091.Delivery) {
	var env eventEnvelope
	if err := json.Unmarshal(d.Body, &env); err != nil || env.GameID == "" {
		c.logger.Warn("Dropping malformed game event", zap.Uint64("deliveryTag", d.DeliveryTag), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	n := c.relay.Deliver(env.GameID, d.Body)
	c.logger.Debug("Game event relayed", zap.String("gameID", env.GameID), zap.Int("clients", n))
	_ = d.Ack(false)
}

func (c *EventConsumer) Close() error {
	if c.ch != nil {
		return c.ch.Close()
	}
	return nil
}
