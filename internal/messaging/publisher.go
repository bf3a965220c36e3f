package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"roleplay-server/internal/game"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const exchangeType = "fanout"

// publishChannel - часть amqp091.Channel, нужная издателю.
type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// EventPublisher рассылает события игр через fanout exchange всем экземплярам сервера.
type EventPublisher struct {
	mu       sync.Mutex
	ch       publishChannel
	exchange string
	logger   *zap.Logger
}

var _ game.Broadcaster = (*EventPublisher)(nil)

// NewEventPublisher открывает канал и объявляет exchange.
func NewEventPublisher(conn *amqp091.Connection, exchange string, logger *zap.Logger) (*EventPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("rabbitmq connection is nil")
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	if err := declareExchange(ch, exchange); err != nil {
		_ = ch.Close()
		return nil, err
	}
	logger.Info("Event exchange declared", zap.String("exchange", exchange), zap.String("type", exchangeType))
	return newEventPublisher(ch, exchange, logger), nil
}

func newEventPublisher(ch publishChannel, exchange string, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{
		ch:       ch,
		exchange: exchange,
		logger:   logger.Named("EventPublisher"),
	}
}

func declareExchange(ch *amqp091.Channel, exchange string) error {
	err := ch.ExchangeDeclare(
		exchange,
		exchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange '%s': %w", exchange, err)
	}
	return nil
}

// Broadcast публикует событие; доставкой в комнаты занимается EventConsumer каждого экземпляра.
func (p *EventPublisher) Broadcast(ctx context.Context, gameID string, event game.Event) error {
	event.GameID = gameID
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.Type, err)
	}

	p.mu.Lock()
	err = p.ch.PublishWithContext(ctx,
		p.exchange,
		"", // routing key не нужен для fanout
		false,
		false,
		amqp091.Publishing{
			ContentType: "application/json",
			Type:        string(event.Type),
			Body:        body,
			Timestamp:   time.Now(),
		},
	)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish event %s for game %s: %w", event.Type, gameID, err)
	}

	p.logger.Debug("Event published", zap.String("gameID", gameID), zap.String("event", string(event.Type)))
	return nil
}

func (p *EventPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		return p.ch.Close()
	}
	return nil
}
