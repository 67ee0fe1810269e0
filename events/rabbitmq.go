package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// RabbitEmitter publishes to a durable fanout exchange.
type RabbitEmitter struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	channel  *amqp.Channel
	exchange string
}

// NewRabbitEmitter dials the broker and declares the match events exchange.
func NewRabbitEmitter(url string) (*RabbitEmitter, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ExchangeMatchEvents, // name
		ExchangeTypeFanout,  // type
		true,                // durable
		false,               // autoDelete
		false,               // internal
		false,               // noWait
		nil,                 // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", ExchangeMatchEvents, err)
	}

	log.Info().Str("exchange", ExchangeMatchEvents).Msg("✅ Connected to RabbitMQ")
	return &RabbitEmitter{conn: conn, channel: ch, exchange: ExchangeMatchEvents}, nil
}

func (e *RabbitEmitter) PublishMatchClosed(ctx context.Context, evt MatchClosed) error {
	if evt.EventType == "" {
		evt.EventType = EventTypeMatchClosed
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// amqp channels are not safe for concurrent publishing
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.channel.PublishWithContext(ctx,
		e.exchange, // exchange
		"",         // routing key, ignored by fanout
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now().UTC(),
			Type:         evt.EventType,
			Body:         body,
		},
	)
}

func (e *RabbitEmitter) Close() error {
	if err := e.channel.Close(); err != nil {
		e.conn.Close()
		return err
	}
	return e.conn.Close()
}
