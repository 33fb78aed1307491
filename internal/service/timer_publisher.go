// Package service provides functions to publish domain events to RabbitMQ.
// Errors are logged and returned so callers can ignore failures without
// interrupting the main request flow.
package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	q "github.com/iliyamo/restaurant-table-sessions/internal/queue"
)

// TimerPublisher sends table timer events to the table.timers queue.  A
// connection is opened per publish; timer changes are a handful per
// minute at most.
type TimerPublisher struct {
	url string
	log zerolog.Logger
}

func NewTimerPublisher(url string, logger zerolog.Logger) *TimerPublisher {
	return &TimerPublisher{url: url, log: logger.With().Str("component", "timer_publisher").Logger()}
}

// PublishTimerEvent publishes ev as a persistent JSON message.  It never
// panics; any error is logged and returned.
func (p *TimerPublisher) PublishTimerEvent(ctx context.Context, ev q.TableTimerEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Error().Err(err).Msg("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Error().Err(err).Msg("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		q.TableTimersQueue, // name
		true,               // durable
		false,              // autoDelete
		false,              // exclusive
		false,              // noWait
		nil,                // args
	); err != nil {
		p.log.Error().Err(err).Msg("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Msg("rabbitmq: marshal event failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Type:         ev.Action,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", q.TableTimersQueue, false, false, pub); err != nil {
		p.log.Error().Err(err).Str("event_id", ev.EventID).Msg("rabbitmq: publish failed")
		return err
	}
	p.log.Debug().Str("event_id", ev.EventID).Str("action", ev.Action).Msg("timer event published")
	return nil
}

// NoopPublisher drops events.  It is used when QUEUE_ENABLED is false.
type NoopPublisher struct{}

func (NoopPublisher) PublishTimerEvent(context.Context, q.TableTimerEvent) error { return nil }
