package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Consumer drains the table.timers queue and appends each event to an
// audit log file, one line per event.
type Consumer struct {
	url     string
	logPath string
	log     zerolog.Logger
}

// NewConsumer returns a consumer writing to logPath (default
// logs/table_timers.log).
func NewConsumer(url, logPath string, logger zerolog.Logger) *Consumer {
	if logPath == "" {
		logPath = filepath.Join("logs", "table_timers.log")
	}
	return &Consumer{url: url, logPath: logPath, log: logger.With().Str("component", "timer_consumer").Logger()}
}

// Run connects to the broker and consumes until ctx is cancelled,
// reconnecting with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("failed to dial broker")
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn().Err(err).Msg("consume loop ended; reconnecting")
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn().Err(err).Msg("set QoS failed")
	}
	if _, err := ch.QueueDeclare(TableTimersQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, TableTimersQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := c.handle(d.Body); err != nil {
			c.log.Error().Err(err).Msg("handle message failed")
			_ = d.Nack(false, false) // drop rather than requeue into a tight loop
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (c *Consumer) handle(body []byte) error {
	var ev TableTimerEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if err := WriteLine(f, ev); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// WriteLine renders ev in the audit log's single-line format.
func WriteLine(w io.Writer, ev TableTimerEvent) error {
	var err error
	switch ev.Action {
	case ActionClearedAll:
		_, err = fmt.Fprintf(w, "[%s] %s | event_id=%s | cleared=%d | actor=%q\n",
			ev.OccurredAt, ev.Action, ev.EventID, ev.Cleared, ev.ActorID)
	default:
		_, err = fmt.Fprintf(w, "[%s] %s | event_id=%s | table=%q | status=%s | end_time=%d | initial_minutes=%d | actor=%q\n",
			ev.OccurredAt, ev.Action, ev.EventID, ev.TableID, ev.Status, ev.EndTime, ev.InitialMinutes, ev.ActorID)
	}
	return err
}
