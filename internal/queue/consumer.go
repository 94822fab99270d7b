package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// HandlerFunc processes one decoded slot event.
type HandlerFunc func(ctx context.Context, ev SlotEvent) error

// Consumer reads slot events from a durable queue and passes them to a
// handler.  Malformed messages and handler failures are rejected without
// requeue so a bad message cannot spin the loop.
type Consumer struct {
	url      string
	queue    string
	handle   HandlerFunc
	logger   *zap.Logger
	prefetch int
}

// NewConsumer builds a Consumer.  A nil handler logs each event.
func NewConsumer(url, queue string, handle HandlerFunc, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Consumer{url: url, queue: queue, handle: handle, logger: logger, prefetch: 50}
	if c.handle == nil {
		c.handle = c.logEvent
	}
	return c
}

// Run dials the broker and consumes until ctx is cancelled, reconnecting
// with exponential backoff (capped at 30s) whenever the connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warn("slot-consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("slot-consumer: consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		c.logger.Warn("slot-consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.process(ctx, d)
		}
	}
}

// process decodes and handles a delivery, then acks or rejects it.
func (c *Consumer) process(ctx context.Context, d amqp.Delivery) {
	ev, err := DecodeSlotEvent(d.Body)
	if err == nil {
		err = c.handle(ctx, ev)
	}
	if err != nil {
		c.logger.Warn("slot-consumer: message rejected", zap.String("message_id", d.MessageId), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func (c *Consumer) logEvent(_ context.Context, ev SlotEvent) error {
	c.logger.Info("slot event",
		zap.String("type", string(ev.Type)),
		zap.Uint64("slot_id", ev.SlotID),
		zap.Uint64("route_id", ev.RouteID),
		zap.Uint64("airline_id", ev.AirlineID),
		zap.String("airline", ev.AirlineCode),
		zap.String("from", ev.FromCode),
		zap.String("to", ev.ToCode),
		zap.String("slot_time", ev.SlotTime),
		zap.String("block_time", ev.BlockTime),
		zap.String("occurred_at", ev.OccurredAt),
	)
	return nil
}

// sleep waits for d or until ctx is done; it reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
