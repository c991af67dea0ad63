package rabbitmq

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lacasadepastel/pdv/internal/interfaces"
)

type consumer struct {
	conn Connection
}

func NewConsumer(conn Connection) interfaces.EventConsumer {
	return &consumer{conn: conn}
}

func (c *consumer) ConsumeChanges(ctx context.Context, handler interfaces.ChangeHandler) error {
	return c.consumeLoop(ctx, changesExchange, "changes", func(ctx context.Context, body []byte) error {
		return handler(ctx, body)
	})
}

func (c *consumer) ConsumeNotifications(ctx context.Context, handler interfaces.NotificationHandler) error {
	return c.consumeLoop(ctx, notificationsExchange, "notifications", func(ctx context.Context, body []byte) error {
		return handler(ctx, body)
	})
}

func (c *consumer) consumeLoop(ctx context.Context, exchange, label string, handler func(context.Context, []byte) error) error {
	for {
		err := c.consumeWithReconnect(ctx, exchange, handler)

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err == nil {
			return nil
		}

		log.Printf("%s consumer disconnected: %v. Reconnecting in 5 seconds...", label, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
}

func (c *consumer) consumeWithReconnect(ctx context.Context, exchange string, handler func(context.Context, []byte) error) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	closeChan := ch.NotifyClose()

	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Each subscriber gets its own temporary queue so every instance
	// sees every event.
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-closeChan:
			if err != nil {
				return fmt.Errorf("channel closed: %w", err)
			}
			return fmt.Errorf("channel closed gracefully")

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("messages channel closed")
			}

			// Handler failures must not stop the feed.
			_ = handler(ctx, msg.Body)
		}
	}
}
