package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lacasadepastel/pdv/internal/interfaces"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	changesExchange       = "changes_fanout"
	notificationsExchange = "notifications_fanout"
)

type publisher struct {
	conn Connection
}

func NewPublisher(conn Connection) interfaces.EventPublisher {
	return &publisher{conn: conn}
}

func (p *publisher) PublishChange(ctx context.Context, event interfaces.ChangeEvent) error {
	return p.publish(changesExchange, event, amqp.Persistent)
}

func (p *publisher) PublishSale(ctx context.Context, msg interfaces.SaleMessage) error {
	envelope := interfaces.NotificationEnvelope{Type: interfaces.NotificationSale, Sale: &msg}
	return p.publish(notificationsExchange, envelope, 0)
}

func (p *publisher) PublishShiftClosed(ctx context.Context, msg interfaces.ShiftClosedMessage) error {
	envelope := interfaces.NotificationEnvelope{Type: interfaces.NotificationShiftClosed, ShiftClosed: &msg}
	return p.publish(notificationsExchange, envelope, 0)
}

func (p *publisher) publish(exchange string, payload any, deliveryMode uint8) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = ch.Publish(exchange, "", false, false, amqp.Publishing{
		DeliveryMode: deliveryMode,
		ContentType:  "application/json",
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}
