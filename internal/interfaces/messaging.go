package interfaces

import (
	"context"
	"time"

	"github.com/lacasadepastel/pdv/internal/domain"
	"github.com/shopspring/decimal"
)

// ChangeEvent announces that a document in a remote collection changed.
// Subscribers re-read the store; the event carries no document body.
type ChangeEvent struct {
	Collection string    `json:"collection"`
	DocID      string    `json:"doc_id"`
	Kind       string    `json:"kind"` // created | updated
	Timestamp  time.Time `json:"timestamp"`
}

const (
	CollectionProducts = "products"
	CollectionOrders   = "orders"
	CollectionSettings = "settings"

	ChangeCreated = "created"
	ChangeUpdated = "updated"
)

// SaleMessage is the post-commit notification emitted after a counter
// sale finalizes; the receipt/ticket collaborators consume it.
type SaleMessage struct {
	QueueNumber   int                  `json:"queue_number"`
	Total         decimal.Decimal      `json:"total"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	ChangeGiven   decimal.Decimal      `json:"change_given"`
	PixPayload    *string              `json:"pix_payload,omitempty"`
	Items         []domain.CartLine    `json:"items"`
	RecordedAt    time.Time            `json:"recorded_at"`
}

// ShiftClosedMessage carries the closure report to report collaborators.
type ShiftClosedMessage struct {
	Summary domain.ShiftSummary `json:"summary"`
}

// NotificationEnvelope wraps every message on the notification feed with
// a type tag so subscribers can route without sniffing fields.
type NotificationEnvelope struct {
	Type        string              `json:"type"`
	Sale        *SaleMessage        `json:"sale,omitempty"`
	ShiftClosed *ShiftClosedMessage `json:"shift_closed,omitempty"`
}

const (
	NotificationSale        = "sale"
	NotificationShiftClosed = "shift_closed"
)

// Messaging interfaces (Adapter/RabbitMQ).
type EventPublisher interface {
	PublishChange(ctx context.Context, event ChangeEvent) error
	PublishSale(ctx context.Context, msg SaleMessage) error
	PublishShiftClosed(ctx context.Context, msg ShiftClosedMessage) error
}

type EventConsumer interface {
	ConsumeChanges(ctx context.Context, handler ChangeHandler) error
	ConsumeNotifications(ctx context.Context, handler NotificationHandler) error
}

type (
	ChangeHandler       func(ctx context.Context, body []byte) error
	NotificationHandler func(ctx context.Context, body []byte) error
)
