package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Order is the central entity shared by the customer channel and the POS
// panel. Items and total are frozen at creation; mutation happens only
// through status transitions and the staff message side channel.
type Order struct {
	ID              string           `json:"id,omitempty"`
	Items           []CartLine       `json:"items"`
	Total           decimal.Decimal  `json:"total"`
	Channel         Channel          `json:"channel"`
	PaymentMethod   PaymentMethod    `json:"paymentMethod"`
	Status          Status           `json:"status"`
	ContactName     string           `json:"contactName"`
	ContactPhone    string           `json:"contactPhone"`
	DeliveryAddress *string          `json:"deliveryAddress,omitempty"`
	TableCode       *string          `json:"tableCode,omitempty"`
	ChangeFor       *decimal.Decimal `json:"changeFor,omitempty"`
	PixPayload      *string          `json:"pixPayload,omitempty"`
	LastMessage     *string          `json:"lastMessage,omitempty"`
	CreatedAt       time.Time        `json:"createdAt,omitempty"`
	UpdatedAt       time.Time        `json:"updatedAt,omitempty"`
}

// NewOrder creates an order for the given channel with business rules
// applied. The total is computed from the frozen line prices, independent
// of later product edits. autoApprove creates the order directly in
// approved instead of pending.
func NewOrder(channel Channel, payment PaymentMethod, items []CartLine, contactName, contactPhone string, deliveryAddress, tableCode *string, changeFor *decimal.Decimal, autoApprove bool) (*Order, error) {
	status := StatusPending
	if autoApprove {
		status = StatusApproved
	}

	order := &Order{
		Items:           items,
		Total:           LinesTotal(items),
		Channel:         channel,
		PaymentMethod:   payment,
		Status:          status,
		ContactName:     contactName,
		ContactPhone:    contactPhone,
		DeliveryAddress: deliveryAddress,
		TableCode:       tableCode,
		ChangeFor:       changeFor,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	return order, nil
}

// Validate applies the per-channel field rules.
func (o *Order) Validate() error {
	if len(o.Items) == 0 {
		return errors.New("order must have at least one item")
	}

	for _, item := range o.Items {
		if item.Quantity < 1 {
			return errors.New("item quantity must be at least 1")
		}
		if item.UnitPrice.IsNegative() {
			return errors.New("item unit price must not be negative")
		}
	}

	switch o.Channel {
	case ChannelPickup:
	case ChannelDelivery:
		if o.DeliveryAddress == nil || *o.DeliveryAddress == "" {
			return errors.New("delivery address required for delivery orders")
		}
	case ChannelDineIn:
		if o.TableCode == nil || *o.TableCode == "" {
			return errors.New("table code required for dine-in orders")
		}
	default:
		return errors.New("invalid order channel")
	}

	switch o.PaymentMethod {
	case PaymentCash, PaymentPix, PaymentOther:
	default:
		return errors.New("invalid payment method")
	}

	if o.PaymentMethod != PaymentCash && o.ChangeFor != nil {
		return errors.New("change tender only applies to cash orders")
	}

	return nil
}

// TransitionTo moves the order to a new status. Transitions are monotonic
// and completed/rejected are absorbing; an illegal transition leaves the
// status unchanged and returns InvalidTransitionError.
func (o *Order) TransitionTo(newStatus Status) error {
	if !o.CanTransitionTo(newStatus) {
		return &InvalidTransitionError{From: o.Status, To: newStatus}
	}

	o.Status = newStatus
	o.UpdatedAt = time.Now()
	return nil
}

// CanTransitionTo checks if the order can transition to the new status.
func (o *Order) CanTransitionTo(newStatus Status) bool {
	validTransitions := map[Status][]Status{
		StatusPending:   {StatusApproved, StatusRejected},
		StatusApproved:  {StatusPreparing},
		StatusPreparing: {StatusReady},
		StatusReady:     {StatusCompleted},
		StatusCompleted: {},
		StatusRejected:  {},
	}

	allowed := validTransitions[o.Status]
	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

// AttachPixPayload sets the payment payload computed at creation time.
// It is immutable afterwards.
func (o *Order) AttachPixPayload(payload string) {
	if o.PixPayload != nil {
		return
	}
	o.PixPayload = &payload
}

// SetMessage updates the staff-to-customer note without touching status.
func (o *Order) SetMessage(message string) {
	o.LastMessage = &message
	o.UpdatedAt = time.Now()
}
