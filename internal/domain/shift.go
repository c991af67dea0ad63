package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleRecord is one finalized sale within a shift, identified by the
// queue number printed on the customer's ticket.
type SaleRecord struct {
	QueueNumber   int             `json:"queueNumber"`
	Items         []CartLine      `json:"items"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	ChangeGiven   decimal.Decimal `json:"changeGiven"`
	PixPayload    *string         `json:"pixPayload,omitempty"`
	RecordedAt    time.Time       `json:"recordedAt"`
}

// ShiftSession accumulates sales from register open to close. History is
// kept most-recent-first.
type ShiftSession struct {
	SaleCount       int             `json:"saleCount"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	NextQueueNumber int             `json:"nextQueueNumber"`
	History         []SaleRecord    `json:"history"`
}

// NewShiftSession returns the zero state of a register session.
func NewShiftSession() ShiftSession {
	return ShiftSession{
		TotalRevenue:    decimal.Zero,
		NextQueueNumber: 1,
	}
}

// MethodSubtotal is the per-payment-method grouping on a closure report.
type MethodSubtotal struct {
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// ShiftSummary is the closure report captured before the session resets.
type ShiftSummary struct {
	SaleCount    int                              `json:"saleCount"`
	TotalRevenue decimal.Decimal                  `json:"totalRevenue"`
	ByMethod     map[PaymentMethod]MethodSubtotal `json:"byMethod"`
	ClosedAt     time.Time                        `json:"closedAt"`
}

// Summarize groups the session's history by payment method.
func (s ShiftSession) Summarize(now time.Time) ShiftSummary {
	byMethod := make(map[PaymentMethod]MethodSubtotal)
	for _, sale := range s.History {
		entry := byMethod[sale.PaymentMethod]
		entry.Count++
		entry.Subtotal = entry.Subtotal.Add(sale.Total)
		byMethod[sale.PaymentMethod] = entry
	}
	return ShiftSummary{
		SaleCount:    s.SaleCount,
		TotalRevenue: s.TotalRevenue,
		ByMethod:     byMethod,
		ClosedAt:     now,
	}
}
