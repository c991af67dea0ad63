package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by any lookup whose target does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable wraps any remote I/O failure. Reads fall back to
	// cached data; writes stay applied locally and are not retried.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrStoreClosed rejects new customer orders outside opening hours.
	ErrStoreClosed = errors.New("store is closed for online orders")

	// ErrInsufficientStock is the sentinel carried by InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidTransition is the sentinel carried by InvalidTransitionError.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// InsufficientStockError identifies the first product line that would drive
// stock negative. The whole batch is rejected; nothing is deducted.
type InsufficientStockError struct {
	ProductID string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s", e.ProductID)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// InvalidTransitionError reports a rejected order status transition. The
// order's status is left unchanged.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }
