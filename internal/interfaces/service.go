package interfaces

import (
	"context"

	"github.com/lacasadepastel/pdv/internal/domain"
	"github.com/shopspring/decimal"
)

// Commands for the services.
type CreateOrderCommand struct {
	Channel         string
	PaymentMethod   string
	Items           []OrderLineCommand
	ContactName     string
	ContactPhone    string
	DeliveryAddress *string
	TableCode       *string
	ChangeFor       *decimal.Decimal
}

type OrderLineCommand struct {
	ProductID string
	Quantity  int
	Note      string
	AddonIDs  []string
}

// Service interfaces (business logic).
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error)
	TransitionStatus(ctx context.Context, orderID string, status domain.Status) (*domain.Order, error)
	SendMessage(ctx context.Context, orderID, message string) error
}

type POSService interface {
	AddToCart(ctx context.Context, line OrderLineCommand) error
	UpdateCartQuantity(ctx context.Context, productID string, delta int) error
	RemoveFromCart(ctx context.Context, productID string) error
	ClearCart(ctx context.Context)
	Cart() ([]domain.CartLine, decimal.Decimal)
	FinalizeSale(ctx context.Context, payment domain.PaymentMethod, tender decimal.Decimal) (domain.SaleRecord, error)
	Sale(queueNumber int) (domain.SaleRecord, error)
	VoidSale(ctx context.Context, queueNumber int) error
	Shift() domain.ShiftSession
	CloseShift(ctx context.Context) (domain.ShiftSummary, error)
	Settings(ctx context.Context) (domain.StoreSettings, error)
	UpdateSettings(ctx context.Context, settings domain.StoreSettings) error
}

type TrackingService interface {
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
}
