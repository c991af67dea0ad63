package tracking

import (
	"context"

	"github.com/lacasadepastel/pdv/internal/domain"
	"github.com/lacasadepastel/pdv/internal/interfaces"
)

// Service serves the customer-facing order tracking view: read-only
// access to a single order by its id.
type Service struct {
	orders interfaces.OrderStore
}

func NewService(orders interfaces.OrderStore) *Service {
	return &Service{orders: orders}
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	return s.orders.Get(ctx, orderID)
}
