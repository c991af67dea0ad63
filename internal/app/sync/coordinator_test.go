package sync

import (
	"context"
	"io"
	"testing"

	"github.com/lacasadepastel/pdv/internal/adapter/logger"
	"github.com/lacasadepastel/pdv/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrderStore struct {
	orders map[string]domain.Order
}

func newFakeOrderStore(orders ...domain.Order) *fakeOrderStore {
	s := &fakeOrderStore{orders: make(map[string]domain.Order)}
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return s
}

func (s *fakeOrderStore) Create(ctx context.Context, order *domain.Order) (string, error) {
	s.orders[order.ID] = *order
	return order.ID, nil
}

func (s *fakeOrderStore) Get(ctx context.Context, id string) (domain.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return order, nil
}

func (s *fakeOrderStore) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	order := s.orders[id]
	order.Status = status
	s.orders[id] = order
	return nil
}

func (s *fakeOrderStore) SetMessage(ctx context.Context, id string, message string) error {
	return nil
}

func (s *fakeOrderStore) ListActive(ctx context.Context) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range s.orders {
		if !o.Status.IsTerminal() {
			out = append(out, o)
		}
	}
	return out, nil
}

func testLogger() logger.Logger {
	return logger.NewWithOutput("test", io.Discard)
}

func TestSubscribeActiveOrdersReceivesSnapshot(t *testing.T) {
	store := newFakeOrderStore(
		domain.Order{ID: "o1", Status: domain.StatusPending},
		domain.Order{ID: "o2", Status: domain.StatusCompleted},
	)
	c := NewCoordinator(nil, store, nil, testLogger())

	orders, cancel := c.SubscribeActiveOrders()
	defer cancel()

	c.convergeOrders(context.Background(), "")

	snapshot := <-orders
	require.Len(t, snapshot, 1)
	assert.Equal(t, "o1", snapshot[0].ID, "terminal orders leave the active view")
}

func TestSubscribeActiveOrdersKeepsLatestSnapshot(t *testing.T) {
	store := newFakeOrderStore(domain.Order{ID: "o1", Status: domain.StatusPending})
	c := NewCoordinator(nil, store, nil, testLogger())

	orders, cancel := c.SubscribeActiveOrders()
	defer cancel()

	c.convergeOrders(context.Background(), "")
	require.NoError(t, store.UpdateStatus(context.Background(), "o1", domain.StatusApproved))
	c.convergeOrders(context.Background(), "")

	// The slow subscriber missed the first snapshot; it gets the latest.
	snapshot := <-orders
	require.Len(t, snapshot, 1)
	assert.Equal(t, domain.StatusApproved, snapshot[0].Status)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	store := newFakeOrderStore()
	c := NewCoordinator(nil, store, nil, testLogger())

	orders, cancel := c.SubscribeActiveOrders()
	cancel()

	_, open := <-orders
	assert.False(t, open)

	c.convergeOrders(context.Background(), "")
}

func TestLateSubscriberGetsCachedView(t *testing.T) {
	store := newFakeOrderStore(domain.Order{ID: "o1", Status: domain.StatusPending})
	c := NewCoordinator(nil, store, nil, testLogger())

	c.convergeOrders(context.Background(), "")

	orders, cancel := c.SubscribeActiveOrders()
	defer cancel()

	snapshot := <-orders
	require.Len(t, snapshot, 1)
}

func TestSubscribeOrderDeliversTerminalState(t *testing.T) {
	store := newFakeOrderStore(domain.Order{ID: "o1", Status: domain.StatusPending})
	c := NewCoordinator(nil, store, nil, testLogger())

	updates, cancel := c.SubscribeOrder("o1")
	defer cancel()

	require.NoError(t, store.UpdateStatus(context.Background(), "o1", domain.StatusRejected))
	c.convergeOrders(context.Background(), "o1")

	order := <-updates
	assert.Equal(t, domain.StatusRejected, order.Status, "watchers see terminal states via direct fetch")
}

func TestSubscribeOrderFiltersByDocID(t *testing.T) {
	store := newFakeOrderStore(
		domain.Order{ID: "o1", Status: domain.StatusPending},
		domain.Order{ID: "o2", Status: domain.StatusPending},
	)
	c := NewCoordinator(nil, store, nil, testLogger())

	updates, cancel := c.SubscribeOrder("o1")
	defer cancel()

	c.convergeOrders(context.Background(), "o2")
	select {
	case <-updates:
		t.Fatal("watcher for o1 must not fire on o2 changes")
	default:
	}

	c.convergeOrders(context.Background(), "o1")
	order := <-updates
	assert.Equal(t, "o1", order.ID)
}
