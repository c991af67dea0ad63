package sync

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/lacasadepastel/pdv/internal/adapter/logger"
	"github.com/lacasadepastel/pdv/internal/domain"
	"github.com/lacasadepastel/pdv/internal/interfaces"
)

// CatalogRefresher reloads the in-memory catalog from the remote store.
type CatalogRefresher interface {
	Refresh(ctx context.Context) error
}

// pollInterval is the fallback cadence when the event bus is down or no
// consumer is wired; change events only shorten the wait.
const pollInterval = 15 * time.Second

// Coordinator keeps local state converged with the remote store. It
// listens for change events, re-reads the affected collection and fans
// the fresh view out to subscribers. Subscribers that fall behind miss
// intermediate snapshots, never the latest one.
type Coordinator struct {
	consumer  interfaces.EventConsumer
	orders    interfaces.OrderStore
	refresher CatalogRefresher
	logger    logger.Logger

	mu           sync.Mutex
	nextID       int
	activeSubs   map[int]chan []domain.Order
	orderSubs    map[string]map[int]chan domain.Order
	lastActive   []domain.Order
	ordersLoaded bool
}

func NewCoordinator(consumer interfaces.EventConsumer, orders interfaces.OrderStore, refresher CatalogRefresher, logger logger.Logger) *Coordinator {
	return &Coordinator{
		consumer:   consumer,
		orders:     orders,
		refresher:  refresher,
		logger:     logger,
		activeSubs: make(map[int]chan []domain.Order),
		orderSubs:  make(map[string]map[int]chan domain.Order),
	}
}

// Run blocks until ctx is cancelled, converging on every change event
// and on the polling ticker.
func (c *Coordinator) Run(ctx context.Context) error {
	kicks := make(chan interfaces.ChangeEvent, 16)

	if c.consumer != nil {
		go func() {
			err := c.consumer.ConsumeChanges(ctx, func(ctx context.Context, body []byte) error {
				var event interfaces.ChangeEvent
				if err := json.Unmarshal(body, &event); err != nil {
					c.logger.Error("change_decode_failed", "Dropping malformed change event", "", nil, err)
					return nil
				}
				select {
				case kicks <- event:
				default:
				}
				return nil
			})
			if err != nil && ctx.Err() == nil {
				c.logger.Error("change_feed_stopped", "Relying on polling only", "", nil, err)
			}
		}()
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	c.converge(ctx, interfaces.ChangeEvent{})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-kicks:
			c.converge(ctx, event)
		case <-ticker.C:
			c.converge(ctx, interfaces.ChangeEvent{})
		}
	}
}

// SubscribeActiveOrders delivers the active-order panel view on every
// convergence. The returned cancel func releases the subscription.
func (c *Coordinator) SubscribeActiveOrders() (<-chan []domain.Order, func()) {
	ch := make(chan []domain.Order, 1)

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.activeSubs[id] = ch
	if c.ordersLoaded {
		ch <- append([]domain.Order(nil), c.lastActive...)
	}
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.activeSubs[id]; ok {
			delete(c.activeSubs, id)
			close(sub)
		}
	}
}

// SubscribeOrder delivers one order's fresh state whenever it changes,
// for the customer tracking view.
func (c *Coordinator) SubscribeOrder(orderID string) (<-chan domain.Order, func()) {
	ch := make(chan domain.Order, 1)

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	if c.orderSubs[orderID] == nil {
		c.orderSubs[orderID] = make(map[int]chan domain.Order)
	}
	c.orderSubs[orderID][id] = ch
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		subs := c.orderSubs[orderID]
		if sub, ok := subs[id]; ok {
			delete(subs, id)
			close(sub)
			if len(subs) == 0 {
				delete(c.orderSubs, orderID)
			}
		}
	}
}

// converge re-reads whatever the event touches; a zero event (poll tick
// or startup) re-reads everything.
func (c *Coordinator) converge(ctx context.Context, event interfaces.ChangeEvent) {
	all := event.Collection == ""

	if (all || event.Collection == interfaces.CollectionProducts || event.Collection == interfaces.CollectionSettings) && c.refresher != nil {
		if err := c.refresher.Refresh(ctx); err != nil {
			c.logger.Debug("catalog_converge_failed", "Catalog refresh deferred", "", nil)
		}
	}

	if all || event.Collection == interfaces.CollectionOrders {
		c.convergeOrders(ctx, event.DocID)
	}
}

func (c *Coordinator) convergeOrders(ctx context.Context, docID string) {
	active, err := c.orders.ListActive(ctx)
	if err != nil {
		c.logger.Error("orders_converge_failed", "Active order view is stale", "", nil, err)
		return
	}

	c.mu.Lock()
	c.lastActive = active
	c.ordersLoaded = true

	for _, sub := range c.activeSubs {
		send(sub, append([]domain.Order(nil), active...))
	}

	var watched []string
	for id := range c.orderSubs {
		if docID == "" || id == docID {
			watched = append(watched, id)
		}
	}
	c.mu.Unlock()

	resolved := make(map[string]domain.Order, len(watched))
	for _, id := range watched {
		order, found := findOrder(active, id)
		if !found {
			// Terminal orders leave the active list; fetch directly so
			// watchers see the final state.
			loaded, err := c.orders.Get(ctx, id)
			if err != nil {
				continue
			}
			order = loaded
		}
		resolved[id] = order
	}

	// Channel closes happen under the same lock, so sends are safe
	// against unsubscribes only while holding it.
	c.mu.Lock()
	for id, order := range resolved {
		for _, sub := range c.orderSubs[id] {
			send(sub, order)
		}
	}
	c.mu.Unlock()
}

// send replaces a pending undelivered snapshot with the newer one.
func send[T any](ch chan T, value T) {
	for {
		select {
		case ch <- value:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

func findOrder(orders []domain.Order, id string) (domain.Order, bool) {
	for _, o := range orders {
		if o.ID == id {
			return o, true
		}
	}
	return domain.Order{}, false
}
