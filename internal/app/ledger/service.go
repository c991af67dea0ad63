package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lacasadepastel/pdv/internal/adapter/logger"
	"github.com/lacasadepastel/pdv/internal/domain"
	"github.com/lacasadepastel/pdv/internal/interfaces"
)

// PostCommitHook runs after a deduction batch has been applied. Hooks
// observe the committed lines; they cannot veto or roll back.
type PostCommitHook func(lines []domain.StockLine)

// Service is the inventory ledger: the authoritative in-memory catalog
// plus all stock mutation. Deductions are all-or-nothing per batch and
// stock never goes negative; remote persistence of stock is best-effort
// and never blocks a sale.
type Service struct {
	store     interfaces.ProductStore
	cache     interfaces.Cache
	publisher interfaces.EventPublisher
	logger    logger.Logger

	mu       sync.Mutex
	products map[string]domain.Product
	dirty    map[string]struct{}
	hooks    []PostCommitHook
}

func NewService(store interfaces.ProductStore, cache interfaces.Cache, publisher interfaces.EventPublisher, logger logger.Logger) *Service {
	return &Service{
		store:     store,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
		products:  make(map[string]domain.Product),
		dirty:     make(map[string]struct{}),
	}
}

// RegisterPostCommit adds a hook called after every successful deduction.
func (s *Service) RegisterPostCommit(hook PostCommitHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Refresh loads the catalog, cache first for instant startup, then the
// remote store. A remote failure leaves the cached catalog in place and
// is reported so callers can surface degraded mode.
func (s *Service) Refresh(ctx context.Context) error {
	if cached, err := s.loadCached(ctx); err == nil {
		s.replace(cached)
	}

	products, err := s.store.List(ctx)
	if err != nil {
		s.logger.Error("catalog_refresh_failed", "Falling back to cached catalog", "", nil, err)
		return err
	}

	s.replace(products)
	s.flushDirty(ctx)
	s.writeCache(ctx)
	return nil
}

// Products returns a snapshot of every product, name-sorted.
func (s *Service) Products() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Catalog returns the sellable products only: active and not an addon.
func (s *Service) Catalog() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Product
	for _, p := range s.snapshotLocked() {
		if p.Sellable() {
			out = append(out, p)
		}
	}
	return out
}

// Get returns one product by id.
func (s *Service) Get(id string) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

// ReserveAndDeduct applies a deduction batch atomically: every line is
// checked against current stock before any line is applied, and the
// first shortfall rejects the whole batch with nothing deducted.
func (s *Service) ReserveAndDeduct(ctx context.Context, lines []domain.StockLine) error {
	s.mu.Lock()

	for _, line := range lines {
		p, ok := s.products[line.ProductID]
		if !ok {
			s.mu.Unlock()
			return fmt.Errorf("product %s: %w", line.ProductID, domain.ErrNotFound)
		}
		if p.Stock < line.Quantity {
			s.mu.Unlock()
			return &domain.InsufficientStockError{ProductID: line.ProductID}
		}
	}

	for _, line := range lines {
		p := s.products[line.ProductID]
		p.Stock -= line.Quantity
		s.products[line.ProductID] = p
	}
	hooks := append([]PostCommitHook(nil), s.hooks...)
	s.mu.Unlock()

	s.persistStock(ctx, lines)

	for _, hook := range hooks {
		hook(lines)
	}
	return nil
}

// Reverse adds a previously deducted batch back. It is unconditional:
// a void must always restore stock even if the catalog changed meanwhile.
func (s *Service) Reverse(ctx context.Context, lines []domain.StockLine) {
	s.mu.Lock()
	for _, line := range lines {
		p, ok := s.products[line.ProductID]
		if !ok {
			continue
		}
		p.Stock += line.Quantity
		s.products[line.ProductID] = p
	}
	s.mu.Unlock()

	s.persistStock(ctx, lines)
}

// SaveProduct creates or updates a product and broadcasts the change.
func (s *Service) SaveProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	kind := interfaces.ChangeUpdated
	if product.ID == "" {
		kind = interfaces.ChangeCreated
	}

	id, err := s.store.Save(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	product.ID = id

	s.mu.Lock()
	s.products[id] = product
	s.mu.Unlock()

	s.writeCache(ctx)
	s.publishChange(ctx, id, kind)
	return product, nil
}

// DeleteProduct removes a product from the catalog.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.products, id)
	s.mu.Unlock()

	s.writeCache(ctx)
	s.publishChange(ctx, id, interfaces.ChangeUpdated)
	return nil
}

// SetActive toggles catalog visibility for a batch of products.
func (s *Service) SetActive(ctx context.Context, ids []string, active bool) error {
	if err := s.store.SetActive(ctx, ids, active); err != nil {
		return err
	}

	s.mu.Lock()
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			p.Active = active
			s.products[id] = p
		}
	}
	s.mu.Unlock()

	s.writeCache(ctx)
	for _, id := range ids {
		s.publishChange(ctx, id, interfaces.ChangeUpdated)
	}
	return nil
}

// SetStock overwrites a product's stock level directly, for restocking
// and corrections outside the sale path.
func (s *Service) SetStock(ctx context.Context, id string, stock int) error {
	if err := s.store.SetStock(ctx, id, stock); err != nil {
		return err
	}

	s.mu.Lock()
	if p, ok := s.products[id]; ok {
		p.Stock = stock
		s.products[id] = p
	}
	// The correction reached the store, superseding any pending write.
	delete(s.dirty, id)
	s.mu.Unlock()

	s.writeCache(ctx)
	s.publishChange(ctx, id, interfaces.ChangeUpdated)
	return nil
}

// persistStock pushes current stock levels for the touched products to
// the remote store. Failures are logged and the local ledger stays
// authoritative; the next successful write converges the store.
func (s *Service) persistStock(ctx context.Context, lines []domain.StockLine) {
	s.mu.Lock()
	levels := make(map[string]int, len(lines))
	for _, line := range lines {
		if p, ok := s.products[line.ProductID]; ok {
			levels[line.ProductID] = p.Stock
		}
	}
	s.mu.Unlock()

	for id, stock := range levels {
		if err := s.store.SetStock(ctx, id, stock); err != nil {
			s.markDirty(id)
			s.logger.Error("stock_persist_failed", "Stock level kept locally only", "",
				map[string]interface{}{"product_id": id, "stock": stock}, err)
			continue
		}
		s.clearDirty(id)
		s.publishChange(ctx, id, interfaces.ChangeUpdated)
	}

	s.writeCache(ctx)
}

// flushDirty retries stock writes that failed earlier, pushing the
// current local level for every product still marked dirty.
func (s *Service) flushDirty(ctx context.Context) {
	s.mu.Lock()
	levels := make(map[string]int, len(s.dirty))
	for id := range s.dirty {
		if p, ok := s.products[id]; ok {
			levels[id] = p.Stock
		} else {
			delete(s.dirty, id)
		}
	}
	s.mu.Unlock()

	for id, stock := range levels {
		if err := s.store.SetStock(ctx, id, stock); err != nil {
			s.logger.Error("stock_persist_failed", "Stock level kept locally only", "",
				map[string]interface{}{"product_id": id, "stock": stock}, err)
			continue
		}
		s.clearDirty(id)
		s.publishChange(ctx, id, interfaces.ChangeUpdated)
	}
}

func (s *Service) markDirty(id string) {
	s.mu.Lock()
	s.dirty[id] = struct{}{}
	s.mu.Unlock()
}

func (s *Service) clearDirty(id string) {
	s.mu.Lock()
	delete(s.dirty, id)
	s.mu.Unlock()
}

func (s *Service) publishChange(ctx context.Context, id, kind string) {
	if s.publisher == nil {
		return
	}
	event := interfaces.ChangeEvent{
		Collection: interfaces.CollectionProducts,
		DocID:      id,
		Kind:       kind,
		Timestamp:  time.Now(),
	}
	if err := s.publisher.PublishChange(ctx, event); err != nil {
		s.logger.Error("change_publish_failed", "Failed to broadcast product change", "",
			map[string]interface{}{"product_id": id}, err)
	}
}

func (s *Service) replace(products []domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]domain.Product, len(products))
	for _, p := range products {
		// A product whose last stock write never reached the store keeps
		// its local level; the remote copy is stale until the write lands.
		if _, unpersisted := s.dirty[p.ID]; unpersisted {
			if local, ok := s.products[p.ID]; ok {
				p.Stock = local.Stock
			}
		}
		next[p.ID] = p
	}
	s.products = next
}

func (s *Service) snapshotLocked() []domain.Product {
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Service) loadCached(ctx context.Context) ([]domain.Product, error) {
	if s.cache == nil {
		return nil, domain.ErrNotFound
	}
	raw, err := s.cache.Get(ctx, interfaces.CacheKeyCatalog)
	if err != nil {
		return nil, err
	}
	var products []domain.Product
	if err := json.Unmarshal([]byte(raw), &products); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached catalog: %w", err)
	}
	return products, nil
}

func (s *Service) writeCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(s.Products())
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, interfaces.CacheKeyCatalog, string(raw)); err != nil {
		s.logger.Error("catalog_cache_failed", "Failed to cache catalog", "", nil, err)
	}
}
