package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/lacasadepastel/pdv/internal/adapter/logger"
	"github.com/lacasadepastel/pdv/internal/domain"
	"github.com/lacasadepastel/pdv/internal/interfaces"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProductStore struct {
	products map[string]domain.Product
	listErr  error
	setErr   error
	setCalls map[string]int
}

func newFakeProductStore(products ...domain.Product) *fakeProductStore {
	s := &fakeProductStore{
		products: make(map[string]domain.Product),
		setCalls: make(map[string]int),
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *fakeProductStore) List(ctx context.Context) ([]domain.Product, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.Product
	for _, p := range s.products {
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeProductStore) Get(ctx context.Context, id string) (domain.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *fakeProductStore) Save(ctx context.Context, product domain.Product) (string, error) {
	if product.ID == "" {
		product.ID = "generated"
	}
	s.products[product.ID] = product
	return product.ID, nil
}

func (s *fakeProductStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.products[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *fakeProductStore) SetStock(ctx context.Context, id string, stock int) error {
	if s.setErr != nil {
		return s.setErr
	}
	p, ok := s.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Stock = stock
	s.products[id] = p
	s.setCalls[id]++
	return nil
}

func (s *fakeProductStore) SetActive(ctx context.Context, ids []string, active bool) error {
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			p.Active = active
			s.products[id] = p
		}
	}
	return nil
}

type fakeCache struct {
	values map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string)}
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, error) {
	v, ok := c.values[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (c *fakeCache) Set(ctx context.Context, key, value string) error {
	c.values[key] = value
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	delete(c.values, key)
	return nil
}

func testLogger() logger.Logger {
	return logger.NewWithOutput("test", io.Discard)
}

func testProducts() []domain.Product {
	return []domain.Product{
		{ID: "p1", Name: "Pastel de Carne", Price: decimal.RequireFromString("8.50"), Stock: 10, Active: true},
		{ID: "p2", Name: "Caldo de Cana", Price: decimal.RequireFromString("6.00"), Stock: 2, Active: true},
		{ID: "a1", Name: "Catupiry", Price: decimal.RequireFromString("2.50"), Stock: 5, Active: true, IsAddon: true},
	}
}

func newTestService(t *testing.T, store *fakeProductStore) *Service {
	t.Helper()
	svc := NewService(store, newFakeCache(), nil, testLogger())
	require.NoError(t, svc.Refresh(context.Background()))
	return svc
}

func TestReserveAndDeductAllOrNothing(t *testing.T) {
	store := newFakeProductStore(testProducts()...)
	svc := newTestService(t, store)

	err := svc.ReserveAndDeduct(context.Background(), []domain.StockLine{
		{ProductID: "p1", Quantity: 3},
		{ProductID: "p2", Quantity: 5},
	})

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "p2", stockErr.ProductID)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	p1, err := svc.Get("p1")
	require.NoError(t, err)
	assert.Equal(t, 10, p1.Stock, "nothing is deducted when any line falls short")
}

func TestReserveAndDeductAppliesBatch(t *testing.T) {
	store := newFakeProductStore(testProducts()...)
	svc := newTestService(t, store)

	err := svc.ReserveAndDeduct(context.Background(), []domain.StockLine{
		{ProductID: "p1", Quantity: 3},
		{ProductID: "a1", Quantity: 3},
	})
	require.NoError(t, err)

	p1, _ := svc.Get("p1")
	a1, _ := svc.Get("a1")
	assert.Equal(t, 7, p1.Stock)
	assert.Equal(t, 2, a1.Stock)

	assert.Equal(t, 7, store.products["p1"].Stock, "stock level persisted remotely")
	assert.Equal(t, 1, store.setCalls["p1"])
}

func TestDeductReverseRoundtrip(t *testing.T) {
	store := newFakeProductStore(testProducts()...)
	svc := newTestService(t, store)

	lines := []domain.StockLine{{ProductID: "p1", Quantity: 4}, {ProductID: "p2", Quantity: 1}}
	require.NoError(t, svc.ReserveAndDeduct(context.Background(), lines))
	svc.Reverse(context.Background(), lines)

	p1, _ := svc.Get("p1")
	p2, _ := svc.Get("p2")
	assert.Equal(t, 10, p1.Stock)
	assert.Equal(t, 2, p2.Stock)
}

func TestReserveAndDeductUnknownProduct(t *testing.T) {
	store := newFakeProductStore(testProducts()...)
	svc := newTestService(t, store)

	err := svc.ReserveAndDeduct(context.Background(), []domain.StockLine{{ProductID: "ghost", Quantity: 1}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostCommitHookRuns(t *testing.T) {
	store := newFakeProductStore(testProducts()...)
	svc := newTestService(t, store)

	var committed []domain.StockLine
	svc.RegisterPostCommit(func(lines []domain.StockLine) {
		committed = lines
	})

	lines := []domain.StockLine{{ProductID: "p1", Quantity: 1}}
	require.NoError(t, svc.ReserveAndDeduct(context.Background(), lines))
	assert.Equal(t, lines, committed)

	err := svc.ReserveAndDeduct(context.Background(), []domain.StockLine{{ProductID: "p2", Quantity: 99}})
	require.Error(t, err)
	assert.Equal(t, lines, committed, "hooks do not run on rejected batches")
}

func TestRefreshKeepsUnpersistedDeductions(t *testing.T) {
	store := newFakeProductStore(testProducts()...)
	svc := newTestService(t, store)

	store.setErr = domain.ErrStoreUnavailable
	require.NoError(t, svc.ReserveAndDeduct(context.Background(), []domain.StockLine{{ProductID: "p1", Quantity: 4}}))

	p1, _ := svc.Get("p1")
	require.Equal(t, 6, p1.Stock)
	require.Equal(t, 10, store.products["p1"].Stock, "remote write failed and left the store stale")

	require.NoError(t, svc.Refresh(context.Background()))
	p1, _ = svc.Get("p1")
	assert.Equal(t, 6, p1.Stock, "a reload never resurrects stock whose deduction is still unpersisted")
	assert.Equal(t, 10, store.products["p1"].Stock)

	store.setErr = nil
	require.NoError(t, svc.Refresh(context.Background()))
	p1, _ = svc.Get("p1")
	assert.Equal(t, 6, p1.Stock)
	assert.Equal(t, 6, store.products["p1"].Stock, "the retried write converges the store")

	require.NoError(t, svc.Refresh(context.Background()))
	p1, _ = svc.Get("p1")
	assert.Equal(t, 6, p1.Stock, "once persisted the store copy rules again")
}

func TestSetStockSupersedesPendingWrite(t *testing.T) {
	store := newFakeProductStore(testProducts()...)
	svc := newTestService(t, store)

	store.setErr = domain.ErrStoreUnavailable
	require.NoError(t, svc.ReserveAndDeduct(context.Background(), []domain.StockLine{{ProductID: "p1", Quantity: 4}}))

	store.setErr = nil
	require.NoError(t, svc.SetStock(context.Background(), "p1", 20))

	require.NoError(t, svc.Refresh(context.Background()))
	p1, _ := svc.Get("p1")
	assert.Equal(t, 20, p1.Stock, "the manual correction wins over the failed deduction write")
	assert.Equal(t, 20, store.products["p1"].Stock)
}

func TestRefreshFallsBackToCache(t *testing.T) {
	cache := newFakeCache()
	raw, err := json.Marshal(testProducts())
	require.NoError(t, err)
	require.NoError(t, cache.Set(context.Background(), interfaces.CacheKeyCatalog, string(raw)))

	store := newFakeProductStore()
	store.listErr = errors.New("network down")

	svc := NewService(store, cache, nil, testLogger())
	err = svc.Refresh(context.Background())
	require.Error(t, err, "degraded startup is reported")

	p1, err := svc.Get("p1")
	require.NoError(t, err)
	assert.Equal(t, 10, p1.Stock, "cached catalog serves while the store is down")
}

func TestCatalogExcludesAddonsAndInactive(t *testing.T) {
	products := testProducts()
	products = append(products, domain.Product{ID: "p3", Name: "Off", Stock: 1, Active: false})
	store := newFakeProductStore(products...)
	svc := newTestService(t, store)

	catalog := svc.Catalog()
	require.Len(t, catalog, 2)
	for _, p := range catalog {
		assert.True(t, p.Sellable())
	}
}

func TestSaveProductUpdatesCatalog(t *testing.T) {
	store := newFakeProductStore(testProducts()...)
	svc := newTestService(t, store)

	saved, err := svc.SaveProduct(context.Background(), domain.Product{Name: "Pastel de Palmito", Price: decimal.RequireFromString("9.00"), Stock: 6, Active: true})
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	got, err := svc.Get(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pastel de Palmito", got.Name)
}
