package interfaces

import (
	"context"

	"github.com/lacasadepastel/pdv/internal/domain"
)

// Remote document stores (Adapter/Postgres). Each collection from the
// logical schema gets a typed store; ids are assigned by the store on
// creation and creation timestamps are server-assigned.

type ProductStore interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (domain.Product, error)
	Save(ctx context.Context, product domain.Product) (string, error)
	Delete(ctx context.Context, id string) error
	SetStock(ctx context.Context, id string, stock int) error
	SetActive(ctx context.Context, ids []string, active bool) error
}

type OrderStore interface {
	Create(ctx context.Context, order *domain.Order) (string, error)
	Get(ctx context.Context, id string) (domain.Order, error)
	// UpdateStatus is last-writer-wins: no concurrency token guards the
	// status field, so a racing client can clobber a more advanced state.
	UpdateStatus(ctx context.Context, id string, status domain.Status) error
	SetMessage(ctx context.Context, id string, message string) error
	ListActive(ctx context.Context) ([]domain.Order, error)
}

type SettingsStore interface {
	LoadStore(ctx context.Context) (domain.StoreSettings, error)
	SaveStore(ctx context.Context, settings domain.StoreSettings) error
	LoadShift(ctx context.Context) (domain.ShiftSession, error)
	SaveShift(ctx context.Context, session domain.ShiftSession) error
}

// Cache is the local string-keyed store read before the network for
// instant startup. A cache entry wins only until the first successful
// remote read.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Cache keys, one per cached concern.
const (
	CacheKeyCatalog  = "pdv:catalog"
	CacheKeyShift    = "pdv:shift"
	CacheKeySettings = "pdv:settings"
)
