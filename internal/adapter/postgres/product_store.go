package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lacasadepastel/pdv/internal/domain"
	"github.com/lacasadepastel/pdv/internal/interfaces"
)

type productStore struct {
	db DB
}

func NewProductStore(db DB) interfaces.ProductStore {
	return &productStore{db: db}
}

func (s *productStore) List(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT id, doc FROM products ORDER BY doc ->> 'name'`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list products: %w", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var (
			id  string
			doc []byte
		)
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		var product domain.Product
		if err := json.Unmarshal(doc, &product); err != nil {
			return nil, fmt.Errorf("failed to unmarshal product %s: %w", id, err)
		}
		product.ID = id
		products = append(products, product)
	}

	return products, nil
}

func (s *productStore) Get(ctx context.Context, id string) (domain.Product, error) {
	query := `SELECT doc FROM products WHERE id = $1`

	var doc []byte
	err := s.db.QueryRow(ctx, query, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("%w: failed to load product: %w", domain.ErrStoreUnavailable, err)
	}

	var product domain.Product
	if err := json.Unmarshal(doc, &product); err != nil {
		return domain.Product{}, fmt.Errorf("failed to unmarshal product %s: %w", id, err)
	}
	product.ID = id

	return product, nil
}

func (s *productStore) Save(ctx context.Context, product domain.Product) (string, error) {
	if product.ID == "" {
		product.ID = uuid.NewString()
	}

	doc, err := json.Marshal(product)
	if err != nil {
		return "", fmt.Errorf("failed to marshal product: %w", err)
	}

	query := `
		INSERT INTO products (id, doc)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc
	`
	if _, err := s.db.Exec(ctx, query, product.ID, doc); err != nil {
		return "", fmt.Errorf("%w: failed to save product: %w", domain.ErrStoreUnavailable, err)
	}

	return product.ID, nil
}

func (s *productStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete product: %w", domain.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *productStore) SetStock(ctx context.Context, id string, stock int) error {
	query := `
		UPDATE products
		SET doc = jsonb_set(doc, '{stock}', to_jsonb($2::int))
		WHERE id = $1
	`
	tag, err := s.db.Exec(ctx, query, id, stock)
	if err != nil {
		return fmt.Errorf("%w: failed to set stock: %w", domain.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// SetActive toggles the batch in one transaction; an unknown id rolls
// the whole batch back.
func (s *productStore) SetActive(ctx context.Context, ids []string, active bool) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE products
		SET doc = jsonb_set(doc, '{active}', to_jsonb($2::bool))
		WHERE id = $1
	`
	for _, id := range ids {
		tag, err := tx.Exec(ctx, query, id, active)
		if err != nil {
			return fmt.Errorf("%w: failed to toggle product %s: %w", domain.ErrStoreUnavailable, id, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: failed to commit toggle: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}
