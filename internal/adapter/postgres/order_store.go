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

type orderStore struct {
	db DB
}

func NewOrderStore(db DB) interfaces.OrderStore {
	return &orderStore{db: db}
}

func (s *orderStore) Create(ctx context.Context, order *domain.Order) (string, error) {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}

	doc, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("failed to marshal order: %w", err)
	}

	query := `
		INSERT INTO orders (id, doc)
		VALUES ($1, $2)
		RETURNING created_at
	`
	if err := s.db.QueryRow(ctx, query, order.ID, doc).Scan(&order.CreatedAt); err != nil {
		return "", fmt.Errorf("%w: failed to insert order: %w", domain.ErrStoreUnavailable, err)
	}

	return order.ID, nil
}

func (s *orderStore) Get(ctx context.Context, id string) (domain.Order, error) {
	query := `SELECT doc, created_at FROM orders WHERE id = $1`

	var (
		doc   []byte
		order domain.Order
	)
	err := s.db.QueryRow(ctx, query, id).Scan(&doc, &order.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("%w: failed to load order: %w", domain.ErrStoreUnavailable, err)
	}

	createdAt := order.CreatedAt
	if err := json.Unmarshal(doc, &order); err != nil {
		return domain.Order{}, fmt.Errorf("failed to unmarshal order %s: %w", id, err)
	}
	order.ID = id
	order.CreatedAt = createdAt

	return order, nil
}

func (s *orderStore) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	query := `
		UPDATE orders
		SET doc = jsonb_set(jsonb_set(doc, '{status}', to_jsonb($2::text)), '{updatedAt}', to_jsonb(now()))
		WHERE id = $1
	`
	tag, err := s.db.Exec(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("%w: failed to update order status: %w", domain.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *orderStore) SetMessage(ctx context.Context, id string, message string) error {
	query := `
		UPDATE orders
		SET doc = jsonb_set(jsonb_set(doc, '{lastMessage}', to_jsonb($2::text)), '{updatedAt}', to_jsonb(now()))
		WHERE id = $1
	`
	tag, err := s.db.Exec(ctx, query, id, message)
	if err != nil {
		return fmt.Errorf("%w: failed to set order message: %w", domain.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *orderStore) ListActive(ctx context.Context) ([]domain.Order, error) {
	statuses := make([]string, len(domain.ActiveStatuses))
	for i, st := range domain.ActiveStatuses {
		statuses[i] = string(st)
	}

	// Ordering by creation time is applied here because the panel relies
	// on it; filtering happens on the status field inside the document.
	query := `
		SELECT id, doc, created_at FROM orders
		WHERE doc ->> 'status' = ANY($1)
		ORDER BY created_at DESC
	`
	rows, err := s.db.Query(ctx, query, statuses)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list active orders: %w", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var (
			id    string
			doc   []byte
			order domain.Order
		)
		if err := rows.Scan(&id, &doc, &order.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		createdAt := order.CreatedAt
		if err := json.Unmarshal(doc, &order); err != nil {
			return nil, fmt.Errorf("failed to unmarshal order %s: %w", id, err)
		}
		order.ID = id
		order.CreatedAt = createdAt
		orders = append(orders, order)
	}

	return orders, nil
}
