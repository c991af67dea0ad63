package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lacasadepastel/pdv/internal/domain"
	"github.com/lacasadepastel/pdv/internal/interfaces"
)

const (
	settingsKeyStore = "store"
	settingsKeyShift = "shift"
)

type settingsStore struct {
	db DB
}

func NewSettingsStore(db DB) interfaces.SettingsStore {
	return &settingsStore{db: db}
}

func (s *settingsStore) LoadStore(ctx context.Context) (domain.StoreSettings, error) {
	var settings domain.StoreSettings
	if err := s.load(ctx, settingsKeyStore, &settings); err != nil {
		return domain.StoreSettings{}, err
	}
	return settings, nil
}

func (s *settingsStore) SaveStore(ctx context.Context, settings domain.StoreSettings) error {
	return s.save(ctx, settingsKeyStore, settings)
}

func (s *settingsStore) LoadShift(ctx context.Context) (domain.ShiftSession, error) {
	var session domain.ShiftSession
	if err := s.load(ctx, settingsKeyShift, &session); err != nil {
		return domain.ShiftSession{}, err
	}
	return session, nil
}

func (s *settingsStore) SaveShift(ctx context.Context, session domain.ShiftSession) error {
	return s.save(ctx, settingsKeyShift, session)
}

func (s *settingsStore) load(ctx context.Context, key string, out any) error {
	var doc []byte
	err := s.db.QueryRow(ctx, `SELECT doc FROM settings WHERE key = $1`, key).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("settings %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%w: failed to load settings %s: %w", domain.ErrStoreUnavailable, key, err)
	}
	if err := json.Unmarshal(doc, out); err != nil {
		return fmt.Errorf("failed to unmarshal settings %s: %w", key, err)
	}
	return nil
}

func (s *settingsStore) save(ctx context.Context, key string, value any) error {
	doc, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal settings %s: %w", key, err)
	}

	query := `
		INSERT INTO settings (key, doc)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
	`
	if _, err := s.db.Exec(ctx, query, key, doc); err != nil {
		return fmt.Errorf("%w: failed to save settings %s: %w", domain.ErrStoreUnavailable, key, err)
	}
	return nil
}
