package shift

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lacasadepastel/pdv/internal/adapter/logger"
	"github.com/lacasadepastel/pdv/internal/domain"
	"github.com/lacasadepastel/pdv/internal/interfaces"
	"github.com/shopspring/decimal"
)

// Service owns the register session: queue numbers, the sale history and
// the running totals. State survives restarts through the cache and the
// settings store; remote persistence is best-effort.
type Service struct {
	settings interfaces.SettingsStore
	cache    interfaces.Cache
	logger   logger.Logger

	mu      sync.Mutex
	session domain.ShiftSession
}

func NewService(settings interfaces.SettingsStore, cache interfaces.Cache, logger logger.Logger) *Service {
	return &Service{
		settings: settings,
		cache:    cache,
		logger:   logger,
		session:  domain.NewShiftSession(),
	}
}

// Recover restores the open session after a restart: cache first, then
// the settings store. Neither having a session means a fresh register.
func (s *Service) Recover(ctx context.Context) {
	if session, err := s.loadCached(ctx); err == nil {
		s.setSession(session)
		return
	}

	session, err := s.settings.LoadShift(ctx)
	if err != nil {
		s.logger.Debug("shift_fresh", "No persisted shift found, starting fresh", "", nil)
		return
	}
	s.setSession(session)
}

// Current returns a snapshot of the open session.
func (s *Service) Current() domain.ShiftSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.session
	session.History = append([]domain.SaleRecord(nil), s.session.History...)
	return session
}

// RecordSale assigns the next queue number and prepends the sale to the
// history, then persists the session.
func (s *Service) RecordSale(ctx context.Context, items []domain.CartLine, total decimal.Decimal, payment domain.PaymentMethod, changeGiven decimal.Decimal, pixPayload *string, now time.Time) domain.SaleRecord {
	s.mu.Lock()

	record := domain.SaleRecord{
		QueueNumber:   s.session.NextQueueNumber,
		Items:         items,
		Total:         total,
		PaymentMethod: payment,
		ChangeGiven:   changeGiven,
		PixPayload:    pixPayload,
		RecordedAt:    now,
	}

	s.session.NextQueueNumber++
	s.session.SaleCount++
	s.session.TotalRevenue = s.session.TotalRevenue.Add(total)
	s.session.History = append([]domain.SaleRecord{record}, s.session.History...)
	s.mu.Unlock()

	s.persist(ctx)
	return record
}

// Sale looks a recorded sale up by queue number, for ticket re-prints.
func (s *Service) Sale(queueNumber int) (domain.SaleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sale := range s.session.History {
		if sale.QueueNumber == queueNumber {
			return sale, nil
		}
	}
	return domain.SaleRecord{}, fmt.Errorf("sale %d: %w", queueNumber, domain.ErrNotFound)
}

// VoidSale removes a sale from the history and backs its amounts out of
// the running totals. Queue numbers already issued are not reused. The
// removed record is returned so the caller can restore its stock.
func (s *Service) VoidSale(ctx context.Context, queueNumber int) (domain.SaleRecord, error) {
	s.mu.Lock()

	idx := -1
	for i, sale := range s.session.History {
		if sale.QueueNumber == queueNumber {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return domain.SaleRecord{}, fmt.Errorf("sale %d: %w", queueNumber, domain.ErrNotFound)
	}

	record := s.session.History[idx]
	s.session.History = append(s.session.History[:idx], s.session.History[idx+1:]...)
	s.session.SaleCount--
	s.session.TotalRevenue = s.session.TotalRevenue.Sub(record.Total)
	s.mu.Unlock()

	s.persist(ctx)
	return record, nil
}

// Close captures the closure report and resets the session, queue
// numbers restarting from 1. The summary is taken before the reset.
func (s *Service) Close(ctx context.Context, now time.Time) domain.ShiftSummary {
	s.mu.Lock()
	summary := s.session.Summarize(now)
	s.session = domain.NewShiftSession()
	s.mu.Unlock()

	s.persist(ctx)
	return summary
}

// persist writes the session to the cache and the settings store. A
// store failure keeps the session applied locally.
func (s *Service) persist(ctx context.Context) {
	session := s.Current()

	if s.cache != nil {
		if raw, err := json.Marshal(session); err == nil {
			if err := s.cache.Set(ctx, interfaces.CacheKeyShift, string(raw)); err != nil {
				s.logger.Error("shift_cache_failed", "Failed to cache shift session", "", nil, err)
			}
		}
	}

	if err := s.settings.SaveShift(ctx, session); err != nil {
		s.logger.Error("shift_persist_failed", "Shift session kept locally only", "", nil, err)
	}
}

func (s *Service) setSession(session domain.ShiftSession) {
	if session.NextQueueNumber < 1 {
		session.NextQueueNumber = 1
	}
	s.mu.Lock()
	s.session = session
	s.mu.Unlock()
}

func (s *Service) loadCached(ctx context.Context) (domain.ShiftSession, error) {
	if s.cache == nil {
		return domain.ShiftSession{}, domain.ErrNotFound
	}
	raw, err := s.cache.Get(ctx, interfaces.CacheKeyShift)
	if err != nil {
		return domain.ShiftSession{}, err
	}
	var session domain.ShiftSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return domain.ShiftSession{}, fmt.Errorf("failed to unmarshal cached shift: %w", err)
	}
	return session, nil
}
