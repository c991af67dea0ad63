package shift

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/lacasadepastel/pdv/internal/adapter/logger"
	"github.com/lacasadepastel/pdv/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSettingsStore struct {
	shift   *domain.ShiftSession
	saveErr error
	saved   int
}

func (s *fakeSettingsStore) LoadStore(ctx context.Context) (domain.StoreSettings, error) {
	return domain.StoreSettings{}, domain.ErrNotFound
}

func (s *fakeSettingsStore) SaveStore(ctx context.Context, settings domain.StoreSettings) error {
	return nil
}

func (s *fakeSettingsStore) LoadShift(ctx context.Context) (domain.ShiftSession, error) {
	if s.shift == nil {
		return domain.ShiftSession{}, domain.ErrNotFound
	}
	return *s.shift, nil
}

func (s *fakeSettingsStore) SaveShift(ctx context.Context, session domain.ShiftSession) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.shift = &session
	s.saved++
	return nil
}

func testLogger() logger.Logger {
	return logger.NewWithOutput("test", io.Discard)
}

func saleItems() []domain.CartLine {
	return []domain.CartLine{
		{ProductID: "p1", Name: "Pastel", UnitPrice: decimal.RequireFromString("8.50"), Quantity: 2},
	}
}

func at(hour int) time.Time {
	return time.Date(2026, 8, 26, hour, 0, 0, 0, time.UTC)
}

func TestRecordSaleAssignsSequentialQueueNumbers(t *testing.T) {
	svc := NewService(&fakeSettingsStore{}, nil, testLogger())
	ctx := context.Background()

	first := svc.RecordSale(ctx, saleItems(), decimal.RequireFromString("17.00"), domain.PaymentCash, decimal.RequireFromString("3.00"), nil, at(12))
	second := svc.RecordSale(ctx, saleItems(), decimal.RequireFromString("17.00"), domain.PaymentPix, decimal.Zero, nil, at(13))

	assert.Equal(t, 1, first.QueueNumber)
	assert.Equal(t, 2, second.QueueNumber)

	session := svc.Current()
	assert.Equal(t, 2, session.SaleCount)
	assert.True(t, session.TotalRevenue.Equal(decimal.RequireFromString("34.00")))
	require.Len(t, session.History, 2)
	assert.Equal(t, 2, session.History[0].QueueNumber, "history is most-recent-first")
}

func TestVoidSaleBacksOutTotals(t *testing.T) {
	svc := NewService(&fakeSettingsStore{}, nil, testLogger())
	ctx := context.Background()

	svc.RecordSale(ctx, saleItems(), decimal.RequireFromString("17.00"), domain.PaymentCash, decimal.Zero, nil, at(12))
	svc.RecordSale(ctx, saleItems(), decimal.RequireFromString("10.00"), domain.PaymentCash, decimal.Zero, nil, at(13))

	record, err := svc.VoidSale(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, record.QueueNumber)

	session := svc.Current()
	assert.Equal(t, 1, session.SaleCount)
	assert.True(t, session.TotalRevenue.Equal(decimal.RequireFromString("10.00")))
	assert.Equal(t, 3, session.NextQueueNumber, "voided queue numbers are not reused")
}

func TestSaleLookupByQueueNumber(t *testing.T) {
	svc := NewService(&fakeSettingsStore{}, nil, testLogger())
	ctx := context.Background()

	svc.RecordSale(ctx, saleItems(), decimal.RequireFromString("17.00"), domain.PaymentCash, decimal.Zero, nil, at(12))

	record, err := svc.Sale(1)
	require.NoError(t, err)
	assert.Equal(t, 1, record.QueueNumber)

	_, err = svc.Sale(99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVoidSaleUnknownNumber(t *testing.T) {
	svc := NewService(&fakeSettingsStore{}, nil, testLogger())

	_, err := svc.VoidSale(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCloseCapturesSummaryThenResets(t *testing.T) {
	svc := NewService(&fakeSettingsStore{}, nil, testLogger())
	ctx := context.Background()

	svc.RecordSale(ctx, saleItems(), decimal.RequireFromString("17.00"), domain.PaymentCash, decimal.Zero, nil, at(12))
	svc.RecordSale(ctx, saleItems(), decimal.RequireFromString("12.00"), domain.PaymentPix, decimal.Zero, nil, at(13))

	summary := svc.Close(ctx, at(22))

	assert.Equal(t, 2, summary.SaleCount)
	assert.True(t, summary.TotalRevenue.Equal(decimal.RequireFromString("29.00")))
	assert.Equal(t, at(22), summary.ClosedAt)
	assert.Equal(t, 1, summary.ByMethod[domain.PaymentCash].Count)
	assert.Equal(t, 1, summary.ByMethod[domain.PaymentPix].Count)

	session := svc.Current()
	assert.Equal(t, 0, session.SaleCount)
	assert.Equal(t, 1, session.NextQueueNumber, "queue numbers restart after close")
	assert.Empty(t, session.History)
}

func TestRecoverFromStore(t *testing.T) {
	persisted := domain.NewShiftSession()
	persisted.SaleCount = 3
	persisted.NextQueueNumber = 4
	store := &fakeSettingsStore{shift: &persisted}

	svc := NewService(store, nil, testLogger())
	svc.Recover(context.Background())

	session := svc.Current()
	assert.Equal(t, 3, session.SaleCount)
	assert.Equal(t, 4, session.NextQueueNumber)
}

func TestRecordSaleSurvivesStoreFailure(t *testing.T) {
	store := &fakeSettingsStore{saveErr: domain.ErrStoreUnavailable}
	svc := NewService(store, nil, testLogger())

	record := svc.RecordSale(context.Background(), saleItems(), decimal.RequireFromString("17.00"), domain.PaymentCash, decimal.Zero, nil, at(12))

	assert.Equal(t, 1, record.QueueNumber)
	assert.Equal(t, 1, svc.Current().SaleCount, "the sale stays applied locally")
}
