package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeGroupsByMethod(t *testing.T) {
	session := NewShiftSession()
	session.SaleCount = 3
	session.TotalRevenue = decimal.RequireFromString("47.00")
	session.History = []SaleRecord{
		{QueueNumber: 3, Total: decimal.RequireFromString("12.00"), PaymentMethod: PaymentPix},
		{QueueNumber: 2, Total: decimal.RequireFromString("20.00"), PaymentMethod: PaymentCash},
		{QueueNumber: 1, Total: decimal.RequireFromString("15.00"), PaymentMethod: PaymentCash},
	}

	now := time.Date(2026, 8, 26, 22, 0, 0, 0, time.UTC)
	summary := session.Summarize(now)

	assert.Equal(t, 3, summary.SaleCount)
	assert.True(t, summary.TotalRevenue.Equal(decimal.RequireFromString("47.00")))
	assert.Equal(t, now, summary.ClosedAt)

	require.Len(t, summary.ByMethod, 2)
	cash := summary.ByMethod[PaymentCash]
	assert.Equal(t, 2, cash.Count)
	assert.True(t, cash.Subtotal.Equal(decimal.RequireFromString("35.00")))

	pix := summary.ByMethod[PaymentPix]
	assert.Equal(t, 1, pix.Count)
	assert.True(t, pix.Subtotal.Equal(decimal.RequireFromString("12.00")))
}

func TestNewShiftSessionStartsAtQueueOne(t *testing.T) {
	session := NewShiftSession()
	assert.Equal(t, 1, session.NextQueueNumber)
	assert.Equal(t, 0, session.SaleCount)
	assert.True(t, session.TotalRevenue.IsZero())
}
