package allocation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
)

func item(qty string, receivedAt time.Time, expiresAt *time.Time) StockItem {
	return StockItem{
		ID:                id.New(),
		ProductID:         id.New(),
		WarehouseID:       id.New(),
		QuantityAvailable: qty,
		ReceivedAt:        receivedAt,
		ExpiresAt:         expiresAt,
	}
}

func collect(t *testing.T, items []StockItem, strategy Strategy) []StockItem {
	t.Helper()
	seq, err := Order(items, strategy)
	require.NoError(t, err)
	var out []StockItem
	for it := range seq {
		out = append(out, it)
	}
	return out
}

func TestOrderFIFO(t *testing.T) {
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	oldest := item("5.0000", base, nil)
	middle := item("5.0000", base.Add(24*time.Hour), nil)
	newest := item("5.0000", base.Add(48*time.Hour), nil)

	got := collect(t, []StockItem{middle, newest, oldest}, FIFO)
	require.Len(t, got, 3)
	assert.Equal(t, oldest.ID, got[0].ID)
	assert.Equal(t, middle.ID, got[1].ID)
	assert.Equal(t, newest.ID, got[2].ID)
}

func TestOrderLIFO(t *testing.T) {
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	oldest := item("5.0000", base, nil)
	newest := item("5.0000", base.Add(48*time.Hour), nil)

	got := collect(t, []StockItem{oldest, newest}, LIFO)
	require.Len(t, got, 2)
	assert.Equal(t, newest.ID, got[0].ID)
	assert.Equal(t, oldest.ID, got[1].ID)
}

func TestOrderFEFO(t *testing.T) {
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	soon := base.Add(24 * time.Hour)
	later := base.Add(240 * time.Hour)

	expiringSoon := item("5.0000", base, &soon)
	expiringLater := item("5.0000", base, &later)
	neverExpires := item("5.0000", base, nil)

	got := collect(t, []StockItem{neverExpires, expiringLater, expiringSoon}, FEFO)
	// Items without an expiry date are excluded from FEFO ordering.
	require.Len(t, got, 2)
	assert.Equal(t, expiringSoon.ID, got[0].ID)
	assert.Equal(t, expiringLater.ID, got[1].ID)
}

func TestOrderFiltersUnavailable(t *testing.T) {
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	empty := item("0.0000", base, nil)
	available := item("1.0000", base.Add(time.Hour), nil)

	got := collect(t, []StockItem{empty, available}, FIFO)
	require.Len(t, got, 1)
	assert.Equal(t, available.ID, got[0].ID)
}

func TestOrderUnknownStrategy(t *testing.T) {
	_, err := Order(nil, Strategy("lufo"))
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestOrderSequenceIsRestartable(t *testing.T) {
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	items := []StockItem{
		item("1.0000", base, nil),
		item("2.0000", base.Add(time.Hour), nil),
	}

	seq, err := Order(items, FIFO)
	require.NoError(t, err)

	var first, second []id.ID
	for it := range seq {
		first = append(first, it.ID)
	}
	for it := range seq {
		second = append(second, it.ID)
	}
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
}

func TestOrderStopsOnYieldFalse(t *testing.T) {
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	items := []StockItem{
		item("1.0000", base, nil),
		item("2.0000", base.Add(time.Hour), nil),
		item("3.0000", base.Add(2*time.Hour), nil),
	}

	seq, err := Order(items, FIFO)
	require.NoError(t, err)

	count := 0
	for range seq {
		count++
		if count == 1 {
			break
		}
	}
	assert.Equal(t, 1, count)
}
