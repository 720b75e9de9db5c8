package analytics

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kardex/internal/core/id"
)

func TestSnapshotRoundTrip(t *testing.T) {
	snap := Snapshot{
		GeneratedAt: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
		Valuation: &ValuationReport{
			Items: []ValuationItem{{
				ProductID:      id.New(),
				WarehouseID:    id.New(),
				QuantityOnHand: "10.0000",
				AverageCost:    "2.5000",
				TotalValue:     "25.0000",
			}},
			GrandTotal: "25.0000",
		},
		ABC: &ABCReport{GrandTotal: "25.0000"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, snap))

	// Compressed output is a valid gzip stream carrying the same snapshot.
	got, err := ReadSnapshot(&buf)
	require.NoError(t, err)
	assert.Equal(t, snap.GeneratedAt, got.GeneratedAt)
	require.NotNil(t, got.Valuation)
	assert.Equal(t, snap.Valuation, got.Valuation)
	assert.Equal(t, snap.ABC, got.ABC)
	assert.Nil(t, got.Forecast)
}

func TestReadSnapshotRejectsGarbage(t *testing.T) {
	_, err := ReadSnapshot(bytes.NewBufferString("not a gzip stream"))
	require.Error(t, err)
}
