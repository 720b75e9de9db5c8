package analytics

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Snapshot bundles the analytic reports generated at one point in time,
// for archival or hand-off to downstream reporting.
type Snapshot struct {
	GeneratedAt  time.Time           `json:"generatedAt"`
	Valuation    *ValuationReport    `json:"valuation,omitempty"`
	ABC          *ABCReport          `json:"abc,omitempty"`
	Forecast     *ForecastReport     `json:"forecast,omitempty"`
	Turnover     *TurnoverReport     `json:"turnover,omitempty"`
	CarryingCost *CarryingCostReport `json:"carryingCost,omitempty"`
}

// WriteSnapshot writes a gzip-compressed JSON snapshot to w.
func WriteSnapshot(w io.Writer, snap Snapshot) error {
	gz, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("gzip writer: %w", err)
	}
	if err := json.NewEncoder(gz).Encode(snap); err != nil {
		_ = gz.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("close gzip: %w", err)
	}
	return nil
}

// ReadSnapshot reads a snapshot previously written with WriteSnapshot.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	gz, err := gzip.NewReader(r)
	if err != nil {
		return snap, fmt.Errorf("gzip reader: %w", err)
	}
	defer gz.Close()
	if err := json.NewDecoder(gz).Decode(&snap); err != nil {
		return snap, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
