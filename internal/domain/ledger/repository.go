// Package ledger provides the stock ledger: an append-only movement log
// paired with a concurrently-mutated running balance per
// (tenant, warehouse, product).
package ledger

import (
	"context"
	"time"

	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/domain"
)

// Repository defines storage operations for the stock ledger.
// All methods take an explicit tenant scope; there is no ambient tenant
// filtering anywhere below this interface.
type Repository interface {
	// Entry operations

	// AppendEntry persists an immutable ledger entry. It assigns the id
	// (UUIDv7) and creation timestamp when unset and never mutates or
	// removes a prior entry.
	AppendEntry(ctx context.Context, e *entity.LedgerEntry) error

	// FindEntries returns a page of entries for one balance key ordered
	// by id descending (most recent first).
	FindEntries(ctx context.Context, tenantID, warehouseID, productID id.ID, limit, offset int) (domain.ListResult[entity.LedgerEntry], error)

	// ListEntries returns movement history for a tenant with optional
	// filters, ordered by (created_at, id) ascending for ledger replay.
	ListEntries(ctx context.Context, tenantID id.ID, f EntryFilter) ([]entity.LedgerEntry, error)

	// Balance operations

	// GetBalance returns the current balance for a key. The boolean
	// reports whether a balance row exists yet.
	GetBalance(ctx context.Context, key entity.BalanceKey) (entity.StockBalance, bool, error)

	// GetBalanceForUpdate returns the balance under an exclusive
	// row-level lock scoped to the key. Two concurrent movements against
	// the same key serialize on this lock; movements against different
	// keys proceed independently. Must be called inside a transaction.
	GetBalanceForUpdate(ctx context.Context, key entity.BalanceKey) (entity.StockBalance, bool, error)

	// SaveBalance inserts or updates the balance row for its key.
	SaveBalance(ctx context.Context, b entity.StockBalance) error

	// ListBalances returns balances for a tenant with optional filters,
	// ordered by (product_id, warehouse_id).
	ListBalances(ctx context.Context, tenantID id.ID, f BalanceFilter) ([]entity.StockBalance, error)
}

// EntryFilter narrows movement history reads.
type EntryFilter struct {
	WarehouseID *id.ID
	ProductID   *id.ID
	Type        *entity.TransactionType
	FromDate    *time.Time
	ToDate      *time.Time
	Limit       int
	Offset      int
}

// BalanceFilter narrows balance listings.
type BalanceFilter struct {
	WarehouseID *id.ID
	ProductIDs  []id.ID
	ExcludeZero bool
}
