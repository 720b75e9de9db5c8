package analytics

import (
	"context"
	"time"

	"kardex/internal/core/entity"
	"kardex/internal/core/id"
)

// Repository defines the read-only queries the analytics engine runs over
// ledger state. Implementations take no exclusive locks; snapshot
// isolation of the surrounding store is sufficient.
type Repository interface {
	// ListBalances returns all balances for a tenant, optionally
	// filtered by warehouse, ordered by (product_id, warehouse_id).
	ListBalances(ctx context.Context, tenantID id.ID, warehouseID *id.ID) ([]entity.StockBalance, error)

	// OutboundTotals sums quantities of outbound entries (shipments and
	// outbound adjustments) created at or after since, grouped by
	// (product, warehouse).
	OutboundTotals(ctx context.Context, tenantID id.ID, warehouseID *id.ID, since time.Time) ([]OutboundTotal, error)

	// ShipmentCOGS sums total cost of shipment entries created at or
	// after since, grouped by product.
	ShipmentCOGS(ctx context.Context, tenantID id.ID, warehouseID *id.ID, since time.Time) ([]ProductCOGS, error)
}
