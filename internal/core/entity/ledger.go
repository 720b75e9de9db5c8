// Package entity provides core domain entities for the stock ledger.
package entity

import (
	"time"

	"kardex/internal/core/id"
)

// TransactionType defines the business kind of a stock movement.
// Direction (inbound/outbound) is derived from the type, never from the
// sign of the quantity. Quantities are always positive magnitudes.
type TransactionType string

const (
	TypeReceipt       TransactionType = "receipt"
	TypeShipment      TransactionType = "shipment"
	TypeAdjustmentIn  TransactionType = "adjustment_in"
	TypeAdjustmentOut TransactionType = "adjustment_out"
	TypeTransferIn    TransactionType = "transfer_in"
	TypeTransferOut   TransactionType = "transfer_out"
)

// Inbound reports whether the type increases quantity on hand.
func (t TransactionType) Inbound() bool {
	switch t {
	case TypeReceipt, TypeAdjustmentIn, TypeTransferIn:
		return true
	}
	return false
}

// Outbound reports whether the type decreases quantity on hand.
func (t TransactionType) Outbound() bool {
	switch t {
	case TypeShipment, TypeAdjustmentOut, TypeTransferOut:
		return true
	}
	return false
}

// Valid reports whether the type is a known transaction type.
func (t TransactionType) Valid() bool {
	return t.Inbound() || t.Outbound()
}

// LedgerEntry is one immutable record of a single stock movement.
// Entries are created once and never updated or deleted; replay order is
// (created_at, id) ascending, which UUIDv7 ids preserve.
// Quantity, unit cost and total cost are canonical standard-scale
// decimal strings (see internal/core/types).
type LedgerEntry struct {
	ID          id.ID `db:"id" json:"id"`
	TenantID    id.ID `db:"tenant_id" json:"tenantId"`
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`
	ProductID   id.ID `db:"product_id" json:"productId"`

	Type TransactionType `db:"transaction_type" json:"transactionType"`

	Quantity  string `db:"quantity" json:"quantity"`
	UnitCost  string `db:"unit_cost" json:"unitCost"`
	TotalCost string `db:"total_cost" json:"totalCost"`

	// Link to the originating business document (sales order, purchase
	// order, adjustment) owned by the calling workflow.
	ReferenceType string `db:"reference_type" json:"referenceType,omitempty"`
	ReferenceID   *id.ID `db:"reference_id" json:"referenceId,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// BalanceKey identifies the single shared mutable aggregate of the core:
// one stock balance per (tenant, warehouse, product).
type BalanceKey struct {
	TenantID    id.ID
	WarehouseID id.ID
	ProductID   id.ID
}

// StockBalance is the running aggregate for one product in one warehouse
// for one tenant. Created lazily on first movement, never deleted while
// history exists. Every mutation is a locked read-modify-write.
type StockBalance struct {
	TenantID    id.ID `db:"tenant_id" json:"tenantId"`
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`
	ProductID   id.ID `db:"product_id" json:"productId"`

	// QuantityOnHand is never negative after a successful mutation.
	QuantityOnHand string `db:"quantity_on_hand" json:"quantityOnHand"`

	// QuantityReserved is tracked for allocation workflows; the costing
	// path does not read it.
	QuantityReserved string `db:"quantity_reserved" json:"quantityReserved"`

	// AverageCost is the weighted moving average. Recomputed only on
	// inbound movements; outbound movements consume at the current
	// average without changing it.
	AverageCost string `db:"average_cost" json:"averageCost"`

	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Key returns the balance's aggregate key.
func (b StockBalance) Key() BalanceKey {
	return BalanceKey{TenantID: b.TenantID, WarehouseID: b.WarehouseID, ProductID: b.ProductID}
}

// MovementIntent is the inbound boundary value supplied by order
// fulfillment, purchasing and adjustment workflows. Tenant scoping is an
// explicit field; there is no ambient tenant state in the core.
type MovementIntent struct {
	TenantID    id.ID           `json:"tenantId" validate:"required"`
	WarehouseID id.ID           `json:"warehouseId" validate:"required"`
	ProductID   id.ID           `json:"productId" validate:"required"`
	Type        TransactionType `json:"transactionType" validate:"required"`

	// Quantity is a positive standard-scale decimal string.
	Quantity string `json:"quantity" validate:"required"`

	// UnitCost is required for inbound movements. Outbound movements
	// consume at the balance's current average cost and may omit it.
	UnitCost string `json:"unitCost"`

	ReferenceType string `json:"referenceType"`
	ReferenceID   *id.ID `json:"referenceId"`
}

// Key returns the balance key the intent targets.
func (m MovementIntent) Key() BalanceKey {
	return BalanceKey{TenantID: m.TenantID, WarehouseID: m.WarehouseID, ProductID: m.ProductID}
}
