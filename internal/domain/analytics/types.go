// Package analytics computes valuation and demand reports over the stock
// ledger. All reads are pure functions of persisted state: the same state
// always produces the same report, and empty balance sets produce
// well-defined zero results, never errors.
package analytics

import (
	"time"

	"kardex/internal/core/id"
)

// ABC classification tiers by cumulative share of total inventory value.
const (
	ClassA = "A"
	ClassB = "B"
	ClassC = "C"
)

// Cumulative-percentage upper bounds, inclusive.
const (
	classAThreshold = "80"
	classBThreshold = "95"
)

// ABCItem is one classified inventory position.
type ABCItem struct {
	ProductID     id.ID  `json:"productId"`
	WarehouseID   id.ID  `json:"warehouseId"`
	TotalValue    string `json:"totalValue"`
	CumulativePct string `json:"cumulativePct"`
	Class         string `json:"class"`
}

// ABCReport classifies inventory positions into value tiers A/B/C.
type ABCReport struct {
	Items      []ABCItem `json:"items"`
	GrandTotal string    `json:"grandTotal"`
}

// ValuationItem is one inventory position valued at its average cost.
type ValuationItem struct {
	ProductID      id.ID  `json:"productId"`
	WarehouseID    id.ID  `json:"warehouseId"`
	QuantityOnHand string `json:"quantityOnHand"`
	AverageCost    string `json:"averageCost"`
	TotalValue     string `json:"totalValue"`
}

// ValuationReport is the inventory valuation, sorted by value descending.
type ValuationReport struct {
	Items      []ValuationItem `json:"items"`
	GrandTotal string          `json:"grandTotal"`
}

// ForecastItem projects demand for one (product, warehouse) from outbound
// movements in the observation window.
type ForecastItem struct {
	ProductID      id.ID  `json:"productId"`
	WarehouseID    id.ID  `json:"warehouseId"`
	TotalOutflow   string `json:"totalOutflow"`
	AvgDailyDemand string `json:"avgDailyDemand"`
	Forecast30Days string `json:"forecast30Days"`
}

// ForecastReport is the demand forecast for a period.
type ForecastReport struct {
	PeriodDays int            `json:"periodDays"`
	Items      []ForecastItem `json:"items"`
}

// TurnoverItem measures how fast one product's inventory turns over.
// DaysInStock is nil when daily cost of goods sold is zero.
type TurnoverItem struct {
	ProductID      id.ID   `json:"productId"`
	COGS           string  `json:"cogs"`
	InventoryValue string  `json:"inventoryValue"`
	TurnoverRate   string  `json:"turnoverRate"`
	AnnualizedRate string  `json:"annualizedRate"`
	DaysInStock    *string `json:"daysInStock"`
}

// TurnoverReport is the turnover analysis for a period.
type TurnoverReport struct {
	PeriodDays int            `json:"periodDays"`
	Items      []TurnoverItem `json:"items"`
}

// CarryingCostItem is the imputed holding cost of one inventory position.
type CarryingCostItem struct {
	ProductID      id.ID  `json:"productId"`
	WarehouseID    id.ID  `json:"warehouseId"`
	InventoryValue string `json:"inventoryValue"`
	AnnualCost     string `json:"annualCost"`
	DailyCost      string `json:"dailyCost"`
	CarryingCost   string `json:"carryingCost"`
}

// CarryingCostReport is sorted by carrying cost descending.
type CarryingCostReport struct {
	PeriodDays   int                `json:"periodDays"`
	CarryingRate string             `json:"carryingRate"`
	Items        []CarryingCostItem `json:"items"`
	GrandTotal   string             `json:"grandTotal"`
}

// OutboundTotal is the summed outbound quantity for one (product,
// warehouse) within a time window.
type OutboundTotal struct {
	ProductID   id.ID  `db:"product_id"`
	WarehouseID id.ID  `db:"warehouse_id"`
	Quantity    string `db:"quantity"`
}

// ProductCOGS is the summed shipment total cost for one product within a
// time window.
type ProductCOGS struct {
	ProductID id.ID  `db:"product_id"`
	TotalCost string `db:"total_cost"`
}

// Query scopes an analytics read: a tenant, an optional warehouse filter
// and, for windowed reports, a period.
type Query struct {
	TenantID    id.ID
	WarehouseID *id.ID
}

// windowStart computes the inclusive start of a periodDays observation
// window ending now.
func windowStart(now time.Time, periodDays int) time.Time {
	return now.Add(-time.Duration(periodDays) * 24 * time.Hour)
}
