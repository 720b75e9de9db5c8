package main

import (
	"context"

	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/domain/analytics"
	"kardex/internal/domain/ledger"
	"kardex/pkg/logger"
)

// runDemo applies a small receipt/shipment round trip for a throwaway
// tenant and prints the resulting valuation. Useful for smoke-testing a
// fresh database.
func runDemo(ctx context.Context, ledgerSvc *ledger.Service, analyticsSvc *analytics.Service) error {
	tenantID := id.New()
	warehouseID := id.New()
	productID := id.New()

	receipt := entity.MovementIntent{
		TenantID:    tenantID,
		WarehouseID: warehouseID,
		ProductID:   productID,
		Type:        entity.TypeReceipt,
		Quantity:    "100.0000",
		UnitCost:    "12.5000",
	}
	if _, err := ledgerSvc.ApplyMovement(ctx, receipt); err != nil {
		return err
	}

	shipment := entity.MovementIntent{
		TenantID:    tenantID,
		WarehouseID: warehouseID,
		ProductID:   productID,
		Type:        entity.TypeShipment,
		Quantity:    "40.0000",
	}
	if _, err := ledgerSvc.ApplyMovement(ctx, shipment); err != nil {
		return err
	}

	bal, err := ledgerSvc.GetBalance(ctx, entity.BalanceKey{
		TenantID:    tenantID,
		WarehouseID: warehouseID,
		ProductID:   productID,
	})
	if err != nil {
		return err
	}
	logger.Info(ctx, "demo balance",
		"quantity_on_hand", bal.QuantityOnHand,
		"average_cost", bal.AverageCost,
	)

	report, err := analyticsSvc.Valuation(ctx, analytics.Query{TenantID: tenantID})
	if err != nil {
		return err
	}
	logger.Info(ctx, "demo valuation",
		"positions", len(report.Items),
		"grand_total", report.GrandTotal,
	)
	return nil
}
