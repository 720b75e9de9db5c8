// Package report_repo implements the analytics read queries on PostgreSQL.
package report_repo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kardex/internal/core/apperror"
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/domain/analytics"
	"kardex/internal/infrastructure/storage/postgres"
)

// Compile-time check.
var _ analytics.Repository = (*ReportRepo)(nil)

// ReportRepo runs aggregate read queries over the ledger tables.
// It never locks rows; report reads must not block movements.
type ReportRepo struct {
	txManager *postgres.TxManager
	builder   sq.StatementBuilderType
}

// NewReportRepo creates a new analytics report repository.
func NewReportRepo(txManager *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txManager: txManager,
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// ListBalances returns all balances for a tenant, optionally filtered by
// warehouse.
func (r *ReportRepo) ListBalances(ctx context.Context, tenantID id.ID, warehouseID *id.ID) ([]entity.StockBalance, error) {
	qb := r.builder.
		Select(
			"tenant_id",
			"warehouse_id",
			"product_id",
			"quantity_on_hand::text AS quantity_on_hand",
			"quantity_reserved::text AS quantity_reserved",
			"average_cost::text AS average_cost",
			"updated_at",
		).
		From("stock_balances").
		Where(sq.Eq{"tenant_id": tenantID}).
		OrderBy("product_id ASC", "warehouse_id ASC")

	if warehouseID != nil {
		qb = qb.Where(sq.Eq{"warehouse_id": *warehouseID})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("build select query: %w", err))
	}

	q := r.txManager.GetQuerier(ctx)
	var balances []entity.StockBalance
	if err := pgxscan.Select(ctx, q, &balances, query, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("select balances for report: %w", err))
	}
	return balances, nil
}

// OutboundTotals sums outbound quantities per (product, warehouse) for
// entries created at or after since.
func (r *ReportRepo) OutboundTotals(ctx context.Context, tenantID id.ID, warehouseID *id.ID, since time.Time) ([]analytics.OutboundTotal, error) {
	qb := r.builder.
		Select(
			"product_id",
			"warehouse_id",
			"SUM(quantity)::text AS quantity",
		).
		From("ledger_entries").
		Where(sq.Eq{"tenant_id": tenantID}).
		Where(sq.Eq{"transaction_type": []entity.TransactionType{
			entity.TypeShipment,
			entity.TypeAdjustmentOut,
		}}).
		Where(sq.GtOrEq{"created_at": since}).
		GroupBy("product_id", "warehouse_id").
		OrderBy("product_id ASC", "warehouse_id ASC")

	if warehouseID != nil {
		qb = qb.Where(sq.Eq{"warehouse_id": *warehouseID})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("build outbound totals query: %w", err))
	}

	q := r.txManager.GetQuerier(ctx)
	var totals []analytics.OutboundTotal
	if err := pgxscan.Select(ctx, q, &totals, query, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("select outbound totals: %w", err))
	}
	return totals, nil
}

// ShipmentCOGS sums shipment total cost per product for entries created at
// or after since. Only shipments count as cost of goods sold; adjustments
// and transfers are not sales.
func (r *ReportRepo) ShipmentCOGS(ctx context.Context, tenantID id.ID, warehouseID *id.ID, since time.Time) ([]analytics.ProductCOGS, error) {
	qb := r.builder.
		Select(
			"product_id",
			"SUM(total_cost)::text AS total_cost",
		).
		From("ledger_entries").
		Where(sq.Eq{
			"tenant_id":        tenantID,
			"transaction_type": entity.TypeShipment,
		}).
		Where(sq.GtOrEq{"created_at": since}).
		GroupBy("product_id").
		OrderBy("product_id ASC")

	if warehouseID != nil {
		qb = qb.Where(sq.Eq{"warehouse_id": *warehouseID})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("build cogs query: %w", err))
	}

	q := r.txManager.GetQuerier(ctx)
	var cogs []analytics.ProductCOGS
	if err := pgxscan.Select(ctx, q, &cogs, query, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("select shipment cogs: %w", err))
	}
	return cogs, nil
}
