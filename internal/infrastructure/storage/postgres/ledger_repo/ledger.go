// Package ledger_repo implements the stock ledger repository on PostgreSQL.
package ledger_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"kardex/internal/core/apperror"
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain"
	"kardex/internal/domain/ledger"
	"kardex/internal/infrastructure/storage/postgres"
)

// Compile-time check.
var _ ledger.Repository = (*LedgerRepo)(nil)

const (
	entriesTable  = "ledger_entries"
	balancesTable = "stock_balances"
)

// Numeric columns are selected as text so values stay canonical
// fixed-scale strings end to end.
var entryColumns = []string{
	"id",
	"tenant_id",
	"warehouse_id",
	"product_id",
	"transaction_type",
	"quantity::text AS quantity",
	"unit_cost::text AS unit_cost",
	"total_cost::text AS total_cost",
	"reference_type",
	"reference_id",
	"created_at",
}

var balanceColumns = []string{
	"tenant_id",
	"warehouse_id",
	"product_id",
	"quantity_on_hand::text AS quantity_on_hand",
	"quantity_reserved::text AS quantity_reserved",
	"average_cost::text AS average_cost",
	"updated_at",
}

// LedgerRepo persists ledger entries and stock balances.
type LedgerRepo struct {
	txManager *postgres.TxManager
	builder   sq.StatementBuilderType
}

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(txManager *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txManager: txManager,
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// AppendEntry persists an immutable ledger entry. Entries are never
// updated or deleted; corrections happen through reversing movements.
func (r *LedgerRepo) AppendEntry(ctx context.Context, e *entity.LedgerEntry) error {
	if id.IsNil(e.ID) {
		e.ID = id.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query, args, err := r.builder.
		Insert(entriesTable).
		Columns(
			"id", "tenant_id", "warehouse_id", "product_id",
			"transaction_type", "quantity", "unit_cost", "total_cost",
			"reference_type", "reference_id", "created_at",
		).
		Values(
			e.ID, e.TenantID, e.WarehouseID, e.ProductID,
			e.Type, e.Quantity, e.UnitCost, e.TotalCost,
			e.ReferenceType, e.ReferenceID, e.CreatedAt,
		).
		ToSql()
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("build insert query: %w", err))
	}

	q := r.txManager.GetQuerier(ctx)
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("insert ledger entry: %w", err))
	}
	return nil
}

// FindEntries returns a page of entries for one balance key, most recent
// first. UUIDv7 ids order by creation time, so id DESC is newest-first.
func (r *LedgerRepo) FindEntries(ctx context.Context, tenantID, warehouseID, productID id.ID, limit, offset int) (domain.ListResult[entity.LedgerEntry], error) {
	var result domain.ListResult[entity.LedgerEntry]

	where := sq.Eq{
		"tenant_id":    tenantID,
		"warehouse_id": warehouseID,
		"product_id":   productID,
	}

	q := r.txManager.GetQuerier(ctx)

	countQuery, countArgs, err := r.builder.
		Select("COUNT(*)").
		From(entriesTable).
		Where(where).
		ToSql()
	if err != nil {
		return result, apperror.NewInternal(fmt.Errorf("build count query: %w", err))
	}
	if err := q.QueryRow(ctx, countQuery, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, apperror.NewDatabase(fmt.Errorf("count ledger entries: %w", err))
	}

	query, args, err := r.builder.
		Select(entryColumns...).
		From(entriesTable).
		Where(where).
		OrderBy("id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return result, apperror.NewInternal(fmt.Errorf("build select query: %w", err))
	}

	entries := make([]entity.LedgerEntry, 0, limit)
	if err := pgxscan.Select(ctx, q, &entries, query, args...); err != nil {
		return result, apperror.NewDatabase(fmt.Errorf("select ledger entries: %w", err))
	}

	result.Items = entries
	result.Limit = limit
	result.Offset = offset
	return result, nil
}

// ListEntries returns movement history in replay order.
func (r *LedgerRepo) ListEntries(ctx context.Context, tenantID id.ID, f ledger.EntryFilter) ([]entity.LedgerEntry, error) {
	qb := r.builder.
		Select(entryColumns...).
		From(entriesTable).
		Where(sq.Eq{"tenant_id": tenantID}).
		OrderBy("created_at ASC", "id ASC")

	if f.WarehouseID != nil {
		qb = qb.Where(sq.Eq{"warehouse_id": *f.WarehouseID})
	}
	if f.ProductID != nil {
		qb = qb.Where(sq.Eq{"product_id": *f.ProductID})
	}
	if f.Type != nil {
		qb = qb.Where(sq.Eq{"transaction_type": *f.Type})
	}
	if f.FromDate != nil {
		qb = qb.Where(sq.GtOrEq{"created_at": *f.FromDate})
	}
	if f.ToDate != nil {
		qb = qb.Where(sq.LtOrEq{"created_at": *f.ToDate})
	}
	if f.Limit > 0 {
		qb = qb.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		qb = qb.Offset(uint64(f.Offset))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("build select query: %w", err))
	}

	q := r.txManager.GetQuerier(ctx)
	var entries []entity.LedgerEntry
	if err := pgxscan.Select(ctx, q, &entries, query, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("select movement history: %w", err))
	}
	return entries, nil
}

// GetBalance returns the current balance for a key without locking.
func (r *LedgerRepo) GetBalance(ctx context.Context, key entity.BalanceKey) (entity.StockBalance, bool, error) {
	return r.getBalance(ctx, key, false)
}

// GetBalanceForUpdate locks the balance row for the duration of the
// enclosing transaction. Concurrent movements on the same key queue here.
func (r *LedgerRepo) GetBalanceForUpdate(ctx context.Context, key entity.BalanceKey) (entity.StockBalance, bool, error) {
	if r.txManager.GetTx(ctx) == nil {
		return entity.StockBalance{}, false, apperror.NewInternal(errors.New("GetBalanceForUpdate requires an active transaction"))
	}
	return r.getBalance(ctx, key, true)
}

func (r *LedgerRepo) getBalance(ctx context.Context, key entity.BalanceKey, forUpdate bool) (entity.StockBalance, bool, error) {
	qb := r.builder.
		Select(balanceColumns...).
		From(balancesTable).
		Where(sq.Eq{
			"tenant_id":    key.TenantID,
			"warehouse_id": key.WarehouseID,
			"product_id":   key.ProductID,
		})
	if forUpdate {
		qb = qb.Suffix("FOR UPDATE")
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return entity.StockBalance{}, false, apperror.NewInternal(fmt.Errorf("build select query: %w", err))
	}

	q := r.txManager.GetQuerier(ctx)
	var b entity.StockBalance
	if err := pgxscan.Get(ctx, q, &b, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.StockBalance{}, false, nil
		}
		return entity.StockBalance{}, false, apperror.NewDatabase(fmt.Errorf("select stock balance: %w", err))
	}
	return b, true, nil
}

// SaveBalance upserts the balance row keyed by (tenant, warehouse, product).
func (r *LedgerRepo) SaveBalance(ctx context.Context, b entity.StockBalance) error {
	query, args, err := r.builder.
		Insert(balancesTable).
		Columns(
			"tenant_id", "warehouse_id", "product_id",
			"quantity_on_hand", "quantity_reserved", "average_cost",
			"updated_at",
		).
		Values(
			b.TenantID, b.WarehouseID, b.ProductID,
			b.QuantityOnHand, b.QuantityReserved, b.AverageCost,
			b.UpdatedAt,
		).
		Suffix(`ON CONFLICT (tenant_id, warehouse_id, product_id) DO UPDATE SET
			quantity_on_hand = EXCLUDED.quantity_on_hand,
			quantity_reserved = EXCLUDED.quantity_reserved,
			average_cost = EXCLUDED.average_cost,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("build upsert query: %w", err))
	}

	q := r.txManager.GetQuerier(ctx)
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("upsert stock balance: %w", err))
	}
	return nil
}

// ListBalances returns balances for a tenant with optional filters.
func (r *LedgerRepo) ListBalances(ctx context.Context, tenantID id.ID, f ledger.BalanceFilter) ([]entity.StockBalance, error) {
	qb := r.builder.
		Select(balanceColumns...).
		From(balancesTable).
		Where(sq.Eq{"tenant_id": tenantID}).
		OrderBy("product_id ASC", "warehouse_id ASC")

	if f.WarehouseID != nil {
		qb = qb.Where(sq.Eq{"warehouse_id": *f.WarehouseID})
	}
	if len(f.ProductIDs) > 0 {
		qb = qb.Where(sq.Eq{"product_id": f.ProductIDs})
	}
	if f.ExcludeZero {
		qb = qb.Where(sq.Gt{"quantity_on_hand": types.Zero(types.ScaleStandard)})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("build select query: %w", err))
	}

	q := r.txManager.GetQuerier(ctx)
	var balances []entity.StockBalance
	if err := pgxscan.Select(ctx, q, &balances, query, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("select stock balances: %w", err))
	}
	return balances, nil
}
