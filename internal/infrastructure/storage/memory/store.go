// Package memory provides an in-process implementation of the ledger
// storage and transaction contracts. It backs tests and single-node
// deployments; the PostgreSQL implementation is the production path.
//
// Concurrency model: one mutex per balance key, acquired by
// GetBalanceForUpdate and held until the enclosing transaction ends.
// Writes made inside a transaction are staged and only become visible
// on commit, so a failed movement leaves no partial state.
package memory

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"kardex/internal/core/apperror"
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/tx"
	"kardex/internal/core/types"
	"kardex/internal/domain"
	"kardex/internal/domain/analytics"
	"kardex/internal/domain/ledger"
)

// Compile-time checks.
var (
	_ ledger.Repository    = (*Store)(nil)
	_ analytics.Repository = (*ReportView)(nil)
	_ tx.Manager           = (*Store)(nil)
	_ tx.ReadOnlyManager   = (*Store)(nil)
)

// Store is an in-memory ledger store.
type Store struct {
	mu       sync.RWMutex
	entries  []entity.LedgerEntry
	balances map[entity.BalanceKey]entity.StockBalance

	locksMu sync.Mutex
	locks   map[entity.BalanceKey]*sync.Mutex
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		balances: make(map[entity.BalanceKey]entity.StockBalance),
		locks:    make(map[entity.BalanceKey]*sync.Mutex),
	}
}

// memTx stages writes until the transaction commits.
type memTx struct {
	entries  []entity.LedgerEntry
	balances map[entity.BalanceKey]entity.StockBalance

	// held lists the key locks acquired by this transaction, released
	// in reverse order at transaction end.
	held []entity.BalanceKey
}

type txKey struct{}

func (s *Store) currentTx(ctx context.Context) *memTx {
	if t, ok := ctx.Value(txKey{}).(*memTx); ok {
		return t
	}
	return nil
}

// RunInTransaction executes fn with staged writes. Nested calls reuse
// the transaction from context.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.currentTx(ctx) != nil {
		return fn(ctx)
	}

	t := &memTx{balances: make(map[entity.BalanceKey]entity.StockBalance)}
	txCtx := context.WithValue(ctx, txKey{}, t)

	err := fn(txCtx)
	if err == nil {
		s.commit(t)
	}
	s.releaseLocks(t)
	return err
}

// ReadOnly executes fn in a transaction that must not write.
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.RunInTransaction(ctx, fn)
}

func (s *Store) commit(t *memTx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, t.entries...)
	for key, b := range t.balances {
		s.balances[key] = b
	}
}

func (s *Store) releaseLocks(t *memTx) {
	for i := len(t.held) - 1; i >= 0; i-- {
		s.keyLock(t.held[i]).Unlock()
	}
	t.held = nil
}

func (s *Store) keyLock(key entity.BalanceKey) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// --- ledger.Repository: entries ---

// AppendEntry stages an immutable entry, assigning id and timestamp when
// unset. Outside a transaction the entry is committed immediately.
func (s *Store) AppendEntry(ctx context.Context, e *entity.LedgerEntry) error {
	if id.IsNil(e.ID) {
		e.ID = id.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	if t := s.currentTx(ctx); t != nil {
		t.entries = append(t.entries, *e)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *e)
	return nil
}

// FindEntries returns a page of committed entries for one balance key,
// most recent first.
func (s *Store) FindEntries(ctx context.Context, tenantID, warehouseID, productID id.ID, limit, offset int) (domain.ListResult[entity.LedgerEntry], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]entity.LedgerEntry, 0)
	for _, e := range s.entries {
		if e.TenantID == tenantID && e.WarehouseID == warehouseID && e.ProductID == productID {
			matched = append(matched, e)
		}
	}
	// UUIDv7 ids sort by creation time, so byte order descending is
	// newest-first.
	sort.SliceStable(matched, func(i, j int) bool {
		return bytes.Compare(matched[i].ID[:], matched[j].ID[:]) > 0
	})

	result := domain.ListResult[entity.LedgerEntry]{
		TotalCount: int64(len(matched)),
		Limit:      limit,
		Offset:     offset,
	}
	result.Items = page(matched, limit, offset)
	return result, nil
}

// ListEntries returns committed movement history in replay order.
func (s *Store) ListEntries(ctx context.Context, tenantID id.ID, f ledger.EntryFilter) ([]entity.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]entity.LedgerEntry, 0)
	for _, e := range s.entries {
		if e.TenantID != tenantID {
			continue
		}
		if f.WarehouseID != nil && e.WarehouseID != *f.WarehouseID {
			continue
		}
		if f.ProductID != nil && e.ProductID != *f.ProductID {
			continue
		}
		if f.Type != nil && e.Type != *f.Type {
			continue
		}
		if f.FromDate != nil && e.CreatedAt.Before(*f.FromDate) {
			continue
		}
		if f.ToDate != nil && e.CreatedAt.After(*f.ToDate) {
			continue
		}
		matched = append(matched, e)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return bytes.Compare(matched[i].ID[:], matched[j].ID[:]) < 0
	})

	if f.Offset > 0 || f.Limit > 0 {
		limit := f.Limit
		if limit <= 0 {
			limit = len(matched)
		}
		matched = page(matched, limit, f.Offset)
	}
	return matched, nil
}

// --- ledger.Repository: balances ---

// GetBalance returns the committed balance (or, inside a transaction,
// the staged one).
func (s *Store) GetBalance(ctx context.Context, key entity.BalanceKey) (entity.StockBalance, bool, error) {
	if t := s.currentTx(ctx); t != nil {
		if b, ok := t.balances[key]; ok {
			return b, true, nil
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.balances[key]
	return b, ok, nil
}

// GetBalanceForUpdate acquires the key's mutex for the remainder of the
// transaction, then reads the balance. Concurrent movements on the same
// key serialize here; other keys are unaffected.
func (s *Store) GetBalanceForUpdate(ctx context.Context, key entity.BalanceKey) (entity.StockBalance, bool, error) {
	t := s.currentTx(ctx)
	if t == nil {
		return entity.StockBalance{}, false, apperror.NewInternal(errors.New("GetBalanceForUpdate requires an active transaction"))
	}

	if !t.holds(key) {
		s.keyLock(key).Lock()
		t.held = append(t.held, key)
	}
	return s.GetBalance(ctx, key)
}

func (t *memTx) holds(key entity.BalanceKey) bool {
	for _, k := range t.held {
		if k == key {
			return true
		}
	}
	return false
}

// SaveBalance stages the balance write; outside a transaction it commits
// immediately.
func (s *Store) SaveBalance(ctx context.Context, b entity.StockBalance) error {
	if t := s.currentTx(ctx); t != nil {
		t.balances[b.Key()] = b
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[b.Key()] = b
	return nil
}

// ListBalances returns committed balances for a tenant with optional
// filters, ordered by (product_id, warehouse_id).
func (s *Store) ListBalances(ctx context.Context, tenantID id.ID, f ledger.BalanceFilter) ([]entity.StockBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]entity.StockBalance, 0)
	for _, b := range s.balances {
		if b.TenantID != tenantID {
			continue
		}
		if f.WarehouseID != nil && b.WarehouseID != *f.WarehouseID {
			continue
		}
		if len(f.ProductIDs) > 0 && !containsID(f.ProductIDs, b.ProductID) {
			continue
		}
		if f.ExcludeZero {
			zero, err := types.IsZero(b.QuantityOnHand)
			if err != nil {
				return nil, err
			}
			if zero {
				continue
			}
		}
		matched = append(matched, b)
	}
	sortBalances(matched)
	return matched, nil
}

// --- analytics.Repository ---

// ReportView adapts the store to the analytics read contract, whose
// balance listing takes a plain warehouse filter instead of the ledger's
// BalanceFilter.
type ReportView struct {
	store *Store
}

// Reports returns the analytics read view over the store.
func (s *Store) Reports() *ReportView {
	return &ReportView{store: s}
}

// ListBalances returns committed balances for a tenant, optionally
// filtered by warehouse.
func (v *ReportView) ListBalances(ctx context.Context, tenantID id.ID, warehouseID *id.ID) ([]entity.StockBalance, error) {
	return v.store.ListBalances(ctx, tenantID, ledger.BalanceFilter{WarehouseID: warehouseID})
}

// OutboundTotals sums shipment and outbound-adjustment quantities per
// (product, warehouse) for entries created at or after since.
func (v *ReportView) OutboundTotals(ctx context.Context, tenantID id.ID, warehouseID *id.ID, since time.Time) ([]analytics.OutboundTotal, error) {
	return v.store.outboundTotals(tenantID, warehouseID, since)
}

// ShipmentCOGS sums shipment total cost per product for entries created
// at or after since.
func (v *ReportView) ShipmentCOGS(ctx context.Context, tenantID id.ID, warehouseID *id.ID, since time.Time) ([]analytics.ProductCOGS, error) {
	return v.store.shipmentCOGS(tenantID, warehouseID, since)
}

func (s *Store) outboundTotals(tenantID id.ID, warehouseID *id.ID, since time.Time) ([]analytics.OutboundTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type groupKey struct {
		product   id.ID
		warehouse id.ID
	}
	totals := make(map[groupKey]string)
	order := make([]groupKey, 0)

	for _, e := range s.entries {
		if e.TenantID != tenantID {
			continue
		}
		if warehouseID != nil && e.WarehouseID != *warehouseID {
			continue
		}
		if e.Type != entity.TypeShipment && e.Type != entity.TypeAdjustmentOut {
			continue
		}
		if e.CreatedAt.Before(since) {
			continue
		}
		gk := groupKey{product: e.ProductID, warehouse: e.WarehouseID}
		prev, ok := totals[gk]
		if !ok {
			prev = types.Zero(types.ScaleStandard)
			order = append(order, gk)
		}
		sum, err := types.Add(prev, e.Quantity, types.ScaleStandard)
		if err != nil {
			return nil, err
		}
		totals[gk] = sum
	}

	sort.SliceStable(order, func(i, j int) bool {
		if c := bytes.Compare(order[i].product[:], order[j].product[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(order[i].warehouse[:], order[j].warehouse[:]) < 0
	})

	out := make([]analytics.OutboundTotal, 0, len(order))
	for _, gk := range order {
		out = append(out, analytics.OutboundTotal{
			ProductID:   gk.product,
			WarehouseID: gk.warehouse,
			Quantity:    totals[gk],
		})
	}
	return out, nil
}

func (s *Store) shipmentCOGS(tenantID id.ID, warehouseID *id.ID, since time.Time) ([]analytics.ProductCOGS, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[id.ID]string)
	order := make([]id.ID, 0)

	for _, e := range s.entries {
		if e.TenantID != tenantID {
			continue
		}
		if warehouseID != nil && e.WarehouseID != *warehouseID {
			continue
		}
		if e.Type != entity.TypeShipment {
			continue
		}
		if e.CreatedAt.Before(since) {
			continue
		}
		prev, ok := totals[e.ProductID]
		if !ok {
			prev = types.Zero(types.ScaleStandard)
			order = append(order, e.ProductID)
		}
		sum, err := types.Add(prev, e.TotalCost, types.ScaleStandard)
		if err != nil {
			return nil, err
		}
		totals[e.ProductID] = sum
	}

	sort.SliceStable(order, func(i, j int) bool {
		return bytes.Compare(order[i][:], order[j][:]) < 0
	})

	out := make([]analytics.ProductCOGS, 0, len(order))
	for _, productID := range order {
		out = append(out, analytics.ProductCOGS{
			ProductID: productID,
			TotalCost: totals[productID],
		})
	}
	return out, nil
}

// --- helpers ---

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-offset)
	copy(out, items[offset:end])
	return out
}

func containsID(ids []id.ID, target id.ID) bool {
	for _, v := range ids {
		if v == target {
			return true
		}
	}
	return false
}

func sortBalances(balances []entity.StockBalance) {
	sort.SliceStable(balances, func(i, j int) bool {
		if c := bytes.Compare(balances[i].ProductID[:], balances[j].ProductID[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(balances[i].WarehouseID[:], balances[j].WarehouseID[:]) < 0
	})
}
