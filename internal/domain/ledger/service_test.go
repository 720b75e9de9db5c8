package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kardex/internal/core/apperror"
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/domain/ledger"
	"kardex/internal/infrastructure/storage/memory"
)

type fixture struct {
	svc         *ledger.Service
	store       *memory.Store
	tenantID    id.ID
	warehouseID id.ID
	productID   id.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	return &fixture{
		svc:         ledger.NewService(store, store),
		store:       store,
		tenantID:    id.New(),
		warehouseID: id.New(),
		productID:   id.New(),
	}
}

func (f *fixture) intent(typ entity.TransactionType, qty, cost string) entity.MovementIntent {
	return entity.MovementIntent{
		TenantID:    f.tenantID,
		WarehouseID: f.warehouseID,
		ProductID:   f.productID,
		Type:        typ,
		Quantity:    qty,
		UnitCost:    cost,
	}
}

func (f *fixture) key() entity.BalanceKey {
	return entity.BalanceKey{
		TenantID:    f.tenantID,
		WarehouseID: f.warehouseID,
		ProductID:   f.productID,
	}
}

func TestApplyMovementFirstReceipt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.svc.ApplyMovement(ctx, f.intent(entity.TypeReceipt, "100.0000", "12.5000"))
	require.NoError(t, err)

	assert.False(t, id.IsNil(entry.ID))
	assert.False(t, entry.CreatedAt.IsZero())
	assert.Equal(t, "100.0000", entry.Quantity)
	assert.Equal(t, "12.5000", entry.UnitCost)
	assert.Equal(t, "1250.0000", entry.TotalCost)

	bal, err := f.svc.GetBalance(ctx, f.key())
	require.NoError(t, err)
	assert.Equal(t, "100.0000", bal.QuantityOnHand)
	assert.Equal(t, "12.5000", bal.AverageCost)
}

func TestApplyMovementWeightedAverage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ApplyMovement(ctx, f.intent(entity.TypeReceipt, "100.0000", "10.0000"))
	require.NoError(t, err)
	_, err = f.svc.ApplyMovement(ctx, f.intent(entity.TypeReceipt, "50.0000", "13.0000"))
	require.NoError(t, err)

	bal, err := f.svc.GetBalance(ctx, f.key())
	require.NoError(t, err)
	assert.Equal(t, "150.0000", bal.QuantityOnHand)
	// (100*10 + 50*13) / 150 = 11
	assert.Equal(t, "11.0000", bal.AverageCost)
}

func TestApplyMovementInsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ApplyMovement(ctx, f.intent(entity.TypeReceipt, "10.0000", "5.0000"))
	require.NoError(t, err)

	_, err = f.svc.ApplyMovement(ctx, f.intent(entity.TypeShipment, "15.0000", ""))
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	// Balance untouched, no entry appended for the rejected movement.
	bal, err := f.svc.GetBalance(ctx, f.key())
	require.NoError(t, err)
	assert.Equal(t, "10.0000", bal.QuantityOnHand)
	assert.Equal(t, "5.0000", bal.AverageCost)

	page, err := f.svc.FindEntries(ctx, f.tenantID, f.warehouseID, f.productID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.TotalCount)
}

func TestApplyMovementOutboundKeepsAverage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ApplyMovement(ctx, f.intent(entity.TypeReceipt, "100.0000", "10.0000"))
	require.NoError(t, err)

	entry, err := f.svc.ApplyMovement(ctx, f.intent(entity.TypeShipment, "40.0000", ""))
	require.NoError(t, err)
	// Outbound consumes at the current average.
	assert.Equal(t, "10.0000", entry.UnitCost)
	assert.Equal(t, "400.0000", entry.TotalCost)

	bal, err := f.svc.GetBalance(ctx, f.key())
	require.NoError(t, err)
	assert.Equal(t, "60.0000", bal.QuantityOnHand)
	assert.Equal(t, "10.0000", bal.AverageCost)
}

func TestApplyMovementDrainToZeroRetainsAverage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ApplyMovement(ctx, f.intent(entity.TypeReceipt, "10.0000", "7.5000"))
	require.NoError(t, err)
	_, err = f.svc.ApplyMovement(ctx, f.intent(entity.TypeShipment, "10.0000", ""))
	require.NoError(t, err)

	bal, err := f.svc.GetBalance(ctx, f.key())
	require.NoError(t, err)
	assert.Equal(t, "0.0000", bal.QuantityOnHand)
	assert.Equal(t, "7.5000", bal.AverageCost)

	// Next inbound recomputes the average from scratch.
	_, err = f.svc.ApplyMovement(ctx, f.intent(entity.TypeReceipt, "5.0000", "10.0000"))
	require.NoError(t, err)

	bal, err = f.svc.GetBalance(ctx, f.key())
	require.NoError(t, err)
	assert.Equal(t, "5.0000", bal.QuantityOnHand)
	assert.Equal(t, "10.0000", bal.AverageCost)
}

func TestApplyMovementValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*entity.MovementIntent)
	}{
		{"missing tenant", func(mv *entity.MovementIntent) { mv.TenantID = id.Nil() }},
		{"missing unit cost on inbound", func(mv *entity.MovementIntent) { mv.UnitCost = "" }},
		{"negative unit cost", func(mv *entity.MovementIntent) { mv.UnitCost = "-1" }},
		{"zero quantity", func(mv *entity.MovementIntent) { mv.Quantity = "0" }},
		{"negative quantity", func(mv *entity.MovementIntent) { mv.Quantity = "-5" }},
		{"non-numeric quantity", func(mv *entity.MovementIntent) { mv.Quantity = "many" }},
		{"unknown type", func(mv *entity.MovementIntent) { mv.Type = "teleport" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mv := f.intent(entity.TypeReceipt, "1.0000", "2.0000")
			tt.mutate(&mv)
			_, err := f.svc.ApplyMovement(ctx, mv)
			require.Error(t, err)
			assert.True(t, apperror.IsValidation(err), "got %v", err)
		})
	}

	// Nothing persisted by any rejected intent.
	page, err := f.svc.FindEntries(ctx, f.tenantID, f.warehouseID, f.productID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), page.TotalCount)
}

func TestApplyMovementConcurrentSameKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 10
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.ApplyMovement(ctx, f.intent(entity.TypeReceipt, "1.0000", "2.0000"))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	bal, err := f.svc.GetBalance(ctx, f.key())
	require.NoError(t, err)
	assert.Equal(t, "10.0000", bal.QuantityOnHand)
	assert.Equal(t, "2.0000", bal.AverageCost)

	page, err := f.svc.FindEntries(ctx, f.tenantID, f.warehouseID, f.productID, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(workers), page.TotalCount)
}

func TestApplyMovementConcurrentDistinctKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	products := []id.ID{id.New(), id.New(), id.New(), id.New()}
	var wg sync.WaitGroup
	errs := make([]error, len(products))
	for i, productID := range products {
		wg.Add(1)
		go func(i int, productID id.ID) {
			defer wg.Done()
			mv := f.intent(entity.TypeReceipt, "3.0000", "1.0000")
			mv.ProductID = productID
			_, errs[i] = f.svc.ApplyMovement(ctx, mv)
		}(i, productID)
	}
	wg.Wait()

	for i, productID := range products {
		require.NoError(t, errs[i])
		bal, err := f.svc.GetBalance(ctx, entity.BalanceKey{
			TenantID:    f.tenantID,
			WarehouseID: f.warehouseID,
			ProductID:   productID,
		})
		require.NoError(t, err)
		assert.Equal(t, "3.0000", bal.QuantityOnHand)
	}
}

func TestGetBalanceAbsent(t *testing.T) {
	f := newFixture(t)

	bal, err := f.svc.GetBalance(context.Background(), f.key())
	require.NoError(t, err)
	assert.Equal(t, f.key(), bal.Key())
	assert.Equal(t, "0.0000", bal.QuantityOnHand)
	assert.Equal(t, "0.0000", bal.AverageCost)
}

func TestFindEntriesPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	costs := []string{"1.0000", "2.0000", "3.0000"}
	for _, cost := range costs {
		_, err := f.svc.ApplyMovement(ctx, f.intent(entity.TypeReceipt, "1.0000", cost))
		require.NoError(t, err)
	}

	page, err := f.svc.FindEntries(ctx, f.tenantID, f.warehouseID, f.productID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalCount)
	require.Len(t, page.Items, 2)
	// Most recent first.
	assert.Equal(t, "3.0000", page.Items[0].UnitCost)
	assert.Equal(t, "2.0000", page.Items[1].UnitCost)

	page, err = f.svc.FindEntries(ctx, f.tenantID, f.warehouseID, f.productID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "1.0000", page.Items[0].UnitCost)
}

func TestMovementHistoryReplayOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ApplyMovement(ctx, f.intent(entity.TypeReceipt, "5.0000", "1.0000"))
	require.NoError(t, err)
	_, err = f.svc.ApplyMovement(ctx, f.intent(entity.TypeShipment, "2.0000", ""))
	require.NoError(t, err)

	history, err := f.svc.MovementHistory(ctx, f.tenantID, ledger.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, entity.TypeReceipt, history[0].Type)
	assert.Equal(t, entity.TypeShipment, history[1].Type)

	// Filter by type.
	shipType := entity.TypeShipment
	history, err = f.svc.MovementHistory(ctx, f.tenantID, ledger.EntryFilter{Type: &shipType})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entity.TypeShipment, history[0].Type)
}

func TestListBalancesExcludeZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ApplyMovement(ctx, f.intent(entity.TypeReceipt, "4.0000", "1.0000"))
	require.NoError(t, err)

	drained := f.intent(entity.TypeReceipt, "2.0000", "1.0000")
	drained.ProductID = id.New()
	_, err = f.svc.ApplyMovement(ctx, drained)
	require.NoError(t, err)
	out := drained
	out.Type = entity.TypeShipment
	out.UnitCost = ""
	_, err = f.svc.ApplyMovement(ctx, out)
	require.NoError(t, err)

	all, err := f.svc.ListBalances(ctx, f.tenantID, ledger.BalanceFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	nonZero, err := f.svc.ListBalances(ctx, f.tenantID, ledger.BalanceFilter{ExcludeZero: true})
	require.NoError(t, err)
	require.Len(t, nonZero, 1)
	assert.Equal(t, f.productID, nonZero[0].ProductID)
}

func TestTenantIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ApplyMovement(ctx, f.intent(entity.TypeReceipt, "9.0000", "1.0000"))
	require.NoError(t, err)

	otherTenant := id.New()
	history, err := f.svc.MovementHistory(ctx, otherTenant, ledger.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, history)

	balances, err := f.svc.ListBalances(ctx, otherTenant, ledger.BalanceFilter{})
	require.NoError(t, err)
	assert.Empty(t, balances)
}
