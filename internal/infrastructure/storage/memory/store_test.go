package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/domain/ledger"
)

func testKey() entity.BalanceKey {
	return entity.BalanceKey{TenantID: id.New(), WarehouseID: id.New(), ProductID: id.New()}
}

func testBalance(key entity.BalanceKey, qty string) entity.StockBalance {
	return entity.StockBalance{
		TenantID:         key.TenantID,
		WarehouseID:      key.WarehouseID,
		ProductID:        key.ProductID,
		QuantityOnHand:   qty,
		QuantityReserved: "0.0000",
		AverageCost:      "1.0000",
		UpdatedAt:        time.Now().UTC(),
	}
}

func TestTransactionRollbackDiscardsStagedWrites(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	key := testKey()

	boom := errors.New("boom")
	err := store.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, _, err := store.GetBalanceForUpdate(ctx, key); err != nil {
			return err
		}
		entry := &entity.LedgerEntry{
			TenantID:    key.TenantID,
			WarehouseID: key.WarehouseID,
			ProductID:   key.ProductID,
			Type:        entity.TypeReceipt,
			Quantity:    "1.0000",
			UnitCost:    "1.0000",
			TotalCost:   "1.0000",
		}
		if err := store.AppendEntry(ctx, entry); err != nil {
			return err
		}
		if err := store.SaveBalance(ctx, testBalance(key, "1.0000")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, found, err := store.GetBalance(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	entries, err := store.ListEntries(ctx, key.TenantID, ledger.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTransactionCommitPublishesWrites(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	key := testKey()

	err := store.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, _, err := store.GetBalanceForUpdate(ctx, key); err != nil {
			return err
		}
		return store.SaveBalance(ctx, testBalance(key, "4.0000"))
	})
	require.NoError(t, err)

	bal, found, err := store.GetBalance(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "4.0000", bal.QuantityOnHand)
}

func TestNestedTransactionReusesOuter(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	key := testKey()

	err := store.RunInTransaction(ctx, func(outer context.Context) error {
		if _, _, err := store.GetBalanceForUpdate(outer, key); err != nil {
			return err
		}
		return store.RunInTransaction(outer, func(inner context.Context) error {
			// Same key lock is already held by the outer transaction;
			// this must not deadlock.
			_, _, err := store.GetBalanceForUpdate(inner, key)
			if err != nil {
				return err
			}
			return store.SaveBalance(inner, testBalance(key, "2.0000"))
		})
	})
	require.NoError(t, err)

	bal, found, err := store.GetBalance(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2.0000", bal.QuantityOnHand)
}

func TestGetBalanceForUpdateOutsideTransaction(t *testing.T) {
	store := NewStore()

	_, _, err := store.GetBalanceForUpdate(context.Background(), testKey())
	require.Error(t, err)
}

func TestGetBalanceSeesStagedWriteInTransaction(t *testing.T) {
	store := NewStore()
	key := testKey()

	err := store.RunInTransaction(context.Background(), func(ctx context.Context) error {
		if _, _, err := store.GetBalanceForUpdate(ctx, key); err != nil {
			return err
		}
		if err := store.SaveBalance(ctx, testBalance(key, "7.0000")); err != nil {
			return err
		}
		bal, found, err := store.GetBalance(ctx, key)
		if err != nil {
			return err
		}
		require.True(t, found)
		assert.Equal(t, "7.0000", bal.QuantityOnHand)
		return nil
	})
	require.NoError(t, err)
}
