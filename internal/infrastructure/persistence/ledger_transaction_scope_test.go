package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms/backend/internal/application/ledger"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

func TestGormTransactionScope(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		scope := NewGormTransactionScope(db)
		warehouseID := uuid.New()
		materialID := uuid.New()

		err := scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
			balance, err := repos.BalanceRepo().GetOrCreate(ctx, warehouseID, materialID)
			if err != nil {
				return err
			}
			if err := balance.Increase(decimal.NewFromInt(10)); err != nil {
				return err
			}
			return repos.BalanceRepo().SaveWithLock(ctx, balance)
		})
		require.NoError(t, err)

		balance, err := NewGormStockBalanceRepository(db).FindByWarehouseAndMaterial(ctx, warehouseID, materialID)
		require.NoError(t, err)
		assert.True(t, balance.Quantity.Equal(decimal.NewFromInt(10)))
	})

	// Splitting into several children decreases the parent once per child
	// before the single guarded save; the whole batch must commit under one
	// version bump.
	t.Run("lot split into several children commits under one save", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		scope := NewGormTransactionScope(db)
		svc := ledger.NewLotService(scope, nil)
		lotRepo := NewGormLotRepository(db)

		lotNumber := "L-2026-001"
		parent, err := inventory.NewLot(inventory.LotKey{
			WarehouseID: uuid.New(),
			MaterialID:  uuid.New(),
			LotNumber:   &lotNumber,
		}, decimal.NewFromInt(10), nil)
		require.NoError(t, err)
		require.NoError(t, lotRepo.Create(ctx, parent))
		versionBefore := parent.Version

		children, err := svc.SplitLot(ctx, ledger.SplitRequest{
			LotID:       parent.ID,
			Quantities:  []decimal.Decimal{decimal.NewFromInt(4), decimal.NewFromInt(6)},
			PerformedBy: "alice",
		})
		require.NoError(t, err)
		require.Len(t, children, 2)
		assert.True(t, children[0].Quantity.Equal(decimal.NewFromInt(4)))
		assert.True(t, children[1].Quantity.Equal(decimal.NewFromInt(6)))

		reloaded, err := lotRepo.FindByID(ctx, parent.ID)
		require.NoError(t, err)
		assert.True(t, reloaded.Quantity.IsZero(), "parent keeps the remainder, here zero")
		assert.Equal(t, versionBefore+1, reloaded.Version, "one save, one version bump")

		rows, err := NewGormLotHistoryRepository(db).FindByLot(ctx, parent.ID, shared.NewFilter())
		require.NoError(t, err)
		assert.Len(t, rows, 1, "the parent records one split entry for the whole batch")
	})

	t.Run("rolls back every write on failure", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		scope := NewGormTransactionScope(db)
		warehouseID := uuid.New()
		materialID := uuid.New()

		err := scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
			balance, err := repos.BalanceRepo().GetOrCreate(ctx, warehouseID, materialID)
			if err != nil {
				return err
			}
			if err := balance.Increase(decimal.NewFromInt(10)); err != nil {
				return err
			}
			if err := repos.BalanceRepo().SaveWithLock(ctx, balance); err != nil {
				return err
			}

			lot, err := inventory.NewLot(inventory.LotKey{
				WarehouseID: warehouseID,
				MaterialID:  materialID,
			}, decimal.NewFromInt(10), nil)
			if err != nil {
				return err
			}
			if err := repos.LotRepo().Create(ctx, lot); err != nil {
				return err
			}

			// A domain failure after both writes aborts the transaction
			return inventory.ErrInsufficientStock
		})
		assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

		_, err = NewGormStockBalanceRepository(db).FindByWarehouseAndMaterial(ctx, warehouseID, materialID)
		assert.ErrorIs(t, err, shared.ErrNotFound, "balance write must be rolled back")

		lots, err := NewGormLotRepository(db).FindByWarehouseAndMaterial(ctx, warehouseID, materialID)
		require.NoError(t, err)
		assert.Empty(t, lots, "lot write must be rolled back")
	})
}
