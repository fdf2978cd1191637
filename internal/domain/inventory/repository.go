package inventory

import (
	"context"

	"github.com/google/uuid"

	"github.com/wms/backend/internal/domain/shared"
)

// StockBalanceRepository defines the interface for balance persistence.
// Mutations go through SaveWithLock so concurrent read-modify-write cycles
// on the same (warehouse, material) row are serialized via the version
// column.
type StockBalanceRepository interface {
	// FindByID finds a balance by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*StockBalance, error)

	// FindByWarehouseAndMaterial finds the balance row for a key;
	// returns shared.ErrNotFound when absent
	FindByWarehouseAndMaterial(ctx context.Context, warehouseID, materialID uuid.UUID) (*StockBalance, error)

	// GetOrCreate returns the balance row for a key, creating a zero row
	// when absent
	GetOrCreate(ctx context.Context, warehouseID, materialID uuid.UUID) (*StockBalance, error)

	// FindByWarehouse lists balances in a warehouse
	FindByWarehouse(ctx context.Context, warehouseID uuid.UUID, filter shared.Filter) ([]StockBalance, error)

	// FindBelowMinimum lists balances under their alert threshold
	FindBelowMinimum(ctx context.Context, filter shared.Filter) ([]StockBalance, error)

	// Save creates or updates a balance
	Save(ctx context.Context, balance *StockBalance) error

	// SaveWithLock saves with optimistic locking (checks version); fails
	// with shared.ErrConcurrencyConflict on a stale version
	SaveWithLock(ctx context.Context, balance *StockBalance) error
}

// LotRepository defines the interface for lot persistence
type LotRepository interface {
	// FindByID finds a lot by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Lot, error)

	// FindByIDs finds multiple lots by their IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Lot, error)

	// FindByKey finds the lot carrying exactly this identity tuple
	// (null-safe match on the optional fields); shared.ErrNotFound when
	// no lot matches
	FindByKey(ctx context.Context, key LotKey) (*Lot, error)

	// FindByWarehouseAndMaterial lists all lots for a key, including
	// zeroed ones (lineage is never deleted)
	FindByWarehouseAndMaterial(ctx context.Context, warehouseID, materialID uuid.UUID) ([]*Lot, error)

	// FindActive lists lots holding stock for a key
	FindActive(ctx context.Context, warehouseID, materialID uuid.UUID) ([]*Lot, error)

	// FindExpiringWithin lists active lots whose expiry falls within the
	// given number of days
	FindExpiringWithin(ctx context.Context, warehouseID uuid.UUID, days int, filter shared.Filter) ([]*Lot, error)

	// CountByLotNumberPrefix counts lots whose number starts with the
	// prefix (used for same-day merge sequences)
	CountByLotNumberPrefix(ctx context.Context, prefix string) (int64, error)

	// Create inserts a new lot
	Create(ctx context.Context, lot *Lot) error

	// Save creates or updates a lot
	Save(ctx context.Context, lot *Lot) error

	// SaveWithLock saves with optimistic locking (checks version); fails
	// with shared.ErrConcurrencyConflict on a stale version
	SaveWithLock(ctx context.Context, lot *Lot) error
}

// LotHistoryRepository is the append-only audit trail. History rows are
// immutable once written; there is no update or delete.
type LotHistoryRepository interface {
	// Create appends one history row
	Create(ctx context.Context, history *LotHistory) error

	// CreateBatch appends multiple history rows
	CreateBatch(ctx context.Context, histories []*LotHistory) error

	// FindByLot lists history rows for a lot, oldest first
	FindByLot(ctx context.Context, lotID uuid.UUID, filter shared.Filter) ([]LotHistory, error)
}
