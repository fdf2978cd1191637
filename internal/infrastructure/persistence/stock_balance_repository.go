package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// GormStockBalanceRepository implements StockBalanceRepository using GORM
type GormStockBalanceRepository struct {
	db *gorm.DB
}

// NewGormStockBalanceRepository creates a new GormStockBalanceRepository
func NewGormStockBalanceRepository(db *gorm.DB) *GormStockBalanceRepository {
	return &GormStockBalanceRepository{db: db}
}

// FindByID finds a balance by its ID
func (r *GormStockBalanceRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockBalance, error) {
	var balance inventory.StockBalance
	if err := r.db.WithContext(ctx).First(&balance, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &balance, nil
}

// FindByWarehouseAndMaterial finds the balance row for a key
func (r *GormStockBalanceRepository) FindByWarehouseAndMaterial(ctx context.Context, warehouseID, materialID uuid.UUID) (*inventory.StockBalance, error) {
	var balance inventory.StockBalance
	if err := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND material_id = ?", warehouseID, materialID).
		First(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &balance, nil
}

// GetOrCreate returns the balance row for a key, creating a zero row when
// absent. A concurrent creator winning the unique-index race resolves to a
// re-read.
func (r *GormStockBalanceRepository) GetOrCreate(ctx context.Context, warehouseID, materialID uuid.UUID) (*inventory.StockBalance, error) {
	balance, err := r.FindByWarehouseAndMaterial(ctx, warehouseID, materialID)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	balance, err = inventory.NewStockBalance(warehouseID, materialID)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(balance).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.FindByWarehouseAndMaterial(ctx, warehouseID, materialID)
		}
		return nil, err
	}
	return balance, nil
}

// FindByWarehouse lists balances in a warehouse
func (r *GormStockBalanceRepository) FindByWarehouse(ctx context.Context, warehouseID uuid.UUID, filter shared.Filter) ([]inventory.StockBalance, error) {
	var balances []inventory.StockBalance
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&inventory.StockBalance{}).
			Where("warehouse_id = ?", warehouseID),
		filter,
	)

	if err := query.Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}

// FindBelowMinimum lists balances under their alert threshold
func (r *GormStockBalanceRepository) FindBelowMinimum(ctx context.Context, filter shared.Filter) ([]inventory.StockBalance, error) {
	var balances []inventory.StockBalance
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&inventory.StockBalance{}).
			Where("min_quantity > 0 AND quantity < min_quantity"),
		filter,
	)

	if err := query.Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}

// Save creates or updates a balance
func (r *GormStockBalanceRepository) Save(ctx context.Context, balance *inventory.StockBalance) error {
	return r.db.WithContext(ctx).Save(balance).Error
}

// SaveWithLock saves with optimistic locking. The guard compares against
// the version the balance was loaded with; the bump happens here, not in
// the domain mutators, so several mutations can share one save.
func (r *GormStockBalanceRepository) SaveWithLock(ctx context.Context, balance *inventory.StockBalance) error {
	result := r.db.WithContext(ctx).
		Model(balance).
		Where("id = ? AND version = ?", balance.ID, balance.Version).
		Updates(map[string]interface{}{
			"quantity":     balance.Quantity,
			"min_quantity": balance.MinQuantity,
			"version":      balance.Version + 1,
			"updated_at":   balance.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	balance.IncrementVersion()
	return nil
}

// applyFilter applies filter options to the query
func (r *GormStockBalanceRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	if field := ValidateSortField(filter.OrderBy, StockBalanceSortFields, ""); field != "" {
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("warehouse_id ASC, material_id ASC")
	}

	for key, value := range filter.Filters {
		switch key {
		case "material_id":
			query = query.Where("material_id = ?", value)
		case "has_stock":
			if value == true {
				query = query.Where("quantity > 0")
			}
		}
	}

	return query
}

// Ensure GormStockBalanceRepository implements StockBalanceRepository
var _ inventory.StockBalanceRepository = (*GormStockBalanceRepository)(nil)
