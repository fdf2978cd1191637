package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// GormLotRepository implements LotRepository using GORM
type GormLotRepository struct {
	db *gorm.DB
}

// NewGormLotRepository creates a new GormLotRepository
func NewGormLotRepository(db *gorm.DB) *GormLotRepository {
	return &GormLotRepository{db: db}
}

// FindByID finds a lot by its ID
func (r *GormLotRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Lot, error) {
	var lot inventory.Lot
	if err := r.db.WithContext(ctx).First(&lot, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &lot, nil
}

// FindByIDs finds multiple lots by their IDs
func (r *GormLotRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*inventory.Lot, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var lots []*inventory.Lot
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&lots).Error; err != nil {
		return nil, err
	}
	if len(lots) != len(ids) {
		return nil, shared.ErrNotFound
	}
	return lots, nil
}

// FindByKey finds the lot carrying exactly this identity tuple. Optional
// fields match null-safely: an absent field matches only NULL.
func (r *GormLotRepository) FindByKey(ctx context.Context, key inventory.LotKey) (*inventory.Lot, error) {
	query := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND material_id = ?", key.WarehouseID, key.MaterialID)

	if key.LotNumber == nil {
		query = query.Where("lot_number IS NULL")
	} else {
		query = query.Where("lot_number = ?", *key.LotNumber)
	}
	if key.ManufactureDate == nil {
		query = query.Where("manufacture_date IS NULL")
	} else {
		query = query.Where("manufacture_date = ?", *key.ManufactureDate)
	}
	if key.ExpiryDate == nil {
		query = query.Where("expiry_date IS NULL")
	} else {
		query = query.Where("expiry_date = ?", *key.ExpiryDate)
	}

	var lot inventory.Lot
	if err := query.First(&lot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &lot, nil
}

// FindByWarehouseAndMaterial lists all lots for a key, zeroed ones included
func (r *GormLotRepository) FindByWarehouseAndMaterial(ctx context.Context, warehouseID, materialID uuid.UUID) ([]*inventory.Lot, error) {
	var lots []*inventory.Lot
	if err := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND material_id = ?", warehouseID, materialID).
		Order("created_at ASC").
		Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// FindActive lists lots holding stock for a key in FEFO order
func (r *GormLotRepository) FindActive(ctx context.Context, warehouseID, materialID uuid.UUID) ([]*inventory.Lot, error) {
	var lots []*inventory.Lot
	if err := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND material_id = ? AND quantity > 0", warehouseID, materialID).
		Order("COALESCE(expiry_date, '9999-12-31') ASC, COALESCE(manufacture_date, '9999-12-31') ASC, created_at ASC").
		Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// FindExpiringWithin lists active lots whose expiry falls within the given
// number of days
func (r *GormLotRepository) FindExpiringWithin(ctx context.Context, warehouseID uuid.UUID, days int, filter shared.Filter) ([]*inventory.Lot, error) {
	now := time.Now()
	threshold := now.AddDate(0, 0, days)

	var lots []*inventory.Lot
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&inventory.Lot{}).
			Where("warehouse_id = ? AND quantity > 0", warehouseID).
			Where("expiry_date IS NOT NULL").
			Where("expiry_date > ? AND expiry_date <= ?", now, threshold),
		filter,
	)

	if err := query.Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// CountByLotNumberPrefix counts lots whose number starts with the prefix
func (r *GormLotRepository) CountByLotNumberPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.Lot{}).
		Where("lot_number LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create inserts a new lot
func (r *GormLotRepository) Create(ctx context.Context, lot *inventory.Lot) error {
	return r.db.WithContext(ctx).Create(lot).Error
}

// Save creates or updates a lot
func (r *GormLotRepository) Save(ctx context.Context, lot *inventory.Lot) error {
	return r.db.WithContext(ctx).Save(lot).Error
}

// SaveWithLock saves with optimistic locking. The guard compares against
// the version the lot was loaded with; the bump happens here, not in the
// domain mutators, so a split can decrease the parent once per child and
// still commit under one save.
func (r *GormLotRepository) SaveWithLock(ctx context.Context, lot *inventory.Lot) error {
	result := r.db.WithContext(ctx).
		Model(lot).
		Where("id = ? AND version = ?", lot.ID, lot.Version).
		Updates(map[string]interface{}{
			"quantity":              lot.Quantity,
			"unit_price":            lot.UnitPrice,
			"reserved":              lot.Reserved,
			"reserved_for_issue_id": lot.ReservedForIssueID,
			"reserved_by":           lot.ReservedBy,
			"reserved_date":         lot.ReservedDate,
			"version":               lot.Version + 1,
			"updated_at":            lot.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	lot.IncrementVersion()
	return nil
}

// applyFilter applies filter options to the query
func (r *GormLotRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	if field := ValidateSortField(filter.OrderBy, LotSortFields, ""); field != "" {
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("COALESCE(expiry_date, '9999-12-31') ASC, created_at ASC")
	}

	for key, value := range filter.Filters {
		switch key {
		case "material_id":
			query = query.Where("material_id = ?", value)
		case "reserved":
			query = query.Where("reserved = ?", value)
		}
	}

	return query
}

// Ensure GormLotRepository implements LotRepository
var _ inventory.LotRepository = (*GormLotRepository)(nil)
