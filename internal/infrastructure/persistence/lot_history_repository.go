package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// GormLotHistoryRepository implements the append-only LotHistoryRepository
// using GORM. There is deliberately no update or delete.
type GormLotHistoryRepository struct {
	db *gorm.DB
}

// NewGormLotHistoryRepository creates a new GormLotHistoryRepository
func NewGormLotHistoryRepository(db *gorm.DB) *GormLotHistoryRepository {
	return &GormLotHistoryRepository{db: db}
}

// Create appends one history row
func (r *GormLotHistoryRepository) Create(ctx context.Context, history *inventory.LotHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

// CreateBatch appends multiple history rows
func (r *GormLotHistoryRepository) CreateBatch(ctx context.Context, histories []*inventory.LotHistory) error {
	if len(histories) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&histories).Error
}

// FindByLot lists history rows for a lot, oldest first
func (r *GormLotHistoryRepository) FindByLot(ctx context.Context, lotID uuid.UUID, filter shared.Filter) ([]inventory.LotHistory, error) {
	var rows []inventory.LotHistory
	query := r.db.WithContext(ctx).
		Where("lot_id = ?", lotID).
		Order("performed_at ASC, created_at ASC")

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Ensure GormLotHistoryRepository implements LotHistoryRepository
var _ inventory.LotHistoryRepository = (*GormLotHistoryRepository)(nil)
