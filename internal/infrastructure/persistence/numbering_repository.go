package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/numbering"
	"github.com/wms/backend/internal/domain/shared"
)

// GormDocumentNumberingRepository implements DocumentNumberingRepository
// using GORM
type GormDocumentNumberingRepository struct {
	db *gorm.DB
}

// NewGormDocumentNumberingRepository creates a new GormDocumentNumberingRepository
func NewGormDocumentNumberingRepository(db *gorm.DB) *GormDocumentNumberingRepository {
	return &GormDocumentNumberingRepository{db: db}
}

// FindByScope finds the sequence row for (documentType, warehouseID, year).
// The warehouse match is null-safe: a nil warehouseID matches only rows
// without a warehouse.
func (r *GormDocumentNumberingRepository) FindByScope(ctx context.Context, documentType string, warehouseID *uuid.UUID, year int) (*numbering.DocumentNumbering, error) {
	query := r.db.WithContext(ctx).
		Where("document_type = ? AND year = ?", documentType, year)

	if warehouseID == nil {
		query = query.Where("warehouse_id IS NULL")
	} else {
		query = query.Where("warehouse_id = ?", *warehouseID)
	}

	var row numbering.DocumentNumbering
	if err := query.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// Create inserts a new sequence row. A concurrent creator winning the
// unique-index race surfaces as shared.ErrAlreadyExists so the caller can
// re-read and retry.
func (r *GormDocumentNumberingRepository) Create(ctx context.Context, row *numbering.DocumentNumbering) error {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// SaveWithLock persists an increment with optimistic locking. The guard
// compares against the version the row was loaded with; the bump happens
// here on a successful save.
func (r *GormDocumentNumberingRepository) SaveWithLock(ctx context.Context, row *numbering.DocumentNumbering) error {
	result := r.db.WithContext(ctx).
		Model(row).
		Where("id = ? AND version = ?", row.ID, row.Version).
		Updates(map[string]interface{}{
			"current_no": row.CurrentNo,
			"version":    row.Version + 1,
			"updated_at": row.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	row.IncrementVersion()
	return nil
}

// Ensure GormDocumentNumberingRepository implements DocumentNumberingRepository
var _ numbering.DocumentNumberingRepository = (*GormDocumentNumberingRepository)(nil)
