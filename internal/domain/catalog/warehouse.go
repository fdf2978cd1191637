package catalog

import (
	"github.com/wms/backend/internal/domain/shared"
)

// Warehouse is a physical stock location. The ledger only needs its identity
// and display name (the name feeds the {WH} document-number token).
type Warehouse struct {
	shared.BaseAggregateRoot
	Code string `gorm:"type:varchar(64);not null;uniqueIndex"`
	Name string `gorm:"type:varchar(255);not null"`
}

// TableName returns the table name for GORM
func (Warehouse) TableName() string {
	return "warehouses"
}

// NewWarehouse creates a warehouse
func NewWarehouse(code, name string) (*Warehouse, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Warehouse code cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Warehouse name cannot be empty")
	}

	return &Warehouse{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              name,
	}, nil
}
