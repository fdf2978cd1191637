package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/shared"
)

// CostingMethod selects how issue cost is computed for a material
type CostingMethod string

const (
	// CostingMethodWeightedAverage prices issues at the quantity-weighted
	// mean across lots. This is the default.
	CostingMethodWeightedAverage CostingMethod = "WEIGHTED_AVERAGE"
	// CostingMethodFIFO prices issues using the earliest-received lots first
	CostingMethodFIFO CostingMethod = "FIFO"
)

// IsValid returns true if the costing method is known
func (m CostingMethod) IsValid() bool {
	switch m {
	case CostingMethodWeightedAverage, CostingMethodFIFO:
		return true
	}
	return false
}

// String returns the string representation
func (m CostingMethod) String() string {
	return string(m)
}

// Material is a stock-keeping item. The ledger reads its purchase price as
// the costing fallback and its costing method to dispatch issue costing.
type Material struct {
	shared.BaseAggregateRoot
	Code          string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	Name          string          `gorm:"type:varchar(255);not null"`
	Unit          string          `gorm:"type:varchar(32)"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CostingMethod CostingMethod   `gorm:"type:varchar(32);not null;default:'WEIGHTED_AVERAGE'"`
}

// TableName returns the table name for GORM
func (Material) TableName() string {
	return "materials"
}

// NewMaterial creates a material with the default costing method
func NewMaterial(code, name, unit string, purchasePrice decimal.Decimal) (*Material, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Material code cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Material name cannot be empty")
	}
	if purchasePrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Purchase price cannot be negative")
	}

	return &Material{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              name,
		Unit:              unit,
		PurchasePrice:     purchasePrice,
		CostingMethod:     CostingMethodWeightedAverage,
	}, nil
}

// SetCostingMethod switches the costing method
func (m *Material) SetCostingMethod(method CostingMethod) error {
	if !method.IsValid() {
		return shared.NewDomainError("INVALID_COSTING_METHOD", "Unknown costing method")
	}
	m.CostingMethod = method
	m.Touch()
	return nil
}

// EffectiveCostingMethod returns the configured method, defaulting to
// weighted average when unset
func (m *Material) EffectiveCostingMethod() CostingMethod {
	if !m.CostingMethod.IsValid() {
		return CostingMethodWeightedAverage
	}
	return m.CostingMethod
}
