package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/shared"
)

// StockBalance is the aggregate quantity balance for one warehouse-material
// combination. It exists so existence and low-stock checks never have to scan
// lots. The balance and the lot rows are maintained independently through
// matched increase/decrease pairs.
// Invariant: Quantity never goes negative.
type StockBalance struct {
	shared.BaseAggregateRoot
	WarehouseID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_balance_warehouse_material,priority:1"`
	MaterialID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_balance_warehouse_material,priority:2"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	MinQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // low-stock alert threshold
}

// TableName returns the table name for GORM
func (StockBalance) TableName() string {
	return "stock_balances"
}

// NewStockBalance creates a zero balance for a warehouse-material combination
func NewStockBalance(warehouseID, materialID uuid.UUID) (*StockBalance, error) {
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if materialID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MATERIAL", "Material ID cannot be empty")
	}

	return &StockBalance{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		WarehouseID:       warehouseID,
		MaterialID:        materialID,
		Quantity:          decimal.Zero,
		MinQuantity:       decimal.Zero,
	}, nil
}

// Increase adds a positive quantity to the balance
func (b *StockBalance) Increase(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	b.Quantity = b.Quantity.Add(quantity)
	b.UpdatedAt = time.Now()
	return nil
}

// Decrease subtracts a positive quantity from the balance. Fails with
// ErrInsufficientStock when the balance cannot cover the quantity; the
// balance is never clamped.
func (b *StockBalance) Decrease(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if b.Quantity.LessThan(quantity) {
		return ErrInsufficientStock
	}

	b.Quantity = b.Quantity.Sub(quantity)
	b.UpdatedAt = time.Now()
	return nil
}

// SetMinQuantity sets the low-stock alert threshold
func (b *StockBalance) SetMinQuantity(quantity decimal.Decimal) error {
	if quantity.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Minimum quantity cannot be negative")
	}
	b.MinQuantity = quantity
	b.UpdatedAt = time.Now()
	return nil
}

// IsBelowMinimum returns true if the balance is below its alert threshold
func (b *StockBalance) IsBelowMinimum() bool {
	return b.MinQuantity.GreaterThan(decimal.Zero) && b.Quantity.LessThan(b.MinQuantity)
}

// HasStock returns true if any quantity remains on the balance
func (b *StockBalance) HasStock() bool {
	return b.Quantity.GreaterThan(decimal.Zero)
}

// CanFulfill returns true if the balance can cover the requested quantity
func (b *StockBalance) CanFulfill(quantity decimal.Decimal) bool {
	return b.Quantity.GreaterThanOrEqual(quantity)
}
