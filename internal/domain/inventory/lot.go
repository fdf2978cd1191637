package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/shared"
)

// PriceScale is the rounding scale for lot prices and issue costs
const PriceScale = 2

// Lot is a traceable batch of one material in one warehouse. Lots carry their
// own quantity, dates and running-average price. Consumption and merging zero
// the quantity; the row and its lineage are never deleted.
type Lot struct {
	shared.BaseAggregateRoot
	WarehouseID     uuid.UUID        `gorm:"type:uuid;not null;index:idx_lot_warehouse_material,priority:1"`
	MaterialID      uuid.UUID        `gorm:"type:uuid;not null;index:idx_lot_warehouse_material,priority:2"`
	LotNumber       *string          `gorm:"type:varchar(64)"`
	ManufactureDate *time.Time       ``
	ExpiryDate      *time.Time       ``
	Quantity        decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	UnitPrice       *decimal.Decimal `gorm:"type:decimal(18,4)"` // quantity-weighted running average

	Reserved           bool       `gorm:"not null;default:false"`
	ReservedForIssueID *string    `gorm:"type:varchar(64)"`
	ReservedBy         *string    `gorm:"type:varchar(128)"`
	ReservedDate       *time.Time ``

	// ParentLotID records lineage for split children: the parent's lot
	// number (or its ID when the parent carries no number).
	ParentLotID *string `gorm:"type:varchar(64)"`
}

// TableName returns the table name for GORM
func (Lot) TableName() string {
	return "lots"
}

// LotKey is the null-safe composite identity of a lot within a warehouse.
// Optional fields participate in equality with explicit absent semantics:
// absent matches only absent.
type LotKey struct {
	WarehouseID     uuid.UUID
	MaterialID      uuid.UUID
	LotNumber       *string
	ManufactureDate *time.Time
	ExpiryDate      *time.Time
}

// Matches reports whether the lot carries exactly this identity tuple
func (k LotKey) Matches(l *Lot) bool {
	return l.WarehouseID == k.WarehouseID &&
		l.MaterialID == k.MaterialID &&
		equalOptString(l.LotNumber, k.LotNumber) &&
		equalOptTime(l.ManufactureDate, k.ManufactureDate) &&
		equalOptTime(l.ExpiryDate, k.ExpiryDate)
}

func equalOptString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalOptTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// NewLot creates a lot with the given identity, quantity and price
func NewLot(key LotKey, quantity decimal.Decimal, unitPrice *decimal.Decimal) (*Lot, error) {
	if key.WarehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if key.MaterialID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MATERIAL", "Material ID cannot be empty")
	}
	if quantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Lot quantity cannot be negative")
	}

	lot := &Lot{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		WarehouseID:       key.WarehouseID,
		MaterialID:        key.MaterialID,
		LotNumber:         key.LotNumber,
		ManufactureDate:   key.ManufactureDate,
		ExpiryDate:        key.ExpiryDate,
		Quantity:          quantity,
	}
	if unitPrice != nil {
		rounded := unitPrice.Round(PriceScale)
		lot.UnitPrice = &rounded
	}
	return lot, nil
}

// Key returns the lot's identity tuple
func (l *Lot) Key() LotKey {
	return LotKey{
		WarehouseID:     l.WarehouseID,
		MaterialID:      l.MaterialID,
		LotNumber:       l.LotNumber,
		ManufactureDate: l.ManufactureDate,
		ExpiryDate:      l.ExpiryDate,
	}
}

// Merge folds an incoming quantity into the lot and recomputes the price as
// a quantity-weighted average. A lot without a price adopts the incoming
// price; an absent incoming price leaves the price unchanged.
func (l *Lot) Merge(quantity decimal.Decimal, unitPrice *decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	if unitPrice != nil {
		if l.UnitPrice == nil || l.Quantity.IsZero() {
			rounded := unitPrice.Round(PriceScale)
			l.UnitPrice = &rounded
		} else {
			total := l.Quantity.Mul(*l.UnitPrice).Add(quantity.Mul(*unitPrice))
			avg := total.Div(l.Quantity.Add(quantity)).Round(PriceScale)
			l.UnitPrice = &avg
		}
	}

	l.Quantity = l.Quantity.Add(quantity)
	l.UpdatedAt = time.Now()
	return nil
}

// Decrease subtracts a positive quantity. Fails with ErrInsufficientLotStock
// when the lot cannot cover it.
func (l *Lot) Decrease(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if l.Quantity.LessThan(quantity) {
		return ErrInsufficientLotStock
	}

	l.Quantity = l.Quantity.Sub(quantity)
	l.UpdatedAt = time.Now()
	return nil
}

// Reserve soft-locks the lot for an issue document. Reservation never changes
// the quantity; it blocks split, merge and re-reservation until released.
func (l *Lot) Reserve(quantity decimal.Decimal, issueID, actor string) error {
	if l.Reserved {
		return ErrInvalidLotOperation
	}
	if quantity.LessThanOrEqual(decimal.Zero) || !l.HasStock() {
		return ErrInvalidLotOperation
	}
	if l.Quantity.LessThan(quantity) {
		return ErrInsufficientLotStock
	}

	now := time.Now()
	l.Reserved = true
	l.ReservedForIssueID = &issueID
	l.ReservedBy = &actor
	l.ReservedDate = &now
	l.UpdatedAt = now
	return nil
}

// Release clears the reservation. Fails when the lot is not reserved.
func (l *Lot) Release() error {
	if !l.Reserved {
		return ErrInvalidLotOperation
	}

	l.Reserved = false
	l.ReservedForIssueID = nil
	l.ReservedBy = nil
	l.ReservedDate = nil
	l.UpdatedAt = time.Now()
	return nil
}

// HasStock returns true if the lot has remaining quantity
func (l *Lot) HasStock() bool {
	return l.Quantity.GreaterThan(decimal.Zero)
}

// IsExpired returns true if the lot's expiry date has passed
func (l *Lot) IsExpired() bool {
	if l.ExpiryDate == nil {
		return false
	}
	return l.ExpiryDate.Before(time.Now())
}

// WillExpireWithin returns true if the lot expires within the given duration
func (l *Lot) WillExpireWithin(d time.Duration) bool {
	if l.ExpiryDate == nil {
		return false
	}
	return l.ExpiryDate.Before(time.Now().Add(d))
}

// EffectivePrice returns the lot price, or the fallback when the lot has none
func (l *Lot) EffectivePrice(fallback decimal.Decimal) decimal.Decimal {
	if l.UnitPrice == nil {
		return fallback
	}
	return *l.UnitPrice
}

// TotalValue returns quantity times effective price
func (l *Lot) TotalValue(fallback decimal.Decimal) decimal.Decimal {
	return l.Quantity.Mul(l.EffectivePrice(fallback))
}

// LineageRef returns the identifier children record as their parent
// reference: the lot number when present, otherwise the lot ID.
func (l *Lot) LineageRef() string {
	if l.LotNumber != nil && *l.LotNumber != "" {
		return *l.LotNumber
	}
	return l.ID.String()
}
