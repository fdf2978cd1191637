package inventory

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/shared"
)

// LotAllocation is one consumed slice of a lot produced by FEFO allocation
type LotAllocation struct {
	LotID     uuid.UUID
	LotNumber *string
	Quantity  decimal.Decimal
	UnitPrice *decimal.Decimal // the lot's price at allocation time, if any
}

// AllocationEngine consumes lot quantities for outgoing stock using FEFO
// (First-Expired-First-Out). Physical consumption order is independent of
// the accounting cost order used by CostingEngine.
type AllocationEngine struct{}

// NewAllocationEngine creates a new allocation engine
func NewAllocationEngine() *AllocationEngine {
	return &AllocationEngine{}
}

// SortFEFO orders lots for consumption: expiry date ascending with undated
// lots after all dated ones, then manufacture date ascending (undated last),
// then creation order.
func SortFEFO(lots []*Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]

		if a.ExpiryDate != nil && b.ExpiryDate != nil {
			if !a.ExpiryDate.Equal(*b.ExpiryDate) {
				return a.ExpiryDate.Before(*b.ExpiryDate)
			}
		} else if a.ExpiryDate != nil {
			return true
		} else if b.ExpiryDate != nil {
			return false
		}

		if a.ManufactureDate != nil && b.ManufactureDate != nil {
			if !a.ManufactureDate.Equal(*b.ManufactureDate) {
				return a.ManufactureDate.Before(*b.ManufactureDate)
			}
		} else if a.ManufactureDate != nil {
			return true
		} else if b.ManufactureDate != nil {
			return false
		}

		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// AvailableQuantity sums the quantity of lots that still hold stock
func AvailableQuantity(lots []*Lot) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range lots {
		if lot.HasStock() {
			total = total.Add(lot.Quantity)
		}
	}
	return total
}

// Allocate greedily consumes the given lots in FEFO order until the
// requested quantity is covered, decrementing each consumed lot in place and
// returning the (lot, quantity) pairs. When the lots cannot cover the
// request it fails with ErrInsufficientLotStock after the partial decrements
// have been applied; the caller owns the undo (in practice the surrounding
// transaction rolls back).
func (e *AllocationEngine) Allocate(lots []*Lot, quantity decimal.Decimal) ([]LotAllocation, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Requested quantity must be positive")
	}

	candidates := make([]*Lot, 0, len(lots))
	for _, lot := range lots {
		if lot.HasStock() {
			candidates = append(candidates, lot)
		}
	}
	SortFEFO(candidates)

	allocations := make([]LotAllocation, 0, len(candidates))
	remaining := quantity

	for _, lot := range candidates {
		if remaining.IsZero() {
			break
		}

		take := decimal.Min(remaining, lot.Quantity)
		if err := lot.Decrease(take); err != nil {
			return allocations, err
		}

		allocations = append(allocations, LotAllocation{
			LotID:     lot.ID,
			LotNumber: lot.LotNumber,
			Quantity:  take,
			UnitPrice: lot.UnitPrice,
		})
		remaining = remaining.Sub(take)
	}

	if remaining.GreaterThan(decimal.Zero) {
		return allocations, ErrInsufficientLotStock
	}
	return allocations, nil
}
