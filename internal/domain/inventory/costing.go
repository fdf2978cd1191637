package inventory

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/catalog"
)

// LotCost is a read-only projection of one lot's cost contribution at a
// point in time
type LotCost struct {
	LotID     uuid.UUID
	LotNumber *string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal // effective price (fallback applied)
}

// CostingEngine computes the accounting cost of outgoing stock. It only
// reads lots and never mutates them: accounting cost order (FIFO or
// weighted average, by receipt time) is deliberately independent of the
// physical FEFO pick order, so a unit's cost basis need not match the lot
// it was drawn from.
type CostingEngine struct{}

// NewCostingEngine creates a new costing engine
func NewCostingEngine() *CostingEngine {
	return &CostingEngine{}
}

// IssueCost computes the per-unit cost basis for an issue of the given
// quantity, dispatching on the material's costing method. Weighted average
// is the default.
func (e *CostingEngine) IssueCost(
	method catalog.CostingMethod,
	lots []*Lot,
	fallbackPrice decimal.Decimal,
	quantity decimal.Decimal,
	asOf time.Time,
) decimal.Decimal {
	switch method {
	case catalog.CostingMethodFIFO:
		return e.FIFOCost(lots, fallbackPrice, quantity, asOf)
	default:
		return e.AverageCost(lots, fallbackPrice, asOf)
	}
}

// AverageCost computes the quantity-weighted mean price across lots holding
// stock as of the given date. Lots without a price contribute at the
// fallback price; with no lots at all the fallback itself is the answer.
func (e *CostingEngine) AverageCost(lots []*Lot, fallbackPrice decimal.Decimal, asOf time.Time) decimal.Decimal {
	layers := costLayers(lots, asOf)
	if len(layers) == 0 {
		return fallbackPrice.Round(PriceScale)
	}

	totalQuantity := decimal.Zero
	totalValue := decimal.Zero
	for _, lot := range layers {
		price := lot.EffectivePrice(fallbackPrice)
		totalQuantity = totalQuantity.Add(lot.Quantity)
		totalValue = totalValue.Add(lot.Quantity.Mul(price))
	}
	if totalQuantity.IsZero() {
		return fallbackPrice.Round(PriceScale)
	}
	return totalValue.Div(totalQuantity).Round(PriceScale)
}

// FIFOCost virtually consumes lots in receipt order (creation time, then id)
// up to the requested quantity and returns the effective average price of
// the consumed slice: accumulated cost divided by the requested quantity,
// rounded to two decimals. Zero quantity costs zero. Consumption here is
// simulation only; no lot is changed.
func (e *CostingEngine) FIFOCost(lots []*Lot, fallbackPrice, quantity decimal.Decimal, asOf time.Time) decimal.Decimal {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	layers := costLayers(lots, asOf)
	if len(layers) == 0 {
		return fallbackPrice.Round(PriceScale)
	}

	remaining := quantity
	totalCost := decimal.Zero
	for _, lot := range layers {
		if remaining.IsZero() {
			break
		}
		take := decimal.Min(remaining, lot.Quantity)
		totalCost = totalCost.Add(take.Mul(lot.EffectivePrice(fallbackPrice)))
		remaining = remaining.Sub(take)
	}

	return totalCost.Div(quantity).Round(PriceScale)
}

// LotCosts returns the read-only (lot, quantity, effective price) projection
// used by valuation reports, in receipt order as of the given date
func (e *CostingEngine) LotCosts(lots []*Lot, fallbackPrice decimal.Decimal, asOf time.Time) []LotCost {
	layers := costLayers(lots, asOf)
	costs := make([]LotCost, len(layers))
	for i, lot := range layers {
		costs[i] = LotCost{
			LotID:     lot.ID,
			LotNumber: lot.LotNumber,
			Quantity:  lot.Quantity,
			UnitPrice: lot.EffectivePrice(fallbackPrice),
		}
	}
	return costs
}

// costLayers selects lots with stock created no later than asOf and orders
// them by creation time, then id, for deterministic layering
func costLayers(lots []*Lot, asOf time.Time) []*Lot {
	layers := make([]*Lot, 0, len(lots))
	for _, lot := range lots {
		if lot.HasStock() && !lot.CreatedAt.After(asOf) {
			layers = append(layers, lot)
		}
	}
	sort.SliceStable(layers, func(i, j int) bool {
		if !layers[i].CreatedAt.Equal(layers[j].CreatedAt) {
			return layers[i].CreatedAt.Before(layers[j].CreatedAt)
		}
		return layers[i].ID.String() < layers[j].ID.String()
	})
	return layers
}
