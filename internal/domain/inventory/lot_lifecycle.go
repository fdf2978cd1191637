package inventory

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// Pure guard predicates for the lot lifecycle operations. The lifecycle
// service applies the same checks before mutating; these are exported so
// callers can pre-validate without side effects.

// CanSplitLot reports whether a lot can be split into the given child
// quantities. Returns nil when the split is allowed.
func CanSplitLot(lot *Lot, quantities []decimal.Decimal) error {
	if lot == nil {
		return ErrInvalidLotOperation
	}
	if lot.Reserved {
		return ErrInvalidLotOperation
	}
	if len(quantities) == 0 {
		return ErrInvalidLotOperation
	}

	total := decimal.Zero
	for _, q := range quantities {
		if q.LessThanOrEqual(decimal.Zero) {
			return ErrInvalidLotOperation
		}
		total = total.Add(q)
	}
	if total.GreaterThan(lot.Quantity) {
		return ErrInsufficientLotStock
	}
	return nil
}

// CanMergeLots reports whether the lots can be merged into one. Merging
// needs at least two unreserved lots of the same material in the same
// warehouse. Differing expiry dates are allowed (the service logs a
// warning); use HasMixedExpiry to detect them.
func CanMergeLots(lots []*Lot) error {
	if len(lots) < 2 {
		return ErrInvalidLotOperation
	}

	first := lots[0]
	for _, lot := range lots {
		if lot == nil || lot.Reserved {
			return ErrInvalidLotOperation
		}
		if lot.MaterialID != first.MaterialID || lot.WarehouseID != first.WarehouseID {
			return ErrInvalidLotOperation
		}
	}
	return nil
}

// HasMixedExpiry returns true when the lots do not all share the same
// expiry date (null-safe comparison)
func HasMixedExpiry(lots []*Lot) bool {
	if len(lots) < 2 {
		return false
	}
	first := lots[0].ExpiryDate
	for _, lot := range lots[1:] {
		if !equalOptTime(first, lot.ExpiryDate) {
			return true
		}
	}
	return false
}

// EarliestDate returns the earliest of the given optional dates, or nil when
// none is set. Merge results adopt the earliest manufacture and expiry dates
// of their sources, the most conservative choice.
func EarliestDate(dates []*time.Time) *time.Time {
	var earliest *time.Time
	for _, d := range dates {
		if d == nil {
			continue
		}
		if earliest == nil || d.Before(*earliest) {
			earliest = d
		}
	}
	return earliest
}

// DeriveChildLotNumber builds a child lot number from the parent reference
// plus a timestamp and random suffix. The suffix avoids collisions between
// children cut in the same second; it is not cryptographic.
func DeriveChildLotNumber(parent *Lot, at time.Time) string {
	return fmt.Sprintf("%s-%s%03d", parent.LineageRef(), at.Format("060102150405"), rand.Intn(1000))
}

// MergeLotNumber builds a date-stamped merge lot number with a same-day
// sequence, e.g. MRG-20251202-003
func MergeLotNumber(at time.Time, sequence int) string {
	return fmt.Sprintf("MRG-%s-%03d", at.Format("20060102"), sequence)
}

// MergeLotNumberPrefix returns the lot-number prefix shared by all merge
// lots created on the given day, used to derive the next sequence
func MergeLotNumberPrefix(at time.Time) string {
	return fmt.Sprintf("MRG-%s-", at.Format("20060102"))
}
