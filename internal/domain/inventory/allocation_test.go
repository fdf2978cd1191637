package inventory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lotWithDates(t *testing.T, qty int64, expiry, mfg *time.Time, createdAt time.Time) *Lot {
	t.Helper()
	lot, err := NewLot(LotKey{
		WarehouseID:     uuid.New(),
		MaterialID:      uuid.New(),
		ExpiryDate:      expiry,
		ManufactureDate: mfg,
	}, decimal.NewFromInt(qty), nil)
	require.NoError(t, err)
	lot.CreatedAt = createdAt
	return lot
}

func TestSortFEFO(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	early := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	t.Run("earliest expiry first, undated last", func(t *testing.T) {
		undated := lotWithDates(t, 1, nil, nil, base)
		expLate := lotWithDates(t, 1, timePtr(late), nil, base)
		expEarly := lotWithDates(t, 1, timePtr(early), nil, base)

		lots := []*Lot{undated, expLate, expEarly}
		SortFEFO(lots)

		assert.Equal(t, []*Lot{expEarly, expLate, undated}, lots)
	})

	t.Run("ties broken by manufacture date then creation", func(t *testing.T) {
		mfgOld := lotWithDates(t, 1, timePtr(early), timePtr(base.AddDate(0, -2, 0)), base.Add(time.Hour))
		mfgNew := lotWithDates(t, 1, timePtr(early), timePtr(base.AddDate(0, -1, 0)), base)
		mfgNone := lotWithDates(t, 1, timePtr(early), nil, base.Add(-time.Hour))

		lots := []*Lot{mfgNone, mfgNew, mfgOld}
		SortFEFO(lots)

		assert.Equal(t, []*Lot{mfgOld, mfgNew, mfgNone}, lots)
	})

	t.Run("fully undated lots fall back to creation order", func(t *testing.T) {
		older := lotWithDates(t, 1, nil, nil, base)
		newer := lotWithDates(t, 1, nil, nil, base.Add(time.Minute))

		lots := []*Lot{newer, older}
		SortFEFO(lots)

		assert.Equal(t, []*Lot{older, newer}, lots)
	})
}

func TestAvailableQuantity(t *testing.T) {
	base := time.Now()
	full := lotWithDates(t, 7, nil, nil, base)
	empty := lotWithDates(t, 0, nil, nil, base)

	total := AvailableQuantity([]*Lot{full, empty})
	assert.True(t, total.Equal(decimal.NewFromInt(7)))
}

func TestAllocationEngineAllocate(t *testing.T) {
	engine := NewAllocationEngine()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	early := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	t.Run("consumes earliest expiry first and spills over", func(t *testing.T) {
		first := lotWithDates(t, 5, timePtr(early), nil, base)
		second := lotWithDates(t, 10, timePtr(late), nil, base)

		allocations, err := engine.Allocate([]*Lot{second, first}, decimal.NewFromInt(8))
		require.NoError(t, err)

		require.Len(t, allocations, 2)
		assert.Equal(t, first.ID, allocations[0].LotID)
		assert.True(t, allocations[0].Quantity.Equal(decimal.NewFromInt(5)))
		assert.Equal(t, second.ID, allocations[1].LotID)
		assert.True(t, allocations[1].Quantity.Equal(decimal.NewFromInt(3)))

		assert.True(t, first.Quantity.IsZero())
		assert.True(t, second.Quantity.Equal(decimal.NewFromInt(7)))
	})

	t.Run("single lot covers the request", func(t *testing.T) {
		lot := lotWithDates(t, 10, nil, nil, base)

		allocations, err := engine.Allocate([]*Lot{lot}, decimal.NewFromInt(4))
		require.NoError(t, err)

		require.Len(t, allocations, 1)
		assert.True(t, allocations[0].Quantity.Equal(decimal.NewFromInt(4)))
		assert.True(t, lot.Quantity.Equal(decimal.NewFromInt(6)))
	})

	t.Run("skips empty lots", func(t *testing.T) {
		empty := lotWithDates(t, 0, timePtr(early), nil, base)
		stocked := lotWithDates(t, 5, timePtr(late), nil, base)

		allocations, err := engine.Allocate([]*Lot{empty, stocked}, decimal.NewFromInt(2))
		require.NoError(t, err)

		require.Len(t, allocations, 1)
		assert.Equal(t, stocked.ID, allocations[0].LotID)
	})

	t.Run("shortage returns partial allocations and error", func(t *testing.T) {
		first := lotWithDates(t, 3, timePtr(early), nil, base)
		second := lotWithDates(t, 2, timePtr(late), nil, base)

		allocations, err := engine.Allocate([]*Lot{first, second}, decimal.NewFromInt(10))
		assert.ErrorIs(t, err, ErrInsufficientLotStock)

		require.Len(t, allocations, 2)
		assert.True(t, first.Quantity.IsZero())
		assert.True(t, second.Quantity.IsZero())
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := engine.Allocate(nil, decimal.Zero)
		assert.Error(t, err)
	})
}
