package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMaterial(t *testing.T) {
	t.Run("defaults to weighted average costing", func(t *testing.T) {
		m, err := NewMaterial("MAT-001", "Steel Plate", "kg", decimal.NewFromFloat(4.5))
		require.NoError(t, err)

		assert.Equal(t, "MAT-001", m.Code)
		assert.Equal(t, CostingMethodWeightedAverage, m.CostingMethod)
		assert.True(t, m.PurchasePrice.Equal(decimal.NewFromFloat(4.5)))
	})

	t.Run("rejects blank code or name", func(t *testing.T) {
		_, err := NewMaterial("", "Steel Plate", "kg", decimal.Zero)
		assert.Error(t, err)
		_, err = NewMaterial("MAT-001", "", "kg", decimal.Zero)
		assert.Error(t, err)
	})

	t.Run("rejects negative purchase price", func(t *testing.T) {
		_, err := NewMaterial("MAT-001", "Steel Plate", "kg", decimal.NewFromInt(-1))
		assert.Error(t, err)
	})
}

func TestSetCostingMethod(t *testing.T) {
	m, err := NewMaterial("MAT-001", "Steel Plate", "kg", decimal.Zero)
	require.NoError(t, err)

	t.Run("switches to FIFO", func(t *testing.T) {
		require.NoError(t, m.SetCostingMethod(CostingMethodFIFO))
		assert.Equal(t, CostingMethodFIFO, m.CostingMethod)
	})

	t.Run("rejects unknown method", func(t *testing.T) {
		err := m.SetCostingMethod(CostingMethod("LIFO"))
		assert.Error(t, err)
		assert.Equal(t, CostingMethodFIFO, m.CostingMethod)
	})
}

func TestEffectiveCostingMethod(t *testing.T) {
	m, err := NewMaterial("MAT-001", "Steel Plate", "kg", decimal.Zero)
	require.NoError(t, err)

	assert.Equal(t, CostingMethodWeightedAverage, m.EffectiveCostingMethod())

	require.NoError(t, m.SetCostingMethod(CostingMethodFIFO))
	assert.Equal(t, CostingMethodFIFO, m.EffectiveCostingMethod())

	m.CostingMethod = CostingMethod("")
	assert.Equal(t, CostingMethodWeightedAverage, m.EffectiveCostingMethod())
}

func TestCostingMethodIsValid(t *testing.T) {
	assert.True(t, CostingMethodWeightedAverage.IsValid())
	assert.True(t, CostingMethodFIFO.IsValid())
	assert.False(t, CostingMethod("LIFO").IsValid())
	assert.False(t, CostingMethod("").IsValid())
}
