package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvancedPrice(t *testing.T) {
	t.Run("zero", func(t *testing.T) {
		var a AdvancedPrice
		assert.True(t, a.IsZero())
		_, ok := a.Resolve(VariantPredicted)
		assert.False(t, ok)
	})

	t.Run("scalar", func(t *testing.T) {
		a := ScalarAdvancedPrice(21.5)
		assert.False(t, a.IsZero())
		for _, v := range []Variant{VariantPredicted, VariantLow, VariantHigh} {
			c, ok := a.Resolve(v)
			require.True(t, ok)
			assert.Equal(t, 21.5, c)
		}
	})

	t.Run("by variant", func(t *testing.T) {
		src := map[Variant]float64{VariantPredicted: 20, VariantLow: 15}
		a := VariantAdvancedPrice(src)
		// mutating the source must not change the price
		src[VariantPredicted] = 99

		c, ok := a.Resolve(VariantPredicted)
		require.True(t, ok)
		assert.Equal(t, 20.0, c)

		c, ok = a.Resolve(VariantLow)
		require.True(t, ok)
		assert.Equal(t, 15.0, c)

		_, ok = a.Resolve(VariantHigh)
		assert.False(t, ok)
	})
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("")
	require.NoError(t, err)
	assert.Equal(t, VariantPredicted, v)

	v, err = ParseVariant("low")
	require.NoError(t, err)
	assert.Equal(t, VariantLow, v)

	_, err = ParseVariant("spike")
	assert.Error(t, err)
}

func TestPricePointStartTime(t *testing.T) {
	end := time.Date(2025, 1, 15, 18, 0, 0, 0, time.FixedZone("AEST", 10*3600))

	p := PricePoint{EndTime: end, DurationMinutes: 5}
	assert.Equal(t, time.Date(2025, 1, 15, 17, 55, 0, 0, end.Location()), p.StartTime())

	p.DurationMinutes = 30
	assert.Equal(t, time.Date(2025, 1, 15, 17, 30, 0, 0, end.Location()), p.StartTime())
}

func TestPeriodKey(t *testing.T) {
	assert.Equal(t, "PERIOD_00_00", PeriodKey(0, 0))
	assert.Equal(t, "PERIOD_17_30", PeriodKey(17, 30))
}
