package tariff

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tousync/tousync/pkg/types"
)

func TestNormalize(t *testing.T) {
	t.Run("Bucket By Own Duration", func(t *testing.T) {
		l := mustNormalize(t, []types.PricePoint{
			actual(at(15, 18, 0), 5, types.ChannelBuy, 10),
			actual(at(15, 18, 0), 30, types.ChannelBuy, 20),
			actual(at(15, 18, 5), 5, types.ChannelBuy, 30),
		})

		halfPast := SlotKey{Date: Date{2025, time.January, 15}, Hour: 17, Minute: 30}
		prices := l.Prices(types.ChannelBuy, halfPast)
		require.Len(t, prices, 2)
		assertDecimal(t, "0.10", prices[0])
		assertDecimal(t, "0.20", prices[1])

		six := SlotKey{Date: Date{2025, time.January, 15}, Hour: 18, Minute: 0}
		prices = l.Prices(types.ChannelBuy, six)
		require.Len(t, prices, 1)
		assertDecimal(t, "0.30", prices[0])
		assert.Equal(t, 3, l.Accepted())
		assert.Equal(t, 2, l.Buckets(types.ChannelBuy))
		assert.Equal(t, 0, l.Buckets(types.ChannelSell))
	})

	t.Run("Midnight End Belongs To Previous Day", func(t *testing.T) {
		l := mustNormalize(t, []types.PricePoint{
			actual(at(16, 0, 0), 30, types.ChannelBuy, 12),
		})
		key := SlotKey{Date: Date{2025, time.January, 15}, Hour: 23, Minute: 30}
		assert.Len(t, l.Prices(types.ChannelBuy, key), 1)
	})

	t.Run("Sell Is Negated", func(t *testing.T) {
		l := mustNormalize(t, []types.PricePoint{
			actual(at(15, 12, 30), 30, types.ChannelSell, -8.5),
			actual(at(15, 13, 0), 30, types.ChannelSell, 3),
		})
		noon := KeyFor(at(15, 12, 0))
		prices := l.Prices(types.ChannelSell, noon)
		require.Len(t, prices, 1)
		assertDecimal(t, "0.085", prices[0])

		prices = l.Prices(types.ChannelSell, KeyFor(at(15, 12, 30)))
		require.Len(t, prices, 1)
		assertDecimal(t, "-0.03", prices[0])
	})

	t.Run("Rounds To Four Places", func(t *testing.T) {
		l := mustNormalize(t, []types.PricePoint{
			actual(at(15, 9, 30), 30, types.ChannelBuy, 12.345678),
		})
		prices := l.Prices(types.ChannelBuy, KeyFor(at(15, 9, 0)))
		require.Len(t, prices, 1)
		assert.Equal(t, "0.1235", prices[0].String())
	})

	t.Run("Evaluated In Point Location", func(t *testing.T) {
		end := time.Date(2025, time.January, 15, 8, 0, 0, 0, time.UTC)
		l := mustNormalize(t, []types.PricePoint{
			actual(end, 30, types.ChannelBuy, 10),
			actual(end.In(aest), 30, types.ChannelBuy, 20),
		})
		utc := l.Prices(types.ChannelBuy, SlotKey{Date: Date{2025, time.January, 15}, Hour: 7, Minute: 30})
		require.Len(t, utc, 1)
		assertDecimal(t, "0.10", utc[0])
		local := l.Prices(types.ChannelBuy, SlotKey{Date: Date{2025, time.January, 15}, Hour: 17, Minute: 30})
		require.Len(t, local, 1)
		assertDecimal(t, "0.20", local[0])
	})

	t.Run("Forecast Uses Requested Variant", func(t *testing.T) {
		points := []types.PricePoint{
			forecast(at(15, 20, 30), 30, types.ChannelBuy, types.VariantAdvancedPrice(map[types.Variant]float64{
				types.VariantPredicted: 20,
				types.VariantLow:       10,
				types.VariantHigh:      30,
			})),
			forecast(at(15, 21, 0), 30, types.ChannelBuy, types.ScalarAdvancedPrice(15)),
		}
		for variant, want := range map[types.Variant]string{
			"":                     "0.20",
			types.VariantPredicted: "0.20",
			types.VariantLow:       "0.10",
			types.VariantHigh:      "0.30",
		} {
			l, diags, err := Normalize(points, variant)
			require.NoError(t, err)
			assert.Empty(t, diags)
			prices := l.Prices(types.ChannelBuy, KeyFor(at(15, 20, 0)))
			require.Len(t, prices, 1)
			assertDecimal(t, want, prices[0], "variant %q", variant)

			scalar := l.Prices(types.ChannelBuy, KeyFor(at(15, 20, 30)))
			require.Len(t, scalar, 1)
			assertDecimal(t, "0.15", scalar[0])
		}
	})

	t.Run("Actual And Current Ignore Advanced", func(t *testing.T) {
		p := actual(at(15, 20, 30), 30, types.ChannelBuy, 25)
		p.Advanced = types.ScalarAdvancedPrice(99)
		c := p
		c.Kind = types.IntervalKindCurrent
		c.EndTime = at(15, 21, 0)
		l := mustNormalize(t, []types.PricePoint{p, c})
		assertDecimal(t, "0.25", l.Prices(types.ChannelBuy, KeyFor(at(15, 20, 0)))[0])
		assertDecimal(t, "0.25", l.Prices(types.ChannelBuy, KeyFor(at(15, 20, 30)))[0])
	})

	t.Run("Missing Variant Fails", func(t *testing.T) {
		points := []types.PricePoint{
			actual(at(15, 20, 0), 30, types.ChannelBuy, 25),
			forecast(at(15, 20, 30), 30, types.ChannelSell, types.VariantAdvancedPrice(map[types.Variant]float64{
				types.VariantPredicted: -5,
			})),
		}
		_, _, err := Normalize(points, types.VariantHigh)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingVariant))

		var pe *PointError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, 1, pe.Index)
		assert.Equal(t, types.ChannelSell, pe.Channel)
		assert.Equal(t, RuleVariant, pe.Rule)
		assert.Equal(t, types.VariantHigh, pe.Variant)
	})

	t.Run("Forecast Without Advanced Price Fails", func(t *testing.T) {
		_, _, err := Normalize([]types.PricePoint{
			forecast(at(15, 20, 30), 30, types.ChannelBuy, types.AdvancedPrice{}),
		}, types.VariantPredicted)
		assert.ErrorIs(t, err, ErrMissingVariant)
	})

	t.Run("Unknown Variant", func(t *testing.T) {
		_, _, err := Normalize([]types.PricePoint{
			actual(at(15, 20, 30), 30, types.ChannelBuy, 10),
		}, types.Variant("median"))
		assert.ErrorIs(t, err, ErrUnknownVariant)
	})

	t.Run("Skips Malformed Points", func(t *testing.T) {
		unknownKind := actual(at(15, 11, 0), 30, types.ChannelBuy, 10)
		unknownKind.Kind = "SettledInterval"
		points := []types.PricePoint{
			actual(time.Time{}, 30, types.ChannelBuy, 10),
			actual(at(15, 9, 0), 0, types.ChannelBuy, 10),
			actual(at(15, 9, 30), -5, types.ChannelBuy, 10),
			actual(at(15, 10, 0), 30, types.Channel("export"), 10),
			unknownKind,
			actual(at(15, 11, 30), 30, types.ChannelBuy, 10),
		}
		l, diags, err := Normalize(points, types.VariantPredicted)
		require.NoError(t, err)
		assert.Equal(t, 1, l.Accepted())

		require.Len(t, diags, 5)
		rules := make([]Rule, len(diags))
		for i, d := range diags {
			rules[i] = d.Rule
			assert.Equal(t, i, d.Index)
			assert.NotEmpty(t, d.String())
		}
		assert.Equal(t, []Rule{RuleTimestamp, RuleDuration, RuleDuration, RuleChannel, RuleKind}, rules)
	})

	t.Run("Ignores Controlled Load", func(t *testing.T) {
		points := []types.PricePoint{
			actual(at(15, 10, 0), 30, types.ChannelControlledLoad, 10),
			actual(time.Time{}, 30, types.ChannelControlledLoad, 10),
			actual(at(15, 10, 0), 30, types.ChannelBuy, 20),
		}
		l, diags, err := Normalize(points, types.VariantPredicted)
		require.NoError(t, err)
		assert.Empty(t, diags)
		assert.Equal(t, 1, l.Accepted())
		assert.Equal(t, 2, l.Ignored())
		assert.Equal(t, 1, l.Buckets(types.ChannelBuy))
		assert.Nil(t, l.Prices(types.ChannelControlledLoad, KeyFor(at(15, 9, 30))))
	})

	t.Run("Prices Returns Copy", func(t *testing.T) {
		l := mustNormalize(t, []types.PricePoint{
			actual(at(15, 11, 30), 30, types.ChannelBuy, 10),
		})
		key := KeyFor(at(15, 11, 0))
		prices := l.Prices(types.ChannelBuy, key)
		prices[0] = prices[0].Neg()
		assertDecimal(t, "0.10", l.Prices(types.ChannelBuy, key)[0])
		assert.Nil(t, l.Prices(types.ChannelControlledLoad, key))
	})
}

func TestDate(t *testing.T) {
	assert.Equal(t, Date{2025, time.February, 1}, Date{2025, time.January, 31}.AddDays(1))
	assert.Equal(t, Date{2026, time.January, 1}, Date{2025, time.December, 31}.AddDays(1))
	assert.Equal(t, Date{2024, time.February, 29}, Date{2024, time.February, 28}.AddDays(1))
	assert.Equal(t, Date{2024, time.December, 31}, Date{2025, time.January, 1}.AddDays(-1))
	assert.Equal(t, "2025-01-05", Date{2025, time.January, 5}.String())

	k := KeyFor(at(15, 17, 59))
	assert.Equal(t, SlotKey{Date: Date{2025, time.January, 15}, Hour: 17, Minute: 30}, k)
	assert.Equal(t, "2025-01-15 17:30", k.String())
}
