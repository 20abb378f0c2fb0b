package tariff

import (
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/tousync/tousync/pkg/log"
	"github.com/tousync/tousync/pkg/types"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}

// aest has no DST which keeps expected slot times obvious
var aest = time.FixedZone("AEST", 10*60*60)

func at(day, hour, minute int) time.Time {
	return time.Date(2025, time.January, day, hour, minute, 0, 0, aest)
}

func actual(end time.Time, duration int, ch types.Channel, cents float64) types.PricePoint {
	return types.PricePoint{
		EndTime:         end,
		DurationMinutes: duration,
		Channel:         ch,
		Kind:            types.IntervalKindActual,
		CentsPerKWH:     cents,
	}
}

func forecast(end time.Time, duration int, ch types.Channel, adv types.AdvancedPrice) types.PricePoint {
	return types.PricePoint{
		EndTime:         end,
		DurationMinutes: duration,
		Channel:         ch,
		Kind:            types.IntervalKindForecast,
		// never used for forecast points
		CentsPerKWH: 999,
		Advanced:    adv,
	}
}

// fullDay returns one 30 minute point per slot of the given day for the
// channel, all at the same price.
func fullDay(day int, ch types.Channel, cents float64) []types.PricePoint {
	var points []types.PricePoint
	for i := 0; i < SlotsPerDay; i++ {
		hour, minute := slotTime(i)
		start := at(day, hour, minute)
		points = append(points, actual(start.Add(30*time.Minute), 30, ch, cents))
	}
	return points
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), append([]any{"want %s got %s", want, got.String()}, msgAndArgs...)...)
}

func mustNormalize(t *testing.T, points []types.PricePoint) Lookup {
	t.Helper()
	l, diags, err := Normalize(points, types.VariantPredicted)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	return l
}
