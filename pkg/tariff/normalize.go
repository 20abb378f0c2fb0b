package tariff

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"github.com/tousync/tousync/pkg/types"
)

// pricePlaces is the precision the battery controller keeps for prices.
const pricePlaces = 4

var centsPerDollar = decimal.NewFromInt(100)

// Lookup holds every observed $/kWh price keyed by half-hour bucket, split by
// channel. It is built once by Normalize and never modified afterwards.
type Lookup struct {
	buy      map[SlotKey][]decimal.Decimal
	sell     map[SlotKey][]decimal.Decimal
	accepted int
	ignored  int
}

// Prices returns the prices observed in the bucket, in input order.
func (l Lookup) Prices(ch types.Channel, key SlotKey) []decimal.Decimal {
	switch ch {
	case types.ChannelBuy:
		return slices.Clone(l.buy[key])
	case types.ChannelSell:
		return slices.Clone(l.sell[key])
	}
	return nil
}

// Accepted returns how many price points made it into the lookup.
func (l Lookup) Accepted() int {
	return l.accepted
}

// Ignored returns how many controlled load points were dropped. They are
// expected in a forecast and aren't reported as diagnostics.
func (l Lookup) Ignored() int {
	return l.ignored
}

// Buckets returns how many distinct buckets have data for the channel.
func (l Lookup) Buckets(ch types.Channel) int {
	switch ch {
	case types.ChannelBuy:
		return len(l.buy)
	case types.ChannelSell:
		return len(l.sell)
	}
	return 0
}

func (l Lookup) bucket(ch types.Channel, key SlotKey) []decimal.Decimal {
	if ch == types.ChannelSell {
		return l.sell[key]
	}
	return l.buy[key]
}

// Normalize buckets raw price points into half-hour slots.
//
// Each point is placed by its interval start (end minus its own duration)
// in the location of its EndTime; callers convert timestamps to the site's
// zone before calling. Sell prices are negated so that a positive value is
// what the site receives. Prices are converted from cents to dollars and
// rounded to 4 places.
//
// Controlled load points are dropped and only counted. Malformed points are
// skipped and reported as diagnostics. A forecast point
// without the requested variant fails the whole run with a *PointError since
// substituting another price would mix actual and forecast semantics. An
// empty variant means predicted.
func Normalize(points []types.PricePoint, variant types.Variant) (Lookup, []Diagnostic, error) {
	variant, err := types.ParseVariant(string(variant))
	if err != nil {
		return Lookup{}, nil, fmt.Errorf("%w: %w", ErrUnknownVariant, err)
	}

	l := Lookup{
		buy:  make(map[SlotKey][]decimal.Decimal),
		sell: make(map[SlotKey][]decimal.Decimal),
	}
	var diags []Diagnostic
	for i, p := range points {
		skip := func(rule Rule, format string, args ...any) {
			diags = append(diags, Diagnostic{
				Index:   i,
				EndTime: p.EndTime,
				Channel: p.Channel,
				Rule:    rule,
				Detail:  fmt.Sprintf(format, args...),
			})
		}

		if p.Channel == types.ChannelControlledLoad {
			l.ignored++
			continue
		}
		if p.EndTime.IsZero() {
			skip(RuleTimestamp, "missing or malformed end timestamp")
			continue
		}
		if p.DurationMinutes <= 0 {
			skip(RuleDuration, "non-positive duration %d", p.DurationMinutes)
			continue
		}
		if !p.Channel.Valid() {
			skip(RuleChannel, "unsupported channel %q", p.Channel)
			continue
		}

		var cents float64
		switch p.Kind {
		case types.IntervalKindForecast:
			c, ok := p.Advanced.Resolve(variant)
			if !ok {
				return Lookup{}, diags, &PointError{
					Index:   i,
					EndTime: p.EndTime,
					Channel: p.Channel,
					Rule:    RuleVariant,
					Variant: variant,
				}
			}
			cents = c
		case types.IntervalKindActual, types.IntervalKindCurrent:
			cents = p.CentsPerKWH
		default:
			skip(RuleKind, "unknown interval kind %q", p.Kind)
			continue
		}

		price := decimal.NewFromFloat(cents)
		if p.Channel == types.ChannelSell {
			price = price.Neg()
		}
		price = price.Div(centsPerDollar).Round(pricePlaces)

		key := KeyFor(p.StartTime())
		if p.Channel == types.ChannelSell {
			l.sell[key] = append(l.sell[key], price)
		} else {
			l.buy[key] = append(l.buy[key], price)
		}
		l.accepted++
	}
	return l, diags, nil
}
