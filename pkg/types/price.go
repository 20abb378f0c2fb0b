package types

import (
	"fmt"
	"time"
)

// Channel identifies which side of the meter a price applies to.
type Channel string

const (
	// ChannelBuy is general consumption, what the site pays to import.
	ChannelBuy Channel = "general"
	// ChannelSell is feed-in, what the site receives to export.
	ChannelSell Channel = "feedIn"
	// ChannelControlledLoad is a separately metered load such as a hot water
	// circuit. The battery never sees it so it is not part of the tariff.
	ChannelControlledLoad Channel = "controlledLoad"
)

// Valid returns true if the channel is one the tariff understands.
func (c Channel) Valid() bool {
	return c == ChannelBuy || c == ChannelSell
}

// IntervalKind describes whether a price point is settled, live or forecast.
type IntervalKind string

const (
	IntervalKindActual   IntervalKind = "ActualInterval"
	IntervalKindCurrent  IntervalKind = "CurrentInterval"
	IntervalKindForecast IntervalKind = "ForecastInterval"
)

// Valid returns true if the kind is known.
func (k IntervalKind) Valid() bool {
	switch k {
	case IntervalKindActual, IntervalKindCurrent, IntervalKindForecast:
		return true
	}
	return false
}

// Variant names one forecast scenario of a ForecastInterval point.
type Variant string

const (
	VariantPredicted Variant = "predicted"
	VariantLow       Variant = "low"
	VariantHigh      Variant = "high"
)

// ParseVariant parses a forecast variant name. An empty string is the
// predicted variant.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case "":
		return VariantPredicted, nil
	case VariantPredicted, VariantLow, VariantHigh:
		return Variant(s), nil
	}
	return "", fmt.Errorf("unknown forecast variant: %q", s)
}

type advancedPriceKind uint8

const (
	advancedPriceNone advancedPriceKind = iota
	advancedPriceScalar
	advancedPriceByVariant
)

// AdvancedPrice is the forecast price carried by a ForecastInterval point. The
// feed sends either a single number (older payloads) or a map of scenario to
// price. The zero value carries no forecast price at all.
type AdvancedPrice struct {
	kind     advancedPriceKind
	scalar   float64
	variants map[Variant]float64
}

// ScalarAdvancedPrice returns an AdvancedPrice holding a single forecast value
// that is used for every variant.
func ScalarAdvancedPrice(centsPerKWH float64) AdvancedPrice {
	return AdvancedPrice{kind: advancedPriceScalar, scalar: centsPerKWH}
}

// VariantAdvancedPrice returns an AdvancedPrice holding one value per scenario.
func VariantAdvancedPrice(centsPerKWH map[Variant]float64) AdvancedPrice {
	m := make(map[Variant]float64, len(centsPerKWH))
	for k, v := range centsPerKWH {
		m[k] = v
	}
	return AdvancedPrice{kind: advancedPriceByVariant, variants: m}
}

// IsZero returns true if no forecast price is present.
func (a AdvancedPrice) IsZero() bool {
	return a.kind == advancedPriceNone
}

// Resolve returns the cents/kWh for the given variant. The bool is false when
// the variant is not available.
func (a AdvancedPrice) Resolve(v Variant) (float64, bool) {
	switch a.kind {
	case advancedPriceScalar:
		return a.scalar, true
	case advancedPriceByVariant:
		c, ok := a.variants[v]
		return c, ok
	}
	return 0, false
}

// PricePoint is a single sample of a retailer's price feed.
type PricePoint struct {
	// EndTime is the instant the interval concludes, NOT its start.
	EndTime         time.Time    `json:"endTime"`
	DurationMinutes int          `json:"duration"`
	Channel         Channel      `json:"channelType"`
	Kind            IntervalKind `json:"type"`

	// CentsPerKWH is the settled or live price. Feed-in uses the feed's
	// convention where negative means the site is paid.
	CentsPerKWH float64 `json:"perKwh"`

	// Advanced is only meaningful for ForecastInterval points.
	Advanced AdvancedPrice `json:"-"`
}

// StartTime returns the start of the interval using this point's own duration.
func (p PricePoint) StartTime() time.Time {
	return p.EndTime.Add(-time.Duration(p.DurationMinutes) * time.Minute)
}
