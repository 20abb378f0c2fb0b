package utility

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/tousync/tousync/pkg/log"
	"github.com/tousync/tousync/pkg/types"
)

// amberPriceEntry is one element of the Amber prices endpoint response.
type amberPriceEntry struct {
	Type          string          `json:"type"`
	Duration      int             `json:"duration"`
	EndTime       string          `json:"endTime"`
	NEMTime       string          `json:"nemTime"`
	ChannelType   string          `json:"channelType"`
	PerKWH        float64         `json:"perKwh"`
	AdvancedPrice json.RawMessage `json:"advancedPrice"`
}

// amberAdvancedPrice is the object form of advancedPrice. Fields are
// pointers so a scenario missing from the payload stays missing.
type amberAdvancedPrice struct {
	Predicted *float64 `json:"predicted"`
	Low       *float64 `json:"low"`
	High      *float64 `json:"high"`
}

// DecodeAmberPrices decodes an Amber prices response into price points.
//
// Only the outer array is required to be well formed. An entry that can't be
// decoded, or a forecast entry with an unreadable advancedPrice, is logged and
// returned with a zero EndTime so the tariff converter skips and counts it.
// Unparseable timestamps are also returned as a zero EndTime and unsupported
// channels or kinds are passed through as-is.
func DecodeAmberPrices(ctx context.Context, r io.Reader) ([]types.PricePoint, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode amber prices: %w", err)
	}

	points := make([]types.PricePoint, 0, len(raw))
	for i, b := range raw {
		var e amberPriceEntry
		if err := json.Unmarshal(b, &e); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "malformed amber price entry", slog.Int("index", i), slog.Any("error", err))
			points = append(points, types.PricePoint{})
			continue
		}

		p := types.PricePoint{
			EndTime:         parseAmberTime(e.EndTime, e.NEMTime),
			DurationMinutes: e.Duration,
			Channel:         types.Channel(e.ChannelType),
			Kind:            types.IntervalKind(e.Type),
			CentsPerKWH:     e.PerKWH,
		}
		adv, err := decodeAdvancedPrice(e.AdvancedPrice)
		if err != nil {
			log.Ctx(ctx).WarnContext(
				ctx,
				"malformed amber advancedPrice",
				slog.Int("index", i),
				slog.String("type", e.Type),
				slog.Any("error", err),
			)
			// only forecast points read advancedPrice
			if p.Kind == types.IntervalKindForecast {
				p.EndTime = time.Time{}
			}
		}
		p.Advanced = adv
		points = append(points, p)
	}
	return points, nil
}

// parseAmberTime prefers endTime and falls back to nemTime for older
// payloads. The offset in the string is preserved.
func parseAmberTime(endTime, nemTime string) time.Time {
	s := endTime
	if s == "" {
		s = nemTime
	}
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// decodeAdvancedPrice accepts a bare number or a {predicted, low, high}
// object. Absent or null means no forecast price.
func decodeAdvancedPrice(raw json.RawMessage) (types.AdvancedPrice, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return types.AdvancedPrice{}, nil
	}

	if raw[0] != '{' {
		var scalar float64
		if err := json.Unmarshal(raw, &scalar); err != nil {
			return types.AdvancedPrice{}, err
		}
		return types.ScalarAdvancedPrice(scalar), nil
	}

	var obj amberAdvancedPrice
	if err := json.Unmarshal(raw, &obj); err != nil {
		return types.AdvancedPrice{}, err
	}
	variants := make(map[types.Variant]float64, 3)
	if obj.Predicted != nil {
		variants[types.VariantPredicted] = *obj.Predicted
	}
	if obj.Low != nil {
		variants[types.VariantLow] = *obj.Low
	}
	if obj.High != nil {
		variants[types.VariantHigh] = *obj.High
	}
	return types.VariantAdvancedPrice(variants), nil
}
