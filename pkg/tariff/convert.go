package tariff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tousync/tousync/pkg/log"
	"github.com/tousync/tousync/pkg/types"
)

// Options controls a single conversion.
type Options struct {
	// Location is the zone installed on the battery. Required.
	Location *time.Location
	Variant  types.Variant
	Override types.Override
	Currency string
	Utility  string
}

// Result is the outcome of a conversion.
type Result struct {
	Document    types.TariffDocument
	Schedule    Schedule
	Diagnostics []Diagnostic
	// Accepted is the number of points that contributed a price.
	Accepted int
	// Ignored is the number of controlled load points dropped.
	Ignored int
}

// Converter turns retailer price forecasts into battery tariffs. It holds no
// state and is safe to use from multiple goroutines.
type Converter struct {
}

// NewConverter creates a new Converter.
func NewConverter() *Converter {
	return &Converter{}
}

// Convert builds a complete 48 slot tariff from the price points.
//
// now must be captured once by the caller so that a run is consistent even
// if the clock moves during it. Timestamps are moved into opts.Location
// before anything else so every slot decision happens in the battery's zone.
//
// An empty forecast, a forecast where every point was rejected, or a forecast
// point missing the requested variant fails the conversion rather than
// returning a degraded tariff.
func (c *Converter) Convert(ctx context.Context, points []types.PricePoint, now time.Time, opts Options) (Result, error) {
	if len(points) == 0 {
		return Result{}, ErrEmptyForecast
	}
	if opts.Location == nil {
		return Result{}, ErrNoTimezone
	}
	if !opts.Override.Valid() {
		return Result{}, fmt.Errorf("unknown override: %q", opts.Override)
	}

	local := make([]types.PricePoint, len(points))
	for i, p := range points {
		if !p.EndTime.IsZero() {
			p.EndTime = p.EndTime.In(opts.Location)
		}
		local[i] = p
	}
	now = now.In(opts.Location)

	log.Ctx(ctx).DebugContext(
		ctx,
		"converting price forecast to tariff",
		slog.Int("points", len(points)),
		slog.Time("now", now),
		slog.String("location", opts.Location.String()),
		slog.String("variant", string(opts.Variant)),
	)

	lookup, diags, err := Normalize(local, opts.Variant)
	for _, d := range diags {
		log.Ctx(ctx).WarnContext(
			ctx,
			"skipping price point",
			slog.Int("index", d.Index),
			slog.Time("endTime", d.EndTime),
			slog.String("channel", string(d.Channel)),
			slog.String("rule", string(d.Rule)),
			slog.String("detail", d.Detail),
		)
	}
	if err != nil {
		var pe *PointError
		if errors.As(err, &pe) {
			log.Ctx(ctx).ErrorContext(
				ctx,
				"forecast point missing variant",
				slog.Int("index", pe.Index),
				slog.Time("endTime", pe.EndTime),
				slog.String("channel", string(pe.Channel)),
				slog.String("variant", string(pe.Variant)),
			)
		}
		return Result{Diagnostics: diags}, fmt.Errorf("failed to normalize prices: %w", err)
	}
	if lookup.Ignored() > 0 {
		log.Ctx(ctx).DebugContext(ctx, "ignoring controlled load prices", slog.Int("points", lookup.Ignored()))
	}
	if lookup.Accepted() == 0 {
		return Result{Diagnostics: diags}, fmt.Errorf("%w: all %d points were skipped", ErrNoUsablePoints, len(points))
	}

	schedule := BuildSchedule(lookup, now)
	for _, slot := range schedule {
		if !slot.Degraded() {
			if slot.BuyFallback || slot.SellFallback {
				log.Ctx(ctx).DebugContext(
					ctx,
					"slot used same-day fallback",
					slog.String("period", slot.Key()),
					slog.Bool("buy", slot.BuyFallback),
					slog.Bool("sell", slot.SellFallback),
				)
			}
			continue
		}
		log.Ctx(ctx).WarnContext(
			ctx,
			"no price data for slot, using zero",
			slog.String("period", slot.Key()),
			slog.String("date", slot.Date.String()),
			slog.Bool("buyMissing", slot.BuyMissing),
			slog.Bool("sellMissing", slot.SellMissing),
		)
	}

	if schedule.MissingBuy() == SlotsPerDay {
		log.Ctx(ctx).ErrorContext(
			ctx,
			"no buy price for any slot in the window, buy rates are all zero",
			slog.Int("accepted", lookup.Accepted()),
			slog.String("today", DateOf(now).String()),
		)
	}

	if opts.Override != types.OverrideNone {
		log.Ctx(ctx).InfoContext(ctx, "applying manual override", slog.String("override", string(opts.Override)))
		schedule = ApplyOverride(schedule, opts.Override)
	}

	doc := schedule.Document(DocumentOptions{
		Currency: opts.Currency,
		Utility:  opts.Utility,
		Override: opts.Override,
	})

	log.Ctx(ctx).InfoContext(
		ctx,
		"built rolling tariff",
		slog.Int("accepted", lookup.Accepted()),
		slog.Int("skipped", len(diags)),
		slog.Int("degradedSlots", schedule.Degraded()),
		slog.String("today", DateOf(now).String()),
	)

	return Result{
		Document:    doc,
		Schedule:    schedule,
		Diagnostics: diags,
		Accepted:    lookup.Accepted(),
		Ignored:     lookup.Ignored(),
	}, nil
}
