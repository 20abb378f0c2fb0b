package tariff

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tousync/tousync/pkg/log"
	"github.com/tousync/tousync/pkg/types"
)

// ResolveLocation returns the zone slot-of-day decisions are made in. tz
// should be the zone installed on the battery. If it is empty and infer is
// set, the fixed offset of the first timestamped point is used instead which
// is wrong whenever the feed reports in a different offset than the battery.
func ResolveLocation(ctx context.Context, tz string, infer bool, points []types.PricePoint) (*time.Location, error) {
	if tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("failed to load timezone %s: %w", tz, err)
		}
		return loc, nil
	}
	if !infer {
		return nil, ErrNoTimezone
	}

	for _, p := range points {
		if p.EndTime.IsZero() {
			continue
		}
		name, offset := p.EndTime.Zone()
		if name == "" {
			name = p.EndTime.Format("-07:00")
		}
		loc := time.FixedZone(name, offset)
		log.Ctx(ctx).WarnContext(
			ctx,
			"inferring timezone from price feed, configure the battery's timezone instead",
			slog.String("zone", name),
			slog.Int("offsetSeconds", offset),
		)
		return loc, nil
	}
	return nil, fmt.Errorf("%w: no timestamped points to infer from", ErrNoTimezone)
}
