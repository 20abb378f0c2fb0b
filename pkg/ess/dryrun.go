package ess

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tousync/tousync/pkg/log"
	"github.com/tousync/tousync/pkg/types"
)

// DryRun implements System by logging the tariff and remembering the last
// one per site instead of applying it.
type DryRun struct {
	mu   sync.Mutex
	last map[string]types.TariffDocument
}

// NewDryRun creates a new DryRun.
func NewDryRun() *DryRun {
	return &DryRun{
		last: make(map[string]types.TariffDocument),
	}
}

// SetTariff logs the tariff.
func (d *DryRun) SetTariff(ctx context.Context, siteID string, doc types.TariffDocument) error {
	var buy, sell int
	if rates, ok := doc.EnergyCharges[types.SeasonSummer]; ok {
		buy = len(rates.Rates)
	}
	if doc.SellTariff != nil {
		sell = len(doc.SellTariff.EnergyCharges[types.SeasonSummer].Rates)
	}
	log.Ctx(ctx).InfoContext(
		ctx,
		"dry run: not applying tariff",
		slog.String("siteID", siteID),
		slog.String("code", doc.Code),
		slog.Int("buyRates", buy),
		slog.Int("sellRates", sell),
	)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.last[siteID] = doc
	return nil
}

// Last returns the last tariff passed for the site.
func (d *DryRun) Last(siteID string) (types.TariffDocument, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, ok := d.last[siteID]
	return doc, ok
}
