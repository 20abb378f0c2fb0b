package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/tousync/tousync/pkg/ess"
	"github.com/tousync/tousync/pkg/log"
	"github.com/tousync/tousync/pkg/metrics"
	"github.com/tousync/tousync/pkg/tariff"
	"github.com/tousync/tousync/pkg/types"
	"github.com/tousync/tousync/pkg/utility"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Controller syncs retailer price forecasts into battery tariffs.
type Controller struct {
	utilities *utility.Map
	systems   *ess.Map
	converter *tariff.Converter
	metrics   *metrics.Metrics

	sitesFile       string
	concurrency     int
	now             string
	metricsTextfile string
	clock           func() time.Time

	mu        sync.Mutex
	siteLocks map[string]*sync.Mutex
}

// New creates a new Controller. m may be nil.
func New(u *utility.Map, e *ess.Map, m *metrics.Metrics) *Controller {
	return &Controller{
		utilities:   u,
		systems:     e,
		converter:   tariff.NewConverter(),
		metrics:     m,
		concurrency: defaultConcurrency,
		clock:       time.Now,
		siteLocks:   make(map[string]*sync.Mutex),
	}
}

// Configured sets up flags for the Controller and returns the instance.
func Configured(u *utility.Map, e *ess.Map) *Controller {
	c := New(u, e, metrics.New())
	sitesFile := lflag.String("sites-file", "sites.yaml", "YAML file listing the sites to sync")
	concurrency := lflag.Int("sync-concurrency", defaultConcurrency, "Maximum number of sites synced at once")
	now := lflag.String("now", "", "RFC3339 time to sync as of instead of the current time")
	textfile := lflag.String("metrics-textfile", "", "If set, write metrics to this file after syncing")

	lflag.Do(func() {
		c.sitesFile = *sitesFile
		c.concurrency = *concurrency
		c.now = *now
		c.metricsTextfile = *textfile
	})

	return c
}

// siteLock returns the lock guarding writes to the site's battery.
func (c *Controller) siteLock(siteID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.siteLocks[siteID]
	if !ok {
		l = new(sync.Mutex)
		c.siteLocks[siteID] = l
	}
	return l
}

// SyncSite fetches the site's price forecast, converts it into a tariff as
// of now and applies it. now is captured once by the caller and used for the
// whole sync.
func (c *Controller) SyncSite(ctx context.Context, settings types.Settings, now time.Time) (types.SyncResult, error) {
	start := time.Now()
	settings = settings.WithDefaults()
	ctx = log.WithAttrs(ctx, slog.String("siteID", settings.SiteID))

	result := types.SyncResult{
		SiteID:   settings.SiteID,
		Now:      now,
		Override: settings.Override,
	}
	fail := func(err error) (types.SyncResult, error) {
		result.Error = err.Error()
		c.metrics.ObserveSync(metrics.ResultError, time.Since(start))
		log.Ctx(ctx).ErrorContext(ctx, "failed to sync site", slog.Any("error", err))
		return result, fmt.Errorf("site %s: %w", settings.SiteID, err)
	}

	if settings.Pause {
		log.Ctx(ctx).InfoContext(ctx, "site is paused, skipping")
		result.Paused = true
		c.metrics.ObserveSync(metrics.ResultPaused, time.Since(start))
		return result, nil
	}
	if err := settings.Validate(); err != nil {
		return fail(err)
	}

	forecaster, err := c.utilities.Forecaster(settings.ForecastProvider)
	if err != nil {
		return fail(err)
	}
	sys, err := c.systems.System(settings.ESS)
	if err != nil {
		return fail(err)
	}

	points, err := forecaster.GetForecast(ctx, settings.SiteID)
	if err != nil {
		return fail(fmt.Errorf("failed to get forecast: %w", err))
	}
	result.Points = len(points)

	loc, err := tariff.ResolveLocation(ctx, settings.Timezone, settings.InferTimezone, points)
	if err != nil {
		return fail(err)
	}
	result.Location = loc.String()
	result.Now = now.In(loc)

	res, err := c.converter.Convert(ctx, points, now, tariff.Options{
		Location: loc,
		Variant:  settings.ForecastVariant,
		Override: settings.Override,
		Currency: settings.Currency,
		Utility:  settings.Utility,
	})
	result.SkippedPoints = len(res.Diagnostics)
	if err != nil {
		return fail(fmt.Errorf("failed to build tariff: %w", err))
	}
	result.DegradedSlots = res.Schedule.Degraded()
	c.metrics.ObserveTariff(settings.SiteID, result.SkippedPoints, result.DegradedSlots)

	lock := c.siteLock(settings.SiteID)
	lock.Lock()
	err = sys.SetTariff(ctx, settings.SiteID, res.Document)
	lock.Unlock()
	if err != nil {
		return fail(fmt.Errorf("failed to set tariff: %w", err))
	}

	outcome := metrics.ResultApplied
	if ess.IsDryRun(sys) {
		result.DryRun = true
		outcome = metrics.ResultDryRun
	} else {
		result.Applied = true
	}
	c.metrics.ObserveSync(outcome, time.Since(start))
	c.metrics.MarkSynced(settings.SiteID, now)

	log.Ctx(ctx).InfoContext(
		ctx,
		"synced site",
		slog.String("code", res.Document.Code),
		slog.Bool("applied", result.Applied),
		slog.Int("skippedPoints", result.SkippedPoints),
		slog.Int("degradedSlots", result.DegradedSlots),
	)
	return result, nil
}

// SyncAll syncs every site as of the same now. A failing site doesn't stop
// the others, all failures are joined into the returned error. Results are in
// the same order as sites.
func (c *Controller) SyncAll(ctx context.Context, sites []types.Settings, now time.Time) ([]types.SyncResult, error) {
	results := make([]types.SyncResult, len(sites))
	errs := make([]error, len(sites))

	var g errgroup.Group
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for i, site := range sites {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = types.SyncResult{SiteID: site.SiteID, Now: now, Error: err.Error()}
				errs[i] = fmt.Errorf("site %s: %w", site.SiteID, err)
				return nil
			}
			results[i], errs[i] = c.SyncSite(ctx, site, now)
			return nil
		})
	}
	// goroutines never return errors, failures are collected in errs
	_ = g.Wait()

	return results, errors.Join(errs...)
}

// syncTime returns the time to sync as of.
func (c *Controller) syncTime() (time.Time, error) {
	if c.now == "" {
		return c.clock(), nil
	}
	t, err := time.Parse(time.RFC3339, c.now)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse now (%s): %w", c.now, err)
	}
	return t, nil
}

// Run loads the sites file and syncs every site once.
func (c *Controller) Run(ctx context.Context) error {
	sites, err := types.LoadSettingsFile(c.sitesFile)
	if err != nil {
		return err
	}
	now, err := c.syncTime()
	if err != nil {
		return err
	}

	log.Ctx(ctx).InfoContext(
		ctx,
		"syncing sites",
		slog.Int("sites", len(sites)),
		slog.Time("now", now),
		slog.Int("concurrency", c.concurrency),
	)
	results, syncErr := c.SyncAll(ctx, sites, now)

	var applied, failed int
	for _, r := range results {
		if r.Error != "" {
			failed++
		} else if r.Applied || r.DryRun {
			applied++
		}
	}
	log.Ctx(ctx).InfoContext(
		ctx,
		"finished syncing sites",
		slog.Int("synced", applied),
		slog.Int("failed", failed),
	)

	if c.metricsTextfile != "" {
		if err := c.metrics.WriteTextfile(c.metricsTextfile); err != nil {
			return errors.Join(syncErr, err)
		}
	}
	return syncErr
}
