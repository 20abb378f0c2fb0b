package utility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/tousync/tousync/pkg/log"
	"github.com/tousync/tousync/pkg/types"
)

// AmberFileProvider is the name AmberFile is registered under.
const AmberFileProvider = "amber_file"

// AmberFile implements Forecaster by reading Amber prices responses that were
// saved to <dir>/<siteID>.json by whatever fetches them.
type AmberFile struct {
	dir string

	mu    sync.Mutex
	cache map[string]amberFileCache
}

type amberFileCache struct {
	modTime time.Time
	size    int64
	points  []types.PricePoint
}

// NewAmberFile returns an AmberFile reading from dir.
func NewAmberFile(dir string) *AmberFile {
	return &AmberFile{
		dir:   dir,
		cache: make(map[string]amberFileCache),
	}
}

// configuredAmberFile sets up flags for AmberFile and returns the instance.
func configuredAmberFile() *AmberFile {
	a := NewAmberFile("")
	dir := lflag.String("forecast-dir", "", "Directory containing <siteID>.json Amber price responses")

	lflag.Do(func() {
		a.dir = *dir
	})

	return a
}

// Validate ensures the configuration is valid.
func (a *AmberFile) Validate() error {
	if a.dir == "" {
		return errors.New("forecast-dir is required")
	}
	fi, err := os.Stat(a.dir)
	if err != nil {
		return fmt.Errorf("failed to stat forecast-dir (%s): %w", a.dir, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("forecast-dir (%s) is not a directory", a.dir)
	}
	return nil
}

// GetForecast returns the points in the site's file. The decoded points are
// cached until the file changes so callers must not modify them.
func (a *AmberFile) GetForecast(ctx context.Context, siteID string) ([]types.PricePoint, error) {
	if siteID == "" || filepath.Base(siteID) != siteID {
		return nil, fmt.Errorf("invalid site id: %q", siteID)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	path := filepath.Join(a.dir, siteID+".json")

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open forecast for site %s: %w", siteID, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat forecast for site %s: %w", siteID, err)
	}

	a.mu.Lock()
	cached, ok := a.cache[siteID]
	a.mu.Unlock()
	if ok && cached.modTime.Equal(fi.ModTime()) && cached.size == fi.Size() {
		log.Ctx(ctx).DebugContext(ctx, "using cached forecast", slog.String("path", path))
		return cached.points, nil
	}

	points, err := DecodeAmberPrices(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to read forecast %s: %w", path, err)
	}
	log.Ctx(ctx).DebugContext(
		ctx,
		"read forecast",
		slog.String("path", path),
		slog.Int("points", len(points)),
		slog.Time("modTime", fi.ModTime()),
	)

	a.mu.Lock()
	a.cache[siteID] = amberFileCache{
		modTime: fi.ModTime(),
		size:    fi.Size(),
		points:  points,
	}
	a.mu.Unlock()

	return points, nil
}
