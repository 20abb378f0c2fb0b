package ess

import (
	"context"
	"fmt"
	"sync"

	"github.com/levenlabs/go-lflag"
	"github.com/tousync/tousync/pkg/types"
)

const (
	// FileSystem is the name File is registered under.
	FileSystem = "file"
	// DryRunSystem is the name DryRun is registered under.
	DryRunSystem = "dry_run"
)

// System defines the interface for a battery that accepts time-of-use
// tariffs.
type System interface {
	// SetTariff replaces the site's tariff with doc. Callers must not call it
	// concurrently for the same site.
	SetTariff(ctx context.Context, siteID string, doc types.TariffDocument) error
}

// Envelope wraps the document in the body the controller's
// time_of_use_settings endpoint accepts.
func Envelope(doc types.TariffDocument) types.TariffEnvelope {
	return types.TariffEnvelope{
		TOUSettings: types.TOUSettings{TariffContentV2: doc},
	}
}

// Configured sets up the ESS systems and returns a Map. With --dry-run every
// site gets the dry run system regardless of its settings.
func Configured() *Map {
	m := NewMap()
	m.SetSystem(FileSystem, configuredFile())
	m.SetSystem(DryRunSystem, NewDryRun())

	dryRun := lflag.Bool("dry-run", false, "Build tariffs but don't apply them")
	lflag.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.dryRun = *dryRun
	})
	return m
}

// Map manages ESS systems by name.
type Map struct {
	mu      sync.Mutex
	systems map[string]System
	dryRun  bool
}

// NewMap creates a new ESS Map.
func NewMap() *Map {
	return &Map{
		systems: make(map[string]System),
	}
}

// System returns the system registered under name, or the dry run system
// if the map is in dry run mode.
func (m *Map) System(name string) (System, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dryRun {
		name = DryRunSystem
	}
	if sys, ok := m.systems[name]; ok {
		return sys, nil
	}
	return nil, fmt.Errorf("unknown ess: %s", name)
}

// SetSystem registers the system for the given name. This is also used for
// testing.
func (m *Map) SetSystem(name string, sys System) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.systems[name] = sys
}

// SetDryRun forces every lookup to return the dry run system.
func (m *Map) SetDryRun(dryRun bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dryRun = dryRun
}

// IsDryRun returns true if sys doesn't apply tariffs.
func IsDryRun(sys System) bool {
	_, ok := sys.(*DryRun)
	return ok
}
