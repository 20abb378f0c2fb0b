package utility

import (
	"context"
	"fmt"
	"sync"

	"github.com/tousync/tousync/pkg/types"
)

// Forecaster defines the interface for a price forecast source.
type Forecaster interface {
	// GetForecast returns the current price forecast for the site. Points may
	// mix resolutions and channels and are not necessarily sorted.
	GetForecast(ctx context.Context, siteID string) ([]types.PricePoint, error)
}

// Configured sets up the forecast providers and returns a Map.
func Configured() *Map {
	m := NewMap()
	m.SetForecaster(AmberFileProvider, configuredAmberFile())
	return m
}

// Map manages forecast providers by name.
type Map struct {
	mu          sync.Mutex
	forecasters map[string]Forecaster
}

// NewMap creates a new forecaster Map.
func NewMap() *Map {
	return &Map{
		forecasters: make(map[string]Forecaster),
	}
}

// Forecaster returns the provider registered under name.
func (m *Map) Forecaster(name string) (Forecaster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f, ok := m.forecasters[name]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("unknown forecast provider: %s", name)
}

// SetForecaster registers the provider for the given name. This is also used
// for testing.
func (m *Map) SetForecaster(name string, f Forecaster) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forecasters[name] = f
}
