package types

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Override forces the battery to charge or discharge regardless of pricing.
type Override string

const (
	OverrideNone      Override = ""
	OverrideCharge    Override = "charge"
	OverrideDischarge Override = "discharge"
)

// Valid returns true if the override is known.
func (o Override) Valid() bool {
	switch o {
	case OverrideNone, OverrideCharge, OverrideDischarge:
		return true
	}
	return false
}

// Settings represents the sync configuration for a single battery site.
type Settings struct {
	// SiteID is the battery controller's energy site identifier.
	SiteID string `yaml:"siteID" json:"siteID"`

	// Pause skips the site without failing the run.
	Pause bool `yaml:"pause" json:"pause"`

	// Timezone is the IANA zone installed on the battery. Slot-of-day
	// decisions are made in this zone.
	Timezone string `yaml:"timezone" json:"timezone"`
	// InferTimezone allows falling back to the offset of the price feed when
	// Timezone is empty. This is fragile and only kept for legacy sites.
	InferTimezone bool `yaml:"inferTimezone" json:"inferTimezone"`

	// ForecastVariant selects which forecast scenario prices to trust.
	ForecastVariant Variant  `yaml:"forecastVariant" json:"forecastVariant"`
	Override        Override `yaml:"override" json:"override"`

	Currency string `yaml:"currency" json:"currency"`
	Utility  string `yaml:"utility" json:"utility"`

	// ForecastProvider is the name of the price source.
	ForecastProvider string `yaml:"forecastProvider" json:"forecastProvider"`
	// ESS is the name of the system the tariff is applied to.
	ESS string `yaml:"ess" json:"ess"`
}

// WithDefaults returns a copy of the settings with empty fields defaulted.
func (s Settings) WithDefaults() Settings {
	if s.ForecastVariant == "" {
		s.ForecastVariant = VariantPredicted
	}
	if s.Currency == "" {
		s.Currency = "AUD"
	}
	if s.Utility == "" {
		s.Utility = "Amber Electric"
	}
	if s.ForecastProvider == "" {
		s.ForecastProvider = "amber_file"
	}
	if s.ESS == "" {
		s.ESS = "file"
	}
	return s
}

// Validate checks that the settings are usable.
func (s Settings) Validate() error {
	if s.SiteID == "" {
		return errors.New("siteID is required")
	}
	if s.Timezone == "" && !s.InferTimezone {
		return fmt.Errorf("site %s: timezone is required", s.SiteID)
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("site %s: invalid timezone %q: %w", s.SiteID, s.Timezone, err)
		}
	}
	if _, err := ParseVariant(string(s.ForecastVariant)); err != nil {
		return fmt.Errorf("site %s: %w", s.SiteID, err)
	}
	if !s.Override.Valid() {
		return fmt.Errorf("site %s: unknown override: %q", s.SiteID, s.Override)
	}
	return nil
}

// SitesFile is the on-disk list of sites to sync.
type SitesFile struct {
	Sites []Settings `yaml:"sites"`
}

// LoadSettingsFile reads, defaults and validates every site in a YAML file.
func LoadSettingsFile(path string) ([]Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sites file (%s): %w", path, err)
	}
	return ParseSettings(raw)
}

// ParseSettings decodes the YAML sites file. Unknown fields are rejected so
// typos don't silently fall back to defaults.
func ParseSettings(raw []byte) ([]Settings, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var f SitesFile
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode sites file: %w", err)
	}
	if len(f.Sites) == 0 {
		return nil, errors.New("no sites configured")
	}

	seen := make(map[string]bool, len(f.Sites))
	sites := make([]Settings, 0, len(f.Sites))
	for _, s := range f.Sites {
		s = s.WithDefaults()
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if seen[s.SiteID] {
			return nil, fmt.Errorf("duplicate site: %s", s.SiteID)
		}
		seen[s.SiteID] = true
		sites = append(sites, s)
	}
	return sites, nil
}
