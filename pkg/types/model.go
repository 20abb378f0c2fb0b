package types

import "time"

// SyncResult describes what happened when syncing one site.
type SyncResult struct {
	SiteID   string    `json:"siteID"`
	Now      time.Time `json:"now"`
	Location string    `json:"location"`

	// Points is how many price points the forecast source returned.
	Points int `json:"points"`
	// SkippedPoints were rejected individually as malformed.
	SkippedPoints int `json:"skippedPoints"`
	// DegradedSlots had no price data and were emitted as zero.
	DegradedSlots int `json:"degradedSlots"`

	Override Override `json:"override,omitempty"`
	Applied  bool     `json:"applied"`
	DryRun   bool     `json:"dryRun,omitempty"`
	Paused   bool     `json:"paused,omitempty"`
	Error    string   `json:"error,omitempty"`
}
