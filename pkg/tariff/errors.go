package tariff

import (
	"errors"
	"fmt"
	"time"

	"github.com/tousync/tousync/pkg/types"
)

var (
	// ErrEmptyForecast is returned when there are no price points at all.
	ErrEmptyForecast = errors.New("empty price forecast")
	// ErrNoUsablePoints is returned when every price point was rejected.
	ErrNoUsablePoints = errors.New("no usable price points")
	// ErrMissingVariant is returned when a forecast point doesn't carry the
	// requested forecast variant.
	ErrMissingVariant = errors.New("forecast variant missing")
	// ErrUnknownVariant is returned for a variant name that doesn't exist.
	ErrUnknownVariant = errors.New("unknown forecast variant")
	// ErrNoTimezone is returned when no timezone was configured and none may
	// be inferred.
	ErrNoTimezone = errors.New("no timezone configured")
)

// Rule names the check a price point failed.
type Rule string

const (
	RuleTimestamp Rule = "timestamp"
	RuleDuration  Rule = "duration"
	RuleChannel   Rule = "channel"
	RuleKind      Rule = "kind"
	RuleVariant   Rule = "variant"
)

// Diagnostic records a price point that was skipped.
type Diagnostic struct {
	Index   int
	EndTime time.Time
	Channel types.Channel
	Rule    Rule
	Detail  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("point %d (%s %s): %s: %s", d.Index, d.Channel, d.EndTime.Format(time.RFC3339), d.Rule, d.Detail)
}

// PointError is a price point problem that fails the whole conversion.
type PointError struct {
	Index   int
	EndTime time.Time
	Channel types.Channel
	Rule    Rule
	Variant types.Variant
}

func (e *PointError) Error() string {
	return fmt.Sprintf(
		"point %d (%s ending %s): %s rule: variant %q not present",
		e.Index,
		e.Channel,
		e.EndTime.Format(time.RFC3339),
		e.Rule,
		e.Variant,
	)
}

// Unwrap allows errors.Is(err, ErrMissingVariant).
func (e *PointError) Unwrap() error {
	return ErrMissingVariant
}
