package tips

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/tip-engine/generic"
)

// MatchStrategy selects how tips are paired with bookings.
type MatchStrategy string

const (
	MatchProximity         MatchStrategy = "proximity"
	MatchIdentity          MatchStrategy = "identity"
	MatchIdentityProximity MatchStrategy = "identity+proximity"
)

// Config is everything a distribution run depends on besides its input data.
type Config struct {
	// ExemptEmployees lists full names that never receive tips. Comparison
	// is case-insensitive on the whitespace-normalized name.
	ExemptEmployees []string

	// ProximityThreshold bounds how far a tip may be from a booking's edges
	// and still match it.
	ProximityThreshold time.Duration

	// DefaultBookingDuration replaces missing or non-positive durations.
	DefaultBookingDuration time.Duration

	// Epsilon is the reconciliation tolerance.
	Epsilon decimal.Decimal

	// Location defines calendar days for the pay period and same-day matching.
	Location *time.Location

	Currency generic.Currency
	Matcher  MatchStrategy

	// Workers bounds the allocation worker pool; <= 0 means runtime.NumCPU().
	Workers int
}

func DefaultConfig() Config {
	return Config{
		ProximityThreshold:     3 * time.Hour,
		DefaultBookingDuration: 60 * time.Minute,
		Epsilon:                generic.DefaultEpsilon,
		Location:               time.UTC,
		Currency:               generic.USD,
		Matcher:                MatchProximity,
		Workers:                runtime.NumCPU(),
	}
}

func (c Config) Validate() error {
	if c.ProximityThreshold < 0 {
		return fmt.Errorf("%w: proximity threshold must not be negative", generic.ErrInvalidInput)
	}
	if c.DefaultBookingDuration <= 0 {
		return fmt.Errorf("%w: default booking duration must be positive", generic.ErrInvalidInput)
	}
	if c.Epsilon.IsNegative() {
		return fmt.Errorf("%w: epsilon must not be negative", generic.ErrInvalidInput)
	}
	switch c.Matcher {
	case MatchProximity, MatchIdentity, MatchIdentityProximity, "":
	default:
		return fmt.Errorf("%w: unknown match strategy %q", generic.ErrInvalidInput, c.Matcher)
	}
	return nil
}

// IsExempt reports whether fullName is on the exemption list.
func (c Config) IsExempt(fullName string) bool {
	name := strings.ToLower(normalizeSpaces(fullName))
	for _, exempt := range c.ExemptEmployees {
		if strings.ToLower(normalizeSpaces(exempt)) == name {
			return true
		}
	}
	return false
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (c Config) workers() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

func (c Config) currency() generic.Currency {
	if c.Currency == "" {
		return generic.USD
	}
	return c.Currency
}

func normalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
