/*
matcher.go - Pairing tip events with bookings

PURPOSE:
  A tip is paid at checkout. To know who served the customer we look for the
  booking the payment belongs to. Matching is a strategy so that the
  allocator never depends on how a booking was found.

STRATEGIES:
  ProximityMatcher (default):
    Time only, customer identity is ignored because names and emails from
    the booking and point-of-sale systems do not join reliably.
    1. Containment: first booking, in list order, whose [Start, End]
       contains the payment instant.
    2. Nearest: otherwise the booking whose nearer edge is closest to the
       payment, if that distance is strictly below the threshold. Equal
       distances keep the earlier booking in list order.
    3. Otherwise no match.

  IdentityMatcher:
    Same-day email match, then same-day name match (any name token of at
    least three letters equal to, or a substring of, a token on the other
    side). First match in list order wins.

  ChainMatcher:
    Tries strategies in order and returns the first match.

SEE ALSO:
  - allocator.go: Consumes the matched booking
  - config.go: MatchStrategy selects the matcher
*/
package tips

import (
	"strings"
	"time"

	"github.com/warp/tip-engine/generic"
)

// Matcher finds the booking a tip event belongs to, or nil.
type Matcher interface {
	Match(event TipEvent, bookings *BookingIndex) *Booking
}

// NewMatcher builds the matcher for cfg.Matcher.
func NewMatcher(cfg Config) Matcher {
	proximity := ProximityMatcher{Threshold: cfg.ProximityThreshold}
	identity := IdentityMatcher{Location: cfg.location()}
	switch cfg.Matcher {
	case MatchIdentity:
		return identity
	case MatchIdentityProximity:
		return ChainMatcher{identity, proximity}
	default:
		return proximity
	}
}

// =============================================================================
// PROXIMITY
// =============================================================================

type ProximityMatcher struct {
	Threshold time.Duration
}

func (m ProximityMatcher) Match(event TipEvent, bookings *BookingIndex) *Booking {
	if bookings == nil {
		return nil
	}
	list := bookings.Bookings()
	var (
		closest  *Booking
		smallest time.Duration
	)
	for i := range list {
		b := &list[i]
		dist := b.Interval().DistanceTo(event.Timestamp)
		if dist == 0 {
			return b
		}
		if dist < m.Threshold && (closest == nil || dist < smallest) {
			closest = b
			smallest = dist
		}
	}
	return closest
}

// =============================================================================
// IDENTITY
// =============================================================================

type IdentityMatcher struct {
	Location *time.Location
}

func (m IdentityMatcher) Match(event TipEvent, bookings *BookingIndex) *Booking {
	if bookings == nil {
		return nil
	}
	loc := m.Location
	if loc == nil {
		loc = time.UTC
	}
	list := bookings.Bookings()

	if email := event.Customer.Email; email != "" {
		for i := range list {
			b := &list[i]
			if b.Customer.Email == email && generic.SameDay(b.Start, event.Timestamp, loc) {
				return b
			}
		}
	}

	if event.Customer.Name != "" {
		for i := range list {
			b := &list[i]
			if generic.SameDay(b.Start, event.Timestamp, loc) && namesMatch(event.Customer.Name, b.Customer.Name) {
				return b
			}
		}
	}
	return nil
}

func namesMatch(a, b string) bool {
	left := strings.Fields(strings.ToLower(a))
	right := strings.Fields(strings.ToLower(b))
	for _, l := range left {
		if len(l) < 3 {
			continue
		}
		for _, r := range right {
			if len(r) < 3 {
				continue
			}
			if strings.Contains(l, r) || strings.Contains(r, l) {
				return true
			}
		}
	}
	return false
}

// =============================================================================
// CHAIN
// =============================================================================

type ChainMatcher []Matcher

func (c ChainMatcher) Match(event TipEvent, bookings *BookingIndex) *Booking {
	for _, m := range c {
		if b := m.Match(event, bookings); b != nil {
			return b
		}
	}
	return nil
}
