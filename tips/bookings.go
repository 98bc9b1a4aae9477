package tips

import (
	"time"

	"github.com/warp/tip-engine/generic"
)

// BookingStats counts how raw bookings were filtered.
type BookingStats struct {
	Rows              int
	MissingStart      int
	OutOfPeriod       int
	DefaultedDuration int
	Bookings          int
}

// BookingIndex holds the bookings of one pay period in ingestion order.
// Order matters: matchers break ties by it.
type BookingIndex struct {
	bookings []Booking
	stats    BookingStats
}

// NewBookingIndex keeps bookings that start inside the period. A missing or
// non-positive duration is replaced with cfg.DefaultBookingDuration and the
// booking is flagged.
func NewBookingIndex(raw []RawBooking, period generic.Period, cfg Config) *BookingIndex {
	idx := &BookingIndex{stats: BookingStats{Rows: len(raw)}}
	def := cfg.DefaultBookingDuration
	if def <= 0 {
		def = 60 * time.Minute
	}

	for _, row := range raw {
		if row.Start.IsZero() {
			idx.stats.MissingStart++
			continue
		}
		minutes := row.DurationMinutes
		defaulted := false
		if !(minutes > 0) {
			minutes = def.Minutes()
			defaulted = true
		}
		if !period.Contains(row.Start) {
			idx.stats.OutOfPeriod++
			continue
		}
		if defaulted {
			idx.stats.DefaultedDuration++
		}

		idx.bookings = append(idx.bookings, Booking{
			Customer: Customer{
				Name:  normalizeSpaces(row.FirstName + " " + row.LastName),
				Email: NormalizeEmail(row.CustomerEmail),
			},
			Start:             row.Start,
			End:               row.Start.Add(time.Duration(minutes * float64(time.Minute))),
			DurationMinutes:   minutes,
			DurationDefaulted: defaulted,
		})
	}
	idx.stats.Bookings = len(idx.bookings)
	return idx
}

func (idx *BookingIndex) Len() int            { return len(idx.bookings) }
func (idx *BookingIndex) Stats() BookingStats { return idx.stats }

// Bookings returns the bookings in ingestion order. Callers must not modify them.
func (idx *BookingIndex) Bookings() []Booking { return idx.bookings }
