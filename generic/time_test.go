package generic_test

import (
	"errors"
	"testing"
	"time"

	"github.com/warp/tip-engine/generic"
)

func hm(h, m int) time.Time {
	return time.Date(2025, time.March, 10, h, m, 0, 0, time.UTC)
}

func TestInterval_Overlap(t *testing.T) {
	shift := generic.NewInterval(hm(9, 0), hm(13, 36))

	tests := []struct {
		name   string
		window generic.Interval
		want   time.Duration
	}{
		{"inside", generic.NewInterval(hm(10, 0), hm(11, 0)), time.Hour},
		{"partial", generic.NewInterval(hm(13, 0), hm(14, 0)), 36 * time.Minute},
		{"touching", generic.NewInterval(hm(13, 36), hm(14, 0)), 0},
		{"disjoint", generic.NewInterval(hm(15, 0), hm(16, 0)), 0},
		{"reversed window", generic.NewInterval(hm(14, 0), hm(13, 0)), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shift.Overlap(tt.window); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestInterval_DistanceTo(t *testing.T) {
	b := generic.NewInterval(hm(13, 0), hm(14, 0))

	if d := b.DistanceTo(hm(14, 0)); d != 0 {
		t.Errorf("end is inclusive, expected 0 got %v", d)
	}
	if d := b.DistanceTo(hm(12, 15)); d != 45*time.Minute {
		t.Errorf("expected 45m before start, got %v", d)
	}
	if d := b.DistanceTo(hm(16, 0)); d != 2*time.Hour {
		t.Errorf("expected 2h after end, got %v", d)
	}
}

func TestPeriodSpanning(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)

	// 02:00 UTC on the 11th is still the 10th in EST
	p, err := generic.PeriodSpanning(hm(15, 0), hm(2, 0).Add(24*time.Hour), loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Start.Equal(time.Date(2025, time.March, 10, 0, 0, 0, 0, loc)) {
		t.Errorf("unexpected start %v", p.Start)
	}
	if !p.End.Equal(time.Date(2025, time.March, 10, 23, 59, 59, 999999999, loc)) {
		t.Errorf("unexpected end %v", p.End)
	}
	if !p.Contains(p.Start) || !p.Contains(p.End) {
		t.Error("period bounds are inclusive")
	}
	if p.Contains(p.End.Add(time.Nanosecond)) {
		t.Error("next midnight is outside the period")
	}

	_, err = generic.PeriodSpanning(hm(15, 0), hm(9, 0), loc)
	if !errors.Is(err, generic.ErrInvalidPeriod) {
		t.Errorf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestAmount_ParseAndFormat(t *testing.T) {
	a, err := generic.ParseAmount(" 12.5 ", generic.USD)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.String() != "12.50 USD" {
		t.Errorf("unexpected format %q", a.String())
	}
	if _, err := generic.ParseAmount("twelve", generic.USD); !errors.Is(err, generic.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
