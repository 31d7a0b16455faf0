package worker

import (
	"testing"
	"time"
)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return ts
}

func TestHoursZeroValueAlwaysOn(t *testing.T) {
	var h Hours
	if !h.Contains(at(t, "2026-01-04T03:00:00Z")) {
		t.Error("zero-value hours should contain any instant")
	}
}

func TestHoursWindow(t *testing.T) {
	h := Hours{Start: "09:00", End: "17:30"}

	tests := []struct {
		when string
		want bool
	}{
		{"2026-01-05T08:59:00Z", false},
		{"2026-01-05T09:00:00Z", true},
		{"2026-01-05T13:00:00Z", true},
		{"2026-01-05T17:29:00Z", true},
		{"2026-01-05T17:30:00Z", false},
	}
	for _, tt := range tests {
		if got := h.Contains(at(t, tt.when)); got != tt.want {
			t.Errorf("Contains(%s) = %v, want %v", tt.when, got, tt.want)
		}
	}
}

func TestHoursDays(t *testing.T) {
	h := Hours{Days: []string{"mon", "tue", "wed", "thu", "fri"}}

	// 2026-01-04 is a Sunday, 2026-01-05 a Monday.
	if h.Contains(at(t, "2026-01-04T12:00:00Z")) {
		t.Error("sunday should be outside a weekday window")
	}
	if !h.Contains(at(t, "2026-01-05T12:00:00Z")) {
		t.Error("monday should be inside a weekday window")
	}
}

func TestHoursTimezone(t *testing.T) {
	// 08:00 UTC is 09:00 in Berlin in January.
	h := Hours{Timezone: "Europe/Berlin", Start: "09:00", End: "17:00"}
	if !h.Contains(at(t, "2026-01-05T08:00:00Z")) {
		t.Error("08:00 UTC should be inside a 09:00 Berlin window")
	}
	if h.Contains(at(t, "2026-01-05T07:00:00Z")) {
		t.Error("07:00 UTC should be outside a 09:00 Berlin window")
	}
}

func TestHoursMalformedFailsOpen(t *testing.T) {
	h := Hours{Start: "morning", End: "late"}
	if !h.Contains(at(t, "2026-01-05T03:00:00Z")) {
		t.Error("malformed bounds should not take the worker offline")
	}
}
