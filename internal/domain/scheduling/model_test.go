package scheduling

import (
	"testing"
	"time"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 9, hour, min, 0, 0, time.UTC)
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range AllStatuses() {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if Status("PROGRAMADA").Valid() {
		t.Error("unknown status accepted")
	}
}

func TestStatus_Terminal(t *testing.T) {
	if !StatusCancelled.Terminal() || !StatusCompleted.Terminal() {
		t.Error("CANCELADA and COMPLETADA are terminal")
	}
	if StatusPending.Terminal() || StatusConfirmed.Terminal() {
		t.Error("PENDIENTE and CONFIRMADA are not terminal")
	}
}

func TestAppointment_Overlaps(t *testing.T) {
	slot := 30 * time.Minute
	base := &Appointment{Date: at(10, 0)}

	cases := []struct {
		name  string
		other time.Time
		want  bool
	}{
		{"same start", at(10, 0), true},
		{"inside", at(10, 15), true},
		{"straddles start", at(9, 45), true},
		{"touches end", at(10, 30), false},
		{"touches start", at(9, 30), false},
		{"disjoint", at(14, 0), false},
	}
	for _, tc := range cases {
		other := &Appointment{Date: tc.other}
		if got := base.Overlaps(other, slot, slot); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAppointment_Overlaps_LongerCandidate(t *testing.T) {
	slot := 30 * time.Minute
	// A two-hour candidate at 9:00 reaches an existing 10:30 booking even
	// though a default-length slot would not.
	candidate := &Appointment{Date: at(9, 0)}
	existing := &Appointment{Date: at(10, 30)}
	if !candidate.Overlaps(existing, 2*time.Hour, slot) {
		t.Error("expected the extended candidate to overlap")
	}
	if candidate.Overlaps(existing, slot, slot) {
		t.Error("default-length candidate must not overlap")
	}
}
