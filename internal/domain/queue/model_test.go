package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/clinicops/clinicops/pkg/apperr"
)

func TestStatus_CanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusWaiting, StatusCalled, true},
		{StatusWaiting, StatusCompleted, true},
		{StatusWaiting, StatusCancelled, true},
		{StatusCalled, StatusCompleted, true},
		{StatusCalled, StatusCancelled, true},
		{StatusCalled, StatusWaiting, false},
		{StatusCompleted, StatusCalled, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusWaiting, false},
		{StatusCancelled, StatusCompleted, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestTicket_Transition_StampsTimestamps(t *testing.T) {
	now := time.Now()
	tk := &Ticket{Status: StatusWaiting}

	if err := tk.Transition(StatusCalled, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tk.Status != StatusCalled || tk.CalledAt == nil || !tk.CalledAt.Equal(now) {
		t.Errorf("CALLED not stamped: %+v", tk)
	}

	later := now.Add(10 * time.Minute)
	if err := tk.Transition(StatusCompleted, later); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tk.CompletedAt == nil || !tk.CompletedAt.Equal(later) {
		t.Errorf("COMPLETED not stamped: %+v", tk)
	}
}

func TestTicket_Transition_TerminalRejected(t *testing.T) {
	tk := &Ticket{Status: StatusCompleted}
	err := tk.Transition(StatusCancelled, time.Now())
	if !apperr.IsKind(err, apperr.KindTerminalState) {
		t.Errorf("expected TERMINAL_STATE, got %v", err)
	}
}

func TestTicket_Transition_UnknownStatus(t *testing.T) {
	tk := &Ticket{Status: StatusWaiting}
	err := tk.Transition(Status("NAPPING"), time.Now())
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		t.Error("expected *apperr.Error")
	}
	if tk.Status != StatusWaiting {
		t.Errorf("status mutated on failed transition: %s", tk.Status)
	}
}
