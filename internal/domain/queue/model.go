// Package queue implements per-doctor walk-in queues. A patient joins a
// doctor's queue and receives a FIFO position; the doctor calls patients one
// at a time, and each ticket moves through a small state machine until it is
// completed or cancelled.
package queue

import (
	"time"

	"github.com/clinicops/clinicops/pkg/apperr"
)

// Status is the lifecycle state of a queue ticket.
type Status string

const (
	StatusWaiting   Status = "WAITING"
	StatusCalled    Status = "CALLED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// AllStatuses lists every ticket status, in lifecycle order.
func AllStatuses() []Status {
	return []Status{StatusWaiting, StatusCalled, StatusCompleted, StatusCancelled}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusCalled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the ticket can never change state again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Active reports whether the ticket still occupies the queue. Active tickets
// are what the duplicate guard counts: one per (doctor, patient) pair.
func (s Status) Active() bool {
	return s == StatusWaiting || s == StatusCalled
}

// CanTransition reports whether a ticket in state s may move to state to.
// WAITING may be called, completed or cancelled; CALLED may be completed or
// cancelled; terminal states admit nothing.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusWaiting:
		return to == StatusCalled || to == StatusCompleted || to == StatusCancelled
	case StatusCalled:
		return to == StatusCompleted || to == StatusCancelled
	}
	return false
}

// Ticket is one patient's place in one doctor's walk-in queue.
type Ticket struct {
	ID          int64      `db:"id" json:"id"`
	DoctorID    int64      `db:"doctor_id" json:"doctorId"`
	PatientID   int64      `db:"patient_id" json:"patientId"`
	Status      Status     `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	CalledAt    *time.Time `db:"called_at" json:"calledAt,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`
}

// Transition moves the ticket to the given status, stamping the matching
// timestamp. Illegal transitions return a TERMINAL_STATE or VALIDATION_ERROR
// so callers never have to re-check the state machine themselves.
func (t *Ticket) Transition(to Status, at time.Time) error {
	if !to.Valid() {
		return apperr.E(apperr.KindValidation, "unknown ticket status "+string(to))
	}
	if !t.Status.CanTransition(to) {
		if t.Status.Terminal() {
			return apperr.E(apperr.KindTerminalState, "ticket is already "+string(t.Status))
		}
		return apperr.E(apperr.KindValidation, "cannot move ticket from "+string(t.Status)+" to "+string(to))
	}

	t.Status = to
	switch to {
	case StatusCalled:
		t.CalledAt = &at
	case StatusCompleted:
		t.CompletedAt = &at
	case StatusCancelled:
		t.CancelledAt = &at
	}
	return nil
}

// PositionedTicket is a ticket together with its 1-based place in the waiting
// line. Position is nil for tickets that are no longer waiting.
type PositionedTicket struct {
	*Ticket
	Position *int `json:"position"`
}
