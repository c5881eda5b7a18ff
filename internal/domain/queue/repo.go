package queue

import (
	"context"
	"time"
)

// TicketRepository is the storage boundary for queue tickets. Lookups that
// can legitimately find nothing return (nil, nil); GetByID returns NOT_FOUND.
type TicketRepository interface {
	// Create inserts the ticket and fills in its id and created_at. A second
	// active ticket for the same (doctor, patient) pair returns
	// DUPLICATE_QUEUE.
	Create(ctx context.Context, t *Ticket) error

	GetByID(ctx context.Context, id int64) (*Ticket, error)

	// FindActive returns the patient's WAITING or CALLED ticket in the
	// doctor's queue, if any.
	FindActive(ctx context.Context, doctorID, patientID int64) (*Ticket, error)

	// OldestWaiting returns the head of the doctor's waiting line.
	OldestWaiting(ctx context.Context, doctorID int64) (*Ticket, error)

	// CurrentCalled returns the doctor's ticket in CALLED state, if any.
	CurrentCalled(ctx context.Context, doctorID int64) (*Ticket, error)

	CountWaiting(ctx context.Context, doctorID int64) (int, error)

	// CountAhead counts WAITING tickets in the same queue created before t.
	CountAhead(ctx context.Context, t *Ticket) (int, error)

	// ListWaiting returns the doctor's waiting tickets in FIFO order.
	ListWaiting(ctx context.Context, doctorID int64) ([]*Ticket, error)

	// UpdateStatus persists the ticket's status and lifecycle timestamps.
	UpdateStatus(ctx context.Context, t *Ticket) error

	// MarkCalledIfWaiting atomically moves the ticket to CALLED only if it is
	// still WAITING, and reports whether the update won.
	MarkCalledIfWaiting(ctx context.Context, id int64, at time.Time) (bool, error)
}
