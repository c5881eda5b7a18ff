package queue

import (
	"context"
	"time"

	"github.com/clinicops/clinicops/pkg/apperr"
)

// TxRunner runs fn atomically. The production wiring binds this to
// db.WithTx; tests use a pass-through.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Service implements the walk-in queue operations on top of a
// TicketRepository.
type Service struct {
	tickets  TicketRepository
	inTx     TxRunner
	capacity int
	now      func() time.Time
}

func NewService(tickets TicketRepository, inTx TxRunner, capacity int) *Service {
	if inTx == nil {
		inTx = func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
	}
	return &Service{tickets: tickets, inTx: inTx, capacity: capacity, now: time.Now}
}

// Join places a patient at the tail of a doctor's queue. A patient already
// holding an active ticket is rejected with DUPLICATE_QUEUE, and a full
// waiting line with QUEUE_FULL. The returned ticket carries its 1-based
// position.
func (s *Service) Join(ctx context.Context, doctorID, patientID int64) (*PositionedTicket, error) {
	if doctorID <= 0 {
		return nil, apperr.E(apperr.KindValidation, "doctorId is required")
	}
	if patientID <= 0 {
		return nil, apperr.E(apperr.KindValidation, "patientId is required")
	}

	existing, err := s.tickets.FindActive(ctx, doctorID, patientID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.E(apperr.KindDuplicateTicket, "patient is already in this doctor's queue")
	}

	waiting, err := s.tickets.CountWaiting(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if waiting >= s.capacity {
		return nil, apperr.E(apperr.KindQueueFull, "queue is full for this doctor")
	}

	t := &Ticket{DoctorID: doctorID, PatientID: patientID, Status: StatusWaiting}
	if err := s.tickets.Create(ctx, t); err != nil {
		return nil, err
	}

	return s.positioned(ctx, t)
}

// Position returns the ticket and its place in line. Position is nil once the
// ticket is no longer waiting.
func (s *Service) Position(ctx context.Context, ticketID int64) (*PositionedTicket, error) {
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return s.positioned(ctx, t)
}

// CallNext advances the doctor's queue: the currently CALLED patient, if any,
// is completed, and the oldest WAITING ticket becomes CALLED. The whole
// operation runs in one transaction; the CALLED transition is a conditional
// update, retried once against a fresh head if another caller won the first
// ticket. An empty queue returns (nil, nil).
func (s *Service) CallNext(ctx context.Context, doctorID int64) (*Ticket, error) {
	if doctorID <= 0 {
		return nil, apperr.E(apperr.KindValidation, "doctorId is required")
	}

	var called *Ticket
	err := s.inTx(ctx, func(ctx context.Context) error {
		current, err := s.tickets.CurrentCalled(ctx, doctorID)
		if err != nil {
			return err
		}
		if current != nil {
			if err := current.Transition(StatusCompleted, s.now()); err != nil {
				return err
			}
			if err := s.tickets.UpdateStatus(ctx, current); err != nil {
				return err
			}
		}

		for attempt := 0; attempt < 2; attempt++ {
			next, err := s.tickets.OldestWaiting(ctx, doctorID)
			if err != nil {
				return err
			}
			if next == nil {
				return nil
			}
			at := s.now()
			won, err := s.tickets.MarkCalledIfWaiting(ctx, next.ID, at)
			if err != nil {
				return err
			}
			if won {
				next.Status = StatusCalled
				next.CalledAt = &at
				called = next
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return called, nil
}

// Current returns the doctor's currently CALLED ticket, or nil when nobody
// is being attended.
func (s *Service) Current(ctx context.Context, doctorID int64) (*Ticket, error) {
	if doctorID <= 0 {
		return nil, apperr.E(apperr.KindValidation, "doctorId is required")
	}
	return s.tickets.CurrentCalled(ctx, doctorID)
}

// Waiting returns the doctor's waiting line in order, each ticket with its
// 1-based position.
func (s *Service) Waiting(ctx context.Context, doctorID int64) ([]*PositionedTicket, error) {
	if doctorID <= 0 {
		return nil, apperr.E(apperr.KindValidation, "doctorId is required")
	}
	list, err := s.tickets.ListWaiting(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return withPositions(list), nil
}

// Complete closes a ticket after the consultation. Terminal tickets are
// rejected by the state machine.
func (s *Service) Complete(ctx context.Context, ticketID int64) (*Ticket, error) {
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := t.Transition(StatusCompleted, s.now()); err != nil {
		return nil, err
	}
	if err := s.tickets.UpdateStatus(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Cancel removes a ticket from the queue and returns the doctor's waiting
// line recomputed after the departure.
func (s *Service) Cancel(ctx context.Context, ticketID int64) (*Ticket, []*PositionedTicket, error) {
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if err := t.Transition(StatusCancelled, s.now()); err != nil {
		return nil, nil, err
	}
	if err := s.tickets.UpdateStatus(ctx, t); err != nil {
		return nil, nil, err
	}

	remaining, err := s.tickets.ListWaiting(ctx, t.DoctorID)
	if err != nil {
		return nil, nil, err
	}
	return t, withPositions(remaining), nil
}

func (s *Service) positioned(ctx context.Context, t *Ticket) (*PositionedTicket, error) {
	pt := &PositionedTicket{Ticket: t}
	if t.Status != StatusWaiting {
		return pt, nil
	}
	ahead, err := s.tickets.CountAhead(ctx, t)
	if err != nil {
		return nil, err
	}
	pos := ahead + 1
	pt.Position = &pos
	return pt, nil
}

func withPositions(list []*Ticket) []*PositionedTicket {
	out := make([]*PositionedTicket, len(list))
	for i, t := range list {
		pos := i + 1
		out[i] = &PositionedTicket{Ticket: t, Position: &pos}
	}
	return out
}
