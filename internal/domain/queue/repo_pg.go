package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicops/clinicops/internal/platform/db"
	"github.com/clinicops/clinicops/pkg/apperr"
)

const ticketCols = `id, doctor_id, patient_id, status, created_at, called_at, completed_at, cancelled_at`

// activeTicketIdx backs the duplicate guard: at most one WAITING or CALLED
// ticket per (doctor, patient) pair.
const activeTicketIdx = "queue_ticket_active_doctor_patient_idx"

// PgTicketRepository is the pgx implementation of TicketRepository. It runs
// on the ambient transaction when one is present in the context.
type PgTicketRepository struct {
	pool *pgxpool.Pool
}

func NewPgTicketRepository(pool *pgxpool.Pool) *PgTicketRepository {
	return &PgTicketRepository{pool: pool}
}

func scanTicket(row pgx.Row) (*Ticket, error) {
	var t Ticket
	err := row.Scan(&t.ID, &t.DoctorID, &t.PatientID, &t.Status,
		&t.CreatedAt, &t.CalledAt, &t.CompletedAt, &t.CancelledAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PgTicketRepository) Create(ctx context.Context, t *Ticket) error {
	q := db.QuerierFor(ctx, r.pool)
	err := q.QueryRow(ctx, `
		INSERT INTO queue_ticket (doctor_id, patient_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		t.DoctorID, t.PatientID, t.Status,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, activeTicketIdx) {
			return apperr.E(apperr.KindDuplicateTicket, "patient is already in this doctor's queue")
		}
		return fmt.Errorf("insert queue ticket: %w", err)
	}
	return nil
}

func (r *PgTicketRepository) GetByID(ctx context.Context, id int64) (*Ticket, error) {
	q := db.QuerierFor(ctx, r.pool)
	t, err := scanTicket(q.QueryRow(ctx,
		`SELECT `+ticketCols+` FROM queue_ticket WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.E(apperr.KindNotFound, "queue ticket not found")
		}
		return nil, fmt.Errorf("get queue ticket %d: %w", id, err)
	}
	return t, nil
}

func (r *PgTicketRepository) FindActive(ctx context.Context, doctorID, patientID int64) (*Ticket, error) {
	q := db.QuerierFor(ctx, r.pool)
	t, err := scanTicket(q.QueryRow(ctx, `
		SELECT `+ticketCols+` FROM queue_ticket
		WHERE doctor_id = $1 AND patient_id = $2 AND status IN ('WAITING', 'CALLED')
		LIMIT 1`,
		doctorID, patientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active ticket: %w", err)
	}
	return t, nil
}

func (r *PgTicketRepository) OldestWaiting(ctx context.Context, doctorID int64) (*Ticket, error) {
	q := db.QuerierFor(ctx, r.pool)
	t, err := scanTicket(q.QueryRow(ctx, `
		SELECT `+ticketCols+` FROM queue_ticket
		WHERE doctor_id = $1 AND status = 'WAITING'
		ORDER BY created_at, id
		LIMIT 1`,
		doctorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("oldest waiting ticket: %w", err)
	}
	return t, nil
}

func (r *PgTicketRepository) CurrentCalled(ctx context.Context, doctorID int64) (*Ticket, error) {
	q := db.QuerierFor(ctx, r.pool)
	t, err := scanTicket(q.QueryRow(ctx, `
		SELECT `+ticketCols+` FROM queue_ticket
		WHERE doctor_id = $1 AND status = 'CALLED'
		ORDER BY called_at DESC, id DESC
		LIMIT 1`,
		doctorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("current called ticket: %w", err)
	}
	return t, nil
}

func (r *PgTicketRepository) CountWaiting(ctx context.Context, doctorID int64) (int, error) {
	q := db.QuerierFor(ctx, r.pool)
	var n int
	err := q.QueryRow(ctx, `
		SELECT count(*) FROM queue_ticket
		WHERE doctor_id = $1 AND status = 'WAITING'`,
		doctorID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count waiting tickets: %w", err)
	}
	return n, nil
}

func (r *PgTicketRepository) CountAhead(ctx context.Context, t *Ticket) (int, error) {
	q := db.QuerierFor(ctx, r.pool)
	var n int
	err := q.QueryRow(ctx, `
		SELECT count(*) FROM queue_ticket
		WHERE doctor_id = $1 AND status = 'WAITING'
		  AND (created_at, id) < ($2, $3)`,
		t.DoctorID, t.CreatedAt, t.ID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count tickets ahead: %w", err)
	}
	return n, nil
}

func (r *PgTicketRepository) ListWaiting(ctx context.Context, doctorID int64) ([]*Ticket, error) {
	q := db.QuerierFor(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT `+ticketCols+` FROM queue_ticket
		WHERE doctor_id = $1 AND status = 'WAITING'
		ORDER BY created_at, id`,
		doctorID)
	if err != nil {
		return nil, fmt.Errorf("list waiting tickets: %w", err)
	}
	defer rows.Close()

	var out []*Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan waiting ticket: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list waiting tickets: %w", err)
	}
	return out, nil
}

func (r *PgTicketRepository) UpdateStatus(ctx context.Context, t *Ticket) error {
	q := db.QuerierFor(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE queue_ticket
		SET status = $2, called_at = $3, completed_at = $4, cancelled_at = $5
		WHERE id = $1`,
		t.ID, t.Status, t.CalledAt, t.CompletedAt, t.CancelledAt)
	if err != nil {
		return fmt.Errorf("update queue ticket %d: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.E(apperr.KindNotFound, "queue ticket not found")
	}
	return nil
}

// MarkCalledIfWaiting is the winner-takes-the-ticket update behind callNext:
// the WHERE clause makes the transition conditional, so two doctors' sessions
// racing for the same head ticket resolve at the database.
func (r *PgTicketRepository) MarkCalledIfWaiting(ctx context.Context, id int64, at time.Time) (bool, error) {
	q := db.QuerierFor(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE queue_ticket
		SET status = 'CALLED', called_at = $2
		WHERE id = $1 AND status = 'WAITING'`,
		id, at)
	if err != nil {
		return false, fmt.Errorf("mark ticket %d called: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}
