package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicops/clinicops/internal/platform/db"
	"github.com/clinicops/clinicops/pkg/apperr"
	"github.com/clinicops/clinicops/pkg/pagination"
)

const appointmentCols = `id, patient_id, doctor_id, date, reason, status, created_at, updated_at`

// slotIdx backs the conflict check: at most one non-cancelled appointment per
// (doctor, start instant). The service detects overlaps before insert; the
// index settles races between concurrent bookings of the same slot.
const slotIdx = "appointment_doctor_date_idx"

// PgAppointmentRepository is the pgx implementation of AppointmentRepository.
type PgAppointmentRepository struct {
	pool *pgxpool.Pool
}

func NewPgAppointmentRepository(pool *pgxpool.Pool) *PgAppointmentRepository {
	return &PgAppointmentRepository{pool: pool}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.Date, &a.Reason,
		&a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PgAppointmentRepository) Create(ctx context.Context, a *Appointment) error {
	q := db.QuerierFor(ctx, r.pool)
	err := q.QueryRow(ctx, `
		INSERT INTO appointment (patient_id, doctor_id, date, reason, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		a.PatientID, a.DoctorID, a.Date, a.Reason, a.Status,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, slotIdx) {
			return apperr.E(apperr.KindOverlap, "the doctor already has an appointment at that time")
		}
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *PgAppointmentRepository) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	q := db.QuerierFor(ctx, r.pool)
	a, err := scanAppointment(q.QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointment WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.E(apperr.KindNotFound, "appointment not found")
		}
		return nil, fmt.Errorf("get appointment %d: %w", id, err)
	}
	return a, nil
}

func (r *PgAppointmentRepository) Update(ctx context.Context, a *Appointment) error {
	q := db.QuerierFor(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE appointment
		SET doctor_id = $2, date = $3, reason = $4, status = $5, updated_at = now()
		WHERE id = $1`,
		a.ID, a.DoctorID, a.Date, a.Reason, a.Status)
	if err != nil {
		if db.IsUniqueViolation(err, slotIdx) {
			return apperr.E(apperr.KindOverlap, "the doctor already has an appointment at that time")
		}
		return fmt.Errorf("update appointment %d: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.E(apperr.KindNotFound, "appointment not found")
	}
	return nil
}

func (r *PgAppointmentRepository) FindConflicts(ctx context.Context, doctorID int64, dayStart, dayEnd time.Time, excludeID int64) ([]*Appointment, error) {
	q := db.QuerierFor(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT `+appointmentCols+` FROM appointment
		WHERE doctor_id = $1
		  AND status <> 'CANCELADA'
		  AND date >= $2 AND date < $3
		  AND id <> $4
		ORDER BY date`,
		doctorID, dayStart, dayEnd, excludeID)
	if err != nil {
		return nil, fmt.Errorf("find conflicting appointments: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func (r *PgAppointmentRepository) ListByDoctor(ctx context.Context, doctorID int64, p pagination.Params) ([]*Appointment, int, error) {
	return r.list(ctx, "doctor_id", doctorID, p)
}

func (r *PgAppointmentRepository) ListByPatient(ctx context.Context, patientID int64, p pagination.Params) ([]*Appointment, int, error) {
	return r.list(ctx, "patient_id", patientID, p)
}

func (r *PgAppointmentRepository) list(ctx context.Context, col string, id int64, p pagination.Params) ([]*Appointment, int, error) {
	q := db.QuerierFor(ctx, r.pool)

	var total int
	if err := q.QueryRow(ctx,
		`SELECT count(*) FROM appointment WHERE `+col+` = $1`, id).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	rows, err := q.Query(ctx, `
		SELECT `+appointmentCols+` FROM appointment
		WHERE `+col+` = $1
		ORDER BY date DESC `+p.SQL(),
		id)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	out, err := collectAppointments(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func collectAppointments(rows pgx.Rows) ([]*Appointment, error) {
	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read appointments: %w", err)
	}
	return out, nil
}
