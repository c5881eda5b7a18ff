package scheduling

import (
	"context"
	"time"

	"github.com/clinicops/clinicops/pkg/pagination"
)

// AppointmentRepository is the storage boundary for appointments.
type AppointmentRepository interface {
	// Create inserts the appointment and fills in its id and timestamps. A
	// booking that collides with the store-level slot guard returns
	// OVERLAP_CONFLICT.
	Create(ctx context.Context, a *Appointment) error

	GetByID(ctx context.Context, id int64) (*Appointment, error)

	// Update persists date, reason, status and updated_at.
	Update(ctx context.Context, a *Appointment) error

	// FindConflicts returns the doctor's non-cancelled appointments within
	// [dayStart, dayEnd), excluding the appointment with excludeID (0 to
	// exclude nothing).
	FindConflicts(ctx context.Context, doctorID int64, dayStart, dayEnd time.Time, excludeID int64) ([]*Appointment, error)

	ListByDoctor(ctx context.Context, doctorID int64, p pagination.Params) ([]*Appointment, int, error)
	ListByPatient(ctx context.Context, patientID int64, p pagination.Params) ([]*Appointment, int, error)
}
