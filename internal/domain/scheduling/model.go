// Package scheduling implements booked appointments: creation inside working
// hours, conflict detection against a doctor's existing bookings, and a
// modification window that closes shortly before the visit.
package scheduling

import (
	"time"
)

// Status is the lifecycle state of an appointment. The values are the
// clinic's canonical Spanish labels and are stored as-is.
type Status string

const (
	StatusPending   Status = "PENDIENTE"
	StatusConfirmed Status = "CONFIRMADA"
	StatusCancelled Status = "CANCELADA"
	StatusCompleted Status = "COMPLETADA"
)

// AllStatuses lists the accepted appointment statuses.
func AllStatuses() []Status {
	return []Status{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether the appointment can no longer be modified.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Appointment is a booked visit. Date is the start instant; the end is
// derived from the configured slot length.
type Appointment struct {
	ID        int64     `db:"id" json:"id"`
	PatientID int64     `db:"patient_id" json:"patientId"`
	DoctorID  int64     `db:"doctor_id" json:"doctorId"`
	Date      time.Time `db:"date" json:"date"`
	Reason    string    `db:"reason" json:"reason"`
	Status    Status    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// End returns the appointment's end instant for the given slot length.
func (a *Appointment) End(slot time.Duration) time.Time {
	return a.Date.Add(slot)
}

// Overlaps reports whether the half-open intervals [a.Date, a.Date+ownSlot)
// and [other.Date, other.Date+otherSlot) intersect. Back-to-back bookings
// that touch at a boundary do not overlap. The two slot lengths are separate
// because a candidate booking carries its requested duration while stored
// bookings only persist the start.
func (a *Appointment) Overlaps(other *Appointment, ownSlot, otherSlot time.Duration) bool {
	return a.Date.Before(other.End(otherSlot)) && a.End(ownSlot).After(other.Date)
}
