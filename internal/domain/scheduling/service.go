package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/clinicops/clinicops/internal/platform/notification"
	"github.com/clinicops/clinicops/pkg/apperr"
	"github.com/clinicops/clinicops/pkg/pagination"
)

// Policy holds the booking rules the service enforces. Working hours are the
// half-open window [WorkStartHour, WorkEndHour) in the appointment's own
// timezone; every appointment occupies one Slot.
type Policy struct {
	WorkStartHour int
	WorkEndHour   int
	Slot          time.Duration
	Cutoff        time.Duration
}

// Service implements appointment booking on top of an AppointmentRepository.
type Service struct {
	appts    AppointmentRepository
	notifier notification.Notifier
	policy   Policy
	now      func() time.Time
}

func NewService(appts AppointmentRepository, notifier notification.Notifier, policy Policy) *Service {
	if notifier == nil {
		notifier = notification.Nop{}
	}
	return &Service{appts: appts, notifier: notifier, policy: policy, now: time.Now}
}

// CreateInput are the caller-supplied fields of a new appointment.
// DurationMinutes and Status fall back to the policy slot and PENDIENTE.
type CreateInput struct {
	PatientID       int64     `json:"patientId"`
	DoctorID        int64     `json:"doctorId"`
	Date            time.Time `json:"date"`
	DurationMinutes *int      `json:"durationMinutes"`
	Reason          string    `json:"reason"`
	Status          *Status   `json:"status"`
}

// UpdateInput is a partial update; nil fields are left unchanged. A new
// doctor moves the booking to that doctor's calendar.
type UpdateInput struct {
	Date            *time.Time `json:"date"`
	DurationMinutes *int       `json:"durationMinutes"`
	Reason          *string    `json:"reason"`
	Status          *Status    `json:"status"`
	DoctorID        *int64     `json:"doctorId"`
}

// Create books an appointment. The slot must fit inside working hours and
// not overlap any of the doctor's other bookings that day. Notification is
// best-effort and never fails the booking.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Appointment, error) {
	if in.PatientID <= 0 {
		return nil, apperr.E(apperr.KindValidation, "patientId is required")
	}
	if in.DoctorID <= 0 {
		return nil, apperr.E(apperr.KindValidation, "doctorId is required")
	}
	if in.Reason == "" {
		return nil, apperr.E(apperr.KindValidation, "reason is required")
	}
	status := StatusPending
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, apperr.E(apperr.KindValidation, "unknown status "+string(*in.Status))
		}
		status = *in.Status
	}
	slot, err := s.resolveSlot(in.DurationMinutes)
	if err != nil {
		return nil, err
	}
	if err := s.validateSlot(in.Date, slot); err != nil {
		return nil, err
	}
	if err := s.checkConflicts(ctx, in.DoctorID, in.Date, slot, 0); err != nil {
		return nil, err
	}

	a := &Appointment{
		PatientID: in.PatientID,
		DoctorID:  in.DoctorID,
		Date:      in.Date,
		Reason:    in.Reason,
		Status:    status,
	}
	if err := s.appts.Create(ctx, a); err != nil {
		return nil, err
	}

	s.notifier.NotifyAppointment(ctx, notification.EventCreated, snapshot(a))
	return a, nil
}

// Get returns an appointment by id.
func (s *Service) Get(ctx context.Context, id int64) (*Appointment, error) {
	return s.appts.GetByID(ctx, id)
}

// Update applies a partial update. Terminal appointments and appointments
// inside the modification window are rejected; a new date goes through the
// same working-hours and overlap checks as a fresh booking, excluding the
// appointment itself.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*Appointment, error) {
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status.Terminal() {
		return nil, apperr.E(apperr.KindTerminalState, "appointment is already "+string(a.Status))
	}
	if err := s.checkCutoff(a); err != nil {
		return nil, err
	}

	if in.DoctorID != nil && *in.DoctorID <= 0 {
		return nil, apperr.E(apperr.KindValidation, "doctorId must be a positive id")
	}
	slot, err := s.resolveSlot(in.DurationMinutes)
	if err != nil {
		return nil, err
	}

	// A new date, doctor or duration re-runs the booking checks against the
	// target calendar, excluding the appointment itself.
	newDate := a.Date
	if in.Date != nil {
		newDate = *in.Date
	}
	targetDoctor := a.DoctorID
	if in.DoctorID != nil {
		targetDoctor = *in.DoctorID
	}
	if in.Date != nil || in.DurationMinutes != nil || targetDoctor != a.DoctorID {
		if err := s.validateSlot(newDate, slot); err != nil {
			return nil, err
		}
		if err := s.checkConflicts(ctx, targetDoctor, newDate, slot, a.ID); err != nil {
			return nil, err
		}
	}
	a.Date = newDate
	a.DoctorID = targetDoctor

	if in.Reason != nil {
		if *in.Reason == "" {
			return nil, apperr.E(apperr.KindValidation, "reason must not be empty")
		}
		a.Reason = *in.Reason
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, apperr.E(apperr.KindValidation, "unknown status "+string(*in.Status))
		}
		a.Status = *in.Status
	}

	if err := s.appts.Update(ctx, a); err != nil {
		return nil, err
	}

	s.notifier.NotifyAppointment(ctx, notification.EventUpdated, snapshot(a))
	return a, nil
}

// Cancel marks the appointment CANCELADA, subject to the same modification
// window as updates.
func (s *Service) Cancel(ctx context.Context, id int64) (*Appointment, error) {
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status.Terminal() {
		return nil, apperr.E(apperr.KindTerminalState, "appointment is already "+string(a.Status))
	}
	if err := s.checkCutoff(a); err != nil {
		return nil, err
	}

	a.Status = StatusCancelled
	if err := s.appts.Update(ctx, a); err != nil {
		return nil, err
	}

	s.notifier.NotifyAppointment(ctx, notification.EventCancelled, snapshot(a))
	return a, nil
}

// ListByDoctor returns the doctor's appointments, newest first.
func (s *Service) ListByDoctor(ctx context.Context, doctorID int64, p pagination.Params) ([]*Appointment, int, error) {
	if doctorID <= 0 {
		return nil, 0, apperr.E(apperr.KindValidation, "doctorId is required")
	}
	return s.appts.ListByDoctor(ctx, doctorID, p)
}

// ListByPatient returns the patient's appointments, newest first.
func (s *Service) ListByPatient(ctx context.Context, patientID int64, p pagination.Params) ([]*Appointment, int, error) {
	if patientID <= 0 {
		return nil, 0, apperr.E(apperr.KindValidation, "patientId is required")
	}
	return s.appts.ListByPatient(ctx, patientID, p)
}

// resolveSlot turns a requested duration into the slot length for a new
// booking, defaulting to the policy slot when absent.
func (s *Service) resolveSlot(minutes *int) (time.Duration, error) {
	if minutes == nil {
		return s.policy.Slot, nil
	}
	if *minutes < 1 {
		return 0, apperr.E(apperr.KindValidation, "durationMinutes must be at least 1")
	}
	return time.Duration(*minutes) * time.Minute, nil
}

// validateSlot checks that the slot fits entirely inside the working-hours
// window of its own day. The end landing past closing also catches slots that
// would spill into the next day.
func (s *Service) validateSlot(date time.Time, slot time.Duration) error {
	if date.IsZero() {
		return apperr.E(apperr.KindValidation, "date is required")
	}

	y, m, d := date.Date()
	dayStart := time.Date(y, m, d, s.policy.WorkStartHour, 0, 0, 0, date.Location())
	dayEnd := time.Date(y, m, d, s.policy.WorkEndHour, 0, 0, 0, date.Location())
	if date.Before(dayStart) || date.Add(slot).After(dayEnd) {
		return apperr.E(apperr.KindWorkingHours,
			fmt.Sprintf("appointments must fit between %02d:00 and %02d:00",
				s.policy.WorkStartHour, s.policy.WorkEndHour))
	}
	return nil
}

// checkConflicts fetches the doctor's bookings on the slot's day and applies
// the half-open overlap test against each. The candidate's end uses the
// requested slot; existing ends use the fixed policy slot, since only the
// start instant is persisted.
func (s *Service) checkConflicts(ctx context.Context, doctorID int64, date time.Time, slot time.Duration, excludeID int64) error {
	y, m, d := date.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	existing, err := s.appts.FindConflicts(ctx, doctorID, dayStart, dayEnd, excludeID)
	if err != nil {
		return err
	}
	candidate := &Appointment{Date: date}
	for _, e := range existing {
		if candidate.Overlaps(e, slot, s.policy.Slot) {
			return apperr.E(apperr.KindOverlap, "the doctor already has an appointment at that time")
		}
	}
	return nil
}

// checkCutoff rejects changes once the appointment is closer than the
// configured window. The window is measured against the booking's current
// start, so a pending change cannot be used to escape it.
func (s *Service) checkCutoff(a *Appointment) error {
	if s.now().After(a.Date.Add(-s.policy.Cutoff)) {
		hours := int(s.policy.Cutoff / time.Hour)
		return apperr.E(apperr.KindModificationWindow,
			fmt.Sprintf("appointments can only be changed up to %d hours in advance", hours))
	}
	return nil
}

func snapshot(a *Appointment) notification.Appointment {
	return notification.Appointment{
		ID:        a.ID,
		PatientID: a.PatientID,
		DoctorID:  a.DoctorID,
		Date:      a.Date,
		Reason:    a.Reason,
	}
}
