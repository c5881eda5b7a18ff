// Package notification delivers best-effort SMS notifications for appointment
// lifecycle events. Delivery failure is never an error for the caller: the
// dispatcher logs and reports the outcome, and booking flows carry on.
package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event is an appointment lifecycle event worth telling people about.
type Event string

const (
	EventCreated   Event = "created"
	EventUpdated   Event = "updated"
	EventCancelled Event = "cancelled"
)

// Appointment carries the fields the dispatcher needs to compose a message.
// The full appointment record stays in the scheduling domain.
type Appointment struct {
	ID        int64
	PatientID int64
	DoctorID  int64
	Date      time.Time
	Reason    string
}

// Result reports the outcome of a best-effort notification attempt.
type Result struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
}

// Notifier is the collaborator the scheduling service talks to.
type Notifier interface {
	NotifyAppointment(ctx context.Context, event Event, appt Appointment) Result
}

// SMSSender sends a single SMS message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// ContactLookup resolves a user id to a phone number. Patient and doctor
// records live outside this service; an empty phone means "no reachable
// contact, skip silently".
type ContactLookup interface {
	PhoneForUser(ctx context.Context, userID int64) (string, error)
}

// ---------------------------------------------------------------------------
// Template engine
// ---------------------------------------------------------------------------

// Template is a reusable message template with {{key}} placeholders.
type Template struct {
	ID   string
	Body string
}

// TemplateEngine stores templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates an engine with the appointment templates
// pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]*Template)}
	for _, t := range []Template{
		{ID: "appointment-created", Body: "Cita creada para {{date}}. Motivo: {{reason}}"},
		{ID: "appointment-updated", Body: "Cita actualizada para {{date}}. Motivo: {{reason}}"},
		{ID: "appointment-cancelled", Body: "Cita cancelada ({{date}}). Motivo: {{reason}}"},
	} {
		tpl := t
		e.templates[t.ID] = &tpl
	}
	return e
}

// RegisterTemplate adds or replaces a template.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template and performs {{key}} replacement. Keys present in
// the template but absent from data are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (string, error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("template %q not found", templateID)
	}

	body := t.Body
	for k, v := range data {
		body = strings.ReplaceAll(body, "{{"+k+"}}", v)
	}
	return body, nil
}

// ---------------------------------------------------------------------------
// Dispatcher
// ---------------------------------------------------------------------------

// Dispatcher implements Notifier over an SMSSender and a ContactLookup.
type Dispatcher struct {
	sender    SMSSender
	contacts  ContactLookup
	templates *TemplateEngine
	logger    zerolog.Logger
}

func NewDispatcher(sender SMSSender, contacts ContactLookup, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		sender:    sender,
		contacts:  contacts,
		templates: NewTemplateEngine(),
		logger:    logger,
	}
}

// NotifyAppointment renders the event template and sends it to the patient and
// the doctor when a phone number is known. Failures are logged and folded into
// the Result; they never propagate.
func (d *Dispatcher) NotifyAppointment(ctx context.Context, event Event, appt Appointment) Result {
	body, err := d.templates.Render("appointment-"+string(event), map[string]string{
		"date":   appt.Date.Format("02/01/2006 15:04"),
		"reason": appt.Reason,
	})
	if err != nil {
		d.logger.Warn().Err(err).Int64("appointment_id", appt.ID).Msg("notification template missing")
		return Result{Success: false, Detail: "template missing"}
	}

	sent := 0
	failed := 0
	for label, userID := range map[string]int64{"paciente": appt.PatientID, "medico": appt.DoctorID} {
		phone, err := d.contacts.PhoneForUser(ctx, userID)
		if err != nil {
			d.logger.Warn().Err(err).Int64("user_id", userID).Msg("contact lookup failed")
			failed++
			continue
		}
		if phone == "" {
			continue
		}
		if err := d.sender.SendSMS(ctx, phone, "["+label+"] "+body); err != nil {
			d.logger.Warn().Err(err).Str("to", phone).Int64("appointment_id", appt.ID).Msg("sms send failed")
			failed++
			continue
		}
		sent++
	}

	if failed > 0 {
		return Result{Success: false, Detail: fmt.Sprintf("%d of %d deliveries failed", failed, sent+failed)}
	}
	return Result{Success: true, Detail: fmt.Sprintf("%d deliveries", sent)}
}

// ---------------------------------------------------------------------------
// Dev and test implementations
// ---------------------------------------------------------------------------

// ConsoleSender logs messages instead of delivering them. Used in development
// and whenever no SMS provider is configured.
type ConsoleSender struct {
	Logger zerolog.Logger
}

func (s *ConsoleSender) SendSMS(_ context.Context, to, body string) error {
	s.Logger.Info().Str("to", to).Str("body", body).Msg("mock sms")
	return nil
}

// SMSCall records a single call to SendSMS.
type SMSCall struct {
	To   string
	Body string
}

// MockSMSSender is a test double for SMSSender.
type MockSMSSender struct {
	mu       sync.Mutex
	calls    []SMSCall
	failWith error
}

// FailWith makes subsequent sends return err.
func (m *MockSMSSender) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

func (m *MockSMSSender) SendSMS(_ context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.calls = append(m.calls, SMSCall{To: to, Body: body})
	return nil
}

// Calls returns a copy of the recorded calls.
func (m *MockSMSSender) Calls() []SMSCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SMSCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// StaticContacts is a map-backed ContactLookup for tests and development.
type StaticContacts map[int64]string

func (s StaticContacts) PhoneForUser(_ context.Context, userID int64) (string, error) {
	return s[userID], nil
}

// Nop is a Notifier that does nothing and always succeeds.
type Nop struct{}

func (Nop) NotifyAppointment(context.Context, Event, Appointment) Result {
	return Result{Success: true}
}
