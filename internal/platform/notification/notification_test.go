package notification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testAppointment() Appointment {
	return Appointment{
		ID:        1,
		PatientID: 42,
		DoctorID:  7,
		Date:      time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
		Reason:    "control",
	}
}

func TestTemplateEngine_Render(t *testing.T) {
	e := NewTemplateEngine()
	body, err := e.Render("appointment-created", map[string]string{
		"date":   "09/03/2026 10:00",
		"reason": "control",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(body, "09/03/2026 10:00") || !strings.Contains(body, "control") {
		t.Errorf("unexpected rendered body: %q", body)
	}
}

func TestTemplateEngine_UnknownTemplate(t *testing.T) {
	e := NewTemplateEngine()
	if _, err := e.Render("no-such-template", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestTemplateEngine_UnmatchedKeysLeftAsIs(t *testing.T) {
	e := NewTemplateEngine()
	e.RegisterTemplate(Template{ID: "t", Body: "hola {{name}}"})
	body, err := e.Render("t", map[string]string{"other": "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "hola {{name}}" {
		t.Errorf("expected placeholder untouched, got %q", body)
	}
}

func TestDispatcher_SendsToKnownContacts(t *testing.T) {
	sender := &MockSMSSender{}
	contacts := StaticContacts{42: "+5215550001", 7: "+5215550002"}
	d := NewDispatcher(sender, contacts, zerolog.Nop())

	res := d.NotifyAppointment(context.Background(), EventCreated, testAppointment())
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if len(sender.Calls()) != 2 {
		t.Errorf("expected 2 deliveries, got %d", len(sender.Calls()))
	}
}

func TestDispatcher_SkipsMissingPhones(t *testing.T) {
	sender := &MockSMSSender{}
	d := NewDispatcher(sender, StaticContacts{42: "+5215550001"}, zerolog.Nop())

	res := d.NotifyAppointment(context.Background(), EventUpdated, testAppointment())
	if !res.Success {
		t.Fatalf("expected success when a contact simply has no phone, got %+v", res)
	}
	if len(sender.Calls()) != 1 {
		t.Errorf("expected 1 delivery, got %d", len(sender.Calls()))
	}
}

func TestDispatcher_SendFailureIsSwallowed(t *testing.T) {
	sender := &MockSMSSender{}
	sender.FailWith(errors.New("provider down"))
	d := NewDispatcher(sender, StaticContacts{42: "+5215550001", 7: "+5215550002"}, zerolog.Nop())

	res := d.NotifyAppointment(context.Background(), EventCancelled, testAppointment())
	if res.Success {
		t.Error("expected failure result when deliveries fail")
	}
	// The point: no panic, no error escapes, caller only sees the Result.
}
