package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicops/clinicops/internal/platform/auth"
	"github.com/clinicops/clinicops/pkg/apperr"
)

func newTestApp(t *testing.T) (*echo.Echo, *Service) {
	t.Helper()
	svc, _, _ := newSchedService()
	e := echo.New()
	e.HTTPErrorHandler = apperr.EchoErrorHandler(zerolog.Nop())
	NewHandler(svc).Register(e.Group("/api/v1"))
	return e, svc
}

func doRequest(e *echo.Echo, actor auth.Actor, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req = req.WithContext(auth.WithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	return env
}

var (
	asAdmin   = auth.Actor{ID: 1, Role: auth.RoleAdmin}
	asDoctor7 = auth.Actor{ID: 7, Role: auth.RoleDoctor}
	asPatient = auth.Actor{ID: 42, Role: auth.RolePatient}
)

func createBody(date time.Time) string {
	return fmt.Sprintf(`{"doctorId": 7, "patientId": 999, "date": %q, "reason": "control"}`,
		date.Format(time.RFC3339))
}

func TestHandler_Create_PatientBooksSelf(t *testing.T) {
	e, _ := newTestApp(t)

	rec := doRequest(e, asPatient, http.MethodPost, "/api/v1/appointments", createBody(nextDay(10, 0)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	var a Appointment
	if err := json.Unmarshal(env.Data, &a); err != nil {
		t.Fatalf("decode appointment: %v", err)
	}
	if a.PatientID != asPatient.ID {
		t.Errorf("expected patient %d, got %d", asPatient.ID, a.PatientID)
	}
	if a.Status != StatusPending {
		t.Errorf("expected PENDIENTE, got %s", a.Status)
	}
}

func TestHandler_Create_WorkingHoursError(t *testing.T) {
	e, _ := newTestApp(t)

	rec := doRequest(e, asPatient, http.MethodPost, "/api/v1/appointments", createBody(nextDay(6, 0)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Code != string(apperr.KindWorkingHours) {
		t.Errorf("expected WORKING_HOURS code, got %+v", env)
	}
}

func TestHandler_Create_DurationPastClosing(t *testing.T) {
	e, _ := newTestApp(t)

	body := fmt.Sprintf(`{"doctorId": 7, "date": %q, "durationMinutes": 120, "reason": "control"}`,
		nextDay(17, 0).Format(time.RFC3339))
	rec := doRequest(e, asPatient, http.MethodPost, "/api/v1/appointments", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Code != string(apperr.KindWorkingHours) {
		t.Errorf("expected WORKING_HOURS code, got %+v", env)
	}
}

func TestHandler_Create_StatusHonored(t *testing.T) {
	e, _ := newTestApp(t)

	body := fmt.Sprintf(`{"doctorId": 7, "date": %q, "reason": "control", "status": "NOPE"}`,
		nextDay(10, 0).Format(time.RFC3339))
	rec := doRequest(e, asPatient, http.MethodPost, "/api/v1/appointments", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d: %s", rec.Code, rec.Body.String())
	}

	body = fmt.Sprintf(`{"doctorId": 7, "date": %q, "reason": "control", "status": "CONFIRMADA"}`,
		nextDay(10, 0).Format(time.RFC3339))
	rec = doRequest(e, asPatient, http.MethodPost, "/api/v1/appointments", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	var a Appointment
	if err := json.Unmarshal(env.Data, &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.Status != StatusConfirmed {
		t.Errorf("expected CONFIRMADA persisted, got %s", a.Status)
	}
}

func TestHandler_Update_DoctorReassignment(t *testing.T) {
	e, svc := newTestApp(t)
	a, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := doRequest(e, asAdmin, http.MethodPatch,
		fmt.Sprintf("/api/v1/appointments/%d", a.ID), `{"doctorId": 8}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	var updated Appointment
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.DoctorID != 8 {
		t.Errorf("expected doctorId 8, got %d", updated.DoctorID)
	}
}

func TestHandler_Create_Conflict(t *testing.T) {
	e, _ := newTestApp(t)

	doRequest(e, asPatient, http.MethodPost, "/api/v1/appointments", createBody(nextDay(10, 0)))
	other := auth.Actor{ID: 43, Role: auth.RolePatient}
	rec := doRequest(e, other, http.MethodPost, "/api/v1/appointments", createBody(nextDay(10, 15)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Code != string(apperr.KindOverlap) {
		t.Errorf("expected OVERLAP_CONFLICT code, got %+v", env)
	}
}

func TestHandler_Get_ParticipantsOnly(t *testing.T) {
	e, svc := newTestApp(t)
	a, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	path := fmt.Sprintf("/api/v1/appointments/%d", a.ID)

	if rec := doRequest(e, asPatient, http.MethodGet, path, ""); rec.Code != http.StatusOK {
		t.Errorf("patient participant: expected 200, got %d", rec.Code)
	}
	if rec := doRequest(e, asDoctor7, http.MethodGet, path, ""); rec.Code != http.StatusOK {
		t.Errorf("doctor participant: expected 200, got %d", rec.Code)
	}
	stranger := auth.Actor{ID: 50, Role: auth.RolePatient}
	if rec := doRequest(e, stranger, http.MethodGet, path, ""); rec.Code != http.StatusForbidden {
		t.Errorf("stranger: expected 403, got %d", rec.Code)
	}
}

func TestHandler_Update_Partial(t *testing.T) {
	e, svc := newTestApp(t)
	a, _ := svc.Create(context.Background(), validInput())

	rec := doRequest(e, asPatient, http.MethodPatch,
		fmt.Sprintf("/api/v1/appointments/%d", a.ID), `{"reason": "seguimiento"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	var updated Appointment
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Reason != "seguimiento" || !updated.Date.Equal(a.Date) {
		t.Errorf("unexpected update result: %+v", updated)
	}
}

func TestHandler_Cancel_ModificationWindow(t *testing.T) {
	e, svc := newTestApp(t)
	in := validInput()
	in.Date = clock.Add(4 * time.Hour)
	a, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := doRequest(e, asPatient, http.MethodDelete, fmt.Sprintf("/api/v1/appointments/%d", a.ID), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Code != string(apperr.KindModificationWindow) {
		t.Errorf("expected MODIFICATION_WINDOW code, got %+v", env)
	}
}

func TestHandler_ListByDoctor_OwnCalendarOnly(t *testing.T) {
	e, svc := newTestApp(t)
	if _, err := svc.Create(context.Background(), validInput()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := doRequest(e, asDoctor7, http.MethodGet, "/api/v1/appointments/doctor/8", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for another doctor's calendar, got %d", rec.Code)
	}

	rec = doRequest(e, asDoctor7, http.MethodGet, "/api/v1/appointments/doctor/7?limit=10", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	var page struct {
		Data  []Appointment `json:"data"`
		Total int           `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 1 || len(page.Data) != 1 {
		t.Errorf("unexpected page: %+v", page)
	}
}

func TestHandler_ListByPatient_SelfOnly(t *testing.T) {
	e, _ := newTestApp(t)

	rec := doRequest(e, asPatient, http.MethodGet, "/api/v1/appointments/patient/43", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for another patient's list, got %d", rec.Code)
	}
	rec = doRequest(e, asPatient, http.MethodGet, "/api/v1/appointments/patient/42", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = doRequest(e, asAdmin, http.MethodGet, "/api/v1/appointments/patient/42", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}
}

func TestHandler_Statuses(t *testing.T) {
	e, _ := newTestApp(t)
	rec := doRequest(e, asPatient, http.MethodGet, "/api/v1/appointments/statuses", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	var statuses []Status
	if err := json.Unmarshal(env.Data, &statuses); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(statuses) != 4 {
		t.Errorf("expected 4 statuses, got %v", statuses)
	}
}
