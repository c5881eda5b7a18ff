package scheduling

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinicops/clinicops/internal/platform/auth"
	"github.com/clinicops/clinicops/pkg/apperr"
	"github.com/clinicops/clinicops/pkg/pagination"
)

// Handler exposes the appointment operations over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the appointment routes on g, which is expected to be the
// authenticated /api/v1 group.
func (h *Handler) Register(g *echo.Group) {
	a := g.Group("/appointments")
	a.POST("", h.Create)
	a.GET("/statuses", h.Statuses)
	a.GET("/doctor/:doctorId", h.ListByDoctor, auth.RequireRole(auth.RoleDoctor))
	a.GET("/patient/:patientId", h.ListByPatient)
	a.GET("/:id", h.Get)
	a.PATCH("/:id", h.Update)
	a.DELETE("/:id", h.Cancel)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperr.E(apperr.KindValidation, "invalid request body")
	}

	// Patients book for themselves regardless of what the body claims.
	if actor := auth.ActorFromContext(c.Request().Context()); actor.Role == auth.RolePatient {
		in.PatientID = actor.ID
	}

	a, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, apperr.OKMsg("appointment created", a))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if err := h.authorizeAppointment(c, a); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apperr.OK(a))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	existing, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if err := h.authorizeAppointment(c, existing); err != nil {
		return err
	}

	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return apperr.E(apperr.KindValidation, "invalid request body")
	}

	a, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apperr.OKMsg("appointment updated", a))
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	existing, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if err := h.authorizeAppointment(c, existing); err != nil {
		return err
	}

	a, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apperr.OKMsg("appointment cancelled", a))
}

func (h *Handler) ListByDoctor(c echo.Context) error {
	doctorID, err := pathID(c, "doctorId")
	if err != nil {
		return err
	}
	if !auth.CanActOnDoctor(c.Request().Context(), doctorID) {
		return apperr.E(apperr.KindForbidden, "doctors may only view their own calendar")
	}

	p := pagination.FromContext(c)
	appts, total, err := h.svc.ListByDoctor(c.Request().Context(), doctorID, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apperr.OK(pagination.NewResponse(appts, total, p.Limit, p.Offset)))
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := pathID(c, "patientId")
	if err != nil {
		return err
	}
	if actor := auth.ActorFromContext(c.Request().Context()); actor.Role == auth.RolePatient && actor.ID != patientID {
		return apperr.E(apperr.KindForbidden, "patients may only view their own appointments")
	}

	p := pagination.FromContext(c)
	appts, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apperr.OK(pagination.NewResponse(appts, total, p.Limit, p.Offset)))
}

func (h *Handler) Statuses(c echo.Context) error {
	return c.JSON(http.StatusOK, apperr.OK(AllStatuses()))
}

// authorizeAppointment restricts patients and doctors to appointments they
// take part in. Admins see everything.
func (h *Handler) authorizeAppointment(c echo.Context, a *Appointment) error {
	actor := auth.ActorFromContext(c.Request().Context())
	switch actor.Role {
	case auth.RoleAdmin:
		return nil
	case auth.RoleDoctor:
		if actor.ID == a.DoctorID {
			return nil
		}
	case auth.RolePatient:
		if actor.ID == a.PatientID {
			return nil
		}
	}
	return apperr.E(apperr.KindForbidden, "not allowed to access this appointment")
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.E(apperr.KindValidation, name+" must be a positive integer")
	}
	return id, nil
}
