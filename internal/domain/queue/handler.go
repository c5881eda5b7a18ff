package queue

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinicops/clinicops/internal/platform/auth"
	"github.com/clinicops/clinicops/pkg/apperr"
)

// Handler exposes the queue operations over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the queue routes on g, which is expected to be the
// authenticated /api/v1 group.
func (h *Handler) Register(g *echo.Group) {
	q := g.Group("/queue")
	q.POST("/join", h.Join)
	q.GET("/statuses", h.Statuses)
	q.POST("/doctor/:doctorId/call-next", h.CallNext, auth.RequireRole(auth.RoleDoctor))
	q.GET("/doctor/:doctorId/current", h.Current, auth.RequireRole(auth.RoleDoctor))
	q.GET("/doctor/:doctorId/waiting", h.Waiting, auth.RequireRole(auth.RoleDoctor))
	q.GET("/ticket/:ticketId/position", h.Position)
	q.POST("/ticket/:ticketId/complete", h.Complete, auth.RequireRole(auth.RoleDoctor))
	q.DELETE("/ticket/:ticketId", h.Cancel)
}

type joinRequest struct {
	DoctorID  int64 `json:"doctorId"`
	PatientID int64 `json:"patientId"`
}

func (h *Handler) Join(c echo.Context) error {
	var req joinRequest
	if err := c.Bind(&req); err != nil {
		return apperr.E(apperr.KindValidation, "invalid request body")
	}

	// Patients join for themselves; the body's patientId is only honored for
	// staff roles.
	if actor := auth.ActorFromContext(c.Request().Context()); actor.Role == auth.RolePatient {
		req.PatientID = actor.ID
	}

	pt, err := h.svc.Join(c.Request().Context(), req.DoctorID, req.PatientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, apperr.OKMsg("joined the queue", pt))
}

func (h *Handler) CallNext(c echo.Context) error {
	doctorID, err := pathID(c, "doctorId")
	if err != nil {
		return err
	}
	if !auth.CanActOnDoctor(c.Request().Context(), doctorID) {
		return apperr.E(apperr.KindForbidden, "doctors may only operate their own queue")
	}

	t, err := h.svc.CallNext(c.Request().Context(), doctorID)
	if err != nil {
		return err
	}
	if t == nil {
		return c.JSON(http.StatusOK, apperr.OKMsg("queue is empty", nil))
	}
	return c.JSON(http.StatusOK, apperr.OKMsg("patient called", t))
}

func (h *Handler) Current(c echo.Context) error {
	doctorID, err := pathID(c, "doctorId")
	if err != nil {
		return err
	}
	if !auth.CanActOnDoctor(c.Request().Context(), doctorID) {
		return apperr.E(apperr.KindForbidden, "doctors may only view their own queue")
	}

	t, err := h.svc.Current(c.Request().Context(), doctorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apperr.OK(t))
}

func (h *Handler) Waiting(c echo.Context) error {
	doctorID, err := pathID(c, "doctorId")
	if err != nil {
		return err
	}
	if !auth.CanActOnDoctor(c.Request().Context(), doctorID) {
		return apperr.E(apperr.KindForbidden, "doctors may only view their own queue")
	}

	list, err := h.svc.Waiting(c.Request().Context(), doctorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apperr.OK(list))
}

func (h *Handler) Position(c echo.Context) error {
	ticketID, err := pathID(c, "ticketId")
	if err != nil {
		return err
	}
	pt, err := h.svc.Position(c.Request().Context(), ticketID)
	if err != nil {
		return err
	}
	if err := h.authorizeTicket(c, pt.Ticket); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apperr.OK(pt))
}

func (h *Handler) Complete(c echo.Context) error {
	ticketID, err := pathID(c, "ticketId")
	if err != nil {
		return err
	}
	existing, err := h.svc.Position(c.Request().Context(), ticketID)
	if err != nil {
		return err
	}
	if err := h.authorizeTicket(c, existing.Ticket); err != nil {
		return err
	}

	t, err := h.svc.Complete(c.Request().Context(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apperr.OKMsg("ticket completed", t))
}

func (h *Handler) Cancel(c echo.Context) error {
	ticketID, err := pathID(c, "ticketId")
	if err != nil {
		return err
	}

	// Look up first so patients can only cancel their own ticket.
	existing, err := h.svc.Position(c.Request().Context(), ticketID)
	if err != nil {
		return err
	}
	if err := h.authorizeTicket(c, existing.Ticket); err != nil {
		return err
	}

	t, remaining, err := h.svc.Cancel(c.Request().Context(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apperr.OKMsg("ticket cancelled", map[string]any{
		"ticket":  t,
		"waiting": remaining,
	}))
}

func (h *Handler) Statuses(c echo.Context) error {
	return c.JSON(http.StatusOK, apperr.OK(AllStatuses()))
}

// authorizeTicket restricts patients to their own tickets and doctors to
// tickets in their own queue. Admins see everything.
func (h *Handler) authorizeTicket(c echo.Context, t *Ticket) error {
	actor := auth.ActorFromContext(c.Request().Context())
	switch actor.Role {
	case auth.RoleAdmin:
		return nil
	case auth.RoleDoctor:
		if actor.ID == t.DoctorID {
			return nil
		}
	case auth.RolePatient:
		if actor.ID == t.PatientID {
			return nil
		}
	}
	return apperr.E(apperr.KindForbidden, "not allowed to access this ticket")
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.E(apperr.KindValidation, name+" must be a positive integer")
	}
	return id, nil
}
