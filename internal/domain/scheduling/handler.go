package scheduling

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/caresched/caresched/internal/platform/auth"
	"github.com/caresched/caresched/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "doctor", "patient"))
	readGroup.GET("/doctors/:id/availability", h.Availability)
	readGroup.GET("/appointments/:id", h.Get)
	readGroup.GET("/appointments", h.List)

	// Doctors may book on a patient's behalf, but once booked the
	// patient side cancels or reschedules while the clinic side rejects.
	bookGroup := api.Group("", auth.RequireRole("admin", "doctor", "patient"))
	bookGroup.POST("/appointments", h.Book)

	patientGroup := api.Group("", auth.RequireRole("admin", "patient"))
	patientGroup.POST("/appointments/:id/cancel", h.Cancel)
	patientGroup.POST("/appointments/:id/reschedule", h.Reschedule)

	clinicGroup := api.Group("", auth.RequireRole("admin", "doctor"))
	clinicGroup.POST("/appointments/:id/approve", h.Approve)
	clinicGroup.POST("/appointments/:id/reject", h.Reject)
	clinicGroup.POST("/appointments/:id/complete", h.Complete)
}

func (h *Handler) Availability(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "date query parameter required")
	}
	slots, err := h.svc.AvailableSlots(c.Param("id"), date)
	if err != nil {
		return httpError(err)
	}
	if slots == nil {
		slots = []string{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor_id":       c.Param("id"),
		"date":            date,
		"available_slots": slots,
	})
}

type bookRequest struct {
	DoctorID  string `json:"doctor_id"`
	PatientID string `json:"patient_id"`
	Date      string `json:"date"`
	TimeSlot  string `json:"time_slot"`
	Reason    string `json:"reason"`
}

func (h *Handler) Book(c echo.Context) error {
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	// Patients book only for themselves; doctors book only into their
	// own schedule.
	if p, ok := auth.FromContext(c); ok {
		switch p.Role {
		case "patient":
			req.PatientID = p.ProfileID
		case "doctor":
			req.DoctorID = p.ProfileID
		}
	}
	appt, err := h.svc.Book(req.DoctorID, req.PatientID, req.Date, req.TimeSlot, req.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) Get(c echo.Context) error {
	appt, err := h.svc.Get(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) List(c echo.Context) error {
	page := pagination.FromContext(c)
	if doctorID := c.QueryParam("doctor_id"); doctorID != "" {
		return c.JSON(http.StatusOK, pagination.Page(h.svc.ListByDoctor(doctorID), page))
	}
	if patientID := c.QueryParam("patient_id"); patientID != "" {
		return c.JSON(http.StatusOK, pagination.Page(h.svc.ListByPatient(patientID), page))
	}
	p, ok := auth.FromContext(c)
	if ok && p.Role != "admin" {
		// Non-admins see only their own appointments.
		switch p.Role {
		case "doctor":
			return c.JSON(http.StatusOK, pagination.Page(h.svc.ListByDoctor(p.ProfileID), page))
		case "patient":
			return c.JSON(http.StatusOK, pagination.Page(h.svc.ListByPatient(p.ProfileID), page))
		}
	}
	return c.JSON(http.StatusOK, pagination.Page(h.svc.List(), page))
}

func (h *Handler) Approve(c echo.Context) error {
	if err := h.svc.Approve(c.Param("id")); err != nil {
		return httpError(err)
	}
	return h.Get(c)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Reject(c echo.Context) error {
	var req reasonRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Reject(c.Param("id"), req.Reason); err != nil {
		return httpError(err)
	}
	return h.Get(c)
}

func (h *Handler) Cancel(c echo.Context) error {
	var req reasonRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Cancel(c.Param("id"), req.Reason); err != nil {
		return httpError(err)
	}
	return h.Get(c)
}

func (h *Handler) Complete(c echo.Context) error {
	if err := h.svc.Complete(c.Param("id")); err != nil {
		return httpError(err)
	}
	return h.Get(c)
}

type rescheduleRequest struct {
	Date     string `json:"date"`
	TimeSlot string `json:"time_slot"`
}

func (h *Handler) Reschedule(c echo.Context) error {
	var req rescheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Reschedule(c.Param("id"), req.Date, req.TimeSlot); err != nil {
		return httpError(err)
	}
	return h.Get(c)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrDoctorNotFound),
		errors.Is(err, ErrPatientNotFound),
		errors.Is(err, ErrAppointmentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSlotUnavailable):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotConfirmed):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
