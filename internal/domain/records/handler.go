package records

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
	writeGroup := api.Group("", auth.RequireRole("admin", "doctor"))
	writeGroup.POST("/records", h.CreateRecord)
	writeGroup.POST("/records/:id/archive", h.ArchiveRecord)
	writeGroup.POST("/prescriptions", h.CreatePrescription)
	writeGroup.POST("/prescriptions/:id/cancel", h.CancelPrescription)

	readGroup := api.Group("", auth.RequireRole("admin", "doctor", "patient"))
	readGroup.GET("/records/:id", h.GetRecord)
	readGroup.GET("/records", h.ListRecords)
	readGroup.GET("/prescriptions/:id", h.GetPrescription)
	readGroup.GET("/prescriptions", h.ListPrescriptions)
	readGroup.POST("/prescriptions/:id/refill", h.Refill)
}

func (h *Handler) CreateRecord(c echo.Context) error {
	var r MedicalRecord
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	// Doctors author records under their own id.
	if p, ok := auth.FromContext(c); ok && p.Role == "doctor" {
		r.DoctorID = p.ProfileID
	}
	created, err := h.svc.CreateRecord(r)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetRecord(c echo.Context) error {
	r, err := h.svc.GetRecord(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) ArchiveRecord(c echo.Context) error {
	if err := h.svc.ArchiveRecord(c.Param("id")); err != nil {
		return httpError(err)
	}
	return h.GetRecord(c)
}

func (h *Handler) ListRecords(c echo.Context) error {
	page := pagination.FromContext(c)
	if patientID := c.QueryParam("patient_id"); patientID != "" {
		return c.JSON(http.StatusOK, pagination.Page(h.svc.RecordsByPatient(patientID), page))
	}
	if doctorID := c.QueryParam("doctor_id"); doctorID != "" {
		return c.JSON(http.StatusOK, pagination.Page(h.svc.RecordsByDoctor(doctorID), page))
	}
	p, ok := auth.FromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id or doctor_id query parameter required")
	}
	switch p.Role {
	case "doctor":
		return c.JSON(http.StatusOK, pagination.Page(h.svc.RecordsByDoctor(p.ProfileID), page))
	case "patient":
		return c.JSON(http.StatusOK, pagination.Page(h.svc.RecordsByPatient(p.ProfileID), page))
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id or doctor_id query parameter required")
	}
}

func (h *Handler) CreatePrescription(c echo.Context) error {
	var p Prescription
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if pr, ok := auth.FromContext(c); ok && pr.Role == "doctor" {
		p.DoctorID = pr.ProfileID
	}
	created, err := h.svc.CreatePrescription(p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetPrescription(c echo.Context) error {
	p, err := h.svc.GetPrescription(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Refill(c echo.Context) error {
	p, err := h.svc.Refill(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) CancelPrescription(c echo.Context) error {
	if err := h.svc.CancelPrescription(c.Param("id")); err != nil {
		return httpError(err)
	}
	return h.GetPrescription(c)
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	page := pagination.FromContext(c)
	if patientID := c.QueryParam("patient_id"); patientID != "" {
		return c.JSON(http.StatusOK, pagination.Page(h.svc.PrescriptionsByPatient(patientID), page))
	}
	if doctorID := c.QueryParam("doctor_id"); doctorID != "" {
		return c.JSON(http.StatusOK, pagination.Page(h.svc.PrescriptionsByDoctor(doctorID), page))
	}
	p, ok := auth.FromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id or doctor_id query parameter required")
	}
	switch p.Role {
	case "doctor":
		return c.JSON(http.StatusOK, pagination.Page(h.svc.PrescriptionsByDoctor(p.ProfileID), page))
	case "patient":
		return c.JSON(http.StatusOK, pagination.Page(h.svc.PrescriptionsByPatient(p.ProfileID), page))
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id or doctor_id query parameter required")
	}
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrRecordNotFound),
		errors.Is(err, ErrPrescriptionNotFound),
		errors.Is(err, ErrDoctorNotFound),
		errors.Is(err, ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNoRefillsLeft):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
