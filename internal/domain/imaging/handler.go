package imaging

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
	// Patients upload their own scans; clinicians may attach scans for
	// any patient.
	writeGroup := api.Group("", auth.RequireRole("admin", "doctor", "patient"))
	writeGroup.POST("/scans", h.Upload)

	readGroup := api.Group("", auth.RequireRole("admin", "doctor", "patient"))
	readGroup.GET("/scans/:id", h.Get)
	readGroup.GET("/scans/:id/content", h.Download)
	readGroup.GET("/scans", h.List)
}

// Upload accepts a multipart form with a "file" part plus patient_id,
// optional appointment_id, and optional description fields.
func (h *Handler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file part is required")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()

	patientID := c.FormValue("patient_id")
	if p, ok := auth.FromContext(c); ok && p.Role == "patient" {
		patientID = p.ProfileID
	}

	sc, err := h.svc.Upload(
		c.Request().Context(),
		patientID,
		c.FormValue("appointment_id"),
		fh.Filename,
		fh.Header.Get("Content-Type"),
		c.FormValue("description"),
		src,
	)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, sc)
}

func (h *Handler) Get(c echo.Context) error {
	sc, err := h.svc.Get(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sc)
}

func (h *Handler) Download(c echo.Context) error {
	sc, rc, err := h.svc.Download(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	defer rc.Close()
	return c.Stream(http.StatusOK, sc.FileType, rc)
}

func (h *Handler) List(c echo.Context) error {
	patientID := c.QueryParam("patient_id")
	if patientID == "" {
		if p, ok := auth.FromContext(c); ok && p.Role == "patient" {
			patientID = p.ProfileID
		}
	}
	if patientID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id query parameter required")
	}
	return c.JSON(http.StatusOK, pagination.Page(h.svc.ListByPatient(patientID), pagination.FromContext(c)))
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrScanNotFound),
		errors.Is(err, ErrPatientNotFound),
		errors.Is(err, ErrAppointmentNotFound),
		errors.Is(err, ErrFileNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, ErrBadContentType):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
