package reporting

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/caresched/caresched/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	statsGroup := api.Group("", auth.RequireRole("admin"))
	statsGroup.GET("/stats/overview", h.Overview)
	statsGroup.GET("/stats/doctors", h.DoctorLoads)

	patientGroup := api.Group("", auth.RequireRole("admin", "doctor", "patient"))
	patientGroup.GET("/stats/patients/:id/upcoming", h.UpcomingForPatient)
}

func (h *Handler) Overview(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Overview())
}

func (h *Handler) DoctorLoads(c echo.Context) error {
	loads := h.svc.DoctorLoads()
	if loads == nil {
		loads = []DoctorLoad{}
	}
	return c.JSON(http.StatusOK, loads)
}

func (h *Handler) UpcomingForPatient(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"patient_id": c.Param("id"),
		"upcoming":   h.svc.UpcomingForPatient(c.Param("id")),
	})
}
