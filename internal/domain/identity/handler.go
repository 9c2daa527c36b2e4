package identity

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/caresched/caresched/internal/platform/auth"
	"github.com/caresched/caresched/pkg/pagination"
)

type Handler struct {
	svc    *Service
	issuer auth.Issuer
}

func NewHandler(svc *Service, issuer auth.Issuer) *Handler {
	return &Handler{svc: svc, issuer: issuer}
}

func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.POST("/register", h.Register)
	public.POST("/login", h.Login)

	// Any authenticated role can browse doctors. Patient and user
	// listings are restricted.
	readGroup := api.Group("", auth.RequireRole("admin", "doctor", "patient"))
	readGroup.GET("/doctors", h.ListDoctors)
	readGroup.GET("/doctors/:id", h.GetDoctor)

	adminGroup := api.Group("", auth.RequireRole("admin"))
	adminGroup.GET("/users", h.ListUsers)
	adminGroup.GET("/users/:username", h.GetUser)
	adminGroup.PATCH("/users/:username/status", h.SetUserStatus)

	patientGroup := api.Group("", auth.RequireRole("admin", "doctor"))
	patientGroup.GET("/patients", h.ListPatients)
	patientGroup.GET("/patients/:id", h.GetPatient)
}

// registerRequest is the registration body. The User model hides Password
// from JSON so responses never leak it; the incoming credential needs its
// own field here.
type registerRequest struct {
	Username      string          `json:"username"`
	Password      string          `json:"password"`
	FullName      string          `json:"full_name"`
	Email         string          `json:"email"`
	ContactNumber string          `json:"contact_number"`
	Address       string          `json:"address"`
	Role          Role            `json:"role"`
	Admin         *AdminProfile   `json:"admin"`
	Doctor        *DoctorProfile  `json:"doctor"`
	Patient       *PatientProfile `json:"patient"`
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := h.svc.Register(User{
		Username:      req.Username,
		Password:      req.Password,
		FullName:      req.FullName,
		Email:         req.Email,
		ContactNumber: req.ContactNumber,
		Address:       req.Address,
		Role:          req.Role,
		Admin:         req.Admin,
		Doctor:        req.Doctor,
		Patient:       req.Patient,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateUsername):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, created)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.Authenticate(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrAccountDisabled):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		default:
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
		}
	}
	token, err := h.issuer.Token(u.Username, string(u.Role), u.ProfileID())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "issue token")
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, User: u})
}

func (h *Handler) ListUsers(c echo.Context) error {
	page := pagination.FromContext(c)
	if role := c.QueryParam("role"); role != "" {
		r := Role(role)
		if !r.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown role")
		}
		return c.JSON(http.StatusOK, pagination.Page(h.svc.ListByRole(r), page))
	}
	var all []User
	for _, r := range []Role{RoleAdmin, RoleDoctor, RolePatient} {
		all = append(all, h.svc.ListByRole(r)...)
	}
	return c.JSON(http.StatusOK, pagination.Page(all, page))
}

func (h *Handler) GetUser(c echo.Context) error {
	u, err := h.svc.GetUser(c.Param("username"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, u)
}

type statusRequest struct {
	Active bool `json:"active"`
}

func (h *Handler) SetUserStatus(c echo.Context) error {
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.SetActive(c.Param("username"), req.Active)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.ListByRole(RoleDoctor))
}

func (h *Handler) GetDoctor(c echo.Context) error {
	u, err := h.svc.GetDoctor(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ListPatients(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.ListByRole(RolePatient))
}

func (h *Handler) GetPatient(c echo.Context) error {
	u, err := h.svc.GetPatient(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, u)
}
