package device

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carevault/carevault/internal/platform/auth"
	"github.com/carevault/carevault/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/devices", auth.RequireRole(auth.RoleDoctor))
	g.POST("", h.RegisterDevice)
	g.GET("/:id", h.GetDevice)
	g.POST("/:id/deactivate", h.DeactivateDevice)

	api.GET("/patients/:patient_id/devices", h.ListPatientDevices, auth.RequireRole(auth.RoleDoctor))
}

type registerRequest struct {
	DeviceID     string    `json:"device_id"`
	PatientID    uuid.UUID `json:"patient_id"`
	DeviceType   string    `json:"device_type"`
	Manufacturer *string   `json:"manufacturer,omitempty"`
	ModelName    *string   `json:"model_name,omitempty"`
}

type registerResponse struct {
	Device *Device `json:"device"`
	// APIKey is the only place the plaintext key ever appears.
	APIKey string `json:"api_key"`
}

func (h *Handler) RegisterDevice(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	d, key, err := h.svc.Register(ctx, &Device{
		DeviceID:     req.DeviceID,
		PatientID:    req.PatientID,
		DeviceType:   req.DeviceType,
		Manufacturer: req.Manufacturer,
		ModelName:    req.ModelName,
	}, auth.UserIDFromContext(ctx))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, registerResponse{Device: d, APIKey: key})
}

func (h *Handler) GetDevice(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid device id")
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "device not found")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeactivateDevice(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid device id")
	}
	ctx := c.Request().Context()
	if err := h.svc.Deactivate(ctx, id, auth.UserIDFromContext(ctx)); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListPatientDevices(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	params := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}
