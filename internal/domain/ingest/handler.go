package ingest

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carevault/carevault/internal/domain/device"
)

// Device credential headers. Devices do not carry user tokens; the
// ingestion route authenticates on these alone.
const (
	HeaderDeviceID = "X-Device-ID"
	HeaderAPIKey   = "X-API-Key"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the ingestion endpoint. It goes on the root
// group, outside the JWT middleware.
func (h *Handler) RegisterRoutes(root *echo.Group) {
	root.POST("/ingest", h.Ingest)
}

func (h *Handler) Ingest(c echo.Context) error {
	deviceID := c.Request().Header.Get(HeaderDeviceID)
	apiKey := c.Request().Header.Get(HeaderAPIKey)
	if deviceID == "" || apiKey == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "device credentials required")
	}

	var p Payload
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(p.Readings) == 0 && len(p.MedicalTests) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "readings or medical_tests are required")
	}

	res, err := h.svc.Ingest(c.Request().Context(), deviceID, apiKey, &p)
	switch {
	case errors.Is(err, device.ErrInvalidCredential):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, device.ErrDeviceInactive):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrConsentRequired):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}
