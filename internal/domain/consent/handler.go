package consent

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carevault/carevault/internal/domain/audit"
	"github.com/carevault/carevault/internal/platform/auth"
	"github.com/carevault/carevault/pkg/pagination"
)

type Handler struct {
	svc     *Service
	auditor *audit.Service
}

func NewHandler(svc *Service, auditor *audit.Service) *Handler {
	return &Handler{svc: svc, auditor: auditor}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/consent", auth.RequireRole(auth.RoleDoctor, auth.RolePatient))
	g.POST("/grant", h.GrantConsent)
	g.POST("/revoke", h.RevokeConsent)
	g.GET("/:patient_id", h.ListPatientConsents)
	g.GET("/:patient_id/check/:purpose", h.CheckConsent)
}

type grantRequest struct {
	PatientID   uuid.UUID  `json:"patient_id"`
	Purpose     string     `json:"purpose"`
	GrantedTo   *string    `json:"granted_to,omitempty"`
	ConsentText *string    `json:"consent_text,omitempty"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
}

func (h *Handler) GrantConsent(c echo.Context) error {
	var req grantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	purpose, err := ParsePurpose(req.Purpose)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	actorID := auth.UserIDFromContext(ctx)

	record, created, err := h.svc.Grant(ctx, req.PatientID, purpose, actorID, req.GrantedTo, req.ConsentText, req.ExpiryDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	h.auditor.RecordBestEffort(ctx, &audit.Entry{
		ActorID:      actorID,
		ActorRole:    string(auth.RoleFromContext(ctx)),
		Action:       audit.ActionConsentGranted,
		ResourceType: "consent",
		ResourceID:   record.ID.String(),
		PatientID:    &req.PatientID,
		Description:  "Consent granted for purpose " + string(purpose),
		Success:      true,
		Details:      map[string]any{"purpose": string(purpose), "created": created},
		IPAddress:    strPtr(c.RealIP()),
	})

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	return c.JSON(status, record)
}

type revokeRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
	Purpose   string    `json:"purpose"`
	GrantedTo *string   `json:"granted_to,omitempty"`
}

func (h *Handler) RevokeConsent(c echo.Context) error {
	var req revokeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	purpose, err := ParsePurpose(req.Purpose)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	actorID := auth.UserIDFromContext(ctx)

	record, err := h.svc.Revoke(ctx, req.PatientID, purpose, actorID, req.GrantedTo)
	if err != nil {
		if errors.Is(err, ErrNoActiveConsent) {
			return echo.NewHTTPError(http.StatusNotFound, "no active consent found to revoke")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	h.auditor.RecordBestEffort(ctx, &audit.Entry{
		ActorID:      actorID,
		ActorRole:    string(auth.RoleFromContext(ctx)),
		Action:       audit.ActionConsentRevoked,
		ResourceType: "consent",
		ResourceID:   record.ID.String(),
		PatientID:    &req.PatientID,
		Description:  "Consent revoked for purpose " + string(purpose),
		Success:      true,
		Details:      map[string]any{"purpose": string(purpose)},
		IPAddress:    strPtr(c.RealIP()),
	})

	return c.JSON(http.StatusOK, record)
}

func (h *Handler) ListPatientConsents(c echo.Context) error {
	pid, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), pid, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CheckConsent(c echo.Context) error {
	pid, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	purpose, err := ParsePurpose(c.Param("purpose"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var requester *string
	if d := c.QueryParam("doctor_id"); d != "" {
		requester = &d
	}

	active, err := h.svc.IsActive(c.Request().Context(), pid, purpose, requester)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"patient_id":  pid,
		"purpose":     purpose,
		"doctor_id":   requester,
		"has_consent": active,
	})
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
