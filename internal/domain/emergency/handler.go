package emergency

import (
	"errors"
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
	g := api.Group("/emergency", auth.RequireRole(auth.RoleDoctor))
	g.POST("/trigger", h.TriggerAccess)
	g.POST("/detect", h.DetectTrigger)
	g.GET("/access/:patient_id", h.AccessPatientData)
	g.GET("/active", h.ListActive)
	g.POST("/terminate/:id", h.TerminateAccess)
	g.GET("/patients/:patient_id/history", h.ListPatientHistory)
}

type triggerRequest struct {
	PatientID      uuid.UUID `json:"patient_id"`
	TriggerReason  string    `json:"trigger_reason"`
	TriggerKeyword *string   `json:"trigger_keyword,omitempty"`
}

func (h *Handler) TriggerAccess(c echo.Context) error {
	var req triggerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	a, err := h.svc.Trigger(ctx, req.PatientID, req.TriggerReason, req.TriggerKeyword, auth.UserIDFromContext(ctx))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

type detectRequest struct {
	InputText string `json:"input_text"`
}

func (h *Handler) DetectTrigger(c echo.Context) error {
	var req detectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d := DetectTrigger(req.InputText)
	resp := map[string]any{
		"detection": d,
	}
	if id := ExtractPatientIdentifier(req.InputText); id != "" {
		resp["patient_identifier"] = id
	}
	return c.JSON(http.StatusOK, resp)
}

type accessResponse struct {
	Access  *Access `json:"access"`
	Patient any     `json:"patient"`
	Warning string  `json:"warning"`
}

func (h *Handler) AccessPatientData(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	accessID, err := uuid.Parse(c.QueryParam("access_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "access_id query parameter is required")
	}
	ctx := c.Request().Context()

	a, p, err := h.svc.AccessData(ctx, accessID, patientID, auth.UserIDFromContext(ctx))
	switch {
	case errors.Is(err, ErrAccessNotFound), errors.Is(err, ErrPatientMismatch):
		return echo.NewHTTPError(http.StatusNotFound, "emergency access not found")
	case errors.Is(err, ErrAccessExpired), errors.Is(err, ErrAccessTerminated):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, accessResponse{
		Access:  a,
		Patient: p,
		Warning: "Emergency access - all actions are fully audited",
	})
}

func (h *Handler) ListActive(c echo.Context) error {
	items, err := h.svc.ListActive(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

type terminateRequest struct {
	TerminationReason string `json:"termination_reason"`
}

func (h *Handler) TerminateAccess(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid access id")
	}
	var req terminateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.TerminationReason == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "termination_reason is required")
	}
	ctx := c.Request().Context()

	a, err := h.svc.Terminate(ctx, id, req.TerminationReason, auth.UserIDFromContext(ctx))
	switch {
	case errors.Is(err, ErrAccessNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyTerminated):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListPatientHistory(c echo.Context) error {
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
