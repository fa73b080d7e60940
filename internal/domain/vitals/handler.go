package vitals

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
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
	g := api.Group("/vitals", auth.RequireRole(auth.RoleDoctor, auth.RolePatient))
	g.POST("", h.UploadVital)
	g.POST("/batch", h.BatchUpload)
	g.GET("/:id", h.GetVital)
	g.DELETE("/:id", h.DeleteVital, auth.RequireRole(auth.RoleAdmin))

	p := api.Group("/patients/:patient_id", auth.RequireRole(auth.RoleDoctor, auth.RolePatient))
	p.GET("/vitals", h.ListPatientVitals)
	p.GET("/tests", h.ListPatientTests)

	t := api.Group("/tests", auth.RequireRole(auth.RoleDoctor))
	t.POST("", h.RecordTest)
	t.GET("/:id", h.GetTest)
}

type uploadRequest struct {
	PatientID  uuid.UUID  `json:"patient_id"`
	VitalType  string     `json:"vital_type"`
	Value      float64    `json:"value"`
	Source     string     `json:"source,omitempty"`
	SourceID   *string    `json:"source_id,omitempty"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
	Checksum   *string    `json:"checksum,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
}

type uploadResponse struct {
	Vital *Vital `json:"vital"`
	Alert any    `json:"alert,omitempty"`
}

func (h *Handler) UploadVital(c echo.Context) error {
	var req uploadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	v := &Vital{
		PatientID:  req.PatientID,
		VitalType:  req.VitalType,
		Value:      req.Value,
		Source:     Source(req.Source),
		SourceID:   req.SourceID,
		Checksum:   req.Checksum,
		Notes:      req.Notes,
	}
	if req.RecordedAt != nil {
		v.RecordedAt = *req.RecordedAt
	}

	vital, generated, err := h.svc.UploadVital(ctx, v, auth.UserIDFromContext(ctx), auth.RoleFromContext(ctx))
	if err != nil {
		return vitalsHTTPError(err)
	}
	resp := uploadResponse{Vital: vital}
	if generated != nil {
		resp.Alert = generated
	}
	return c.JSON(http.StatusCreated, resp)
}

type batchRequest struct {
	PatientID uuid.UUID   `json:"patient_id"`
	Source    string      `json:"source,omitempty"`
	Vitals    []BatchItem `json:"vitals"`
}

func (h *Handler) BatchUpload(c echo.Context) error {
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	res, err := h.svc.BatchUpload(ctx, req.PatientID, req.Vitals, Source(req.Source),
		auth.UserIDFromContext(ctx), auth.RoleFromContext(ctx))
	if err != nil {
		return vitalsHTTPError(err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetVital(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid vital id")
	}
	ctx := c.Request().Context()
	v, err := h.svc.GetVital(ctx, id, auth.UserIDFromContext(ctx), auth.RoleFromContext(ctx))
	if err != nil {
		return vitalsHTTPError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) DeleteVital(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid vital id")
	}
	ctx := c.Request().Context()
	if err := h.svc.DeleteVital(ctx, id, auth.UserIDFromContext(ctx)); err != nil {
		return vitalsHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListPatientVitals(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	params := pagination.FromContext(c)
	ctx := c.Request().Context()

	items, total, err := h.svc.ListByPatient(ctx, patientID, c.QueryParam("vital_type"),
		params.Limit, params.Offset, auth.UserIDFromContext(ctx), auth.RoleFromContext(ctx))
	if err != nil {
		return vitalsHTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

type testRequest struct {
	PatientID    uuid.UUID  `json:"patient_id"`
	TestType     string     `json:"test_type"`
	Result       string     `json:"result"`
	NumericValue *float64   `json:"numeric_value,omitempty"`
	Unit         *string    `json:"unit,omitempty"`
	Source       string     `json:"source,omitempty"`
	PerformedAt  *time.Time `json:"performed_at,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
}

func (h *Handler) RecordTest(c echo.Context) error {
	var req testRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	t := &MedicalTest{
		PatientID:    req.PatientID,
		TestType:     req.TestType,
		Result:       req.Result,
		NumericValue: req.NumericValue,
		Unit:         req.Unit,
		Source:       Source(req.Source),
		Notes:        req.Notes,
	}
	if req.PerformedAt != nil {
		t.PerformedAt = *req.PerformedAt
	}

	created, err := h.svc.RecordTest(ctx, t, auth.UserIDFromContext(ctx), auth.RoleFromContext(ctx))
	if err != nil {
		return vitalsHTTPError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetTest(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid test id")
	}
	ctx := c.Request().Context()
	t, err := h.svc.GetTest(ctx, id, auth.UserIDFromContext(ctx), auth.RoleFromContext(ctx))
	if err != nil {
		return vitalsHTTPError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ListPatientTests(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	params := pagination.FromContext(c)
	ctx := c.Request().Context()

	items, total, err := h.svc.ListTestsByPatient(ctx, patientID, c.QueryParam("test_type"),
		params.Limit, params.Offset, auth.UserIDFromContext(ctx), auth.RoleFromContext(ctx))
	if err != nil {
		return vitalsHTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

func vitalsHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrNoTreatmentConsent):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, pgx.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
