package bloodreport

import (
	"errors"
	"io"
	"net/http"
	"time"

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
	g := api.Group("/reports", auth.RequireRole(auth.RoleDoctor, auth.RolePatient))
	g.POST("", h.UploadReport)
	g.GET("/:id", h.GetReport)

	api.GET("/patients/:patient_id/reports", h.ListPatientReports,
		auth.RequireRole(auth.RoleDoctor, auth.RolePatient))
}

// UploadReport takes a multipart form: the document under "file" plus
// patient_id, and optionally report_date and lab_name.
func (h *Handler) UploadReport(c echo.Context) error {
	patientID, err := uuid.Parse(c.FormValue("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var reportDate *time.Time
	if raw := c.FormValue("report_date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "report_date must be YYYY-MM-DD")
		}
		reportDate = &parsed
	}
	var labName *string
	if raw := c.FormValue("lab_name"); raw != "" {
		labName = &raw
	}

	ctx := c.Request().Context()
	rep, err := h.svc.Upload(ctx, patientID, fh.Filename, content, reportDate, labName, auth.UserIDFromContext(ctx))
	switch {
	case errors.Is(err, ErrDuplicateReport):
		return c.JSON(http.StatusConflict, map[string]any{
			"error":    err.Error(),
			"existing": rep,
		})
	case errors.Is(err, ErrNothingFound):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rep)
}

func (h *Handler) GetReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid report id")
	}
	ctx := c.Request().Context()

	rep, err := h.svc.Get(ctx, id, auth.UserIDFromContext(ctx), auth.RoleFromContext(ctx))
	switch {
	case errors.Is(err, ErrAccessDenied):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusNotFound, "report not found")
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) ListPatientReports(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	params := pagination.FromContext(c)
	ctx := c.Request().Context()

	items, total, err := h.svc.ListByPatient(ctx, patientID, params.Limit, params.Offset,
		auth.UserIDFromContext(ctx), auth.RoleFromContext(ctx))
	switch {
	case errors.Is(err, ErrAccessDenied):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}
