package notes

import (
	"errors"
	"net/http"

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
	g := api.Group("/notes", auth.RequireRole(auth.RoleDoctor))
	g.POST("", h.CreateNote)
	g.GET("/:id", h.ReadNote)
	g.DELETE("/:id", h.DeleteNote)

	api.GET("/patients/:patient_id/notes", h.ListPatientNotes, auth.RequireRole(auth.RoleDoctor))
}

type createRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	NoteType  *string   `json:"note_type,omitempty"`
}

func (h *Handler) CreateNote(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	n, err := h.svc.CreateNote(ctx, req.PatientID, req.Title, req.Content, req.NoteType,
		auth.UserIDFromContext(ctx), auth.RoleFromContext(ctx))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) ReadNote(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid note id")
	}
	ctx := c.Request().Context()

	n, err := h.svc.ReadNote(ctx, id, auth.UserIDFromContext(ctx), auth.RoleFromContext(ctx))
	switch {
	case errors.Is(err, ErrReadDenied), errors.Is(err, ErrNoTreatmentConsent):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, pgx.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "note not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) DeleteNote(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid note id")
	}
	ctx := c.Request().Context()

	err = h.svc.DeleteNote(ctx, id, auth.UserIDFromContext(ctx), auth.RoleFromContext(ctx))
	switch {
	case errors.Is(err, ErrReadDenied):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, pgx.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "note not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListPatientNotes(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	params := pagination.FromContext(c)
	ctx := c.Request().Context()
	items, total, err := h.svc.ListByPatient(ctx, patientID,
		auth.UserIDFromContext(ctx), auth.RoleFromContext(ctx), params.Limit, params.Offset)
	if errors.Is(err, ErrNoTreatmentConsent) {
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}
