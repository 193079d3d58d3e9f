package suggestion

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careops/careops/internal/platform/middleware"
	"github.com/careops/careops/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/patients/:id/billing-suggestions", h.SuggestPackages)
	api.GET("/patients/:id/billing-suggestions", h.ListSuggestions)
	api.GET("/billing-suggestions/:id", h.GetSuggestion)
	api.POST("/billing-suggestions/:id/approve", h.ApproveSuggestion)
	api.POST("/billing-suggestions/:id/reject", h.RejectSuggestion)

	api.POST("/package-templates", h.CreateTemplate)
	api.GET("/package-templates", h.ListTemplates)
	api.GET("/package-templates/:id", h.GetTemplate)
	api.PUT("/package-templates/:id", h.UpdateTemplate)
	api.DELETE("/package-templates/:id", h.DeactivateTemplate)
}

// httpError maps the engine's error taxonomy onto HTTP status codes.
func httpError(err error) error {
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return echo.NewHTTPError(http.StatusNotFound, notFound.Error())
	}
	var invalidState *InvalidStateError
	if errors.As(err, &invalidState) {
		return echo.NewHTTPError(http.StatusConflict, invalidState.Error())
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		return echo.NewHTTPError(http.StatusBadRequest, validation.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

type suggestRequest struct {
	MinMatchScore  int    `json:"min_match_score"`
	MaxSuggestions int    `json:"max_suggestions"`
	SourceType     string `json:"source_type"`
	SourceID       string `json:"source_id"`
}

func (h *Handler) SuggestPackages(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var req suggestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	orgID := middleware.OrgFromEcho(c)

	suggestions, err := h.svc.Suggest(c.Request().Context(), patientID, orgID, SuggestOptions{
		MinMatchScore:  req.MinMatchScore,
		MaxSuggestions: req.MaxSuggestions,
		SourceType:     req.SourceType,
		SourceID:       req.SourceID,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, suggestions)
}

func (h *Handler) ListSuggestions(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	orgID := middleware.OrgFromEcho(c)

	suggestions, err := h.svc.ListForPatient(c.Request().Context(), patientID, orgID, c.QueryParam("status"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, suggestions)
}

func (h *Handler) GetSuggestion(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sg, err := h.svc.Get(c.Request().Context(), id, middleware.OrgFromEcho(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sg)
}

type approveRequest struct {
	ReviewerID          string     `json:"reviewer_id"`
	ClinicianID         *string    `json:"clinician_id,omitempty"`
	StartDate           *time.Time `json:"start_date,omitempty"`
	SelectedProgramType string     `json:"selected_program_type,omitempty"`
}

func (h *Handler) ApproveSuggestion(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req approveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	reviewerID, err := uuid.Parse(req.ReviewerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid reviewer_id")
	}

	opts := ApproveOptions{SelectedProgramType: req.SelectedProgramType}
	if req.ClinicianID != nil {
		clinicianID, err := uuid.Parse(*req.ClinicianID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid clinician_id")
		}
		opts.ClinicianID = &clinicianID
	}
	if req.StartDate != nil {
		opts.StartDate = *req.StartDate
	}

	sg, err := h.svc.Approve(c.Request().Context(), id, reviewerID, opts)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sg)
}

type rejectRequest struct {
	ReviewerID string `json:"reviewer_id"`
	Reason     string `json:"reason"`
}

func (h *Handler) RejectSuggestion(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req rejectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	reviewerID, err := uuid.Parse(req.ReviewerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid reviewer_id")
	}

	sg, err := h.svc.Reject(c.Request().Context(), id, reviewerID, req.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sg)
}

// -- Package template catalog --

func (h *Handler) CreateTemplate(c echo.Context) error {
	var t PackageTemplate
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateTemplate(c.Request().Context(), &t); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) GetTemplate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	t, err := h.svc.GetTemplate(c.Request().Context(), id, middleware.OrgFromEcho(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ListTemplates(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListTemplates(c.Request().Context(), middleware.OrgFromEcho(c), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateTemplate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var t PackageTemplate
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t.ID = id
	if err := h.svc.UpdateTemplate(c.Request().Context(), &t); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) DeactivateTemplate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeactivateTemplate(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
