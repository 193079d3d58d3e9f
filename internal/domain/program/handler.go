package program

import (
	"net/http"

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
	api.POST("/billing-programs", h.CreateBillingProgram)
	api.GET("/billing-programs", h.ListBillingPrograms)
	api.GET("/billing-programs/:id", h.GetBillingProgram)

	api.POST("/condition-presets", h.CreatePreset)
	api.GET("/condition-presets", h.ListPresets)
	api.GET("/condition-presets/:id", h.GetPreset)

	api.POST("/care-programs", h.CreateCareProgram)
	api.GET("/care-programs", h.ListCarePrograms)

	api.POST("/enrollments", h.Enroll)
	api.GET("/enrollments/:id", h.GetEnrollment)
	api.PUT("/enrollments/:id/status", h.UpdateEnrollmentStatus)
	api.GET("/patients/:id/enrollments", h.ListEnrollments)
}

func (h *Handler) CreateBillingProgram(c echo.Context) error {
	var bp BillingProgram
	if err := c.Bind(&bp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateBillingProgram(c.Request().Context(), &bp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, bp)
}

func (h *Handler) GetBillingProgram(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	bp, err := h.svc.GetBillingProgram(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if bp == nil {
		return echo.NewHTTPError(http.StatusNotFound, "billing program not found")
	}
	return c.JSON(http.StatusOK, bp)
}

func (h *Handler) ListBillingPrograms(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListBillingPrograms(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreatePreset(c echo.Context) error {
	var p ConditionPreset
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !p.IsStandardized {
		orgID := middleware.OrgFromEcho(c)
		p.OrganizationID = &orgID
	}
	if err := h.svc.CreatePreset(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPreset(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPreset(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if p == nil {
		return echo.NewHTTPError(http.StatusNotFound, "condition preset not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPresets(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPresets(c.Request().Context(), middleware.OrgFromEcho(c), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreateCareProgram(c echo.Context) error {
	var cp CareProgram
	if err := c.Bind(&cp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cp.OrganizationID = middleware.OrgFromEcho(c)
	if err := h.svc.CreateCareProgram(c.Request().Context(), &cp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, cp)
}

func (h *Handler) ListCarePrograms(c echo.Context) error {
	items, err := h.svc.ListCarePrograms(c.Request().Context(), middleware.OrgFromEcho(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Enroll(c echo.Context) error {
	var e Enrollment
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Enroll(c.Request().Context(), &e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) GetEnrollment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.GetEnrollment(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if e == nil {
		return echo.NewHTTPError(http.StatusNotFound, "enrollment not found")
	}
	return c.JSON(http.StatusOK, e)
}

type enrollmentStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateEnrollmentStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req enrollmentStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.UpdateEnrollmentStatus(c.Request().Context(), id, req.Status); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListEnrollments(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListEnrollments(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
