package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const orgIDKey contextKey = "organization_id"

// OrgHeader carries the caller's organization on every request. Resolution of
// the organization from credentials happens upstream of this service; here the
// header is only parsed and stashed on the request context.
const OrgHeader = "X-Organization-ID"

// OrgContext extracts the caller's organization id from the X-Organization-ID
// header. Requests without a valid organization are rejected; every handler in
// this service is org-scoped.
func OrgContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get(OrgHeader)
			if raw == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "missing "+OrgHeader+" header")
			}
			orgID, err := uuid.Parse(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid organization identifier")
			}

			ctx := context.WithValue(c.Request().Context(), orgIDKey, orgID)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("organization_id", orgID)
			return next(c)
		}
	}
}

// OrgFromContext retrieves the organization id from a request context.
func OrgFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(orgIDKey).(uuid.UUID)
	return id
}

// OrgFromEcho retrieves the organization id set by OrgContext.
func OrgFromEcho(c echo.Context) uuid.UUID {
	id, _ := c.Get("organization_id").(uuid.UUID)
	return id
}
