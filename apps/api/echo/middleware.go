package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/tenant"
)

// schoolHeader lets platform staff act on a tenant other than their own.
const schoolHeader = "X-School"

// tenantMiddleware pins the request context to the partition named in the JWT
// claims. Staff accounts (which live in the Public tenant) may target any
// school via the X-School header; everyone else is locked to their own.
func tenantMiddleware(tenants *tenant.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			name := claims.School
			if claims.IsStaff {
				if hdr := ctx.Request().Header.Get(schoolHeader); hdr != "" {
					name = hdr
				}
			}
			if name == "" || name == tenant.PublicName {
				return errHttpForbidden
			}

			sch, err := tenants.Resolve(ctx.Request().Context(), name)
			if err != nil {
				if errors.Cause(err) == tenant.ErrNotFound {
					return errHttpForbidden
				}
				return errors.Wrap(err, "resolving tenant")
			}

			req := ctx.Request()
			ctx.SetRequest(req.WithContext(tenant.NewContext(req.Context(), sch)))
			return next(ctx)
		}
	}
}

// adminMiddleware restricts a route to school admins (and platform staff).
func adminMiddleware() echo.MiddlewareFunc {
	return requireClaims(func(c Claims) bool { return c.IsAdmin || c.IsStaff })
}

// teacherMiddleware restricts a route to teachers, admins and staff.
func teacherMiddleware() echo.MiddlewareFunc {
	return requireClaims(func(c Claims) bool { return c.IsTeacher || c.IsAdmin || c.IsStaff })
}

// parentMiddleware restricts a route to parents.
func parentMiddleware() echo.MiddlewareFunc {
	return requireClaims(func(c Claims) bool { return c.IsParent })
}

// staffMiddleware restricts a route to platform staff.
func staffMiddleware() echo.MiddlewareFunc {
	return requireClaims(func(c Claims) bool { return c.IsStaff })
}

func requireClaims(allowed func(Claims) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if allowed(claims) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
