package echoapi

import (
	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/services/backend"
)

// instituteMiddleware rejects tokens that are not scoped to an institute.
// Backend calls made while serving the request authenticate with the caller's token.
func instituteMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.InstituteID == "" {
				return errNoInstitute
			}
			if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
				req := ctx.Request()
				ctx.SetRequest(req.WithContext(backend.ContextWithToken(req.Context(), token.Raw)))
			}
			return next(ctx)
		}
	}
}
