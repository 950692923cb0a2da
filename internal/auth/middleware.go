package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Middleware rejects requests without valid credentials with a 401 and the
// Basic challenge.
func Middleware(v *Verifier, logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			err := v.Check(req.Header.Get(echo.HeaderAuthorization))
			if err == nil {
				return next(c)
			}
			logger.Warn().
				Err(err).
				Str("path", req.URL.Path).
				Str("remote_ip", c.RealIP()).
				Msg("admin authentication failed")
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, v.Challenge())
			return c.String(http.StatusUnauthorized, "Authentication required")
		}
	}
}
