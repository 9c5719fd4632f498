package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/nvoronchev/platform-auth/internal/service"
	"github.com/nvoronchev/platform-auth/pkg/tokens"
)

type RequireAuthMW struct {
	Svc *service.AuthService
}

func NewRequireAuth(svc *service.AuthService) *RequireAuthMW {
	return &RequireAuthMW{Svc: svc}
}

// RequireAuth accepts a bearer access token, validates it through the
// lifecycle manager (signature, type, expiry, revocation) and exposes the
// subject and scopes to the handler.
func (m *RequireAuthMW) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get(echo.HeaderAuthorization)
		if len(auth) < 8 || !strings.EqualFold(auth[:7], "bearer ") {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := m.Svc.Authenticate(c.Request().Context(), strings.TrimSpace(auth[7:]))
		if err != nil {
			if errors.Is(err, tokens.ErrExpired) {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has expired")
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}

		c.Set("user_id", claims.Subject)
		c.Set("scopes", claims.Scopes)

		return next(c)
	}
}
