package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/nvoronchev/platform-auth/internal/service"
	"github.com/nvoronchev/platform-auth/pkg/logging"
	"github.com/nvoronchev/platform-auth/pkg/tokens"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("register rejected", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.Register(ctx, req.Username, req.Password, ""); err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrConflict):
			return echo.NewHTTPError(http.StatusConflict, "user already exists")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "register failed")
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{"username": req.Username})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login rejected", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return loginError(l, err)
	}

	l.Info("login successful")
	return c.JSON(http.StatusOK, tokenPairResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(h.Svc.AccessTTL.Seconds()),
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("refresh rejected", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrCompromiseDetected) {
			l.Warn("refresh rejected", "status", 401, "reason", "compromise detected")
			return echo.NewHTTPError(http.StatusUnauthorized, "session compromised, please log in again")
		}
		l.Warn("refresh rejected", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	}

	return c.JSON(http.StatusOK, tokenPairResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(h.Svc.AccessTTL.Seconds()),
	})
}

func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	access := bearerToken(c)
	if err := h.Svc.LogOut(ctx, access, req.RefreshToken); err != nil {
		l.Error("logout failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "logout failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"detail": "logged out"})
}

// Validate checks a bearer access token and, on success, exposes the subject
// in the X-Authorized-User header for upstream proxies (ForwardAuth).
func (h *AuthHTTP) Validate(c echo.Context) error {
	ctx := c.Request().Context()

	raw := bearerToken(c)
	if raw == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	claims, err := h.Svc.Authenticate(ctx, raw)
	if err != nil {
		if errors.Is(err, tokens.ErrExpired) {
			return echo.NewHTTPError(http.StatusUnauthorized, "token has expired")
		}
		return echo.NewHTTPError(http.StatusUnauthorized, "token is invalid")
	}

	c.Response().Header().Set("X-Authorized-User", claims.Subject)
	return c.JSON(http.StatusOK, echo.Map{"detail": "token is valid"})
}

func bearerToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func loginError(l *slog.Logger, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAccountLocked):
		l.Warn("login rejected", "status", 423, "reason", "account locked")
		return echo.NewHTTPError(http.StatusLocked, "account temporarily locked")
	case errors.Is(err, service.ErrAccountDisabled):
		l.Warn("login rejected", "status", 403, "reason", "account disabled")
		return echo.NewHTTPError(http.StatusForbidden, "account disabled")
	case errors.Is(err, service.ErrAuthenticationFailed):
		l.Warn("login rejected", "status", 401)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
