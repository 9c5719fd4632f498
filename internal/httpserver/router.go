package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nvoronchev/platform-auth/internal/middleware"
)

type Deps struct {
	AuthHandler *AuthHTTP
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.POST("/register", d.AuthHandler.Register)
	e.POST("/login", d.AuthHandler.Login)
	e.POST("/refresh", d.AuthHandler.Refresh)
	e.POST("/validate", d.AuthHandler.Validate)

	authMw := middleware.NewRequireAuth(d.AuthHandler.Svc)

	private := e.Group("")
	private.Use(authMw.RequireAuth)

	private.POST("/logout", d.AuthHandler.LogOut)
}
