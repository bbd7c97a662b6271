package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/ndatsenko/pulsemon/internal/handlers"
	authmw "github.com/ndatsenko/pulsemon/internal/middleware/auth"
	"github.com/ndatsenko/pulsemon/internal/ratelimit"
	"github.com/ndatsenko/pulsemon/internal/store"
)

type Deps struct {
	Auth          *authmw.Authenticator
	Clients       *store.APIClientStore
	Limiter       *ratelimit.Limiter
	AuthHandler   *handlers.AuthHandler
	UserHandler   *handlers.UserHandler
	SystemHandler *handlers.SystemHandler
	MetricHandler *handlers.MetricHandler
	AlertHandler  *handlers.AlertHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	auth := v1.Group("/auth", d.Limiter.Middleware())
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/logout", d.AuthHandler.Logout, d.Auth.Middleware())

	v1.GET("/me", d.AuthHandler.Me, d.Auth.Middleware())

	systems := v1.Group("/systems")
	systems.POST("", d.SystemHandler.Create, d.Auth.Middleware())
	systems.GET("", d.SystemHandler.List, d.Auth.Middleware())
	systems.GET("/:id", d.SystemHandler.Get, d.Auth.Middleware())
	systems.DELETE("/:id", d.SystemHandler.Delete, d.Auth.Middleware())

	metrics := v1.Group("/systems/:id/metrics")
	metrics.POST("", d.MetricHandler.Ingest, authmw.APIKeyOrBearer(d.Auth, d.Clients))
	metrics.GET("", d.MetricHandler.List, d.Auth.Middleware())
	metrics.GET("/latest", d.MetricHandler.Latest, d.Auth.Middleware())

	v1.GET("/metrics/search", d.MetricHandler.Search, d.Auth.Middleware())

	alerts := v1.Group("/alerts")
	alerts.GET("", d.AlertHandler.List, d.Auth.Middleware())
	alerts.GET("/:id", d.AlertHandler.Get, d.Auth.Middleware())
	alerts.POST("", d.AlertHandler.Create, d.Auth.Middleware(store.RoleAdmin))
	alerts.PATCH("/:id", d.AlertHandler.Update, d.Auth.Middleware(store.RoleAdmin))
	alerts.DELETE("/:id", d.AlertHandler.Delete, d.Auth.Middleware(store.RoleAdmin))

	admin := v1.Group("/admin", d.Auth.Middleware(store.RoleAdmin))
	admin.GET("/users", d.UserHandler.ListUsers)
	admin.PATCH("/users/:id/enabled", d.UserHandler.SetEnabled)
	admin.POST("/users/:id/roles", d.UserHandler.AssignRole)
	admin.DELETE("/users/:id/roles/:role", d.UserHandler.RemoveRole)
	admin.POST("/clients", d.UserHandler.CreateClient)
}
