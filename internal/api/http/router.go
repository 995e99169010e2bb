package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/customer-ledger/internal/api/http/handlers"
	"github.com/spec-kit/customer-ledger/internal/auth"
	"github.com/spec-kit/customer-ledger/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Admins         *handlers.AdminsHandler
	Customers      *handlers.CustomersHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if registry := cfg.Metrics.Registry(); registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	authGroup := app.Group("/auth/admins")
	authGroup.Post("/register", cfg.Admins.Register)
	authGroup.Post("/login", cfg.Admins.Login)
	authGroup.Post("/reset-password", cfg.Admins.ResetPassword)

	admins := app.Group("/admins", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admins.Get("/", auth.RequireSuperadmin(), cfg.Admins.List)
	admins.Get("/:adminID/customer-count", cfg.Admins.CustomerCount)

	customers := app.Group("/customers", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	customers.Get("/", cfg.Customers.List)
	customers.Post("/", cfg.Customers.Submit)
	customers.Patch("/", cfg.Customers.Patch)
	customers.Delete("/", cfg.Customers.Remove)
	customers.Post("/restore", cfg.Customers.Restore)
}

// NewApp builds a fiber app with the global middleware chain and routes.
func NewApp(appName string, mw MiddlewareConfig, routes RouteConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, mw)
	RegisterRoutes(app, routes)
	return app
}
