package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/intake-service/internal/api/http/handlers"
	"github.com/spec-kit/intake-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Webhook        *handlers.WebhookHandler
	Roster         *handlers.RosterHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/webhook/:secret", cfg.Webhook.Handle)

	admin := app.Group("/admin")
	admin.Post("/login", cfg.Roster.Login)

	protected := admin.Group("", cfg.AuthMiddleware.Handle)
	protected.Get("/roster", cfg.Roster.List)
	protected.Post("/roster", cfg.Roster.Add)
	protected.Get("/roster/:id/submissions", cfg.Roster.Submissions)
	protected.Delete("/roster/:id", cfg.Roster.Deactivate)
	protected.Delete("/roster/:id/purge", cfg.Roster.Purge)
	protected.Get("/stats", cfg.Roster.Stats)
}
