package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-grading-api/internal/config"
	"github.com/noah-isme/gema-grading-api/internal/handler"
	"github.com/noah-isme/gema-grading-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	GradingHandler         *handler.GradingHandler
	SettingsHandler        *handler.SettingsHandler
	EssaySuggestionHandler *handler.EssaySuggestionHandler
	ActivityHandler        *handler.ActivityHandler
	HealthProbes           map[string]handler.HealthProbe
	JWTMiddleware          fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	grading := app.Group("/api/v2/grading", jwtMiddleware)

	if deps.GradingHandler != nil {
		deps.GradingHandler.Register(grading)
	}
	if deps.SettingsHandler != nil {
		deps.SettingsHandler.Register(grading)
	}
	// Essay suggestions are only mounted when an AI provider is configured.
	if deps.EssaySuggestionHandler != nil {
		deps.EssaySuggestionHandler.Register(grading)
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(grading)
	}
}
