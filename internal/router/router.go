package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/codeshare-labs/codeshare-api/internal/config"
	"github.com/codeshare-labs/codeshare-api/internal/handler"
	"github.com/codeshare-labs/codeshare-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SubmissionHandler *handler.SubmissionHandler
	QuestionHandler   *handler.QuestionHandler
	RealtimeHandler   *handler.RealtimeHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(api.Group("/submissions"))
		deps.SubmissionHandler.RegisterAggregates(api)
	}

	if deps.QuestionHandler != nil {
		deps.QuestionHandler.Register(api.Group("/questions"))
	}

	if deps.RealtimeHandler != nil {
		deps.RealtimeHandler.Register(api.Group("/realtime"))
	}
}
