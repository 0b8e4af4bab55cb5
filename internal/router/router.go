package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/skillarena/arena-api/internal/config"
	"github.com/skillarena/arena-api/internal/handler"
	"github.com/skillarena/arena-api/internal/middleware"
	"github.com/skillarena/arena-api/internal/models"
	"github.com/skillarena/arena-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler       *handler.AuthHandler
	UserHandler       *handler.UserHandler
	EventHandler      *handler.EventHandler
	ModuleHandler     *handler.ModuleHandler
	ScoringHandler    *handler.ScoringHandler
	AttachmentHandler *handler.AttachmentHandler
	ActivityHandler   *handler.ActivityHandler
	JWTMiddleware     fiber.Handler
	LoginRateLimit    fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"), deps.LoginRateLimit, jwtMiddleware)
	}

	if deps.UserHandler != nil {
		users := api.Group("/users", jwtMiddleware)
		deps.UserHandler.Register(users)
	}

	if deps.EventHandler != nil {
		events := api.Group("/events", jwtMiddleware)
		deps.EventHandler.Register(events)
	}

	// Modules carry the lifecycle, rubric, record and attachment routes; the
	// three handlers share the /modules prefix.
	if deps.ModuleHandler != nil {
		modules := api.Group("/modules", jwtMiddleware)
		deps.ModuleHandler.Register(modules)

		if deps.ScoringHandler != nil {
			deps.ScoringHandler.Register(modules)
		}
		if deps.AttachmentHandler != nil {
			deps.AttachmentHandler.Register(modules)
		}
	}

	if deps.AttachmentHandler != nil {
		attachments := api.Group("/attachments", jwtMiddleware)
		deps.AttachmentHandler.RegisterDownload(attachments)
	}

	if deps.ActivityHandler != nil {
		activity := api.Group("/activity", jwtMiddleware, middleware.RequireRole(models.RoleAdmin))
		deps.ActivityHandler.Register(activity)
	}
}
