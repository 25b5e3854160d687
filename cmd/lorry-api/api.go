// Package main provides the lorry API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/lorry-ci/lorry/pkg/eventbus"
	"github.com/lorry-ci/lorry/pkg/persistence"
	"github.com/lorry-ci/lorry/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.logger, a.persistence, a.eventBus)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Lorry API")
	})

	p := app.Group("/pipelines")
	p.Get("/", handlers.GetPipelines)
	p.Post("/", handlers.CreatePipeline)
	p.Get("/:id", handlers.GetPipeline)
	p.Delete("/:id", handlers.DeletePipeline)
	p.Post("/:id/jobs/:job/trigger", handlers.TriggerJob)

	r := app.Group("/runs")
	r.Get("/", handlers.GetRuns)
	r.Get("/:id", handlers.GetRun)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
