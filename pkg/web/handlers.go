// Package web provides the REST handlers for pipelines, run results and job
// triggering.
package web

import (
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/lorry-ci/lorry/pkg/config"
	"github.com/lorry-ci/lorry/pkg/eventbus"
	"github.com/lorry-ci/lorry/pkg/events"
	"github.com/lorry-ci/lorry/pkg/models"
	"github.com/lorry-ci/lorry/pkg/persistence"
)

type APIHandlers struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventPublisher
}

func NewAPIHandlers(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventPublisher,
) *APIHandlers {
	return &APIHandlers{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
	}
}

func (h *APIHandlers) GetPipelines(c fiber.Ctx) error {
	pipelines, err := h.persistence.PipelineRepository().GetAll(c.Context())
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.JSON(fiber.Map{
		"pipelines":   pipelines,
		"total_count": len(pipelines),
	})
}

func (h *APIHandlers) GetPipeline(c fiber.Ctx) error {
	pipeline, err := h.persistence.PipelineRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.JSON(pipeline)
}

// CreatePipeline registers a pipeline document. The body is the raw YAML
// document; it passes the same validation as the CLI loader.
func (h *APIHandlers) CreatePipeline(c fiber.Ctx) error {
	pipeline, err := config.ParsePipeline(c.Body())
	if err != nil {
		return badRequest(c, err.Error())
	}

	err = h.persistence.PipelineRepository().Save(c.Context(), pipeline)
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(pipeline)
}

func (h *APIHandlers) DeletePipeline(c fiber.Ctx) error {
	err := h.persistence.PipelineRepository().Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetRuns(c fiber.Ctx) error {
	jobID := c.Query("job_id")
	repo := h.persistence.RunResultRepository()

	var (
		results []*models.RunResult
		err     error
	)

	if jobID != "" {
		results, err = repo.ListByJob(c.Context(), jobID)
	} else {
		results, err = repo.GetAll(c.Context())
	}

	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.JSON(fiber.Map{
		"runs":        results,
		"total_count": len(results),
	})
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	result, err := h.persistence.RunResultRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.JSON(result)
}

// TriggerJob publishes a job triggered event for a declared job. The actual
// execution happens on whichever worker consumes the event.
func (h *APIHandlers) TriggerJob(c fiber.Ctx) error {
	pipeline, err := h.persistence.PipelineRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	jobName := c.Params("job")

	job, ok := pipeline.JobByName(jobName)
	if !ok {
		return notFound(c, "pipeline declares no job "+jobName)
	}

	event := events.JobTriggered{
		BaseEvent:  events.NewBaseEvent(events.JobTriggeredEvent, job.ID),
		PipelineID: pipeline.ID,
		JobName:    jobName,
		TriggerID:  "api",
	}

	err = h.eventBus.Publish(c.Context(), job.ID, event)
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"pipeline_id": pipeline.ID,
		"job_name":    jobName,
		"event_id":    event.ID,
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	err := h.persistence.HealthCheck(c.Context())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}

	return c.JSON(fiber.Map{"status": "healthy"})
}
