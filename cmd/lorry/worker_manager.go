package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lorry-ci/lorry/pkg/eventbus"
	"github.com/lorry-ci/lorry/pkg/events"
	"github.com/lorry-ci/lorry/pkg/install"
	"github.com/lorry-ci/lorry/pkg/persistence"
	"github.com/lorry-ci/lorry/pkg/protocol"
	"github.com/lorry-ci/lorry/pkg/runner"
)

// WorkerManager consumes job triggered events and executes each referenced
// job with a fresh runner. Run results are persisted; a failed run is not an
// error from the worker's point of view.
type WorkerManager struct {
	id          string
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	provisioner protocol.Provisioner
	installers  *install.Registry
}

func NewWorkerManager(
	id string,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	provisioner protocol.Provisioner,
	installers *install.Registry,
	logger *slog.Logger,
) *WorkerManager {
	return &WorkerManager{
		id:          id,
		logger:      logger.With("module", "lorry-worker", "worker_id", id),
		persistence: persistence,
		eventBus:    eventBus,
		provisioner: provisioner,
		installers:  installers,
	}
}

func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager")

	err := w.eventBus.Handle(events.JobTriggeredEvent, w.handleJobTriggered)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down worker...")

	return nil
}

func (w *WorkerManager) handleJobTriggered(ctx context.Context, event any) error {
	triggeredEvent, ok := event.(*events.JobTriggered)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for JobTriggered")

		return nil
	}

	logger := w.logger.With(
		"pipeline_id", triggeredEvent.PipelineID,
		"job_name", triggeredEvent.JobName,
		"trigger_id", triggeredEvent.TriggerID,
		"event_id", triggeredEvent.ID,
	)
	logger.InfoContext(ctx, "Processing job triggered event")

	pipeline, err := w.persistence.PipelineRepository().GetByID(ctx, triggeredEvent.PipelineID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to fetch pipeline", "error", err)

		return err
	}

	job, ok := pipeline.JobByName(triggeredEvent.JobName)
	if !ok {
		logger.ErrorContext(ctx, "Pipeline declares no such job")

		return fmt.Errorf("pipeline %s declares no job %q", pipeline.ID, triggeredEvent.JobName)
	}

	jobRunner := runner.NewJobRunner(w.id, w.provisioner, w.installers, w.eventBus, logger)

	result, runErr := jobRunner.Run(ctx, job)
	if result != nil {
		saveErr := w.persistence.RunResultRepository().Save(ctx, result)
		if saveErr != nil {
			logger.ErrorContext(ctx, "Failed to save run result", "error", saveErr)

			return saveErr
		}
	}

	if runErr != nil {
		logger.ErrorContext(ctx, "Run aborted on infrastructure failure", "error", runErr)

		return runErr
	}

	logger.InfoContext(ctx, "Run finished", "run_id", result.ID, "status", result.Status)

	return nil
}
