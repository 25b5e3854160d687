// Package runner executes one job: provision an environment, check out the
// repository, install dependencies, run the declared steps in order, and
// produce one immutable run result.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lorry-ci/lorry/pkg/eventbus"
	"github.com/lorry-ci/lorry/pkg/events"
	"github.com/lorry-ci/lorry/pkg/install"
	"github.com/lorry-ci/lorry/pkg/models"
	"github.com/lorry-ci/lorry/pkg/otelhelper"
	"github.com/lorry-ci/lorry/pkg/protocol"
	"github.com/lorry-ci/lorry/pkg/template"
)

// JobRunner ties one environment provisioning, one dependency install and the
// step sequence into a single pass/fail outcome. Each run owns its
// environment exclusively; concurrent runs share no state.
type JobRunner struct {
	id          string
	provisioner protocol.Provisioner
	installers  *install.Registry
	eventBus    eventbus.EventPublisher
	logger      *slog.Logger
	tracer      trace.Tracer
}

func NewJobRunner(
	id string,
	provisioner protocol.Provisioner,
	installers *install.Registry,
	eventBus eventbus.EventPublisher,
	logger *slog.Logger,
) *JobRunner {
	return &JobRunner{
		id:          id,
		provisioner: provisioner,
		installers:  installers,
		eventBus:    eventBus,
		logger:      logger.With("module", "runner", "runner_id", id),
		tracer:      otel.Tracer("lorry/runner"),
	}
}

// Run executes the job and returns its finalized result. Step failures are
// recorded in the result, not returned as an error; a non-nil error means the
// run aborted on infrastructure failure with zero steps executed.
func (r *JobRunner) Run(ctx context.Context, job *models.Job) (*models.RunResult, error) {
	if len(job.Steps) == 0 {
		return nil, fmt.Errorf("job %s has no steps", job.ID)
	}

	runID := generateRunID()
	logger := r.logger.With("job_id", job.ID, "job_name", job.Name, "run_id", runID)

	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "job.run",
		attribute.String(otelhelper.JobIDKey, job.ID),
		attribute.String(otelhelper.JobNameKey, job.Name),
		attribute.String(otelhelper.RunIDKey, runID),
		attribute.String(otelhelper.ImageKey, job.Image),
	)
	defer span.End()

	logger.InfoContext(ctx, "Starting job run", "image", job.Image)

	result := models.NewRunResult(runID, job)

	r.publishJobStarted(ctx, job, runID)

	env, err := r.provisioner.Provision(ctx, job.Image)
	if err != nil {
		infraErr := &InfrastructureError{Op: "provision", Err: err}

		result.InfraFailure = true
		result.Error = infraErr.Error()
		result.Finalize()

		otelhelper.SetError(span, infraErr)
		r.publishJobFailed(ctx, job, result, infraErr)
		logger.ErrorContext(ctx, "Environment provisioning failed", "error", err)

		return result, infraErr
	}

	// Teardown exactly once, on every exit path.
	defer func() {
		teardownErr := r.provisioner.Teardown(ctx, env)
		if teardownErr != nil {
			logger.ErrorContext(ctx, "Environment teardown failed", "error", teardownErr)
		}
	}()

	steps := effectiveSteps(job)

	sequencer := NewSequencer(runID, job.ID, r.id, r.eventBus, logger, func(ctx context.Context, step models.Step) (*protocol.ExecResult, error) {
		return r.executeStep(ctx, env, job, step)
	})

	result.Steps = sequencer.Run(ctx, steps)
	result.Finalize()

	r.publishJobFinished(ctx, job, result)
	logger.InfoContext(ctx, "Job run finished", "status", result.Status)

	if result.Status == models.RunStatusFailed {
		otelhelper.SetError(span, fmt.Errorf("run %s failed", runID))
	}

	return result, nil
}

// effectiveSteps returns the ordered steps of the run. Checkout always leads;
// a job-level install payload becomes an implicit install step when the job
// does not declare one.
func effectiveSteps(job *models.Job) []models.Step {
	steps := make([]models.Step, 0, len(job.Steps)+2)

	if !job.HasStepKind(models.StepKindCheckout) {
		steps = append(steps, models.Step{Name: "checkout", Kind: models.StepKindCheckout})
	}

	if job.Install != nil && !job.HasStepKind(models.StepKindInstall) {
		steps = append(steps, models.Step{
			Name:    "install dependencies",
			Kind:    models.StepKindInstall,
			Install: job.Install,
		})
	}

	return append(steps, job.Steps...)
}

func (r *JobRunner) executeStep(ctx context.Context, env protocol.Environment, job *models.Job, step models.Step) (*protocol.ExecResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "job.step",
		attribute.String(otelhelper.StepNameKey, step.Name),
		attribute.String(otelhelper.StepKindKey, string(step.Kind)),
	)
	defer span.End()

	switch step.Kind {
	case models.StepKindCheckout:
		err := r.provisioner.Checkout(ctx, env, job.Repo)
		if err != nil {
			otelhelper.SetError(span, err)

			return nil, fmt.Errorf("checkout failed: %w", err)
		}

		return &protocol.ExecResult{}, nil

	case models.StepKindInstall:
		result, err := r.runInstall(ctx, env, step)
		if err != nil {
			otelhelper.SetError(span, err)
		}

		return result, err

	case models.StepKindRun:
		command, err := template.RenderCommand(step.Run.Command, job.Variables)
		if err != nil {
			otelhelper.SetError(span, err)

			return nil, err
		}

		return env.Exec(ctx, command)

	default:
		return nil, fmt.Errorf("unknown step kind %q", step.Kind)
	}
}

func (r *JobRunner) runInstall(ctx context.Context, env protocol.Environment, step models.Step) (*protocol.ExecResult, error) {
	installer, err := r.installers.Create(step.Install.PackageManager, nil)
	if err != nil {
		return nil, &InstallError{PackageManager: step.Install.PackageManager, Err: err}
	}

	result, err := installer.Install(ctx, env, *step.Install)
	if err != nil {
		return result, &InstallError{PackageManager: step.Install.PackageManager, Err: err}
	}

	return result, nil
}

func (r *JobRunner) publishJobStarted(ctx context.Context, job *models.Job, runID string) {
	if r.eventBus == nil {
		return
	}

	event := events.JobStarted{
		BaseEvent: events.NewBaseEvent(events.JobStartedEvent, job.ID),
		RunID:     runID,
		JobName:   job.Name,
		Image:     job.Image,
	}
	event.RunnerID = r.id

	err := r.eventBus.Publish(ctx, job.ID, event)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to publish job started event", "error", err)
	}
}

func (r *JobRunner) publishJobFinished(ctx context.Context, job *models.Job, result *models.RunResult) {
	if r.eventBus == nil {
		return
	}

	event := events.JobFinished{
		BaseEvent: events.NewBaseEvent(events.JobFinishedEvent, job.ID),
		RunID:     result.ID,
		Status:    result.Status,
		Duration:  time.Since(result.StartedAt),
	}
	event.RunnerID = r.id

	err := r.eventBus.Publish(ctx, job.ID, event)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to publish job finished event", "error", err)
	}
}

func (r *JobRunner) publishJobFailed(ctx context.Context, job *models.Job, result *models.RunResult, runErr error) {
	if r.eventBus == nil {
		return
	}

	event := events.JobFailed{
		BaseEvent: events.NewBaseEvent(events.JobFailedEvent, job.ID),
		RunID:     result.ID,
		Error:     runErr.Error(),
		Duration:  time.Since(result.StartedAt),
	}
	event.RunnerID = r.id

	err := r.eventBus.Publish(ctx, job.ID, event)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to publish job failed event", "error", err)
	}
}

func generateRunID() string {
	return fmt.Sprintf("run-%s", uuid.New().String()[:8])
}
