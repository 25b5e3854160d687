package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/lorry-ci/lorry/pkg/eventbus"
	"github.com/lorry-ci/lorry/pkg/events"
	"github.com/lorry-ci/lorry/pkg/models"
	"github.com/lorry-ci/lorry/pkg/protocol"
)

// StepFunc executes one step against the run's environment and reports its
// terminal state. A non-nil error means the step could not run or returned a
// failing action result; a result with a non-zero exit code means the step's
// command failed.
type StepFunc func(ctx context.Context, step models.Step) (*protocol.ExecResult, error)

// Sequencer processes steps strictly in declared order: a step begins only
// after the previous one reached a terminal outcome. Steps may depend on
// filesystem mutations of prior steps, so ordering is total and sequential.
type Sequencer struct {
	runID    string
	jobID    string
	runnerID string
	eventBus eventbus.EventPublisher
	logger   *slog.Logger
	execute  StepFunc
}

func NewSequencer(runID, jobID, runnerID string, eventBus eventbus.EventPublisher, logger *slog.Logger, execute StepFunc) *Sequencer {
	return &Sequencer{
		runID:    runID,
		jobID:    jobID,
		runnerID: runnerID,
		eventBus: eventBus,
		logger:   logger.With("run_id", runID),
		execute:  execute,
	}
}

// Run executes the steps fail-fast: the first failed step marks every
// remaining step skipped and ends the sequence. The returned slice always has
// one entry per input step, in declared order.
func (s *Sequencer) Run(ctx context.Context, steps []models.Step) []models.StepResult {
	results := make([]models.StepResult, len(steps))
	failed := false

	for i, step := range steps {
		results[i] = models.StepResult{
			Name:    step.Name,
			Kind:    step.Kind,
			Outcome: models.OutcomePending,
		}

		if failed {
			results[i].Outcome = models.OutcomeSkipped
			s.publishStepFinished(ctx, &results[i], i)

			continue
		}

		s.runStep(ctx, step, &results[i], i)

		if results[i].Outcome == models.OutcomeFailed {
			failed = true
		}
	}

	return results
}

func (s *Sequencer) runStep(ctx context.Context, step models.Step, result *models.StepResult, position int) {
	logger := s.logger.With("step_name", step.Name, "step_kind", step.Kind)
	logger.InfoContext(ctx, "Executing step")

	startedAt := time.Now().UTC()
	result.StartedAt = &startedAt
	result.Outcome = models.OutcomeRunning

	s.publishStepStarted(ctx, result, position)

	execResult, err := s.execute(ctx, step)

	finishedAt := time.Now().UTC()
	result.FinishedAt = &finishedAt

	if execResult != nil {
		result.ExitCode = execResult.ExitCode
		result.Output = execResult.Output
	}

	switch {
	case err != nil:
		result.Outcome = models.OutcomeFailed
		result.Error = err.Error()

		if execResult == nil {
			result.ExitCode = -1
		}

		logger.ErrorContext(ctx, "Step failed", "error", err)
	case execResult != nil && execResult.ExitCode != 0:
		result.Outcome = models.OutcomeFailed
		result.Error = (&StepFailure{StepName: step.Name, ExitCode: execResult.ExitCode}).Error()

		logger.ErrorContext(ctx, "Step failed", "exit_code", execResult.ExitCode)
	default:
		result.Outcome = models.OutcomeSucceeded

		logger.InfoContext(ctx, "Step succeeded", "duration", result.Duration())
	}

	s.publishStepFinished(ctx, result, position)
}

func (s *Sequencer) publishStepStarted(ctx context.Context, result *models.StepResult, position int) {
	if s.eventBus == nil {
		return
	}

	event := events.StepStarted{
		BaseEvent: events.NewBaseEvent(events.StepStartedEvent, s.jobID),
		RunID:     s.runID,
		StepName:  result.Name,
		Kind:      result.Kind,
		Position:  position,
	}
	event.RunnerID = s.runnerID

	err := s.eventBus.Publish(ctx, s.jobID, event)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish step started event", "error", err)
	}
}

func (s *Sequencer) publishStepFinished(ctx context.Context, result *models.StepResult, position int) {
	if s.eventBus == nil {
		return
	}

	event := events.StepFinished{
		BaseEvent:  events.NewBaseEvent(events.StepFinishedEvent, s.jobID),
		RunID:      s.runID,
		StepName:   result.Name,
		Kind:       result.Kind,
		Position:   position,
		Outcome:    result.Outcome,
		ExitCode:   result.ExitCode,
		Error:      result.Error,
		DurationMs: result.Duration().Milliseconds(),
	}
	event.RunnerID = s.runnerID

	err := s.eventBus.Publish(ctx, s.jobID, event)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish step finished event", "error", err)
	}
}
