package runner

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorry-ci/lorry/pkg/eventbus"
	"github.com/lorry-ci/lorry/pkg/events"
	"github.com/lorry-ci/lorry/pkg/models"
	"github.com/lorry-ci/lorry/pkg/protocol"
)

// recordingPublisher captures published events in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

func (p *recordingPublisher) all() []eventbus.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]eventbus.Event(nil), p.events...)
}

func scriptedExecute(exitCodes map[string]int, errs map[string]error) StepFunc {
	return func(_ context.Context, step models.Step) (*protocol.ExecResult, error) {
		if err, ok := errs[step.Name]; ok {
			return nil, err
		}

		return &protocol.ExecResult{ExitCode: exitCodes[step.Name]}, nil
	}
}

func TestSequencer_Run_OrderAndOutcomes(t *testing.T) {
	sequencer := NewSequencer("run-1", "job-1", "runner-1", nil, testLogger(),
		scriptedExecute(map[string]int{"a": 0, "b": 0, "c": 0}, nil))

	results := sequencer.Run(context.Background(), []models.Step{
		runStep("a", "a"),
		runStep("b", "b"),
		runStep("c", "c"),
	})

	require.Len(t, results, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{results[0].Name, results[1].Name, results[2].Name})

	for _, result := range results {
		assert.Equal(t, models.OutcomeSucceeded, result.Outcome)
		assert.NotNil(t, result.StartedAt)
		assert.NotNil(t, result.FinishedAt)
	}
}

func TestSequencer_Run_FailFast(t *testing.T) {
	executed := make([]string, 0, 4)

	sequencer := NewSequencer("run-1", "job-1", "runner-1", nil, testLogger(),
		func(_ context.Context, step models.Step) (*protocol.ExecResult, error) {
			executed = append(executed, step.Name)

			if step.Name == "b" {
				return &protocol.ExecResult{ExitCode: 2}, nil
			}

			return &protocol.ExecResult{ExitCode: 0}, nil
		})

	results := sequencer.Run(context.Background(), []models.Step{
		runStep("a", "a"),
		runStep("b", "b"),
		runStep("c", "c"),
		runStep("d", "d"),
	})

	// Execution stops at the failure; the result still covers every step.
	assert.Equal(t, []string{"a", "b"}, executed)
	require.Len(t, results, 4)

	assert.Equal(t, models.OutcomeFailed, results[1].Outcome)
	assert.Equal(t, 2, results[1].ExitCode)
	assert.Contains(t, results[1].Error, `step "b" failed with exit code 2`)
	assert.Equal(t, models.OutcomeSkipped, results[2].Outcome)
	assert.Equal(t, models.OutcomeSkipped, results[3].Outcome)
}

func TestSequencer_Run_ExecuteError(t *testing.T) {
	sequencer := NewSequencer("run-1", "job-1", "runner-1", nil, testLogger(),
		scriptedExecute(nil, map[string]error{"a": errors.New("cannot exec")}))

	results := sequencer.Run(context.Background(), []models.Step{runStep("a", "a")})

	require.Len(t, results, 1)
	assert.Equal(t, models.OutcomeFailed, results[0].Outcome)
	assert.Equal(t, -1, results[0].ExitCode)
	assert.Equal(t, "cannot exec", results[0].Error)
}

func TestSequencer_Run_PublishesStepEvents(t *testing.T) {
	publisher := &recordingPublisher{}

	sequencer := NewSequencer("run-1", "job-1", "runner-1", publisher, testLogger(),
		scriptedExecute(map[string]int{"a": 0, "b": 1}, nil))

	sequencer.Run(context.Background(), []models.Step{
		runStep("a", "a"),
		runStep("b", "b"),
		runStep("c", "c"),
	})

	published := publisher.all()

	// a: started+finished, b: started+finished, c: finished only (skipped).
	require.Len(t, published, 5)

	started, ok := published[0].(events.StepStarted)
	require.True(t, ok)
	assert.Equal(t, "a", started.StepName)
	assert.Equal(t, 0, started.Position)
	assert.Equal(t, "run-1", started.RunID)
	assert.Equal(t, "runner-1", started.RunnerID)

	finished, ok := published[1].(events.StepFinished)
	require.True(t, ok)
	assert.Equal(t, models.OutcomeSucceeded, finished.Outcome)

	bFinished, ok := published[3].(events.StepFinished)
	require.True(t, ok)
	assert.Equal(t, "b", bFinished.StepName)
	assert.Equal(t, models.OutcomeFailed, bFinished.Outcome)
	assert.Equal(t, 1, bFinished.ExitCode)

	cFinished, ok := published[4].(events.StepFinished)
	require.True(t, ok)
	assert.Equal(t, "c", cFinished.StepName)
	assert.Equal(t, models.OutcomeSkipped, cFinished.Outcome)
	assert.Equal(t, 2, cFinished.Position)
}
