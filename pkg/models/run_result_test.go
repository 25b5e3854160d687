package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultWithOutcomes(outcomes ...StepOutcome) *RunResult {
	result := NewRunResult("run-1", &Job{ID: "job-1", Name: "job-one", Image: "alpine"})

	for i, outcome := range outcomes {
		result.Steps = append(result.Steps, StepResult{
			Name:    string(rune('a' + i)),
			Kind:    StepKindRun,
			Outcome: outcome,
		})
	}

	return result
}

func TestNewRunResult(t *testing.T) {
	result := NewRunResult("run-1", &Job{ID: "job-1", Name: "job-one", Image: "alpine"})

	assert.Equal(t, "run-1", result.ID)
	assert.Equal(t, "job-1", result.JobID)
	assert.Equal(t, RunStatusRunning, result.Status)
	assert.False(t, result.StartedAt.IsZero())
	assert.Nil(t, result.FinishedAt)
}

func TestRunResult_Finalize(t *testing.T) {
	t.Run("all steps succeeded", func(t *testing.T) {
		result := resultWithOutcomes(OutcomeSucceeded, OutcomeSucceeded)
		result.Finalize()

		assert.Equal(t, RunStatusSucceeded, result.Status)
		assert.True(t, result.Succeeded())
		assert.NotNil(t, result.FinishedAt)
	})

	t.Run("any failed step fails the run", func(t *testing.T) {
		result := resultWithOutcomes(OutcomeSucceeded, OutcomeFailed, OutcomeSkipped)
		result.Finalize()

		assert.Equal(t, RunStatusFailed, result.Status)
		assert.False(t, result.Succeeded())
	})

	t.Run("skipped steps alone do not fail the run", func(t *testing.T) {
		result := resultWithOutcomes(OutcomeSucceeded, OutcomeSkipped)
		result.Finalize()

		assert.Equal(t, RunStatusSucceeded, result.Status)
	})

	t.Run("infrastructure failure fails the run with zero steps", func(t *testing.T) {
		result := resultWithOutcomes()
		result.InfraFailure = true
		result.Finalize()

		assert.Equal(t, RunStatusFailed, result.Status)
		assert.Empty(t, result.Steps)
	})
}

func TestRunResult_StepByName(t *testing.T) {
	result := resultWithOutcomes(OutcomeSucceeded, OutcomeFailed)

	step, err := result.StepByName("b")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, step.Outcome)

	_, err = result.StepByName("missing")
	assert.Error(t, err)
}

func TestStepResult_Duration(t *testing.T) {
	start := time.Now().UTC()
	finish := start.Add(3 * time.Second)

	step := StepResult{StartedAt: &start, FinishedAt: &finish}
	assert.Equal(t, 3*time.Second, step.Duration())

	never := StepResult{}
	assert.Zero(t, never.Duration())
}
