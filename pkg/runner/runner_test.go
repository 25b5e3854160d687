package runner

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorry-ci/lorry/pkg/cmd"
	"github.com/lorry-ci/lorry/pkg/mocks"
	"github.com/lorry-ci/lorry/pkg/models"
	"github.com/lorry-ci/lorry/pkg/protocol"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func testJob(steps ...models.Step) *models.Job {
	return &models.Job{
		ID:    "test-job",
		Name:  "test-job",
		Image: "alpine:3.20",
		Repo:  models.RepoRef{URL: "https://github.com/example/repo.git"},
		Steps: steps,
	}
}

func runStep(name, command string) models.Step {
	return models.Step{
		Name: name,
		Kind: models.StepKindRun,
		Run:  &models.RunPayload{Command: command},
	}
}

func newTestRunner(provisioner *mocks.MockProvisioner) *JobRunner {
	logger := testLogger()

	return NewJobRunner("runner-test", provisioner, cmd.NewInstallerRegistry(logger), nil, logger)
}

func TestJobRunner_Run_AllStepsSucceed(t *testing.T) {
	env := &mocks.MockEnvironment{}
	env.On("Exec", mock.Anything, "echo one").Return(&protocol.ExecResult{ExitCode: 0, Output: "one\n"}, nil)
	env.On("Exec", mock.Anything, "echo two").Return(&protocol.ExecResult{ExitCode: 0, Output: "two\n"}, nil)

	provisioner := &mocks.MockProvisioner{}
	provisioner.On("Provision", mock.Anything, "alpine:3.20").Return(env, nil)
	provisioner.On("Checkout", mock.Anything, env, mock.Anything).Return(nil)
	provisioner.On("Teardown", mock.Anything, env).Return(nil)

	jobRunner := newTestRunner(provisioner)

	result, err := jobRunner.Run(context.Background(), testJob(
		runStep("one", "echo one"),
		runStep("two", "echo two"),
	))

	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, models.RunStatusSucceeded, result.Status)
	assert.True(t, result.Succeeded())
	require.Len(t, result.Steps, 3)

	assert.Equal(t, "checkout", result.Steps[0].Name)
	assert.Equal(t, models.StepKindCheckout, result.Steps[0].Kind)

	for _, step := range result.Steps {
		assert.Equal(t, models.OutcomeSucceeded, step.Outcome)
	}

	provisioner.AssertNumberOfCalls(t, "Teardown", 1)
}

func TestJobRunner_Run_FailFastSkipsDownstream(t *testing.T) {
	env := &mocks.MockEnvironment{}
	env.On("Exec", mock.Anything, "echo ok").Return(&protocol.ExecResult{ExitCode: 0}, nil)
	env.On("Exec", mock.Anything, "false").Return(&protocol.ExecResult{ExitCode: 1}, nil)

	provisioner := &mocks.MockProvisioner{}
	provisioner.On("Provision", mock.Anything, mock.Anything).Return(env, nil)
	provisioner.On("Checkout", mock.Anything, env, mock.Anything).Return(nil)
	provisioner.On("Teardown", mock.Anything, env).Return(nil)

	jobRunner := newTestRunner(provisioner)

	result, err := jobRunner.Run(context.Background(), testJob(
		runStep("ok", "echo ok"),
		runStep("boom", "false"),
		runStep("after-1", "echo ok"),
		runStep("after-2", "echo ok"),
	))

	require.NoError(t, err)
	require.Len(t, result.Steps, 5)

	assert.Equal(t, models.RunStatusFailed, result.Status)
	assert.Equal(t, models.OutcomeSucceeded, result.Steps[0].Outcome)
	assert.Equal(t, models.OutcomeSucceeded, result.Steps[1].Outcome)
	assert.Equal(t, models.OutcomeFailed, result.Steps[2].Outcome)
	assert.Equal(t, 1, result.Steps[2].ExitCode)
	assert.Equal(t, models.OutcomeSkipped, result.Steps[3].Outcome)
	assert.Equal(t, models.OutcomeSkipped, result.Steps[4].Outcome)

	// Skipped steps never start.
	assert.Nil(t, result.Steps[3].StartedAt)
	assert.Nil(t, result.Steps[4].StartedAt)

	env.AssertNumberOfCalls(t, "Exec", 2)
	provisioner.AssertNumberOfCalls(t, "Teardown", 1)
}

func TestJobRunner_Run_InstallFailureSkipsDeclaredSteps(t *testing.T) {
	env := &mocks.MockEnvironment{}
	env.On("Exec", mock.Anything, mock.MatchedBy(func(command string) bool {
		return command == "POETRY_VIRTUALENVS_IN_PROJECT=true poetry install --no-interaction --no-ansi"
	})).Return(nil, errors.New("poetry: command not found"))

	provisioner := &mocks.MockProvisioner{}
	provisioner.On("Provision", mock.Anything, mock.Anything).Return(env, nil)
	provisioner.On("Checkout", mock.Anything, env, mock.Anything).Return(nil)
	provisioner.On("Teardown", mock.Anything, env).Return(nil)

	job := testJob(runStep("tests", "pytest"))
	job.Install = &models.InstallPayload{PackageManager: "poetry", VenvPath: []string{".venv"}}

	jobRunner := newTestRunner(provisioner)

	result, err := jobRunner.Run(context.Background(), job)

	require.NoError(t, err)
	require.Len(t, result.Steps, 3)

	assert.Equal(t, models.RunStatusFailed, result.Status)
	assert.Equal(t, models.OutcomeSucceeded, result.Steps[0].Outcome)
	assert.Equal(t, models.OutcomeFailed, result.Steps[1].Outcome)
	assert.Contains(t, result.Steps[1].Error, "dependency installation via poetry failed")
	assert.Equal(t, models.OutcomeSkipped, result.Steps[2].Outcome)

	provisioner.AssertNumberOfCalls(t, "Teardown", 1)
}

func TestJobRunner_Run_UnknownPackageManager(t *testing.T) {
	env := &mocks.MockEnvironment{}

	provisioner := &mocks.MockProvisioner{}
	provisioner.On("Provision", mock.Anything, mock.Anything).Return(env, nil)
	provisioner.On("Checkout", mock.Anything, env, mock.Anything).Return(nil)
	provisioner.On("Teardown", mock.Anything, env).Return(nil)

	job := testJob(runStep("tests", "pytest"))
	job.Install = &models.InstallPayload{PackageManager: "cargo"}

	jobRunner := newTestRunner(provisioner)

	result, err := jobRunner.Run(context.Background(), job)

	require.NoError(t, err)
	require.Len(t, result.Steps, 3)

	assert.Equal(t, models.OutcomeFailed, result.Steps[1].Outcome)
	assert.Contains(t, result.Steps[1].Error, "not registered")
	assert.Equal(t, models.OutcomeSkipped, result.Steps[2].Outcome)
}

func TestJobRunner_Run_InfrastructureFailure(t *testing.T) {
	provisioner := &mocks.MockProvisioner{}
	provisioner.On("Provision", mock.Anything, mock.Anything).Return(nil, errors.New("docker daemon unreachable"))

	jobRunner := newTestRunner(provisioner)

	result, err := jobRunner.Run(context.Background(), testJob(runStep("tests", "pytest")))

	require.Error(t, err)
	require.NotNil(t, result)

	assert.True(t, IsInfrastructureError(err))
	assert.Equal(t, models.RunStatusFailed, result.Status)
	assert.True(t, result.InfraFailure)
	assert.Empty(t, result.Steps)
	assert.Contains(t, result.Error, "infrastructure failure during provision")

	// No environment to tear down.
	provisioner.AssertNotCalled(t, "Teardown", mock.Anything, mock.Anything)
}

func TestJobRunner_Run_CheckoutFailure(t *testing.T) {
	env := &mocks.MockEnvironment{}

	provisioner := &mocks.MockProvisioner{}
	provisioner.On("Provision", mock.Anything, mock.Anything).Return(env, nil)
	provisioner.On("Checkout", mock.Anything, env, mock.Anything).Return(errors.New("repository not found"))
	provisioner.On("Teardown", mock.Anything, env).Return(nil)

	jobRunner := newTestRunner(provisioner)

	result, err := jobRunner.Run(context.Background(), testJob(runStep("tests", "pytest")))

	require.NoError(t, err)
	require.Len(t, result.Steps, 2)

	assert.Equal(t, models.RunStatusFailed, result.Status)
	assert.Equal(t, models.OutcomeFailed, result.Steps[0].Outcome)
	assert.Equal(t, -1, result.Steps[0].ExitCode)
	assert.Equal(t, models.OutcomeSkipped, result.Steps[1].Outcome)

	provisioner.AssertNumberOfCalls(t, "Teardown", 1)
}

func TestJobRunner_Run_TeardownOnceEvenWhenTeardownFails(t *testing.T) {
	env := &mocks.MockEnvironment{}
	env.On("Exec", mock.Anything, mock.Anything).Return(&protocol.ExecResult{ExitCode: 0}, nil)

	provisioner := &mocks.MockProvisioner{}
	provisioner.On("Provision", mock.Anything, mock.Anything).Return(env, nil)
	provisioner.On("Checkout", mock.Anything, env, mock.Anything).Return(nil)
	provisioner.On("Teardown", mock.Anything, env).Return(errors.New("container already gone"))

	jobRunner := newTestRunner(provisioner)

	result, err := jobRunner.Run(context.Background(), testJob(runStep("tests", "pytest")))

	// A teardown failure does not change the run outcome.
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, result.Status)

	provisioner.AssertNumberOfCalls(t, "Teardown", 1)
}

func TestJobRunner_Run_NoSteps(t *testing.T) {
	provisioner := &mocks.MockProvisioner{}

	jobRunner := newTestRunner(provisioner)

	result, err := jobRunner.Run(context.Background(), testJob())

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "has no steps")

	provisioner.AssertNotCalled(t, "Provision", mock.Anything, mock.Anything)
}

// The pipeline of a typical Python project: checkout and poetry install are
// implicit, pytest fails, the remaining linters never run.
func TestJobRunner_Run_PythonProjectScenario(t *testing.T) {
	env := &mocks.MockEnvironment{}
	env.On("Exec", mock.Anything, "POETRY_VIRTUALENVS_IN_PROJECT=true poetry install --no-interaction --no-ansi").
		Return(&protocol.ExecResult{ExitCode: 0}, nil)
	env.On("Exec", mock.Anything, "poetry run pytest --cov=monkey").
		Return(&protocol.ExecResult{ExitCode: 1, Output: "3 failed, 12 passed"}, nil)

	provisioner := &mocks.MockProvisioner{}
	provisioner.On("Provision", mock.Anything, "python:3.12-bookworm").Return(env, nil)
	provisioner.On("Checkout", mock.Anything, env, mock.Anything).Return(nil)
	provisioner.On("Teardown", mock.Anything, env).Return(nil)

	job := &models.Job{
		ID:      "monkey-test",
		Name:    "monkey-test",
		Image:   "python:3.12-bookworm",
		Repo:    models.RepoRef{URL: "https://github.com/example/monkey.git", Ref: "main"},
		Install: &models.InstallPayload{PackageManager: "poetry", VenvPath: []string{".venv"}},
		Steps: []models.Step{
			runStep("pytest", "poetry run pytest --cov=monkey"),
			runStep("mypy", "poetry run mypy ."),
			runStep("black", "poetry run black --check ."),
		},
	}

	jobRunner := newTestRunner(provisioner)

	result, err := jobRunner.Run(context.Background(), job)

	require.NoError(t, err)
	require.Len(t, result.Steps, 5)

	assert.Equal(t, models.RunStatusFailed, result.Status)

	outcomes := make([]models.StepOutcome, 0, len(result.Steps))
	for _, step := range result.Steps {
		outcomes = append(outcomes, step.Outcome)
	}

	assert.Equal(t, []models.StepOutcome{
		models.OutcomeSucceeded,
		models.OutcomeSucceeded,
		models.OutcomeFailed,
		models.OutcomeSkipped,
		models.OutcomeSkipped,
	}, outcomes)

	assert.Equal(t, "3 failed, 12 passed", result.Steps[2].Output)

	provisioner.AssertNumberOfCalls(t, "Teardown", 1)
}

func TestEffectiveSteps(t *testing.T) {
	t.Run("synthesizes checkout and install", func(t *testing.T) {
		job := testJob(runStep("tests", "pytest"))
		job.Install = &models.InstallPayload{PackageManager: "pip"}

		steps := effectiveSteps(job)

		require.Len(t, steps, 3)
		assert.Equal(t, models.StepKindCheckout, steps[0].Kind)
		assert.Equal(t, models.StepKindInstall, steps[1].Kind)
		assert.Equal(t, "tests", steps[2].Name)
	})

	t.Run("declared checkout is not duplicated", func(t *testing.T) {
		job := testJob(
			models.Step{Name: "fetch", Kind: models.StepKindCheckout},
			runStep("tests", "pytest"),
		)

		steps := effectiveSteps(job)

		require.Len(t, steps, 2)
		assert.Equal(t, "fetch", steps[0].Name)
	})

	t.Run("no install without payload", func(t *testing.T) {
		job := testJob(runStep("tests", "pytest"))

		steps := effectiveSteps(job)

		require.Len(t, steps, 2)
		assert.Equal(t, models.StepKindCheckout, steps[0].Kind)
		assert.Equal(t, models.StepKindRun, steps[1].Kind)
	})
}
