package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorry-ci/lorry/pkg/models"
)

const validDocument = `
name: monkey
jobs:
  test:
    image: python:3.12-bookworm
    repo:
      url: https://github.com/example/monkey.git
      ref: main
    install:
      package_manager: poetry
      venv_path: [".venv"]
    steps:
      - name: pytest
        kind: run
        run:
          command: poetry run pytest --cov=monkey
      - name: mypy
        kind: run
        run:
          command: poetry run mypy .
workflows:
  ci:
    jobs:
      - test
`

func TestParsePipeline_Valid(t *testing.T) {
	pipeline, err := ParsePipeline([]byte(validDocument))

	require.NoError(t, err)
	assert.Equal(t, "monkey", pipeline.Name)
	assert.NotEmpty(t, pipeline.ID)
	assert.False(t, pipeline.CreatedAt.IsZero())

	job, ok := pipeline.JobByName("test")
	require.True(t, ok)
	assert.Equal(t, "test", job.ID)
	assert.Equal(t, "test", job.Name)
	assert.Equal(t, "python:3.12-bookworm", job.Image)
	assert.Equal(t, "main", job.Repo.Ref)

	require.NotNil(t, job.Install)
	assert.Equal(t, "poetry", job.Install.PackageManager)
	assert.Equal(t, []string{".venv"}, job.Install.VenvPath)

	require.Len(t, job.Steps, 2)
	assert.Equal(t, models.StepKindRun, job.Steps[0].Kind)
	assert.Equal(t, "poetry run pytest --cov=monkey", job.Steps[0].Run.Command)

	require.Contains(t, pipeline.Workflows, "ci")
	assert.Equal(t, []string{"test"}, pipeline.Workflows["ci"].Jobs)
}

func TestParsePipeline_InvalidYAML(t *testing.T) {
	_, err := ParsePipeline([]byte("name: [unclosed"))

	assert.Error(t, err)
}

func TestParsePipeline_MissingImage(t *testing.T) {
	document := `
name: broken
jobs:
  test:
    steps:
      - name: tests
        kind: run
        run:
          command: pytest
`

	_, err := ParsePipeline([]byte(document))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "image")
}

func TestParsePipeline_UnknownStepKind(t *testing.T) {
	document := `
name: broken
jobs:
  test:
    image: alpine
    steps:
      - name: deploy
        kind: deploy
`

	_, err := ParsePipeline([]byte(document))

	assert.Error(t, err)
}

func TestParsePipeline_RunStepWithoutCommand(t *testing.T) {
	document := `
name: broken
jobs:
  test:
    image: alpine
    steps:
      - name: tests
        kind: run
`

	_, err := ParsePipeline([]byte(document))

	assert.Error(t, err)
}

func TestParsePipeline_UnknownPackageManager(t *testing.T) {
	document := `
name: broken
jobs:
  test:
    image: alpine
    install:
      package_manager: cargo
    steps:
      - name: tests
        kind: run
        run:
          command: cargo test
`

	_, err := ParsePipeline([]byte(document))

	assert.Error(t, err)
}

func TestParsePipeline_WorkflowReferencesUnknownJob(t *testing.T) {
	document := `
name: broken
jobs:
  test:
    image: alpine
    steps:
      - name: tests
        kind: run
        run:
          command: pytest
workflows:
  ci:
    jobs:
      - missing
`

	_, err := ParsePipeline([]byte(document))

	require.Error(t, err)
	assert.Contains(t, err.Error(), `references unknown job "missing"`)
}

func TestParsePipeline_NoJobs(t *testing.T) {
	_, err := ParsePipeline([]byte("name: empty\njobs: {}\n"))

	assert.Error(t, err)
}

func TestLoadPipeline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yml")
	require.NoError(t, os.WriteFile(path, []byte(validDocument), 0o600))

	pipeline, err := LoadPipeline(path)

	require.NoError(t, err)
	assert.Equal(t, "monkey", pipeline.Name)
}

func TestLoadPipeline_MissingFile(t *testing.T) {
	_, err := LoadPipeline(filepath.Join(t.TempDir(), "nope.yml"))

	assert.Error(t, err)
}

func TestValidateJob(t *testing.T) {
	err := ValidateJob(&models.Job{
		ID:    "test-job",
		Name:  "test-job",
		Image: "alpine",
		Steps: []models.Step{
			{Name: "tests", Kind: models.StepKindRun, Run: &models.RunPayload{Command: "pytest"}},
		},
	})
	assert.NoError(t, err)

	err = ValidateJob(&models.Job{Name: "no-steps", Image: "alpine"})
	assert.Error(t, err)
}
