package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/lorry-ci/lorry/pkg/models"
	"github.com/lorry-ci/lorry/pkg/persistence"
	"github.com/lorry-ci/lorry/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"run_results", "pipelines", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("lorry_test"),
			postgres.WithUsername("lorry"),
			postgres.WithPassword("lorry"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func testPipeline(id string) *models.Pipeline {
	return &models.Pipeline{
		ID:   id,
		Name: "monkey",
		Jobs: map[string]*models.Job{
			"test": {
				ID:    "test",
				Name:  "test",
				Image: "python:3.12-bookworm",
				Steps: []models.Step{
					{Name: "pytest", Kind: models.StepKindRun, Run: &models.RunPayload{Command: "pytest"}},
				},
			},
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	var exists bool

	err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = 'pipelines')`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "pipelines table should exist")

	err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = 'run_results')`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "run_results table should exist")

	var version int

	err = db.QueryRowContext(ctx, "SELECT version FROM schema_migrations WHERE version = 1").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	assert.NoError(t, p.HealthCheck(ctx))
}

func TestPipelineRepository_Roundtrip(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	repo := p.PipelineRepository()

	require.NoError(t, repo.Save(ctx, testPipeline("pipeline-1")))

	loaded, err := repo.GetByID(ctx, "pipeline-1")
	require.NoError(t, err)
	assert.Equal(t, "monkey", loaded.Name)

	// Upsert keeps a single row.
	updated := testPipeline("pipeline-1")
	updated.Name = "monkey-v2"
	require.NoError(t, repo.Save(ctx, updated))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "monkey-v2", all[0].Name)

	require.NoError(t, repo.Delete(ctx, "pipeline-1"))

	_, err = repo.GetByID(ctx, "pipeline-1")
	assert.True(t, persistence.IsPipelineNotFound(err))
}

func TestRunResultRepository_Roundtrip(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	repo := p.RunResultRepository()

	finished := time.Now().UTC()
	result := &models.RunResult{
		ID:         "run-1",
		JobID:      "test",
		JobName:    "test",
		Image:      "python:3.12-bookworm",
		Status:     models.RunStatusFailed,
		StartedAt:  finished.Add(-time.Minute),
		FinishedAt: &finished,
		Steps: []models.StepResult{
			{Name: "checkout", Kind: models.StepKindCheckout, Outcome: models.OutcomeSucceeded},
			{Name: "pytest", Kind: models.StepKindRun, Outcome: models.OutcomeFailed, ExitCode: 1},
		},
	}

	require.NoError(t, repo.Save(ctx, result))

	loaded, err := repo.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, loaded.Status)
	require.Len(t, loaded.Steps, 2)
	assert.Equal(t, models.OutcomeFailed, loaded.Steps[1].Outcome)

	byJob, err := repo.ListByJob(ctx, "test")
	require.NoError(t, err)
	assert.Len(t, byJob, 1)

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, persistence.IsRunResultNotFound(err))
}
