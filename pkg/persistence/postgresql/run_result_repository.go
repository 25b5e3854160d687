package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lorry-ci/lorry/pkg/models"
	"github.com/lorry-ci/lorry/pkg/persistence"
)

type RunResultRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRunResultRepository(db *sql.DB, logger *slog.Logger) *RunResultRepository {
	return &RunResultRepository{db: db, logger: logger}
}

func (r *RunResultRepository) GetAll(ctx context.Context) ([]*models.RunResult, error) {
	return r.query(ctx, "SELECT document FROM run_results ORDER BY started_at DESC")
}

func (r *RunResultRepository) GetByID(ctx context.Context, id string) (*models.RunResult, error) {
	var document []byte

	err := r.db.QueryRowContext(ctx, "SELECT document FROM run_results WHERE id = $1", id).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrRunResultNotFound
		}

		return nil, fmt.Errorf("failed to query run result %s: %w", id, err)
	}

	var result models.RunResult

	err = json.Unmarshal(document, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal run result document: %w", err)
	}

	return &result, nil
}

func (r *RunResultRepository) ListByJob(ctx context.Context, jobID string) ([]*models.RunResult, error) {
	return r.query(ctx, "SELECT document FROM run_results WHERE job_id = $1 ORDER BY started_at DESC", jobID)
}

func (r *RunResultRepository) Save(ctx context.Context, result *models.RunResult) error {
	document, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal run result %s: %w", result.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO run_results (id, job_id, status, document, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			document = EXCLUDED.document,
			finished_at = EXCLUDED.finished_at
	`, result.ID, result.JobID, result.Status, document, result.StartedAt, result.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to save run result %s: %w", result.ID, err)
	}

	return nil
}

func (r *RunResultRepository) query(ctx context.Context, statement string, args ...any) ([]*models.RunResult, error) {
	rows, err := r.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query run results: %w", err)
	}
	defer rows.Close()

	var results []*models.RunResult

	for rows.Next() {
		var document []byte

		err = rows.Scan(&document)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run result row: %w", err)
		}

		var result models.RunResult

		err = json.Unmarshal(document, &result)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal run result document: %w", err)
		}

		results = append(results, &result)
	}

	return results, rows.Err()
}
