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

type PipelineRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPipelineRepository(db *sql.DB, logger *slog.Logger) *PipelineRepository {
	return &PipelineRepository{db: db, logger: logger}
}

func (r *PipelineRepository) GetAll(ctx context.Context) ([]*models.Pipeline, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT document FROM pipelines ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query pipelines: %w", err)
	}
	defer rows.Close()

	var pipelines []*models.Pipeline

	for rows.Next() {
		var document []byte

		err = rows.Scan(&document)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pipeline row: %w", err)
		}

		var pipeline models.Pipeline

		err = json.Unmarshal(document, &pipeline)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal pipeline document: %w", err)
		}

		pipelines = append(pipelines, &pipeline)
	}

	return pipelines, rows.Err()
}

func (r *PipelineRepository) GetByID(ctx context.Context, id string) (*models.Pipeline, error) {
	var document []byte

	err := r.db.QueryRowContext(ctx, "SELECT document FROM pipelines WHERE id = $1", id).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrPipelineNotFound
		}

		return nil, fmt.Errorf("failed to query pipeline %s: %w", id, err)
	}

	var pipeline models.Pipeline

	err = json.Unmarshal(document, &pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal pipeline document: %w", err)
	}

	return &pipeline, nil
}

func (r *PipelineRepository) Save(ctx context.Context, pipeline *models.Pipeline) error {
	document, err := json.Marshal(pipeline)
	if err != nil {
		return fmt.Errorf("failed to marshal pipeline %s: %w", pipeline.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO pipelines (id, name, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			document = EXCLUDED.document,
			updated_at = NOW()
	`, pipeline.ID, pipeline.Name, document, pipeline.CreatedAt, pipeline.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save pipeline %s: %w", pipeline.ID, err)
	}

	return nil
}

func (r *PipelineRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM pipelines WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete pipeline %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}

	if affected == 0 {
		return persistence.ErrPipelineNotFound
	}

	return nil
}
