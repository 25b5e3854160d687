// Package persistence provides the storage abstraction for pipeline
// documents and run results.
package persistence

import (
	"context"

	"github.com/lorry-ci/lorry/pkg/models"
)

type Persistence interface {
	PipelineRepository() PipelineRepository
	RunResultRepository() RunResultRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// PipelineRepository stores the declarative pipeline documents.
type PipelineRepository interface {
	GetAll(ctx context.Context) ([]*models.Pipeline, error)
	GetByID(ctx context.Context, id string) (*models.Pipeline, error)
	Save(ctx context.Context, pipeline *models.Pipeline) error
	Delete(ctx context.Context, id string) error
}

// RunResultRepository stores finalized run results. Results are written once
// and never updated.
type RunResultRepository interface {
	GetAll(ctx context.Context) ([]*models.RunResult, error)
	GetByID(ctx context.Context, id string) (*models.RunResult, error)
	ListByJob(ctx context.Context, jobID string) ([]*models.RunResult, error)
	Save(ctx context.Context, result *models.RunResult) error
}
