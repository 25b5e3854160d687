package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lorry-ci/lorry/pkg/models"
	"github.com/lorry-ci/lorry/pkg/persistence"
)

type PipelineRepository struct {
	dir string
}

func NewPipelineRepository(root string) *PipelineRepository {
	return &PipelineRepository{dir: filepath.Join(root, "pipelines")}
}

func (r *PipelineRepository) GetAll(ctx context.Context) ([]*models.Pipeline, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.Pipeline{}, nil
		}

		return nil, fmt.Errorf("failed to read pipelines directory: %w", err)
	}

	pipelines := make([]*models.Pipeline, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		pipeline, err := r.read(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		pipelines = append(pipelines, pipeline)
	}

	return pipelines, nil
}

func (r *PipelineRepository) GetByID(ctx context.Context, id string) (*models.Pipeline, error) {
	pipeline, err := r.read(r.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrPipelineNotFound
		}

		return nil, err
	}

	return pipeline, nil
}

func (r *PipelineRepository) Save(ctx context.Context, pipeline *models.Pipeline) error {
	err := os.MkdirAll(r.dir, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create pipelines directory: %w", err)
	}

	data, err := json.MarshalIndent(pipeline, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal pipeline %s: %w", pipeline.ID, err)
	}

	err = os.WriteFile(r.path(pipeline.ID), data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write pipeline %s: %w", pipeline.ID, err)
	}

	return nil
}

func (r *PipelineRepository) Delete(ctx context.Context, id string) error {
	err := os.Remove(r.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.ErrPipelineNotFound
		}

		return fmt.Errorf("failed to delete pipeline %s: %w", id, err)
	}

	return nil
}

func (r *PipelineRepository) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}

func (r *PipelineRepository) read(path string) (*models.Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pipeline models.Pipeline

	err = json.Unmarshal(data, &pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal pipeline file %s: %w", path, err)
	}

	return &pipeline, nil
}
