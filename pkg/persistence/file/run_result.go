package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lorry-ci/lorry/pkg/models"
	"github.com/lorry-ci/lorry/pkg/persistence"
)

type RunResultRepository struct {
	dir string
}

func NewRunResultRepository(root string) *RunResultRepository {
	return &RunResultRepository{dir: filepath.Join(root, "runs")}
}

func (r *RunResultRepository) GetAll(ctx context.Context) ([]*models.RunResult, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.RunResult{}, nil
		}

		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	results := make([]*models.RunResult, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		result, err := r.read(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].StartedAt.After(results[j].StartedAt)
	})

	return results, nil
}

func (r *RunResultRepository) GetByID(ctx context.Context, id string) (*models.RunResult, error) {
	result, err := r.read(r.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrRunResultNotFound
		}

		return nil, err
	}

	return result, nil
}

func (r *RunResultRepository) ListByJob(ctx context.Context, jobID string) ([]*models.RunResult, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*models.RunResult, 0, len(all))

	for _, result := range all {
		if result.JobID == jobID {
			results = append(results, result)
		}
	}

	return results, nil
}

func (r *RunResultRepository) Save(ctx context.Context, result *models.RunResult) error {
	err := os.MkdirAll(r.dir, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create runs directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run result %s: %w", result.ID, err)
	}

	err = os.WriteFile(r.path(result.ID), data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write run result %s: %w", result.ID, err)
	}

	return nil
}

func (r *RunResultRepository) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}

func (r *RunResultRepository) read(path string) (*models.RunResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var result models.RunResult

	err = json.Unmarshal(data, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal run result file %s: %w", path, err)
	}

	return &result, nil
}
