package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lorry-ci/lorry/pkg/models"
	"github.com/lorry-ci/lorry/pkg/persistence"
)

type RunResultRepository struct {
	client *goredis.Client
}

func NewRunResultRepository(client *goredis.Client) *RunResultRepository {
	return &RunResultRepository{client: client}
}

func (r *RunResultRepository) GetAll(ctx context.Context) ([]*models.RunResult, error) {
	ids, err := r.client.SMembers(ctx, runIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list run results: %w", err)
	}

	return r.collect(ctx, ids)
}

func (r *RunResultRepository) GetByID(ctx context.Context, id string) (*models.RunResult, error) {
	data, err := r.client.Get(ctx, runKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, persistence.ErrRunResultNotFound
		}

		return nil, fmt.Errorf("failed to get run result %s: %w", id, err)
	}

	var result models.RunResult

	err = json.Unmarshal(data, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal run result %s: %w", id, err)
	}

	return &result, nil
}

func (r *RunResultRepository) ListByJob(ctx context.Context, jobID string) ([]*models.RunResult, error) {
	ids, err := r.client.SMembers(ctx, runJobIndexPrefix+jobID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list run results for job %s: %w", jobID, err)
	}

	return r.collect(ctx, ids)
}

func (r *RunResultRepository) Save(ctx context.Context, result *models.RunResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal run result %s: %w", result.ID, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, runKeyPrefix+result.ID, data, 0)
	pipe.SAdd(ctx, runIndexKey, result.ID)
	pipe.SAdd(ctx, runJobIndexPrefix+result.JobID, result.ID)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save run result %s: %w", result.ID, err)
	}

	return nil
}

func (r *RunResultRepository) collect(ctx context.Context, ids []string) ([]*models.RunResult, error) {
	results := make([]*models.RunResult, 0, len(ids))

	for _, id := range ids {
		result, err := r.GetByID(ctx, id)
		if err != nil {
			if persistence.IsRunResultNotFound(err) {
				continue
			}

			return nil, err
		}

		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].StartedAt.After(results[j].StartedAt)
	})

	return results, nil
}
