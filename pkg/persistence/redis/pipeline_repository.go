package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lorry-ci/lorry/pkg/models"
	"github.com/lorry-ci/lorry/pkg/persistence"
)

type PipelineRepository struct {
	client *goredis.Client
}

func NewPipelineRepository(client *goredis.Client) *PipelineRepository {
	return &PipelineRepository{client: client}
}

func (r *PipelineRepository) GetAll(ctx context.Context) ([]*models.Pipeline, error) {
	ids, err := r.client.SMembers(ctx, pipelineIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pipelines: %w", err)
	}

	pipelines := make([]*models.Pipeline, 0, len(ids))

	for _, id := range ids {
		pipeline, err := r.GetByID(ctx, id)
		if err != nil {
			if persistence.IsPipelineNotFound(err) {
				continue
			}

			return nil, err
		}

		pipelines = append(pipelines, pipeline)
	}

	return pipelines, nil
}

func (r *PipelineRepository) GetByID(ctx context.Context, id string) (*models.Pipeline, error) {
	data, err := r.client.Get(ctx, pipelineKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, persistence.ErrPipelineNotFound
		}

		return nil, fmt.Errorf("failed to get pipeline %s: %w", id, err)
	}

	var pipeline models.Pipeline

	err = json.Unmarshal(data, &pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal pipeline %s: %w", id, err)
	}

	return &pipeline, nil
}

func (r *PipelineRepository) Save(ctx context.Context, pipeline *models.Pipeline) error {
	data, err := json.Marshal(pipeline)
	if err != nil {
		return fmt.Errorf("failed to marshal pipeline %s: %w", pipeline.ID, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, pipelineKeyPrefix+pipeline.ID, data, 0)
	pipe.SAdd(ctx, pipelineIndexKey, pipeline.ID)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save pipeline %s: %w", pipeline.ID, err)
	}

	return nil
}

func (r *PipelineRepository) Delete(ctx context.Context, id string) error {
	deleted, err := r.client.Del(ctx, pipelineKeyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("failed to delete pipeline %s: %w", id, err)
	}

	if deleted == 0 {
		return persistence.ErrPipelineNotFound
	}

	err = r.client.SRem(ctx, pipelineIndexKey, id).Err()
	if err != nil {
		return fmt.Errorf("failed to unindex pipeline %s: %w", id, err)
	}

	return nil
}
