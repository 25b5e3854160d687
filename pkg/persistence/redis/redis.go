// Package redis provides Redis persistence for pipelines and run results,
// stored as JSON documents with set-based indexes.
package redis

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lorry-ci/lorry/pkg/persistence"
)

const (
	pipelineKeyPrefix = "lorry:pipelines:"
	pipelineIndexKey  = "lorry:pipelines"
	runKeyPrefix      = "lorry:runs:"
	runIndexKey       = "lorry:runs"
	runJobIndexPrefix = "lorry:runs:by_job:"
)

type Persistence struct {
	client       *goredis.Client
	logger       *slog.Logger
	pipelineRepo *PipelineRepository
	runRepo      *RunResultRepository
}

func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	options, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := goredis.NewClient(options)

	err = client.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Persistence{
		client:       client,
		logger:       logger,
		pipelineRepo: NewPipelineRepository(client),
		runRepo:      NewRunResultRepository(client),
	}, nil
}

func (p *Persistence) Close(ctx context.Context) error {
	err := p.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

func (p *Persistence) PipelineRepository() persistence.PipelineRepository {
	return p.pipelineRepo
}

func (p *Persistence) RunResultRepository() persistence.RunResultRepository {
	return p.runRepo
}
