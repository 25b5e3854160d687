// Package postgresql provides PostgreSQL persistence for pipelines and run results.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/lorry-ci/lorry/pkg/persistence"
	"github.com/lorry-ci/lorry/pkg/persistence/sqlbase"
)

type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	pipelineRepo *PipelineRepository
	runRepo      *RunResultRepository
}

func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:           database,
		logger:       logger,
		pipelineRepo: NewPipelineRepository(database, logger),
		runRepo:      NewRunResultRepository(database, logger),
	}, nil
}

func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) PipelineRepository() persistence.PipelineRepository {
	return p.pipelineRepo
}

func (p *Persistence) RunResultRepository() persistence.RunResultRepository {
	return p.runRepo
}
