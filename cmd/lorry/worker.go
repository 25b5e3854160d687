package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/lorry-ci/lorry/pkg/cmd"
	"github.com/lorry-ci/lorry/pkg/log"
	"github.com/lorry-ci/lorry/pkg/otelhelper"
)

func workerCommand() *cli.Command {
	return &cli.Command{
		Name:    "worker",
		Aliases: []string{"w"},
		Usage:   "Start a worker that executes triggered jobs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Persistence URL for pipelines and run results",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "environment",
				Usage:   "Environment provider (docker, local)",
				Value:   "docker",
				Sources: cli.EnvVars("LORRY_ENVIRONMENT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("lorry-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing lorry worker")

			_, err := otelhelper.NewTracer(ctx, "lorry-worker")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}

			eventBus := cmd.NewEventBus(command.String("event-bus"), "lorry-worker", logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			provisioner := cmd.NewProvisioner(command.String("environment"), logger)
			installers := cmd.NewInstallerRegistry(logger)

			worker := NewWorkerManager(workerID, persistence, eventBus, provisioner, installers, logger)

			return worker.Start(ctx)
		},
	}
}
