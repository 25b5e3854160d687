package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/lorry-ci/lorry/pkg/cmd"
	"github.com/lorry-ci/lorry/pkg/config"
	"github.com/lorry-ci/lorry/pkg/log"
	"github.com/lorry-ci/lorry/pkg/models"
	"github.com/lorry-ci/lorry/pkg/runner"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Execute a job from a pipeline document",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "pipeline",
				Aliases:  []string{"p"},
				Usage:    "Path to the pipeline document",
				Required: true,
				Sources:  cli.EnvVars("LORRY_PIPELINE"),
			},
			&cli.StringFlag{
				Name:    "job",
				Aliases: []string{"j"},
				Usage:   "Job to run (defaults to the only job in the document)",
				Sources: cli.EnvVars("LORRY_JOB"),
			},
			&cli.StringFlag{
				Name:    "environment",
				Usage:   "Environment provider (docker, local)",
				Value:   "docker",
				Sources: cli.EnvVars("LORRY_ENVIRONMENT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Persistence URL for storing run results (file, postgres, redis)",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
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

			return runJob(ctx, command)
		},
	}
}

func runJob(ctx context.Context, command *cli.Command) error {
	runnerID := "runner-" + uuid.New().String()[:8]
	logger := log.WithModule("lorry").With("runner_id", runnerID)

	pipeline, err := config.LoadPipeline(command.String("pipeline"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	job, err := resolveJob(pipeline, command.String("job"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	eventBus := cmd.NewEventBus(command.String("event-bus"), "lorry", logger)
	defer func() {
		closeErr := eventBus.Close()
		if closeErr != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", closeErr)
		}
	}()

	provisioner := cmd.NewProvisioner(command.String("environment"), logger)
	installers := cmd.NewInstallerRegistry(logger)

	jobRunner := runner.NewJobRunner(runnerID, provisioner, installers, eventBus, logger)

	result, runErr := jobRunner.Run(ctx, job)
	if result != nil {
		printReport(result)

		databaseURL := command.String("database-url")
		if databaseURL != "" {
			persistence := cmd.NewPersistence(ctx, logger, databaseURL)
			defer func() {
				closeErr := persistence.Close(ctx)
				if closeErr != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", closeErr)
				}
			}()

			saveErr := persistence.RunResultRepository().Save(ctx, result)
			if saveErr != nil {
				logger.ErrorContext(ctx, "Failed to save run result", "error", saveErr)
			}
		}
	}

	if runErr != nil {
		return cli.Exit(fmt.Sprintf("run aborted: %v", runErr), 1)
	}

	if !result.Succeeded() {
		return cli.Exit("run failed", 1)
	}

	return nil
}

// resolveJob picks the requested job, falling back to the single declared job
// when the document has exactly one.
func resolveJob(pipeline *models.Pipeline, name string) (*models.Job, error) {
	if name != "" {
		job, ok := pipeline.JobByName(name)
		if !ok {
			return nil, fmt.Errorf("pipeline %q declares no job %q", pipeline.Name, name)
		}

		return job, nil
	}

	if len(pipeline.Jobs) == 1 {
		for _, job := range pipeline.Jobs {
			return job, nil
		}
	}

	return nil, fmt.Errorf("pipeline %q declares %d jobs, pick one with --job", pipeline.Name, len(pipeline.Jobs))
}

const timePrecision = 10 * time.Millisecond

func printReport(result *models.RunResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "RUN\t%s\t%s\t%s\n", result.ID, result.JobName, result.Status)

	for _, step := range result.Steps {
		duration := step.Duration().Round(timePrecision)
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", step.Name, step.Kind, step.Outcome, duration)
	}

	if result.Error != "" {
		fmt.Fprintf(w, "ERROR\t%s\n", result.Error)
	}

	w.Flush()
}
