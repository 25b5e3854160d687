package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/lorry-ci/lorry/pkg/cmd"
	"github.com/lorry-ci/lorry/pkg/events"
	"github.com/lorry-ci/lorry/pkg/log"
	"github.com/lorry-ci/lorry/pkg/trigger/schedule"
)

func main() {
	command := &cli.Command{
		Name:                  "lorry-trigger",
		Usage:                 "Publish job triggered events on a cron schedule",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Persistence URL holding the pipeline",
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
				Name:     "pipeline-id",
				Usage:    "Pipeline to trigger jobs from",
				Required: true,
				Sources:  cli.EnvVars("LORRY_PIPELINE_ID"),
			},
			&cli.StringFlag{
				Name:     "workflow",
				Usage:    "Workflow whose jobs are triggered on each fire",
				Required: true,
				Sources:  cli.EnvVars("LORRY_WORKFLOW"),
			},
			&cli.StringFlag{
				Name:     "cron",
				Usage:    "Cron expression (standard 5-field format)",
				Required: true,
				Sources:  cli.EnvVars("LORRY_CRON"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: runTrigger,
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		os.Exit(1)
	}
}

func runTrigger(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	triggerID := "trigger-" + uuid.New().String()[:8]
	logger := log.WithModule("lorry-trigger").With("trigger_id", triggerID)

	logger.InfoContext(ctx, "Initializing lorry trigger")

	persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	defer func() {
		err := persistence.Close(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus := cmd.NewEventBus(command.String("event-bus"), "lorry-trigger", logger)
	defer func() {
		err := eventBus.Close()
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	pipelineID := command.String("pipeline-id")
	workflowName := command.String("workflow")

	pipeline, err := persistence.PipelineRepository().GetByID(ctx, pipelineID)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	workflow, ok := pipeline.Workflows[workflowName]
	if !ok {
		return cli.Exit("pipeline "+pipelineID+" declares no workflow "+workflowName, 2)
	}

	triggers := make([]*schedule.Trigger, 0, len(workflow.Jobs))

	for _, jobName := range workflow.Jobs {
		trigger, err := schedule.NewTrigger(triggerID, command.String("cron"), pipelineID, jobName, logger)
		if err != nil {
			return cli.Exit(err.Error(), 2)
		}

		job, _ := pipeline.JobByName(jobName)

		err = trigger.Start(ctx, func(ctx context.Context, data map[string]any) error {
			event := events.JobTriggered{
				BaseEvent:   events.NewBaseEvent(events.JobTriggeredEvent, job.ID),
				PipelineID:  pipelineID,
				JobName:     jobName,
				TriggerID:   triggerID,
				TriggerData: data,
			}

			return eventBus.Publish(ctx, job.ID, event)
		})
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}

		triggers = append(triggers, trigger)
	}

	logger.InfoContext(ctx, "Trigger started", "workflow", workflowName, "jobs", len(triggers))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.InfoContext(ctx, "Shutting down trigger...")

	for _, trigger := range triggers {
		err := trigger.Stop(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to stop trigger", "error", err)
		}
	}

	return nil
}
