package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	cli "github.com/urfave/cli/v3"

	"github.com/lorry-ci/lorry/pkg/cmd"
	"github.com/lorry-ci/lorry/pkg/log"
	"github.com/lorry-ci/lorry/pkg/models"
)

func resultsCommand() *cli.Command {
	return &cli.Command{
		Name:  "results",
		Usage: "List stored run results",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Persistence URL (file, postgres, redis)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "job",
				Aliases: []string{"j"},
				Usage:   "Only list runs of this job",
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
			logger := log.WithModule("lorry")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				closeErr := persistence.Close(ctx)
				if closeErr != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", closeErr)
				}
			}()

			var (
				results []*models.RunResult
				err     error
			)

			jobID := command.String("job")
			if jobID != "" {
				results, err = persistence.RunResultRepository().ListByJob(ctx, jobID)
			} else {
				results, err = persistence.RunResultRepository().GetAll(ctx)
			}

			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tJOB\tSTATUS\tSTEPS\tSTARTED")

			for _, result := range results {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					result.ID,
					result.JobName,
					result.Status,
					len(result.Steps),
					result.StartedAt.Format("2006-01-02 15:04:05"),
				)
			}

			return w.Flush()
		},
	}
}
