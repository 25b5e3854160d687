package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/lorry-ci/lorry/pkg/config"
	"github.com/lorry-ci/lorry/pkg/log"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate a pipeline document without running anything",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "pipeline",
				Aliases:  []string{"p"},
				Usage:    "Path to the pipeline document",
				Required: true,
				Sources:  cli.EnvVars("LORRY_PIPELINE"),
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

			pipeline, err := config.LoadPipeline(command.String("pipeline"))
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}

			fmt.Printf("pipeline %q is valid: %d job(s), %d workflow(s)\n",
				pipeline.Name, len(pipeline.Jobs), len(pipeline.Workflows))

			return nil
		},
	}
}
