package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "lorry",
		EnableShellCompletion: true,
		Usage:                 "Run CI jobs from a declarative pipeline document",
		Commands: []*cli.Command{
			runCommand(),
			validateCommand(),
			resultsCommand(),
			workerCommand(),
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		os.Exit(1)
	}
}
