// Package protocol defines the interfaces between the job runner and its
// external collaborators: environment provisioning and dependency
// installation.
package protocol

import (
	"context"

	"github.com/lorry-ci/lorry/pkg/models"
)

// ExecResult is the terminal state of one command executed inside an
// environment. A non-zero exit code is a step failure, not an error; Err is
// reserved for failures to run the command at all.
type ExecResult struct {
	ExitCode int
	Output   string
}

// Environment is an isolated, ephemeral execution context owned exclusively
// by one job run. It is never shared across concurrent runs and is torn down
// unconditionally when the run ends.
type Environment interface {
	ID() string
	Image() string
	Exec(ctx context.Context, command string) (*ExecResult, error)
}

// Provisioner materializes environments from a named image. Teardown is
// invoked exactly once per provisioned environment, on every exit path.
type Provisioner interface {
	Provision(ctx context.Context, image string) (Environment, error)
	Checkout(ctx context.Context, env Environment, repo models.RepoRef) error
	Teardown(ctx context.Context, env Environment) error
}
