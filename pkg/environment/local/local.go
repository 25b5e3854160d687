// Package local provisions job environments as throwaway workspaces on the
// host. Intended for development and tests; the image name is recorded but
// not enforced.
package local

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/google/uuid"

	"github.com/lorry-ci/lorry/pkg/models"
	"github.com/lorry-ci/lorry/pkg/protocol"
)

type Provisioner struct {
	logger  *slog.Logger
	baseDir string
}

func NewProvisioner(logger *slog.Logger, baseDir string) *Provisioner {
	return &Provisioner{
		logger:  logger.With("module", "environment.local"),
		baseDir: baseDir,
	}
}

func (p *Provisioner) Provision(ctx context.Context, image string) (protocol.Environment, error) {
	dir, err := os.MkdirTemp(p.baseDir, "lorry-run-")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	env := &environment{
		id:    "local-" + uuid.New().String()[:8],
		image: image,
		dir:   dir,
	}

	p.logger.InfoContext(ctx, "Provisioned workspace", "dir", dir, "image", image)

	return env, nil
}

func (p *Provisioner) Checkout(ctx context.Context, env protocol.Environment, repo models.RepoRef) error {
	if repo.URL == "" {
		return fmt.Errorf("checkout requires a repository URL")
	}

	command := fmt.Sprintf("git clone %s .", repo.URL)
	if repo.Ref != "" {
		command += fmt.Sprintf(" && git checkout %s", repo.Ref)
	}

	result, err := env.Exec(ctx, command)
	if err != nil {
		return err
	}

	if result.ExitCode != 0 {
		return fmt.Errorf("git clone of %s failed with exit code %d", repo.URL, result.ExitCode)
	}

	return nil
}

func (p *Provisioner) Teardown(ctx context.Context, env protocol.Environment) error {
	localEnv, ok := env.(*environment)
	if !ok {
		return fmt.Errorf("environment %s was not provisioned locally", env.ID())
	}

	err := os.RemoveAll(localEnv.dir)
	if err != nil {
		return fmt.Errorf("failed to remove workspace %s: %w", localEnv.dir, err)
	}

	p.logger.InfoContext(ctx, "Tore down workspace", "dir", localEnv.dir)

	return nil
}

type environment struct {
	id    string
	image string
	dir   string
}

func (e *environment) ID() string {
	return e.id
}

func (e *environment) Image() string {
	return e.image
}

func (e *environment) Exec(ctx context.Context, command string) (*protocol.ExecResult, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = e.dir

	var combined bytes.Buffer

	cmd.Stdout = &combined
	cmd.Stderr = &combined

	err := cmd.Run()
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return nil, fmt.Errorf("failed to execute command: %w", err)
		}

		return &protocol.ExecResult{ExitCode: exitErr.ExitCode(), Output: combined.String()}, nil
	}

	return &protocol.ExecResult{ExitCode: 0, Output: combined.String()}, nil
}
