// Package docker provisions job environments as containers through the
// docker CLI. One container per run, removed unconditionally on teardown.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/google/uuid"

	"github.com/lorry-ci/lorry/pkg/models"
	"github.com/lorry-ci/lorry/pkg/protocol"
)

const workdir = "/workspace"

type Provisioner struct {
	logger *slog.Logger
}

func NewProvisioner(logger *slog.Logger) *Provisioner {
	return &Provisioner{
		logger: logger.With("module", "environment.docker"),
	}
}

// Provision pulls the image when missing and starts a long-lived container
// the run's steps exec into.
func (p *Provisioner) Provision(ctx context.Context, image string) (protocol.Environment, error) {
	exists, err := imageExists(ctx, image)
	if err != nil {
		return nil, err
	}

	if !exists {
		p.logger.InfoContext(ctx, "Pulling image", "image", image)

		err = pullImage(ctx, image)
		if err != nil {
			return nil, err
		}
	}

	name := "lorry-run-" + uuid.New().String()[:8]

	output, exitCode, err := runDocker(ctx,
		"run", "-d",
		"--name", name,
		"-w", workdir,
		image,
		"sleep", "infinity",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start container from image %s: %w", image, err)
	}

	if exitCode != 0 {
		return nil, fmt.Errorf("failed to start container from image %s: %s", image, strings.TrimSpace(output))
	}

	containerID := strings.TrimSpace(output)
	p.logger.InfoContext(ctx, "Provisioned container", "image", image, "container_id", containerID)

	return &environment{id: containerID, image: image}, nil
}

// Checkout clones the repository into the container's workspace.
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
		return fmt.Errorf("git clone of %s failed: %s", repo.URL, tail(result.Output))
	}

	return nil
}

// Teardown force-removes the run's container.
func (p *Provisioner) Teardown(ctx context.Context, env protocol.Environment) error {
	output, exitCode, err := runDocker(ctx, "rm", "-f", env.ID())
	if err != nil {
		return fmt.Errorf("failed to remove container %s: %w", env.ID(), err)
	}

	if exitCode != 0 {
		return fmt.Errorf("failed to remove container %s: %s", env.ID(), strings.TrimSpace(output))
	}

	p.logger.InfoContext(ctx, "Tore down container", "container_id", env.ID())

	return nil
}

type environment struct {
	id    string
	image string
}

func (e *environment) ID() string {
	return e.id
}

func (e *environment) Image() string {
	return e.image
}

// Exec runs the command through the container's shell and blocks until it
// terminates. A non-zero exit status is reported in the result, not as an
// error.
func (e *environment) Exec(ctx context.Context, command string) (*protocol.ExecResult, error) {
	output, exitCode, err := runDocker(ctx, "exec", "-w", workdir, e.id, "sh", "-c", command)
	if err != nil {
		return nil, fmt.Errorf("failed to exec in container %s: %w", e.id, err)
	}

	return &protocol.ExecResult{ExitCode: exitCode, Output: output}, nil
}

// runDocker invokes the docker CLI and separates "command failed" (non-zero
// exit) from "could not run docker at all".
func runDocker(ctx context.Context, args ...string) (string, int, error) {
	cmd := exec.CommandContext(ctx, "docker", args...)

	var combined bytes.Buffer

	cmd.Stdout = &combined
	cmd.Stderr = &combined

	err := cmd.Run()
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return "", 0, fmt.Errorf("failed to execute docker command: %w", err)
		}

		return combined.String(), exitErr.ExitCode(), nil
	}

	return combined.String(), 0, nil
}

// ValidateDockerAvailable checks the docker CLI is usable on this host.
func ValidateDockerAvailable() error {
	cmd := exec.Command("docker", "version")

	err := cmd.Run()
	if err != nil {
		return fmt.Errorf("docker is not available: %w", err)
	}

	return nil
}

func imageExists(ctx context.Context, image string) (bool, error) {
	output, exitCode, err := runDocker(ctx, "image", "inspect", image)
	if err != nil {
		return false, err
	}

	if exitCode != 0 {
		if strings.Contains(output, "No such") {
			return false, nil
		}

		return false, fmt.Errorf("docker image inspect failed: %s", strings.TrimSpace(output))
	}

	return true, nil
}

func pullImage(ctx context.Context, image string) error {
	output, exitCode, err := runDocker(ctx, "pull", image)
	if err != nil {
		return err
	}

	if exitCode != 0 {
		return fmt.Errorf("failed to pull image %s: %s", image, tail(output))
	}

	return nil
}

func tail(output string) string {
	const maxTail = 512

	output = strings.TrimSpace(output)
	if len(output) > maxTail {
		output = "..." + output[len(output)-maxTail:]
	}

	return output
}
