// Package poetry installs Python dependencies from a pyproject manifest.
package poetry

import (
	"context"
	"fmt"
	"strings"

	"github.com/lorry-ci/lorry/pkg/models"
	"github.com/lorry-ci/lorry/pkg/protocol"
)

type InstallerFactory struct{}

func NewInstallerFactory() *InstallerFactory {
	return &InstallerFactory{}
}

func (*InstallerFactory) ID() string {
	return "poetry"
}

func (f *InstallerFactory) Create(config map[string]any) (protocol.Installer, error) {
	return &Installer{}, nil
}

type Installer struct{}

// Install resolves the pyproject manifest inside the environment. When a
// venv path is declared the virtualenv is kept in-project so later steps find
// it at a fixed location.
func (i *Installer) Install(ctx context.Context, env protocol.Environment, payload models.InstallPayload) (*protocol.ExecResult, error) {
	var command strings.Builder

	if len(payload.VenvPath) > 0 {
		command.WriteString("POETRY_VIRTUALENVS_IN_PROJECT=true ")
	}

	command.WriteString("poetry install --no-interaction --no-ansi")

	result, err := env.Exec(ctx, command.String())
	if err != nil {
		return nil, fmt.Errorf("poetry install could not run: %w", err)
	}

	return result, nil
}
