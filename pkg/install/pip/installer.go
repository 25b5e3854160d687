// Package pip installs Python dependencies from a requirements manifest.
package pip

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
	return "pip"
}

func (f *InstallerFactory) Create(config map[string]any) (protocol.Installer, error) {
	requirements, _ := config["requirements"].(string)
	if requirements == "" {
		requirements = "requirements.txt"
	}

	return &Installer{requirements: requirements}, nil
}

type Installer struct {
	requirements string
}

func (i *Installer) Install(ctx context.Context, env protocol.Environment, payload models.InstallPayload) (*protocol.ExecResult, error) {
	var command strings.Builder

	if len(payload.VenvPath) > 0 {
		venv := payload.VenvPath[0]
		command.WriteString("python -m venv " + venv + " && . " + venv + "/bin/activate && ")
	}

	command.WriteString("pip install -r " + i.requirements)

	result, err := env.Exec(ctx, command.String())
	if err != nil {
		return nil, fmt.Errorf("pip install could not run: %w", err)
	}

	return result, nil
}
