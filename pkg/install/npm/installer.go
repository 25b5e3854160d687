// Package npm installs Node dependencies from a package manifest.
package npm

import (
	"context"
	"fmt"

	"github.com/lorry-ci/lorry/pkg/models"
	"github.com/lorry-ci/lorry/pkg/protocol"
)

type InstallerFactory struct{}

func NewInstallerFactory() *InstallerFactory {
	return &InstallerFactory{}
}

func (*InstallerFactory) ID() string {
	return "npm"
}

func (f *InstallerFactory) Create(config map[string]any) (protocol.Installer, error) {
	return &Installer{}, nil
}

type Installer struct{}

// Install runs a clean, lockfile-driven install so results are deterministic
// for a fixed manifest and lock state.
func (i *Installer) Install(ctx context.Context, env protocol.Environment, payload models.InstallPayload) (*protocol.ExecResult, error) {
	result, err := env.Exec(ctx, "npm ci")
	if err != nil {
		return nil, fmt.Errorf("npm ci could not run: %w", err)
	}

	return result, nil
}
