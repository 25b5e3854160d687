package protocol

import (
	"context"

	"github.com/lorry-ci/lorry/pkg/models"
)

// Installer resolves and installs a job's declared dependencies into its
// environment before any step depends on them. Installation is treated as
// idempotent and deterministic for a fixed manifest and lock state.
type Installer interface {
	Install(ctx context.Context, env Environment, payload models.InstallPayload) (*ExecResult, error)
}

// InstallerFactory creates installers for one package manager.
type InstallerFactory interface {
	Create(config map[string]any) (Installer, error)
	ID() string
}
