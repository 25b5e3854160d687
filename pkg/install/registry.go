// Package install maps package-manager identifiers to installer
// implementations. Step kinds are a closed set, but the package managers an
// install step may name are not, so installers register through factories.
package install

import (
	"fmt"
	"log/slog"

	"github.com/lorry-ci/lorry/pkg/protocol"
)

type Registry struct {
	logger    *slog.Logger
	factories map[string]protocol.InstallerFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[string]protocol.InstallerFactory),
	}
}

func (r *Registry) Register(factory protocol.InstallerFactory) {
	r.factories[factory.ID()] = factory
}

func (r *Registry) Create(packageManager string, config map[string]any) (protocol.Installer, error) {
	factory, ok := r.factories[packageManager]
	if !ok {
		return nil, fmt.Errorf("package manager '%s' not registered", packageManager)
	}

	return factory.Create(config)
}

// PackageManagers returns the registered package-manager identifiers.
func (r *Registry) PackageManagers() []string {
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}

	return ids
}
