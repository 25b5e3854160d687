// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/lorry-ci/lorry/pkg/environment/docker"
	"github.com/lorry-ci/lorry/pkg/environment/local"
	"github.com/lorry-ci/lorry/pkg/install"
	"github.com/lorry-ci/lorry/pkg/install/npm"
	"github.com/lorry-ci/lorry/pkg/install/pip"
	"github.com/lorry-ci/lorry/pkg/install/poetry"
	"github.com/lorry-ci/lorry/pkg/protocol"
)

func NewInstallerRegistry(logger *slog.Logger) *install.Registry {
	registry := install.NewRegistry(logger)

	registry.Register(poetry.NewInstallerFactory())
	registry.Register(pip.NewInstallerFactory())
	registry.Register(npm.NewInstallerFactory())

	return registry
}

func NewProvisioner(provider string, logger *slog.Logger) protocol.Provisioner {
	switch provider {
	case "local":
		return local.NewProvisioner(logger, "")
	case "docker", "":
		return docker.NewProvisioner(logger)
	default:
		panic("Unsupported environment provider: " + provider)
	}
}
