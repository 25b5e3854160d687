// Package mocks provides testify mocks for the runner's collaborator interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/lorry-ci/lorry/pkg/models"
	"github.com/lorry-ci/lorry/pkg/protocol"
)

// MockProvisioner is a mock implementation of protocol.Provisioner.
type MockProvisioner struct {
	mock.Mock
}

func (m *MockProvisioner) Provision(ctx context.Context, image string) (protocol.Environment, error) {
	args := m.Called(ctx, image)

	env, _ := args.Get(0).(protocol.Environment)

	return env, args.Error(1)
}

func (m *MockProvisioner) Checkout(ctx context.Context, env protocol.Environment, repo models.RepoRef) error {
	args := m.Called(ctx, env, repo)

	return args.Error(0)
}

func (m *MockProvisioner) Teardown(ctx context.Context, env protocol.Environment) error {
	args := m.Called(ctx, env)

	return args.Error(0)
}

// MockEnvironment is a mock implementation of protocol.Environment.
type MockEnvironment struct {
	mock.Mock
}

func (m *MockEnvironment) ID() string {
	args := m.Called()

	return args.String(0)
}

func (m *MockEnvironment) Image() string {
	args := m.Called()

	return args.String(0)
}

func (m *MockEnvironment) Exec(ctx context.Context, command string) (*protocol.ExecResult, error) {
	args := m.Called(ctx, command)

	result, _ := args.Get(0).(*protocol.ExecResult)

	return result, args.Error(1)
}

// MockInstaller is a mock implementation of protocol.Installer.
type MockInstaller struct {
	mock.Mock
}

func (m *MockInstaller) Install(ctx context.Context, env protocol.Environment, payload models.InstallPayload) (*protocol.ExecResult, error) {
	args := m.Called(ctx, env, payload)

	result, _ := args.Get(0).(*protocol.ExecResult)

	return result, args.Error(1)
}
