package runner

import (
	"errors"
	"fmt"
)

// InfrastructureError marks a failure of environment provisioning or
// teardown. It is fatal to the run and not attributable to any declared step.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("infrastructure failure during %s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

// InstallError marks a dependency installation failure. The runner surfaces
// it as the failure of the install step; no subsequent step runs.
type InstallError struct {
	PackageManager string
	Err            error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("dependency installation via %s failed: %v", e.PackageManager, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

// StepFailure marks a declared step whose command or action returned a
// failing status.
type StepFailure struct {
	StepName string
	ExitCode int
}

func (e *StepFailure) Error() string {
	return fmt.Sprintf("step %q failed with exit code %d", e.StepName, e.ExitCode)
}

func IsInfrastructureError(err error) bool {
	var infraErr *InfrastructureError

	return errors.As(err, &infraErr)
}

func IsInstallError(err error) bool {
	var installErr *InstallError

	return errors.As(err, &installErr)
}

func IsStepFailure(err error) bool {
	var stepFailure *StepFailure

	return errors.As(err, &stepFailure)
}
