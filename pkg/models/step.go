package models

// StepKind identifies the unit of work a step performs. The set is closed:
// steps are a tagged variant over checkout, install and run, not an open
// plugin surface.
type StepKind string

const (
	StepKindCheckout StepKind = "checkout"
	StepKindInstall  StepKind = "install"
	StepKindRun      StepKind = "run"
)

// StepOutcome is the lifecycle state of a step within one run. Outcomes only
// move forward: pending -> running -> succeeded|failed. A step downstream of
// a failed step is forced to skipped without ever entering running.
type StepOutcome string

const (
	OutcomePending   StepOutcome = "pending"
	OutcomeRunning   StepOutcome = "running"
	OutcomeSucceeded StepOutcome = "succeeded"
	OutcomeFailed    StepOutcome = "failed"
	OutcomeSkipped   StepOutcome = "skipped"
)

// Terminal reports whether the outcome is final for the run.
func (o StepOutcome) Terminal() bool {
	return o == OutcomeSucceeded || o == OutcomeFailed || o == OutcomeSkipped
}

// CanTransition reports whether the outcome may move to the given state.
func (o StepOutcome) CanTransition(to StepOutcome) bool {
	switch o {
	case OutcomePending:
		return to == OutcomeRunning || to == OutcomeSkipped
	case OutcomeRunning:
		return to == OutcomeSucceeded || to == OutcomeFailed
	default:
		return false
	}
}

type Step struct {
	Name    string          `json:"name"              yaml:"name"              validate:"required"`
	Kind    StepKind        `json:"kind"              yaml:"kind"              validate:"required,oneof=checkout install run"`
	Run     *RunPayload     `json:"run,omitempty"     yaml:"run,omitempty"     validate:"required_if=Kind run"`
	Install *InstallPayload `json:"install,omitempty" yaml:"install,omitempty" validate:"required_if=Kind install"`
}

// RunPayload is the shell command of a run step, executed inside the job's
// environment. The command may reference job variables via templating.
type RunPayload struct {
	Command string `json:"command" yaml:"command" validate:"required"`
}

// InstallPayload declares the dependency installation of a job: which package
// manager resolves the manifest and where the isolated environment lives.
type InstallPayload struct {
	PackageManager string   `json:"package_manager"     yaml:"package_manager"     validate:"required"`
	VenvPath       []string `json:"venv_path,omitempty" yaml:"venv_path,omitempty"`
}
