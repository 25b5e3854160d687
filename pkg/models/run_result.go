package models

import (
	"fmt"
	"time"
)

// RunStatus is the aggregate outcome of one job execution. The run is binary
// pass/fail at the top level; per-step detail lives in the step results.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// StepResult records the terminal state of one step within a run.
type StepResult struct {
	Name       string      `json:"name"`
	Kind       StepKind    `json:"kind"`
	Outcome    StepOutcome `json:"outcome"`
	ExitCode   int         `json:"exit_code"`
	Output     string      `json:"output,omitempty"`
	Error      string      `json:"error,omitempty"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

// Duration returns how long the step ran, zero for steps that never started.
func (s *StepResult) Duration() time.Duration {
	if s.StartedAt == nil || s.FinishedAt == nil {
		return 0
	}

	return s.FinishedAt.Sub(*s.StartedAt)
}

// RunResult is the finalized, immutable record of a job execution: one entry
// per effective step in declared order plus the aggregate status.
type RunResult struct {
	ID           string       `json:"id"`
	JobID        string       `json:"job_id"`
	JobName      string       `json:"job_name"`
	Image        string       `json:"image"`
	Status       RunStatus    `json:"status"`
	InfraFailure bool         `json:"infra_failure"`
	Error        string       `json:"error,omitempty"`
	Steps        []StepResult `json:"steps"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
}

// NewRunResult creates an in-flight result for the job with the given run ID.
func NewRunResult(runID string, job *Job) *RunResult {
	return &RunResult{
		ID:        runID,
		JobID:     job.ID,
		JobName:   job.Name,
		Image:     job.Image,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
}

// Finalize resolves the aggregate status: failed iff any step in the executed
// prefix failed or provisioning failed, succeeded otherwise. The result must
// not be mutated afterwards.
func (r *RunResult) Finalize() {
	now := time.Now().UTC()
	r.FinishedAt = &now

	r.Status = RunStatusSucceeded
	if r.InfraFailure {
		r.Status = RunStatusFailed

		return
	}

	for _, step := range r.Steps {
		if step.Outcome == OutcomeFailed {
			r.Status = RunStatusFailed

			return
		}
	}
}

// Succeeded reports whether every recorded step succeeded and no
// infrastructure failure occurred.
func (r *RunResult) Succeeded() bool {
	return r.Status == RunStatusSucceeded
}

// StepByName returns the result entry for the named step.
func (r *RunResult) StepByName(name string) (*StepResult, error) {
	for i := range r.Steps {
		if r.Steps[i].Name == name {
			return &r.Steps[i], nil
		}
	}

	return nil, fmt.Errorf("step %q not found in run %s", name, r.ID)
}
