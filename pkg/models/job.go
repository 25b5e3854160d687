// Package models defines the core domain models for single-job pipeline execution.
package models

import "time"

// RepoRef points the checkout step at the repository under test.
type RepoRef struct {
	URL string `json:"url"           yaml:"url"           validate:"required"`
	Ref string `json:"ref,omitempty" yaml:"ref,omitempty"`
}

// Job is one ordered sequence of steps executed in one provisioned
// environment. A job is immutable once parsed from configuration: the step
// order is fixed and significant.
//
// Checkout and dependency installation may appear as declared steps; when a
// job declares neither, the runner synthesizes them as implicit leading steps
// (checkout always, install only when Install is set).
type Job struct {
	ID        string          `json:"id"                  yaml:"id"`
	Name      string          `json:"name"                yaml:"name"                validate:"required,min=3"`
	Image     string          `json:"image"               yaml:"image"               validate:"required"`
	Repo      RepoRef         `json:"repo"                yaml:"repo"`
	Install   *InstallPayload `json:"install,omitempty"   yaml:"install,omitempty"`
	Steps     []Step          `json:"steps"               yaml:"steps"               validate:"required,min=1,dive"`
	Variables map[string]any  `json:"variables,omitempty" yaml:"variables,omitempty"`
	CreatedAt time.Time       `json:"created_at"          yaml:"-"`
}

// HasStepKind reports whether the job declares at least one step of the kind.
func (j *Job) HasStepKind(kind StepKind) bool {
	for _, step := range j.Steps {
		if step.Kind == kind {
			return true
		}
	}

	return false
}
