package models

import "time"

// Pipeline is the sole persisted configuration artifact: a declarative
// document naming jobs (environment image plus ordered steps) and workflows
// that reference them. Parsed once; immutable afterwards.
type Pipeline struct {
	ID        string               `json:"id"                  yaml:"id"`
	Name      string               `json:"name"                yaml:"name"      validate:"required,min=3"`
	Jobs      map[string]*Job      `json:"jobs"                yaml:"jobs"      validate:"required,min=1,dive"`
	Workflows map[string]*Workflow `json:"workflows,omitempty" yaml:"workflows" validate:"dive"`
	CreatedAt time.Time            `json:"created_at"          yaml:"-"`
	UpdatedAt time.Time            `json:"updated_at"          yaml:"-"`
}

// Workflow maps a workflow name to the jobs it invokes. Triggering is owned
// by an external collaborator; the document only records the mapping.
type Workflow struct {
	Jobs []string `json:"jobs" yaml:"jobs" validate:"required,min=1"`
}

// JobByName resolves a job reference from the document.
func (p *Pipeline) JobByName(name string) (*Job, bool) {
	job, ok := p.Jobs[name]

	return job, ok
}
