// Package events defines the event types emitted over the bus for job and
// step lifecycle notifications. Status events are the runner's only
// externally observable effect besides the final run result.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/lorry-ci/lorry/pkg/models"
)

type EventType string

// Topic carries all lorry lifecycle events.
const Topic = "lorry.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Job lifecycle events.
	JobTriggeredEvent EventType = "job.triggered"
	JobStartedEvent   EventType = "job.started"
	JobFinishedEvent  EventType = "job.finished"
	JobFailedEvent    EventType = "job.failed"

	// Step transition events.
	StepStartedEvent  EventType = "step.started"
	StepFinishedEvent EventType = "step.finished"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	JobID     string         `json:"job_id"`
	RunnerID  string         `json:"runner_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// JobTriggered asks a runner to execute a job. Published by the external
// workflow trigger; the runner carries no knowledge of why it fired.
type JobTriggered struct {
	BaseEvent

	PipelineID  string         `json:"pipeline_id"`
	JobName     string         `json:"job_name"`
	TriggerID   string         `json:"trigger_id"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (j JobTriggered) GetType() EventType {
	return JobTriggeredEvent
}

type JobStarted struct {
	BaseEvent

	RunID   string `json:"run_id"`
	JobName string `json:"job_name"`
	Image   string `json:"image"`
}

func (j JobStarted) GetType() EventType {
	return JobStartedEvent
}

type JobFinished struct {
	BaseEvent

	RunID    string           `json:"run_id"`
	Status   models.RunStatus `json:"status"`
	Duration time.Duration    `json:"duration"`
}

func (j JobFinished) GetType() EventType {
	return JobFinishedEvent
}

// JobFailed signals an infrastructure failure: the run aborted without the
// failure being attributable to any declared step.
type JobFailed struct {
	BaseEvent

	RunID    string        `json:"run_id"`
	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (j JobFailed) GetType() EventType {
	return JobFailedEvent
}

type StepStarted struct {
	BaseEvent

	RunID    string          `json:"run_id"`
	StepName string          `json:"step_name"`
	Kind     models.StepKind `json:"kind"`
	Position int             `json:"position"`
}

func (s StepStarted) GetType() EventType {
	return StepStartedEvent
}

type StepFinished struct {
	BaseEvent

	RunID      string             `json:"run_id"`
	StepName   string             `json:"step_name"`
	Kind       models.StepKind    `json:"kind"`
	Position   int                `json:"position"`
	Outcome    models.StepOutcome `json:"outcome"`
	ExitCode   int                `json:"exit_code"`
	Error      string             `json:"error,omitempty"`
	DurationMs int64              `json:"duration_ms"`
}

func (s StepFinished) GetType() EventType {
	return StepFinishedEvent
}

func NewBaseEvent(eventType EventType, jobID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		JobID:     jobID,
		Metadata:  make(map[string]any),
	}
}
