// Package schedule fires job triggers on a cron schedule.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Callback receives the trigger data each time the schedule fires.
type Callback func(ctx context.Context, data map[string]any) error

type Trigger struct {
	ID         string
	CronExpr   string
	PipelineID string
	JobName    string
	cron       *cron.Cron
	callback   Callback
	logger     *slog.Logger
}

func NewTrigger(id, cronExpr, pipelineID, jobName string, logger *slog.Logger) (*Trigger, error) {
	trigger := &Trigger{
		ID:         id,
		CronExpr:   cronExpr,
		PipelineID: pipelineID,
		JobName:    jobName,
		logger: logger.With(
			"module", "schedule_trigger",
			"id", id,
			"cron", cronExpr,
			"pipeline_id", pipelineID,
			"job", jobName,
		),
	}

	if err := trigger.Validate(); err != nil {
		return nil, err
	}

	return trigger, nil
}

func (t *Trigger) Validate() error {
	if t.ID == "" {
		return errors.New("schedule trigger ID is required")
	}

	if t.CronExpr == "" {
		return errors.New("schedule trigger cron expression is required")
	}

	if _, err := cron.ParseStandard(t.CronExpr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	if t.JobName == "" {
		return errors.New("schedule trigger job name is required")
	}

	return nil
}

func (t *Trigger) Start(ctx context.Context, callback Callback) error {
	t.logger.Info("Starting schedule trigger")
	t.callback = callback

	t.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	id, err := t.cron.AddFunc(t.CronExpr, t.run)
	if err != nil {
		return fmt.Errorf("failed to add cron job for trigger %s: %w", t.ID, err)
	}

	t.logger.Info("Added cron job for trigger", "entry_id", id)
	t.cron.Start()

	return nil
}

func (t *Trigger) run() {
	t.logger.Info("Cron schedule fired")

	triggerData := map[string]any{
		"trigger_id":  t.ID,
		"pipeline_id": t.PipelineID,
		"job":         t.JobName,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}

	go func() {
		if err := t.callback(context.Background(), triggerData); err != nil {
			t.logger.Error("Error dispatching triggered job", "error", err)
		}
	}()
}

func (t *Trigger) Stop(ctx context.Context) error {
	t.logger.Info("Stopping schedule trigger")

	if t.cron != nil {
		t.cron.Stop()
	}

	return nil
}
