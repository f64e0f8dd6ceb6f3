package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/paycrow/paycrow-backend-go/internal/domain/upkeep"
)

// UpkeepJobs wires the payment sweep into the scheduler. The in-process
// sweep acts as the fallback keeper: it runs under the configured operator
// account and competes with external trigger callers on equal terms.
type UpkeepJobs struct {
	upkeepService upkeep.UpkeepService
	operatorID    string
}

// NewUpkeepJobs creates upkeep cron jobs
func NewUpkeepJobs(upkeepService upkeep.UpkeepService, operatorID string) *UpkeepJobs {
	return &UpkeepJobs{
		upkeepService: upkeepService,
		operatorID:    operatorID,
	}
}

// RegisterJobs registers the payment sweep job
func (j *UpkeepJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	scheduler.AddJob(
		"trigger_due_payments",
		interval,
		j.TriggerDuePayments,
	)
}

// TriggerDuePayments sweeps all due offers once.
func (j *UpkeepJobs) TriggerDuePayments(ctx context.Context) error {
	due, err := j.upkeepService.CheckDue(ctx)
	if err != nil {
		return err
	}
	if !due {
		return nil
	}

	report, err := j.upkeepService.TriggerDue(ctx, j.operatorID)
	if err != nil {
		return err
	}

	slog.Info("upkeep sweep finished",
		"paid", report.Paid,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return nil
}
