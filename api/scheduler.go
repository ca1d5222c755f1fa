/*
scheduler.go - Monthly close scheduler

PURPOSE:
  On a cron schedule (by default the first day of each month, early
  morning), recomputes the previous month institution-wide and records a
  billing-run row for audit. The computation itself stays pure and
  idempotent - a close run is just a recorded invocation of the same
  engine the API exposes, so re-running a month is always safe.

DESIGN:
  - robfig/cron drives the schedule; RunNow exists for admin/testing
  - a completed run for a period is not repeated automatically
  - failures are recorded on the run row and logged, never swallowed

SEE ALSO:
  - store/sqlite: billing_runs table
  - billing/aggregate.go: the computation being recorded
*/
package api

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/comedor/billing-engine/billing"
	"github.com/comedor/billing-engine/store/sqlite"
)

// DefaultCloseSchedule runs at 04:00 on the 1st of every month.
const DefaultCloseSchedule = "0 4 1 * *"

// CloseScheduler records monthly close runs of the billing engine.
type CloseScheduler struct {
	Store    *sqlite.Store
	Engine   *billing.Engine
	Log      *zap.Logger
	Schedule string

	cron *cron.Cron
}

// NewCloseScheduler creates a scheduler with the given cron schedule
// (empty means DefaultCloseSchedule).
func NewCloseScheduler(store *sqlite.Store, engine *billing.Engine, log *zap.Logger, schedule string) *CloseScheduler {
	if schedule == "" {
		schedule = DefaultCloseSchedule
	}
	return &CloseScheduler{Store: store, Engine: engine, Log: log, Schedule: schedule}
}

// Start begins the scheduler. Returns an error for a malformed schedule.
func (cs *CloseScheduler) Start() error {
	cs.cron = cron.New()
	_, err := cs.cron.AddFunc(cs.Schedule, func() {
		cs.closePreviousMonth(context.Background())
	})
	if err != nil {
		return err
	}
	cs.cron.Start()
	cs.Log.Info("close scheduler started", zap.String("schedule", cs.Schedule))
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (cs *CloseScheduler) Stop() {
	if cs.cron != nil {
		<-cs.cron.Stop().Done()
		cs.Log.Info("close scheduler stopped")
	}
}

// RunNow triggers an immediate close of the previous month (admin/testing).
func (cs *CloseScheduler) RunNow(ctx context.Context) {
	cs.closePreviousMonth(ctx)
}

func (cs *CloseScheduler) closePreviousMonth(ctx context.Context) {
	now := time.Now().UTC()
	period := billing.NewMonth(now.Year(), now.Month()).Previous()
	cs.CloseMonth(ctx, period)
}

// CloseMonth computes one month and records the run. An already-completed
// period is skipped.
func (cs *CloseScheduler) CloseMonth(ctx context.Context, period billing.Month) {
	done, err := cs.Store.IsRunComplete(ctx, period.Year, int(period.M))
	if err != nil {
		cs.Log.Error("close run status check failed", zap.Error(err))
		return
	}
	if done {
		cs.Log.Info("close run already completed", zap.String("period", period.String()))
		return
	}

	started := time.Now().UTC()
	run := sqlite.BillingRun{
		ID:        uuid.NewString(),
		Year:      period.Year,
		Month:     int(period.M),
		Status:    "running",
		StartedAt: started,
	}
	if err := cs.Store.SaveBillingRun(ctx, run); err != nil {
		cs.Log.Error("close run record failed", zap.Error(err))
		return
	}

	result, err := cs.Engine.ComputeMonth(ctx, period)
	completed := time.Now().UTC()
	run.CompletedAt = &completed

	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
		if saveErr := cs.Store.SaveBillingRun(ctx, run); saveErr != nil {
			cs.Log.Error("close run record failed", zap.Error(saveErr))
		}
		cs.Log.Error("close run failed",
			zap.String("period", period.String()), zap.Error(err))
		return
	}

	persons := 0
	for _, h := range result.Households {
		persons += len(h.Persons)
	}
	run.Status = "completed"
	run.Total = result.Total.StringFixed(2)
	run.Households = len(result.Households)
	run.Persons = persons
	if err := cs.Store.SaveBillingRun(ctx, run); err != nil {
		cs.Log.Error("close run record failed", zap.Error(err))
		return
	}

	cs.Log.Info("close run completed",
		zap.String("period", period.String()),
		zap.String("total", run.Total),
		zap.Int("households", run.Households),
		zap.Int("persons", run.Persons))
}
