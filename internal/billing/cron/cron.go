// Package cron triggers billing cycles on a fixed cadence. The trigger
// carries no state between invocations; everything lives in storage.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mhollis/keyturn/internal/billing/cycle"
)

type Trigger struct {
	cron     *cron.Cron
	runner   *cycle.Runner
	schedule string
	timeout  time.Duration
	afterRun func(*cycle.Report)
	logger   *slog.Logger
}

// NewTrigger wires the runner to a cron schedule (standard 5-field spec,
// e.g. "0 6 * * *" for daily at 06:00). Each invocation gets its own
// timeout; leases not reached before it fires are reported as not
// attempted, not failed. afterRun, if non-nil, receives every completed
// report.
func NewTrigger(runner *cycle.Runner, schedule string, timeout time.Duration, afterRun func(*cycle.Report), logger *slog.Logger) *Trigger {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	return &Trigger{
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger))),
		runner:   runner,
		schedule: schedule,
		timeout:  timeout,
		afterRun: afterRun,
		logger:   logger,
	}
}

// Start registers the job and starts the scheduler.
func (t *Trigger) Start() error {
	if _, err := t.cron.AddFunc(t.schedule, t.fire); err != nil {
		return err
	}
	t.cron.Start()
	t.logger.Info("billing cycle scheduled", "schedule", t.schedule)
	return nil
}

// Stop stops the scheduler and returns the context that completes when
// any in-flight cycle finishes.
func (t *Trigger) Stop() context.Context {
	return t.cron.Stop()
}

func (t *Trigger) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	report, err := t.runner.Run(ctx, time.Now().UTC())
	if err != nil {
		t.logger.Error("billing cycle failed", "error", err)
		return
	}
	if rerr := report.Err(); rerr != nil {
		t.logger.Warn("billing cycle completed with lease errors", "error", rerr)
	}
	if t.afterRun != nil {
		t.afterRun(report)
	}
}
