/*
scheduler.go - Scheduled ledger audit

PURPOSE:
  Periodically recomputes every balance from the ledger and logs any
  product whose stored balance has drifted. The audit never writes; a
  discrepancy is a signal for an operator, not something to auto-fix.

DESIGN:
  - robfig/cron drives the schedule ("@every 1h", "0 3 * * *", ...)
  - Runs skip if the previous run is still going
  - Each run is bounded by RunTimeout

CONFIGURATION:
  - AUDIT_SCHEDULE: cron spec, empty disables the scheduler

USAGE:
  scheduler, err := NewAuditScheduler(handler, "@every 1h", logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerAudit endpoint (manual audit)
  - stock/audit.go: Auditor
*/
package api

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// AuditScheduler runs the ledger audit on a cron schedule.
type AuditScheduler struct {
	Handler    *Handler
	Schedule   string
	RunTimeout time.Duration

	cron   *cron.Cron
	logger *zap.Logger
	runs   atomic.Int64
}

// NewAuditScheduler validates schedule and prepares the cron instance.
func NewAuditScheduler(h *Handler, schedule string, logger *zap.Logger) (*AuditScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditScheduler{
		Handler:    h,
		Schedule:   schedule,
		RunTimeout: 2 * time.Minute,
		logger:     logger,
	}

	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid audit schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins the scheduler.
func (s *AuditScheduler) Start() {
	s.logger.Info("starting audit scheduler", zap.String("schedule", s.Schedule))
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running audit to finish.
func (s *AuditScheduler) Stop() {
	s.logger.Info("stopping audit scheduler")
	<-s.cron.Stop().Done()
}

// RunOnce performs one audit. Errors are logged, never returned.
func (s *AuditScheduler) RunOnce() {
	s.runs.Add(1)
	ctx, cancel := context.WithTimeout(context.Background(), s.RunTimeout)
	defer cancel()

	report, err := s.Handler.runAudit(ctx)
	if err != nil {
		s.logger.Error("scheduled audit failed", zap.Error(err))
		return
	}
	s.logger.Debug("scheduled audit finished",
		zap.Bool("consistent", report.Consistent()),
		zap.Int("discrepancies", len(report.Discrepancies)))
}

// Runs is the number of audits started so far.
func (s *AuditScheduler) Runs() int64 { return s.runs.Load() }
