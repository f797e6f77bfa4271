// Package scheduler wires up the cron job that periodically regenerates
// every stored industry insight.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"jobmate/coach-service/internal/insight"
	"jobmate/coach-service/internal/logger"
)

// Refresher is the part of insight.Service the scheduler drives.
type Refresher interface {
	RefreshAll(ctx context.Context) (insight.RefreshReport, error)
	RefreshDue(ctx context.Context) (insight.RefreshReport, error)
}

// Scheduler wraps robfig/cron and manages the refresh loop.
type Scheduler struct {
	cron       *cron.Cron
	refresher  Refresher
	log        *logger.Logger
	spec       string // cron spec, e.g. "0 0 * * 0"
	runOnStart bool
}

// New creates a Scheduler that refreshes all insights on spec. When
// runOnStart is set, rows already past their nextUpdate are refreshed right
// after Start.
func New(refresher Refresher, spec string, runOnStart bool, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("component", "scheduler")
	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		refresher:  refresher,
		log:        log,
		spec:       spec,
		runOnStart: runOnStart,
	}
}

// Start registers the job and starts the scheduler. ctx bounds every run.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.RunAll(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.log.Info("cron started", "spec", s.spec)

	if s.runOnStart {
		go s.RunDue(ctx)
	}
	return nil
}

// Stop stops scheduling and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("cron stopped")
}

// RunAll refreshes every stored industry.
func (s *Scheduler) RunAll(ctx context.Context) {
	s.run(ctx, "all", s.refresher.RefreshAll)
}

// RunDue refreshes only the industries whose nextUpdate has passed.
func (s *Scheduler) RunDue(ctx context.Context) {
	s.run(ctx, "due", s.refresher.RefreshDue)
}

func (s *Scheduler) run(ctx context.Context, scope string, fn func(context.Context) (insight.RefreshReport, error)) {
	s.log.Info("refresh cycle started", "scope", scope)
	report, err := fn(ctx)
	if err != nil {
		s.log.Error("refresh cycle aborted", "scope", scope, "err", err, "refreshed", report.Refreshed)
		return
	}
	if report.Total == 0 {
		s.log.Info("no insights to refresh", "scope", scope)
		return
	}
	s.log.Info("refresh cycle complete", "scope", scope,
		"total", report.Total, "refreshed", report.Refreshed, "failed", report.Failed)
}

// cronLogger adapts the service logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
