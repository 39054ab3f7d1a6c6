/*
runner.go - Background execution of due recurring templates

PURPOSE:

	Runs recurring.Scheduler.ExecuteAllDue once when the server starts and,
	when an interval is configured, again on every tick. The HTTP run-due
	endpoint and the CLI go through RunNow so two batches never overlap.

CONFIGURATION:
  - Interval: how often to re-check (scheduler.interval, default 0 = startup only)

USAGE:

	runner := NewRecurringRunner(scheduler, cfg.Scheduler.Interval, logger)
	runner.Start()
	// ... later
	runner.Stop()

SEE ALSO:
  - recurring/scheduler.go: ExecuteAllDue
  - handlers.go: RunDue endpoint
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/pocket-ledger/recurring"
)

// RecurringRunner drives the recurring scheduler outside of request handling.
type RecurringRunner struct {
	Scheduler *recurring.Scheduler
	Interval  time.Duration
	Logger    *slog.Logger

	ticker  *time.Ticker
	stop    chan struct{}
	started bool
	wg      sync.WaitGroup
	mu      sync.Mutex

	runMu   sync.Mutex
	lastRun time.Time
	last    []recurring.ExecutionResult
}

// NewRecurringRunner creates a runner. A zero interval disables the ticker.
func NewRecurringRunner(s *recurring.Scheduler, interval time.Duration, logger *slog.Logger) *RecurringRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecurringRunner{
		Scheduler: s,
		Interval:  interval,
		Logger:    logger.With("component", "recurring-runner"),
	}
}

// Start runs due templates immediately in the background, then on every
// tick when an interval is set.
func (rr *RecurringRunner) Start() {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	if rr.started {
		return
	}
	rr.started = true
	rr.stop = make(chan struct{})
	if rr.Interval > 0 {
		rr.ticker = time.NewTicker(rr.Interval)
	}
	rr.wg.Add(1)
	go rr.run()

	rr.Logger.Info("runner started", "interval", rr.Interval)
}

// Stop halts the ticker and waits for an in-flight batch to finish.
func (rr *RecurringRunner) Stop() {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	if !rr.started {
		return
	}
	if rr.ticker != nil {
		rr.ticker.Stop()
	}
	close(rr.stop)
	rr.wg.Wait()
	rr.started = false
	rr.Logger.Info("runner stopped")
}

func (rr *RecurringRunner) run() {
	defer rr.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-rr.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	rr.runLogged(ctx)
	if rr.ticker == nil {
		return
	}
	for {
		select {
		case <-rr.ticker.C:
			rr.runLogged(ctx)
		case <-rr.stop:
			return
		}
	}
}

func (rr *RecurringRunner) runLogged(ctx context.Context) {
	if _, err := rr.RunNow(ctx); err != nil && ctx.Err() == nil {
		rr.Logger.Error("recurring batch failed", "error", err)
	}
}

// RunNow executes all due templates and returns their results.
func (rr *RecurringRunner) RunNow(ctx context.Context) ([]recurring.ExecutionResult, error) {
	rr.runMu.Lock()
	defer rr.runMu.Unlock()

	results, err := rr.Scheduler.ExecuteAllDue(ctx)
	if err != nil {
		return nil, err
	}
	rr.lastRun = rr.Scheduler.Now()
	rr.last = results
	return results, nil
}

// LastRun returns when the last batch finished and its results.
func (rr *RecurringRunner) LastRun() (time.Time, []recurring.ExecutionResult) {
	rr.runMu.Lock()
	defer rr.runMu.Unlock()
	return rr.lastRun, rr.last
}

// NextRunTime returns when the next scheduled check will occur, or the zero
// time when the runner only fires at startup.
func (rr *RecurringRunner) NextRunTime() time.Time {
	last, _ := rr.LastRun()
	if rr.Interval <= 0 || last.IsZero() {
		return time.Time{}
	}
	return last.Add(rr.Interval)
}
