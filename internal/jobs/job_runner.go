package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"equiprent-backend/internal/domain"
	"equiprent-backend/internal/logger"
	"equiprent-backend/internal/repository"
	"equiprent-backend/internal/service"
)

// Repositories holds the store dependencies needed by jobs
type Repositories struct {
	Bookings repository.BookingRepository
	Sales    repository.SaleRepository
	Users    repository.UserRepository
}

// Options tunes the lifecycle sweep
type Options struct {
	AdminEmail  string
	Workers     int
	CallTimeout time.Duration
	LockTTL     time.Duration
}

// SweepObserver is told about every finished sweep
type SweepObserver func(summary *domain.SweepSummary, err error)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	repos    Repositories
	notifier service.NotificationService
	lock     DistributedLock
	opts     Options
	now      func() time.Time

	sweepMu sync.Mutex

	mu        sync.RWMutex
	last      *domain.SweepSummary
	lastErr   error
	observers []SweepObserver
}

// NewJobRunner creates a new job runner with all dependencies. lock may be nil
// when only one process runs sweeps.
func NewJobRunner(repos Repositories, notifier service.NotificationService, lock DistributedLock, opts Options) *JobRunner {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 10 * time.Second
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 15 * time.Minute
	}
	return &JobRunner{
		repos:    repos,
		notifier: notifier,
		lock:     lock,
		opts:     opts,
		now:      time.Now,
	}
}

// OnSweep registers an observer for finished sweeps
func (jr *JobRunner) OnSweep(fn SweepObserver) {
	jr.mu.Lock()
	defer jr.mu.Unlock()
	jr.observers = append(jr.observers, fn)
}

// LastSweep returns the most recent sweep summary, or nil before the first one
func (jr *JobRunner) LastSweep() (*domain.SweepSummary, error) {
	jr.mu.RLock()
	defer jr.mu.RUnlock()
	return jr.last, jr.lastErr
}

func (jr *JobRunner) record(summary *domain.SweepSummary, err error) {
	jr.mu.Lock()
	jr.last, jr.lastErr = summary, err
	observers := append([]SweepObserver(nil), jr.observers...)
	jr.mu.Unlock()

	for _, fn := range observers {
		fn(summary, err)
	}
}

// callCtx bounds a single external call
func (jr *JobRunner) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, jr.opts.CallTimeout)
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunOnce runs the named job synchronously (for manual execution). It returns
// an error when the job is unknown or could not run, including when another
// sweep holds the lock.
func (jr *JobRunner) RunOnce(ctx context.Context, jobName string) error {
	switch jobName {
	case "lifecycle-sweep", "all":
	default:
		return fmt.Errorf("unknown job %q", jobName)
	}

	var (
		summary *domain.SweepSummary
		err     error
	)
	jr.runWithRecovery("LifecycleSweep", func() {
		summary, err = jr.Sweep(ctx, jr.now())
	})
	if err != nil {
		return err
	}
	if summary == nil {
		return fmt.Errorf("lifecycle sweep did not finish")
	}
	logSweep(summary)
	return nil
}
