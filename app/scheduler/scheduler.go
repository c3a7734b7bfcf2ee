// Package scheduler
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/amirphl/AutoSEM/models"
	"github.com/amirphl/AutoSEM/repository"
	"github.com/amirphl/AutoSEM/utils"
	"gopkg.in/natefinch/lumberjack.v2"
)

// failureCriticalAt is the consecutive failure count at which a job failure
// escalates to JOB_FAILURE_CRITICAL.
const failureCriticalAt = 3

// retryDelays is the in-run backoff schedule: a job invocation is attempted
// up to len+1 times before it counts as a failed run.
var retryDelays = []time.Duration{5 * time.Second, 15 * time.Second, 45 * time.Second}

// JobFunc is one scheduled unit of work.
type JobFunc func(ctx context.Context) error

// OutcomeFunc observes the final result of one scheduled invocation. It runs
// once per invocation, after in-run retries are exhausted, so jobs can keep
// their own per-run failure accounting without counting retried attempts.
type OutcomeFunc func(ctx context.Context, err error)

type job struct {
	name      string
	interval  time.Duration // zero for daily jobs
	daily     bool
	atHour    int
	atMinute  int
	fn        JobFunc
	onOutcome OutcomeFunc
	runOnAdd  bool
}

// AutomationScheduler drives the periodic sync, optimization, and
// housekeeping jobs. Each job runs on its own goroutine so a slow sync never
// delays the optimizer.
type AutomationScheduler struct {
	jobs         []*job
	states       *jobStateTracker
	activityRepo repository.ActivityLogRepository
	logger       *log.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewAutomationScheduler creates the scheduler with a logger that writes to
// both stdout and a rotated file.
func NewAutomationScheduler(activityRepo repository.ActivityLogRepository, logDir string) *AutomationScheduler {
	s := &AutomationScheduler{
		states:       newJobStateTracker(),
		activityRepo: activityRepo,
	}
	s.initLogger(logDir)
	return s
}

func (s *AutomationScheduler) initLogger(logDir string) {
	if logDir == "" {
		logDir = "data"
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		s.logger = log.Default()
		s.logger.Printf("scheduler: failed to create log directory: %v", err)
		return
	}

	rotated := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "scheduler.log"),
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	mw := io.MultiWriter(os.Stdout, rotated)
	s.logger = log.New(mw, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// Logger exposes the scheduler logger so flows share the same output.
func (s *AutomationScheduler) Logger() *log.Logger { return s.logger }

// AddJob registers a fixed-interval job. When runAtStart is true the first
// run happens immediately on Start instead of after one interval. An
// optional OutcomeFunc is called once per scheduled invocation with the
// final result.
func (s *AutomationScheduler) AddJob(name string, interval time.Duration, runAtStart bool, fn JobFunc, onOutcome ...OutcomeFunc) {
	if interval <= 0 {
		interval = time.Hour
	}
	j := &job{name: name, interval: interval, fn: fn, runOnAdd: runAtStart}
	if len(onOutcome) > 0 {
		j.onOutcome = onOutcome[0]
	}
	s.jobs = append(s.jobs, j)
	s.states.register(name)
}

// AddDailyJob registers a job that fires once a day at the given UTC time.
func (s *AutomationScheduler) AddDailyJob(name string, hour, minute int, fn JobFunc) {
	s.jobs = append(s.jobs, &job{name: name, daily: true, atHour: hour, atMinute: minute, fn: fn})
	s.states.register(name)
}

// Start launches every job loop. Calling Start while running is a no-op.
func (s *AutomationScheduler) Start(parent context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.running = true

	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, j)
	}

	s.logger.Printf("started with %d jobs", len(s.jobs))
}

// Stop cancels every job loop and waits for in-flight runs to finish.
func (s *AutomationScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Printf("stopped")
}

// IsRunning reports whether the job loops are live.
func (s *AutomationScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns the current health record of every registered job.
func (s *AutomationScheduler) Status() []JobRunState {
	return s.states.snapshot()
}

func (s *AutomationScheduler) loop(ctx context.Context, j *job) {
	defer s.wg.Done()

	if j.daily {
		s.dailyLoop(ctx, j)
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	if j.runOnAdd {
		s.runJob(ctx, j)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runJob(ctx, j)
		}
	}
}

func (s *AutomationScheduler) dailyLoop(ctx context.Context, j *job) {
	for {
		now := utils.UTCNow()
		next := time.Date(now.Year(), now.Month(), now.Day(), j.atHour, j.atMinute, 0, 0, time.UTC)
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(now)):
			s.runJob(ctx, j)
		}
	}
}

// runJob executes one scheduled invocation with in-run retries, records the
// outcome, and escalates repeated failures.
func (s *AutomationScheduler) runJob(ctx context.Context, j *job) {
	started := utils.UTCNow()
	s.states.markStarted(j.name, started)

	err := s.runWithRetries(ctx, j)

	finished := utils.UTCNow()
	jobDuration.WithLabelValues(j.name).Observe(finished.Sub(started).Seconds())

	failures := s.states.markFinished(j.name, finished, err)
	jobConsecutiveFailures.WithLabelValues(j.name).Set(float64(failures))

	if j.onOutcome != nil {
		j.onOutcome(ctx, err)
	}

	if err == nil {
		jobRunsTotal.WithLabelValues(j.name, "success").Inc()
		s.logger.Printf("job %s completed in %s", j.name, finished.Sub(started))
		return
	}

	jobRunsTotal.WithLabelValues(j.name, "failure").Inc()
	s.logger.Printf("job %s failed (%d consecutive): %v", j.name, failures, err)

	action := models.ActionJobFailure
	description := fmt.Sprintf("scheduled job %s failed: %v", j.name, err)
	if failures == failureCriticalAt {
		action = models.ActionJobFailureCritical
		description = fmt.Sprintf("scheduled job %s failed %d times in a row: %v", j.name, failures, err)
	}

	entry := models.NewActivity(action, description, map[string]any{
		"job":                  j.name,
		"consecutive_failures": failures,
	})
	if saveErr := s.activityRepo.Save(ctx, entry); saveErr != nil {
		s.logger.Printf("failed to record %s for job %s: %v", action, j.name, saveErr)
	}
}

// runWithRetries attempts the job up to len(retryDelays)+1 times inside a
// single scheduled invocation. Unlike the platform retry this retries every
// error: a job is the outermost unit and has nothing above it to decide.
func (s *AutomationScheduler) runWithRetries(ctx context.Context, j *job) error {
	err := s.attempt(ctx, j)
	if err == nil {
		return nil
	}

	for attempt, delay := range retryDelays {
		s.logger.Printf("job %s attempt %d failed, retrying in %s: %v", j.name, attempt+1, delay, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		err = s.attempt(ctx, j)
		if err == nil {
			return nil
		}
	}

	return err
}

// attempt runs one job invocation, converting a panic into an error so a
// broken flow never takes the process down with it.
func (s *AutomationScheduler) attempt(ctx context.Context, j *job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.name, r)
		}
	}()
	return j.fn(ctx)
}
