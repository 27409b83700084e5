// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package scheduler runs the fixed set of maintenance jobs on their triggers.
// It is a two-state machine (stopped, running) over a cron engine; every run
// is wrapped so failures are logged and recorded instead of propagated.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/traylinx/arya/internal/diagnostics"
	"github.com/traylinx/arya/internal/ringbuf"
)

// ErrorLogger receives job failures.
type ErrorLogger interface {
	LogError(kind, message, trace string) diagnostics.ErrorRecord
}

// Config tunes the scheduler.
type Config struct {
	// Location is the time zone for cron triggers. Defaults to time.Local.
	Location *time.Location
	// HistoryCapacity bounds the run history.
	HistoryCapacity int
	// StatusHistory is how many recent records Status returns.
	StatusHistory int
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		Location:        time.Local,
		HistoryCapacity: 100,
		StatusHistory:   10,
	}
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithObserver registers an observer for run and state events.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observer = o }
}

// Scheduler dispatches maintenance jobs. The job set is fixed at construction.
type Scheduler struct {
	cfg      Config
	jobs     []Job
	byID     map[string]Job
	errors   ErrorLogger
	observer Observer
	history  *ringbuf.Buffer[TaskRunRecord]

	inflight sync.WaitGroup

	mu sync.Mutex
	// runCtx is the parent of every scheduled run. Stop leaves it alone so
	// in-flight runs finish; Shutdown cancels it once the grace period ends
	// and the next Start replaces it.
	runCtx    context.Context
	runCancel context.CancelFunc
	cron    *cron.Cron
	entries map[string]cron.EntryID
	running bool
}

// New validates the job definitions and returns a stopped scheduler.
func New(cfg Config, errs ErrorLogger, jobs []Job, opts ...Option) (*Scheduler, error) {
	def := DefaultConfig()
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = def.HistoryCapacity
	}
	if cfg.StatusHistory <= 0 {
		cfg.StatusHistory = def.StatusHistory
	}

	byID := make(map[string]Job, len(jobs))
	for _, j := range jobs {
		if j.ID == "" || j.Run == nil {
			return nil, fmt.Errorf("scheduler: job %q is missing an id or body", j.Name)
		}
		if _, dup := byID[j.ID]; dup {
			return nil, fmt.Errorf("scheduler: duplicate job id %q", j.ID)
		}
		if _, err := j.Trigger.schedule(); err != nil {
			return nil, fmt.Errorf("scheduler: job %s: %w", j.ID, err)
		}
		byID[j.ID] = j
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cfg:       cfg,
		jobs:      append([]Job(nil), jobs...),
		byID:      byID,
		errors:    errs,
		history:   ringbuf.New[TaskRunRecord](cfg.HistoryCapacity),
		runCtx:    ctx,
		runCancel: cancel,
		entries:   make(map[string]cron.EntryID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start registers every job and transitions to running. Calling Start while
// running is a no-op that logs a warning and returns false.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		log.Warn("background scheduler already running")
		return false
	}

	if s.runCtx.Err() != nil {
		s.runCtx, s.runCancel = context.WithCancel(context.Background())
	}

	cronLogger := cron.PrintfLogger(log.StandardLogger())
	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLocation(s.cfg.Location),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	s.entries = make(map[string]cron.EntryID, len(s.jobs))
	for _, j := range s.jobs {
		if _, err := s.schedule(j); err != nil {
			// triggers were validated in New
			log.Errorf("failed to schedule %s: %v", j.ID, err)
		}
	}
	s.cron.Start()
	s.running = true

	log.Infof("background scheduler started with %d jobs", len(s.entries))
	if s.observer != nil {
		s.observer.SchedulerStateChanged(true)
	}
	return true
}

// Stop cancels all future triggers and transitions to stopped. In-flight runs
// are allowed to finish. Calling Stop while stopped is a no-op returning false.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return false
	}
	for id := range s.entries {
		s.cancel(id)
	}
	// cron.Stop only prevents new runs; its context reports when running ones end.
	s.cron.Stop()
	s.running = false

	log.Info("background scheduler stopped")
	if s.observer != nil {
		s.observer.SchedulerStateChanged(false)
	}
	return true
}

// schedule registers one job with the cron engine. Caller holds s.mu.
func (s *Scheduler) schedule(j Job) (cron.EntryID, error) {
	sched, err := j.Trigger.schedule()
	if err != nil {
		return 0, err
	}
	job, runCtx := j, s.runCtx
	id := s.cron.Schedule(sched, cron.FuncJob(func() {
		s.execute(runCtx, job)
	}))
	s.entries[j.ID] = id
	return id, nil
}

// cancel removes one job's future triggers. Caller holds s.mu.
func (s *Scheduler) cancel(jobID string) {
	if id, ok := s.entries[jobID]; ok {
		s.cron.Remove(id)
		delete(s.entries, jobID)
	}
}

// IsRunning reports the current state.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Jobs returns the registered job definitions.
func (s *Scheduler) Jobs() []Job {
	return append([]Job(nil), s.jobs...)
}

// Status returns the current state, scheduled jobs and recent runs.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		IsRunning:   s.running,
		Jobs:        []JobStatus{},
		RecentTasks: s.history.Last(s.cfg.StatusHistory),
	}
	if !s.running {
		return st
	}

	now := time.Now().In(s.cfg.Location)
	for _, j := range s.jobs {
		id, ok := s.entries[j.ID]
		if !ok {
			continue
		}
		entry := s.cron.Entry(id)
		if !entry.Valid() {
			continue
		}
		next := entry.Next
		if next.IsZero() && entry.Schedule != nil {
			next = entry.Schedule.Next(now)
		}
		js := JobStatus{ID: j.ID, Name: j.Name, Trigger: j.Trigger.String()}
		if !next.IsZero() {
			js.NextRun = &next
		}
		st.Jobs = append(st.Jobs, js)
	}
	st.ActiveJobs = len(st.Jobs)
	return st
}

// RecentRuns returns up to n run records, most recent last.
func (s *Scheduler) RecentRuns(n int) []TaskRunRecord {
	return s.history.Last(n)
}

// RunNow executes a registered job immediately through the same wrapper as
// scheduled runs, regardless of the scheduler state.
func (s *Scheduler) RunNow(ctx context.Context, jobID string) (TaskRunRecord, error) {
	j, ok := s.byID[jobID]
	if !ok {
		return TaskRunRecord{}, fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	return s.execute(ctx, j), nil
}

// Shutdown stops the scheduler and waits for in-flight runs until ctx is
// done, after which their context is cancelled. A later Start schedules runs
// under a fresh context.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.Stop()
	s.mu.Lock()
	cancelRuns := s.runCancel
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		cancelRuns()
		return nil
	case <-ctx.Done():
		cancelRuns()
		return fmt.Errorf("scheduler: in-flight jobs still running: %w", ctx.Err())
	}
}

// execute runs a job body, capturing errors and panics, and always appends
// a TaskRunRecord.
func (s *Scheduler) execute(ctx context.Context, j Job) (rec TaskRunRecord) {
	s.inflight.Add(1)
	defer s.inflight.Done()

	start := time.Now()
	rec = TaskRunRecord{JobID: j.ID, Task: j.Name, Timestamp: start.UTC()}

	defer func() {
		if r := recover(); r != nil {
			rec.Outcome = OutcomeFailure
			rec.Error = fmt.Sprintf("panic: %v", r)
			s.logFailure(j, rec.Error, string(debug.Stack()))
		}
		rec.Duration = time.Since(start)
		s.history.Push(rec)
		if s.observer != nil {
			s.observer.JobCompleted(j.ID, rec.Outcome, rec.Duration)
		}
		log.WithFields(log.Fields{
			"job":      j.ID,
			"outcome":  rec.Outcome,
			"duration": rec.Duration.Round(time.Millisecond),
		}).Info("background task finished")
	}()

	log.WithField("job", j.ID).Debug("background task started")
	summary, err := j.Run(ctx)
	rec.Summary = summary
	if err != nil {
		rec.Outcome = OutcomeFailure
		rec.Error = err.Error()
		s.logFailure(j, rec.Error, "")
		return rec
	}
	rec.Outcome = OutcomeSuccess
	return rec
}

func (s *Scheduler) logFailure(j Job, message, trace string) {
	if s.errors == nil {
		log.WithField("job", j.ID).Error(message)
		return
	}
	s.errors.LogError(fmt.Sprintf("%s Error", j.Name), message, trace)
}
