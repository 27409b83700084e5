// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"context"
	"errors"
	"time"
)

// ErrUnknownJob is returned by RunNow for an id that is not registered.
var ErrUnknownJob = errors.New("scheduler: unknown job")

// Summary is the outcome payload a job reports for the run history.
type Summary map[string]any

// JobFunc is a job body. Returned errors and panics are captured by the
// scheduler; they never propagate.
type JobFunc func(ctx context.Context) (Summary, error)

// Job is a fixed maintenance job definition.
type Job struct {
	ID      string
	Name    string
	Trigger Trigger
	Run     JobFunc
}

// Outcome of a job run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// TaskRunRecord is appended to the run history after every invocation.
type TaskRunRecord struct {
	JobID     string        `json:"job_id"`
	Task      string        `json:"task"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration_ns"`
	Outcome   Outcome       `json:"outcome"`
	Summary   Summary       `json:"summary,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// JobStatus describes a registered job.
type JobStatus struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Trigger string     `json:"trigger"`
	NextRun *time.Time `json:"next_run"`
}

// Status is the scheduler snapshot returned to callers.
type Status struct {
	IsRunning   bool            `json:"is_running"`
	ActiveJobs  int             `json:"active_jobs"`
	Jobs        []JobStatus     `json:"jobs"`
	RecentTasks []TaskRunRecord `json:"recent_tasks"`
}

// Observer receives scheduler events. Implementations must not block.
type Observer interface {
	JobCompleted(jobID string, outcome Outcome, elapsed time.Duration)
	SchedulerStateChanged(running bool)
}
