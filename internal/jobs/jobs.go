// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package jobs defines the maintenance jobs driven by the background
// scheduler: health check and repair, knowledge gathering, memory archival
// and the metrics rollup.
package jobs

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/traylinx/arya/internal/diagnostics"
	"github.com/traylinx/arya/internal/providers"
	"github.com/traylinx/arya/internal/scheduler"
	"github.com/traylinx/arya/internal/store"
)

// Job ids.
const (
	HealthCheckID        = "health_check"
	ContinuousLearningID = "continuous_learning"
	MemoryOptimizationID = "memory_optimization"
	SelfImprovementID    = "self_improvement"
)

// MetricsConfigKey is the system_config key the rollup snapshot is stored under.
const MetricsConfigKey = "self_improvement_metrics"

// DefaultTopics is the knowledge-gathering rotation.
var DefaultTopics = []string{
	"latest AI developments",
	"AI safety updates",
	"machine learning breakthroughs",
}

// Config holds job triggers and thresholds.
type Config struct {
	HealthCheckInterval   time.Duration
	KnowledgeInterval     time.Duration
	ArchivalSchedule      string
	MetricsRollupInterval time.Duration

	Topics        []string
	SearchResults int

	ArchiveBatchSize     int
	ArchiveMaxImportance float64
	ArchiveMinAge        time.Duration

	CriticalErrorWindow    int
	CriticalErrorThreshold int
}

// DefaultConfig returns the default job configuration.
func DefaultConfig() Config {
	return Config{
		HealthCheckInterval:    time.Hour,
		KnowledgeInterval:      6 * time.Hour,
		ArchivalSchedule:       "0 3 * * *",
		MetricsRollupInterval:  12 * time.Hour,
		Topics:                 DefaultTopics,
		SearchResults:          3,
		ArchiveBatchSize:       100,
		ArchiveMaxImportance:   3,
		ArchiveMinAge:          30 * 24 * time.Hour,
		CriticalErrorWindow:    10,
		CriticalErrorThreshold: 3,
	}
}

// Searcher is the web search capability used for knowledge gathering.
type Searcher interface {
	Search(ctx context.Context, query string, max int) ([]providers.SearchResult, error)
}

// Runner owns the job bodies and their collaborators.
type Runner struct {
	diag   *diagnostics.System
	store  store.DocumentStore
	search Searcher
	cfg    Config
	now    func() time.Time

	topics atomic.Pointer[[]string]
}

// NewRunner creates a Runner. Zero config values fall back to the defaults.
func NewRunner(diag *diagnostics.System, st store.DocumentStore, search Searcher, cfg Config) *Runner {
	def := DefaultConfig()
	if cfg.HealthCheckInterval <= 0 {
		cfg.HealthCheckInterval = def.HealthCheckInterval
	}
	if cfg.KnowledgeInterval <= 0 {
		cfg.KnowledgeInterval = def.KnowledgeInterval
	}
	if cfg.ArchivalSchedule == "" {
		cfg.ArchivalSchedule = def.ArchivalSchedule
	}
	if cfg.MetricsRollupInterval <= 0 {
		cfg.MetricsRollupInterval = def.MetricsRollupInterval
	}
	if cfg.SearchResults <= 0 {
		cfg.SearchResults = def.SearchResults
	}
	if cfg.ArchiveBatchSize <= 0 {
		cfg.ArchiveBatchSize = def.ArchiveBatchSize
	}
	if cfg.ArchiveMaxImportance <= 0 {
		cfg.ArchiveMaxImportance = def.ArchiveMaxImportance
	}
	if cfg.ArchiveMinAge <= 0 {
		cfg.ArchiveMinAge = def.ArchiveMinAge
	}
	if cfg.CriticalErrorWindow <= 0 {
		cfg.CriticalErrorWindow = def.CriticalErrorWindow
	}
	if cfg.CriticalErrorThreshold <= 0 {
		cfg.CriticalErrorThreshold = def.CriticalErrorThreshold
	}

	r := &Runner{diag: diag, store: st, search: search, cfg: cfg, now: time.Now}
	r.SetTopics(cfg.Topics)
	return r
}

// SetTopics replaces the knowledge rotation. An empty list restores the default.
func (r *Runner) SetTopics(topics []string) {
	if len(topics) == 0 {
		topics = DefaultTopics
	}
	cp := append([]string(nil), topics...)
	r.topics.Store(&cp)
}

// Topics returns the current knowledge rotation.
func (r *Runner) Topics() []string {
	return append([]string(nil), *r.topics.Load()...)
}

// Jobs returns the fixed job set for the scheduler.
func (r *Runner) Jobs() []scheduler.Job {
	return []scheduler.Job{
		{ID: HealthCheckID, Name: "Autonomous Health Check", Trigger: scheduler.Every(r.cfg.HealthCheckInterval), Run: r.HealthCheck},
		{ID: ContinuousLearningID, Name: "Continuous Learning", Trigger: scheduler.Every(r.cfg.KnowledgeInterval), Run: r.ContinuousLearning},
		{ID: MemoryOptimizationID, Name: "Memory Optimization", Trigger: scheduler.Cron(r.cfg.ArchivalSchedule), Run: r.MemoryOptimization},
		{ID: SelfImprovementID, Name: "Self Improvement Check", Trigger: scheduler.Every(r.cfg.MetricsRollupInterval), Run: r.SelfImprovement},
	}
}
