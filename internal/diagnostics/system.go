// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package diagnostics

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// Config tunes the diagnostics context.
type Config struct {
	// ErrorLogCapacity bounds the error log.
	ErrorLogCapacity int
	// ProbeTimeout bounds each individual component check.
	ProbeTimeout time.Duration
	// RecurringWindow is how many recent errors the recurring-error scan inspects.
	RecurringWindow int
	// RecurringThreshold is the count a single kind must exceed within the window.
	RecurringThreshold int
}

// DefaultConfig returns the default diagnostics configuration.
func DefaultConfig() Config {
	return Config{
		ErrorLogCapacity:   DefaultErrorLogCapacity,
		ProbeTimeout:       15 * time.Second,
		RecurringWindow:    10,
		RecurringThreshold: 5,
	}
}

func (c *Config) sanitize() {
	def := DefaultConfig()
	if c.ErrorLogCapacity <= 0 {
		c.ErrorLogCapacity = def.ErrorLogCapacity
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = def.ProbeTimeout
	}
	if c.RecurringWindow <= 0 {
		c.RecurringWindow = def.RecurringWindow
	}
	if c.RecurringThreshold <= 0 {
		c.RecurringThreshold = def.RecurringThreshold
	}
}

// Checkers binds the probe to the monitored dependencies.
type Checkers struct {
	Store Checker
	LLM   Checker
	Image Checker
}

func (c Checkers) forComponent(comp Component) Checker {
	switch comp {
	case ComponentDatabase:
		return c.Store
	case ComponentLLM:
		return c.LLM
	case ComponentImage:
		return c.Image
	}
	return nil
}

// Option customises a System.
type Option func(*System)

// WithObserver registers an observer for error and probe events.
func WithObserver(o Observer) Option {
	return func(s *System) { s.observer = o }
}

// WithClock overrides the time source; used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *System) { s.now = now }
}

// System is the process-wide diagnostics context. It owns the error log,
// component health, performance counters and the health probe. Construct it
// once at start-up and pass it to request handlers and jobs.
type System struct {
	cfg      Config
	checkers Checkers
	errors   *ErrorLog
	observer Observer
	now      func() time.Time

	mu              sync.RWMutex
	components      map[Component]ComponentStatus
	lastHealthCheck time.Time
	probed          bool

	uptimeStart    time.Time
	totalRequests  atomic.Int64
	failedRequests atomic.Int64

	// probeMu serialises probe runs so the component map is written by one
	// probe at a time; it is never held by request-side readers.
	probeMu sync.Mutex
}

// NewSystem creates the diagnostics context. All components start unknown.
func NewSystem(cfg Config, checkers Checkers, opts ...Option) *System {
	cfg.sanitize()
	s := &System{
		cfg:        cfg,
		checkers:   checkers,
		errors:     NewErrorLog(cfg.ErrorLogCapacity),
		now:        time.Now,
		components: make(map[Component]ComponentStatus, len(Components)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.errors.now = s.now
	s.errors.observer = s.observer
	s.uptimeStart = s.now()
	for _, c := range Components {
		s.components[c] = StatusUnknown
	}
	return s
}

// ErrorLog exposes the underlying error log.
func (s *System) ErrorLog() *ErrorLog { return s.errors }

// LogError appends a failure to the error log.
func (s *System) LogError(kind, message, trace string) ErrorRecord {
	return s.errors.Append(kind, message, trace)
}

// RecentErrors returns up to n recent error records, most recent last.
func (s *System) RecentErrors(n int) []ErrorRecord {
	return s.errors.Recent(n)
}

// AttemptRepair consults the repair advisor for an error kind.
func (s *System) AttemptRepair(kind string) RepairOutcome {
	out := AttemptRepair(kind)
	log.WithFields(log.Fields{
		"kind":      kind,
		"actions":   out.Actions,
		"succeeded": out.Succeeded,
	}).Info("self-repair attempted")
	return out
}

// RecordRequest updates the request counters. Called by the request boundary.
func (s *System) RecordRequest(failed bool) {
	s.totalRequests.Add(1)
	if failed {
		s.failedRequests.Add(1)
	}
}

// Counters returns a snapshot of the performance counters.
func (s *System) Counters() PerformanceCounters {
	s.mu.RLock()
	last := s.lastHealthCheck
	s.mu.RUnlock()
	return PerformanceCounters{
		TotalRequests:   s.totalRequests.Load(),
		FailedRequests:  s.failedRequests.Load(),
		UptimeStart:     s.uptimeStart,
		LastHealthCheck: last,
	}
}

// Uptime returns the time since the context was created.
func (s *System) Uptime() time.Duration {
	return s.now().Sub(s.uptimeStart)
}

// ComponentStatuses returns a copy of the current component health.
func (s *System) ComponentStatuses() map[Component]ComponentStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Component]ComponentStatus, len(s.components))
	for k, v := range s.components {
		out[k] = v
	}
	return out
}

// OverallHealth returns the aggregate health with the self-description text.
// Before the first probe the status is unknown.
func (s *System) OverallHealth() HealthSummary {
	s.mu.RLock()
	probed := s.probed
	last := s.lastHealthCheck
	s.mu.RUnlock()

	statuses := s.ComponentStatuses()
	summary := HealthSummary{
		Status:       HealthUnknown,
		Components:   statuses,
		Uptime:       formatUptime(s.Uptime()),
		SelfAnalysis: s.SelfAnalysis(),
	}
	if probed {
		summary.Status = aggregateMap(statuses)
		summary.LastHealthCheck = &last
	}
	return summary
}

// RunHealthProbe runs every component check, scans the error log for
// recurring failures and returns a complete report. It never returns an
// error: failed checks are reported in the components section. When ctx is
// cancelled before the checks finish the report is returned but the stored
// component state is left untouched.
func (s *System) RunHealthProbe(ctx context.Context) DiagnosticReport {
	s.probeMu.Lock()
	defer s.probeMu.Unlock()

	start := s.now()
	report := DiagnosticReport{
		Timestamp:       start.UTC(),
		Uptime:          formatUptime(s.Uptime()),
		Components:      make(map[Component]ComponentReport, len(Components)),
		Recommendations: []string{},
	}

	statuses := make(map[Component]ComponentStatus, len(Components))
	for _, comp := range Components {
		rep := s.checkComponent(ctx, comp)
		report.Components[comp] = rep
		statuses[comp] = rep.Status
		if rep.Status != StatusHealthy {
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("Check credentials/connection for %s", comp.label()))
		}
	}

	report.Errors = s.errors.Recent(s.cfg.RecurringWindow)
	report.Recommendations = append(report.Recommendations, recurringErrors(report.Errors, s.cfg.RecurringThreshold)...)

	total := s.totalRequests.Load()
	failed := s.failedRequests.Load()
	report.Performance = PerformanceSummary{
		TotalRequests:  total,
		FailedRequests: failed,
		SuccessRate:    successRate(total, failed),
	}
	report.OverallHealth = aggregateMap(statuses)

	if err := ctx.Err(); err != nil {
		// the caller went away; these failures say nothing about the dependencies
		log.WithError(err).Debug("health probe abandoned, keeping previous component state")
		return report
	}

	if s.observer != nil {
		for _, comp := range Components {
			s.observer.ComponentChecked(comp, statuses[comp])
		}
	}

	s.mu.Lock()
	for comp, st := range statuses {
		s.components[comp] = st
	}
	s.lastHealthCheck = s.now()
	s.probed = true
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.ProbeCompleted(report.OverallHealth, s.now().Sub(start))
	}
	log.WithField("overall_health", report.OverallHealth).Debug("health probe completed")
	return report
}

// RepairFailedComponents probes, consults the repair advisor for every failed
// component and probes again.
func (s *System) RepairFailedComponents(ctx context.Context) SelfRepairReport {
	before := s.RunHealthProbe(ctx)
	repairs := s.RepairReport(before)
	after := s.RunHealthProbe(ctx)
	return SelfRepairReport{Before: before, Repairs: repairs, After: after}
}

// RepairReport runs the advisor for each failed component of a report. The
// failure message is included in the kind so keyword rules such as
// "connection" can match.
func (s *System) RepairReport(report DiagnosticReport) []ComponentRepair {
	repairs := []ComponentRepair{}
	for _, comp := range report.FailedComponents() {
		kind := fmt.Sprintf("%s failure: %s", comp, report.Components[comp].Message)
		repairs = append(repairs, ComponentRepair{Component: comp, Outcome: s.AttemptRepair(kind)})
	}
	return repairs
}

func (s *System) checkComponent(ctx context.Context, comp Component) (rep ComponentReport) {
	failStatus := StatusFailed
	if comp == ComponentImage {
		// the assistant keeps working without images
		failStatus = StatusWarning
	}

	checker := s.checkers.forComponent(comp)
	if checker == nil {
		return ComponentReport{Status: failStatus, Message: fmt.Sprintf("%s: %v", comp, ErrNotConfigured)}
	}

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("%s check panicked: %v", comp, r)
			s.errors.Append("Health Check Crash", msg, string(debug.Stack()))
			rep = ComponentReport{Status: failStatus, Message: msg}
		}
	}()

	cctx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
	defer cancel()

	msg, err := checker.Check(cctx)
	if err != nil {
		log.WithField("component", comp).Warnf("health check failed: %v", err)
		return ComponentReport{Status: failStatus, Message: err.Error()}
	}
	return ComponentReport{Status: StatusHealthy, Message: msg}
}

// recurringErrors returns a recommendation for each kind that occurs more
// than threshold times in records, in order of first appearance.
func recurringErrors(records []ErrorRecord, threshold int) []string {
	counts := make(map[string]int)
	var order []string
	for _, rec := range records {
		if counts[rec.Kind] == 0 {
			order = append(order, rec.Kind)
		}
		counts[rec.Kind]++
	}
	var out []string
	for _, kind := range order {
		if counts[kind] > threshold {
			out = append(out, fmt.Sprintf("Recurring error detected: %s. Consider investigating root cause.", kind))
		}
	}
	return out
}

func successRate(total, failed int64) string {
	denom := total
	if denom < 1 {
		denom = 1
	}
	return fmt.Sprintf("%.2f%%", float64(total-failed)/float64(denom)*100)
}

func aggregateMap(statuses map[Component]ComponentStatus) OverallHealth {
	list := make([]ComponentStatus, 0, len(statuses))
	for _, c := range Components {
		if st, ok := statuses[c]; ok {
			list = append(list, st)
		}
	}
	return Aggregate(list)
}

func formatUptime(d time.Duration) string {
	return d.Round(time.Second).String()
}
