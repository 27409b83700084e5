// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package diagnostics implements the process-wide self-diagnostic layer:
// a bounded error log with severity classification, a health probe over the
// dependent services, the aggregate health policy and the repair advisor.
package diagnostics

import (
	"time"
)

// Severity classifies an error record.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// rank orders severities so the highest matched keyword wins.
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// Category is the error taxonomy used for reporting and repair decisions.
type Category string

const (
	CategoryDependencyUnreachable Category = "dependency-unreachable"
	CategoryRateLimited           Category = "rate-limited"
	CategoryResourceExhaustion    Category = "resource-exhaustion"
	CategoryDataInconsistency     Category = "data-inconsistency"
	CategoryUnclassified          Category = "unclassified"
)

// Component identifies a monitored dependency.
type Component string

const (
	ComponentDatabase Component = "database"
	ComponentLLM      Component = "llm_api"
	ComponentImage    Component = "image_gen"
)

// Components lists the monitored dependencies in probe order.
var Components = []Component{ComponentDatabase, ComponentLLM, ComponentImage}

// label is the human-readable name used in recommendations.
func (c Component) label() string {
	switch c {
	case ComponentDatabase:
		return "the database"
	case ComponentLLM:
		return "the language model service"
	case ComponentImage:
		return "the image generation service"
	default:
		return string(c)
	}
}

// ComponentStatus is the health of a single dependency.
type ComponentStatus string

const (
	StatusUnknown  ComponentStatus = "unknown"
	StatusHealthy  ComponentStatus = "healthy"
	StatusWarning  ComponentStatus = "warning"
	StatusDegraded ComponentStatus = "degraded"
	StatusFailed   ComponentStatus = "failed"
)

// OverallHealth is the rollup of all component statuses.
type OverallHealth string

const (
	HealthHealthy  OverallHealth = "healthy"
	HealthDegraded OverallHealth = "degraded"
	HealthCritical OverallHealth = "critical"
	// HealthUnknown is reported before the first probe has run.
	HealthUnknown OverallHealth = "unknown"
)

// ErrorRecord is a single entry of the error log. Records are immutable once appended.
type ErrorRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"type"`
	Message   string    `json:"message"`
	Trace     string    `json:"traceback,omitempty"`
	Severity  Severity  `json:"severity"`
	Category  Category  `json:"category"`
}

// ComponentReport is the outcome of one probe check.
type ComponentReport struct {
	Status  ComponentStatus `json:"status"`
	Message string          `json:"message"`
}

// PerformanceCounters holds the request counters owned by the request boundary.
type PerformanceCounters struct {
	TotalRequests   int64     `json:"total_requests"`
	FailedRequests  int64     `json:"failed_requests"`
	UptimeStart     time.Time `json:"uptime_start"`
	LastHealthCheck time.Time `json:"last_health_check,omitempty"`
}

// PerformanceSummary is the performance section of a diagnostic report.
type PerformanceSummary struct {
	TotalRequests  int64  `json:"total_requests"`
	FailedRequests int64  `json:"failed_requests"`
	SuccessRate    string `json:"success_rate"`
}

// DiagnosticReport is the result of a full health probe.
type DiagnosticReport struct {
	Timestamp       time.Time                     `json:"timestamp"`
	Uptime          string                        `json:"uptime"`
	Components      map[Component]ComponentReport `json:"components"`
	Errors          []ErrorRecord                 `json:"errors"`
	Recommendations []string                      `json:"recommendations"`
	Performance     PerformanceSummary            `json:"performance"`
	OverallHealth   OverallHealth                 `json:"overall_health"`
}

// FailedComponents returns the components reported as failed, in probe order.
func (r DiagnosticReport) FailedComponents() []Component {
	var failed []Component
	for _, c := range Components {
		if rep, ok := r.Components[c]; ok && rep.Status == StatusFailed {
			failed = append(failed, c)
		}
	}
	return failed
}

// HealthSummary is the lightweight health view with the self-description text.
type HealthSummary struct {
	Status          OverallHealth                 `json:"status"`
	Components      map[Component]ComponentStatus `json:"components"`
	Uptime          string                        `json:"uptime"`
	LastHealthCheck *time.Time                    `json:"last_health_check,omitempty"`
	SelfAnalysis    string                        `json:"self_analysis"`
}

// RepairOutcome is the advisor's answer for one error kind. Succeeded means a
// mitigation was applied, not that the root cause is resolved.
type RepairOutcome struct {
	Attempted bool     `json:"attempted"`
	Succeeded bool     `json:"succeeded"`
	Actions   []string `json:"actions"`
}

// ComponentRepair pairs a failed component with the advisor outcome.
type ComponentRepair struct {
	Component Component     `json:"component"`
	Outcome   RepairOutcome `json:"outcome"`
}

// SelfRepairReport is the result of a probe, repair, re-probe pass.
type SelfRepairReport struct {
	Before  DiagnosticReport  `json:"pre_repair"`
	Repairs []ComponentRepair `json:"repairs"`
	After   DiagnosticReport  `json:"post_repair"`
}

// Observer receives diagnostic events. Implementations must not block.
type Observer interface {
	ErrorLogged(rec ErrorRecord)
	ComponentChecked(c Component, status ComponentStatus)
	ProbeCompleted(health OverallHealth, elapsed time.Duration)
}
