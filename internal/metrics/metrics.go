// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics exposes Prometheus collectors for requests, the error log,
// component health and the background scheduler.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/traylinx/arya/internal/diagnostics"
	"github.com/traylinx/arya/internal/scheduler"
)

// Namespace prefixes every metric name.
const Namespace = "arya"

// Metrics holds the collectors. It implements diagnostics.Observer and
// scheduler.Observer.
type Metrics struct {
	gatherer prometheus.Gatherer

	HTTPRequests     *prometheus.CounterVec
	ErrorsLogged     *prometheus.CounterVec
	ComponentStatus  *prometheus.GaugeVec
	ProbeDuration    prometheus.Histogram
	JobRuns          *prometheus.CounterVec
	JobDuration      *prometheus.HistogramVec
	SchedulerRunning prometheus.Gauge
}

var (
	_ diagnostics.Observer = (*Metrics)(nil)
	_ scheduler.Observer   = (*Metrics)(nil)
)

// New creates and registers the collectors on reg. A nil reg uses a fresh
// private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	m := &Metrics{gatherer: reg}
	m.HTTPRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	m.ErrorsLogged = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "errors_logged_total",
		Help:      "Errors appended to the diagnostic error log, by severity.",
	}, []string{"severity"})

	m.ComponentStatus = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "component_status",
		Help:      "Last probed component status (0 unknown, 1 healthy, 2 warning, 3 degraded, 4 failed).",
	}, []string{"component"})

	m.ProbeDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "health_probe_duration_seconds",
		Help:      "Duration of full health probes.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	m.JobRuns = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "job_runs_total",
		Help:      "Maintenance job runs by outcome.",
	}, []string{"job", "outcome"})

	m.JobDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "job_duration_seconds",
		Help:      "Maintenance job run duration.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 15),
	}, []string{"job"})

	m.SchedulerRunning = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "scheduler_running",
		Help:      "1 while the background scheduler is running.",
	})

	for _, c := range diagnostics.Components {
		m.ComponentStatus.WithLabelValues(string(c)).Set(0)
	}
	return m
}

// StatusValue maps a component status onto the gauge scale.
func StatusValue(s diagnostics.ComponentStatus) float64 {
	switch s {
	case diagnostics.StatusHealthy:
		return 1
	case diagnostics.StatusWarning:
		return 2
	case diagnostics.StatusDegraded:
		return 3
	case diagnostics.StatusFailed:
		return 4
	}
	return 0
}

func (m *Metrics) ErrorLogged(rec diagnostics.ErrorRecord) {
	m.ErrorsLogged.WithLabelValues(string(rec.Severity)).Inc()
}

func (m *Metrics) ComponentChecked(c diagnostics.Component, status diagnostics.ComponentStatus) {
	m.ComponentStatus.WithLabelValues(string(c)).Set(StatusValue(status))
}

func (m *Metrics) ProbeCompleted(_ diagnostics.OverallHealth, elapsed time.Duration) {
	m.ProbeDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) JobCompleted(jobID string, outcome scheduler.Outcome, elapsed time.Duration) {
	m.JobRuns.WithLabelValues(jobID, string(outcome)).Inc()
	m.JobDuration.WithLabelValues(jobID).Observe(elapsed.Seconds())
}

func (m *Metrics) SchedulerStateChanged(running bool) {
	if running {
		m.SchedulerRunning.Set(1)
		return
	}
	m.SchedulerRunning.Set(0)
}

// Middleware counts requests by matched route. Unmatched routes are
// reported as "unmatched" to keep label cardinality bounded.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
