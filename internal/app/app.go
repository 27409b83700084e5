// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package app wires the server's components together. It owns construction
// order, the start-up health pass, hot reload and shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"

	"github.com/traylinx/arya/internal/chat"
	"github.com/traylinx/arya/internal/config"
	"github.com/traylinx/arya/internal/diagnostics"
	"github.com/traylinx/arya/internal/jobs"
	"github.com/traylinx/arya/internal/logging"
	"github.com/traylinx/arya/internal/metrics"
	"github.com/traylinx/arya/internal/providers"
	"github.com/traylinx/arya/internal/scheduler"
	"github.com/traylinx/arya/internal/store"
	"github.com/traylinx/arya/internal/voice"
)

// ErrSchedulerDisabled is returned by StartScheduler when scheduler.enabled
// is false.
var ErrSchedulerDisabled = errors.New("app: background scheduler is disabled")

const (
	openAIModelsURL    = "https://api.openai.com/v1/models"
	anthropicModelsURL = "https://api.anthropic.com/v1/models"
	anthropicVersion   = "2023-06-01"
)

// Option overrides a dependency, mostly for tests.
type Option func(*options)

type options struct {
	store    store.DocumentStore
	llm      providers.LLM
	images   providers.ImageGenerator
	speech   providers.SpeechSynthesizer
	search   providers.WebSearcher
	checkers *diagnostics.Checkers
	registry *prometheus.Registry
	now      func() time.Time
}

// WithStore uses st instead of opening cfg.Database.
func WithStore(st store.DocumentStore) Option { return func(o *options) { o.store = st } }

// WithLLM replaces the provider router.
func WithLLM(l providers.LLM) Option { return func(o *options) { o.llm = l } }

// WithImages replaces the image generator.
func WithImages(g providers.ImageGenerator) Option { return func(o *options) { o.images = g } }

// WithSpeech replaces the speech synthesizer.
func WithSpeech(s providers.SpeechSynthesizer) Option { return func(o *options) { o.speech = s } }

// WithSearch replaces the web searcher.
func WithSearch(s providers.WebSearcher) Option { return func(o *options) { o.search = s } }

// WithCheckers replaces the health checkers derived from the configuration.
func WithCheckers(c diagnostics.Checkers) Option { return func(o *options) { o.checkers = &c } }

// WithRegistry registers the collectors on reg.
func WithRegistry(reg *prometheus.Registry) Option { return func(o *options) { o.registry = reg } }

// WithClock sets the diagnostics clock.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// App is the assembled server.
type App struct {
	Store       store.DocumentStore
	LLM         providers.LLM
	Images      providers.ImageGenerator
	Speech      providers.SpeechSynthesizer
	Search      providers.WebSearcher
	Diagnostics *diagnostics.System
	Jobs        *jobs.Runner
	Scheduler   *scheduler.Scheduler
	Chat        *chat.Service
	Voice       *voice.Service
	Metrics     *metrics.Metrics
	Registry    *prometheus.Registry

	cfg atomic.Pointer[config.Config]
	bg  sync.WaitGroup
}

// New builds the application from cfg. Metrics come first so the collectors
// can observe diagnostics and the scheduler from their first event.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{}
	a.cfg.Store(cfg)

	a.Registry = o.registry
	if a.Registry == nil {
		a.Registry = prometheus.NewRegistry()
		a.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	a.Metrics = metrics.New(a.Registry)

	a.Store = o.store
	if a.Store == nil {
		st, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.Store = st
	}

	a.LLM = o.llm
	if a.LLM == nil {
		a.LLM = newRouter(cfg)
	}
	a.Images = o.images
	if a.Images == nil {
		pc := providerConfig(cfg.Providers.OpenAI)
		pc.Model = cfg.Providers.ImageModel
		if g, err := providers.NewOpenAIImages(pc); err == nil {
			a.Images = g
		}
	}
	a.Speech = o.speech
	if a.Speech == nil {
		if s, err := providers.NewElevenLabs(elevenLabsConfig(cfg.Providers.ElevenLabs)); err == nil {
			a.Speech = s
		}
	}
	a.Search = o.search
	if a.Search == nil {
		a.Search = providers.NewDuckDuckGo(cfg.Providers.Search.BaseURL, cfg.Providers.Search.Timeout)
	}

	checkers := newCheckers(cfg, a.Store)
	if o.checkers != nil {
		checkers = *o.checkers
	}
	diagOpts := []diagnostics.Option{diagnostics.WithObserver(a.Metrics)}
	if o.now != nil {
		diagOpts = append(diagOpts, diagnostics.WithClock(o.now))
	}
	a.Diagnostics = diagnostics.NewSystem(diagnostics.Config{
		ErrorLogCapacity:   cfg.Diagnostics.ErrorLogCapacity,
		ProbeTimeout:       cfg.Diagnostics.ProbeTimeout,
		RecurringWindow:    cfg.Diagnostics.RecurringWindow,
		RecurringThreshold: cfg.Diagnostics.RecurringThreshold,
	}, checkers, diagOpts...)

	a.Jobs = jobs.NewRunner(a.Diagnostics, a.Store, a.Search, jobsConfig(cfg.Scheduler))
	loc, err := cfg.Location()
	if err != nil {
		a.closeStore()
		return nil, err
	}
	a.Scheduler, err = scheduler.New(scheduler.Config{
		Location:        loc,
		HistoryCapacity: cfg.Scheduler.HistoryCapacity,
	}, a.Diagnostics, a.Jobs.Jobs(), scheduler.WithObserver(a.Metrics))
	if err != nil {
		a.closeStore()
		return nil, err
	}

	a.Chat, err = chat.NewService(a.Store, a.LLM, a.Images, a.Diagnostics, chat.Config{
		DefaultProvider: cfg.Providers.Default,
		DefaultModel:    defaultModel(cfg),
		ImageModel:      cfg.Providers.ImageModel,
	})
	if err != nil {
		a.closeStore()
		return nil, err
	}

	var researcher voice.Searcher
	if a.Search != nil {
		researcher = a.Search
	}
	a.Voice = voice.NewService(a.Store, a.Speech, researcher, voiceCandidates(cfg.Voice), voice.Weights{
		Clarity:         cfg.Voice.Weights.Clarity,
		Warmth:          cfg.Voice.Weights.Warmth,
		Professionalism: cfg.Voice.Weights.Professionalism,
	})

	log.WithFields(log.Fields{
		"store":     cfg.Database.Driver,
		"providers": strings.Join(routerProviders(a.LLM), ","),
		"images":    a.Images != nil,
		"speech":    a.Speech != nil,
	}).Info("application initialised")
	return a, nil
}

// Config returns the active configuration.
func (a *App) Config() *config.Config { return a.cfg.Load() }

// Start autostarts the scheduler when configured and runs the start-up
// health check and repair pass in the background.
func (a *App) Start(ctx context.Context) {
	cfg := a.Config()
	if cfg.Scheduler.Enabled && cfg.Scheduler.Autostart {
		a.Scheduler.Start()
	}

	a.bg.Add(1)
	go func() {
		defer a.bg.Done()
		report := a.Diagnostics.RepairFailedComponents(ctx)
		entry := log.WithField("overall", report.After.OverallHealth)
		if len(report.Repairs) > 0 {
			entry.WithField("repairs", len(report.Repairs)).Warn("start-up health check found failed components")
			return
		}
		entry.Info("start-up health check complete")
	}()
}

// StartScheduler starts the background scheduler on demand. It reports
// whether the state changed.
func (a *App) StartScheduler() (bool, error) {
	if !a.Config().Scheduler.Enabled {
		return false, ErrSchedulerDisabled
	}
	return a.Scheduler.Start(), nil
}

// ApplyConfig applies the hot-reloadable subset of cfg: log level, knowledge
// topics and the management key. Everything else needs a restart.
func (a *App) ApplyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	old := a.cfg.Swap(cfg)
	logging.SetLevel(cfg.Debug)
	a.Jobs.SetTopics(cfg.Scheduler.KnowledgeTopics)

	if old != nil && (old.Database != cfg.Database || old.Port != cfg.Port || old.Host != cfg.Host) {
		log.Warn("database and listen address changes take effect after a restart")
	}
	log.WithField("debug", cfg.Debug).Info("configuration reloaded")
}

// Close stops the scheduler, waits for in-flight work bounded by ctx and
// closes the store.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Scheduler.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("scheduler shutdown: %w", err))
	}

	done := make(chan struct{})
	go func() {
		a.bg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("start-up health check: %w", ctx.Err()))
	}

	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}

func (a *App) closeStore() {
	if err := a.Store.Close(); err != nil {
		log.WithError(err).Warn("failed to close store")
	}
}
