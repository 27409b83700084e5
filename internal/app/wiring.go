// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package app

import (
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/traylinx/arya/internal/config"
	"github.com/traylinx/arya/internal/diagnostics"
	"github.com/traylinx/arya/internal/jobs"
	"github.com/traylinx/arya/internal/providers"
	"github.com/traylinx/arya/internal/store"
	"github.com/traylinx/arya/internal/voice"
)

func providerConfig(p config.ProviderConfig) providers.Config {
	return providers.Config{
		APIKey:     p.APIKey,
		BaseURL:    p.BaseURL,
		Model:      p.Model,
		MaxTokens:  p.MaxTokens,
		MaxRetries: p.MaxRetries,
		Timeout:    p.Timeout,
	}
}

func elevenLabsConfig(e config.ElevenLabsConfig) providers.Config {
	return providers.Config{APIKey: e.APIKey, BaseURL: e.BaseURL, Model: e.Model, Timeout: e.Timeout, MaxRetries: -1}
}

// newRouter registers every vendor that has credentials. Vendors without a
// key are skipped; completions routed to them fail with ErrUnknownProvider.
func newRouter(cfg *config.Config) *providers.Router {
	r := providers.NewRouter(cfg.Providers.Default)
	if c, err := providers.NewOpenAI(providerConfig(cfg.Providers.OpenAI)); err == nil {
		r.Register(providers.ProviderOpenAI, c)
	}
	if c, err := providers.NewAnthropic(providerConfig(cfg.Providers.Anthropic)); err == nil {
		r.Register(providers.ProviderAnthropic, c)
	}
	if c, err := providers.NewGemini(providerConfig(cfg.Providers.Gemini)); err == nil {
		r.Register(providers.ProviderGemini, c)
	}
	if len(r.Providers()) == 0 {
		log.Warn("no LLM provider configured; chat requests will fail until an API key is set")
	}
	return r
}

func routerProviders(l providers.LLM) []string {
	if r, ok := l.(*providers.Router); ok {
		return r.Providers()
	}
	return []string{"custom"}
}

func defaultModel(cfg *config.Config) string {
	switch cfg.Providers.Default {
	case providers.ProviderAnthropic:
		return cfg.Providers.Anthropic.Model
	case providers.ProviderGemini:
		return cfg.Providers.Gemini.Model
	}
	return cfg.Providers.OpenAI.Model
}

// newCheckers binds the health probe to the store and to the models endpoint
// of the default LLM vendor and the image vendor.
func newCheckers(cfg *config.Config, st store.DocumentStore) diagnostics.Checkers {
	return diagnostics.Checkers{
		Store: diagnostics.StoreChecker{Store: st},
		LLM:   llmChecker(cfg.Providers),
		Image: diagnostics.NewHTTPChecker("Image generation API", modelsURL(cfg.Providers.OpenAI.BaseURL, openAIModelsURL), cfg.Providers.OpenAI.APIKey),
	}
}

func llmChecker(p config.ProvidersConfig) diagnostics.Checker {
	switch p.Default {
	case providers.ProviderAnthropic:
		c := diagnostics.NewHTTPChecker("Anthropic API", modelsURL(p.Anthropic.BaseURL, anthropicModelsURL), p.Anthropic.APIKey)
		c.AuthHeader = "x-api-key"
		c.Header = http.Header{"Anthropic-Version": {anthropicVersion}}
		return c
	case providers.ProviderGemini:
		base := p.Gemini.BaseURL
		if base == "" {
			base = providers.GeminiOpenAIBaseURL
		}
		return diagnostics.NewHTTPChecker("Gemini API", strings.TrimRight(base, "/")+"/models", p.Gemini.APIKey)
	}
	return diagnostics.NewHTTPChecker("OpenAI API", modelsURL(p.OpenAI.BaseURL, openAIModelsURL), p.OpenAI.APIKey)
}

// modelsURL derives the listing endpoint from a configured base URL.
func modelsURL(base, fallback string) string {
	if base == "" {
		return fallback
	}
	return strings.TrimRight(base, "/") + "/models"
}

func jobsConfig(s config.SchedulerConfig) jobs.Config {
	return jobs.Config{
		HealthCheckInterval:    s.HealthCheckInterval,
		KnowledgeInterval:      s.KnowledgeInterval,
		ArchivalSchedule:       s.ArchivalCron,
		MetricsRollupInterval:  s.MetricsRollupInterval,
		Topics:                 s.KnowledgeTopics,
		ArchiveBatchSize:       s.ArchiveBatchSize,
		ArchiveMaxImportance:   s.ArchiveMaxImportance,
		ArchiveMinAge:          s.ArchiveMinAge,
		CriticalErrorThreshold: s.CriticalErrorThreshold,
	}
}

func voiceCandidates(v config.VoiceConfig) []voice.Candidate {
	out := make([]voice.Candidate, 0, len(v.Candidates))
	for _, c := range v.Candidates {
		if c.ID == "" {
			continue
		}
		out = append(out, voice.Candidate{
			Name:            c.Name,
			ID:              c.ID,
			Description:     c.Description,
			Clarity:         c.Clarity,
			Warmth:          c.Warmth,
			Professionalism: c.Professionalism,
		})
	}
	return out
}
