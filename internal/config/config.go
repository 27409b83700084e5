// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the server configuration from YAML, applies
// environment overrides and watches the file for changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Environment variables that override secrets in the file.
const (
	EnvOpenAIKey     = "ARYA_OPENAI_API_KEY"
	EnvAnthropicKey  = "ARYA_ANTHROPIC_API_KEY"
	EnvGeminiKey     = "ARYA_GEMINI_API_KEY"
	EnvElevenLabsKey = "ARYA_ELEVENLABS_API_KEY"
	EnvDatabaseDSN   = "ARYA_DATABASE_DSN"
	EnvManagementKey = "ARYA_MANAGEMENT_KEY"
)

// Config is the top-level server configuration.
type Config struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Debug         bool   `yaml:"debug"`
	LoggingToFile bool   `yaml:"logging-to-file"`
	LogsDir       string `yaml:"logs-dir"`

	Database    DatabaseConfig    `yaml:"database"`
	Providers   ProvidersConfig   `yaml:"providers"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Voice       VoiceConfig       `yaml:"voice"`
	Management  ManagementConfig  `yaml:"management"`
}

// DatabaseConfig selects the document store backend.
type DatabaseConfig struct {
	// Driver is one of memory, sqlite or postgres.
	Driver string `yaml:"driver"`
	// DSN is a file path for sqlite and a connection string for postgres.
	DSN string `yaml:"dsn"`
}

// ProviderConfig configures one LLM vendor.
type ProviderConfig struct {
	APIKey     string        `yaml:"api-key"`
	BaseURL    string        `yaml:"base-url"`
	Model      string        `yaml:"model"`
	MaxTokens  int           `yaml:"max-tokens"`
	MaxRetries int           `yaml:"max-retries"`
	Timeout    time.Duration `yaml:"timeout"`
}

// ElevenLabsConfig configures speech synthesis.
type ElevenLabsConfig struct {
	APIKey  string        `yaml:"api-key"`
	BaseURL string        `yaml:"base-url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// SearchConfig configures web search and scraping.
type SearchConfig struct {
	BaseURL string        `yaml:"base-url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ProvidersConfig groups the external capabilities.
type ProvidersConfig struct {
	// Default is the provider used when a profile does not name one.
	Default    string           `yaml:"default"`
	ImageModel string           `yaml:"image-model"`
	OpenAI     ProviderConfig   `yaml:"openai"`
	Anthropic  ProviderConfig   `yaml:"anthropic"`
	Gemini     ProviderConfig   `yaml:"gemini"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
	Search     SearchConfig     `yaml:"search"`
}

// DiagnosticsConfig tunes the self-diagnostics subsystem.
type DiagnosticsConfig struct {
	ErrorLogCapacity   int           `yaml:"error-log-capacity"`
	ProbeTimeout       time.Duration `yaml:"probe-timeout"`
	RecurringWindow    int           `yaml:"recurring-window"`
	RecurringThreshold int           `yaml:"recurring-threshold"`
}

// SchedulerConfig tunes the background scheduler and its jobs.
type SchedulerConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Autostart bool   `yaml:"autostart"`
	Timezone  string `yaml:"timezone"`

	HistoryCapacity       int           `yaml:"history-capacity"`
	HealthCheckInterval   time.Duration `yaml:"health-check-interval"`
	KnowledgeInterval     time.Duration `yaml:"knowledge-interval"`
	ArchivalCron          string        `yaml:"archival-cron"`
	MetricsRollupInterval time.Duration `yaml:"metrics-rollup-interval"`

	KnowledgeTopics        []string      `yaml:"knowledge-topics"`
	ArchiveBatchSize       int           `yaml:"archive-batch-size"`
	ArchiveMaxImportance   float64       `yaml:"archive-max-importance"`
	ArchiveMinAge          time.Duration `yaml:"archive-min-age"`
	CriticalErrorThreshold int           `yaml:"critical-error-threshold"`
}

// VoiceCandidate is one entry of the autonomous voice shortlist.
type VoiceCandidate struct {
	Name            string  `yaml:"name"`
	ID              string  `yaml:"id"`
	Description     string  `yaml:"description"`
	Clarity         float64 `yaml:"clarity"`
	Warmth          float64 `yaml:"warmth"`
	Professionalism float64 `yaml:"professionalism"`
}

// VoiceWeights balances the candidate scores.
type VoiceWeights struct {
	Clarity         float64 `yaml:"clarity"`
	Warmth          float64 `yaml:"warmth"`
	Professionalism float64 `yaml:"professionalism"`
}

// VoiceConfig configures the autonomous voice selection. Empty values use
// the built-in shortlist and weights.
type VoiceConfig struct {
	Candidates []VoiceCandidate `yaml:"candidates"`
	Weights    VoiceWeights     `yaml:"weights"`
}

// ManagementConfig protects the management routes.
type ManagementConfig struct {
	// SecretKey is the management key, plaintext or bcrypt hashed. Plaintext
	// values are hashed on load.
	SecretKey string `yaml:"secret-key"`
}

// Enabled reports whether a management key is configured.
func (m ManagementConfig) Enabled() bool { return m.SecretKey != "" }

// Verify compares a presented key with the configured hash.
func (m ManagementConfig) Verify(key string) bool {
	if m.SecretKey == "" || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(m.SecretKey), []byte(key)) == nil
}

// Default returns the configuration used for absent keys.
func Default() Config {
	return Config{
		Host:    "",
		Port:    8001,
		LogsDir: "logs",
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			DSN:    "arya.db",
		},
		Providers: ProvidersConfig{
			Default:    "openai",
			ImageModel: "gpt-image-1",
			OpenAI:     ProviderConfig{Model: "gpt-5.1", MaxRetries: -1},
			Anthropic:  ProviderConfig{Model: "claude-sonnet-4-5", MaxRetries: -1},
			Gemini:     ProviderConfig{Model: "gemini-2.5-flash", MaxRetries: -1},
			ElevenLabs: ElevenLabsConfig{Model: "eleven_multilingual_v2", Timeout: time.Minute},
			Search:     SearchConfig{Timeout: 15 * time.Second},
		},
		Diagnostics: DiagnosticsConfig{
			ErrorLogCapacity:   100,
			ProbeTimeout:       15 * time.Second,
			RecurringWindow:    10,
			RecurringThreshold: 5,
		},
		Scheduler: SchedulerConfig{
			Enabled:                true,
			Autostart:              true,
			Timezone:               "UTC",
			HistoryCapacity:        100,
			HealthCheckInterval:    time.Hour,
			KnowledgeInterval:      6 * time.Hour,
			ArchivalCron:           "0 3 * * *",
			MetricsRollupInterval:  12 * time.Hour,
			ArchiveBatchSize:       100,
			ArchiveMaxImportance:   3,
			ArchiveMinAge:          30 * 24 * time.Hour,
			CriticalErrorThreshold: 3,
		},
	}
}

// LoadConfig reads YAML from configFile.
func LoadConfig(configFile string) (*Config, error) {
	return LoadConfigOptional(configFile, false)
}

// LoadConfigOptional reads YAML from configFile. If optional is true and the
// file is missing or empty, the defaults are used.
func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configFile)
	switch {
	case err == nil:
		// Defaults are set before unmarshal so that absent keys keep them.
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case optional && (os.IsNotExist(err) || errors.Is(err, syscall.EISDIR)):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Management.SecretKey != "" && !looksLikeBcrypt(cfg.Management.SecretKey) {
		hashed, err := hashSecret(cfg.Management.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("failed to hash management key: %w", err)
		}
		cfg.Management.SecretKey = hashed
	}
	return &cfg, nil
}

func (cfg *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, name string) {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&cfg.Providers.OpenAI.APIKey, EnvOpenAIKey)
	set(&cfg.Providers.Anthropic.APIKey, EnvAnthropicKey)
	set(&cfg.Providers.Gemini.APIKey, EnvGeminiKey)
	set(&cfg.Providers.ElevenLabs.APIKey, EnvElevenLabsKey)
	set(&cfg.Database.DSN, EnvDatabaseDSN)
	set(&cfg.Management.SecretKey, EnvManagementKey)
}

// Sanitize normalises values and replaces out-of-range ones with defaults.
func (cfg *Config) Sanitize() {
	def := Default()

	cfg.Host = strings.TrimSpace(cfg.Host)
	if cfg.Port <= 0 || cfg.Port > 65535 {
		cfg.Port = def.Port
	}
	if strings.TrimSpace(cfg.LogsDir) == "" {
		cfg.LogsDir = def.LogsDir
	}

	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = def.Database.Driver
	}
	cfg.Database.DSN = strings.TrimSpace(cfg.Database.DSN)

	cfg.Providers.Default = strings.ToLower(strings.TrimSpace(cfg.Providers.Default))
	if cfg.Providers.Default == "" {
		cfg.Providers.Default = def.Providers.Default
	}
	for _, p := range []*ProviderConfig{&cfg.Providers.OpenAI, &cfg.Providers.Anthropic, &cfg.Providers.Gemini} {
		p.APIKey = strings.TrimSpace(p.APIKey)
		p.BaseURL = strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
		if p.MaxTokens < 0 {
			p.MaxTokens = 0
		}
	}

	cfg.SanitizeDiagnostics()
	cfg.SanitizeScheduler()
}

// SanitizeDiagnostics clamps the diagnostics section.
func (cfg *Config) SanitizeDiagnostics() {
	def := Default().Diagnostics
	d := &cfg.Diagnostics
	if d.ErrorLogCapacity <= 0 {
		d.ErrorLogCapacity = def.ErrorLogCapacity
	}
	if d.ProbeTimeout <= 0 {
		d.ProbeTimeout = def.ProbeTimeout
	}
	if d.RecurringWindow <= 0 {
		d.RecurringWindow = def.RecurringWindow
	}
	if d.RecurringThreshold <= 0 {
		d.RecurringThreshold = def.RecurringThreshold
	}
}

// SanitizeScheduler clamps the scheduler section and drops blank topics.
func (cfg *Config) SanitizeScheduler() {
	def := Default().Scheduler
	s := &cfg.Scheduler
	s.Timezone = strings.TrimSpace(s.Timezone)
	if s.Timezone == "" {
		s.Timezone = def.Timezone
	}
	if s.HistoryCapacity <= 0 {
		s.HistoryCapacity = def.HistoryCapacity
	}
	if s.HealthCheckInterval <= 0 {
		s.HealthCheckInterval = def.HealthCheckInterval
	}
	if s.KnowledgeInterval <= 0 {
		s.KnowledgeInterval = def.KnowledgeInterval
	}
	s.ArchivalCron = strings.TrimSpace(s.ArchivalCron)
	if s.ArchivalCron == "" {
		s.ArchivalCron = def.ArchivalCron
	}
	if s.MetricsRollupInterval <= 0 {
		s.MetricsRollupInterval = def.MetricsRollupInterval
	}
	if s.ArchiveBatchSize <= 0 {
		s.ArchiveBatchSize = def.ArchiveBatchSize
	}
	if s.ArchiveMaxImportance <= 0 {
		s.ArchiveMaxImportance = def.ArchiveMaxImportance
	}
	if s.ArchiveMinAge <= 0 {
		s.ArchiveMinAge = def.ArchiveMinAge
	}
	if s.CriticalErrorThreshold <= 0 {
		s.CriticalErrorThreshold = def.CriticalErrorThreshold
	}

	topics := s.KnowledgeTopics[:0]
	for _, t := range s.KnowledgeTopics {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	s.KnowledgeTopics = topics
}

// Validate reports values that cannot be repaired by Sanitize.
func (cfg *Config) Validate() error {
	switch cfg.Database.Driver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("config: unknown database driver %q", cfg.Database.Driver)
	}
	if cfg.Database.Driver == DriverPostgres && cfg.Database.DSN == "" {
		return fmt.Errorf("config: database.dsn is required for postgres")
	}
	if _, err := cfg.Location(); err != nil {
		return err
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(cfg.Scheduler.ArchivalCron); err != nil {
		return fmt.Errorf("config: scheduler.archival-cron: %w", err)
	}
	return nil
}

// Location resolves the scheduler timezone.
func (cfg *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: scheduler.timezone: %w", err)
	}
	return loc, nil
}

// Addr is the listen address.
func (cfg *Config) Addr() string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

// looksLikeBcrypt returns true if the provided string appears to be a bcrypt hash.
func looksLikeBcrypt(s string) bool {
	return len(s) > 4 && (s[:4] == "$2a$" || s[:4] == "$2b$" || s[:4] == "$2y$")
}

// hashSecret hashes the given secret using bcrypt.
func hashSecret(secret string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}
