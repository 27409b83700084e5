// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Host, "binds all interfaces by default")
	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 100, cfg.Diagnostics.ErrorLogCapacity)
	assert.Equal(t, 5, cfg.Diagnostics.RecurringThreshold)
	assert.Equal(t, time.Hour, cfg.Scheduler.HealthCheckInterval)
	assert.Equal(t, "0 3 * * *", cfg.Scheduler.ArchivalCron)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.False(t, cfg.Management.Enabled())
}

func TestLoadConfig_OverridesAndSanitize(t *testing.T) {
	path := writeConfig(t, `
port: 0
debug: true
database:
  driver: " Memory "
diagnostics:
  error-log-capacity: -5
  probe-timeout: 3s
scheduler:
  autostart: false
  health-check-interval: 30m
  knowledge-topics: ["  go releases ", "", "rust"]
providers:
  openai:
    base-url: "https://proxy.example/v1/"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, 100, cfg.Diagnostics.ErrorLogCapacity)
	assert.Equal(t, 3*time.Second, cfg.Diagnostics.ProbeTimeout)
	assert.False(t, cfg.Scheduler.Autostart)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.HealthCheckInterval)
	assert.Equal(t, []string{"go releases", "rust"}, cfg.Scheduler.KnowledgeTopics)
	assert.Equal(t, "https://proxy.example/v1", cfg.Providers.OpenAI.BaseURL)
	assert.Equal(t, "gpt-5.1", cfg.Providers.OpenAI.Model)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"driver":   "database:\n  driver: mongo\n",
		"postgres": "database:\n  driver: postgres\n  dsn: \"\"\n",
		"timezone": "scheduler:\n  timezone: Mars/Olympus\n",
		"cron":     "scheduler:\n  archival-cron: \"every night\"\n",
		"yaml":     "port: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(EnvDatabaseDSN, "")
			_, err := LoadConfig(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigOptional_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.yaml")

	cfg, err := LoadConfigOptional(missing, true)
	require.NoError(t, err)
	assert.Equal(t, 8001, cfg.Port)

	_, err = LoadConfig(missing)
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv(EnvOpenAIKey, " sk-env ")
	t.Setenv(EnvDatabaseDSN, "postgres://arya@db/arya")
	t.Setenv(EnvManagementKey, "letmein")

	cfg, err := LoadConfig(writeConfig(t, "database:\n  driver: postgres\nproviders:\n  openai:\n    api-key: sk-file\n"))
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.Providers.OpenAI.APIKey)
	assert.Equal(t, "postgres://arya@db/arya", cfg.Database.DSN)

	assert.True(t, looksLikeBcrypt(cfg.Management.SecretKey), "plaintext key is hashed on load")
	assert.True(t, cfg.Management.Verify("letmein"))
	assert.False(t, cfg.Management.Verify("wrong"))
	assert.False(t, cfg.Management.Verify(""))
}

func TestManagementKey_AlreadyHashed(t *testing.T) {
	hashed, err := hashSecret("s3cret")
	require.NoError(t, err)

	cfg, err := LoadConfig(writeConfig(t, "management:\n  secret-key: \""+hashed+"\"\n"))
	require.NoError(t, err)
	assert.Equal(t, hashed, cfg.Management.SecretKey)
	assert.True(t, cfg.Management.Verify("s3cret"))
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "debug: false\n")

	changed := make(chan *Config, 4)
	w := NewWatcher(path, func(c *Config) { changed <- c })
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("debug: true\n"), 0o600))

	select {
	case cfg := <-changed:
		assert.True(t, cfg.Debug)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not observed")
	}
}

func TestWatcher_IgnoresInvalidFile(t *testing.T) {
	path := writeConfig(t, "debug: false\n")

	changed := make(chan *Config, 4)
	w := NewWatcher(path, func(c *Config) { changed <- c })
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("port: ["), 0o600))

	select {
	case <-changed:
		t.Fatal("invalid config must not be applied")
	case <-time.After(500 * time.Millisecond):
	}
}
