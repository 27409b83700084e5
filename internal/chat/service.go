// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package chat implements the conversational surface: profiles, memories,
// conversation history, chat turns and image generation.
package chat

import (
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/traylinx/arya/internal/diagnostics"
	"github.com/traylinx/arya/internal/providers"
	"github.com/traylinx/arya/internal/store"
)

// ErrInvalidRequest marks caller errors such as a missing user id.
var ErrInvalidRequest = errors.New("chat: invalid request")

// Config holds chat defaults.
type Config struct {
	DefaultProvider  string
	DefaultModel     string
	ImageModel       string
	ProfileCacheSize int
	HistoryLimit     int
	MemoryLimit      int
}

// DefaultConfig returns the chat defaults.
func DefaultConfig() Config {
	return Config{
		DefaultProvider:  providers.ProviderOpenAI,
		DefaultModel:     "gpt-5.1",
		ImageModel:       "gpt-image-1",
		ProfileCacheSize: 256,
		HistoryLimit:     50,
		MemoryLimit:      100,
	}
}

// Service is the chat backend.
type Service struct {
	store  store.DocumentStore
	llm    providers.LLM
	images providers.ImageGenerator
	diag   *diagnostics.System
	cfg    Config
	now    func() time.Time

	profiles *lru.Cache[string, Profile]

	// mu serializes read-modify-write of per-user documents.
	mu sync.Mutex
}

// NewService creates a chat service. llm and images may be nil, in which
// case the corresponding operations fail with providers.ErrNotConfigured.
func NewService(st store.DocumentStore, llm providers.LLM, images providers.ImageGenerator, diag *diagnostics.System, cfg Config) (*Service, error) {
	def := DefaultConfig()
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = def.DefaultProvider
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = def.DefaultModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = def.ImageModel
	}
	if cfg.ProfileCacheSize <= 0 {
		cfg.ProfileCacheSize = def.ProfileCacheSize
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = def.HistoryLimit
	}
	if cfg.MemoryLimit <= 0 {
		cfg.MemoryLimit = def.MemoryLimit
	}

	cache, err := lru.New[string, Profile](cfg.ProfileCacheSize)
	if err != nil {
		return nil, fmt.Errorf("profile cache: %w", err)
	}
	return &Service{
		store:    st,
		llm:      llm,
		images:   images,
		diag:     diag,
		cfg:      cfg,
		now:      time.Now,
		profiles: cache,
	}, nil
}

func (s *Service) timestamp() time.Time { return s.now().UTC() }
