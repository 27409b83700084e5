// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package providers adapts the third-party model, speech and search services
// to the small capability interfaces the rest of the server consumes.
package providers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	// ErrEmptyCompletion is returned when a provider answers with no text.
	ErrEmptyCompletion = errors.New("providers: empty completion")
	// ErrUnknownProvider is returned for a provider id with no registered client.
	ErrUnknownProvider = errors.New("providers: unknown provider")
	// ErrNotConfigured is returned when a capability has no credentials.
	ErrNotConfigured = errors.New("providers: not configured")
)

// Provider ids.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Config holds the connection settings shared by all vendor clients.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	// MaxRetries below zero keeps the SDK default.
	MaxRetries int
	Timeout    time.Duration
}

func (c Config) maxTokens() int64 {
	if c.MaxTokens <= 0 {
		return 2048
	}
	return int64(c.MaxTokens)
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 60 * time.Second
	}
	return c.Timeout
}

// CompletionRequest is a single-turn prompt.
type CompletionRequest struct {
	SystemPrompt string
	UserText     string
	Provider     string
	Model        string
}

// LLM produces a completion. Implementations return ErrEmptyCompletion rather
// than an empty string.
type LLM interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Router dispatches completions to the client registered for the provider id.
type Router struct {
	mu              sync.RWMutex
	clients         map[string]LLM
	defaultProvider string
}

// NewRouter creates a router that falls back to defaultProvider.
func NewRouter(defaultProvider string) *Router {
	return &Router{clients: make(map[string]LLM), defaultProvider: defaultProvider}
}

// Register adds or replaces the client for a provider id.
func (r *Router) Register(provider string, client LLM) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[strings.ToLower(provider)] = client
}

// Providers returns the registered provider ids.
func (r *Router) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Complete routes req to its provider.
func (r *Router) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	provider := strings.ToLower(req.Provider)
	if provider == "" {
		provider = r.defaultProvider
	}
	r.mu.RLock()
	client, ok := r.clients[provider]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	text, err := client.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
