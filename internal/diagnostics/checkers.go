// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Checker performs one reachability check. On success it returns a short
// human-readable message.
type Checker interface {
	Check(ctx context.Context) (string, error)
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(ctx context.Context) (string, error)

// Check calls f(ctx).
func (f CheckerFunc) Check(ctx context.Context) (string, error) { return f(ctx) }

// ErrNotConfigured is returned by checkers bound to a dependency that has no
// credentials or endpoint configured.
var ErrNotConfigured = errors.New("not configured")

// Pinger is implemented by the document store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreChecker verifies the document store answers a ping.
type StoreChecker struct {
	Store Pinger
}

// Check pings the store.
func (c StoreChecker) Check(ctx context.Context) (string, error) {
	if c.Store == nil {
		return "", fmt.Errorf("database connection: %w", ErrNotConfigured)
	}
	if err := c.Store.Ping(ctx); err != nil {
		return "", fmt.Errorf("database connection failed: %w", err)
	}
	return "Connected", nil
}

// HTTPChecker checks a provider API by issuing an authenticated GET against a
// cheap endpoint such as a model listing. 401/403 and 5xx responses are failures.
type HTTPChecker struct {
	Name       string
	URL        string
	APIKey     string
	AuthHeader string // defaults to "Authorization" with a Bearer prefix
	Header     http.Header
	Client     *http.Client
}

// NewHTTPChecker creates an HTTPChecker with a 10 second client timeout.
func NewHTTPChecker(name, url, apiKey string) *HTTPChecker {
	return &HTTPChecker{
		Name:   name,
		URL:    url,
		APIKey: apiKey,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Check performs the GET request.
func (c *HTTPChecker) Check(ctx context.Context) (string, error) {
	if c.URL == "" || c.APIKey == "" {
		return "", fmt.Errorf("%s: %w", c.Name, ErrNotConfigured)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", c.Name, err)
	}
	if c.AuthHeader == "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	} else {
		req.Header.Set(c.AuthHeader, c.APIKey)
	}
	for k, v := range c.Header {
		req.Header[k] = v
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s connection failed: %w", c.Name, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("%s authentication rejected (HTTP %d)", c.Name, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		// the service is up, only throttling us
		return fmt.Sprintf("Reachable but rate limited (HTTP %d)", resp.StatusCode), nil
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("%s unavailable (HTTP %d)", c.Name, resp.StatusCode)
	}
	return fmt.Sprintf("Reachable (HTTP %d)", resp.StatusCode), nil
}
