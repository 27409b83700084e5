// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package providers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// SpeechSynthesizer turns text into audio and clones voices from samples.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
	CloneVoice(ctx context.Context, name, filename string, sample []byte) (string, error)
}

const (
	elevenLabsBaseURL      = "https://api.elevenlabs.io"
	elevenLabsDefaultModel = "eleven_multilingual_v2"
)

// ElevenLabs is a text-to-speech client for the ElevenLabs REST API.
type ElevenLabs struct {
	cfg    Config
	client *http.Client
}

// NewElevenLabs creates a client. cfg.Model defaults to eleven_multilingual_v2.
func NewElevenLabs(cfg Config) (*ElevenLabs, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("elevenlabs: %w", ErrNotConfigured)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = elevenLabsBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = elevenLabsDefaultModel
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &ElevenLabs{cfg: cfg, client: &http.Client{Timeout: cfg.timeout()}}, nil
}

// Synthesize converts text to MPEG audio with the given voice.
func (e *ElevenLabs) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	body := `{}`
	body, _ = sjson.Set(body, "text", text)
	body, _ = sjson.Set(body, "model_id", e.cfg.Model)
	body, _ = sjson.Set(body, "voice_settings.stability", 0.5)
	body, _ = sjson.Set(body, "voice_settings.similarity_boost", 0.75)

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", e.cfg.BaseURL, url.PathEscape(voiceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	return e.do(req)
}

// CloneVoice uploads a sample and returns the new voice id.
func (e *ElevenLabs) CloneVoice(ctx context.Context, name, filename string, sample []byte) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("name", name)
	_ = w.WriteField("description", "Voice cloned from an uploaded sample")
	part, err := w.CreateFormFile("files", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(sample); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+"/v1/voices/add", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	raw, err := e.do(req)
	if err != nil {
		return "", err
	}
	id := gjson.GetBytes(raw, "voice_id").String()
	if id == "" {
		return "", fmt.Errorf("elevenlabs: clone response has no voice_id")
	}
	return id, nil
}

func (e *ElevenLabs) do(req *http.Request) ([]byte, error) {
	req.Header.Set("xi-api-key", e.cfg.APIKey)
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 50<<20))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(raw, "detail.message").String()
		if msg == "" {
			msg = gjson.GetBytes(raw, "detail").String()
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("elevenlabs: HTTP %d: %s", resp.StatusCode, msg)
	}
	return raw, nil
}
