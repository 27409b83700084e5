// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"github.com/openai/openai-go"
)

// ImageGenerator produces images from a prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt, model string, count int) ([][]byte, error)
}

// OpenAIImages generates images through the OpenAI Images API.
type OpenAIImages struct {
	client *openai.Client
	http   *http.Client
	cfg    Config
}

// NewOpenAIImages creates an image client. cfg.Model defaults to gpt-image-1.
func NewOpenAIImages(cfg Config) (*OpenAIImages, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai images: %w", ErrNotConfigured)
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-image-1"
	}
	client := openai.NewClient(openAIOptions(cfg)...)
	return &OpenAIImages{client: &client, http: &http.Client{Timeout: cfg.timeout()}, cfg: cfg}, nil
}

// Generate returns the raw bytes of each generated image.
func (g *OpenAIImages) Generate(ctx context.Context, prompt, model string, count int) ([][]byte, error) {
	if model == "" {
		model = g.cfg.Model
	}
	if count <= 0 {
		count = 1
	}

	resp, err := g.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(model),
		N:      openai.Int(int64(count)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai images: %w", err)
	}

	images := make([][]byte, 0, len(resp.Data))
	for _, img := range resp.Data {
		switch {
		case img.B64JSON != "":
			raw, err := base64.StdEncoding.DecodeString(img.B64JSON)
			if err != nil {
				return nil, fmt.Errorf("openai images: decode: %w", err)
			}
			images = append(images, raw)
		case img.URL != "":
			raw, err := g.download(ctx, img.URL)
			if err != nil {
				return nil, err
			}
			images = append(images, raw)
		}
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("openai images: no image returned")
	}
	return images, nil
}

func (g *OpenAIImages) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai images: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai images: download: unexpected status code: %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 32<<20))
}
