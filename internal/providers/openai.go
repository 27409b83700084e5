// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

// GeminiOpenAIBaseURL is Gemini's OpenAI-compatible endpoint.
const GeminiOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

func openAIOptions(cfg Config) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.timeout()),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	return opts
}

// OpenAI completes prompts through the OpenAI Responses API.
type OpenAI struct {
	client *openai.Client
	cfg    Config
}

// NewOpenAI creates an OpenAI client.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrNotConfigured)
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-5.1"
	}
	client := openai.NewClient(openAIOptions(cfg)...)
	return &OpenAI{client: &client, cfg: cfg}, nil
}

// Complete sends the system prompt and user text as one request.
func (p *OpenAI) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	input := make(responses.ResponseInputParam, 0, 2)
	if req.SystemPrompt != "" {
		input = append(input, responses.ResponseInputItemParamOfMessage(req.SystemPrompt, responses.EasyInputMessageRoleSystem))
	}
	input = append(input, responses.ResponseInputItemParamOfMessage(req.UserText, responses.EasyInputMessageRoleUser))

	result, err := p.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: shared.ResponsesModel(model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: input,
		},
		MaxOutputTokens: openai.Int(p.cfg.maxTokens()),
	})
	if err != nil {
		return "", fmt.Errorf("openai complete: %w", err)
	}
	text := result.OutputText()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("openai: %w", ErrEmptyCompletion)
	}
	return text, nil
}

// OpenAICompatible completes prompts through the Chat Completions API of an
// OpenAI-compatible endpoint. It is used for Gemini.
type OpenAICompatible struct {
	name   string
	client *openai.Client
	cfg    Config
}

// NewGemini creates a Gemini client on its OpenAI-compatible endpoint.
func NewGemini(cfg Config) (*OpenAICompatible, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = GeminiOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	return NewOpenAICompatible(ProviderGemini, cfg)
}

// NewOpenAICompatible creates a Chat Completions client for any compatible endpoint.
func NewOpenAICompatible(name string, cfg Config) (*OpenAICompatible, error) {
	if cfg.APIKey == "" || cfg.BaseURL == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrNotConfigured)
	}
	client := openai.NewClient(openAIOptions(cfg)...)
	return &OpenAICompatible{name: name, client: &client, cfg: cfg}, nil
}

// Complete sends a system and a user message.
func (p *OpenAICompatible) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserText))

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     shared.ChatModel(model),
		Messages:  messages,
		MaxTokens: openai.Int(p.cfg.maxTokens()),
	})
	if err != nil {
		return "", fmt.Errorf("%s complete: %w", p.name, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%s: %w", p.name, ErrEmptyCompletion)
	}
	return resp.Choices[0].Message.Content, nil
}
