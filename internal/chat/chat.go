// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chat

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/traylinx/arya/internal/diagnostics"
	"github.com/traylinx/arya/internal/providers"
	"github.com/traylinx/arya/internal/store"
)

// Chat answers one turn. Messages asking the assistant about itself get a
// diagnostic report; everything else goes to the LLM with the user's
// profile and memories. Failures are recorded in the error log and passed
// through the repair advisor before being returned.
func (s *Service) Chat(ctx context.Context, req Request) (Reply, error) {
	if req.UserID == "" || req.Message == "" {
		return Reply{}, fmt.Errorf("%w: user_id and message are required", ErrInvalidRequest)
	}

	reply, err := s.chat(ctx, req)
	if err != nil {
		if s.diag != nil {
			s.diag.LogError("Chat Error", err.Error(), errorChain(err))
			s.diag.AttemptRepair(err.Error())
		}
		return Reply{}, err
	}
	return reply, nil
}

// errorChain renders each wrapped layer of err on its own line, outermost
// first, so the log shows where the failure came from.
func errorChain(err error) string {
	var b strings.Builder
	for depth := 0; err != nil; depth++ {
		fmt.Fprintf(&b, "%s%T: %v\n", strings.Repeat("  ", depth), err, err)
		err = errors.Unwrap(err)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *Service) chat(ctx context.Context, req Request) (Reply, error) {
	if IsDiagnosticRequest(req.Message) && s.diag != nil {
		return s.diagnosticReply(ctx, req)
	}
	if s.llm == nil {
		return Reply{}, providers.ErrNotConfigured
	}

	profile, err := s.Profile(ctx, req.UserID)
	if err != nil {
		return Reply{}, err
	}
	memories, err := s.Memories(ctx, req.UserID, promptMemories)
	if err != nil {
		return Reply{}, err
	}
	if err := s.appendMessages(ctx, req.UserID, s.newMessage(RoleUser, req.Message, "")); err != nil {
		return Reply{}, err
	}

	provider := req.Provider
	if provider == "" {
		provider = profile.LLMProvider
	}
	model := req.Model
	if model == "" {
		model = profile.LLMModel
	}

	text, err := s.llm.Complete(ctx, providers.CompletionRequest{
		SystemPrompt: SystemPrompt(profile, memories),
		UserText:     req.Message,
		Provider:     provider,
		Model:        model,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("%s completion: %w", provider, err)
	}

	emotion := DetectEmotion(text)
	if err := s.appendMessages(ctx, req.UserID, s.newMessage(RoleAssistant, text, emotion)); err != nil {
		return Reply{}, err
	}
	return Reply{Message: text, Emotion: emotion, Provider: provider, Model: model}, nil
}

func (s *Service) diagnosticReply(ctx context.Context, req Request) (Reply, error) {
	report := s.diag.RunHealthProbe(ctx)
	text := s.diag.SelfAnalysis() + "\n\n" + diagnostics.DescribeReport(report)
	if n := len(report.Errors); n > 0 {
		text += fmt.Sprintf("\nRecent errors: %d logged.", n)
	}

	if err := s.appendMessages(ctx, req.UserID,
		s.newMessage(RoleUser, req.Message, ""),
		s.newMessage(RoleAssistant, text, EmotionThinking),
	); err != nil {
		return Reply{}, err
	}
	return Reply{Message: text, Emotion: EmotionThinking, Diagnostic: &report}, nil
}

// GenerateImage creates one image from a prompt and records the exchange in
// the user's conversation.
func (s *Service) GenerateImage(ctx context.Context, req ImageRequest) (ImageResult, error) {
	if req.UserID == "" || req.Prompt == "" {
		return ImageResult{}, fmt.Errorf("%w: user_id and prompt are required", ErrInvalidRequest)
	}
	if s.images == nil {
		return ImageResult{}, providers.ErrNotConfigured
	}
	model := req.Model
	if model == "" {
		model = s.cfg.ImageModel
	}

	images, err := s.images.Generate(ctx, req.Prompt, model, 1)
	if err == nil && len(images) == 0 {
		err = errors.New("no image was generated")
	}
	if err != nil {
		if s.diag != nil {
			s.diag.LogError("Image Generation Error", err.Error(), "")
		}
		return ImageResult{}, fmt.Errorf("generate image: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(images[0])
	answer := s.newMessage(RoleAssistant, "I've created the image for you.", EmotionExcited)
	answer.ImageData = encoded
	if err := s.appendMessages(ctx, req.UserID,
		s.newMessage(RoleUser, "Generate an image: "+req.Prompt, ""),
		answer,
	); err != nil {
		return ImageResult{}, err
	}

	if _, err := s.store.InsertOne(ctx, store.CollectionGeneratedMedia, store.Document{
		"user_id":    req.UserID,
		"prompt":     req.Prompt,
		"model":      model,
		"size_bytes": len(images[0]),
		"created_at": s.timestamp(),
	}); err != nil {
		log.WithError(err).Warn("failed to record generated image")
	}
	return ImageResult{ImageBase64: encoded, Message: "Image generated successfully"}, nil
}
