// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chat

import (
	"time"

	"github.com/traylinx/arya/internal/diagnostics"
	"github.com/traylinx/arya/internal/store"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Emotion   string    `json:"emotion,omitempty"`
	ImageData string    `json:"image_data,omitempty"`
}

// Conversation is the per-user message history.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Memory is a fact the assistant keeps about a user.
type Memory struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	MemoryType    string    `json:"memory_type"`
	Key           string    `json:"key"`
	Value         string    `json:"value"`
	Importance    int       `json:"importance"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	AccessedCount int       `json:"accessed_count"`
}

// MemoryInput creates or updates a memory keyed by user and key.
type MemoryInput struct {
	UserID     string `json:"user_id" binding:"required"`
	MemoryType string `json:"memory_type"`
	Key        string `json:"key" binding:"required"`
	Value      string `json:"value"`
	Importance int    `json:"importance"`
}

// Profile holds per-user preferences.
type Profile struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	Name         string            `json:"name,omitempty"`
	Preferences  map[string]any    `json:"preferences"`
	Personality  map[string]string `json:"personality_settings"`
	Avatar       map[string]string `json:"avatar_settings"`
	LLMProvider  string            `json:"llm_provider"`
	LLMModel     string            `json:"llm_model"`
	VoiceEnabled bool              `json:"voice_enabled"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (p Profile) clone() Profile {
	out := p
	out.Preferences = make(map[string]any, len(p.Preferences))
	for k, v := range p.Preferences {
		out.Preferences[k] = v
	}
	out.Personality = cloneStrings(p.Personality)
	out.Avatar = cloneStrings(p.Avatar)
	return out
}

func cloneStrings(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ProfileUpdate merges into an existing profile. Nil and empty fields are
// left unchanged; maps are merged key by key.
type ProfileUpdate struct {
	UserID       string            `json:"user_id" binding:"required"`
	Name         string            `json:"name"`
	Preferences  map[string]any    `json:"preferences"`
	Personality  map[string]string `json:"personality_settings"`
	Avatar       map[string]string `json:"avatar_settings"`
	LLMProvider  string            `json:"llm_provider"`
	LLMModel     string            `json:"llm_model"`
	VoiceEnabled *bool             `json:"voice_enabled"`
}

// Request is a chat turn.
type Request struct {
	UserID   string `json:"user_id" binding:"required"`
	Message  string `json:"message" binding:"required"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Reply is the assistant's answer to a chat turn.
type Reply struct {
	Message    string                        `json:"message"`
	Emotion    string                        `json:"emotion"`
	Provider   string                        `json:"provider,omitempty"`
	Model      string                        `json:"model,omitempty"`
	Diagnostic *diagnostics.DiagnosticReport `json:"diagnostic_data,omitempty"`
}

// ImageRequest asks for a generated image.
type ImageRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Prompt string `json:"prompt" binding:"required"`
	Model  string `json:"model"`
}

// ImageResult carries a generated image.
type ImageResult struct {
	ImageBase64 string `json:"image_base64"`
	Message     string `json:"message"`
}

// toDocument encodes a record whose "id" JSON field becomes the document id.
func toDocument(v any) (store.Document, error) {
	doc, err := store.Encode(v)
	if err != nil {
		return nil, err
	}
	if id, ok := doc["id"].(string); ok && id != "" {
		doc[store.IDField] = id
	}
	delete(doc, "id")
	return doc, nil
}

// fromDocument decodes a stored document into a record with an "id" field.
func fromDocument(doc store.Document, v any) error {
	cp := make(store.Document, len(doc))
	for k, val := range doc {
		cp[k] = val
	}
	cp["id"] = doc.ID()
	delete(cp, store.IDField)
	return store.Decode(cp, v)
}
