// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/traylinx/arya/internal/store"
)

// History returns the last limit messages of the user's conversation.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]Message, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}
	if limit <= 0 {
		limit = s.cfg.HistoryLimit
	}
	conv, err := s.conversation(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return []Message{}, nil
	}
	if err != nil {
		return nil, err
	}
	msgs := conv.Messages
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

// ClearHistory deletes the user's conversation.
func (s *Service) ClearHistory(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.store.DeleteMany(ctx, store.CollectionConversations, store.Where(store.Eq("user_id", userID))); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (s *Service) conversation(ctx context.Context, userID string) (Conversation, error) {
	doc, err := s.store.FindOne(ctx, store.CollectionConversations, store.Where(store.Eq("user_id", userID)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Conversation{}, err
		}
		return Conversation{}, fmt.Errorf("load conversation: %w", err)
	}
	var conv Conversation
	if err := fromDocument(doc, &conv); err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

func (s *Service) newMessage(role, content, emotion string) Message {
	return Message{ID: store.NewID(), Role: role, Content: content, Timestamp: s.timestamp(), Emotion: emotion}
}

// appendMessages adds messages to the user's conversation, creating it on
// first use.
func (s *Service) appendMessages(ctx context.Context, userID string, msgs ...Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.timestamp()

	conv, err := s.conversation(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		conv = Conversation{ID: store.NewID(), UserID: userID, Messages: msgs, CreatedAt: now, UpdatedAt: now}
		doc, err := toDocument(conv)
		if err != nil {
			return err
		}
		if _, err := s.store.InsertOne(ctx, store.CollectionConversations, doc); err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
		return nil
	}
	if err != nil {
		return err
	}

	conv.Messages = append(conv.Messages, msgs...)
	doc, err := toDocument(Conversation{Messages: conv.Messages})
	if err != nil {
		return err
	}
	if _, err := s.store.UpdateOne(ctx, store.CollectionConversations,
		store.Where(store.Eq(store.IDField, conv.ID)),
		store.Update{Set: store.Document{"messages": doc["messages"], "updated_at": now}}); err != nil {
		return fmt.Errorf("append messages: %w", err)
	}
	return nil
}
