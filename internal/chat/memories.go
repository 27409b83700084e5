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

// Memory write outcomes.
const (
	MemoryCreated = "created"
	MemoryUpdated = "updated"
)

const defaultImportance = 5

// SaveMemory stores a memory. An existing memory with the same user and key
// is updated in place and its accessed_count incremented.
func (s *Service) SaveMemory(ctx context.Context, in MemoryInput) (string, Memory, error) {
	if in.UserID == "" || in.Key == "" {
		return "", Memory{}, fmt.Errorf("%w: user_id and key are required", ErrInvalidRequest)
	}
	if in.Importance == 0 {
		in.Importance = defaultImportance
	}
	if in.Importance < 1 || in.Importance > 10 {
		return "", Memory{}, fmt.Errorf("%w: importance must be between 1 and 10", ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.timestamp()
	filter := store.Where(store.Eq("user_id", in.UserID), store.Eq("key", in.Key))

	existing, err := s.store.FindOne(ctx, store.CollectionMemories, filter)
	switch {
	case err == nil:
		set := store.Document{"value": in.Value, "importance": in.Importance, "updated_at": now}
		if in.MemoryType != "" {
			set["memory_type"] = in.MemoryType
		}
		if _, err := s.store.UpdateOne(ctx, store.CollectionMemories,
			store.Where(store.Eq(store.IDField, existing.ID())),
			store.Update{Set: set, Inc: map[string]float64{"accessed_count": 1}}); err != nil {
			return "", Memory{}, fmt.Errorf("update memory: %w", err)
		}
		updated, err := s.store.FindOne(ctx, store.CollectionMemories, store.Where(store.Eq(store.IDField, existing.ID())))
		if err != nil {
			return "", Memory{}, fmt.Errorf("reload memory: %w", err)
		}
		var m Memory
		if err := fromDocument(updated, &m); err != nil {
			return "", Memory{}, err
		}
		return MemoryUpdated, m, nil
	case !errors.Is(err, store.ErrNotFound):
		return "", Memory{}, fmt.Errorf("find memory: %w", err)
	}

	m := Memory{
		ID:         store.NewID(),
		UserID:     in.UserID,
		MemoryType: in.MemoryType,
		Key:        in.Key,
		Value:      in.Value,
		Importance: in.Importance,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	doc, err := toDocument(m)
	if err != nil {
		return "", Memory{}, err
	}
	if _, err := s.store.InsertOne(ctx, store.CollectionMemories, doc); err != nil {
		return "", Memory{}, fmt.Errorf("create memory: %w", err)
	}
	return MemoryCreated, m, nil
}

// Memories lists a user's memories, most important first, then most recent.
func (s *Service) Memories(ctx context.Context, userID string, limit int) ([]Memory, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}
	if limit <= 0 {
		limit = s.cfg.MemoryLimit
	}
	docs, err := s.store.Find(ctx, store.CollectionMemories, store.Where(store.Eq("user_id", userID)), store.FindOptions{
		Sort:  []store.SortField{{Field: "importance", Desc: true}, {Field: "updated_at", Desc: true}},
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	out := make([]Memory, 0, len(docs))
	for _, doc := range docs {
		var m Memory
		if err := fromDocument(doc, &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
