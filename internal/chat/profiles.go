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

func (s *Service) defaultProfile(userID string) Profile {
	now := s.timestamp()
	return Profile{
		ID:           store.NewID(),
		UserID:       userID,
		Preferences:  map[string]any{},
		Personality:  map[string]string{"tone": "friendly", "formality": "casual", "verbosity": "balanced"},
		Avatar:       map[string]string{"style": "holographic", "color_scheme": "blue"},
		LLMProvider:  s.cfg.DefaultProvider,
		LLMModel:     s.cfg.DefaultModel,
		VoiceEnabled: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Profile returns the user's profile, creating one with defaults on first use.
func (s *Service) Profile(ctx context.Context, userID string) (Profile, error) {
	if userID == "" {
		return Profile{}, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}
	if p, ok := s.profiles.Get(userID); ok {
		return p.clone(), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.loadOrCreateProfile(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	s.profiles.Add(userID, p)
	return p.clone(), nil
}

// loadOrCreateProfile must be called with s.mu held.
func (s *Service) loadOrCreateProfile(ctx context.Context, userID string) (Profile, error) {
	doc, err := s.store.FindOne(ctx, store.CollectionProfiles, store.Where(store.Eq("user_id", userID)))
	switch {
	case err == nil:
		var p Profile
		if err := fromDocument(doc, &p); err != nil {
			return Profile{}, fmt.Errorf("decode profile: %w", err)
		}
		fillProfileDefaults(&p, s.defaultProfile(userID))
		return p, nil
	case !errors.Is(err, store.ErrNotFound):
		return Profile{}, fmt.Errorf("load profile: %w", err)
	}

	p := s.defaultProfile(userID)
	doc, err = toDocument(p)
	if err != nil {
		return Profile{}, err
	}
	if _, err := s.store.InsertOne(ctx, store.CollectionProfiles, doc); err != nil {
		return Profile{}, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}

func fillProfileDefaults(p *Profile, def Profile) {
	if p.Preferences == nil {
		p.Preferences = map[string]any{}
	}
	if p.Personality == nil {
		p.Personality = def.Personality
	}
	if p.Avatar == nil {
		p.Avatar = def.Avatar
	}
	if p.LLMProvider == "" {
		p.LLMProvider = def.LLMProvider
	}
	if p.LLMModel == "" {
		p.LLMModel = def.LLMModel
	}
}

// UpdateProfile merges u into the user's profile and returns the result.
func (s *Service) UpdateProfile(ctx context.Context, u ProfileUpdate) (Profile, error) {
	if u.UserID == "" {
		return Profile{}, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.loadOrCreateProfile(ctx, u.UserID)
	if err != nil {
		return Profile{}, err
	}
	p = p.clone()

	if u.Name != "" {
		p.Name = u.Name
	}
	for k, v := range u.Preferences {
		p.Preferences[k] = v
	}
	for k, v := range u.Personality {
		p.Personality[k] = v
	}
	for k, v := range u.Avatar {
		p.Avatar[k] = v
	}
	if u.LLMProvider != "" {
		p.LLMProvider = u.LLMProvider
	}
	if u.LLMModel != "" {
		p.LLMModel = u.LLMModel
	}
	if u.VoiceEnabled != nil {
		p.VoiceEnabled = *u.VoiceEnabled
	}
	p.UpdatedAt = s.timestamp()

	doc, err := toDocument(p)
	if err != nil {
		return Profile{}, err
	}
	if _, err := s.store.UpdateOne(ctx, store.CollectionProfiles,
		store.Where(store.Eq(store.IDField, p.ID)),
		store.Update{Set: doc}); err != nil {
		return Profile{}, fmt.Errorf("update profile: %w", err)
	}
	s.profiles.Add(u.UserID, p)
	return p.clone(), nil
}
