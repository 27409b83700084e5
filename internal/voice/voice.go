// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package voice manages the assistant's speaking voice: the established voice
// id, cloning from a sample, synthesis and the autonomous voice choice.
package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/traylinx/arya/internal/providers"
	"github.com/traylinx/arya/internal/store"
)

// ErrVoiceNotEstablished is returned by Synthesize before a voice has been
// cloned, selected or loaded from storage.
var ErrVoiceNotEstablished = errors.New("voice: no voice established")

// system_config keys.
const (
	VoiceIDKey     = "voice_id"
	ChoiceKey      = "arya_autonomous_voice_choice"
	DefaultName    = "Arya"
	researchResult = 3
)

// ResearchQueries are searched before an autonomous selection when a search
// capability is available.
var ResearchQueries = []string{
	"best AI voice samples female elegant",
	"professional female AI voice demo samples",
	"natural sounding AI voice female samples",
	"ElevenLabs voice library samples",
}

// Searcher is the optional research capability.
type Searcher interface {
	Search(ctx context.Context, query string, max int) ([]providers.SearchResult, error)
}

// SearchLog records one research query.
type SearchLog struct {
	Query   string `json:"query"`
	Results int    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// Research is the log of an autonomous selection.
type Research struct {
	StartedAt time.Time   `json:"started_at"`
	Searches  []SearchLog `json:"searches"`
	Selection
}

// Service holds the established voice id.
type Service struct {
	store      store.DocumentStore
	synth      providers.SpeechSynthesizer
	search     Searcher
	candidates []Candidate
	weights    Weights
	now        func() time.Time

	mu      sync.RWMutex
	voiceID string
}

// NewService creates a voice service. synth and search may be nil; an empty
// candidate list uses DefaultCandidates.
func NewService(st store.DocumentStore, synth providers.SpeechSynthesizer, search Searcher, candidates []Candidate, w Weights) *Service {
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}
	if w.Clarity+w.Warmth+w.Professionalism <= 0 {
		w = DefaultWeights
	}
	return &Service{
		store:      st,
		synth:      synth,
		search:     search,
		candidates: append([]Candidate(nil), candidates...),
		weights:    w,
		now:        time.Now,
	}
}

// VoiceID returns the established voice id, loading it from system_config
// on first use. An empty id with a nil error means no voice is established.
func (s *Service) VoiceID(ctx context.Context) (string, error) {
	s.mu.RLock()
	id := s.voiceID
	s.mu.RUnlock()
	if id != "" {
		return id, nil
	}

	doc, err := s.store.FindOne(ctx, store.CollectionSystemConfig, store.Where(store.Eq("key", VoiceIDKey)))
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load voice id: %w", err)
	}
	id = doc.String("value")

	s.mu.Lock()
	if s.voiceID == "" {
		s.voiceID = id
	}
	id = s.voiceID
	s.mu.Unlock()
	return id, nil
}

// SetVoiceID establishes and persists a voice id.
func (s *Service) SetVoiceID(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("voice: empty voice id")
	}
	if err := s.putConfig(ctx, VoiceIDKey, id, nil); err != nil {
		return err
	}
	s.mu.Lock()
	s.voiceID = id
	s.mu.Unlock()
	return nil
}

// Clone creates a voice from an audio sample and establishes it.
func (s *Service) Clone(ctx context.Context, name, filename string, sample []byte) (string, error) {
	if s.synth == nil {
		return "", providers.ErrNotConfigured
	}
	if len(sample) == 0 {
		return "", fmt.Errorf("voice: empty sample")
	}
	if name == "" {
		name = DefaultName
	}
	id, err := s.synth.CloneVoice(ctx, name, filename, sample)
	if err != nil {
		return "", err
	}
	if err := s.SetVoiceID(ctx, id); err != nil {
		return "", err
	}
	log.WithField("voice_id", id).Info("voice cloned")
	return id, nil
}

// Synthesize speaks text with the established voice.
func (s *Service) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	id, err := s.VoiceID(ctx)
	if err != nil {
		return nil, "", err
	}
	if id == "" {
		return nil, "", ErrVoiceNotEstablished
	}
	if s.synth == nil {
		return nil, id, providers.ErrNotConfigured
	}
	audio, err := s.synth.Synthesize(ctx, text, id)
	if err != nil {
		return nil, id, err
	}
	return audio, id, nil
}

// AutonomousSelection researches voice options, picks one with SelectVoice,
// persists the decision and establishes the chosen voice. Research failures
// are recorded in the log and do not stop the selection.
func (s *Service) AutonomousSelection(ctx context.Context) (Research, error) {
	research := Research{StartedAt: s.now().UTC(), Searches: []SearchLog{}}
	if s.search != nil {
		for _, q := range ResearchQueries {
			entry := SearchLog{Query: q}
			results, err := s.search.Search(ctx, q, researchResult)
			if err != nil {
				entry.Error = err.Error()
			}
			entry.Results = len(results)
			research.Searches = append(research.Searches, entry)
		}
	}

	sel, err := SelectVoice(s.candidates, s.weights)
	if err != nil {
		return research, err
	}
	research.Selection = sel

	extra := store.Document{"research_log": research}
	if err := s.putConfig(ctx, ChoiceKey, sel.Voice, extra); err != nil {
		return research, err
	}
	if err := s.SetVoiceID(ctx, sel.Voice.ID); err != nil {
		return research, err
	}
	log.WithFields(log.Fields{"voice": sel.Voice.Name, "score": sel.Score}).Info("voice selected autonomously")
	return research, nil
}

func (s *Service) putConfig(ctx context.Context, key string, value any, extra store.Document) error {
	set := store.Document{"key": key, "value": value, "updated_at": s.now()}
	for k, v := range extra {
		set[k] = v
	}
	_, err := s.store.UpdateOne(ctx, store.CollectionSystemConfig,
		store.Where(store.Eq("key", key)),
		store.Update{Set: set, Upsert: true})
	if err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}
