package voice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traylinx/arya/internal/providers"
	"github.com/traylinx/arya/internal/store"
)

type fakeSynth struct {
	cloneID  string
	cloneErr error
	spoken   []string
	voices   []string
}

func (f *fakeSynth) Synthesize(_ context.Context, text, voiceID string) ([]byte, error) {
	f.spoken = append(f.spoken, text)
	f.voices = append(f.voices, voiceID)
	return []byte("mp3:" + text), nil
}

func (f *fakeSynth) CloneVoice(_ context.Context, name, filename string, sample []byte) (string, error) {
	return f.cloneID, f.cloneErr
}

type fakeSearch struct{ calls int }

func (f *fakeSearch) Search(context.Context, string, int) ([]providers.SearchResult, error) {
	f.calls++
	if f.calls == 2 {
		return nil, errors.New("rate limited")
	}
	return []providers.SearchResult{{Title: "x"}}, nil
}

func TestSelectVoiceDefaults(t *testing.T) {
	sel, err := SelectVoice(DefaultCandidates, DefaultWeights)
	require.NoError(t, err)
	// Rachel and Dorothy tie at 8.7; the earlier candidate wins.
	assert.Equal(t, "Rachel", sel.Voice.Name)
	assert.InDelta(t, 8.7, sel.Score, 1e-9)
	assert.InDelta(t, 8.3, sel.Scores["Bella"], 1e-9)
	assert.Len(t, sel.Evaluated, 3)
	assert.Contains(t, sel.Reasoning, "Rachel")
}

func TestSelectVoiceWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		want    string
	}{
		{"warmth", Weights{Warmth: 1}, "Bella"},
		{"professionalism", Weights{Professionalism: 1}, "Dorothy"},
		{"zero falls back", Weights{}, "Rachel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := SelectVoice(DefaultCandidates, tt.weights)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sel.Voice.Name)
		})
	}

	_, err := SelectVoice(nil, DefaultWeights)
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestSynthesizeRequiresVoice(t *testing.T) {
	synth := &fakeSynth{}
	s := NewService(store.NewMemory(), synth, nil, nil, Weights{})

	_, _, err := s.Synthesize(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrVoiceNotEstablished)
	assert.Empty(t, synth.spoken)
}

func TestCloneEstablishesAndPersists(t *testing.T) {
	st := store.NewMemory()
	synth := &fakeSynth{cloneID: "cloned-1"}
	s := NewService(st, synth, nil, nil, Weights{})
	ctx := context.Background()

	id, err := s.Clone(ctx, "", "sample.mp3", []byte("audio"))
	require.NoError(t, err)
	assert.Equal(t, "cloned-1", id)

	audio, used, err := s.Synthesize(ctx, "hi")
	require.NoError(t, err)
	assert.Equal(t, "cloned-1", used)
	assert.Equal(t, []byte("mp3:hi"), audio)

	// A fresh service over the same store picks the id up from system_config.
	other := NewService(st, synth, nil, nil, Weights{})
	got, err := other.VoiceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cloned-1", got)
}

func TestCloneFailures(t *testing.T) {
	ctx := context.Background()

	s := NewService(store.NewMemory(), nil, nil, nil, Weights{})
	_, err := s.Clone(ctx, "Arya", "a.mp3", []byte("x"))
	assert.ErrorIs(t, err, providers.ErrNotConfigured)

	synth := &fakeSynth{cloneErr: errors.New("quota exceeded")}
	s = NewService(store.NewMemory(), synth, nil, nil, Weights{})
	_, err = s.Clone(ctx, "Arya", "a.mp3", []byte("x"))
	assert.EqualError(t, err, "quota exceeded")
	id, err := s.VoiceID(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	_, err = s.Clone(ctx, "Arya", "a.mp3", nil)
	assert.Error(t, err)
}

func TestAutonomousSelection(t *testing.T) {
	st := store.NewMemory()
	search := &fakeSearch{}
	s := NewService(st, &fakeSynth{}, search, nil, Weights{})
	ctx := context.Background()

	research, err := s.AutonomousSelection(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Rachel", research.Voice.Name)
	require.Len(t, research.Searches, len(ResearchQueries))
	assert.Equal(t, "rate limited", research.Searches[1].Error)
	assert.Equal(t, 1, research.Searches[0].Results)

	id, err := s.VoiceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "21m00Tcm4TlvDq8ikWAM", id)

	choice, err := st.FindOne(ctx, store.CollectionSystemConfig, store.Where(store.Eq("key", "arya_autonomous_voice_choice")))
	require.NoError(t, err)
	value := choice["value"].(map[string]any)
	assert.Equal(t, "Rachel", value["name"])
	assert.NotNil(t, choice["research_log"])

	// Running again updates the same entries.
	_, err = s.AutonomousSelection(ctx)
	require.NoError(t, err)
	n, err := st.Count(ctx, store.CollectionSystemConfig, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
