// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package voice

import (
	"errors"
	"fmt"
)

// ErrNoCandidates is returned when there is nothing to choose from.
var ErrNoCandidates = errors.New("voice: no candidates")

// Candidate is one voice considered by the autonomous selection. Scores are
// on a 0-10 scale.
type Candidate struct {
	Name            string  `json:"name"`
	ID              string  `json:"id"`
	Description     string  `json:"description,omitempty"`
	Clarity         float64 `json:"clarity"`
	Warmth          float64 `json:"warmth"`
	Professionalism float64 `json:"professionalism"`
}

// Weights balances the three scores.
type Weights struct {
	Clarity         float64 `json:"clarity"`
	Warmth          float64 `json:"warmth"`
	Professionalism float64 `json:"professionalism"`
}

// DefaultCandidates is the built-in shortlist.
var DefaultCandidates = []Candidate{
	{Name: "Rachel", ID: "21m00Tcm4TlvDq8ikWAM", Description: "Neutral, professional, clear", Clarity: 9, Warmth: 8, Professionalism: 9},
	{Name: "Bella", ID: "EXAVITQu4vr4xnSDxMaL", Description: "Soft, empathetic, gentle", Clarity: 8, Warmth: 10, Professionalism: 7},
	{Name: "Dorothy", ID: "ThT5KcBeYPX3keUQqHPh", Description: "Mature, confident, articulate", Clarity: 9, Warmth: 7, Professionalism: 10},
}

// DefaultWeights favours clarity.
var DefaultWeights = Weights{Clarity: 0.4, Warmth: 0.3, Professionalism: 0.3}

// Score is the weighted average of the candidate's scores. Weights that sum
// to zero fall back to DefaultWeights.
func (w Weights) Score(c Candidate) float64 {
	total := w.Clarity + w.Warmth + w.Professionalism
	if total <= 0 {
		w, total = DefaultWeights, 1
	}
	return (c.Clarity*w.Clarity + c.Warmth*w.Warmth + c.Professionalism*w.Professionalism) / total
}

// Selection is the outcome of SelectVoice.
type Selection struct {
	Voice     Candidate          `json:"selected_voice"`
	Score     float64            `json:"score"`
	Scores    map[string]float64 `json:"scores"`
	Evaluated []Candidate        `json:"voices_evaluated"`
	Reasoning string             `json:"reasoning"`
}

// scoreEpsilon absorbs float rounding so equal weighted scores tie.
const scoreEpsilon = 1e-9

// SelectVoice picks the highest-scoring candidate. Ties keep the earlier one.
func SelectVoice(candidates []Candidate, w Weights) (Selection, error) {
	if len(candidates) == 0 {
		return Selection{}, ErrNoCandidates
	}

	sel := Selection{
		Scores:    make(map[string]float64, len(candidates)),
		Evaluated: append([]Candidate(nil), candidates...),
	}
	best := -1
	for i, c := range candidates {
		score := w.Score(c)
		sel.Scores[c.Name] = score
		if best < 0 || score > sel.Score+scoreEpsilon {
			best, sel.Score = i, score
		}
	}
	sel.Voice = candidates[best]
	sel.Reasoning = fmt.Sprintf(
		"Selected %s based on its balance of clarity (%g/10), warmth (%g/10) and professionalism (%g/10).",
		sel.Voice.Name, sel.Voice.Clarity, sel.Voice.Warmth, sel.Voice.Professionalism)
	return sel, nil
}
