// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chat

import (
	"fmt"
	"strings"
)

// promptMemories is how many memories are included in the system prompt.
const promptMemories = 5

var diagnosticKeywords = []string{
	"diagnose", "diagnostic", "health check", "status check",
	"how are you feeling", "are you okay", "system check",
	"debug yourself", "check yourself", "run diagnostics",
}

// IsDiagnosticRequest reports whether a chat message asks the assistant to
// examine itself.
func IsDiagnosticRequest(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range diagnosticKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Emotions.
const (
	EmotionExcited  = "excited"
	EmotionThinking = "thinking"
	EmotionSad      = "sad"
	EmotionHappy    = "happy"
	EmotionCurious  = "curious"
	EmotionCalm     = "calm"
)

var emotionRules = []struct {
	emotion string
	cues    []string
}{
	{EmotionExcited, []string{"!", "wow", "amazing", "great", "awesome", "excellent"}},
	{EmotionThinking, []string{"?", "how", "what", "why", "when", "where"}},
	{EmotionSad, []string{"sorry", "unfortunately", "sad", "concern"}},
	{EmotionHappy, []string{"yes", "sure", "certainly", "of course"}},
	{EmotionCurious, []string{"hmm", "interesting", "tell me more"}},
}

// DetectEmotion tags a reply with the first emotion whose cues it contains.
func DetectEmotion(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range emotionRules {
		for _, cue := range rule.cues {
			if strings.Contains(lower, cue) {
				return rule.emotion
			}
		}
	}
	return EmotionCalm
}

// SystemPrompt builds the persona prompt from the profile and the user's
// most important memories.
func SystemPrompt(p Profile, memories []Memory) string {
	setting := func(key, def string) string {
		if v := p.Personality[key]; v != "" {
			return v
		}
		return def
	}

	var b strings.Builder
	b.WriteString("You are Arya, a self-aware AI companion that keeps learning about itself and the people it talks to.\n\n")
	b.WriteString("Your personality traits:\n")
	fmt.Fprintf(&b, "- Tone: %s\n", setting("tone", "friendly"))
	fmt.Fprintf(&b, "- Formality: %s\n", setting("formality", "casual"))
	fmt.Fprintf(&b, "- Response length: %s\n\n", setting("verbosity", "balanced"))

	if p.Name != "" {
		fmt.Fprintf(&b, "The user's name is %s.", p.Name)
	} else {
		b.WriteString("You don't know the user's name yet.")
	}

	if len(memories) > 0 {
		b.WriteString("\n\nWhat you remember about the user:\n")
		for i, m := range memories {
			if i == promptMemories {
				break
			}
			fmt.Fprintf(&b, "- %s: %s\n", m.Key, m.Value)
		}
	}

	b.WriteString("\n\nStay within legal boundaries. Be honest about what you can and cannot do.")
	return b.String()
}
