// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/traylinx/arya/internal/voice"
)

// maxSampleSize bounds uploaded voice samples.
const maxSampleSize = 20 << 20

// VoiceIDHeader names the voice used for a synthesized response.
const VoiceIDHeader = "X-Voice-ID"

type synthesizeRequest struct {
	Text string `json:"text" binding:"required"`
}

// CloneVoiceHandler handles POST /api/voice/clone. It expects a multipart
// form with an audio_file part and an optional name field.
func CloneVoiceHandler(svc *voice.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, err := c.FormFile("audio_file")
		if err != nil {
			badRequest(c, errors.New("audio_file is required"))
			return
		}
		if fh.Size > maxSampleSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "audio sample is too large"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			respondError(c, err)
			return
		}
		defer f.Close()
		sample, err := io.ReadAll(io.LimitReader(f, maxSampleSize))
		if err != nil {
			respondError(c, err)
			return
		}
		if len(sample) == 0 {
			badRequest(c, errors.New("audio_file is empty"))
			return
		}

		name := strings.TrimSpace(c.PostForm("name"))
		id, err := svc.Clone(c.Request.Context(), name, fh.Filename, sample)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "voice_id": id})
	}
}

// VoiceIDHandler handles GET /api/voice/id.
func VoiceIDHandler(svc *voice.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := svc.VoiceID(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"voice_id": id, "established": id != ""})
	}
}

// SynthesizeHandler handles POST /api/voice/generate and answers with MPEG
// audio. It fails with 412 until a voice has been established.
func SynthesizeHandler(svc *voice.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req synthesizeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		audio, id, err := svc.Synthesize(c.Request.Context(), req.Text)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header(VoiceIDHeader, id)
		c.Data(http.StatusOK, "audio/mpeg", audio)
	}
}

// AutonomousVoiceHandler handles POST /api/voice/autonomous-selection.
func AutonomousVoiceHandler(svc *voice.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		research, err := svc.AutonomousSelection(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, research)
	}
}
