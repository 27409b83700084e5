// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/traylinx/arya/internal/chat"
)

// ChatHandler handles POST /api/chat.
func ChatHandler(svc *chat.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req chat.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		reply, err := svc.Chat(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, reply)
	}
}

// SaveMemoryHandler handles POST /api/memories.
func SaveMemoryHandler(svc *chat.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in chat.MemoryInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err)
			return
		}
		status, mem, err := svc.SaveMemory(c.Request.Context(), in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": status, "memory": mem})
	}
}

// MemoriesHandler handles GET /api/memories/:user_id.
func MemoriesHandler(svc *chat.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		mems, err := svc.Memories(c.Request.Context(), c.Param("user_id"), queryInt(c, "limit", 0))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"memories": mems})
	}
}

// HistoryHandler handles GET /api/history/:user_id.
func HistoryHandler(svc *chat.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		msgs, err := svc.History(c.Request.Context(), c.Param("user_id"), queryInt(c, "limit", 0))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": msgs})
	}
}

// ClearHistoryHandler handles DELETE /api/history/:user_id.
func ClearHistoryHandler(svc *chat.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.ClearHistory(c.Request.Context(), c.Param("user_id")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "cleared"})
	}
}

// ProfileHandler handles GET /api/profile/:user_id.
func ProfileHandler(svc *chat.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svc.Profile(c.Request.Context(), c.Param("user_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// UpdateProfileHandler handles POST /api/profile.
func UpdateProfileHandler(svc *chat.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var u chat.ProfileUpdate
		if err := c.ShouldBindJSON(&u); err != nil {
			badRequest(c, err)
			return
		}
		p, err := svc.UpdateProfile(c.Request.Context(), u)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// GenerateImageHandler handles POST /api/generate-image.
func GenerateImageHandler(svc *chat.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req chat.ImageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		res, err := svc.GenerateImage(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
