// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/traylinx/arya/internal/app"
	"github.com/traylinx/arya/internal/scheduler"
)

// BackgroundStatusHandler handles GET /api/background/status.
func BackgroundStatusHandler(s *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.Status())
	}
}

// BackgroundStartHandler handles POST /api/background/start. Starting a
// running scheduler is not an error; "changed" reports whether it was.
func BackgroundStartHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		changed, err := a.StartScheduler()
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"changed": changed, "status": a.Scheduler.Status()})
	}
}

// BackgroundStopHandler handles POST /api/background/stop. In-flight runs
// finish on their own.
func BackgroundStopHandler(s *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		changed := s.Stop()
		c.JSON(http.StatusOK, gin.H{"changed": changed, "status": s.Status()})
	}
}

// BackgroundRunHandler handles POST /api/background/run/:id and runs one job
// synchronously.
func BackgroundRunHandler(s *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := s.RunNow(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}
