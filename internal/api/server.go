// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api exposes the assistant over HTTP with gin.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/traylinx/arya/internal/app"
	"github.com/traylinx/arya/internal/logging"
)

// Server is the HTTP front end.
type Server struct {
	app    *app.App
	engine *gin.Engine
	http   *http.Server
}

// NewServer builds the gin engine and registers every route.
func NewServer(a *app.App) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), logging.RequestID(), a.Metrics.Middleware(), RequestCounter(a.Diagnostics))

	s := &Server{app: a, engine: engine}
	s.setupRoutes()
	s.http = &http.Server{
		Addr:              a.Config().Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) setupRoutes() {
	a := s.app
	manage := Management(a.Config)

	s.engine.GET("/metrics", gin.WrapH(a.Metrics.Handler()))

	v := s.engine.Group("/api")
	v.GET("/", Root(a.Diagnostics))

	v.POST("/chat", ChatHandler(a.Chat))
	v.POST("/memories", SaveMemoryHandler(a.Chat))
	v.GET("/memories/:user_id", MemoriesHandler(a.Chat))
	v.GET("/history/:user_id", HistoryHandler(a.Chat))
	v.DELETE("/history/:user_id", ClearHistoryHandler(a.Chat))
	v.POST("/profile", UpdateProfileHandler(a.Chat))
	v.GET("/profile/:user_id", ProfileHandler(a.Chat))
	v.POST("/generate-image", GenerateImageHandler(a.Chat))

	v.GET("/diagnostics", DiagnosticsHandler(a.Diagnostics))
	v.GET("/health", HealthHandler(a.Diagnostics))
	v.GET("/errors", ErrorsHandler(a.Diagnostics))
	v.POST("/self-repair", manage, SelfRepairHandler(a.Diagnostics))

	v.POST("/voice/clone", CloneVoiceHandler(a.Voice))
	v.GET("/voice/id", VoiceIDHandler(a.Voice))
	v.POST("/voice/generate", SynthesizeHandler(a.Voice))
	v.POST("/voice/autonomous-selection", AutonomousVoiceHandler(a.Voice))

	v.POST("/internet/search", SearchHandler(a.Search))
	v.GET("/internet/scrape", ScrapeHandler(a.Search))

	bg := v.Group("/background")
	bg.GET("/status", BackgroundStatusHandler(a.Scheduler))
	bg.POST("/start", manage, BackgroundStartHandler(a))
	bg.POST("/stop", manage, BackgroundStopHandler(a.Scheduler))
	bg.POST("/run/:id", manage, BackgroundRunHandler(a.Scheduler))
}

// Start serves until Stop is called. It returns nil after a graceful stop.
func (s *Server) Start() error {
	log.Infof("API server listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains open connections, bounded by ctx.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
