// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides the entry point for the arya server: a conversational
// assistant backend that monitors and repairs itself and runs maintenance
// jobs in the background.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/traylinx/arya/internal/api"
	"github.com/traylinx/arya/internal/app"
	"github.com/traylinx/arya/internal/buildinfo"
	"github.com/traylinx/arya/internal/config"
	"github.com/traylinx/arya/internal/logging"
)

var (
	Version           = "dev"
	Commit            = "none"
	BuildDate         = "unknown"
	DefaultConfigPath = "config.yaml"
)

const shutdownTimeout = 30 * time.Second

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

var credentialPattern = regexp.MustCompile(`(://[^:@/]+):([^@]+)@`)

// redactDSN hides the password of a connection string before it is logged.
func redactDSN(dsn string) string {
	return credentialPattern.ReplaceAllString(dsn, "$1:***@")
}

func main() {
	var (
		configPath  string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", DefaultConfigPath, "Configure File Path")
	flag.BoolVar(&showVersion, "version", false, "Print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(buildinfo.String())
		return
	}

	if err := run(configPath); err != nil {
		log.Fatal(err)
	}
}

func run(configPath string) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	// Load environment variables from .env if present.
	if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil {
		if !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}

	cfg, err := config.LoadConfigOptional(configPath, true)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err = logging.ConfigureLogOutput(cfg.LoggingToFile, cfg.LogsDir); err != nil {
		return fmt.Errorf("failed to configure log output: %w", err)
	}
	logging.SetLevel(cfg.Debug)

	log.Info(buildinfo.String())
	log.WithFields(log.Fields{
		"driver": cfg.Database.Driver,
		"dsn":    redactDSN(cfg.Database.DSN),
	}).Info("opening document store")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	application.Start(ctx)

	watcher := config.NewWatcher(configPath, application.ApplyConfig)
	if errWatch := watcher.Start(); errWatch != nil {
		log.WithError(errWatch).Warn("config hot reload disabled")
	} else {
		defer watcher.Stop()
	}

	server := api.NewServer(application)
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Start() }()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err = <-serveErr:
		if err != nil {
			log.WithError(err).Error("API server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errStop := server.Stop(shutdownCtx); errStop != nil {
		log.WithError(errStop).Warn("API server shutdown incomplete")
	}
	if errClose := application.Close(shutdownCtx); errClose != nil {
		log.WithError(errClose).Warn("application shutdown incomplete")
	}
	log.Info("arya stopped")
	return err
}
