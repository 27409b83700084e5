// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Open creates a DocumentStore for the named driver: "memory", "sqlite" or
// "postgres". SQL backends create every known collection up front.
func Open(ctx context.Context, driver, dsn string) (DocumentStore, error) {
	switch strings.ToLower(driver) {
	case "", "memory":
		log.Warn("using in-memory document store; data will not survive a restart")
		return NewMemory(), nil
	case "sqlite", "sqlite3":
		s, err := OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		if err := ensureAll(ctx, s); err != nil {
			return nil, err
		}
		return s, nil
	case "postgres", "postgresql", "pgx":
		s, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		if err := ensureAll(ctx, s); err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("store: unknown driver %q", driver)
}

func ensureAll(ctx context.Context, s *SQLStore) error {
	if err := s.EnsureCollections(ctx, Collections...); err != nil {
		_ = s.Close()
		return err
	}
	return nil
}
