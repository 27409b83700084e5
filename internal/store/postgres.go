// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
)

type postgresDialect struct{}

func (postgresDialect) name() string                 { return "postgres" }
func (postgresDialect) placeholder(n int) string     { return fmt.Sprintf("$%d", n) }
func (postgresDialect) textExpr(field string) string { return fmt.Sprintf("content->>'%s'", field) }
func (postgresDialect) numberExpr(field string) string {
	return fmt.Sprintf("(content->>'%s')::double precision", field)
}
func (postgresDialect) sortExpr(field string) string { return fmt.Sprintf("content->'%s'", field) }
func (postgresDialect) forUpdate() string            { return " FOR UPDATE" }

func (postgresDialect) boolArg(b bool) any {
	if b {
		return "true"
	}
	return "false"
}

func (postgresDialect) createTable(table string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, content JSONB NOT NULL)", table)
}

// OpenPostgres connects to PostgreSQL through the pgx stdlib driver.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return NewPostgresFromDB(db), nil
}

// NewPostgresFromDB wraps an existing handle using the PostgreSQL dialect.
func NewPostgresFromDB(db *sql.DB) *SQLStore {
	return newSQLStore(db, postgresDialect{})
}
