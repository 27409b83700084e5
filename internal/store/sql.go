// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// dialect captures the SQL differences between the JSON-capable backends.
// Each collection is a table of (id TEXT PRIMARY KEY, content JSON).
type dialect interface {
	name() string
	placeholder(n int) string
	createTable(table string) string
	// textExpr extracts a field as text.
	textExpr(field string) string
	// numberExpr extracts a field as a number.
	numberExpr(field string) string
	// sortExpr extracts a field preserving JSON type ordering.
	sortExpr(field string) string
	boolArg(b bool) any
	// forUpdate is appended to the row lock query inside UpdateOne.
	forUpdate() string
}

// SQLStore implements DocumentStore on top of database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect

	mu      sync.Mutex
	ensured map[string]bool
}

func newSQLStore(db *sql.DB, d dialect) *SQLStore {
	return &SQLStore{db: db, dialect: d, ensured: make(map[string]bool)}
}

// DB exposes the underlying handle.
func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// EnsureCollections creates the tables for the given collections.
func (s *SQLStore) EnsureCollections(ctx context.Context, names ...string) error {
	for _, n := range names {
		if err := s.ensure(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) ensure(ctx context.Context, table string) error {
	if !validName(table) {
		return fmt.Errorf("%w: %q", ErrInvalidName, table)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured[table] {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.createTable(table)); err != nil {
		return fmt.Errorf("%s: create table %s: %w", s.dialect.name(), table, err)
	}
	s.ensured[table] = true
	return nil
}

// whereClause renders filter conditions. Arguments are numbered from start.
func (s *SQLStore) whereClause(f Filter, start int) (string, []any, error) {
	if len(f) == 0 {
		return "", nil, nil
	}
	parts := make([]string, 0, len(f))
	args := make([]any, 0, len(f))
	n := start
	next := func(v any) string {
		args = append(args, v)
		p := s.dialect.placeholder(n)
		n++
		return p
	}

	for _, c := range f {
		if c.Op == OpIn {
			values := c.Value.([]any)
			if len(values) == 0 {
				parts = append(parts, "1 = 0")
				continue
			}
			expr := s.valueExpr(c.Field, values[0])
			ph := make([]string, 0, len(values))
			for _, v := range values {
				ph = append(ph, next(s.arg(v)))
			}
			parts = append(parts, fmt.Sprintf("%s IN (%s)", expr, strings.Join(ph, ", ")))
			continue
		}
		if c.Value == nil {
			if c.Op != OpEq {
				return "", nil, fmt.Errorf("%w: null only supports equality", ErrInvalidDocument)
			}
			parts = append(parts, fmt.Sprintf("%s IS NULL", s.dialect.textExpr(c.Field)))
			continue
		}
		var op string
		switch c.Op {
		case OpEq:
			op = "="
		case OpLt:
			op = "<"
		case OpLte:
			op = "<="
		case OpGt:
			op = ">"
		case OpGte:
			op = ">="
		default:
			return "", nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidDocument, c.Op)
		}
		parts = append(parts, fmt.Sprintf("%s %s %s", s.valueExpr(c.Field, c.Value), op, next(s.arg(c.Value))))
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func (s *SQLStore) valueExpr(field string, v any) string {
	if field == IDField {
		return "id"
	}
	if _, ok := v.(float64); ok {
		return s.dialect.numberExpr(field)
	}
	return s.dialect.textExpr(field)
}

func (s *SQLStore) arg(v any) any {
	if b, ok := v.(bool); ok {
		return s.dialect.boolArg(b)
	}
	return v
}

func (s *SQLStore) orderClause(opts FindOptions) (string, error) {
	parts := make([]string, 0, len(opts.Sort)+1)
	for _, sf := range opts.Sort {
		if !validName(sf.Field) {
			return "", fmt.Errorf("%w: %q", ErrInvalidName, sf.Field)
		}
		expr := s.dialect.sortExpr(sf.Field)
		if sf.Field == IDField {
			expr = "id"
		}
		if sf.Desc {
			expr += " DESC"
		}
		parts = append(parts, expr)
	}
	parts = append(parts, "id")
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func (s *SQLStore) Find(ctx context.Context, collection string, filter Filter, opts FindOptions) ([]Document, error) {
	f, err := filter.normalized()
	if err != nil {
		return nil, err
	}
	if err := s.ensure(ctx, collection); err != nil {
		return nil, err
	}
	where, args, err := s.whereClause(f, 1)
	if err != nil {
		return nil, err
	}
	order, err := s.orderClause(opts)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT id, content FROM %s%s%s", collection, where, order)
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: find %s: %w", s.dialect.name(), collection, err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *SQLStore) FindOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	docs, err := s.Find(ctx, collection, filter, FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

func (s *SQLStore) Count(ctx context.Context, collection string, filter Filter) (int64, error) {
	f, err := filter.normalized()
	if err != nil {
		return 0, err
	}
	if err := s.ensure(ctx, collection); err != nil {
		return 0, err
	}
	where, args, err := s.whereClause(f, 1)
	if err != nil {
		return 0, err
	}
	var n int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", collection, where)
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: count %s: %w", s.dialect.name(), collection, err)
	}
	return n, nil
}

func (s *SQLStore) insertQuery(collection string, ignoreConflict bool) string {
	q := fmt.Sprintf("INSERT INTO %s (id, content) VALUES (%s, %s)",
		collection, s.dialect.placeholder(1), s.dialect.placeholder(2))
	if ignoreConflict {
		q += " ON CONFLICT (id) DO NOTHING"
	}
	return q
}

func (s *SQLStore) InsertOne(ctx context.Context, collection string, doc Document) (string, error) {
	norm, err := normalize(doc)
	if err != nil {
		return "", err
	}
	if err := s.ensure(ctx, collection); err != nil {
		return "", err
	}
	content, err := json.Marshal(norm)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if _, err := s.db.ExecContext(ctx, s.insertQuery(collection, false), norm.ID(), string(content)); err != nil {
		return "", fmt.Errorf("%s: insert into %s: %w", s.dialect.name(), collection, err)
	}
	return norm.ID(), nil
}

func (s *SQLStore) InsertMany(ctx context.Context, collection string, docs []Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	if err := s.ensure(ctx, collection); err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin: %w", s.dialect.name(), err)
	}
	defer func() { _ = tx.Rollback() }()

	query := s.insertQuery(collection, true)
	inserted := 0
	for _, d := range docs {
		norm, err := normalize(d)
		if err != nil {
			return 0, err
		}
		content, err := json.Marshal(norm)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		res, err := tx.ExecContext(ctx, query, norm.ID(), string(content))
		if err != nil {
			return 0, fmt.Errorf("%s: insert into %s: %w", s.dialect.name(), collection, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", s.dialect.name(), err)
	}
	return inserted, nil
}

// upsertAttempts bounds the retries after losing an upsert race.
const upsertAttempts = 3

func (s *SQLStore) UpdateOne(ctx context.Context, collection string, filter Filter, update Update) (UpdateResult, error) {
	f, err := filter.normalized()
	if err != nil {
		return UpdateResult{}, err
	}
	if err := s.ensure(ctx, collection); err != nil {
		return UpdateResult{}, err
	}
	where, args, err := s.whereClause(f, 1)
	if err != nil {
		return UpdateResult{}, err
	}

	for attempt := 0; attempt < upsertAttempts; attempt++ {
		result, raced, err := s.updateOnce(ctx, collection, f, where, args, update)
		if err != nil || !raced {
			return result, err
		}
	}
	return UpdateResult{}, fmt.Errorf("%s: upsert into %s: %w", s.dialect.name(), collection, ErrUpsertConflict)
}

// updateOnce runs one update transaction. raced reports that the row an
// upsert wanted to create appeared concurrently; the caller retries so the
// second pass updates it.
func (s *SQLStore) updateOnce(ctx context.Context, collection string, f Filter, where string, args []any, update Update) (result UpdateResult, raced bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return UpdateResult{}, false, fmt.Errorf("%s: begin: %w", s.dialect.name(), err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf("SELECT id, content FROM %s%s ORDER BY id LIMIT 1%s", collection, where, s.dialect.forUpdate())
	row := tx.QueryRowContext(ctx, query, args...)
	current, err := scanDocument(row)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if !update.Upsert {
			return UpdateResult{}, false, nil
		}
		doc, err := applyUpdate(upsertSeed(f), update)
		if err != nil {
			return UpdateResult{}, false, err
		}
		content, err := json.Marshal(doc)
		if err != nil {
			return UpdateResult{}, false, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		res, err := tx.ExecContext(ctx, s.insertQuery(collection, true), doc.ID(), string(content))
		if err != nil {
			return UpdateResult{}, false, fmt.Errorf("%s: upsert into %s: %w", s.dialect.name(), collection, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return UpdateResult{}, true, nil
		}
		result.UpsertedID = doc.ID()
	case err != nil:
		return UpdateResult{}, false, err
	default:
		doc, err := applyUpdate(current, update)
		if err != nil {
			return UpdateResult{}, false, err
		}
		content, err := json.Marshal(doc)
		if err != nil {
			return UpdateResult{}, false, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		q := fmt.Sprintf("UPDATE %s SET content = %s WHERE id = %s",
			collection, s.dialect.placeholder(1), s.dialect.placeholder(2))
		if _, err := tx.ExecContext(ctx, q, string(content), doc.ID()); err != nil {
			return UpdateResult{}, false, fmt.Errorf("%s: update %s: %w", s.dialect.name(), collection, err)
		}
		result.Matched, result.Modified = 1, 1
	}

	if err := tx.Commit(); err != nil {
		return UpdateResult{}, false, fmt.Errorf("%s: commit: %w", s.dialect.name(), err)
	}
	return result, false, nil
}

func (s *SQLStore) DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error) {
	f, err := filter.normalized()
	if err != nil {
		return 0, err
	}
	if err := s.ensure(ctx, collection); err != nil {
		return 0, err
	}
	where, args, err := s.whereClause(f, 1)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s%s", collection, where), args...)
	if err != nil {
		return 0, fmt.Errorf("%s: delete from %s: %w", s.dialect.name(), collection, err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		id      string
		content []byte
	)
	if err := row.Scan(&id, &content); err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("%w: row %s: %v", ErrInvalidDocument, id, err)
	}
	if doc == nil {
		doc = Document{}
	}
	doc[IDField] = id
	return doc, nil
}
