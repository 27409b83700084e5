// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package store provides the document store used for profiles, conversations,
// memories, knowledge and system configuration. Documents are JSON objects
// keyed by an "_id" field and grouped into named collections.
package store

import (
	"context"
	"errors"
	"regexp"
)

// Collection names.
const (
	CollectionProfiles       = "profiles"
	CollectionConversations  = "conversations"
	CollectionMemories       = "memories"
	CollectionMemoryArchive  = "memories_archive"
	CollectionSystemConfig   = "system_config"
	CollectionKnowledge      = "knowledge"
	CollectionGeneratedMedia = "generated_images"
)

// Collections lists every collection the application uses.
var Collections = []string{
	CollectionProfiles,
	CollectionConversations,
	CollectionMemories,
	CollectionMemoryArchive,
	CollectionSystemConfig,
	CollectionKnowledge,
	CollectionGeneratedMedia,
}

var (
	// ErrNotFound is returned by FindOne when no document matches.
	ErrNotFound = errors.New("store: document not found")
	// ErrInvalidDocument is returned for documents or filters that cannot be encoded.
	ErrInvalidDocument = errors.New("store: invalid document")
	// ErrInvalidName is returned for collection or field names outside [A-Za-z0-9_].
	ErrInvalidName = errors.New("store: invalid collection or field name")
	// ErrUpsertConflict is returned when an upsert keeps colliding with a
	// document that no longer matches its filter.
	ErrUpsertConflict = errors.New("store: upsert conflict")
)

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validName(name string) bool { return namePattern.MatchString(name) }

// Op is a filter comparison operator.
type Op string

const (
	OpEq  Op = "eq"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpIn  Op = "in"
)

// Condition compares one top-level field against a value. For OpIn, Value
// holds a []any.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// Filter is a conjunction of conditions. An empty filter matches everything.
type Filter []Condition

func Eq(field string, v any) Condition  { return Condition{Field: field, Op: OpEq, Value: v} }
func Lt(field string, v any) Condition  { return Condition{Field: field, Op: OpLt, Value: v} }
func Lte(field string, v any) Condition { return Condition{Field: field, Op: OpLte, Value: v} }
func Gt(field string, v any) Condition  { return Condition{Field: field, Op: OpGt, Value: v} }
func Gte(field string, v any) Condition { return Condition{Field: field, Op: OpGte, Value: v} }

// In matches documents whose field equals any of values.
func In(field string, values ...any) Condition {
	return Condition{Field: field, Op: OpIn, Value: values}
}

// Where builds a filter from conditions.
func Where(conds ...Condition) Filter { return Filter(conds) }

// SortField orders results by one field.
type SortField struct {
	Field string
	Desc  bool
}

// FindOptions controls ordering and size of a Find. Ties and unsorted
// results are ordered by _id.
type FindOptions struct {
	Sort  []SortField
	Limit int
}

// Update describes a single-document modification.
type Update struct {
	// Set replaces top-level fields.
	Set Document
	// Inc adds to numeric top-level fields, treating missing fields as zero.
	Inc map[string]float64
	// Upsert inserts a document built from the filter's equality conditions,
	// Set and Inc when nothing matches.
	Upsert bool
}

// UpdateResult reports what UpdateOne did.
type UpdateResult struct {
	Matched    int64
	Modified   int64
	UpsertedID string
}

// DocumentStore is the persistence contract shared by all backends.
type DocumentStore interface {
	Ping(ctx context.Context) error
	FindOne(ctx context.Context, collection string, filter Filter) (Document, error)
	Find(ctx context.Context, collection string, filter Filter, opts FindOptions) ([]Document, error)
	Count(ctx context.Context, collection string, filter Filter) (int64, error)
	InsertOne(ctx context.Context, collection string, doc Document) (string, error)
	// InsertMany inserts documents whose _id is not already present and
	// returns how many were inserted.
	InsertMany(ctx context.Context, collection string, docs []Document) (int, error)
	UpdateOne(ctx context.Context, collection string, filter Filter, update Update) (UpdateResult, error)
	DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error)
	Close() error
}
