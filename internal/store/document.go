// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// IDField is the primary key of every document.
const IDField = "_id"

// TimeFormat is the fixed-width UTC layout timestamps are stored in, so that
// string comparison orders them chronologically in every backend.
const TimeFormat = "2006-01-02T15:04:05.000000000Z"

// Document is a JSON object. After a round trip through a store, numbers are
// float64 and timestamps are strings in TimeFormat.
type Document map[string]any

// ID returns the document id.
func (d Document) ID() string {
	s, _ := d[IDField].(string)
	return s
}

// String returns a string field or "".
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Float returns a numeric field or 0.
func (d Document) Float(key string) float64 {
	switch v := d[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Bool returns a boolean field or false.
func (d Document) Bool(key string) bool {
	b, _ := d[key].(bool)
	return b
}

// Time parses a timestamp field. It returns the zero time when absent or malformed.
func (d Document) Time(key string) time.Time {
	switch v := d[key].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err == nil {
			return t
		}
	}
	return time.Time{}
}

// FormatTime renders t in TimeFormat.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// NewID returns a fresh document id.
func NewID() string { return uuid.NewString() }

// Encode converts a value into a Document via its JSON representation.
func Encode(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return normalizeTimes(doc), nil
}

// Decode converts a Document into v via its JSON representation.
func Decode(doc Document, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}

// normalize returns a JSON-clean copy of doc with an id assigned.
func normalize(doc Document) (Document, error) {
	prepared := make(Document, len(doc)+1)
	for k, v := range doc {
		switch t := v.(type) {
		case time.Time:
			prepared[k] = FormatTime(t)
		case *time.Time:
			if t == nil {
				prepared[k] = nil
			} else {
				prepared[k] = FormatTime(*t)
			}
		default:
			prepared[k] = v
		}
	}
	out, err := Encode(prepared)
	if err != nil {
		return nil, err
	}
	if out.ID() == "" {
		out[IDField] = NewID()
	}
	return out, nil
}

// normalizeTimes rewrites top-level RFC 3339 strings into TimeFormat.
func normalizeTimes(doc Document) Document {
	for k, v := range doc {
		s, ok := v.(string)
		if !ok || len(s) < 20 || k == IDField {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			doc[k] = FormatTime(t)
		}
	}
	return doc
}

// normalizeValue converts a filter value into its stored representation:
// float64, string, bool or nil.
func normalizeValue(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool, float64:
		return t, nil
	case time.Time:
		return FormatTime(t), nil
	case int:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case float32:
		return float64(t), nil
	case uint:
		return float64(t), nil
	}
	return nil, fmt.Errorf("%w: unsupported filter value %T", ErrInvalidDocument, v)
}

func (f Filter) normalized() (Filter, error) {
	out := make(Filter, 0, len(f))
	for _, c := range f {
		if !validName(c.Field) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidName, c.Field)
		}
		if c.Op == OpIn {
			values, ok := c.Value.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: In expects []any", ErrInvalidDocument)
			}
			norm := make([]any, 0, len(values))
			for _, v := range values {
				nv, err := normalizeValue(v)
				if err != nil {
					return nil, err
				}
				norm = append(norm, nv)
			}
			out = append(out, Condition{Field: c.Field, Op: OpIn, Value: norm})
			continue
		}
		nv, err := normalizeValue(c.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, Condition{Field: c.Field, Op: c.Op, Value: nv})
	}
	return out, nil
}

// applyUpdate applies Set then Inc to a copy of doc.
func applyUpdate(doc Document, u Update) (Document, error) {
	out := make(Document, len(doc)+len(u.Set)+len(u.Inc))
	for k, v := range doc {
		out[k] = v
	}
	for k, v := range u.Set {
		if k == IDField {
			continue
		}
		out[k] = v
	}
	for k, delta := range u.Inc {
		out[k] = out.Float(k) + delta
	}
	return normalize(out)
}

// upsertNamespace scopes the name-based ids given to upserted documents.
var upsertNamespace = uuid.MustParse("6f1f3c55-4b0e-4a53-9a3e-2f7d0c8e1b21")

// upsertSeed builds the base document for an upsert from equality conditions.
// The id is derived from those conditions, so concurrent upserts with the
// same filter race on the primary key instead of inserting duplicates.
func upsertSeed(f Filter) Document {
	seed := Document{}
	for _, c := range f {
		if c.Op == OpEq {
			seed[c.Field] = c.Value
		}
	}
	if seed.ID() == "" && len(seed) > 0 {
		seed[IDField] = seedID(seed)
	}
	return seed
}

func seedID(seed Document) string {
	keys := make([]string, 0, len(seed))
	for k := range seed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, k, seed[k])
	}
	// values are already normalized to JSON scalars
	raw, _ := json.Marshal(pairs)
	return uuid.NewSHA1(upsertNamespace, raw).String()
}
