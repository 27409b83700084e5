// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-process DocumentStore for development and tests. It
// stores the same normalised documents as the SQL backends so behaviour is
// identical across them.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
	closed      bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]Document)}
}

func (m *Memory) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return fmt.Errorf("memory store: closed")
	}
	return ctx.Err()
}

func (m *Memory) collection(name string) (map[string]Document, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	c, ok := m.collections[name]
	if !ok {
		c = make(map[string]Document)
		m.collections[name] = c
	}
	return c, nil
}

func (m *Memory) FindOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	docs, err := m.Find(ctx, collection, filter, FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

func (m *Memory) Find(_ context.Context, collection string, filter Filter, opts FindOptions) ([]Document, error) {
	f, err := filter.normalized()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.collection(collection)
	if err != nil {
		return nil, err
	}

	var out []Document
	for _, doc := range c {
		if matches(doc, f) {
			out = append(out, copyDocument(doc))
		}
	}
	for _, s := range opts.Sort {
		if !validName(s.Field) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidName, s.Field)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		for _, s := range opts.Sort {
			c := compareValues(out[i][s.Field], out[j][s.Field])
			if c == 0 {
				continue
			}
			if s.Desc {
				return c > 0
			}
			return c < 0
		}
		return out[i].ID() < out[j].ID()
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	if out == nil {
		out = []Document{}
	}
	return out, nil
}

func (m *Memory) Count(ctx context.Context, collection string, filter Filter) (int64, error) {
	docs, err := m.Find(ctx, collection, filter, FindOptions{})
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func (m *Memory) InsertOne(_ context.Context, collection string, doc Document) (string, error) {
	norm, err := normalize(doc)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.collection(collection)
	if err != nil {
		return "", err
	}
	if _, exists := c[norm.ID()]; exists {
		return "", fmt.Errorf("memory store: duplicate id %q in %s", norm.ID(), collection)
	}
	c[norm.ID()] = norm
	return norm.ID(), nil
}

func (m *Memory) InsertMany(_ context.Context, collection string, docs []Document) (int, error) {
	normed := make([]Document, 0, len(docs))
	for _, d := range docs {
		n, err := normalize(d)
		if err != nil {
			return 0, err
		}
		normed = append(normed, n)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.collection(collection)
	if err != nil {
		return 0, err
	}
	inserted := 0
	for _, d := range normed {
		if _, exists := c[d.ID()]; exists {
			continue
		}
		c[d.ID()] = d
		inserted++
	}
	return inserted, nil
}

func (m *Memory) UpdateOne(_ context.Context, collection string, filter Filter, update Update) (UpdateResult, error) {
	f, err := filter.normalized()
	if err != nil {
		return UpdateResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.collection(collection)
	if err != nil {
		return UpdateResult{}, err
	}

	var target Document
	for _, doc := range c {
		if matches(doc, f) && (target == nil || doc.ID() < target.ID()) {
			target = doc
		}
	}
	if target == nil {
		if !update.Upsert {
			return UpdateResult{}, nil
		}
		doc, err := applyUpdate(upsertSeed(f), update)
		if err != nil {
			return UpdateResult{}, err
		}
		c[doc.ID()] = doc
		return UpdateResult{UpsertedID: doc.ID()}, nil
	}

	doc, err := applyUpdate(target, update)
	if err != nil {
		return UpdateResult{}, err
	}
	c[doc.ID()] = doc
	return UpdateResult{Matched: 1, Modified: 1}, nil
}

func (m *Memory) DeleteMany(_ context.Context, collection string, filter Filter) (int64, error) {
	f, err := filter.normalized()
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.collection(collection)
	if err != nil {
		return 0, err
	}
	var n int64
	for id, doc := range c {
		if matches(doc, f) {
			delete(c, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func copyDocument(d Document) Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

func matches(doc Document, f Filter) bool {
	for _, c := range f {
		v, present := doc[c.Field]
		switch c.Op {
		case OpEq:
			if c.Value == nil {
				if present && v != nil {
					return false
				}
				continue
			}
			if !present || compareValues(v, c.Value) != 0 || !sameKind(v, c.Value) {
				return false
			}
		case OpIn:
			found := false
			for _, want := range c.Value.([]any) {
				if present && sameKind(v, want) && compareValues(v, want) == 0 {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			if !present || !sameKind(v, c.Value) {
				return false
			}
			cmp := compareValues(v, c.Value)
			switch c.Op {
			case OpLt:
				if cmp >= 0 {
					return false
				}
			case OpLte:
				if cmp > 0 {
					return false
				}
			case OpGt:
				if cmp <= 0 {
					return false
				}
			case OpGte:
				if cmp < 0 {
					return false
				}
			}
		}
	}
	return true
}

func sameKind(a, b any) bool {
	return typeRank(a) == typeRank(b)
}

// typeRank orders values of different JSON types: null < number < string < bool < other.
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case float64:
		return 1
	case string:
		return 2
	case bool:
		return 3
	default:
		return 4
	}
}

func compareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch av := a.(type) {
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	case string:
		bv := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	case bool:
		bv := b.(bool)
		if av == bv {
			return 0
		}
		if !av {
			return -1
		}
		return 1
	}
	return 0
}
