// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ringbuf provides a fixed-capacity circular buffer used for the
// bounded histories kept by the diagnostics and scheduler packages.
package ringbuf

import "sync"

// DefaultSize is used when a non-positive capacity is requested.
const DefaultSize = 100

// Buffer is a thread-safe circular buffer. When full, a write overwrites the
// oldest element, so eviction is O(1) and memory never grows past the capacity.
type Buffer[T any] struct {
	mu     sync.RWMutex
	buffer []T
	size   int // Maximum capacity of the buffer
	head   int // Index where next write will occur
	count  int // Current number of elements in buffer
}

// New creates a Buffer with the given capacity.
// If size is <= 0, DefaultSize is used.
func New[T any](size int) *Buffer[T] {
	if size <= 0 {
		size = DefaultSize
	}
	return &Buffer[T]{
		buffer: make([]T, size),
		size:   size,
	}
}

// Push appends v, evicting the oldest element when the buffer is full.
func (b *Buffer[T]) Push(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buffer[b.head] = v
	b.head = (b.head + 1) % b.size
	if b.count < b.size {
		b.count++
	}
}

// Last returns up to n of the most recent elements in insertion order
// (most recent last). It never returns nil.
func (b *Buffer[T]) Last(n int) []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n > b.count {
		n = b.count
	}
	if n <= 0 {
		return []T{}
	}

	result := make([]T, n)
	startIdx := (b.head - n + b.size) % b.size
	for i := 0; i < n; i++ {
		result[i] = b.buffer[(startIdx+i)%b.size]
	}
	return result
}

// All returns every stored element in insertion order.
func (b *Buffer[T]) All() []T {
	return b.Last(b.Cap())
}

// Clear drops all elements.
func (b *Buffer[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buffer = make([]T, b.size)
	b.head = 0
	b.count = 0
}

// Len returns the number of stored elements.
func (b *Buffer[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Cap returns the maximum capacity of the buffer.
func (b *Buffer[T]) Cap() int {
	return b.size
}

// IsFull reports whether the next Push will evict an element.
func (b *Buffer[T]) IsFull() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count == b.size
}
