// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package diagnostics

import (
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/arya/internal/ringbuf"
)

// DefaultErrorLogCapacity is the number of records retained by default.
const DefaultErrorLogCapacity = 100

// ErrorLog is a bounded, insertion-ordered log of recent failures.
// Appending at capacity evicts the oldest record.
type ErrorLog struct {
	buf      *ringbuf.Buffer[ErrorRecord]
	now      func() time.Time
	observer Observer
}

// NewErrorLog creates an ErrorLog. A non-positive capacity selects the default.
func NewErrorLog(capacity int) *ErrorLog {
	if capacity <= 0 {
		capacity = DefaultErrorLogCapacity
	}
	return &ErrorLog{
		buf: ringbuf.New[ErrorRecord](capacity),
		now: time.Now,
	}
}

// Append records a failure and returns the stored record. It never fails.
func (l *ErrorLog) Append(kind, message, trace string) ErrorRecord {
	c := Classify(kind)
	rec := ErrorRecord{
		Timestamp: l.now().UTC(),
		Kind:      kind,
		Message:   message,
		Trace:     trace,
		Severity:  c.Severity,
		Category:  c.Category,
	}
	l.buf.Push(rec)

	log.WithFields(log.Fields{
		"kind":     kind,
		"severity": rec.Severity,
	}).Errorf("%s", message)

	if l.observer != nil {
		l.observer.ErrorLogged(rec)
	}
	return rec
}

// Recent returns up to n records, most recent last.
func (l *ErrorLog) Recent(n int) []ErrorRecord {
	return l.buf.Last(n)
}

// All returns every retained record, most recent last.
func (l *ErrorLog) All() []ErrorRecord {
	return l.buf.All()
}

// Len returns the number of retained records.
func (l *ErrorLog) Len() int { return l.buf.Len() }

// Cap returns the capacity of the log.
func (l *ErrorLog) Cap() int { return l.buf.Cap() }
