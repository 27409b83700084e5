// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactDSN(t *testing.T) {
	assert.Equal(t, "postgres://arya:***@db:5432/arya", redactDSN("postgres://arya:s3cret@db:5432/arya"))
	assert.Equal(t, "arya.db", redactDSN("arya.db"))
	assert.Equal(t, "postgres://db/arya", redactDSN("postgres://db/arya"))
}
