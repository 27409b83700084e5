// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logging

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// RequestIDField is the logrus field the formatter prints in the id column.
const RequestIDField = "request_id"

// RequestIDHeader carries the request id in and out of the server.
const RequestIDHeader = "X-Request-ID"

const ginRequestIDKey = "arya.request_id"

// NewRequestID returns a short random id.
func NewRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// RequestID assigns every request an id, echoes it in the response header
// and logs the completed request at debug level.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = NewRequestID()
		}
		c.Set(ginRequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()

		log.WithFields(log.Fields{
			RequestIDField: id,
			"status":       c.Writer.Status(),
		}).Debugf("%s %s", c.Request.Method, c.Request.URL.Path)
	}
}

// Entry returns a log entry tagged with the request's id.
func Entry(c *gin.Context) *log.Entry {
	return log.WithField(RequestIDField, c.GetString(ginRequestIDKey))
}
