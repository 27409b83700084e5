// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/traylinx/arya/internal/config"
	"github.com/traylinx/arya/internal/diagnostics"
	"github.com/traylinx/arya/internal/logging"
)

// ManagementKeyHeader carries the management secret.
const ManagementKeyHeader = "X-Management-Key"

// RequestCounter feeds the diagnostics performance counters. Responses with
// a 5xx status count as failed.
func RequestCounter(diag *diagnostics.System) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		diag.RecordRequest(c.Writer.Status() >= http.StatusInternalServerError)
	}
}

// Management guards the routes that change server state. The configuration
// is read per request so a reloaded key takes effect immediately. Without a
// configured key only direct localhost requests are accepted.
func Management(current func() *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		mgmt := current().Management
		if !mgmt.Enabled() {
			if !isLocalhostDirect(c) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "management routes are restricted to localhost until a management key is set"})
				return
			}
			c.Next()
			return
		}

		key := strings.TrimSpace(c.GetHeader(ManagementKeyHeader))
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "management key required"})
			return
		}
		if !mgmt.Verify(key) {
			logging.Entry(c).WithField("path", c.FullPath()).Warn("rejected management request")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid management key"})
			return
		}
		c.Next()
	}
}

// isLocalhostDirect reports whether the request comes from a loopback
// address without any proxy headers.
func isLocalhostDirect(c *gin.Context) bool {
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return false
	}
	// a proxy in front of us would make every caller look local
	return c.GetHeader("X-Forwarded-For") == "" &&
		c.GetHeader("X-Real-IP") == "" &&
		c.GetHeader("Forwarded") == ""
}
