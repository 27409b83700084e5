// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/traylinx/arya/internal/buildinfo"
	"github.com/traylinx/arya/internal/diagnostics"
)

const defaultErrorLimit = 20

// Root handles GET /api/.
func Root(diag *diagnostics.System) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Arya backend is running",
			"status":  diag.OverallHealth().Status,
			"version": buildinfo.Version,
		})
	}
}

// DiagnosticsHandler runs a full health probe.
func DiagnosticsHandler(diag *diagnostics.System) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, diag.RunHealthProbe(c.Request.Context()))
	}
}

// HealthHandler returns the last known health without probing.
func HealthHandler(diag *diagnostics.System) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, diag.OverallHealth())
	}
}

// ErrorsHandler lists the most recent error records, newest last.
func ErrorsHandler(diag *diagnostics.System) gin.HandlerFunc {
	return func(c *gin.Context) {
		n := queryInt(c, "limit", defaultErrorLimit)
		c.JSON(http.StatusOK, gin.H{
			"errors":   diag.RecentErrors(n),
			"total":    diag.ErrorLog().Len(),
			"capacity": diag.ErrorLog().Cap(),
		})
	}
}

// SelfRepairHandler probes, repairs failed components and probes again.
func SelfRepairHandler(diag *diagnostics.System) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, diag.RepairFailedComponents(c.Request.Context()))
	}
}
