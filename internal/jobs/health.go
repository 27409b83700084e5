// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package jobs

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/traylinx/arya/internal/diagnostics"
	"github.com/traylinx/arya/internal/scheduler"
)

// HealthCheck probes every dependency and, when the system is not healthy,
// asks the repair advisor about each failed component.
func (r *Runner) HealthCheck(ctx context.Context) (scheduler.Summary, error) {
	report := r.diag.RunHealthProbe(ctx)

	repairs := []diagnostics.ComponentRepair{}
	if report.OverallHealth != diagnostics.HealthHealthy {
		repairs = r.diag.RepairReport(report)
	}

	failed := make([]string, 0, len(repairs))
	for _, rep := range repairs {
		failed = append(failed, string(rep.Component))
	}
	log.WithField("overall_health", report.OverallHealth).Info("autonomous health check complete")

	return scheduler.Summary{
		"overall_health":    string(report.OverallHealth),
		"failed_components": failed,
		"repairs":           repairs,
	}, nil
}
