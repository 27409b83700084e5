// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package jobs

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/traylinx/arya/internal/diagnostics"
	"github.com/traylinx/arya/internal/scheduler"
	"github.com/traylinx/arya/internal/store"
)

// SelfImprovement rolls up usage and error metrics into system_config. Too
// many recent critical errors trigger an extra health probe.
func (r *Runner) SelfImprovement(ctx context.Context) (scheduler.Summary, error) {
	conversations, err := r.store.Count(ctx, store.CollectionConversations, nil)
	if err != nil {
		return nil, fmt.Errorf("count conversations: %w", err)
	}

	recent := r.diag.RecentErrors(r.cfg.CriticalErrorWindow)
	critical := 0
	for _, rec := range recent {
		if rec.Severity == diagnostics.SeverityCritical {
			critical++
		}
	}

	metrics := store.Document{
		"total_conversations": conversations,
		"recent_errors":       len(recent),
		"critical_errors":     critical,
		"uptime_seconds":      int64(r.diag.Uptime().Seconds()),
		"early_warning_probe": false,
		"timestamp":           r.now(),
	}
	if critical > r.cfg.CriticalErrorThreshold {
		log.Warnf("%d critical errors in the last %d, running early-warning diagnostics", critical, len(recent))
		report := r.diag.RunHealthProbe(ctx)
		metrics["early_warning_probe"] = true
		metrics["overall_health"] = string(report.OverallHealth)
	}

	_, err = r.store.UpdateOne(ctx, store.CollectionSystemConfig,
		store.Where(store.Eq("key", MetricsConfigKey)),
		store.Update{
			Set:    store.Document{"key": MetricsConfigKey, "value": metrics, "updated_at": r.now()},
			Upsert: true,
		})
	if err != nil {
		return scheduler.Summary(metrics), fmt.Errorf("store metrics snapshot: %w", err)
	}
	log.WithFields(log.Fields{"conversations": conversations, "critical_errors": critical}).Info("self improvement metrics updated")
	return scheduler.Summary(metrics), nil
}
