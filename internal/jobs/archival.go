// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package jobs

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/traylinx/arya/internal/scheduler"
	"github.com/traylinx/arya/internal/store"
)

// MemoryOptimization moves one batch of stale, low-importance memories to the
// archive and deletes the originals. Archive inserts skip ids that are
// already archived, so a run interrupted between the two steps is repaired
// by the next one.
func (r *Runner) MemoryOptimization(ctx context.Context) (scheduler.Summary, error) {
	now := r.now()
	cutoff := now.Add(-r.cfg.ArchiveMinAge)

	stale, err := r.store.Find(ctx, store.CollectionMemories, store.Where(
		store.Lte("importance", r.cfg.ArchiveMaxImportance),
		store.Lt("updated_at", cutoff),
	), store.FindOptions{
		Sort:  []store.SortField{{Field: "updated_at"}},
		Limit: r.cfg.ArchiveBatchSize,
	})
	if err != nil {
		return scheduler.Summary{"archived_count": 0}, fmt.Errorf("find stale memories: %w", err)
	}
	if len(stale) == 0 {
		return scheduler.Summary{"archived_count": 0}, nil
	}

	ids := make([]any, 0, len(stale))
	for _, doc := range stale {
		doc["archived_at"] = now
		ids = append(ids, doc.ID())
	}
	if _, err := r.store.InsertMany(ctx, store.CollectionMemoryArchive, stale); err != nil {
		return scheduler.Summary{"archived_count": 0}, fmt.Errorf("archive memories: %w", err)
	}
	deleted, err := r.store.DeleteMany(ctx, store.CollectionMemories, store.Where(store.In(store.IDField, ids...)))
	if err != nil {
		return scheduler.Summary{"archived_count": 0}, fmt.Errorf("delete archived memories: %w", err)
	}

	log.WithField("archived_count", len(stale)).Info("memory optimization complete")
	return scheduler.Summary{"archived_count": len(stale), "deleted_count": deleted}, nil
}
