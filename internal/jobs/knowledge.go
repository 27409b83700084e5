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

// ContinuousLearning searches the topic selected by the current hour and
// stores the results. A search with no results writes nothing; the run
// summary records stored=false in that case.
func (r *Runner) ContinuousLearning(ctx context.Context) (scheduler.Summary, error) {
	topics := r.Topics()
	now := r.now()
	topic := topics[now.Hour()%len(topics)]
	summary := scheduler.Summary{"topic": topic, "sources_found": 0, "stored": false}

	if r.search == nil {
		return summary, fmt.Errorf("knowledge gathering: no search capability configured")
	}
	results, err := r.search.Search(ctx, topic, r.cfg.SearchResults)
	if err != nil {
		return summary, fmt.Errorf("knowledge gathering for %q: %w", topic, err)
	}
	summary["sources_found"] = len(results)
	if len(results) == 0 {
		log.WithField("topic", topic).Info("knowledge gathering found no sources")
		return summary, nil
	}

	id, err := r.store.InsertOne(ctx, store.CollectionKnowledge, store.Document{
		"topic":      topic,
		"sources":    results,
		"learned_at": now,
		"autonomous": true,
	})
	if err != nil {
		return summary, fmt.Errorf("store knowledge for %q: %w", topic, err)
	}
	summary["stored"] = true
	summary["knowledge_id"] = id
	log.WithFields(log.Fields{"topic": topic, "sources_found": len(results)}).Info("knowledge gathered")
	return summary, nil
}
