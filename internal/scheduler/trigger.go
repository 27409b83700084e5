// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

type triggerKind int

const (
	triggerInterval triggerKind = iota
	triggerCron
)

// Trigger decides when a job fires: either a fixed interval measured from the
// scheduler start, or a wall-clock cron pattern.
type Trigger struct {
	kind     triggerKind
	interval time.Duration
	spec     string
}

// Every fires at a fixed interval. Intervals are rounded down to whole
// seconds with a one second minimum.
func Every(d time.Duration) Trigger {
	return Trigger{kind: triggerInterval, interval: d}
}

// Daily fires once a day at the given wall-clock time.
func Daily(hour, minute int) Trigger {
	return Cron(fmt.Sprintf("%d %d * * *", minute, hour))
}

// Cron fires on a standard five-field cron pattern (minute hour dom month dow).
func Cron(spec string) Trigger {
	return Trigger{kind: triggerCron, spec: spec}
}

// String renders the trigger for status output.
func (t Trigger) String() string {
	if t.kind == triggerInterval {
		return fmt.Sprintf("interval[%s]", t.interval)
	}
	return fmt.Sprintf("cron[%s]", t.spec)
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

func (t Trigger) schedule() (cron.Schedule, error) {
	if t.kind == triggerInterval {
		if t.interval <= 0 {
			return nil, fmt.Errorf("scheduler: interval must be positive, got %s", t.interval)
		}
		return cron.Every(t.interval), nil
	}
	s, err := parser.Parse(t.spec)
	if err != nil {
		return nil, fmt.Errorf("scheduler: invalid cron spec %q: %w", t.spec, err)
	}
	return s, nil
}
