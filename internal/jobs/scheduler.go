/*******************************************************************************
* Copyright (C) 2026 the Titan-AAS Authors
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/robfig/cron"

	"github.com/titan-aas/titan-go-components/internal/common"
)

// Schedule presets accepted in place of a cron expression.
var schedulePresets = map[string]string{
	"every_minute":   "* * * * *",
	"hourly":         "0 * * * *",
	"daily_midnight": "0 0 * * *",
}

// ScheduleEntry submits one task on a cron cadence. Expressions are
// five-field standard cron, evaluated in UTC.
type ScheduleEntry struct {
	Name     string
	Task     string
	Spec     string
	Payload  json.RawMessage
	Priority int
	Disabled bool

	schedule cron.Schedule
}

// Scheduler ticks once per UTC minute and submits every due entry to the
// queue. It runs under a leader lease so a multi-node deployment schedules
// each entry exactly once.
type Scheduler struct {
	queue   *Queue
	lease   *Lease
	entries []*ScheduleEntry
}

// NewScheduler builds a scheduler over the queue and lease.
func NewScheduler(queue *Queue, lease *Lease) *Scheduler {
	return &Scheduler{queue: queue, lease: lease}
}

// Add registers an entry, resolving presets and parsing the expression.
func (s *Scheduler) Add(entry ScheduleEntry) error {
	if entry.Name == "" || entry.Task == "" {
		return common.NewErrBadRequest("schedule entries need a name and a task")
	}
	spec := entry.Spec
	if preset, ok := schedulePresets[spec]; ok {
		spec = preset
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return common.NewErrBadRequest("schedule '" + entry.Name + "' has an invalid cron expression: " + err.Error())
	}
	entry.schedule = schedule
	s.entries = append(s.entries, &entry)
	return nil
}

// Run ticks under leader election until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.lease.RunWhenLeader(ctx, s.loop)
}

func (s *Scheduler) loop(ctx context.Context) {
	// align to the next minute boundary
	for {
		now := time.Now().UTC()
		next := now.Truncate(time.Minute).Add(time.Minute)
		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(now)):
		}
		s.tick(ctx, next)
	}
}

// tick submits every entry whose schedule fires at the given UTC minute.
func (s *Scheduler) tick(ctx context.Context, minute time.Time) {
	minute = minute.Truncate(time.Minute)
	for _, entry := range s.entries {
		if entry.Disabled {
			continue
		}
		if !entry.dueAt(minute) {
			continue
		}
		job, err := s.queue.Submit(ctx, entry.Task, entry.Payload, entry.Priority, -1)
		if err != nil {
			log.Error("submitting scheduled job "+entry.Name, err)
			continue
		}
		log.Debugf("schedule %s submitted job %s", entry.Name, job.ID)
	}
}

func (e *ScheduleEntry) dueAt(minute time.Time) bool {
	return e.schedule.Next(minute.Add(-time.Second)).Equal(minute)
}
