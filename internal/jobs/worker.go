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
	"fmt"
	"sync"
	"time"

	"github.com/titan-aas/titan-go-components/internal/common/model"
)

// Handler executes one job. A returned error triggers the retry policy.
type Handler func(ctx context.Context, job *model.Job) (json.RawMessage, error)

const defaultPollInterval = time.Second

// Worker claims jobs and dispatches them to registered handlers. Multiple
// workers may run against the same queue; the atomic claim guarantees each
// job runs once per attempt.
type Worker struct {
	queue        *Queue
	concurrency  int
	pollInterval time.Duration

	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewWorker builds a worker with the given parallelism.
func NewWorker(queue *Queue, concurrency int) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Worker{
		queue:        queue,
		concurrency:  concurrency,
		pollInterval: defaultPollInterval,
		handlers:     make(map[string]Handler),
	}
}

// Register binds a handler to a task name.
func (w *Worker) Register(task string, handler Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[task] = handler
}

// Run claims and executes jobs until the context is cancelled, then waits
// for in-flight jobs to finish. Wire the context to signal.NotifyContext so
// SIGTERM/SIGINT drain gracefully.
func (w *Worker) Run(ctx context.Context) {
	slots := make(chan struct{}, w.concurrency)
	var inflight sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			inflight.Wait()
			return
		case slots <- struct{}{}:
		}

		job, err := w.queue.Claim(ctx)
		if err != nil {
			<-slots
			if ctx.Err() != nil {
				inflight.Wait()
				return
			}
			log.Warnf("claim failed: %v", err)
			w.sleep(ctx)
			continue
		}
		if job == nil {
			<-slots
			w.sleep(ctx)
			continue
		}

		inflight.Add(1)
		go func(job *model.Job) {
			defer func() {
				<-slots
				inflight.Done()
			}()
			w.execute(ctx, job)
		}(job)
	}
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.pollInterval):
	}
}

// execute runs one claimed job through its handler and settles the outcome.
func (w *Worker) execute(ctx context.Context, job *model.Job) {
	w.mu.RLock()
	handler, ok := w.handlers[job.Task]
	w.mu.RUnlock()

	// settlement must survive a cancelled worker context
	settleCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if !ok {
		if err := w.queue.Fail(settleCtx, job, fmt.Errorf("no handler registered for task %q", job.Task), false); err != nil {
			log.Error("dead-lettering job "+job.ID, err)
		}
		return
	}

	result, err := func() (result json.RawMessage, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("handler panicked: %v", r)
			}
		}()
		return handler(ctx, job)
	}()

	if err != nil {
		log.Warnf("job %s task %s attempt %d failed: %v", job.ID, job.Task, job.Attempts, err)
		if failErr := w.queue.Fail(settleCtx, job, err, true); failErr != nil {
			log.Error("settling failed job "+job.ID, failErr)
		}
		return
	}
	if err := w.queue.Complete(settleCtx, job, result); err != nil {
		log.Error("completing job "+job.ID, err)
	}
}
