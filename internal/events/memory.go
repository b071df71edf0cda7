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

package events

import (
	"context"
	"sync"

	"github.com/titan-aas/titan-go-components/internal/common"
	"github.com/titan-aas/titan-go-components/internal/common/model"
)

// DefaultQueueSize bounds the in-process event queue.
const DefaultQueueSize = 4096

// MemoryBus is the in-process bus for single-node deployments. A single
// dispatcher goroutine drains the queue and delivers to every subscriber
// sequentially, which preserves publish order per subscriber.
type MemoryBus struct {
	queue chan model.Event

	mu          sync.Mutex
	subscribers map[int]chan model.Event
	nextID      int
	closed      bool
	done        chan struct{}
}

// NewMemoryBus starts the dispatcher with the given queue capacity.
func NewMemoryBus(queueSize int) *MemoryBus {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	b := &MemoryBus{
		queue:       make(chan model.Event, queueSize),
		subscribers: make(map[int]chan model.Event),
		done:        make(chan struct{}),
	}
	go b.dispatch()
	return b
}

// Publish enqueues the event. A full queue rejects instead of blocking the
// write path.
func (b *MemoryBus) Publish(ctx context.Context, event model.Event) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return common.NewInternalServerError("event bus is closed")
	}
	b.mu.Unlock()

	select {
	case b.queue <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return common.NewInternalServerError("event queue is full")
	}
}

// Subscribe registers a consumer. The returned cancel must be called to
// unblock the dispatcher once the consumer stops reading.
func (b *MemoryBus) Subscribe(name string) (<-chan model.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan model.Event, DefaultQueueSize)
	b.subscribers[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Close drains nothing further and closes all subscriber channels.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	close(b.queue)
	<-b.done
	return nil
}

func (b *MemoryBus) dispatch() {
	defer close(b.done)
	for event := range b.queue {
		b.mu.Lock()
		subs := make([]chan model.Event, 0, len(b.subscribers))
		for _, ch := range b.subscribers {
			subs = append(subs, ch)
		}
		b.mu.Unlock()

		for _, ch := range subs {
			select {
			case ch <- event:
			default:
				// a stalled subscriber loses events rather than stalling
				// the pipeline for everyone else
				log.Warnf("dropping event %s for slow subscriber", event.EventID)
			}
		}
	}

	b.mu.Lock()
	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
	b.mu.Unlock()
}
