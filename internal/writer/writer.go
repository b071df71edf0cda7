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

// Package writer hosts the single writer: the only component that mutates
// the cache tier. It consumes the event bus in order, reconciles the Redis
// cache from the canonical bytes carried in each event and fans the events
// out to the live broadcasters (WebSocket hub, MQTT). Broadcasters are
// isolated from each other: a failing one never stalls cache reconciliation.
package writer

import (
	"context"

	jsoniter "github.com/json-iterator/go"

	"github.com/titan-aas/titan-go-components/internal/cache"
	"github.com/titan-aas/titan-go-components/internal/common/logger"
	"github.com/titan-aas/titan-go-components/internal/common/model"
	"github.com/titan-aas/titan-go-components/internal/events"
)

var (
	log     = logger.New("writer")
	jsonStd = jsoniter.ConfigCompatibleWithStandardLibrary
)

// dedupeWindow bounds the set of recently seen event ids.
const dedupeWindow = 8192

// Broadcaster receives every event after cache reconciliation.
type Broadcaster interface {
	Broadcast(event model.Event)
}

// Writer is the single consumer of the event bus.
type Writer struct {
	bus          events.Bus
	cache        *cache.Cache
	broadcasters []Broadcaster

	seen     map[string]struct{}
	seenRing []string
	seenPos  int
}

// New builds a writer over the bus, cache and broadcasters. The cache may be
// nil (cache tier disabled); broadcasters may be empty.
func New(bus events.Bus, c *cache.Cache, broadcasters ...Broadcaster) *Writer {
	return &Writer{
		bus:          bus,
		cache:        c,
		broadcasters: broadcasters,
		seen:         make(map[string]struct{}, dedupeWindow),
		seenRing:     make([]string, dedupeWindow),
	}
}

// Run consumes the bus until the context is cancelled or the bus closes.
func (w *Writer) Run(ctx context.Context) {
	ch, cancel := w.bus.Subscribe("single-writer")
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			w.handle(ctx, event)
		}
	}
}

// handle applies one event. Redelivered events (same eventId) are dropped so
// the at-least-once Redis bus never double-applies.
func (w *Writer) handle(ctx context.Context, event model.Event) {
	if w.isDuplicate(event.EventID) {
		return
	}
	w.reconcile(ctx, event)
	for _, b := range w.broadcasters {
		w.broadcast(b, event)
	}
}

func (w *Writer) reconcile(ctx context.Context, event model.Event) {
	switch event.Entity {
	case model.EntityAAS:
		w.reconcileEntity(ctx, cache.KindAAS, event)
	case model.EntityConceptDescription:
		w.reconcileEntity(ctx, cache.KindConceptDescription, event)
	case model.EntitySubmodel:
		w.reconcileEntity(ctx, cache.KindSubmodel, event)
		// any submodel mutation can move or remove elements, so the
		// projection keys of that submodel are stale either way
		w.cache.InvalidateSubmodelElements(ctx, event.IdentifierB64)
	case model.EntitySubmodelElement:
		w.reconcileElement(ctx, event)
	}
}

func (w *Writer) reconcileEntity(ctx context.Context, kind string, event model.Event) {
	switch event.EventType {
	case model.EventCreated, model.EventUpdated:
		if event.DocBytes == nil {
			return
		}
		w.cache.SetPair(ctx, kind, event.IdentifierB64, cache.Pair{Bytes: event.DocBytes, ETag: event.ETag})
	case model.EventDeleted:
		w.cache.Delete(ctx, kind, event.IdentifierB64)
	}
}

func (w *Writer) reconcileElement(ctx context.Context, event model.Event) {
	switch event.EventType {
	case model.EventCreated, model.EventUpdated:
		if event.ValueBytes != nil {
			w.cache.SetElementValue(ctx, event.IdentifierB64, event.IDShortPath, event.ValueBytes)
		}
	case model.EventDeleted:
		// removing an element renumbers list siblings, so all projection
		// keys of the submodel are suspect
		w.cache.InvalidateSubmodelElements(ctx, event.IdentifierB64)
	}
}

func (w *Writer) broadcast(b Broadcaster, event model.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("broadcaster panicked on event %s: %v", event.EventID, r)
		}
	}()
	b.Broadcast(event)
}

func (w *Writer) isDuplicate(eventID string) bool {
	if eventID == "" {
		return false
	}
	if _, ok := w.seen[eventID]; ok {
		return true
	}
	if old := w.seenRing[w.seenPos]; old != "" {
		delete(w.seen, old)
	}
	w.seenRing[w.seenPos] = eventID
	w.seenPos = (w.seenPos + 1) % dedupeWindow
	w.seen[eventID] = struct{}{}
	return false
}
