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

// Package events carries the mutation event pipeline. Every successful write
// in the repositories publishes one event; the single writer consumes them in
// publish order and maintains the cache and the live broadcasters. Two bus
// implementations exist: an in-process bus for single-node deployments and a
// Redis Streams bus for multi-node ones. Both deliver events of one entity in
// the order they were published.
package events

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/titan-aas/titan-go-components/internal/common"
	"github.com/titan-aas/titan-go-components/internal/common/logger"
	"github.com/titan-aas/titan-go-components/internal/common/model"
)

var (
	log     = logger.New("events")
	jsonStd = jsoniter.ConfigCompatibleWithStandardLibrary
)

// Bus is the transport between the write path and the single writer.
type Bus interface {
	// Publish enqueues one event. Returns an error only when the bus cannot
	// accept the event; callers treat that as a degraded pipeline, not a
	// failed write.
	Publish(ctx context.Context, event model.Event) error
	// Subscribe registers a named consumer and returns its event channel
	// plus a cancel function. Events arrive in publish order.
	Subscribe(name string) (<-chan model.Event, func())
	// Close stops delivery and releases resources.
	Close() error
}

// NewBus builds the bus selected by the events configuration.
func NewBus(ctx context.Context, cfg common.EventsConfig, redisCfg common.RedisConfig) (Bus, error) {
	switch cfg.Bus {
	case "", "memory":
		return NewMemoryBus(DefaultQueueSize), nil
	case "redis":
		return NewRedisBus(ctx, redisCfg)
	default:
		return nil, fmt.Errorf("unknown event bus %q, expected memory or redis", cfg.Bus)
	}
}
