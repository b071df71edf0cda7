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
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/titan-aas/titan-go-components/internal/common"
	"github.com/titan-aas/titan-go-components/internal/common/model"
)

const (
	// StreamKey is the Redis stream all mutation events go through.
	StreamKey = "titan:events:stream"
	// streamMaxLen caps the stream with approximate trimming.
	streamMaxLen = 100000
)

// RedisBus publishes events to a capped Redis stream. Each subscriber tails
// the stream from the moment it subscribed, so every node's single writer
// sees every event in stream order.
type RedisBus struct {
	rdb *redis.Client

	mu      sync.Mutex
	cancels []context.CancelFunc
	closed  bool
}

// NewRedisBus connects to the configured Redis and verifies the connection.
func NewRedisBus(ctx context.Context, cfg common.RedisConfig) (*RedisBus, error) {
	if cfg.URL == "" {
		return nil, common.NewInternalServerError("events bus 'redis' requires redis.url")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return NewRedisBusWithClient(rdb), nil
}

// NewRedisBusWithClient wraps an existing client, used by tests.
func NewRedisBusWithClient(rdb *redis.Client) *RedisBus {
	return &RedisBus{rdb: rdb}
}

// Publish appends the event to the stream.
func (b *RedisBus) Publish(ctx context.Context, event model.Event) error {
	payload, err := jsonStd.Marshal(event)
	if err != nil {
		return err
	}
	return b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"event": string(payload)},
	}).Err()
}

// Subscribe starts a tailing goroutine delivering stream entries in order.
func (b *RedisBus) Subscribe(name string) (<-chan model.Event, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan model.Event, DefaultQueueSize)

	b.mu.Lock()
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	go b.tail(ctx, name, ch)
	return ch, cancel
}

// Close cancels all subscribers and drops the connection.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	cancels := b.cancels
	b.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	return b.rdb.Close()
}

func (b *RedisBus) tail(ctx context.Context, name string, ch chan<- model.Event) {
	defer close(ch)

	lastID := "$"
	for {
		streams, err := b.rdb.XRead(ctx, &redis.XReadArgs{
			Streams: []string{StreamKey, lastID},
			Count:   100,
			Block:   time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			if !errors.Is(err, redis.Nil) {
				log.Warnf("subscriber %s stream read failed: %v", name, err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
			}
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				lastID = message.ID
				raw, ok := message.Values["event"].(string)
				if !ok {
					continue
				}
				var event model.Event
				if err := jsonStd.Unmarshal([]byte(raw), &event); err != nil {
					log.Warnf("subscriber %s dropping malformed event %s: %v", name, message.ID, err)
					continue
				}
				select {
				case ch <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}
