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
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titan-aas/titan-go-components/internal/common"
	"github.com/titan-aas/titan-go-components/internal/common/model"
)

func receiveEvents(t *testing.T, ch <-chan model.Event, n int) []model.Event {
	t.Helper()
	received := make([]model.Event, 0, n)
	deadline := time.After(5 * time.Second)
	for len(received) < n {
		select {
		case event, ok := <-ch:
			require.True(t, ok, "channel closed after %d events", len(received))
			received = append(received, event)
		case <-deadline:
			t.Fatalf("timed out after %d of %d events", len(received), n)
		}
	}
	return received
}

func TestMemoryBusOrdering(t *testing.T) {
	bus := NewMemoryBus(0)
	defer bus.Close()

	ch, cancel := bus.Subscribe("writer")
	defer cancel()

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		event := model.NewEvent(model.EventUpdated, model.EntitySubmodel, "urn:sm:1", fmt.Sprintf("etag-%d", i), nil)
		require.NoError(t, bus.Publish(ctx, event))
	}

	received := receiveEvents(t, ch, 50)
	for i, event := range received {
		assert.Equal(t, fmt.Sprintf("etag-%d", i), event.ETag)
	}
}

func TestMemoryBusFanout(t *testing.T) {
	bus := NewMemoryBus(0)
	defer bus.Close()

	chA, cancelA := bus.Subscribe("a")
	defer cancelA()
	chB, cancelB := bus.Subscribe("b")
	defer cancelB()

	require.NoError(t, bus.Publish(context.Background(), model.NewEvent(model.EventCreated, model.EntityAAS, "urn:aas:1", "e", nil)))

	assert.Equal(t, "urn:aas:1", receiveEvents(t, chA, 1)[0].Identifier)
	assert.Equal(t, "urn:aas:1", receiveEvents(t, chB, 1)[0].Identifier)
}

func TestMemoryBusRejectsWhenFull(t *testing.T) {
	bus := NewMemoryBus(1)

	// stop the dispatcher so the queue backs up
	require.NoError(t, bus.Close())

	err := bus.Publish(context.Background(), model.NewEvent(model.EventCreated, model.EntityAAS, "urn:aas:1", "e", nil))
	assert.Error(t, err)
}

func TestMemoryBusCloseClosesSubscribers(t *testing.T) {
	bus := NewMemoryBus(0)
	ch, _ := bus.Subscribe("writer")

	require.NoError(t, bus.Close())

	_, ok := <-ch
	assert.False(t, ok)
}

func TestNewBusSelection(t *testing.T) {
	bus, err := NewBus(context.Background(), common.EventsConfig{Bus: "memory"}, common.RedisConfig{})
	require.NoError(t, err)
	require.IsType(t, &MemoryBus{}, bus)
	bus.Close()

	_, err = NewBus(context.Background(), common.EventsConfig{Bus: "kafka"}, common.RedisConfig{})
	assert.Error(t, err)
}

func TestRedisBusRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	bus := NewRedisBusWithClient(rdb)
	defer bus.Close()

	ch, cancel := bus.Subscribe("writer")
	defer cancel()

	// the subscriber tails from $; give it a moment to attach
	time.Sleep(100 * time.Millisecond)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		event := model.NewEvent(model.EventUpdated, model.EntitySubmodel, "urn:sm:1", fmt.Sprintf("etag-%d", i), nil)
		require.NoError(t, bus.Publish(ctx, event))
	}

	received := receiveEvents(t, ch, 5)
	for i, event := range received {
		assert.Equal(t, fmt.Sprintf("etag-%d", i), event.ETag)
		assert.Equal(t, model.EntitySubmodel, event.Entity)
	}
}
