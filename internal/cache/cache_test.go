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

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titan-aas/titan-go-components/internal/common"
)

func setupCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	c := NewWithClient(rdb, common.CacheConfig{EntityTTLSeconds: 3600, ElementTTLSeconds: 300})
	return c, mr
}

func TestPairRoundTrip(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()

	_, ok := c.GetPair(ctx, KindSubmodel, "dXJuOnNtOjE")
	assert.False(t, ok)

	c.SetPair(ctx, KindSubmodel, "dXJuOnNtOjE", Pair{Bytes: []byte(`{"id":"urn:sm:1"}`), ETag: "cafe"})

	pair, ok := c.GetPair(ctx, KindSubmodel, "dXJuOnNtOjE")
	require.True(t, ok)
	assert.Equal(t, `{"id":"urn:sm:1"}`, string(pair.Bytes))
	assert.Equal(t, "cafe", pair.ETag)
}

func TestPairTTL(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	c.SetPair(ctx, KindAAS, "aaa", Pair{Bytes: []byte(`{}`), ETag: "e1"})
	mr.FastForward(2 * time.Hour)

	_, ok := c.GetPair(ctx, KindAAS, "aaa")
	assert.False(t, ok)
}

func TestDeleteDropsBothHalves(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	c.SetPair(ctx, KindConceptDescription, "bbb", Pair{Bytes: []byte(`{}`), ETag: "e1"})
	c.Delete(ctx, KindConceptDescription, "bbb")

	assert.False(t, mr.Exists("titan:cd:bbb:bytes"))
	assert.False(t, mr.Exists("titan:cd:bbb:etag"))
}

func TestHalfPopulatedPairIsAMiss(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("titan:aas:ccc:bytes", `{}`))

	_, ok := c.GetPair(ctx, KindAAS, "ccc")
	assert.False(t, ok)
}

func TestElementValueRoundTrip(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()

	_, ok := c.GetElementValue(ctx, "dXJuOnNtOjE", "Engine.MaxTorque")
	assert.False(t, ok)

	c.SetElementValue(ctx, "dXJuOnNtOjE", "Engine.MaxTorque", []byte(`"12.5"`))

	valueBytes, ok := c.GetElementValue(ctx, "dXJuOnNtOjE", "Engine.MaxTorque")
	require.True(t, ok)
	assert.Equal(t, `"12.5"`, string(valueBytes))
}

func TestInvalidateSubmodelElements(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()

	c.SetElementValue(ctx, "smA", "Engine.MaxTorque", []byte(`"1"`))
	c.SetElementValue(ctx, "smA", "Engine.Rpm", []byte(`"2"`))
	c.SetElementValue(ctx, "smB", "Engine.MaxTorque", []byte(`"3"`))
	c.SetPair(ctx, KindSubmodel, "smA", Pair{Bytes: []byte(`{}`), ETag: "e1"})

	c.InvalidateSubmodelElements(ctx, "smA")

	_, ok := c.GetElementValue(ctx, "smA", "Engine.MaxTorque")
	assert.False(t, ok)
	_, ok = c.GetElementValue(ctx, "smA", "Engine.Rpm")
	assert.False(t, ok)

	// other submodels and the entity pair stay cached
	_, ok = c.GetElementValue(ctx, "smB", "Engine.MaxTorque")
	assert.True(t, ok)
	_, ok = c.GetPair(ctx, KindSubmodel, "smA")
	assert.True(t, ok)
}

func TestNilCacheIsInert(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	_, ok := c.GetPair(ctx, KindAAS, "x")
	assert.False(t, ok)
	c.SetPair(ctx, KindAAS, "x", Pair{})
	c.Delete(ctx, KindAAS, "x")
	c.InvalidateSubmodelElements(ctx, "x")
	assert.NoError(t, c.Close())
}
