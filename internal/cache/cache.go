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

// Package cache is the Redis read-through tier in front of the Postgres
// repositories. It stores the canonical byte/ETag pair of whole entities and
// precomputed $value projections of single submodel elements. The cache is
// written exclusively by the single writer; request handlers only read. All
// failures are soft: a Redis error is a cache miss, never a request error.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/titan-aas/titan-go-components/internal/common"
	"github.com/titan-aas/titan-go-components/internal/common/logger"
)

var log = logger.New("cache")

// Entity kinds used in cache keys.
const (
	KindAAS                = "aas"
	KindSubmodel           = "sm"
	KindConceptDescription = "cd"
)

// Pair is a cached canonical document with its strong ETag.
type Pair struct {
	Bytes []byte
	ETag  string
}

// Cache wraps the Redis client with the Titan-AAS key schema.
type Cache struct {
	rdb        *redis.Client
	entityTTL  time.Duration
	elementTTL time.Duration
}

// New connects to Redis using the configured URL. Returns nil (cache
// disabled) when no URL is configured.
func New(ctx context.Context, cfg common.RedisConfig, cacheCfg common.CacheConfig) (*Cache, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return NewWithClient(rdb, cacheCfg), nil
}

// NewWithClient wraps an existing client, used by tests with miniredis.
func NewWithClient(rdb *redis.Client, cacheCfg common.CacheConfig) *Cache {
	entityTTL := time.Duration(cacheCfg.EntityTTLSeconds) * time.Second
	elementTTL := time.Duration(cacheCfg.ElementTTLSeconds) * time.Second
	if entityTTL <= 0 {
		entityTTL = time.Hour
	}
	if elementTTL <= 0 {
		elementTTL = 5 * time.Minute
	}
	return &Cache{rdb: rdb, entityTTL: entityTTL, elementTTL: elementTTL}
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

func bytesKey(kind, idB64 string) string {
	return "titan:" + kind + ":" + idB64 + ":bytes"
}

func etagKey(kind, idB64 string) string {
	return "titan:" + kind + ":" + idB64 + ":etag"
}

func elementKey(idB64, idShortPath string) string {
	sum := sha256.Sum256([]byte(idShortPath))
	return "titan:sm:" + idB64 + ":elem:" + hex.EncodeToString(sum[:]) + ":value"
}

// GetPair fetches the canonical byte/ETag pair of one entity. The second
// return is false on a miss, a half-populated pair or any Redis error.
func (c *Cache) GetPair(ctx context.Context, kind, idB64 string) (Pair, bool) {
	if c == nil {
		return Pair{}, false
	}
	pipe := c.rdb.Pipeline()
	bytesCmd := pipe.Get(ctx, bytesKey(kind, idB64))
	etagCmd := pipe.Get(ctx, etagKey(kind, idB64))
	if _, err := pipe.Exec(ctx); err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Debugf("cache read failed for %s %s: %v", kind, idB64, err)
		}
		return Pair{}, false
	}
	docBytes, err := bytesCmd.Bytes()
	if err != nil {
		return Pair{}, false
	}
	etag, err := etagCmd.Result()
	if err != nil || etag == "" {
		return Pair{}, false
	}
	return Pair{Bytes: docBytes, ETag: etag}, true
}

// SetPair stores both halves of the pair with the entity TTL.
func (c *Cache) SetPair(ctx context.Context, kind, idB64 string, pair Pair) {
	if c == nil {
		return
	}
	pipe := c.rdb.Pipeline()
	pipe.Set(ctx, bytesKey(kind, idB64), pair.Bytes, c.entityTTL)
	pipe.Set(ctx, etagKey(kind, idB64), pair.ETag, c.entityTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Debugf("cache write failed for %s %s: %v", kind, idB64, err)
	}
}

// Delete drops the pair of one entity.
func (c *Cache) Delete(ctx context.Context, kind, idB64 string) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, bytesKey(kind, idB64), etagKey(kind, idB64)).Err(); err != nil {
		log.Debugf("cache delete failed for %s %s: %v", kind, idB64, err)
	}
}

// GetElementValue fetches a cached $value projection of one element.
func (c *Cache) GetElementValue(ctx context.Context, idB64, idShortPath string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	valueBytes, err := c.rdb.Get(ctx, elementKey(idB64, idShortPath)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Debugf("element cache read failed for %s %s: %v", idB64, idShortPath, err)
		}
		return nil, false
	}
	return valueBytes, true
}

// SetElementValue stores a $value projection with the element TTL.
func (c *Cache) SetElementValue(ctx context.Context, idB64, idShortPath string, valueBytes []byte) {
	if c == nil {
		return
	}
	if err := c.rdb.Set(ctx, elementKey(idB64, idShortPath), valueBytes, c.elementTTL).Err(); err != nil {
		log.Debugf("element cache write failed for %s %s: %v", idB64, idShortPath, err)
	}
}

// InvalidateSubmodelElements drops every cached element projection of one
// submodel. Runs a cursor SCAN so large keyspaces never block Redis.
func (c *Cache) InvalidateSubmodelElements(ctx context.Context, idB64 string) {
	if c == nil {
		return
	}
	pattern := "titan:sm:" + idB64 + ":elem:*"
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			log.Debugf("element cache scan failed for %s: %v", idB64, err)
			return
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				log.Debugf("element cache invalidation failed for %s: %v", idB64, err)
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
