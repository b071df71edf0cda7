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
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	leaderEpochKey = "titan:jobs:leader:epoch"
	// DefaultLeaseTTL is the leader lease lifetime; refresh runs at half.
	DefaultLeaseTTL = 15 * time.Second
)

// refreshScript extends the lease only while we still hold it.
var refreshScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`)

// releaseScript drops the lease only while we still hold it.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// Lease is a named leader lock in Redis. The lease value carries a
// monotonically increasing epoch as a fencing token: a deposed leader's
// epoch is strictly lower than its successor's, so stale refreshes and
// releases can never disturb the new leader.
type Lease struct {
	rdb        *redis.Client
	name       string
	ttl        time.Duration
	instanceID string

	value string
	epoch int64
}

// NewLease builds a lease on the named lock.
func NewLease(rdb *redis.Client, name string, ttl time.Duration) *Lease {
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	return &Lease{
		rdb:        rdb,
		name:       "titan:jobs:leader:" + name,
		ttl:        ttl,
		instanceID: uuid.NewString(),
	}
}

// Epoch is the fencing token of the currently held lease.
func (l *Lease) Epoch() int64 {
	return l.epoch
}

// TryAcquire attempts to take the lease. Returns false when another
// instance holds it.
func (l *Lease) TryAcquire(ctx context.Context) (bool, error) {
	epoch, err := l.rdb.Incr(ctx, leaderEpochKey).Result()
	if err != nil {
		return false, err
	}
	value := l.instanceID + ":" + strconv.FormatInt(epoch, 10)
	ok, err := l.rdb.SetNX(ctx, l.name, value, l.ttl).Result()
	if err != nil || !ok {
		return false, err
	}
	l.value = value
	l.epoch = epoch
	return true, nil
}

// Refresh extends the held lease. Returns false when the lease was lost.
func (l *Lease) Refresh(ctx context.Context) (bool, error) {
	kept, err := refreshScript.Run(ctx, l.rdb, []string{l.name}, l.value, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return kept == 1, nil
}

// Release gives the lease up if still held.
func (l *Lease) Release(ctx context.Context) {
	if l.value == "" {
		return
	}
	if err := releaseScript.Run(ctx, l.rdb, []string{l.name}, l.value).Err(); err != nil {
		log.Debugf("releasing lease %s: %v", l.name, err)
	}
	l.value = ""
}

// RunWhenLeader loops forever: acquire the lease, run fn under a context
// that is cancelled the moment the lease is lost, repeat. fn must return
// promptly on context cancellation; the next leader only takes over after
// the lease TTL elapses, which is after the cancelled fn stopped.
func (l *Lease) RunWhenLeader(ctx context.Context, fn func(ctx context.Context)) {
	for {
		if ctx.Err() != nil {
			return
		}
		ok, err := l.TryAcquire(ctx)
		if err != nil {
			log.Warnf("acquiring lease %s: %v", l.name, err)
		}
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.ttl / 2):
			}
			continue
		}

		l.runAsLeader(ctx, fn)
		l.Release(context.Background())
	}
}

func (l *Lease) runAsLeader(ctx context.Context, fn func(ctx context.Context)) {
	leaderCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		ticker := time.NewTicker(l.ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-leaderCtx.Done():
				return
			case <-ticker.C:
				kept, err := l.Refresh(leaderCtx)
				if err != nil || !kept {
					log.Warnf("lost lease %s at epoch %d", l.name, l.epoch)
					cancel()
					return
				}
			}
		}
	}()

	fn(leaderCtx)
}
