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
	"errors"
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

func setupQueue(t *testing.T) (*Queue, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewQueue(rdb), rdb
}

func TestQueueSubmitAndClaim(t *testing.T) {
	q, _ := setupQueue(t)
	ctx := context.Background()

	submitted, err := q.Submit(ctx, "reindex", json.RawMessage(`{"scope":"all"}`), 0, -1)
	require.NoError(t, err)
	assert.Equal(t, model.JobPending, submitted.Status)
	assert.Equal(t, DefaultMaxRetries, submitted.MaxRetries)

	job, err := q.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, submitted.ID, job.ID)
	assert.Equal(t, model.JobRunning, job.Status)
	assert.Equal(t, 1, job.Attempts)
	require.NotNil(t, job.StartedAt)

	// queue is drained
	next, err := q.Claim(ctx)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestQueueClaimServesHigherPriorityFirst(t *testing.T) {
	q, _ := setupQueue(t)
	ctx := context.Background()

	low, err := q.Submit(ctx, "sync", nil, 0, -1)
	require.NoError(t, err)
	high, err := q.Submit(ctx, "sync", nil, 5, -1)
	require.NoError(t, err)

	first, err := q.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, high.ID, first.ID)

	second, err := q.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, low.ID, second.ID)
}

func TestQueueCompleteRemovesFromProcessing(t *testing.T) {
	q, rdb := setupQueue(t)
	ctx := context.Background()

	_, err := q.Submit(ctx, "sync", nil, 0, -1)
	require.NoError(t, err)
	job, err := q.Claim(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Complete(ctx, job, json.RawMessage(`{"synced":3}`)))

	stored, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, stored.Status)
	assert.True(t, stored.Terminal())

	members, err := rdb.SMembers(ctx, processingKey).Result()
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestQueueFailRetriesWithBackoff(t *testing.T) {
	q, _ := setupQueue(t)
	ctx := context.Background()

	_, err := q.Submit(ctx, "sync", nil, 0, 2)
	require.NoError(t, err)
	job, err := q.Claim(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Fail(ctx, job, errors.New("upstream down"), true))

	stored, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobPending, stored.Status)
	assert.Equal(t, "upstream down", stored.Error)

	// backed off: not claimable before its ready time
	next, err := q.Claim(ctx)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestQueueFailDeadLettersAfterMaxRetries(t *testing.T) {
	q, rdb := setupQueue(t)
	ctx := context.Background()

	_, err := q.Submit(ctx, "sync", nil, 0, 0)
	require.NoError(t, err)
	job, err := q.Claim(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Fail(ctx, job, errors.New("boom"), true))

	stored, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobDead, stored.Status)

	dead, err := q.DeadLetters(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{job.ID}, dead)

	pending, err := rdb.ZCard(ctx, pendingKey).Result()
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestQueueFailRetryBudgetIsExact(t *testing.T) {
	q, _ := setupQueue(t)
	ctx := context.Background()

	submitted, err := q.Submit(ctx, "sync", nil, 0, 1)
	require.NoError(t, err)

	job, err := q.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, 1, job.Attempts)

	// the single allowed run is spent, so a retryable failure dead-letters
	require.NoError(t, q.Fail(ctx, job, errors.New("boom"), true))

	stored, err := q.Get(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobDead, stored.Status)

	dead, err := q.DeadLetters(ctx, 10)
	require.NoError(t, err)
	assert.Contains(t, dead, submitted.ID)
}

func TestQueueClaimScansPastBackedOffJobs(t *testing.T) {
	q, _ := setupQueue(t)
	ctx := context.Background()

	// more backed-off high-priority jobs than one scan page holds
	notBefore := time.Now().UTC().Add(time.Minute)
	for i := 0; i < 120; i++ {
		job := model.Job{
			ID:         fmt.Sprintf("backed-off-%03d", i),
			Task:       "sync",
			Status:     model.JobPending,
			CreatedAt:  time.Now().UTC(),
			MaxRetries: DefaultMaxRetries,
			Priority:   5,
		}
		require.NoError(t, q.enqueue(ctx, job, notBefore))
	}

	ready, err := q.Submit(ctx, "sync", nil, 0, -1)
	require.NoError(t, err)

	job, err := q.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, ready.ID, job.ID)
}

func TestQueueCancel(t *testing.T) {
	q, _ := setupQueue(t)
	ctx := context.Background()

	submitted, err := q.Submit(ctx, "sync", nil, 0, -1)
	require.NoError(t, err)

	cancelled, err := q.Cancel(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobCancelled, cancelled.Status)

	// cancelled jobs never surface again
	job, err := q.Claim(ctx)
	require.NoError(t, err)
	assert.Nil(t, job)

	// terminal jobs cannot be cancelled twice
	_, err = q.Cancel(ctx, submitted.ID)
	assert.True(t, common.IsErrConflict(err))

	_, err = q.Cancel(ctx, "does-not-exist")
	assert.True(t, common.IsErrNotFound(err))
}

func TestBackoffDelayBounds(t *testing.T) {
	for attempts := 1; attempts <= 12; attempts++ {
		delay := backoffDelay(attempts)
		assert.GreaterOrEqual(t, delay, time.Second)
		assert.LessOrEqual(t, delay, backoffCap+backoffCap/4)
	}
}

func TestWorkerRunsHandler(t *testing.T) {
	q, _ := setupQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	submitted, err := q.Submit(ctx, "reindex", json.RawMessage(`{"scope":"all"}`), 0, -1)
	require.NoError(t, err)

	done := make(chan struct{})
	worker := NewWorker(q, 2)
	worker.pollInterval = 10 * time.Millisecond
	worker.Register("reindex", func(ctx context.Context, job *model.Job) (json.RawMessage, error) {
		defer close(done)
		assert.Equal(t, submitted.ID, job.ID)
		return json.RawMessage(`{"indexed":42}`), nil
	})

	go worker.Run(ctx)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handler never ran")
	}

	require.Eventually(t, func() bool {
		stored, err := q.Get(context.Background(), submitted.ID)
		return err == nil && stored.Status == model.JobCompleted
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWorkerDeadLettersUnknownTask(t *testing.T) {
	q, _ := setupQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	submitted, err := q.Submit(ctx, "no-such-task", nil, 0, -1)
	require.NoError(t, err)

	worker := NewWorker(q, 1)
	worker.pollInterval = 10 * time.Millisecond
	go worker.Run(ctx)

	require.Eventually(t, func() bool {
		stored, err := q.Get(context.Background(), submitted.ID)
		return err == nil && stored.Status == model.JobDead
	}, 5*time.Second, 10*time.Millisecond)
}

func TestLeaseExclusive(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	ctx := context.Background()

	first := NewLease(rdb, "scheduler", time.Second)
	second := NewLease(rdb, "scheduler", time.Second)

	ok, err := first.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	kept, err := first.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, kept)

	first.Release(ctx)

	ok, err = second.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	// epochs fence: the successor's epoch is strictly higher
	assert.Greater(t, second.Epoch(), first.Epoch())

	kept, err = first.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, kept)
}

func TestSchedulerTick(t *testing.T) {
	q, _ := setupQueue(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	s := NewScheduler(q, NewLease(rdb, "scheduler", time.Second))
	require.NoError(t, s.Add(ScheduleEntry{Name: "sync", Task: "federation_sync", Spec: "every_minute"}))
	require.NoError(t, s.Add(ScheduleEntry{Name: "cleanup", Task: "blob_cleanup", Spec: "daily_midnight"}))
	require.NoError(t, s.Add(ScheduleEntry{Name: "off", Task: "noop", Spec: "every_minute", Disabled: true}))

	assert.Error(t, s.Add(ScheduleEntry{Name: "bad", Task: "x", Spec: "not a cron"}))
	assert.Error(t, s.Add(ScheduleEntry{Name: "", Task: "x", Spec: "every_minute"}))

	ctx := context.Background()
	noon := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	s.tick(ctx, noon)

	job, err := q.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "federation_sync", job.Task)

	// only the every_minute entry fired at 12:30
	next, err := q.Claim(ctx)
	require.NoError(t, err)
	assert.Nil(t, next)

	midnight := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	s.tick(ctx, midnight)

	tasks := map[string]bool{}
	for {
		job, err := q.Claim(ctx)
		require.NoError(t, err)
		if job == nil {
			break
		}
		tasks[job.Task] = true
	}
	assert.True(t, tasks["federation_sync"])
	assert.True(t, tasks["blob_cleanup"])
	assert.False(t, tasks["noop"])
}
