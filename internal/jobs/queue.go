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

// Package jobs is the Redis-backed background job system: a priority queue
// with retry and dead-lettering, a worker pool with a per-task handler
// registry, a leader lease for singleton workloads and a cron scheduler that
// feeds the queue. All queue transitions are atomic in Redis so concurrent
// workers never double-claim.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/titan-aas/titan-go-components/internal/common"
	"github.com/titan-aas/titan-go-components/internal/common/logger"
	"github.com/titan-aas/titan-go-components/internal/common/model"
)

var (
	log     = logger.New("jobs")
	jsonStd = jsoniter.ConfigCompatibleWithStandardLibrary
)

// Queue key layout.
const (
	pendingKey    = "titan:jobs:pending"
	processingKey = "titan:jobs:processing"
	dlqKey        = "titan:jobs:dlq"
	jobKeyPrefix  = "titan:jobs:job:"
)

const (
	// DefaultMaxRetries applies when a submitted job does not set its own.
	DefaultMaxRetries = 3

	backoffBase = time.Second
	backoffCap  = 60 * time.Second

	// priorityBias folds priority into the pending score: higher priority
	// sorts strictly before any ready-time difference.
	priorityBias = float64(1 << 42) // ~139 years in milliseconds
)

// claimScript walks the pending set in priority/ready order and atomically
// moves the first ready job into the processing set. The scan pages through
// the whole set so backed-off high-priority jobs never hide a ready job
// sorted behind them.
var claimScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local offset = 0
while true do
	local candidates = redis.call('ZRANGE', KEYS[1], offset, offset + 99)
	if #candidates == 0 then
		return false
	end
	for _, id in ipairs(candidates) do
		local readyAt = redis.call('HGET', KEYS[3] .. id, 'readyAt')
		if readyAt and tonumber(readyAt) <= now then
			redis.call('ZREM', KEYS[1], id)
			redis.call('SADD', KEYS[2], id)
			return id
		end
	end
	offset = offset + 100
end
`)

// Queue is the Redis job queue. Jobs live in a per-job hash; membership in
// pending/processing/dlq encodes where the job currently sits.
type Queue struct {
	rdb *redis.Client
}

// NewQueue wraps a Redis client.
func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

func jobKey(id string) string {
	return jobKeyPrefix + id
}

// Submit enqueues a new PENDING job and returns it with its generated id.
func (q *Queue) Submit(ctx context.Context, task string, payload json.RawMessage, priority, maxRetries int) (model.Job, error) {
	if task == "" {
		return model.Job{}, common.NewErrBadRequest("job task must not be empty")
	}
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	job := model.Job{
		ID:         uuid.NewString(),
		Task:       task,
		Payload:    payload,
		Status:     model.JobPending,
		CreatedAt:  time.Now().UTC(),
		MaxRetries: maxRetries,
		Priority:   priority,
	}
	return job, q.enqueue(ctx, job, job.CreatedAt)
}

func (q *Queue) enqueue(ctx context.Context, job model.Job, readyAt time.Time) error {
	record, err := jsonStd.Marshal(job)
	if err != nil {
		return err
	}
	readyMs := readyAt.UnixMilli()
	score := float64(readyMs) - float64(job.Priority)*priorityBias

	pipe := q.rdb.TxPipeline()
	pipe.HSet(ctx, jobKey(job.ID), "record", string(record), "readyAt", strconv.FormatInt(readyMs, 10))
	pipe.ZAdd(ctx, pendingKey, redis.Z{Score: score, Member: job.ID})
	_, err = pipe.Exec(ctx)
	return err
}

// Claim atomically moves the highest-priority ready job into processing and
// marks it RUNNING. Returns nil when nothing is ready.
func (q *Queue) Claim(ctx context.Context) (*model.Job, error) {
	now := time.Now().UTC()
	result, err := claimScript.Run(ctx, q.rdb,
		[]string{pendingKey, processingKey, jobKeyPrefix},
		now.UnixMilli(),
	).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	id, ok := result.(string)
	if !ok || id == "" {
		return nil, nil
	}

	job, err := q.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	started := now
	job.Status = model.JobRunning
	job.StartedAt = &started
	job.Attempts++
	if err := q.saveRecord(ctx, job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Complete marks a RUNNING job COMPLETED and leaves processing.
func (q *Queue) Complete(ctx context.Context, job *model.Job, result json.RawMessage) error {
	now := time.Now().UTC()
	job.Status = model.JobCompleted
	job.CompletedAt = &now
	job.Result = result
	job.Error = ""
	if err := q.saveRecord(ctx, *job); err != nil {
		return err
	}
	return q.rdb.SRem(ctx, processingKey, job.ID).Err()
}

// Fail records a handler failure. Retryable jobs go back to pending with
// exponential backoff; exhausted ones move to the dead letter queue. With
// retry=false the job dead-letters immediately.
func (q *Queue) Fail(ctx context.Context, job *model.Job, jobErr error, retry bool) error {
	job.Error = jobErr.Error()
	if err := q.rdb.SRem(ctx, processingKey, job.ID).Err(); err != nil {
		return err
	}

	if retry && job.Attempts < job.MaxRetries {
		job.Status = model.JobPending
		job.StartedAt = nil
		readyAt := time.Now().UTC().Add(backoffDelay(job.Attempts))
		return q.enqueue(ctx, *job, readyAt)
	}

	now := time.Now().UTC()
	job.Status = model.JobDead
	job.CompletedAt = &now
	if err := q.saveRecord(ctx, *job); err != nil {
		return err
	}
	return q.rdb.ZAdd(ctx, dlqKey, redis.Z{Score: float64(now.UnixMilli()), Member: job.ID}).Err()
}

// Cancel transitions a job to CANCELLED. Only PENDING and RUNNING jobs can
// be cancelled; a running handler observes cancellation through its context
// the next time the worker checks.
func (q *Queue) Cancel(ctx context.Context, id string) (model.Job, error) {
	job, err := q.Get(ctx, id)
	if err != nil {
		return model.Job{}, err
	}
	switch job.Status {
	case model.JobPending, model.JobRunning:
	default:
		return model.Job{}, common.NewErrConflict("job '" + id + "' in status " + string(job.Status) + " cannot be cancelled")
	}

	now := time.Now().UTC()
	job.Status = model.JobCancelled
	job.CompletedAt = &now
	if err := q.saveRecord(ctx, job); err != nil {
		return model.Job{}, err
	}
	pipe := q.rdb.TxPipeline()
	pipe.ZRem(ctx, pendingKey, id)
	pipe.SRem(ctx, processingKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return model.Job{}, err
	}
	return job, nil
}

// Get loads one job record.
func (q *Queue) Get(ctx context.Context, id string) (model.Job, error) {
	record, err := q.rdb.HGet(ctx, jobKey(id), "record").Result()
	if errors.Is(err, redis.Nil) {
		return model.Job{}, common.NewErrNotFound("no job with id '" + id + "'")
	}
	if err != nil {
		return model.Job{}, err
	}
	var job model.Job
	if err := jsonStd.Unmarshal([]byte(record), &job); err != nil {
		return model.Job{}, err
	}
	return job, nil
}

// DeadLetters pages the ids in the dead letter queue, oldest first.
func (q *Queue) DeadLetters(ctx context.Context, limit int64) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	return q.rdb.ZRange(ctx, dlqKey, 0, limit-1).Result()
}

// PendingCount reports the pending set size, used by the readiness probe.
func (q *Queue) PendingCount(ctx context.Context) (int64, error) {
	return q.rdb.ZCard(ctx, pendingKey).Result()
}

func (q *Queue) saveRecord(ctx context.Context, job model.Job) error {
	record, err := jsonStd.Marshal(job)
	if err != nil {
		return err
	}
	return q.rdb.HSet(ctx, jobKey(job.ID), "record", string(record)).Err()
}

// backoffDelay is the retry delay after the given attempt count: base 1s
// doubling per attempt, capped at 60s, with up to 25% jitter.
func backoffDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := backoffBase << (attempts - 1)
	if delay > backoffCap || delay <= 0 {
		delay = backoffCap
	}
	jitter := time.Duration(rand.Int63n(int64(delay) / 4))
	return delay + jitter
}
