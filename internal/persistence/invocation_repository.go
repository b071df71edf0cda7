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

package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/titan-aas/titan-go-components/internal/common"
	"github.com/titan-aas/titan-go-components/internal/common/model"
)

// InvocationRepository persists operation invocation records. Records are
// created PENDING by the invoke endpoint and advanced by the executing
// subscriber.
type InvocationRepository struct {
	store *Store
	bus   EventPublisher
}

// NewInvocationRepository wires the invocation repository onto the store and
// event bus.
func NewInvocationRepository(store *Store, bus EventPublisher) *InvocationRepository {
	return &InvocationRepository{store: store, bus: bus}
}

// Create stores a new invocation in state PENDING and publishes the
// OperationInvoked event downstream executors subscribe to.
func (r *InvocationRepository) Create(ctx context.Context, invocation model.OperationInvocation) (model.OperationInvocation, error) {
	if invocation.InvocationID == "" {
		invocation.InvocationID = uuid.NewString()
	}
	invocation.ExecutionState = model.ExecutionPending
	now := time.Now().UTC()
	invocation.CreatedAt = now
	invocation.UpdatedAt = now

	record, err := jsonStd.Marshal(invocation)
	if err != nil {
		return model.OperationInvocation{}, err
	}
	_, err = r.store.db.ExecContext(ctx, `
		INSERT INTO invocations (invocation_id, submodel_id, id_short_path, execution_state, record, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $6)`,
		invocation.InvocationID, invocation.SubmodelID, invocation.IDShortPath,
		string(invocation.ExecutionState), string(record), now,
	)
	if err != nil {
		return model.OperationInvocation{}, err
	}

	docBytes, _ := common.CanonicalizeValue(invocation)
	publish(ctx, r.bus, model.NewEvent(model.EventCreated, model.EntityInvocation, invocation.InvocationID, "", docBytes))
	return invocation, nil
}

// Get returns one invocation record.
func (r *InvocationRepository) Get(ctx context.Context, invocationID string) (model.OperationInvocation, error) {
	var record []byte
	err := r.store.db.QueryRowContext(ctx,
		`SELECT record FROM invocations WHERE invocation_id=$1`, invocationID,
	).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return model.OperationInvocation{}, common.NewErrNotFound("no invocation with id '" + invocationID + "'")
	}
	if err != nil {
		return model.OperationInvocation{}, err
	}
	var invocation model.OperationInvocation
	if err := jsonStd.Unmarshal(record, &invocation); err != nil {
		return model.OperationInvocation{}, err
	}
	return invocation, nil
}

// PurgeTerminal removes terminal invocation records whose last update is
// older than the retention window. Used by the scheduled maintenance job.
func (r *InvocationRepository) PurgeTerminal(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	result, err := r.store.db.ExecContext(ctx, `
		DELETE FROM invocations
		WHERE execution_state IN ('COMPLETED', 'FAILED', 'TIMEOUT', 'CANCELLED')
		AND updated_at < $1`, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// UpdateState advances an invocation's execution state with optional output
// payloads. State changes of terminal records are rejected.
func (r *InvocationRepository) UpdateState(ctx context.Context, invocationID string, state model.ExecutionState, outputs, inoutputs []byte) (model.OperationInvocation, error) {
	invocation, err := r.Get(ctx, invocationID)
	if err != nil {
		return model.OperationInvocation{}, err
	}
	switch invocation.ExecutionState {
	case model.ExecutionCompleted, model.ExecutionFailed, model.ExecutionTimeout, model.ExecutionCancelled:
		return model.OperationInvocation{}, common.NewErrConflict("invocation '" + invocationID + "' is already terminal")
	}

	invocation.ExecutionState = state
	invocation.UpdatedAt = time.Now().UTC()
	if outputs != nil {
		invocation.Outputs = outputs
	}
	if inoutputs != nil {
		invocation.Inoutputs = inoutputs
	}

	record, err := jsonStd.Marshal(invocation)
	if err != nil {
		return model.OperationInvocation{}, err
	}
	_, err = r.store.db.ExecContext(ctx, `
		UPDATE invocations SET execution_state=$1, record=$2::jsonb, updated_at=$3
		WHERE invocation_id=$4`,
		string(state), string(record), invocation.UpdatedAt, invocationID,
	)
	if err != nil {
		return model.OperationInvocation{}, err
	}

	docBytes, _ := common.CanonicalizeValue(invocation)
	publish(ctx, r.bus, model.NewEvent(model.EventUpdated, model.EntityInvocation, invocationID, "", docBytes))
	return invocation, nil
}
