/*
 * DotAAS Part 2 | Operation invocation records.
 */

package model

import (
	"encoding/json"
	"time"
)

// ExecutionState tracks an asynchronous operation invocation.
type ExecutionState string

const (
	ExecutionPending   ExecutionState = "PENDING"
	ExecutionRunning   ExecutionState = "RUNNING"
	ExecutionCompleted ExecutionState = "COMPLETED"
	ExecutionFailed    ExecutionState = "FAILED"
	ExecutionTimeout   ExecutionState = "TIMEOUT"
	ExecutionCancelled ExecutionState = "CANCELLED"
)

// OperationInvocation records a single invoke of an Operation element. It is
// created in state PENDING and mutated only by the executing subscriber
// through the event bus.
type OperationInvocation struct {
	InvocationID   string              `json:"invocationId"`
	SubmodelID     string              `json:"submodelId"`
	IDShortPath    string              `json:"idShortPath"`
	ExecutionState ExecutionState      `json:"executionState"`
	Inputs         json.RawMessage `json:"inputs,omitempty"`
	Inoutputs      json.RawMessage `json:"inoutputs,omitempty"`
	Outputs        json.RawMessage `json:"outputs,omitempty"`
	CorrelationID  string              `json:"correlationId,omitempty"`
	TimeoutMs      int64               `json:"timeoutMs,omitempty"`
	RequestedBy    string              `json:"requestedBy,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}
