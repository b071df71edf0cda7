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

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/titan-aas/titan-go-components/internal/common"
)

// EventType classifies an entity mutation.
type EventType string

const (
	EventCreated EventType = "CREATED"
	EventUpdated EventType = "UPDATED"
	EventDeleted EventType = "DELETED"
)

// Entity kinds appearing in event envelopes.
const (
	EntityAAS                = "aas"
	EntitySubmodel           = "submodel"
	EntitySubmodelElement    = "submodel_element"
	EntityConceptDescription = "cd"
	EntityInvocation         = "invocation"
)

// Event is the envelope published for every committed mutation. EventID is
// unique per production; Timestamp is monotonic per entity.
type Event struct {
	EventID       string    `json:"eventId"`
	EventType     EventType `json:"eventType"`
	Entity        string    `json:"entity"`
	Identifier    string    `json:"identifier"`
	IdentifierB64 string    `json:"identifierB64"`
	Timestamp     time.Time `json:"timestamp"`
	ETag          string    `json:"etag,omitempty"`
	DocBytes      []byte    `json:"docBytes,omitempty"`
	ValueBytes    []byte    `json:"valueBytes,omitempty"`
	IDShortPath   string    `json:"idShortPath,omitempty"`
}

// NewEvent builds an envelope for an entity-level mutation.
func NewEvent(eventType EventType, entity, identifier, etag string, docBytes []byte) Event {
	return Event{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Entity:        entity,
		Identifier:    identifier,
		IdentifierB64: common.EncodeID(identifier),
		Timestamp:     time.Now().UTC(),
		ETag:          etag,
		DocBytes:      docBytes,
	}
}

// NewElementEvent builds an envelope for a submodel-element mutation. The
// identifier is the hosting submodel id; ValueBytes carry the element's
// $value projection for cache reconciliation.
func NewElementEvent(eventType EventType, submodelID, idShortPath string, valueBytes []byte) Event {
	event := NewEvent(eventType, EntitySubmodelElement, submodelID, "", nil)
	event.IDShortPath = idShortPath
	event.ValueBytes = valueBytes
	return event
}
