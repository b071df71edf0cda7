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

	"github.com/titan-aas/titan-go-components/internal/common"
	"github.com/titan-aas/titan-go-components/internal/common/model"
)

// ConceptDescriptionRepository persists ConceptDescriptions.
type ConceptDescriptionRepository struct {
	store *Store
	bus   EventPublisher
}

// NewConceptDescriptionRepository wires the concept description repository
// onto the store and event bus.
func NewConceptDescriptionRepository(store *Store, bus EventPublisher) *ConceptDescriptionRepository {
	return &ConceptDescriptionRepository{store: store, bus: bus}
}

// Create validates, canonicalizes and inserts a new concept description.
func (r *ConceptDescriptionRepository) Create(ctx context.Context, tenant string, payload []byte) (Entry, error) {
	cd, err := model.ParseConceptDescription(payload)
	if err != nil {
		return Entry{}, err
	}
	canonical, err := common.Canonicalize(payload)
	if err != nil {
		return Entry{}, err
	}
	etag := common.ETagOf(canonical)

	_, err = r.store.db.ExecContext(ctx, `
		INSERT INTO concept_descriptions (tenant_id, id, id_b64, doc, doc_bytes, etag)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6)`,
		tenant, cd.ID, common.EncodeID(cd.ID), string(canonical), canonical, etag,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return Entry{}, common.NewErrConflict("concept description with id '" + cd.ID + "' already exists")
		}
		return Entry{}, err
	}

	publish(ctx, r.bus, model.NewEvent(model.EventCreated, model.EntityConceptDescription, cd.ID, etag, canonical))
	return Entry{Bytes: canonical, ETag: etag}, nil
}

// Get returns the canonical pair of one concept description.
func (r *ConceptDescriptionRepository) Get(ctx context.Context, tenant, id string) (Entry, error) {
	return r.store.getEntry(ctx, "concept_descriptions", tenant, id)
}

// List pages concept descriptions, optionally filtered by idShort.
func (r *ConceptDescriptionRepository) List(ctx context.Context, tenant, cursor string, limit int, idShort string) (Page, error) {
	if idShort != "" {
		return r.store.listEntries(ctx, "concept_descriptions", tenant, cursor, limit, `doc->>'idShort' = %s`, idShort)
	}
	return r.store.listEntries(ctx, "concept_descriptions", tenant, cursor, limit, "")
}

// Replace swaps the document of an existing concept description.
func (r *ConceptDescriptionRepository) Replace(ctx context.Context, tenant, id string, payload []byte, ifMatch string) (Entry, error) {
	cd, err := model.ParseConceptDescription(payload)
	if err != nil {
		return Entry{}, err
	}
	if cd.ID != id {
		return Entry{}, common.NewErrBadRequest("payload id does not match addressed concept description")
	}
	canonical, err := common.Canonicalize(payload)
	if err != nil {
		return Entry{}, err
	}
	etag := common.ETagOf(canonical)

	err = r.store.withTx(ctx, func(tx *sql.Tx) error {
		current, err := currentETagForUpdate(ctx, tx, "concept_descriptions", tenant, id)
		if err != nil {
			return err
		}
		if err := checkIfMatch(ifMatch, current); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE concept_descriptions SET doc=$1::jsonb, doc_bytes=$2, etag=$3, updated_at=now()
			WHERE tenant_id=$4 AND id=$5`,
			string(canonical), canonical, etag, tenant, id,
		)
		return err
	})
	if err != nil {
		return Entry{}, err
	}

	publish(ctx, r.bus, model.NewEvent(model.EventUpdated, model.EntityConceptDescription, id, etag, canonical))
	return Entry{Bytes: canonical, ETag: etag}, nil
}

// Delete removes a concept description.
func (r *ConceptDescriptionRepository) Delete(ctx context.Context, tenant, id string, ifMatch string) error {
	err := r.store.withTx(ctx, func(tx *sql.Tx) error {
		current, err := currentETagForUpdate(ctx, tx, "concept_descriptions", tenant, id)
		if err != nil {
			return err
		}
		if err := checkIfMatch(ifMatch, current); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM concept_descriptions WHERE tenant_id=$1 AND id=$2`, tenant, id)
		return err
	})
	if err != nil {
		return err
	}
	publish(ctx, r.bus, model.NewEvent(model.EventDeleted, model.EntityConceptDescription, id, "", nil))
	return nil
}
