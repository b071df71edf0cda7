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

	"github.com/lib/pq"

	"github.com/titan-aas/titan-go-components/internal/common"
	"github.com/titan-aas/titan-go-components/internal/common/model"
	"github.com/titan-aas/titan-go-components/internal/projection"
)

// AASRepository persists Asset Administration Shells.
type AASRepository struct {
	store *Store
	bus   EventPublisher
}

// NewAASRepository wires the shell repository onto the store and event bus.
func NewAASRepository(store *Store, bus EventPublisher) *AASRepository {
	return &AASRepository{store: store, bus: bus}
}

// Create validates, canonicalizes and inserts a new shell. A colliding id
// within the tenant fails with Conflict.
func (r *AASRepository) Create(ctx context.Context, tenant string, payload []byte) (Entry, error) {
	shell, err := model.ParseAssetAdministrationShell(payload)
	if err != nil {
		return Entry{}, err
	}
	canonical, err := common.Canonicalize(payload)
	if err != nil {
		return Entry{}, err
	}
	etag := common.ETagOf(canonical)

	specificAssetIDs, err := jsonStd.Marshal(shell.AssetInformation.SpecificAssetIDs)
	if err != nil {
		return Entry{}, err
	}

	_, err = r.store.db.ExecContext(ctx, `
		INSERT INTO aas (tenant_id, id, id_b64, doc, doc_bytes, etag, global_asset_id, specific_asset_ids)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8::jsonb)`,
		tenant, shell.ID, common.EncodeID(shell.ID), string(canonical), canonical, etag,
		shell.AssetInformation.GlobalAssetID, string(specificAssetIDs),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return Entry{}, common.NewErrConflict("shell with id '" + shell.ID + "' already exists")
		}
		return Entry{}, err
	}

	publish(ctx, r.bus, model.NewEvent(model.EventCreated, model.EntityAAS, shell.ID, etag, canonical))
	return Entry{Bytes: canonical, ETag: etag}, nil
}

// Get returns the canonical pair of one shell.
func (r *AASRepository) Get(ctx context.Context, tenant, id string) (Entry, error) {
	return r.store.getEntry(ctx, "aas", tenant, id)
}

// List pages shells in (created_at, id) order, optionally filtered by
// idShort.
func (r *AASRepository) List(ctx context.Context, tenant, cursor string, limit int, idShort string) (Page, error) {
	if idShort != "" {
		return r.store.listEntries(ctx, "aas", tenant, cursor, limit, `doc->>'idShort' = %s`, idShort)
	}
	return r.store.listEntries(ctx, "aas", tenant, cursor, limit, "")
}

// Replace swaps the document of an existing shell under the conditional-write
// contract.
func (r *AASRepository) Replace(ctx context.Context, tenant, id string, payload []byte, ifMatch string) (Entry, error) {
	shell, err := model.ParseAssetAdministrationShell(payload)
	if err != nil {
		return Entry{}, err
	}
	if shell.ID != id {
		return Entry{}, common.NewErrBadRequest("payload id does not match addressed shell")
	}
	canonical, err := common.Canonicalize(payload)
	if err != nil {
		return Entry{}, err
	}
	etag := common.ETagOf(canonical)

	specificAssetIDs, err := jsonStd.Marshal(shell.AssetInformation.SpecificAssetIDs)
	if err != nil {
		return Entry{}, err
	}

	err = r.store.withTx(ctx, func(tx *sql.Tx) error {
		current, err := currentETagForUpdate(ctx, tx, "aas", tenant, id)
		if err != nil {
			return err
		}
		if err := checkIfMatch(ifMatch, current); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE aas SET doc=$1::jsonb, doc_bytes=$2, etag=$3, global_asset_id=$4,
				specific_asset_ids=$5::jsonb, updated_at=now()
			WHERE tenant_id=$6 AND id=$7`,
			string(canonical), canonical, etag, shell.AssetInformation.GlobalAssetID,
			string(specificAssetIDs), tenant, id,
		)
		return err
	})
	if err != nil {
		return Entry{}, err
	}

	publish(ctx, r.bus, model.NewEvent(model.EventUpdated, model.EntityAAS, id, etag, canonical))
	return Entry{Bytes: canonical, ETag: etag}, nil
}

// Patch applies an RFC 7386 merge-patch to the current document, then
// replaces it.
func (r *AASRepository) Patch(ctx context.Context, tenant, id string, patch []byte, ifMatch string) (Entry, error) {
	current, err := r.Get(ctx, tenant, id)
	if err != nil {
		return Entry{}, err
	}
	if ifMatch != "" {
		if err := checkIfMatch(ifMatch, current.ETag); err != nil {
			return Entry{}, err
		}
	}
	patched, err := applyMergePatch(current.Bytes, patch)
	if err != nil {
		return Entry{}, err
	}
	return r.Replace(ctx, tenant, id, patched, ifMatch)
}

// Delete removes a shell. Deleting a missing shell returns NotFound with no
// side effects.
func (r *AASRepository) Delete(ctx context.Context, tenant, id string, ifMatch string) error {
	err := r.store.withTx(ctx, func(tx *sql.Tx) error {
		current, err := currentETagForUpdate(ctx, tx, "aas", tenant, id)
		if err != nil {
			return err
		}
		if err := checkIfMatch(ifMatch, current); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM aas WHERE tenant_id=$1 AND id=$2`, tenant, id)
		return err
	})
	if err != nil {
		return err
	}
	publish(ctx, r.bus, model.NewEvent(model.EventDeleted, model.EntityAAS, id, "", nil))
	return nil
}

// AssetLink is one decoded assetIds query entry: a global asset id, a
// specific asset id pair, or both.
type AssetLink struct {
	GlobalAssetID string `json:"globalAssetId,omitempty"`
	Name          string `json:"name,omitempty"`
	Value         string `json:"value,omitempty"`
}

// LookupShells returns the union of shells matching any of the asset links.
func (r *AASRepository) LookupShells(ctx context.Context, tenant string, links []AssetLink) ([]Entry, error) {
	seen := map[string]bool{}
	var entries []Entry
	for _, link := range links {
		var rows *sql.Rows
		var err error
		switch {
		case link.GlobalAssetID != "":
			rows, err = r.store.db.QueryContext(ctx, `
				SELECT id, doc_bytes, etag FROM aas
				WHERE tenant_id=$1 AND global_asset_id=$2
				ORDER BY created_at, id`,
				tenant, link.GlobalAssetID)
		case link.Name != "":
			pair, marshalErr := jsonStd.Marshal([]map[string]string{{"name": link.Name, "value": link.Value}})
			if marshalErr != nil {
				return nil, marshalErr
			}
			rows, err = r.store.db.QueryContext(ctx, `
				SELECT id, doc_bytes, etag FROM aas
				WHERE tenant_id=$1 AND specific_asset_ids @> $2::jsonb
				ORDER BY created_at, id`,
				tenant, string(pair))
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := collectLookupRows(rows, seen, &entries); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func collectLookupRows(rows *sql.Rows, seen map[string]bool, entries *[]Entry) error {
	defer rows.Close()
	for rows.Next() {
		var id string
		var entry Entry
		if err := rows.Scan(&id, &entry.Bytes, &entry.ETag); err != nil {
			return err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		*entries = append(*entries, entry)
	}
	return rows.Err()
}

// applyMergePatch merges a patch into current canonical bytes and returns
// the patched payload for re-validation.
func applyMergePatch(current, patch []byte) ([]byte, error) {
	currentDoc, err := decodeDoc(current)
	if err != nil {
		return nil, err
	}
	patchDoc, err := decodeDoc(patch)
	if err != nil {
		return nil, common.NewErrBadRequest("merge-patch body is not a JSON object")
	}
	merged := projection.MergePatch(currentDoc, patchDoc)
	return jsonStd.Marshal(merged)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
