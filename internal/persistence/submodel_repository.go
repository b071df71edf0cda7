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

	"github.com/google/uuid"

	"github.com/titan-aas/titan-go-components/internal/blob"
	"github.com/titan-aas/titan-go-components/internal/common"
	"github.com/titan-aas/titan-go-components/internal/common/model"
	"github.com/titan-aas/titan-go-components/internal/projection"
)

// SubmodelRepository persists Submodels with blob externalization and
// cascade deletion.
type SubmodelRepository struct {
	store *Store
	bus   EventPublisher
	blobs blob.Backend
}

// NewSubmodelRepository wires the submodel repository onto the store, event
// bus and blob backend.
func NewSubmodelRepository(store *Store, bus EventPublisher, blobs blob.Backend) *SubmodelRepository {
	return &SubmodelRepository{store: store, bus: bus, blobs: blobs}
}

// Create validates, externalizes blob values, canonicalizes and inserts a
// new submodel.
func (r *SubmodelRepository) Create(ctx context.Context, tenant string, payload []byte) (Entry, error) {
	return r.create(ctx, tenant, payload, nil)
}

// create is the shared insert path. staged carries metadata of blobs already
// written to the backend for this document (copies made during
// instantiation); their rows are inserted in the same transaction as the
// submodel, and the objects are cleaned up if the insert fails.
func (r *SubmodelRepository) create(ctx context.Context, tenant string, payload []byte, staged []blob.Metadata) (Entry, error) {
	submodel, err := model.ParseSubmodel(payload)
	if err != nil {
		return Entry{}, err
	}
	doc, err := decodeDoc(payload)
	if err != nil {
		return Entry{}, err
	}
	external, err := blob.Externalize(ctx, r.blobs, submodel.ID, doc)
	if err != nil {
		return Entry{}, err
	}
	external.NewBlobs = append(external.NewBlobs, staged...)
	canonical, err := common.CanonicalizeValue(doc)
	if err != nil {
		return Entry{}, err
	}
	etag := common.ETagOf(canonical)

	err = r.store.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO submodels (tenant_id, id, id_b64, doc, doc_bytes, etag, semantic_id, kind)
			VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8)`,
			tenant, submodel.ID, common.EncodeID(submodel.ID), string(canonical), canonical, etag,
			semanticIDValue(submodel.SemanticID), string(submodel.Kind),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return common.NewErrConflict("submodel with id '" + submodel.ID + "' already exists")
			}
			return err
		}
		return insertBlobRows(ctx, tx, external.NewBlobs)
	})
	if err != nil {
		// Orphaned backend objects of a failed insert are removed eagerly.
		for _, meta := range external.NewBlobs {
			_ = r.blobs.Delete(ctx, meta)
		}
		return Entry{}, err
	}

	publish(ctx, r.bus, model.NewEvent(model.EventCreated, model.EntitySubmodel, submodel.ID, etag, canonical))
	return Entry{Bytes: canonical, ETag: etag}, nil
}

// Get returns the canonical pair of one submodel.
func (r *SubmodelRepository) Get(ctx context.Context, tenant, id string) (Entry, error) {
	return r.store.getEntry(ctx, "submodels", tenant, id)
}

// List pages submodels, optionally filtered by semanticId and/or idShort.
func (r *SubmodelRepository) List(ctx context.Context, tenant, cursor string, limit int, semanticID, idShort string) (Page, error) {
	switch {
	case semanticID != "" && idShort != "":
		return r.store.listEntries(ctx, "submodels", tenant, cursor, limit,
			`semantic_id = %s AND doc->>'idShort' = %s`, semanticID, idShort)
	case semanticID != "":
		return r.store.listEntries(ctx, "submodels", tenant, cursor, limit, `semantic_id = %s`, semanticID)
	case idShort != "":
		return r.store.listEntries(ctx, "submodels", tenant, cursor, limit, `doc->>'idShort' = %s`, idShort)
	default:
		return r.store.listEntries(ctx, "submodels", tenant, cursor, limit, "")
	}
}

// Replace swaps the document of an existing submodel. Blobs referenced by
// the previous version but not the new one are cascade-deleted.
func (r *SubmodelRepository) Replace(ctx context.Context, tenant, id string, payload []byte, ifMatch string) (Entry, error) {
	submodel, err := model.ParseSubmodel(payload)
	if err != nil {
		return Entry{}, err
	}
	if submodel.ID != id {
		return Entry{}, common.NewErrBadRequest("payload id does not match addressed submodel")
	}
	doc, err := decodeDoc(payload)
	if err != nil {
		return Entry{}, err
	}
	external, err := blob.Externalize(ctx, r.blobs, id, doc)
	if err != nil {
		return Entry{}, err
	}
	return r.replaceDoc(ctx, tenant, id, doc, external, ifMatch, submodel)
}

// replaceDoc is the shared tail of replace/patch/element mutations: write
// doc+bytes+etag atomically, diff blob references, emit UPDATED.
func (r *SubmodelRepository) replaceDoc(ctx context.Context, tenant, id string, doc map[string]interface{}, external blob.Result, ifMatch string, submodel *model.Submodel) (Entry, error) {
	canonical, err := common.CanonicalizeValue(doc)
	if err != nil {
		return Entry{}, err
	}
	etag := common.ETagOf(canonical)

	keep := map[string]bool{}
	for _, meta := range external.NewBlobs {
		keep[meta.ID] = true
	}
	for _, refID := range external.ReferencedIDs {
		keep[refID] = true
	}

	var orphans []blob.Metadata
	err = r.store.withTx(ctx, func(tx *sql.Tx) error {
		current, err := currentETagForUpdate(ctx, tx, "submodels", tenant, id)
		if err != nil {
			return err
		}
		if err := checkIfMatch(ifMatch, current); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE submodels SET doc=$1::jsonb, doc_bytes=$2, etag=$3, semantic_id=$4, kind=$5, updated_at=now()
			WHERE tenant_id=$6 AND id=$7`,
			string(canonical), canonical, etag,
			semanticIDValue(submodel.SemanticID), string(submodel.Kind), tenant, id,
		)
		if err != nil {
			return err
		}
		if err := insertBlobRows(ctx, tx, external.NewBlobs); err != nil {
			return err
		}
		orphans, err = deleteOrphanBlobRows(ctx, tx, id, keep)
		return err
	})
	if err != nil {
		for _, meta := range external.NewBlobs {
			_ = r.blobs.Delete(ctx, meta)
		}
		return Entry{}, err
	}

	for _, meta := range orphans {
		if err := r.blobs.Delete(ctx, meta); err != nil {
			log.Error("deleting orphaned blob "+meta.ID, err)
		}
	}

	publish(ctx, r.bus, model.NewEvent(model.EventUpdated, model.EntitySubmodel, id, etag, canonical))
	return Entry{Bytes: canonical, ETag: etag}, nil
}

// Patch applies an RFC 7386 merge-patch to the submodel, then replaces it.
func (r *SubmodelRepository) Patch(ctx context.Context, tenant, id string, patch []byte, ifMatch string) (Entry, error) {
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

// Delete removes a submodel and every blob whose submodel_id matches.
func (r *SubmodelRepository) Delete(ctx context.Context, tenant, id string, ifMatch string) error {
	var cascade []blob.Metadata
	err := r.store.withTx(ctx, func(tx *sql.Tx) error {
		current, err := currentETagForUpdate(ctx, tx, "submodels", tenant, id)
		if err != nil {
			return err
		}
		if err := checkIfMatch(ifMatch, current); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM submodels WHERE tenant_id=$1 AND id=$2`, tenant, id); err != nil {
			return err
		}
		cascade, err = deleteOrphanBlobRows(ctx, tx, id, nil)
		return err
	})
	if err != nil {
		return err
	}

	for _, meta := range cascade {
		if err := r.blobs.Delete(ctx, meta); err != nil {
			log.Error("cascade-deleting blob "+meta.ID, err)
		}
	}

	publish(ctx, r.bus, model.NewEvent(model.EventDeleted, model.EntitySubmodel, id, "", nil))
	return nil
}

// LookupSubmodels returns the submodels whose semanticId key value matches.
func (r *SubmodelRepository) LookupSubmodels(ctx context.Context, tenant, semanticID string) ([]Entry, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT id, doc_bytes, etag FROM submodels
		WHERE tenant_id=$1 AND semantic_id=$2
		ORDER BY created_at, id`,
		tenant, semanticID)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var entries []Entry
	if err := collectLookupRows(rows, seen, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Instantiate deep-copies a template submodel into a new instance: fresh id,
// kind Instance, optional value overrides applied per idShortPath. Blob
// values are copied so the instance owns its externalized content.
func (r *SubmodelRepository) Instantiate(ctx context.Context, tenant, templateID, newID string, valueOverrides map[string]interface{}) (Entry, error) {
	template, err := r.Get(ctx, tenant, templateID)
	if err != nil {
		return Entry{}, err
	}
	doc, err := decodeDoc(template.Bytes)
	if err != nil {
		return Entry{}, err
	}
	if doc["kind"] != string(model.ModellingKindTemplate) {
		return Entry{}, common.NewErrBadRequest("submodel '" + templateID + "' is not a template")
	}

	if newID == "" {
		newID = templateID + "/instances/" + uuid.NewString()
	}
	doc["id"] = newID
	doc["kind"] = string(model.ModellingKindInstance)

	for path, value := range valueOverrides {
		element, err := projection.Navigate(doc, path)
		if err != nil {
			return Entry{}, err
		}
		if err := projection.ApplyValuePatch(element, value); err != nil {
			return Entry{}, err
		}
	}

	// Copy externalized blobs: the instance must not share the template's
	// blob lifetimes. The copies are staged so create records their metadata
	// rows alongside the instance.
	copied, err := r.copyBlobReferences(ctx, tenant, doc, newID)
	if err != nil {
		return Entry{}, err
	}

	payload, err := jsonStd.Marshal(doc)
	if err != nil {
		return Entry{}, err
	}
	return r.create(ctx, tenant, payload, copied)
}

func (r *SubmodelRepository) copyBlobReferences(ctx context.Context, tenant string, doc map[string]interface{}, newSubmodelID string) ([]blob.Metadata, error) {
	var staged []blob.Metadata
	for _, refID := range blob.CollectReferences(doc) {
		meta, err := r.GetBlobMetadata(ctx, tenant, refID)
		if err != nil {
			return nil, err
		}
		content, err := r.blobs.Retrieve(ctx, meta)
		if err != nil {
			return nil, err
		}
		copied, err := r.blobs.Store(ctx, newSubmodelID, meta.IDShortPath, content, meta.ContentType, "")
		if err != nil {
			return nil, err
		}
		if err := rewriteBlobReference(doc, refID, copied.ID); err != nil {
			return nil, err
		}
		staged = append(staged, copied)
	}
	return staged, nil
}

func rewriteBlobReference(doc map[string]interface{}, oldID, newID string) error {
	replaced := false
	blob.WalkBlobValues(doc, func(element map[string]interface{}, value string) {
		if value == model.BlobReferencePrefix+oldID {
			element["value"] = model.BlobReferencePrefix + newID
			replaced = true
		}
	})
	if !replaced {
		return common.NewInternalServerError("blob reference " + oldID + " not found during instantiation")
	}
	return nil
}

func semanticIDValue(reference *model.Reference) string {
	if reference == nil || len(reference.Keys) == 0 {
		return ""
	}
	return reference.Keys[len(reference.Keys)-1].Value
}
