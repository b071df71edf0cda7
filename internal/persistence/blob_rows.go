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

	"github.com/titan-aas/titan-go-components/internal/blob"
	"github.com/titan-aas/titan-go-components/internal/common"
)

// insertBlobRows persists metadata rows for newly externalized blobs inside
// the entity's transaction.
func insertBlobRows(ctx context.Context, tx *sql.Tx, metas []blob.Metadata) error {
	for _, meta := range metas {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO blobs (id, submodel_id, id_short_path, storage_uri, content_type, size_bytes, content_hash, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			meta.ID, meta.SubmodelID, meta.IDShortPath, meta.StorageURI,
			meta.ContentType, meta.SizeBytes, meta.ContentHash, meta.CreatedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// deleteOrphanBlobRows removes the metadata rows of a submodel's blobs that
// are not in keep (nil keep removes all) and returns them so the caller can
// delete the backend objects after commit.
func deleteOrphanBlobRows(ctx context.Context, tx *sql.Tx, submodelID string, keep map[string]bool) ([]blob.Metadata, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, submodel_id, id_short_path, storage_uri, content_type, size_bytes, content_hash, created_at
		FROM blobs WHERE submodel_id=$1`, submodelID)
	if err != nil {
		return nil, err
	}
	var orphans []blob.Metadata
	func() {
		defer rows.Close()
		for rows.Next() {
			var meta blob.Metadata
			if scanErr := rows.Scan(&meta.ID, &meta.SubmodelID, &meta.IDShortPath, &meta.StorageURI,
				&meta.ContentType, &meta.SizeBytes, &meta.ContentHash, &meta.CreatedAt); scanErr != nil {
				err = scanErr
				return
			}
			if keep[meta.ID] {
				continue
			}
			orphans = append(orphans, meta)
		}
		err = rows.Err()
	}()
	if err != nil {
		return nil, err
	}
	for _, meta := range orphans {
		if _, err := tx.ExecContext(ctx, `DELETE FROM blobs WHERE id=$1`, meta.ID); err != nil {
			return nil, err
		}
	}
	return orphans, nil
}

// GetBlobMetadata resolves one /blobs/{id} reference. The lookup joins the
// owning submodel so a blob id never resolves across tenants.
func (r *SubmodelRepository) GetBlobMetadata(ctx context.Context, tenant, blobID string) (blob.Metadata, error) {
	var meta blob.Metadata
	err := r.store.db.QueryRowContext(ctx, `
		SELECT b.id, b.submodel_id, b.id_short_path, b.storage_uri, b.content_type, b.size_bytes, b.content_hash, b.created_at
		FROM blobs b
		JOIN submodels s ON s.id = b.submodel_id AND s.tenant_id = $2
		WHERE b.id = $1`, blobID, tenant,
	).Scan(&meta.ID, &meta.SubmodelID, &meta.IDShortPath, &meta.StorageURI,
		&meta.ContentType, &meta.SizeBytes, &meta.ContentHash, &meta.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return blob.Metadata{}, common.NewErrNotFound("no blob with id '" + blobID + "'")
	}
	return meta, err
}

// UpdateBlobContent replaces the stored bytes behind an existing blob row.
// The row id, and with it the /blobs/{id} URI embedded in documents, stays
// stable; only the backend object and the derived metadata change.
func (r *SubmodelRepository) UpdateBlobContent(ctx context.Context, tenant, blobID string, content []byte, contentType string) (blob.Metadata, error) {
	old, err := r.GetBlobMetadata(ctx, tenant, blobID)
	if err != nil {
		return blob.Metadata{}, err
	}
	if contentType == "" {
		contentType = old.ContentType
	}
	stored, err := r.blobs.Store(ctx, old.SubmodelID, old.IDShortPath, content, contentType, "")
	if err != nil {
		return blob.Metadata{}, err
	}
	updated := old
	updated.StorageURI = stored.StorageURI
	updated.ContentType = contentType
	updated.SizeBytes = stored.SizeBytes
	updated.ContentHash = stored.ContentHash

	_, err = r.store.db.ExecContext(ctx, `
		UPDATE blobs SET storage_uri=$1, content_type=$2, size_bytes=$3, content_hash=$4
		WHERE id=$5`,
		updated.StorageURI, updated.ContentType, updated.SizeBytes, updated.ContentHash, blobID,
	)
	if err != nil {
		_ = r.blobs.Delete(ctx, stored)
		return blob.Metadata{}, err
	}
	if old.StorageURI != updated.StorageURI {
		if err := r.blobs.Delete(ctx, old); err != nil {
			log.Warnf("orphaned blob object %s after content update: %v", old.StorageURI, err)
		}
	}
	return updated, nil
}

// Blobs exposes the backend for the attachment download endpoint.
func (r *SubmodelRepository) Blobs() blob.Backend { return r.blobs }
