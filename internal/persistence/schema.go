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

const schema = `
CREATE TABLE IF NOT EXISTS aas (
	tenant_id        TEXT        NOT NULL DEFAULT 'default',
	id               TEXT        NOT NULL,
	id_b64           TEXT        NOT NULL,
	doc              JSONB       NOT NULL,
	doc_bytes        BYTEA       NOT NULL,
	etag             TEXT        NOT NULL,
	global_asset_id  TEXT,
	specific_asset_ids JSONB,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (tenant_id, id)
);
CREATE INDEX IF NOT EXISTS idx_aas_global_asset_id ON aas (tenant_id, global_asset_id);
CREATE INDEX IF NOT EXISTS idx_aas_page ON aas (tenant_id, created_at, id);

CREATE TABLE IF NOT EXISTS submodels (
	tenant_id   TEXT        NOT NULL DEFAULT 'default',
	id          TEXT        NOT NULL,
	id_b64      TEXT        NOT NULL,
	doc         JSONB       NOT NULL,
	doc_bytes   BYTEA       NOT NULL,
	etag        TEXT        NOT NULL,
	semantic_id TEXT,
	kind        TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (tenant_id, id)
);
CREATE INDEX IF NOT EXISTS idx_submodels_semantic_id ON submodels (tenant_id, semantic_id);
CREATE INDEX IF NOT EXISTS idx_submodels_page ON submodels (tenant_id, created_at, id);

CREATE TABLE IF NOT EXISTS concept_descriptions (
	tenant_id  TEXT        NOT NULL DEFAULT 'default',
	id         TEXT        NOT NULL,
	id_b64     TEXT        NOT NULL,
	doc        JSONB       NOT NULL,
	doc_bytes  BYTEA       NOT NULL,
	etag       TEXT        NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (tenant_id, id)
);
CREATE INDEX IF NOT EXISTS idx_cd_page ON concept_descriptions (tenant_id, created_at, id);

CREATE TABLE IF NOT EXISTS blobs (
	id            TEXT        PRIMARY KEY,
	submodel_id   TEXT        NOT NULL,
	id_short_path TEXT        NOT NULL,
	storage_uri   TEXT        NOT NULL,
	content_type  TEXT        NOT NULL,
	size_bytes    BIGINT      NOT NULL,
	content_hash  TEXT        NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_blobs_submodel ON blobs (submodel_id);

CREATE TABLE IF NOT EXISTS invocations (
	invocation_id   TEXT        PRIMARY KEY,
	submodel_id     TEXT        NOT NULL,
	id_short_path   TEXT        NOT NULL,
	execution_state TEXT        NOT NULL,
	record          JSONB       NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
