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

// Package blob provides the externalized storage for large Blob and File
// element values. A backend stores the raw bytes; the repository keeps the
// metadata rows and the documents carry opaque /blobs/{id} references.
package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"time"
)

// DefaultChunkSize bounds memory on large downloads.
const DefaultChunkSize = 8 * 1024 * 1024

// Metadata is the descriptor of one stored blob. The row lives in the
// repository database; StorageURI is backend-specific.
type Metadata struct {
	ID          string    `json:"id"`
	SubmodelID  string    `json:"submodelId"`
	IDShortPath string    `json:"idShortPath"`
	StorageURI  string    `json:"storageUri"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	ContentHash string    `json:"contentHash"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Backend is the storage contract. Implementations stream large objects in
// configurable-size chunks.
type Backend interface {
	Store(ctx context.Context, submodelID, idShortPath string, content []byte, contentType, filename string) (Metadata, error)
	Retrieve(ctx context.Context, meta Metadata) ([]byte, error)
	Stream(ctx context.Context, meta Metadata) (io.ReadCloser, error)
	Delete(ctx context.Context, meta Metadata) error
	Exists(ctx context.Context, meta Metadata) (bool, error)

	// ShouldExternalize reports whether content of this size leaves the
	// document and moves to the backend.
	ShouldExternalize(content []byte, contentType string) bool
}

// ContentHash is the hex SHA-256 of the stored bytes, recorded in metadata
// for integrity checks.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// shardOf spreads blobs over 256 directories/prefixes by the first two hex
// characters of the blob id hash.
func shardOf(blobID string) string {
	sum := sha256.Sum256([]byte(blobID))
	return hex.EncodeToString(sum[:1])
}
