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

package blob

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/titan-aas/titan-go-components/internal/common"
)

// LocalBackend stores blobs on the local filesystem under
// {prefix}/{shard}/{submodel-hash}/{blob_id}.
type LocalBackend struct {
	prefix          string
	inlineThreshold int
	chunkSize       int
}

// NewLocalBackend creates a filesystem backend rooted at prefix.
func NewLocalBackend(prefix string, inlineThreshold, chunkSize int) *LocalBackend {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &LocalBackend{prefix: prefix, inlineThreshold: inlineThreshold, chunkSize: chunkSize}
}

func (b *LocalBackend) ShouldExternalize(content []byte, contentType string) bool {
	return len(content) > b.inlineThreshold
}

func (b *LocalBackend) Store(ctx context.Context, submodelID, idShortPath string, content []byte, contentType, filename string) (Metadata, error) {
	blobID := uuid.NewString()
	// The submodel id is an arbitrary IRI; hash it into a directory name.
	dir := filepath.Join(b.prefix, shardOf(blobID), ContentHash([]byte(submodelID))[:16])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Metadata{}, err
	}
	path := filepath.Join(dir, blobID)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return Metadata{}, err
	}
	return Metadata{
		ID:          blobID,
		SubmodelID:  submodelID,
		IDShortPath: idShortPath,
		StorageURI:  "file://" + path,
		ContentType: contentType,
		SizeBytes:   int64(len(content)),
		ContentHash: ContentHash(content),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (b *LocalBackend) Retrieve(ctx context.Context, meta Metadata) ([]byte, error) {
	content, err := os.ReadFile(b.localPath(meta))
	if os.IsNotExist(err) {
		return nil, common.NewErrNotFound("blob " + meta.ID + " not found")
	}
	return content, err
}

func (b *LocalBackend) Stream(ctx context.Context, meta Metadata) (io.ReadCloser, error) {
	file, err := os.Open(b.localPath(meta))
	if os.IsNotExist(err) {
		return nil, common.NewErrNotFound("blob " + meta.ID + " not found")
	}
	if err != nil {
		return nil, err
	}
	return &bufferedReadCloser{Reader: bufio.NewReaderSize(file, b.chunkSize), closer: file}, nil
}

func (b *LocalBackend) Delete(ctx context.Context, meta Metadata) error {
	err := os.Remove(b.localPath(meta))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (b *LocalBackend) Exists(ctx context.Context, meta Metadata) (bool, error) {
	_, err := os.Stat(b.localPath(meta))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (b *LocalBackend) localPath(meta Metadata) string {
	const filePrefix = "file://"
	if len(meta.StorageURI) > len(filePrefix) && meta.StorageURI[:len(filePrefix)] == filePrefix {
		return meta.StorageURI[len(filePrefix):]
	}
	return filepath.Join(b.prefix, shardOf(meta.ID), ContentHash([]byte(meta.SubmodelID))[:16], meta.ID)
}

type bufferedReadCloser struct {
	*bufio.Reader
	closer io.Closer
}

func (r *bufferedReadCloser) Close() error { return r.closer.Close() }
