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
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/titan-aas/titan-go-components/internal/common"
)

// GCSBackend stores blobs in a Google Cloud Storage bucket.
type GCSBackend struct {
	client          *storage.Client
	bucket          string
	inlineThreshold int
	chunkSize       int
}

// NewGCSBackend resolves credentials from the environment (application
// default credentials).
func NewGCSBackend(ctx context.Context, bucket string, inlineThreshold, chunkSize int) (*GCSBackend, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &GCSBackend{client: client, bucket: bucket, inlineThreshold: inlineThreshold, chunkSize: chunkSize}, nil
}

func (b *GCSBackend) ShouldExternalize(content []byte, contentType string) bool {
	return len(content) > b.inlineThreshold
}

func (b *GCSBackend) Store(ctx context.Context, submodelID, idShortPath string, content []byte, contentType, filename string) (Metadata, error) {
	blobID := uuid.NewString()
	key := shardOf(blobID) + "/" + ContentHash([]byte(submodelID))[:16] + "/" + blobID

	writer := b.client.Bucket(b.bucket).Object(key).NewWriter(ctx)
	writer.ContentType = contentType
	writer.ChunkSize = b.chunkSize
	if _, err := writer.Write(content); err != nil {
		_ = writer.Close()
		return Metadata{}, err
	}
	if err := writer.Close(); err != nil {
		return Metadata{}, err
	}
	return Metadata{
		ID:          blobID,
		SubmodelID:  submodelID,
		IDShortPath: idShortPath,
		StorageURI:  "gs://" + b.bucket + "/" + key,
		ContentType: contentType,
		SizeBytes:   int64(len(content)),
		ContentHash: ContentHash(content),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (b *GCSBackend) Retrieve(ctx context.Context, meta Metadata) ([]byte, error) {
	stream, err := b.Stream(ctx, meta)
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	return io.ReadAll(stream)
}

func (b *GCSBackend) Stream(ctx context.Context, meta Metadata) (io.ReadCloser, error) {
	reader, err := b.client.Bucket(b.bucket).Object(b.keyOf(meta)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, common.NewErrNotFound("blob " + meta.ID + " not found")
	}
	if err != nil {
		return nil, err
	}
	return reader, nil
}

func (b *GCSBackend) Delete(ctx context.Context, meta Metadata) error {
	err := b.client.Bucket(b.bucket).Object(b.keyOf(meta)).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (b *GCSBackend) Exists(ctx context.Context, meta Metadata) (bool, error) {
	_, err := b.client.Bucket(b.bucket).Object(b.keyOf(meta)).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *GCSBackend) keyOf(meta Metadata) string {
	prefix := "gs://" + b.bucket + "/"
	if strings.HasPrefix(meta.StorageURI, prefix) {
		return strings.TrimPrefix(meta.StorageURI, prefix)
	}
	return shardOf(meta.ID) + "/" + ContentHash([]byte(meta.SubmodelID))[:16] + "/" + meta.ID
}
