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
	"io"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	azblobblob "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/google/uuid"

	"github.com/titan-aas/titan-go-components/internal/common"
)

// AzureBackend stores blobs in an Azure Blob Storage container.
type AzureBackend struct {
	client          *azblob.Client
	container       string
	inlineThreshold int
	chunkSize       int
}

// NewAzureBackend authenticates with the default Azure credential chain
// against the given account URL.
func NewAzureBackend(accountURL, container string, inlineThreshold, chunkSize int) (*AzureBackend, error) {
	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	client, err := azblob.NewClient(accountURL, credential, nil)
	if err != nil {
		return nil, err
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &AzureBackend{client: client, container: container, inlineThreshold: inlineThreshold, chunkSize: chunkSize}, nil
}

func (b *AzureBackend) ShouldExternalize(content []byte, contentType string) bool {
	return len(content) > b.inlineThreshold
}

func (b *AzureBackend) Store(ctx context.Context, submodelID, idShortPath string, content []byte, contentType, filename string) (Metadata, error) {
	blobID := uuid.NewString()
	key := shardOf(blobID) + "/" + ContentHash([]byte(submodelID))[:16] + "/" + blobID

	_, err := b.client.UploadBuffer(ctx, b.container, key, content, &azblob.UploadBufferOptions{
		BlockSize: int64(b.chunkSize),
		HTTPHeaders: &azblobblob.HTTPHeaders{
			BlobContentType: &contentType,
		},
	})
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{
		ID:          blobID,
		SubmodelID:  submodelID,
		IDShortPath: idShortPath,
		StorageURI:  "azblob://" + b.container + "/" + key,
		ContentType: contentType,
		SizeBytes:   int64(len(content)),
		ContentHash: ContentHash(content),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (b *AzureBackend) Retrieve(ctx context.Context, meta Metadata) ([]byte, error) {
	stream, err := b.Stream(ctx, meta)
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	return io.ReadAll(stream)
}

func (b *AzureBackend) Stream(ctx context.Context, meta Metadata) (io.ReadCloser, error) {
	response, err := b.client.DownloadStream(ctx, b.container, b.keyOf(meta), nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil, common.NewErrNotFound("blob " + meta.ID + " not found")
	}
	if err != nil {
		return nil, err
	}
	return response.Body, nil
}

func (b *AzureBackend) Delete(ctx context.Context, meta Metadata) error {
	_, err := b.client.DeleteBlob(ctx, b.container, b.keyOf(meta), nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil
	}
	return err
}

func (b *AzureBackend) Exists(ctx context.Context, meta Metadata) (bool, error) {
	_, err := b.client.ServiceClient().
		NewContainerClient(b.container).
		NewBlobClient(b.keyOf(meta)).
		GetProperties(ctx, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *AzureBackend) keyOf(meta Metadata) string {
	prefix := "azblob://" + b.container + "/"
	if strings.HasPrefix(meta.StorageURI, prefix) {
		return strings.TrimPrefix(meta.StorageURI, prefix)
	}
	return shardOf(meta.ID) + "/" + ContentHash([]byte(meta.SubmodelID))[:16] + "/" + meta.ID
}
