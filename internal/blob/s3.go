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
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/titan-aas/titan-go-components/internal/common"
)

// S3Backend stores blobs in an S3-compatible bucket under
// {shard}/{submodel-hash}/{blob_id}.
type S3Backend struct {
	client          *s3.Client
	bucket          string
	inlineThreshold int
	chunkSize       int
}

// NewS3Backend resolves AWS credentials from the environment. A non-empty
// endpoint targets S3-compatible stores such as MinIO.
func NewS3Backend(ctx context.Context, bucket, region, endpoint string, inlineThreshold, chunkSize int) (*S3Backend, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &S3Backend{client: client, bucket: bucket, inlineThreshold: inlineThreshold, chunkSize: chunkSize}, nil
}

func (b *S3Backend) ShouldExternalize(content []byte, contentType string) bool {
	return len(content) > b.inlineThreshold
}

func (b *S3Backend) Store(ctx context.Context, submodelID, idShortPath string, content []byte, contentType, filename string) (Metadata, error) {
	blobID := uuid.NewString()
	key := b.objectKey(blobID, submodelID)
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{
		ID:          blobID,
		SubmodelID:  submodelID,
		IDShortPath: idShortPath,
		StorageURI:  "s3://" + b.bucket + "/" + key,
		ContentType: contentType,
		SizeBytes:   int64(len(content)),
		ContentHash: ContentHash(content),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (b *S3Backend) Retrieve(ctx context.Context, meta Metadata) ([]byte, error) {
	stream, err := b.Stream(ctx, meta)
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	return io.ReadAll(stream)
}

func (b *S3Backend) Stream(ctx context.Context, meta Metadata) (io.ReadCloser, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.keyOf(meta)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, common.NewErrNotFound("blob " + meta.ID + " not found")
		}
		return nil, err
	}
	return out.Body, nil
}

func (b *S3Backend) Delete(ctx context.Context, meta Metadata) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.keyOf(meta)),
	})
	return err
}

func (b *S3Backend) Exists(ctx context.Context, meta Metadata) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.keyOf(meta)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *S3Backend) objectKey(blobID, submodelID string) string {
	return shardOf(blobID) + "/" + ContentHash([]byte(submodelID))[:16] + "/" + blobID
}

func (b *S3Backend) keyOf(meta Metadata) string {
	prefix := "s3://" + b.bucket + "/"
	if strings.HasPrefix(meta.StorageURI, prefix) {
		return strings.TrimPrefix(meta.StorageURI, prefix)
	}
	return b.objectKey(meta.ID, meta.SubmodelID)
}
