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
	"fmt"

	"github.com/titan-aas/titan-go-components/internal/common"
)

// NewBackend builds the configured storage backend.
func NewBackend(ctx context.Context, cfg common.BlobConfig) (Backend, error) {
	switch cfg.StorageType {
	case "", "local":
		return NewLocalBackend(cfg.LocalPrefix, cfg.InlineThreshold, cfg.ChunkSize), nil
	case "s3":
		return NewS3Backend(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Endpoint, cfg.InlineThreshold, cfg.ChunkSize)
	case "gcs":
		return NewGCSBackend(ctx, cfg.GCSBucket, cfg.InlineThreshold, cfg.ChunkSize)
	case "azure":
		return NewAzureBackend(cfg.AzureAccountURL, cfg.AzureContainer, cfg.InlineThreshold, cfg.ChunkSize)
	default:
		return nil, fmt.Errorf("unknown blob storage type %q", cfg.StorageType)
	}
}
