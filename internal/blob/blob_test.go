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
	"encoding/base64"
	"io"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titan-aas/titan-go-components/internal/common"
	"github.com/titan-aas/titan-go-components/internal/common/model"
)

func TestLocalBackendRoundTrip(t *testing.T) {
	backend := NewLocalBackend(t.TempDir(), 16, 0)
	ctx := context.Background()

	content := []byte(strings.Repeat("x", 64))
	meta, err := backend.Store(ctx, "urn:sm:1", "Docs.Manual", content, "application/pdf", "manual.pdf")
	require.NoError(t, err)
	assert.NotEmpty(t, meta.ID)
	assert.Equal(t, int64(64), meta.SizeBytes)
	assert.Equal(t, ContentHash(content), meta.ContentHash)
	assert.True(t, strings.HasPrefix(meta.StorageURI, "file://"))

	exists, err := backend.Exists(ctx, meta)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := backend.Retrieve(ctx, meta)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	stream, err := backend.Stream(ctx, meta)
	require.NoError(t, err)
	streamed, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	assert.Equal(t, content, streamed)

	require.NoError(t, backend.Delete(ctx, meta))
	exists, err = backend.Exists(ctx, meta)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = backend.Retrieve(ctx, meta)
	assert.True(t, common.IsErrNotFound(err))

	// Idempotent delete.
	require.NoError(t, backend.Delete(ctx, meta))
}

func TestShouldExternalizeThreshold(t *testing.T) {
	backend := NewLocalBackend(t.TempDir(), 10, 0)
	assert.False(t, backend.ShouldExternalize(make([]byte, 10), "application/octet-stream"))
	assert.True(t, backend.ShouldExternalize(make([]byte, 11), "application/octet-stream"))
}

func decodeDoc(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var doc map[string]interface{}
	require.NoError(t, jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestExternalizeReplacesLargeValues(t *testing.T) {
	backend := NewLocalBackend(t.TempDir(), 8, 0)
	ctx := context.Background()

	large := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("A", 100)))
	small := base64.StdEncoding.EncodeToString([]byte("tiny"))
	doc := decodeDoc(t, `{
		"modelType":"Submodel","id":"urn:sm:blobs",
		"submodelElements":[
			{"modelType":"Blob","idShort":"Big","contentType":"application/octet-stream","value":"`+large+`"},
			{"modelType":"Blob","idShort":"Small","contentType":"application/octet-stream","value":"`+small+`"},
			{"modelType":"SubmodelElementCollection","idShort":"Docs","value":[
				{"modelType":"File","idShort":"Manual","contentType":"application/pdf","value":"data:application/pdf;base64,`+large+`"}
			]},
			{"modelType":"Blob","idShort":"Existing","contentType":"image/png","value":"/blobs/11111111-1111-1111-1111-111111111111"}
		]}`)

	result, err := Externalize(ctx, backend, "urn:sm:blobs", doc)
	require.NoError(t, err)
	require.Len(t, result.NewBlobs, 2)
	assert.Equal(t, []string{"11111111-1111-1111-1111-111111111111"}, result.ReferencedIDs)

	elements := doc["submodelElements"].([]interface{})
	big := elements[0].(map[string]interface{})
	assert.True(t, strings.HasPrefix(big["value"].(string), model.BlobReferencePrefix))

	smallElement := elements[1].(map[string]interface{})
	assert.Equal(t, small, smallElement["value"])

	manual := elements[2].(map[string]interface{})["value"].([]interface{})[0].(map[string]interface{})
	assert.True(t, strings.HasPrefix(manual["value"].(string), model.BlobReferencePrefix))

	paths := map[string]bool{}
	for _, meta := range result.NewBlobs {
		paths[meta.IDShortPath] = true
		content, err := backend.Retrieve(ctx, meta)
		require.NoError(t, err)
		assert.Equal(t, 100, len(content))
	}
	assert.True(t, paths["Big"])
	assert.True(t, paths["Docs.Manual"])
}

func TestCollectReferences(t *testing.T) {
	doc := decodeDoc(t, `{
		"modelType":"Submodel","id":"urn:sm:refs",
		"submodelElements":[
			{"modelType":"Blob","idShort":"A","contentType":"image/png","value":"/blobs/id-a"},
			{"modelType":"SubmodelElementList","idShort":"L","typeValueListElement":"File","value":[
				{"modelType":"File","contentType":"image/png","value":"/blobs/id-b"}
			]},
			{"modelType":"Property","idShort":"P","valueType":"xs:string","value":"/blobs/not-a-blob"}
		]}`)

	ids := CollectReferences(doc)
	assert.ElementsMatch(t, []string{"id-a", "id-b"}, ids)
}

func TestExternalizeOperationVariables(t *testing.T) {
	backend := NewLocalBackend(t.TempDir(), 8, 0)
	large := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("B", 50)))
	doc := decodeDoc(t, `{
		"modelType":"Submodel","id":"urn:sm:op",
		"submodelElements":[
			{"modelType":"Operation","idShort":"Upload","inputVariables":[
				{"value":{"modelType":"Blob","idShort":"Payload","contentType":"application/octet-stream","value":"`+large+`"}}
			]}
		]}`)

	result, err := Externalize(context.Background(), backend, "urn:sm:op", doc)
	require.NoError(t, err)
	require.Len(t, result.NewBlobs, 1)
	assert.Equal(t, "Upload.inputVariables[0]", result.NewBlobs[0].IDShortPath)
}
