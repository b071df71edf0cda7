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

package registry

import (
	"context"
	"sort"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titan-aas/titan-go-components/internal/common"
)

// fakeCollection keeps descriptor docs in memory and evaluates the subset of
// filters the store actually issues.
type fakeCollection struct {
	docs []descriptorDoc
}

func (f *fakeCollection) match(doc descriptorDoc, filter bson.M) bool {
	for key, want := range filter {
		switch key {
		case "tenant_id":
			if doc.TenantID != want.(string) {
				return false
			}
		case "id":
			if s, ok := want.(string); ok {
				if doc.ID != s {
					return false
				}
			} else if gt, ok := want.(bson.M); ok {
				if doc.ID <= gt["$gt"].(string) {
					return false
				}
			}
		case "etag":
			if doc.ETag != want.(string) {
				return false
			}
		case "semantic_id":
			if doc.SemanticID != want.(string) {
				return false
			}
		case "created_at":
			if t, ok := want.(time.Time); ok {
				if !doc.CreatedAt.Equal(t) {
					return false
				}
			} else if gt, ok := want.(bson.M); ok {
				if !doc.CreatedAt.After(gt["$gt"].(time.Time)) {
					return false
				}
			}
		case "$or":
			anyMatch := false
			for _, branch := range want.(bson.A) {
				if f.match(doc, branch.(bson.M)) {
					anyMatch = true
					break
				}
			}
			if !anyMatch {
				return false
			}
		}
	}
	return true
}

func (f *fakeCollection) FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) singleResult {
	for _, doc := range f.docs {
		if f.match(doc, filter.(bson.M)) {
			found := doc
			return fakeResult{doc: &found}
		}
	}
	return fakeResult{}
}

func (f *fakeCollection) Find(ctx context.Context, filter any, opts ...*options.FindOptions) (cursor, error) {
	var matched []descriptorDoc
	for _, doc := range f.docs {
		if f.match(doc, filter.(bson.M)) {
			matched = append(matched, doc)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	for _, opt := range opts {
		if opt.Limit != nil && int64(len(matched)) > *opt.Limit {
			matched = matched[:*opt.Limit]
		}
	}
	return &fakeCursor{docs: matched, pos: -1}, nil
}

func (f *fakeCollection) InsertOne(ctx context.Context, doc any) error {
	inserted := doc.(descriptorDoc)
	for _, existing := range f.docs {
		if existing.TenantID == inserted.TenantID && existing.ID == inserted.ID {
			return mongodriver.WriteException{WriteErrors: []mongodriver.WriteError{{Code: 11000}}}
		}
	}
	f.docs = append(f.docs, inserted)
	return nil
}

func (f *fakeCollection) ReplaceOne(ctx context.Context, filter any, doc any) (int64, error) {
	for i, existing := range f.docs {
		if f.match(existing, filter.(bson.M)) {
			f.docs[i] = doc.(descriptorDoc)
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeCollection) DeleteOne(ctx context.Context, filter any) (int64, error) {
	for i, existing := range f.docs {
		if f.match(existing, filter.(bson.M)) {
			f.docs = append(f.docs[:i], f.docs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeCollection) Indexes() indexView {
	return fakeIndexView{}
}

type fakeIndexView struct{}

func (fakeIndexView) CreateOne(ctx context.Context, model mongodriver.IndexModel,
	opts ...*options.CreateIndexesOptions) (string, error) {
	return "", nil
}

type fakeResult struct {
	doc *descriptorDoc
}

func (r fakeResult) Decode(val any) error {
	if r.doc == nil {
		return mongodriver.ErrNoDocuments
	}
	*val.(*descriptorDoc) = *r.doc
	return nil
}

type fakeCursor struct {
	docs []descriptorDoc
	pos  int
}

func (c *fakeCursor) Close(ctx context.Context) error { return nil }
func (c *fakeCursor) Err() error                      { return nil }

func (c *fakeCursor) Next(ctx context.Context) bool {
	c.pos++
	return c.pos < len(c.docs)
}

func (c *fakeCursor) Decode(val any) error {
	*val.(*descriptorDoc) = c.docs[c.pos]
	return nil
}

func setupStore() (*Store, *fakeCollection, *fakeCollection) {
	shells := &fakeCollection{}
	submodels := &fakeCollection{}
	return NewWithCollections(shells, submodels), shells, submodels
}

const shellDescriptorPayload = `{"id":"urn:aas:1","idShort":"Motor","endpoints":[{"interface":"AAS-3.0","protocolInformation":{"href":"https://edge.example.com/shells/dXJuOmFhczox"}}]}`

func TestShellDescriptorLifecycle(t *testing.T) {
	store, _, _ := setupStore()
	ctx := context.Background()

	entry, err := store.CreateShellDescriptor(ctx, "default", []byte(shellDescriptorPayload))
	require.NoError(t, err)
	assert.Equal(t, common.ETagOf(entry.Bytes), entry.ETag)

	_, err = store.CreateShellDescriptor(ctx, "default", []byte(shellDescriptorPayload))
	assert.True(t, common.IsErrConflict(err))

	got, err := store.GetShellDescriptor(ctx, "default", "urn:aas:1")
	require.NoError(t, err)
	assert.Equal(t, entry.ETag, got.ETag)

	_, err = store.GetShellDescriptor(ctx, "default", "urn:aas:missing")
	assert.True(t, common.IsErrNotFound(err))

	// descriptors are tenant scoped
	_, err = store.GetShellDescriptor(ctx, "other", "urn:aas:1")
	assert.True(t, common.IsErrNotFound(err))

	replaced, err := store.ReplaceShellDescriptor(ctx, "default", "urn:aas:1",
		[]byte(`{"id":"urn:aas:1","idShort":"MotorV2"}`), entry.ETag)
	require.NoError(t, err)
	assert.NotEqual(t, entry.ETag, replaced.ETag)

	_, err = store.ReplaceShellDescriptor(ctx, "default", "urn:aas:1",
		[]byte(`{"id":"urn:aas:1"}`), entry.ETag)
	assert.True(t, common.IsErrPreconditionFailed(err))

	require.NoError(t, store.DeleteShellDescriptor(ctx, "default", "urn:aas:1", ""))
	_, err = store.GetShellDescriptor(ctx, "default", "urn:aas:1")
	assert.True(t, common.IsErrNotFound(err))
}

func TestShellDescriptorValidation(t *testing.T) {
	store, _, _ := setupStore()
	ctx := context.Background()

	_, err := store.CreateShellDescriptor(ctx, "default", []byte(`{"idShort":"NoID"}`))
	assert.True(t, common.IsErrBadRequest(err))

	_, err = store.ReplaceShellDescriptor(ctx, "default", "urn:aas:1", []byte(`{"id":"urn:aas:other"}`), "")
	assert.True(t, common.IsErrBadRequest(err))
}

func TestSubmodelDescriptorSemanticIDFilter(t *testing.T) {
	store, _, _ := setupStore()
	ctx := context.Background()

	_, err := store.CreateSubmodelDescriptor(ctx, "default",
		[]byte(`{"id":"urn:sm:1","semanticId":{"type":"ExternalReference","keys":[{"type":"GlobalReference","value":"0173-1#01-AFZ615#016"}]}}`))
	require.NoError(t, err)
	_, err = store.CreateSubmodelDescriptor(ctx, "default",
		[]byte(`{"id":"urn:sm:2","semanticId":{"type":"ExternalReference","keys":[{"type":"GlobalReference","value":"urn:other"}]}}`))
	require.NoError(t, err)

	page, err := store.ListSubmodelDescriptors(ctx, "default", "", 10, "0173-1#01-AFZ615#016")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	all, err := store.ListSubmodelDescriptors(ctx, "default", "", 10, "")
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
}

func TestListDescriptorsPagination(t *testing.T) {
	store, shells, _ := setupStore()
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		shells.docs = append(shells.docs, descriptorDoc{
			TenantID:  "default",
			ID:        string(rune('a' + i)),
			DocBytes:  []byte(`{}`),
			ETag:      "etag",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	page, err := store.ListShellDescriptors(ctx, "default", "", 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := store.ListShellDescriptors(ctx, "default", page.NextCursor, 10)
	require.NoError(t, err)
	assert.Len(t, rest.Items, 3)
	assert.Empty(t, rest.NextCursor)
}
