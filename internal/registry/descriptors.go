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
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	jsoniter "github.com/json-iterator/go"

	"github.com/titan-aas/titan-go-components/internal/common"
	"github.com/titan-aas/titan-go-components/internal/common/model"
)

var jsonStd = jsoniter.ConfigCompatibleWithStandardLibrary

// CreateShellDescriptor registers a new shell descriptor.
func (s *Store) CreateShellDescriptor(ctx context.Context, tenant string, payload []byte) (Entry, error) {
	var descriptor model.AssetAdministrationShellDescriptor
	if err := jsonStd.Unmarshal(payload, &descriptor); err != nil {
		return Entry{}, common.NewErrBadRequest("invalid shell descriptor: " + err.Error())
	}
	if err := descriptor.Validate(); err != nil {
		return Entry{}, err
	}
	return s.create(ctx, s.shells, tenant, descriptor.ID, "", payload, "shell descriptor")
}

// CreateSubmodelDescriptor registers a new submodel descriptor.
func (s *Store) CreateSubmodelDescriptor(ctx context.Context, tenant string, payload []byte) (Entry, error) {
	var descriptor model.SubmodelDescriptor
	if err := jsonStd.Unmarshal(payload, &descriptor); err != nil {
		return Entry{}, common.NewErrBadRequest("invalid submodel descriptor: " + err.Error())
	}
	if err := descriptor.Validate(); err != nil {
		return Entry{}, err
	}
	return s.create(ctx, s.submodels, tenant, descriptor.ID, semanticIDValue(descriptor.SemanticID), payload, "submodel descriptor")
}

// GetShellDescriptor returns one shell descriptor.
func (s *Store) GetShellDescriptor(ctx context.Context, tenant, id string) (Entry, error) {
	return s.get(ctx, s.shells, tenant, id, "shell descriptor")
}

// GetSubmodelDescriptor returns one submodel descriptor.
func (s *Store) GetSubmodelDescriptor(ctx context.Context, tenant, id string) (Entry, error) {
	return s.get(ctx, s.submodels, tenant, id, "submodel descriptor")
}

// ListShellDescriptors pages shell descriptors.
func (s *Store) ListShellDescriptors(ctx context.Context, tenant, cursor string, limit int) (Page, error) {
	return s.list(ctx, s.shells, tenant, cursor, limit, "")
}

// ListSubmodelDescriptors pages submodel descriptors, optionally filtered by
// the last key value of their semanticId.
func (s *Store) ListSubmodelDescriptors(ctx context.Context, tenant, cursor string, limit int, semanticID string) (Page, error) {
	return s.list(ctx, s.submodels, tenant, cursor, limit, semanticID)
}

// ReplaceShellDescriptor swaps the stored shell descriptor.
func (s *Store) ReplaceShellDescriptor(ctx context.Context, tenant, id string, payload []byte, ifMatch string) (Entry, error) {
	var descriptor model.AssetAdministrationShellDescriptor
	if err := jsonStd.Unmarshal(payload, &descriptor); err != nil {
		return Entry{}, common.NewErrBadRequest("invalid shell descriptor: " + err.Error())
	}
	if err := descriptor.Validate(); err != nil {
		return Entry{}, err
	}
	if descriptor.ID != id {
		return Entry{}, common.NewErrBadRequest("payload id does not match addressed shell descriptor")
	}
	return s.replace(ctx, s.shells, tenant, id, "", payload, ifMatch, "shell descriptor")
}

// ReplaceSubmodelDescriptor swaps the stored submodel descriptor.
func (s *Store) ReplaceSubmodelDescriptor(ctx context.Context, tenant, id string, payload []byte, ifMatch string) (Entry, error) {
	var descriptor model.SubmodelDescriptor
	if err := jsonStd.Unmarshal(payload, &descriptor); err != nil {
		return Entry{}, common.NewErrBadRequest("invalid submodel descriptor: " + err.Error())
	}
	if err := descriptor.Validate(); err != nil {
		return Entry{}, err
	}
	if descriptor.ID != id {
		return Entry{}, common.NewErrBadRequest("payload id does not match addressed submodel descriptor")
	}
	return s.replace(ctx, s.submodels, tenant, id, semanticIDValue(descriptor.SemanticID), payload, ifMatch, "submodel descriptor")
}

// DeleteShellDescriptor removes one shell descriptor.
func (s *Store) DeleteShellDescriptor(ctx context.Context, tenant, id string, ifMatch string) error {
	return s.delete(ctx, s.shells, tenant, id, ifMatch, "shell descriptor")
}

// DeleteSubmodelDescriptor removes one submodel descriptor.
func (s *Store) DeleteSubmodelDescriptor(ctx context.Context, tenant, id string, ifMatch string) error {
	return s.delete(ctx, s.submodels, tenant, id, ifMatch, "submodel descriptor")
}

func (s *Store) create(ctx context.Context, coll collection, tenant, id, semanticID string, payload []byte, kind string) (Entry, error) {
	canonical, err := common.Canonicalize(payload)
	if err != nil {
		return Entry{}, err
	}
	etag := common.ETagOf(canonical)
	now := time.Now().UTC()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	err = coll.InsertOne(ctx, descriptorDoc{
		TenantID:   tenant,
		ID:         id,
		IDB64:      common.EncodeID(id),
		DocBytes:   canonical,
		ETag:       etag,
		SemanticID: semanticID,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return Entry{}, common.NewErrConflict(kind + " with id '" + id + "' already exists")
		}
		return Entry{}, err
	}
	return Entry{Bytes: canonical, ETag: etag}, nil
}

func (s *Store) get(ctx context.Context, coll collection, tenant, id, kind string) (Entry, error) {
	doc, err := s.getDoc(ctx, coll, tenant, id, kind)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Bytes: doc.DocBytes, ETag: doc.ETag}, nil
}

func (s *Store) getDoc(ctx context.Context, coll collection, tenant, id, kind string) (descriptorDoc, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var doc descriptorDoc
	err := coll.FindOne(ctx, bson.M{"tenant_id": tenant, "id": id}).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return descriptorDoc{}, common.NewErrNotFound("no " + kind + " with id '" + id + "'")
	}
	if err != nil {
		return descriptorDoc{}, err
	}
	return doc, nil
}

func (s *Store) list(ctx context.Context, coll collection, tenant, cursorToken string, limit int, semanticID string) (Page, error) {
	limit = common.ClampLimit(limit)
	filter := bson.M{"tenant_id": tenant}
	if semanticID != "" {
		filter["semantic_id"] = semanticID
	}
	if cursorToken != "" {
		after, err := common.DecodeCursor(cursorToken)
		if err != nil {
			return Page{}, err
		}
		afterTime := time.Unix(0, after.CreatedAtUnixNano).UTC()
		filter["$or"] = bson.A{
			bson.M{"created_at": bson.M{"$gt": afterTime}},
			bson.M{"created_at": afterTime, "id": bson.M{"$gt": after.ID}},
		}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	cur, err := coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "id", Value: 1}}).
		SetLimit(int64(limit+1)))
	if err != nil {
		return Page{}, err
	}
	defer func() {
		_ = cur.Close(ctx)
	}()

	var docs []descriptorDoc
	for cur.Next(ctx) {
		var doc descriptorDoc
		if err := cur.Decode(&doc); err != nil {
			return Page{}, err
		}
		docs = append(docs, doc)
	}
	if err := cur.Err(); err != nil {
		return Page{}, err
	}

	page := Page{}
	for i, doc := range docs {
		if i == limit {
			last := docs[limit-1]
			page.NextCursor = common.EncodeCursor(common.Cursor{CreatedAtUnixNano: last.CreatedAt.UnixNano(), ID: last.ID})
			break
		}
		page.Items = append(page.Items, Entry{Bytes: doc.DocBytes, ETag: doc.ETag})
	}
	return page, nil
}

func (s *Store) replace(ctx context.Context, coll collection, tenant, id, semanticID string, payload []byte, ifMatch, kind string) (Entry, error) {
	current, err := s.getDoc(ctx, coll, tenant, id, kind)
	if err != nil {
		return Entry{}, err
	}
	if err := checkIfMatch(ifMatch, current.ETag); err != nil {
		return Entry{}, err
	}

	canonical, err := common.Canonicalize(payload)
	if err != nil {
		return Entry{}, err
	}
	etag := common.ETagOf(canonical)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	matched, err := coll.ReplaceOne(ctx, bson.M{"tenant_id": tenant, "id": id, "etag": current.ETag}, descriptorDoc{
		TenantID:   tenant,
		ID:         id,
		IDB64:      common.EncodeID(id),
		DocBytes:   canonical,
		ETag:       etag,
		SemanticID: semanticID,
		CreatedAt:  current.CreatedAt,
		UpdatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return Entry{}, err
	}
	if matched == 0 {
		return Entry{}, common.NewErrPreconditionFailed(kind + " '" + id + "' was modified concurrently")
	}
	return Entry{Bytes: canonical, ETag: etag}, nil
}

func (s *Store) delete(ctx context.Context, coll collection, tenant, id, ifMatch, kind string) error {
	current, err := s.get(ctx, coll, tenant, id, kind)
	if err != nil {
		return err
	}
	if err := checkIfMatch(ifMatch, current.ETag); err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	deleted, err := coll.DeleteOne(ctx, bson.M{"tenant_id": tenant, "id": id, "etag": current.ETag})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return common.NewErrPreconditionFailed(kind + " '" + id + "' was modified concurrently")
	}
	return nil
}

func checkIfMatch(ifMatch, current string) error {
	ifMatch = strings.TrimSpace(ifMatch)
	if ifMatch == "" || ifMatch == "*" {
		return nil
	}
	ifMatch = strings.Trim(ifMatch, `"`)
	if ifMatch != current {
		return common.NewErrPreconditionFailed("If-Match '" + ifMatch + "' does not match current ETag")
	}
	return nil
}

// semanticIDValue extracts the value of the last key of a semanticId, the
// discovery-relevant part of the reference.
func semanticIDValue(ref *model.Reference) string {
	if ref == nil || len(ref.Keys) == 0 {
		return ""
	}
	return ref.Keys[len(ref.Keys)-1].Value
}
