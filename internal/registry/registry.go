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

// Package registry is the MongoDB-backed descriptor store: shell and
// submodel descriptors per IDTA-01002, carrying endpoints that do not
// necessarily resolve to locally hosted entities. Descriptors follow the
// same canonical-bytes/ETag contract as the repositories.
package registry

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/titan-aas/titan-go-components/internal/common"
	"github.com/titan-aas/titan-go-components/internal/common/logger"
)

var log = logger.New("registry")

const (
	shellDescriptorsCollection    = "shell_descriptors"
	submodelDescriptorsCollection = "submodel_descriptors"
	defaultOpTimeout              = 5 * time.Second
)

// Entry is a stored descriptor's canonical bytes with its strong ETag.
type Entry struct {
	Bytes []byte
	ETag  string
}

// Page is one list result with its continuation cursor.
type Page struct {
	Items      []Entry
	NextCursor string
}

// descriptorDoc is the persisted shape of one descriptor.
type descriptorDoc struct {
	TenantID   string    `bson:"tenant_id"`
	ID         string    `bson:"id"`
	IDB64      string    `bson:"id_b64"`
	DocBytes   []byte    `bson:"doc_bytes"`
	ETag       string    `bson:"etag"`
	SemanticID string    `bson:"semantic_id,omitempty"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

// Store holds shell and submodel descriptors in two Mongo collections.
type Store struct {
	client    *mongodriver.Client
	shells    collection
	submodels collection
	timeout   time.Duration
}

// New connects to the configured MongoDB and ensures the indexes. Returns
// nil (registry disabled) when no URI is configured.
func New(ctx context.Context, cfg common.MongoConfig) (*Store, error) {
	if cfg.URI == "" {
		return nil, nil
	}
	if cfg.Database == "" {
		return nil, errors.New("mongo.database is required when mongo.uri is set")
	}
	client, err := mongodriver.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, err
	}

	db := client.Database(cfg.Database)
	store := &Store{
		client:    client,
		shells:    mongoCollection{coll: db.Collection(shellDescriptorsCollection)},
		submodels: mongoCollection{coll: db.Collection(submodelDescriptorsCollection)},
		timeout:   defaultOpTimeout,
	}
	if err := store.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	log.Infof("descriptor registry connected to database %s", cfg.Database)
	return store, nil
}

// NewWithCollections wires a store over prebuilt collections, used by tests.
func NewWithCollections(shells, submodels collection) *Store {
	return &Store{shells: shells, submodels: submodels, timeout: defaultOpTimeout}
}

// Ping verifies the Mongo connection, used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects from Mongo.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	unique := mongodriver.IndexModel{
		Keys: bson.D{
			{Key: "tenant_id", Value: 1},
			{Key: "id", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	page := mongodriver.IndexModel{
		Keys: bson.D{
			{Key: "tenant_id", Value: 1},
			{Key: "created_at", Value: 1},
			{Key: "id", Value: 1},
		},
	}
	for _, coll := range []collection{s.shells, s.submodels} {
		if _, err := coll.Indexes().CreateOne(ctx, unique); err != nil {
			return err
		}
		if _, err := coll.Indexes().CreateOne(ctx, page); err != nil {
			return err
		}
	}
	semanticID := mongodriver.IndexModel{
		Keys: bson.D{
			{Key: "tenant_id", Value: 1},
			{Key: "semantic_id", Value: 1},
		},
	}
	_, err := s.submodels.Indexes().CreateOne(ctx, semanticID)
	return err
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// collection is the slice of *mongo.Collection the store needs; tests swap
// in a fake.
type collection interface {
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) singleResult
	Find(ctx context.Context, filter any, opts ...*options.FindOptions) (cursor, error)
	InsertOne(ctx context.Context, doc any) error
	ReplaceOne(ctx context.Context, filter any, doc any) (int64, error)
	DeleteOne(ctx context.Context, filter any) (int64, error)
	Indexes() indexView
}

type indexView interface {
	CreateOne(ctx context.Context, model mongodriver.IndexModel,
		opts ...*options.CreateIndexesOptions) (string, error)
}

type singleResult interface {
	Decode(val any) error
}

type cursor interface {
	Close(ctx context.Context) error
	Decode(val any) error
	Err() error
	Next(ctx context.Context) bool
}

type mongoCollection struct {
	coll *mongodriver.Collection
}

func (c mongoCollection) FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) singleResult {
	return c.coll.FindOne(ctx, filter, opts...)
}

func (c mongoCollection) Find(ctx context.Context, filter any, opts ...*options.FindOptions) (cursor, error) {
	cur, err := c.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return cur, nil
}

func (c mongoCollection) InsertOne(ctx context.Context, doc any) error {
	_, err := c.coll.InsertOne(ctx, doc)
	return err
}

func (c mongoCollection) ReplaceOne(ctx context.Context, filter any, doc any) (int64, error) {
	result, err := c.coll.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return 0, err
	}
	return result.MatchedCount, nil
}

func (c mongoCollection) DeleteOne(ctx context.Context, filter any) (int64, error) {
	result, err := c.coll.DeleteOne(ctx, filter)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (c mongoCollection) Indexes() indexView {
	return c.coll.Indexes()
}
