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

package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titan-aas/titan-go-components/internal/blob"
	"github.com/titan-aas/titan-go-components/internal/common"
	"github.com/titan-aas/titan-go-components/internal/common/model"
)

func setupMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store := NewStoreWithDB(db)
	cleanup := func() {
		db.Close()
	}
	return store, mock, cleanup
}

type capturingBus struct {
	events []model.Event
}

func (b *capturingBus) Publish(ctx context.Context, event model.Event) error {
	b.events = append(b.events, event)
	return nil
}

const shellPayload = `{"modelType":"AssetAdministrationShell","id":"urn:aas:1","idShort":"Motor","assetInformation":{"assetKind":"Instance","globalAssetId":"urn:asset:1"}}`

func TestAASCreate_Success(t *testing.T) {
	store, mock, cleanup := setupMockStore(t)
	defer cleanup()

	bus := &capturingBus{}
	repo := NewAASRepository(store, bus)

	mock.ExpectExec(`INSERT INTO aas`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry, err := repo.Create(context.Background(), DefaultTenant, []byte(shellPayload))
	require.NoError(t, err)
	assert.Len(t, entry.ETag, 32)
	assert.Equal(t, common.ETagOf(entry.Bytes), entry.ETag)

	require.Len(t, bus.events, 1)
	assert.Equal(t, model.EventCreated, bus.events[0].EventType)
	assert.Equal(t, "urn:aas:1", bus.events[0].Identifier)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAASCreate_Conflict(t *testing.T) {
	store, mock, cleanup := setupMockStore(t)
	defer cleanup()

	repo := NewAASRepository(store, nil)

	mock.ExpectExec(`INSERT INTO aas`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.Create(context.Background(), DefaultTenant, []byte(shellPayload))
	require.Error(t, err)
	assert.True(t, common.IsErrConflict(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAASCreate_RejectsInvalidPayload(t *testing.T) {
	store, _, cleanup := setupMockStore(t)
	defer cleanup()

	repo := NewAASRepository(store, nil)

	_, err := repo.Create(context.Background(), DefaultTenant, []byte(`{"modelType":"AssetAdministrationShell"}`))
	require.Error(t, err)
	assert.True(t, common.IsErrBadRequest(err))
}

func TestAASGet(t *testing.T) {
	store, mock, cleanup := setupMockStore(t)
	defer cleanup()

	repo := NewAASRepository(store, nil)

	mock.ExpectQuery(`SELECT doc_bytes, etag FROM aas`).
		WithArgs(DefaultTenant, "urn:aas:1").
		WillReturnRows(sqlmock.NewRows([]string{"doc_bytes", "etag"}).
			AddRow([]byte(`{"id":"urn:aas:1"}`), "cafe"))

	entry, err := repo.Get(context.Background(), DefaultTenant, "urn:aas:1")
	require.NoError(t, err)
	assert.Equal(t, "cafe", entry.ETag)

	mock.ExpectQuery(`SELECT doc_bytes, etag FROM aas`).
		WithArgs(DefaultTenant, "urn:aas:missing").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.Get(context.Background(), DefaultTenant, "urn:aas:missing")
	assert.True(t, common.IsErrNotFound(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAASReplace_PreconditionFailed(t *testing.T) {
	store, mock, cleanup := setupMockStore(t)
	defer cleanup()

	repo := NewAASRepository(store, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT etag FROM aas`).
		WithArgs(DefaultTenant, "urn:aas:1").
		WillReturnRows(sqlmock.NewRows([]string{"etag"}).AddRow("currentetag"))
	mock.ExpectRollback()

	_, err := repo.Replace(context.Background(), DefaultTenant, "urn:aas:1", []byte(shellPayload), `"staleetag"`)
	require.Error(t, err)
	assert.True(t, common.IsErrPreconditionFailed(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAASReplace_IDMismatch(t *testing.T) {
	store, _, cleanup := setupMockStore(t)
	defer cleanup()

	repo := NewAASRepository(store, nil)

	_, err := repo.Replace(context.Background(), DefaultTenant, "urn:aas:other", []byte(shellPayload), "")
	require.Error(t, err)
	assert.True(t, common.IsErrBadRequest(err))
}

func TestAASDelete_Success(t *testing.T) {
	store, mock, cleanup := setupMockStore(t)
	defer cleanup()

	bus := &capturingBus{}
	repo := NewAASRepository(store, bus)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT etag FROM aas`).
		WithArgs(DefaultTenant, "urn:aas:1").
		WillReturnRows(sqlmock.NewRows([]string{"etag"}).AddRow("currentetag"))
	mock.ExpectExec(`DELETE FROM aas`).
		WithArgs(DefaultTenant, "urn:aas:1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), DefaultTenant, "urn:aas:1", ""))
	require.Len(t, bus.events, 1)
	assert.Equal(t, model.EventDeleted, bus.events[0].EventType)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAASList_Pagination(t *testing.T) {
	store, mock, cleanup := setupMockStore(t)
	defer cleanup()

	repo := NewAASRepository(store, nil)

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"doc_bytes", "etag", "created_at", "id"})
	for i := 0; i < 3; i++ {
		rows.AddRow([]byte(`{}`), "etag", created.Add(time.Duration(i)*time.Second), string(rune('a'+i)))
	}
	mock.ExpectQuery(`SELECT doc_bytes, etag, created_at, id FROM aas`).
		WillReturnRows(rows)

	page, err := repo.List(context.Background(), DefaultTenant, "", 2, "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.NotEmpty(t, page.NextCursor)

	cursor, err := common.DecodeCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, "b", cursor.ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

const submodelPayload = `{"modelType":"Submodel","id":"urn:sm:1","idShort":"TechnicalData","kind":"Instance","submodelElements":[{"modelType":"Property","idShort":"MaxTorque","valueType":"xs:double","value":"12.5"}]}`

func newTestSubmodelRepo(t *testing.T, store *Store, bus EventPublisher) *SubmodelRepository {
	backend := blob.NewLocalBackend(t.TempDir(), 1<<20, 0)
	return NewSubmodelRepository(store, bus, backend)
}

func TestSubmodelCreate_Success(t *testing.T) {
	store, mock, cleanup := setupMockStore(t)
	defer cleanup()

	bus := &capturingBus{}
	repo := newTestSubmodelRepo(t, store, bus)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO submodels`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	entry, err := repo.Create(context.Background(), DefaultTenant, []byte(submodelPayload))
	require.NoError(t, err)
	assert.Equal(t, common.ETagOf(entry.Bytes), entry.ETag)

	require.Len(t, bus.events, 1)
	assert.Equal(t, model.EntitySubmodel, bus.events[0].Entity)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmodelCreate_Conflict(t *testing.T) {
	store, mock, cleanup := setupMockStore(t)
	defer cleanup()

	repo := newTestSubmodelRepo(t, store, nil)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO submodels`).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), DefaultTenant, []byte(submodelPayload))
	assert.True(t, common.IsErrConflict(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmodelInstantiate_CopiesBlobRows(t *testing.T) {
	store, mock, cleanup := setupMockStore(t)
	defer cleanup()

	bus := &capturingBus{}
	backend := blob.NewLocalBackend(t.TempDir(), 1<<20, 0)
	repo := NewSubmodelRepository(store, bus, backend)
	ctx := context.Background()

	content := []byte("%PDF-1.7 wiring diagram")
	tplMeta, err := backend.Store(ctx, "urn:sm:tpl", "Manual", content, "application/pdf", "")
	require.NoError(t, err)

	templateDoc := `{"modelType":"Submodel","id":"urn:sm:tpl","idShort":"Plan","kind":"Template","submodelElements":[{"modelType":"Blob","idShort":"Manual","contentType":"application/pdf","value":"` + model.BlobReferencePrefix + tplMeta.ID + `"}]}`

	mock.ExpectQuery(`SELECT doc_bytes, etag FROM submodels`).
		WithArgs(DefaultTenant, "urn:sm:tpl").
		WillReturnRows(sqlmock.NewRows([]string{"doc_bytes", "etag"}).
			AddRow([]byte(templateDoc), "tpl-etag"))
	mock.ExpectQuery(`JOIN submodels`).
		WithArgs(tplMeta.ID, DefaultTenant).
		WillReturnRows(sqlmock.NewRows([]string{"id", "submodel_id", "id_short_path", "storage_uri", "content_type", "size_bytes", "content_hash", "created_at"}).
			AddRow(tplMeta.ID, tplMeta.SubmodelID, tplMeta.IDShortPath, tplMeta.StorageURI,
				tplMeta.ContentType, tplMeta.SizeBytes, tplMeta.ContentHash, tplMeta.CreatedAt))
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO submodels`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	// the copied blob gets its metadata row inside the instance's transaction
	mock.ExpectExec(`INSERT INTO blobs`).
		WithArgs(sqlmock.AnyArg(), "urn:sm:inst", "Manual", sqlmock.AnyArg(),
			"application/pdf", tplMeta.SizeBytes, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	entry, err := repo.Instantiate(ctx, DefaultTenant, "urn:sm:tpl", "urn:sm:inst", nil)
	require.NoError(t, err)

	doc, err := decodeDoc(entry.Bytes)
	require.NoError(t, err)
	assert.Equal(t, "urn:sm:inst", doc["id"])
	refs := blob.CollectReferences(doc)
	require.Len(t, refs, 1)
	assert.NotEqual(t, tplMeta.ID, refs[0], "instance must reference its own copy")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBlobMetadata_ScopedToTenant(t *testing.T) {
	store, mock, cleanup := setupMockStore(t)
	defer cleanup()

	repo := newTestSubmodelRepo(t, store, nil)

	mock.ExpectQuery(`JOIN submodels`).
		WithArgs("aa1c2ff0-1111-2222-3333-444455556666", "tenant-b").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetBlobMetadata(context.Background(), "tenant-b", "aa1c2ff0-1111-2222-3333-444455556666")
	assert.True(t, common.IsErrNotFound(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

// expectElementRewrite mocks the write half of one element mutation round:
// lock the row, rewrite the document, diff the blob rows.
func expectElementRewrite(mock sqlmock.Sqlmock, etag, smID string) {
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT etag FROM submodels`).
		WithArgs(DefaultTenant, smID).
		WillReturnRows(sqlmock.NewRows([]string{"etag"}).AddRow(etag))
	mock.ExpectExec(`UPDATE submodels`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM blobs WHERE submodel_id`).
		WithArgs(smID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "submodel_id", "id_short_path", "storage_uri", "content_type", "size_bytes", "content_hash", "created_at"}))
	mock.ExpectCommit()
}

func TestCreateElement_IntoSubmodel(t *testing.T) {
	store, mock, cleanup := setupMockStore(t)
	defer cleanup()

	bus := &capturingBus{}
	repo := newTestSubmodelRepo(t, store, bus)

	mock.ExpectQuery(`SELECT doc_bytes, etag FROM submodels`).
		WithArgs(DefaultTenant, "urn:sm:1").
		WillReturnRows(sqlmock.NewRows([]string{"doc_bytes", "etag"}).
			AddRow([]byte(submodelPayload), "etag0"))
	expectElementRewrite(mock, "etag0", "urn:sm:1")

	element := `{"modelType":"Property","idShort":"MaxSpeed","valueType":"xs:int","value":"3000"}`
	location, entry, err := repo.CreateElement(context.Background(), DefaultTenant, "urn:sm:1", "", []byte(element), "")
	require.NoError(t, err)
	assert.Equal(t, "MaxSpeed", location)
	assert.Contains(t, string(entry.Bytes), `"idShort":"MaxSpeed"`)

	require.Len(t, bus.events, 2)
	assert.Equal(t, model.EntitySubmodel, bus.events[0].Entity)
	assert.Equal(t, model.EventUpdated, bus.events[0].EventType)
	assert.Equal(t, model.EntitySubmodelElement, bus.events[1].Entity)
	assert.Equal(t, model.EventCreated, bus.events[1].EventType)
	assert.Equal(t, "MaxSpeed", bus.events[1].IDShortPath)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateElement_IntoListSynthesizesIndex(t *testing.T) {
	store, mock, cleanup := setupMockStore(t)
	defer cleanup()

	repo := newTestSubmodelRepo(t, store, nil)

	listDoc := `{"modelType":"Submodel","id":"urn:sm:1","idShort":"TechnicalData","kind":"Instance","submodelElements":[{"modelType":"SubmodelElementList","idShort":"Measurements","typeValueListElement":"Property","value":[{"modelType":"Property","valueType":"xs:double","value":"1.0"}]}]}`

	mock.ExpectQuery(`SELECT doc_bytes, etag FROM submodels`).
		WithArgs(DefaultTenant, "urn:sm:1").
		WillReturnRows(sqlmock.NewRows([]string{"doc_bytes", "etag"}).
			AddRow([]byte(listDoc), "etag0"))
	expectElementRewrite(mock, "etag0", "urn:sm:1")

	element := `{"modelType":"Property","valueType":"xs:double","value":"2.0"}`
	location, _, err := repo.CreateElement(context.Background(), DefaultTenant, "urn:sm:1", "Measurements", []byte(element), "")
	require.NoError(t, err)
	assert.Equal(t, "Measurements[1]", location)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateElement_DuplicateIdShort(t *testing.T) {
	store, mock, cleanup := setupMockStore(t)
	defer cleanup()

	repo := newTestSubmodelRepo(t, store, nil)

	mock.ExpectQuery(`SELECT doc_bytes, etag FROM submodels`).
		WithArgs(DefaultTenant, "urn:sm:1").
		WillReturnRows(sqlmock.NewRows([]string{"doc_bytes", "etag"}).
			AddRow([]byte(submodelPayload), "etag0"))

	element := `{"modelType":"Property","idShort":"MaxTorque","valueType":"xs:double","value":"9.9"}`
	_, _, err := repo.CreateElement(context.Background(), DefaultTenant, "urn:sm:1", "", []byte(element), "")
	assert.True(t, common.IsErrConflict(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPatchElementValue(t *testing.T) {
	store, mock, cleanup := setupMockStore(t)
	defer cleanup()

	bus := &capturingBus{}
	repo := newTestSubmodelRepo(t, store, bus)

	mock.ExpectQuery(`SELECT doc_bytes, etag FROM submodels`).
		WithArgs(DefaultTenant, "urn:sm:1").
		WillReturnRows(sqlmock.NewRows([]string{"doc_bytes", "etag"}).
			AddRow([]byte(submodelPayload), "etag0"))
	expectElementRewrite(mock, "etag0", "urn:sm:1")

	entry, err := repo.PatchElementValue(context.Background(), DefaultTenant, "urn:sm:1", "MaxTorque", "42", "")
	require.NoError(t, err)
	assert.Contains(t, string(entry.Bytes), `"value":"42"`)

	require.Len(t, bus.events, 2)
	assert.Equal(t, model.EntitySubmodelElement, bus.events[1].Entity)
	assert.Equal(t, "MaxTorque", bus.events[1].IDShortPath)
	assert.Equal(t, `"42"`, string(bus.events[1].ValueBytes))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPatchElementValue_StaleIfMatch(t *testing.T) {
	store, mock, cleanup := setupMockStore(t)
	defer cleanup()

	repo := newTestSubmodelRepo(t, store, nil)

	mock.ExpectQuery(`SELECT doc_bytes, etag FROM submodels`).
		WithArgs(DefaultTenant, "urn:sm:1").
		WillReturnRows(sqlmock.NewRows([]string{"doc_bytes", "etag"}).
			AddRow([]byte(submodelPayload), "etag0"))

	_, err := repo.PatchElementValue(context.Background(), DefaultTenant, "urn:sm:1", "MaxTorque", "42", `"stale"`)
	assert.True(t, common.IsErrPreconditionFailed(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPatchElementValue_RetriesLostRace(t *testing.T) {
	store, mock, cleanup := setupMockStore(t)
	defer cleanup()

	repo := newTestSubmodelRepo(t, store, nil)

	// round one loses against a concurrent writer: the locked etag moved on
	mock.ExpectQuery(`SELECT doc_bytes, etag FROM submodels`).
		WithArgs(DefaultTenant, "urn:sm:1").
		WillReturnRows(sqlmock.NewRows([]string{"doc_bytes", "etag"}).
			AddRow([]byte(submodelPayload), "etag0"))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT etag FROM submodels`).
		WithArgs(DefaultTenant, "urn:sm:1").
		WillReturnRows(sqlmock.NewRows([]string{"etag"}).AddRow("etag1"))
	mock.ExpectRollback()

	// round two re-reads and succeeds
	mock.ExpectQuery(`SELECT doc_bytes, etag FROM submodels`).
		WithArgs(DefaultTenant, "urn:sm:1").
		WillReturnRows(sqlmock.NewRows([]string{"doc_bytes", "etag"}).
			AddRow([]byte(submodelPayload), "etag1"))
	expectElementRewrite(mock, "etag1", "urn:sm:1")

	entry, err := repo.PatchElementValue(context.Background(), DefaultTenant, "urn:sm:1", "MaxTorque", "42", "")
	require.NoError(t, err)
	assert.Contains(t, string(entry.Bytes), `"value":"42"`)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckIfMatch(t *testing.T) {
	assert.NoError(t, checkIfMatch("", "etag"))
	assert.NoError(t, checkIfMatch("*", "etag"))
	assert.NoError(t, checkIfMatch("etag", "etag"))
	assert.NoError(t, checkIfMatch(`"etag"`, "etag"))
	assert.True(t, common.IsErrPreconditionFailed(checkIfMatch("other", "etag")))
}

func TestApplyMergePatch(t *testing.T) {
	patched, err := applyMergePatch([]byte(`{"a":"1","b":"2"}`), []byte(`{"b":null,"c":"3"}`))
	require.NoError(t, err)

	doc, err := decodeDoc(patched)
	require.NoError(t, err)
	assert.Equal(t, "1", doc["a"])
	assert.Equal(t, "3", doc["c"])
	_, hasB := doc["b"]
	assert.False(t, hasB)
}

func TestInvocationLifecycle(t *testing.T) {
	store, mock, cleanup := setupMockStore(t)
	defer cleanup()

	bus := &capturingBus{}
	repo := NewInvocationRepository(store, bus)

	mock.ExpectExec(`INSERT INTO invocations`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	invocation, err := repo.Create(context.Background(), model.OperationInvocation{
		SubmodelID:  "urn:sm:1",
		IDShortPath: "Calibrate",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, invocation.InvocationID)
	assert.Equal(t, model.ExecutionPending, invocation.ExecutionState)
	require.Len(t, bus.events, 1)
	assert.Equal(t, model.EntityInvocation, bus.events[0].Entity)

	record, err := jsonStd.Marshal(invocation)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT record FROM invocations`).
		WithArgs(invocation.InvocationID).
		WillReturnRows(sqlmock.NewRows([]string{"record"}).AddRow(record))
	mock.ExpectExec(`UPDATE invocations`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := repo.UpdateState(context.Background(), invocation.InvocationID, model.ExecutionCompleted, []byte(`{"Applied":"true"}`), nil)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionCompleted, updated.ExecutionState)

	require.NoError(t, mock.ExpectationsWereMet())
}
