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

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titan-aas/titan-go-components/internal/blob"
	"github.com/titan-aas/titan-go-components/internal/cache"
	"github.com/titan-aas/titan-go-components/internal/common"
	"github.com/titan-aas/titan-go-components/internal/persistence"
)

const shellPayload = `{
	"modelType": "AssetAdministrationShell",
	"id": "urn:example:aas:1",
	"idShort": "Pump",
	"assetInformation": {"assetKind": "Instance", "globalAssetId": "urn:example:asset:1"}
}`

type testServer struct {
	handler *Handler
	router  *chi.Mux
	mock    sqlmock.Sqlmock
	redis   *miniredis.Miniredis
}

func setupServer(t *testing.T) *testServer {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := persistence.NewStoreWithDB(db)
	backend := blob.NewLocalBackend(t.TempDir(), 1<<20, 0)
	cacheTier := cache.NewWithClient(rdb, common.CacheConfig{})

	handler := NewHandler(Deps{
		Config:      common.Config{Cache: common.CacheConfig{MaxAgeSeconds: 30, StaleWhileRevalidateSecond: 10}},
		Shells:      persistence.NewAASRepository(store, nil),
		Submodels:   persistence.NewSubmodelRepository(store, nil, backend),
		CDs:         persistence.NewConceptDescriptionRepository(store, nil),
		Invocations: persistence.NewInvocationRepository(store, nil),
		Store:       store,
		Cache:       cacheTier,
		Redis:       rdb,
	})
	router := chi.NewRouter()
	handler.Routes(router)
	return &testServer{handler: handler, router: router, mock: mock, redis: mr}
}

func (s *testServer) do(method, target string, body string, header map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestGetShellRejectsMalformedID(t *testing.T) {
	srv := setupServer(t)

	rec := srv.do(http.MethodGet, "/shells/!!not-base64!!", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "messages")
}

func TestGetShellServedFromCache(t *testing.T) {
	srv := setupServer(t)
	id := "urn:example:aas:1"
	body := []byte(`{"id":"` + id + `"}`)
	etag := common.ETagOf(body)
	srv.handler.cache.SetPair(context.Background(), cache.KindAAS, common.EncodeID(id), cache.Pair{Bytes: body, ETag: etag})

	rec := srv.do(http.MethodGet, "/shells/"+common.EncodeID(id), "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"`+etag+`"`, rec.Header().Get("ETag"))
	assert.Equal(t, "max-age=30, stale-while-revalidate=10", rec.Header().Get("Cache-Control"))
	assert.JSONEq(t, string(body), rec.Body.String())
	// no database expectation was set; the request never reached it
	require.NoError(t, srv.mock.ExpectationsWereMet())
}

func TestGetShellNotModified(t *testing.T) {
	srv := setupServer(t)
	id := "urn:example:aas:1"
	body := []byte(`{"id":"` + id + `"}`)
	etag := common.ETagOf(body)
	srv.handler.cache.SetPair(context.Background(), cache.KindAAS, common.EncodeID(id), cache.Pair{Bytes: body, ETag: etag})

	rec := srv.do(http.MethodGet, "/shells/"+common.EncodeID(id), "", map[string]string{
		"If-None-Match": `"` + etag + `"`,
	})

	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, `"`+etag+`"`, rec.Header().Get("ETag"))
}

func TestGetShellFallsThroughToRepository(t *testing.T) {
	srv := setupServer(t)
	id := "urn:example:aas:2"
	srv.mock.ExpectQuery("SELECT doc_bytes, etag FROM aas").
		WithArgs(persistence.DefaultTenant, id).
		WillReturnRows(sqlmock.NewRows([]string{"doc_bytes", "etag"}).
			AddRow([]byte(`{"id":"`+id+`"}`), "beef"))

	rec := srv.do(http.MethodGet, "/shells/"+common.EncodeID(id), "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"beef"`, rec.Header().Get("ETag"))
	require.NoError(t, srv.mock.ExpectationsWereMet())
}

func TestCreateShell(t *testing.T) {
	srv := setupServer(t)
	srv.mock.ExpectExec("INSERT INTO aas").
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := srv.do(http.MethodPost, "/shells", shellPayload, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("ETag"))
	assert.Equal(t, "/shells/"+common.EncodeID("urn:example:aas:1"), rec.Header().Get("Location"))
	require.NoError(t, srv.mock.ExpectationsWereMet())
}

func TestCreateShellEmptyBody(t *testing.T) {
	srv := setupServer(t)

	rec := srv.do(http.MethodPost, "/shells", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteShellPreconditionFailed(t *testing.T) {
	srv := setupServer(t)
	id := "urn:example:aas:1"
	srv.mock.ExpectBegin()
	srv.mock.ExpectQuery("SELECT etag FROM aas").
		WithArgs(persistence.DefaultTenant, id).
		WillReturnRows(sqlmock.NewRows([]string{"etag"}).AddRow("current"))
	srv.mock.ExpectRollback()

	rec := srv.do(http.MethodDelete, "/shells/"+common.EncodeID(id), "", map[string]string{
		"If-Match": `"stale"`,
	})

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestLookupShellsRequiresAssetIds(t *testing.T) {
	srv := setupServer(t)

	rec := srv.do(http.MethodGet, "/lookup/shells", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLookupShellsRejectsMalformedAssetIds(t *testing.T) {
	srv := setupServer(t)

	rec := srv.do(http.MethodGet, "/lookup/shells?assetIds="+common.EncodeID(`not an object`), "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDescriptionDocument(t *testing.T) {
	srv := setupServer(t)

	rec := srv.do(http.MethodGet, "/description", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "SubmodelRepositoryServiceSpecification")
	assert.Contains(t, body, `"cursor"`)
	assert.Contains(t, body, `"maxLimit":1000`)
	// no registry wired, so no registry profiles
	assert.NotContains(t, body, "RegistryServiceSpecification")
}

func TestHealthLive(t *testing.T) {
	srv := setupServer(t)

	rec := srv.do(http.MethodGet, "/health/live", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"UP"`)
}

func TestListShellsInvalidLimit(t *testing.T) {
	srv := setupServer(t)

	rec := srv.do(http.MethodGet, "/shells?limit=nope", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListShellsEnvelope(t *testing.T) {
	srv := setupServer(t)
	srv.mock.ExpectQuery("SELECT doc_bytes, etag, created_at, id FROM aas").
		WillReturnRows(sqlmock.NewRows([]string{"doc_bytes", "etag", "created_at", "id"}))

	rec := srv.do(http.MethodGet, "/shells", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result":[],"paging_metadata":{}}`, rec.Body.String())
}

func TestRateLimiter(t *testing.T) {
	srv := setupServer(t)
	limiter := NewRateLimiter(redis.NewClient(&redis.Options{Addr: srv.redis.Addr()}), common.RateLimitConfig{
		Enabled:       true,
		Requests:      2,
		WindowSeconds: 60,
	})
	require.NotNil(t, limiter)

	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shells", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shells", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRateLimiterFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRateLimiter(rdb, common.RateLimitConfig{Enabled: true, Requests: 1, WindowSeconds: 60})
	mr.Close()

	rec := httptest.NewRecorder()
	limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shells", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterDisabled(t *testing.T) {
	assert.Nil(t, NewRateLimiter(nil, common.RateLimitConfig{Enabled: true, Requests: 10, WindowSeconds: 1}))
	assert.Nil(t, NewRateLimiter(redis.NewClient(&redis.Options{}), common.RateLimitConfig{Enabled: false}))
}

func TestMatchesETag(t *testing.T) {
	assert.True(t, matchesETag("*", "abc"))
	assert.True(t, matchesETag(`"abc"`, "abc"))
	assert.True(t, matchesETag(`"x", "abc"`, "abc"))
	assert.False(t, matchesETag(`"x"`, "abc"))
	assert.False(t, matchesETag("", "abc"))
	assert.False(t, matchesETag("*", ""))
}

func TestAnonymousAuthenticator(t *testing.T) {
	auth, err := NewAuthenticator(context.Background(), common.OIDCConfig{})
	require.NoError(t, err)
	assert.Nil(t, auth)

	rec := httptest.NewRecorder()
	auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shells", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClaimsFromContextAnonymous(t *testing.T) {
	assert.Nil(t, ClaimsFromContext(context.Background()))
}
