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

// Package api maps the IDTA-01002 HTTP surface onto the repositories,
// projection engine, cache tier and event pipeline. Handlers stay thin:
// decode identifiers and modifiers, call one repository operation, translate
// the outcome into status codes, ETags and the Result envelope.
package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/titan-aas/titan-go-components/internal/cache"
	"github.com/titan-aas/titan-go-components/internal/common"
	"github.com/titan-aas/titan-go-components/internal/common/logger"
	"github.com/titan-aas/titan-go-components/internal/persistence"
	"github.com/titan-aas/titan-go-components/internal/projection"
	"github.com/titan-aas/titan-go-components/internal/registry"
	"github.com/titan-aas/titan-go-components/internal/writer"
)

var (
	log         = logger.New("api")
	jsonStd     = jsoniter.ConfigCompatibleWithStandardLibrary
	defaultMods = projection.DefaultModifiers()
)

// maxBodyBytes caps request bodies; blob content goes through the streaming
// attachment endpoint instead.
const maxBodyBytes = 64 << 20

// Handler carries the service dependencies of the HTTP surface. Cache,
// registry and hub are optional; nil disables the matching routes or
// degrades to the repository path.
type Handler struct {
	cfg         common.Config
	shells      *persistence.AASRepository
	submodels   *persistence.SubmodelRepository
	cds         *persistence.ConceptDescriptionRepository
	invocations *persistence.InvocationRepository
	store       *persistence.Store
	registry    *registry.Store
	cache       *cache.Cache
	hub         *writer.Hub
	rdb         *redis.Client
}

// Deps bundles the constructor arguments of the handler.
type Deps struct {
	Config      common.Config
	Shells      *persistence.AASRepository
	Submodels   *persistence.SubmodelRepository
	CDs         *persistence.ConceptDescriptionRepository
	Invocations *persistence.InvocationRepository
	Store       *persistence.Store
	Registry    *registry.Store
	Cache       *cache.Cache
	Hub         *writer.Hub
	Redis       *redis.Client
}

// NewHandler builds the handler from its dependencies.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		cfg:         deps.Config,
		shells:      deps.Shells,
		submodels:   deps.Submodels,
		cds:         deps.CDs,
		invocations: deps.Invocations,
		store:       deps.Store,
		registry:    deps.Registry,
		cache:       deps.Cache,
		hub:         deps.Hub,
		rdb:         deps.Redis,
	}
}

// Routes mounts the full surface on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/description", h.getDescription)
	r.Get("/health", h.getHealth)
	r.Get("/health/live", h.getHealthLive)
	r.Get("/health/ready", h.getHealthReady)

	r.Route("/shells", func(r chi.Router) {
		r.Get("/", h.listShells)
		r.Post("/", h.createShell)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getShell)
			r.Put("/", h.replaceShell)
			r.Patch("/", h.patchShell)
			r.Delete("/", h.deleteShell)
		})
	})

	r.Route("/submodels", func(r chi.Router) {
		r.Get("/", h.listSubmodels)
		r.Post("/", h.createSubmodel)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getSubmodel)
			r.Put("/", h.replaceSubmodel)
			r.Patch("/", h.patchSubmodel)
			r.Delete("/", h.deleteSubmodel)
			r.Post("/instantiate", h.instantiateSubmodel)

			r.Route("/submodel-elements", func(r chi.Router) {
				r.Get("/", h.listElements)
				r.Post("/", h.createElement)
				r.Route("/{path}", func(r chi.Router) {
					r.Get("/", h.getElement)
					r.Post("/", h.createElement)
					r.Put("/", h.replaceElement)
					r.Patch("/", h.patchElement)
					r.Delete("/", h.deleteElement)
					r.Get("/$value", h.getElementValue)
					r.Patch("/$value", h.patchElementValue)
					r.Get("/attachment", h.getAttachment)
					r.Post("/invoke", h.invokeOperation)
					r.Get("/operation-status/{invocationId}", h.getOperationStatus)
				})
			})
		})
	})

	r.Route("/concept-descriptions", func(r chi.Router) {
		r.Get("/", h.listConceptDescriptions)
		r.Post("/", h.createConceptDescription)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getConceptDescription)
			r.Put("/", h.replaceConceptDescription)
			r.Delete("/", h.deleteConceptDescription)
		})
	})

	r.Get("/lookup/shells", h.lookupShells)
	r.Get("/lookup/submodels", h.lookupSubmodels)

	r.Get("/serialization", h.exportSerialization)
	r.Post("/serialization", h.importSerialization)

	r.Get("/blobs/{blobId}", h.getBlob)
	r.Put("/blobs/{blobId}", h.putBlob)

	if h.registry != nil {
		r.Route("/shell-descriptors", func(r chi.Router) {
			r.Get("/", h.listShellDescriptors)
			r.Post("/", h.createShellDescriptor)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getShellDescriptor)
				r.Put("/", h.replaceShellDescriptor)
				r.Delete("/", h.deleteShellDescriptor)
			})
		})
		r.Route("/submodel-descriptors", func(r chi.Router) {
			r.Get("/", h.listSubmodelDescriptors)
			r.Post("/", h.createSubmodelDescriptor)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getSubmodelDescriptor)
				r.Put("/", h.replaceSubmodelDescriptor)
				r.Delete("/", h.deleteSubmodelDescriptor)
			})
		})
	}

	if h.hub != nil {
		r.Get("/events", h.hub.ServeWS)
	}
}

// tenant resolves the tenant of the request. Multi-tenancy rides on a header
// so single-tenant deployments need no configuration.
func (h *Handler) tenant(r *http.Request) string {
	if tenant := r.Header.Get("X-Tenant-Id"); tenant != "" {
		return tenant
	}
	return persistence.DefaultTenant
}

// pathID decodes the base64url {id} path parameter.
func pathID(r *http.Request) (string, error) {
	return common.DecodeID(chi.URLParam(r, "id"))
}

func ifMatch(r *http.Request) string {
	return r.Header.Get("If-Match")
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, common.NewErrBadRequest("failed to read request body")
	}
	if len(body) > maxBodyBytes {
		return nil, common.NewErrBadRequest("request body exceeds the accepted size")
	}
	if len(body) == 0 {
		return nil, common.NewErrBadRequest("request body must not be empty")
	}
	return body, nil
}

func queryModifiers(r *http.Request) (projection.Modifiers, error) {
	q := r.URL.Query()
	return projection.ParseModifiers(q.Get("content"), q.Get("level"), q.Get("extent"))
}

func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, common.NewErrBadRequest("limit must be a non-negative integer")
	}
	return limit, nil
}

// writeEntry writes canonical bytes with the conditional-GET contract: an
// If-None-Match hit answers 304 with the current ETag and no body.
func (h *Handler) writeEntry(w http.ResponseWriter, r *http.Request, entry persistence.Entry) {
	if matchesETag(r.Header.Get("If-None-Match"), entry.ETag) {
		w.Header().Set("ETag", `"`+entry.ETag+`"`)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	h.setCacheControl(w)
	common.WriteCanonicalResponse(w, http.StatusOK, entry.Bytes, entry.ETag)
}

func matchesETag(ifNoneMatch, etag string) bool {
	ifNoneMatch = strings.TrimSpace(ifNoneMatch)
	if ifNoneMatch == "" || etag == "" {
		return false
	}
	if ifNoneMatch == "*" {
		return true
	}
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		if strings.Trim(strings.TrimSpace(candidate), `"`) == etag {
			return true
		}
	}
	return false
}

func (h *Handler) setCacheControl(w http.ResponseWriter) {
	maxAge := h.cfg.Cache.MaxAgeSeconds
	if maxAge <= 0 {
		return
	}
	value := "max-age=" + strconv.Itoa(maxAge)
	if swr := h.cfg.Cache.StaleWhileRevalidateSecond; swr > 0 {
		value += ", stale-while-revalidate=" + strconv.Itoa(swr)
	}
	w.Header().Set("Cache-Control", value)
}

// setCreatedLocation points Location at the new resource using the id from
// the canonical document.
func setCreatedLocation(w http.ResponseWriter, r *http.Request, canonical []byte) {
	var doc struct {
		ID string `json:"id"`
	}
	if jsonStd.Unmarshal(canonical, &doc) != nil || doc.ID == "" {
		return
	}
	w.Header().Set("Location", strings.TrimSuffix(r.URL.Path, "/")+"/"+common.EncodeID(doc.ID))
}

// pagedResult is the IDTA paged list envelope.
type pagedResult struct {
	Result         []jsoniter.RawMessage `json:"result"`
	PagingMetadata common.PagingMetadata `json:"paging_metadata"`
}

func writePage(w http.ResponseWriter, page persistence.Page) {
	out := pagedResult{Result: []jsoniter.RawMessage{}}
	for _, entry := range page.Items {
		out.Result = append(out.Result, jsoniter.RawMessage(entry.Bytes))
	}
	out.PagingMetadata.Cursor = page.NextCursor
	common.WriteJSONResponse(w, http.StatusOK, out)
}

// readCached serves the canonical pair from the Redis tier when fresh; a
// miss or disabled cache falls through to the repository.
func (h *Handler) readCached(r *http.Request, kind, id string, fetch func() (persistence.Entry, error)) (persistence.Entry, error) {
	if h.cache != nil && h.tenant(r) == persistence.DefaultTenant {
		if pair, ok := h.cache.GetPair(r.Context(), kind, common.EncodeID(id)); ok {
			return persistence.Entry{Bytes: pair.Bytes, ETag: pair.ETag}, nil
		}
	}
	return fetch()
}

// projectEntry applies non-default modifiers to a whole-entity response.
func projectEntry(w http.ResponseWriter, entry persistence.Entry, keyType, id string, mods projection.Modifiers) error {
	doc := map[string]interface{}{}
	if err := jsonStd.Unmarshal(entry.Bytes, &doc); err != nil {
		return err
	}
	projected, err := projection.Project(doc, "", keyType, id, mods)
	if err != nil {
		return err
	}
	w.Header().Set("ETag", `"`+entry.ETag+`"`)
	common.WriteJSONResponse(w, http.StatusOK, projected)
	return nil
}
