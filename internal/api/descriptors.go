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

// Descriptor routes of the registry facet. Descriptors live in MongoDB, not
// in the repository database, but share the identifier encoding, ETag and
// pagination contract of every other resource.

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/titan-aas/titan-go-components/internal/common"
	"github.com/titan-aas/titan-go-components/internal/registry"
)

func writeRegistryPage(w http.ResponseWriter, page registry.Page) {
	out := pagedResult{Result: []jsoniter.RawMessage{}}
	for _, entry := range page.Items {
		out.Result = append(out.Result, jsoniter.RawMessage(entry.Bytes))
	}
	out.PagingMetadata.Cursor = page.NextCursor
	common.WriteJSONResponse(w, http.StatusOK, out)
}

func (h *Handler) listShellDescriptors(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	page, err := h.registry.ListShellDescriptors(r.Context(), h.tenant(r), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	writeRegistryPage(w, page)
}

func (h *Handler) createShellDescriptor(w http.ResponseWriter, r *http.Request) {
	payload, err := readBody(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	entry, err := h.registry.CreateShellDescriptor(r.Context(), h.tenant(r), payload)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	setCreatedLocation(w, r, entry.Bytes)
	common.WriteCanonicalResponse(w, http.StatusCreated, entry.Bytes, entry.ETag)
}

func (h *Handler) getShellDescriptor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	entry, err := h.registry.GetShellDescriptor(r.Context(), h.tenant(r), id)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	h.writeRegistryEntry(w, r, entry)
}

func (h *Handler) replaceShellDescriptor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	payload, err := readBody(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	entry, err := h.registry.ReplaceShellDescriptor(r.Context(), h.tenant(r), id, payload, ifMatch(r))
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	common.WriteCanonicalResponse(w, http.StatusOK, entry.Bytes, entry.ETag)
}

func (h *Handler) deleteShellDescriptor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	if err := h.registry.DeleteShellDescriptor(r.Context(), h.tenant(r), id, ifMatch(r)); err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listSubmodelDescriptors(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	semanticID, err := optionalEncodedQuery(r, "semanticId")
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	page, err := h.registry.ListSubmodelDescriptors(r.Context(), h.tenant(r), r.URL.Query().Get("cursor"), limit, semanticID)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	writeRegistryPage(w, page)
}

func (h *Handler) createSubmodelDescriptor(w http.ResponseWriter, r *http.Request) {
	payload, err := readBody(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	entry, err := h.registry.CreateSubmodelDescriptor(r.Context(), h.tenant(r), payload)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	setCreatedLocation(w, r, entry.Bytes)
	common.WriteCanonicalResponse(w, http.StatusCreated, entry.Bytes, entry.ETag)
}

func (h *Handler) getSubmodelDescriptor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	entry, err := h.registry.GetSubmodelDescriptor(r.Context(), h.tenant(r), id)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	h.writeRegistryEntry(w, r, entry)
}

func (h *Handler) replaceSubmodelDescriptor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	payload, err := readBody(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	entry, err := h.registry.ReplaceSubmodelDescriptor(r.Context(), h.tenant(r), id, payload, ifMatch(r))
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	common.WriteCanonicalResponse(w, http.StatusOK, entry.Bytes, entry.ETag)
}

func (h *Handler) deleteSubmodelDescriptor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	if err := h.registry.DeleteSubmodelDescriptor(r.Context(), h.tenant(r), id, ifMatch(r)); err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeRegistryEntry(w http.ResponseWriter, r *http.Request, entry registry.Entry) {
	if matchesETag(r.Header.Get("If-None-Match"), entry.ETag) {
		w.Header().Set("ETag", `"`+entry.ETag+`"`)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	h.setCacheControl(w)
	common.WriteCanonicalResponse(w, http.StatusOK, entry.Bytes, entry.ETag)
}
