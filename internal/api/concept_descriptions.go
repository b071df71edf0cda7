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
	"net/http"

	"github.com/titan-aas/titan-go-components/internal/cache"
	"github.com/titan-aas/titan-go-components/internal/common"
	"github.com/titan-aas/titan-go-components/internal/persistence"
)

func (h *Handler) listConceptDescriptions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	page, err := h.cds.List(r.Context(), h.tenant(r), r.URL.Query().Get("cursor"), limit, r.URL.Query().Get("idShort"))
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	writePage(w, page)
}

func (h *Handler) createConceptDescription(w http.ResponseWriter, r *http.Request) {
	payload, err := readBody(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	entry, err := h.cds.Create(r.Context(), h.tenant(r), payload)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	setCreatedLocation(w, r, entry.Bytes)
	common.WriteCanonicalResponse(w, http.StatusCreated, entry.Bytes, entry.ETag)
}

func (h *Handler) getConceptDescription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	mods, err := queryModifiers(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	entry, err := h.readCached(r, cache.KindConceptDescription, id, func() (persistence.Entry, error) {
		return h.cds.Get(r.Context(), h.tenant(r), id)
	})
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	if mods != defaultMods {
		if err := projectEntry(w, entry, "ConceptDescription", id, mods); err != nil {
			common.WriteErrorResponse(w, err)
		}
		return
	}
	h.writeEntry(w, r, entry)
}

func (h *Handler) replaceConceptDescription(w http.ResponseWriter, r *http.Request) {
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
	entry, err := h.cds.Replace(r.Context(), h.tenant(r), id, payload, ifMatch(r))
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	common.WriteCanonicalResponse(w, http.StatusOK, entry.Bytes, entry.ETag)
}

func (h *Handler) deleteConceptDescription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	if err := h.cds.Delete(r.Context(), h.tenant(r), id, ifMatch(r)); err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
