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

func (h *Handler) listShells(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	links, err := assetLinksFromQuery(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	if len(links) > 0 {
		entries, err := h.shells.LookupShells(r.Context(), h.tenant(r), links)
		if err != nil {
			common.WriteErrorResponse(w, err)
			return
		}
		writePage(w, persistence.Page{Items: entries})
		return
	}
	page, err := h.shells.List(r.Context(), h.tenant(r), r.URL.Query().Get("cursor"), limit, r.URL.Query().Get("idShort"))
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	writePage(w, page)
}

func (h *Handler) createShell(w http.ResponseWriter, r *http.Request) {
	payload, err := readBody(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	entry, err := h.shells.Create(r.Context(), h.tenant(r), payload)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	setCreatedLocation(w, r, entry.Bytes)
	common.WriteCanonicalResponse(w, http.StatusCreated, entry.Bytes, entry.ETag)
}

func (h *Handler) getShell(w http.ResponseWriter, r *http.Request) {
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
	entry, err := h.readCached(r, cache.KindAAS, id, func() (persistence.Entry, error) {
		return h.shells.Get(r.Context(), h.tenant(r), id)
	})
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	if mods != defaultMods {
		if err := projectEntry(w, entry, "AssetAdministrationShell", id, mods); err != nil {
			common.WriteErrorResponse(w, err)
		}
		return
	}
	h.writeEntry(w, r, entry)
}

func (h *Handler) replaceShell(w http.ResponseWriter, r *http.Request) {
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
	entry, err := h.shells.Replace(r.Context(), h.tenant(r), id, payload, ifMatch(r))
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	common.WriteCanonicalResponse(w, http.StatusOK, entry.Bytes, entry.ETag)
}

func (h *Handler) patchShell(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	patch, err := readBody(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	entry, err := h.shells.Patch(r.Context(), h.tenant(r), id, patch, ifMatch(r))
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	common.WriteCanonicalResponse(w, http.StatusOK, entry.Bytes, entry.ETag)
}

func (h *Handler) deleteShell(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	if err := h.shells.Delete(r.Context(), h.tenant(r), id, ifMatch(r)); err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lookupShells(w http.ResponseWriter, r *http.Request) {
	links, err := assetLinksFromQuery(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	if len(links) == 0 {
		common.WriteErrorResponse(w, common.NewErrBadRequest("at least one assetIds parameter is required"))
		return
	}
	entries, err := h.shells.LookupShells(r.Context(), h.tenant(r), links)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		var doc struct {
			ID string `json:"id"`
		}
		if jsonStd.Unmarshal(entry.Bytes, &doc) == nil && doc.ID != "" {
			ids = append(ids, doc.ID)
		}
	}
	common.WriteJSONResponse(w, http.StatusOK, ids)
}

// assetLinksFromQuery decodes the repeated assetIds parameter. Each value is
// a base64url-encoded JSON object, either a specific asset id pair
// {"name":...,"value":...} or {"globalAssetId":...}.
func assetLinksFromQuery(r *http.Request) ([]persistence.AssetLink, error) {
	raws := r.URL.Query()["assetIds"]
	links := make([]persistence.AssetLink, 0, len(raws))
	for _, raw := range raws {
		decoded, err := common.DecodeID(raw)
		if err != nil {
			return nil, err
		}
		var link persistence.AssetLink
		if err := jsonStd.Unmarshal([]byte(decoded), &link); err != nil {
			return nil, common.NewErrBadRequest("assetIds entries must be base64url-encoded JSON objects")
		}
		if link.GlobalAssetID == "" && (link.Name == "" || link.Value == "") {
			return nil, common.NewErrBadRequest("assetIds entries need globalAssetId or name and value")
		}
		links = append(links, link)
	}
	return links, nil
}
