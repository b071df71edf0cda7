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

	jsoniter "github.com/json-iterator/go"

	"github.com/titan-aas/titan-go-components/internal/cache"
	"github.com/titan-aas/titan-go-components/internal/common"
	"github.com/titan-aas/titan-go-components/internal/persistence"
)

func (h *Handler) listSubmodels(w http.ResponseWriter, r *http.Request) {
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
	page, err := h.submodels.List(r.Context(), h.tenant(r), r.URL.Query().Get("cursor"), limit, semanticID, r.URL.Query().Get("idShort"))
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	writePage(w, page)
}

func (h *Handler) createSubmodel(w http.ResponseWriter, r *http.Request) {
	payload, err := readBody(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	entry, err := h.submodels.Create(r.Context(), h.tenant(r), payload)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	setCreatedLocation(w, r, entry.Bytes)
	common.WriteCanonicalResponse(w, http.StatusCreated, entry.Bytes, entry.ETag)
}

func (h *Handler) getSubmodel(w http.ResponseWriter, r *http.Request) {
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
	entry, err := h.readCached(r, cache.KindSubmodel, id, func() (persistence.Entry, error) {
		return h.submodels.Get(r.Context(), h.tenant(r), id)
	})
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	if mods != defaultMods {
		if err := projectEntry(w, entry, "Submodel", id, mods); err != nil {
			common.WriteErrorResponse(w, err)
		}
		return
	}
	h.writeEntry(w, r, entry)
}

func (h *Handler) replaceSubmodel(w http.ResponseWriter, r *http.Request) {
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
	entry, err := h.submodels.Replace(r.Context(), h.tenant(r), id, payload, ifMatch(r))
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	common.WriteCanonicalResponse(w, http.StatusOK, entry.Bytes, entry.ETag)
}

func (h *Handler) patchSubmodel(w http.ResponseWriter, r *http.Request) {
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
	entry, err := h.submodels.Patch(r.Context(), h.tenant(r), id, patch, ifMatch(r))
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	common.WriteCanonicalResponse(w, http.StatusOK, entry.Bytes, entry.ETag)
}

func (h *Handler) deleteSubmodel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	if err := h.submodels.Delete(r.Context(), h.tenant(r), id, ifMatch(r)); err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lookupSubmodels(w http.ResponseWriter, r *http.Request) {
	semanticID, err := optionalEncodedQuery(r, "semanticId")
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	if semanticID == "" {
		common.WriteErrorResponse(w, common.NewErrBadRequest("semanticId parameter is required"))
		return
	}
	entries, err := h.submodels.LookupSubmodels(r.Context(), h.tenant(r), semanticID)
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

type instantiateRequest struct {
	ID             string                 `json:"id"`
	ValueOverrides map[string]interface{} `json:"valueOverrides,omitempty"`
}

// instantiateSubmodel clones a kind=Template submodel into a new
// kind=Instance document under a fresh identifier.
func (h *Handler) instantiateSubmodel(w http.ResponseWriter, r *http.Request) {
	templateID, err := pathID(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	body, err := readBody(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	var req instantiateRequest
	if err := jsonStd.Unmarshal(body, &req); err != nil {
		common.WriteErrorResponse(w, common.NewErrBadRequest("request body is not valid JSON"))
		return
	}
	if req.ID == "" {
		common.WriteErrorResponse(w, common.NewErrBadRequest("id of the new instance is required"))
		return
	}
	entry, err := h.submodels.Instantiate(r.Context(), h.tenant(r), templateID, req.ID, req.ValueOverrides)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	common.WriteCanonicalResponse(w, http.StatusCreated, entry.Bytes, entry.ETag)
}

// environment is the IDTA serialization interchange document.
type environment struct {
	AssetAdministrationShells []jsoniter.RawMessage `json:"assetAdministrationShells"`
	Submodels                 []jsoniter.RawMessage `json:"submodels"`
	ConceptDescriptions       []jsoniter.RawMessage `json:"conceptDescriptions"`
}

// exportSerialization bundles the selected entities into an environment
// document. Without aasIds/submodelIds filters every entity is exported.
func (h *Handler) exportSerialization(w http.ResponseWriter, r *http.Request) {
	tenant := h.tenant(r)
	env := environment{
		AssetAdministrationShells: []jsoniter.RawMessage{},
		Submodels:                 []jsoniter.RawMessage{},
		ConceptDescriptions:       []jsoniter.RawMessage{},
	}

	aasIDs, err := decodeEncodedList(r.URL.Query()["aasIds"])
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	submodelIDs, err := decodeEncodedList(r.URL.Query()["submodelIds"])
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}

	if len(aasIDs) > 0 {
		for _, id := range aasIDs {
			entry, err := h.shells.Get(r.Context(), tenant, id)
			if err != nil {
				common.WriteErrorResponse(w, err)
				return
			}
			env.AssetAdministrationShells = append(env.AssetAdministrationShells, jsoniter.RawMessage(entry.Bytes))
		}
	} else if len(submodelIDs) == 0 {
		if err := h.collectAll(r, func(cursor string) (persistence.Page, error) {
			return h.shells.List(r.Context(), tenant, cursor, 0, "")
		}, &env.AssetAdministrationShells); err != nil {
			common.WriteErrorResponse(w, err)
			return
		}
	}

	if len(submodelIDs) > 0 {
		for _, id := range submodelIDs {
			entry, err := h.submodels.Get(r.Context(), tenant, id)
			if err != nil {
				common.WriteErrorResponse(w, err)
				return
			}
			env.Submodels = append(env.Submodels, jsoniter.RawMessage(entry.Bytes))
		}
	} else if len(aasIDs) == 0 {
		if err := h.collectAll(r, func(cursor string) (persistence.Page, error) {
			return h.submodels.List(r.Context(), tenant, cursor, 0, "", "")
		}, &env.Submodels); err != nil {
			common.WriteErrorResponse(w, err)
			return
		}
	}

	if len(aasIDs) == 0 && len(submodelIDs) == 0 {
		if err := h.collectAll(r, func(cursor string) (persistence.Page, error) {
			return h.cds.List(r.Context(), tenant, cursor, 0, "")
		}, &env.ConceptDescriptions); err != nil {
			common.WriteErrorResponse(w, err)
			return
		}
	}

	common.WriteJSONResponse(w, http.StatusOK, env)
}

func (h *Handler) collectAll(r *http.Request, list func(cursor string) (persistence.Page, error), out *[]jsoniter.RawMessage) error {
	cursor := ""
	for {
		page, err := list(cursor)
		if err != nil {
			return err
		}
		for _, entry := range page.Items {
			*out = append(*out, jsoniter.RawMessage(entry.Bytes))
		}
		if page.NextCursor == "" {
			return nil
		}
		cursor = page.NextCursor
	}
}

// importSerialization ingests an environment document, creating every
// contained entity. Existing identifiers make the whole import fail with a
// conflict so imports stay all-or-nothing per entity kind ordering.
func (h *Handler) importSerialization(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	var env environment
	if err := jsonStd.Unmarshal(body, &env); err != nil {
		common.WriteErrorResponse(w, common.NewErrBadRequest("request body is not a valid environment document"))
		return
	}
	tenant := h.tenant(r)
	created := struct {
		AssetAdministrationShells int `json:"assetAdministrationShells"`
		Submodels                 int `json:"submodels"`
		ConceptDescriptions       int `json:"conceptDescriptions"`
	}{}
	for _, raw := range env.Submodels {
		if _, err := h.submodels.Create(r.Context(), tenant, raw); err != nil {
			common.WriteErrorResponse(w, err)
			return
		}
		created.Submodels++
	}
	for _, raw := range env.AssetAdministrationShells {
		if _, err := h.shells.Create(r.Context(), tenant, raw); err != nil {
			common.WriteErrorResponse(w, err)
			return
		}
		created.AssetAdministrationShells++
	}
	for _, raw := range env.ConceptDescriptions {
		if _, err := h.cds.Create(r.Context(), tenant, raw); err != nil {
			common.WriteErrorResponse(w, err)
			return
		}
		created.ConceptDescriptions++
	}
	common.WriteJSONResponse(w, http.StatusCreated, created)
}

// optionalEncodedQuery decodes a base64url-encoded query parameter, empty
// when absent.
func optionalEncodedQuery(r *http.Request, name string) (string, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return "", nil
	}
	return common.DecodeID(raw)
}

func decodeEncodedList(raws []string) ([]string, error) {
	out := make([]string, 0, len(raws))
	for _, raw := range raws {
		decoded, err := common.DecodeID(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, decoded)
	}
	return out, nil
}
