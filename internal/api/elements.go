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
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/titan-aas/titan-go-components/internal/common"
	"github.com/titan-aas/titan-go-components/internal/common/model"
	"github.com/titan-aas/titan-go-components/internal/persistence"
	"github.com/titan-aas/titan-go-components/internal/projection"
)

func elementPath(r *http.Request) string {
	return chi.URLParam(r, "path")
}

func (h *Handler) listElements(w http.ResponseWriter, r *http.Request) {
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
	projected, etag, err := h.submodels.GetElement(r.Context(), h.tenant(r), id, "", mods)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	elements := []interface{}{}
	if node, ok := projected.(map[string]interface{}); ok {
		if children, ok := node["submodelElements"].([]interface{}); ok {
			elements = children
		}
	}
	w.Header().Set("ETag", `"`+etag+`"`)
	common.WriteJSONResponse(w, http.StatusOK, struct {
		Result         []interface{}         `json:"result"`
		PagingMetadata common.PagingMetadata `json:"paging_metadata"`
	}{Result: elements})
}

func (h *Handler) getElement(w http.ResponseWriter, r *http.Request) {
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
	projected, etag, err := h.submodels.GetElement(r.Context(), h.tenant(r), id, elementPath(r), mods)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	w.Header().Set("ETag", `"`+etag+`"`)
	h.setCacheControl(w)
	common.WriteJSONResponse(w, http.StatusOK, projected)
}

func (h *Handler) createElement(w http.ResponseWriter, r *http.Request) {
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
	location, entry, err := h.submodels.CreateElement(r.Context(), h.tenant(r), id, elementPath(r), payload, ifMatch(r))
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	w.Header().Set("Location", r.URL.Path+"/"+location)
	common.WriteCanonicalResponse(w, http.StatusCreated, entry.Bytes, entry.ETag)
}

func (h *Handler) replaceElement(w http.ResponseWriter, r *http.Request) {
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
	entry, err := h.submodels.ReplaceElement(r.Context(), h.tenant(r), id, elementPath(r), payload, ifMatch(r))
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	common.WriteCanonicalResponse(w, http.StatusOK, entry.Bytes, entry.ETag)
}

func (h *Handler) patchElement(w http.ResponseWriter, r *http.Request) {
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
	entry, err := h.submodels.PatchElement(r.Context(), h.tenant(r), id, elementPath(r), patch, ifMatch(r))
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	common.WriteCanonicalResponse(w, http.StatusOK, entry.Bytes, entry.ETag)
}

func (h *Handler) deleteElement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	if _, err := h.submodels.DeleteElement(r.Context(), h.tenant(r), id, elementPath(r), ifMatch(r)); err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getElementValue is the hot read path: the canonical $value bytes come from
// the element cache when present, otherwise from a value projection of the
// stored document.
func (h *Handler) getElementValue(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	path := elementPath(r)
	if h.cache != nil && h.tenant(r) == persistence.DefaultTenant {
		if valueBytes, ok := h.cache.GetElementValue(r.Context(), common.EncodeID(id), path); ok {
			h.setCacheControl(w)
			common.WriteCanonicalResponse(w, http.StatusOK, valueBytes, "")
			return
		}
	}
	mods := projection.Modifiers{Content: projection.ContentValue, Level: projection.LevelDeep, Extent: projection.ExtentWithBlobValue}
	projected, etag, err := h.submodels.GetElement(r.Context(), h.tenant(r), id, path, mods)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	w.Header().Set("ETag", `"`+etag+`"`)
	h.setCacheControl(w)
	common.WriteJSONResponse(w, http.StatusOK, projected)
}

func (h *Handler) patchElementValue(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	body, err := readBody(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	var value interface{}
	if err := jsonStd.Unmarshal(body, &value); err != nil {
		common.WriteErrorResponse(w, common.NewErrBadRequest("value body is not valid JSON"))
		return
	}
	entry, err := h.submodels.PatchElementValue(r.Context(), h.tenant(r), id, elementPath(r), value, ifMatch(r))
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	common.WriteCanonicalResponse(w, http.StatusOK, entry.Bytes, entry.ETag)
}

// getAttachment streams the binary content of a File or Blob element.
// Externalized values resolve through the blob store; inline Blob values are
// decoded from their base64 representation.
func (h *Handler) getAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	projected, _, err := h.submodels.GetElement(r.Context(), h.tenant(r), id, elementPath(r), defaultMods)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	element, ok := projected.(map[string]interface{})
	if !ok {
		common.WriteErrorResponse(w, common.NewErrBadRequest("element has no attachment content"))
		return
	}
	modelType, _ := element["modelType"].(string)
	if modelType != "File" && modelType != "Blob" {
		common.WriteErrorResponse(w, common.NewErrBadRequest("attachments exist only on File and Blob elements"))
		return
	}
	value, _ := element["value"].(string)
	contentType, _ := element["contentType"].(string)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if blobID, ok := blobRefID(value); ok {
		h.streamBlob(w, r, blobID)
		return
	}
	if modelType == "File" {
		common.WriteErrorResponse(w, common.NewErrNotFound("File element references external content not managed by this service"))
		return
	}
	if decoded, ok := model.DecodeDataURI(value); ok {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(decoded)
		return
	}
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		common.WriteErrorResponse(w, common.NewErrBadRequest("Blob value is not valid base64 content"))
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(decoded)
}

func blobRefID(value string) (string, bool) {
	if !strings.HasPrefix(value, "/blobs/") {
		return "", false
	}
	id := strings.TrimPrefix(value, "/blobs/")
	return id, id != ""
}

func (h *Handler) getBlob(w http.ResponseWriter, r *http.Request) {
	h.streamBlob(w, r, chi.URLParam(r, "blobId"))
}

func (h *Handler) streamBlob(w http.ResponseWriter, r *http.Request, blobID string) {
	meta, err := h.submodels.GetBlobMetadata(r.Context(), h.tenant(r), blobID)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	reader, err := h.submodels.Blobs().Stream(r.Context(), meta)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	defer reader.Close()
	w.Header().Set("Content-Type", meta.ContentType)
	if _, err := io.Copy(w, reader); err != nil {
		log.Warnf("streaming blob %s aborted: %v", blobID, err)
	}
}

// putBlob replaces the stored content behind a blob reference without
// touching the hosting document; the /blobs/{id} URI stays stable.
func (h *Handler) putBlob(w http.ResponseWriter, r *http.Request) {
	blobID := chi.URLParam(r, "blobId")
	content, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		common.WriteErrorResponse(w, common.NewErrBadRequest("failed to read request body"))
		return
	}
	if len(content) > maxBodyBytes {
		common.WriteErrorResponse(w, common.NewErrBadRequest("request body exceeds the accepted size"))
		return
	}
	contentType := r.Header.Get("Content-Type")
	meta, err := h.submodels.UpdateBlobContent(r.Context(), h.tenant(r), blobID, content, contentType)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	common.WriteJSONResponse(w, http.StatusOK, meta)
}

type invokeRequest struct {
	Inputs        map[string]interface{} `json:"inputs,omitempty"`
	TimeoutMs     int64                  `json:"timeoutMs,omitempty"`
	CorrelationID string                 `json:"correlationId,omitempty"`
}

// invokeOperation validates the arguments against the Operation's declared
// input variables and records a PENDING invocation for asynchronous
// execution.
func (h *Handler) invokeOperation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	path := elementPath(r)
	body, err := readBody(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	var req invokeRequest
	if err := jsonStd.Unmarshal(body, &req); err != nil {
		common.WriteErrorResponse(w, common.NewErrBadRequest("request body is not valid JSON"))
		return
	}

	projected, _, err := h.submodels.GetElement(r.Context(), h.tenant(r), id, path, defaultMods)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	element, ok := projected.(map[string]interface{})
	if !ok || element["modelType"] != "Operation" {
		common.WriteErrorResponse(w, common.NewErrBadRequest("element at '"+path+"' is not an Operation"))
		return
	}
	declared := operationVariableIDShorts(element, "inputVariables")
	for name := range req.Inputs {
		if !declared[name] {
			common.WriteErrorResponse(w, common.NewErrBadRequest("'"+name+"' is not a declared input variable"))
			return
		}
	}

	var inputs json.RawMessage
	if len(req.Inputs) > 0 {
		inputs, err = jsonStd.Marshal(req.Inputs)
		if err != nil {
			common.WriteErrorResponse(w, err)
			return
		}
	}
	invocation, err := h.invocations.Create(r.Context(), model.OperationInvocation{
		SubmodelID:    id,
		IDShortPath:   path,
		Inputs:        inputs,
		TimeoutMs:     req.TimeoutMs,
		CorrelationID: req.CorrelationID,
	})
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	common.WriteJSONResponse(w, http.StatusOK, invocation)
}

func operationVariableIDShorts(element map[string]interface{}, field string) map[string]bool {
	out := map[string]bool{}
	variables, _ := element[field].([]interface{})
	for _, variable := range variables {
		wrapper, ok := variable.(map[string]interface{})
		if !ok {
			continue
		}
		inner, ok := wrapper["value"].(map[string]interface{})
		if !ok {
			continue
		}
		if idShort, ok := inner["idShort"].(string); ok && idShort != "" {
			out[idShort] = true
		}
	}
	return out
}

func (h *Handler) getOperationStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	invocation, err := h.invocations.Get(r.Context(), chi.URLParam(r, "invocationId"))
	if err != nil {
		common.WriteErrorResponse(w, err)
		return
	}
	if invocation.SubmodelID != id || invocation.IDShortPath != elementPath(r) {
		common.WriteErrorResponse(w, common.NewErrNotFound("no invocation with id '"+invocation.InvocationID+"' for this operation"))
		return
	}
	common.WriteJSONResponse(w, http.StatusOK, invocation)
}
