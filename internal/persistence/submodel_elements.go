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

// Submodel-element operations. Every mutation treats the hosting Submodel as
// one atomic unit: clone, modify in memory, re-validate, re-canonicalize and
// rewrite the row. Each mutation emits an element event in addition to the
// Submodel's UPDATED.

import (
	"context"

	"github.com/titan-aas/titan-go-components/internal/blob"
	"github.com/titan-aas/titan-go-components/internal/common"
	"github.com/titan-aas/titan-go-components/internal/common/model"
	"github.com/titan-aas/titan-go-components/internal/projection"
)

// GetElement projects the element at path. Returns the projection and the
// hosting submodel's ETag.
func (r *SubmodelRepository) GetElement(ctx context.Context, tenant, smID, path string, mods projection.Modifiers) (interface{}, string, error) {
	entry, err := r.Get(ctx, tenant, smID)
	if err != nil {
		return nil, "", err
	}
	doc, err := decodeDoc(entry.Bytes)
	if err != nil {
		return nil, "", err
	}
	projected, err := projection.Project(doc, path, "Submodel", smID, mods)
	if err != nil {
		return nil, "", err
	}
	return projected, entry.ETag, nil
}

// CreateElement inserts a new element into the container addressed by
// parentPath (the submodel itself when empty). Returns the new child's
// idShortPath for the Location header.
func (r *SubmodelRepository) CreateElement(ctx context.Context, tenant, smID, parentPath string, elementPayload []byte, ifMatch string) (string, Entry, error) {
	element, err := model.UnmarshalSubmodelElement(elementPayload)
	if err != nil {
		return "", Entry{}, err
	}
	elementDoc, err := decodeDoc(elementPayload)
	if err != nil {
		return "", Entry{}, err
	}

	var location string
	entry, err := r.mutateElements(ctx, tenant, smID, ifMatch, func(doc map[string]interface{}) (string, error) {
		parent, key, err := projection.ElementContainer(doc, parentPath)
		if err != nil {
			return "", err
		}
		children, _ := parent[key].([]interface{})
		insideList := parent["modelType"] == "SubmodelElementList"

		if err := element.ValidateElement(insideList); err != nil {
			return "", err
		}
		if insideList {
			location = projection.AppendIndex(parentPath, len(children))
		} else {
			idShort := element.GetIdShort()
			for _, child := range children {
				childMap, ok := child.(map[string]interface{})
				if ok && childMap["idShort"] == idShort {
					return "", common.NewErrConflict("element with idShort '" + idShort + "' already exists in container")
				}
			}
			location = projection.AppendName(parentPath, idShort)
		}
		parent[key] = append(children, elementDoc)
		return location, nil
	}, model.EventCreated)
	if err != nil {
		return "", Entry{}, err
	}
	return location, entry, nil
}

// ReplaceElement swaps the element at path. The modelType must match.
func (r *SubmodelRepository) ReplaceElement(ctx context.Context, tenant, smID, path string, elementPayload []byte, ifMatch string) (Entry, error) {
	element, err := model.UnmarshalSubmodelElement(elementPayload)
	if err != nil {
		return Entry{}, err
	}
	elementDoc, err := decodeDoc(elementPayload)
	if err != nil {
		return Entry{}, err
	}

	return r.mutateElements(ctx, tenant, smID, ifMatch, func(doc map[string]interface{}) (string, error) {
		location, err := projection.Locate(doc, path)
		if err != nil {
			return "", err
		}
		if location.Element["modelType"] != element.GetModelType() {
			return "", common.NewErrBadRequest("replacement modelType does not match existing element")
		}
		steps, err := projection.ParseIDShortPath(path)
		if err != nil {
			return "", err
		}
		insideList := len(steps) > 0 && steps[len(steps)-1].IsIndex
		if err := element.ValidateElement(insideList); err != nil {
			return "", err
		}
		location.Replace(elementDoc)
		return path, nil
	}, model.EventUpdated)
}

// PatchElement merge-patches the element at path.
func (r *SubmodelRepository) PatchElement(ctx context.Context, tenant, smID, path string, patch []byte, ifMatch string) (Entry, error) {
	patchDoc, err := decodeDoc(patch)
	if err != nil {
		return Entry{}, common.NewErrBadRequest("merge-patch body is not a JSON object")
	}
	return r.mutateElements(ctx, tenant, smID, ifMatch, func(doc map[string]interface{}) (string, error) {
		location, err := projection.Locate(doc, path)
		if err != nil {
			return "", err
		}
		patched := projection.MergePatch(location.Element, patchDoc)
		payload, err := jsonStd.Marshal(patched)
		if err != nil {
			return "", err
		}
		if _, err := model.UnmarshalSubmodelElement(payload); err != nil {
			return "", err
		}
		location.Replace(patched)
		return path, nil
	}, model.EventUpdated)
}

// PatchElementValue applies a content=value body to the element at path.
func (r *SubmodelRepository) PatchElementValue(ctx context.Context, tenant, smID, path string, value interface{}, ifMatch string) (Entry, error) {
	return r.mutateElements(ctx, tenant, smID, ifMatch, func(doc map[string]interface{}) (string, error) {
		element, err := projection.Navigate(doc, path)
		if err != nil {
			return "", err
		}
		if err := projection.ApplyValuePatch(element, value); err != nil {
			return "", err
		}
		return path, nil
	}, model.EventUpdated)
}

// DeleteElement removes the element at path.
func (r *SubmodelRepository) DeleteElement(ctx context.Context, tenant, smID, path string, ifMatch string) (Entry, error) {
	return r.mutateElements(ctx, tenant, smID, ifMatch, func(doc map[string]interface{}) (string, error) {
		location, err := projection.Locate(doc, path)
		if err != nil {
			return "", err
		}
		if location.Remove == nil {
			return "", common.NewErrBadRequest("element at '" + path + "' cannot be removed")
		}
		location.Remove()
		return path, nil
	}, model.EventDeleted)
}

// mutateElements is the shared read-modify-write loop of element mutations.
// mutate edits the decoded document and returns the affected idShortPath.
// When the client supplied no If-Match, a losing race against a concurrent
// writer is retried instead of surfacing a 412 the client never asked for.
func (r *SubmodelRepository) mutateElements(ctx context.Context, tenant, smID, ifMatch string, mutate func(doc map[string]interface{}) (string, error), eventType model.EventType) (Entry, error) {
	attempts := 3
	if ifMatch != "" {
		attempts = 1
	}

	for attempt := 0; ; attempt++ {
		current, err := r.Get(ctx, tenant, smID)
		if err != nil {
			return Entry{}, err
		}
		if err := checkIfMatch(ifMatch, current.ETag); err != nil {
			return Entry{}, err
		}
		doc, err := decodeDoc(current.Bytes)
		if err != nil {
			return Entry{}, err
		}

		path, err := mutate(doc)
		if err != nil {
			return Entry{}, err
		}

		payload, err := jsonStd.Marshal(doc)
		if err != nil {
			return Entry{}, err
		}
		submodel, err := model.ParseSubmodel(payload)
		if err != nil {
			return Entry{}, err
		}
		external, err := blob.Externalize(ctx, r.blobs, smID, doc)
		if err != nil {
			return Entry{}, err
		}

		entry, err := r.replaceDoc(ctx, tenant, smID, doc, external, current.ETag, submodel)
		if common.IsErrPreconditionFailed(err) && ifMatch == "" && attempt+1 < attempts {
			continue
		}
		if err != nil {
			return Entry{}, err
		}

		r.publishElementEvent(ctx, eventType, smID, path, doc)
		return entry, nil
	}
}

// publishElementEvent emits the per-element event carrying the canonical
// $value bytes for cache reconciliation. DELETED events carry no value.
func (r *SubmodelRepository) publishElementEvent(ctx context.Context, eventType model.EventType, smID, path string, doc map[string]interface{}) {
	var valueBytes []byte
	if eventType != model.EventDeleted {
		if element, err := projection.Navigate(doc, path); err == nil {
			if value, ok := projection.ExtractValue(element); ok {
				if canonical, err := common.CanonicalizeValue(value); err == nil {
					valueBytes = canonical
				}
			}
		}
	}
	publish(ctx, r.bus, model.NewElementEvent(eventType, smID, path, valueBytes))
}
