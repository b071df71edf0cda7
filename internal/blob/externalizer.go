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

package blob

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/titan-aas/titan-go-components/internal/common/model"
	"github.com/titan-aas/titan-go-components/internal/projection"
)

// Result reports the outcome of one externalization walk: metadata of blobs
// stored during the walk and ids of pre-existing references found in the
// document. The repository persists the former and uses the union for
// cascade deletion.
type Result struct {
	NewBlobs      []Metadata
	ReferencedIDs []string
}

// Externalize walks every Blob and File element of a submodel document
// (nested containers and operation variables included) and moves values
// above the backend threshold out of the document. The document is mutated
// in place; callers pass a clone when they need the original.
func Externalize(ctx context.Context, backend Backend, submodelID string, doc map[string]interface{}) (Result, error) {
	var result Result
	err := walkElements(doc, "", func(element map[string]interface{}, path string) error {
		return externalizeElement(ctx, backend, submodelID, element, path, &result)
	})
	return result, err
}

// CollectReferences returns the blob ids referenced by a document, used to
// diff reference sets between versions on replace.
func CollectReferences(doc map[string]interface{}) []string {
	var ids []string
	_ = walkElements(doc, "", func(element map[string]interface{}, path string) error {
		if id, ok := referencedID(element); ok {
			ids = append(ids, id)
		}
		return nil
	})
	return ids
}

// WalkBlobValues visits every Blob and File element carrying a string value.
func WalkBlobValues(doc map[string]interface{}, visit func(element map[string]interface{}, value string)) {
	_ = walkElements(doc, "", func(element map[string]interface{}, path string) error {
		modelType := element["modelType"]
		if modelType != "Blob" && modelType != "File" {
			return nil
		}
		if value, ok := element["value"].(string); ok {
			visit(element, value)
		}
		return nil
	})
}

func referencedID(element map[string]interface{}) (string, bool) {
	modelType := element["modelType"]
	if modelType != "Blob" && modelType != "File" {
		return "", false
	}
	value, _ := element["value"].(string)
	if !strings.HasPrefix(value, model.BlobReferencePrefix) {
		return "", false
	}
	return strings.TrimPrefix(value, model.BlobReferencePrefix), true
}

func externalizeElement(ctx context.Context, backend Backend, submodelID string, element map[string]interface{}, path string, result *Result) error {
	modelType := element["modelType"]
	if modelType != "Blob" && modelType != "File" {
		return nil
	}
	value, _ := element["value"].(string)
	if value == "" {
		return nil
	}
	if strings.HasPrefix(value, model.BlobReferencePrefix) {
		result.ReferencedIDs = append(result.ReferencedIDs, strings.TrimPrefix(value, model.BlobReferencePrefix))
		return nil
	}

	var content []byte
	switch modelType {
	case "Blob":
		decoded, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return nil // non-base64 values are left alone
		}
		content = decoded
	case "File":
		decoded, ok := model.DecodeDataURI(value)
		if !ok {
			return nil
		}
		content = decoded
	}

	contentType, _ := element["contentType"].(string)
	if !backend.ShouldExternalize(content, contentType) {
		return nil
	}

	meta, err := backend.Store(ctx, submodelID, path, content, contentType, "")
	if err != nil {
		return err
	}
	element["value"] = model.BlobReferencePrefix + meta.ID
	result.NewBlobs = append(result.NewBlobs, meta)
	return nil
}

// walkElements visits every submodel element in document order, carrying the
// idShortPath of each visit. The visitor runs before descending so that a
// replaced value never recurses.
func walkElements(node map[string]interface{}, base string, visit func(map[string]interface{}, string) error) error {
	isList := node["modelType"] == "SubmodelElementList"
	for _, key := range []string{"submodelElements", "value", "statements", "annotations"} {
		children, ok := node[key].([]interface{})
		if !ok {
			continue
		}
		for i, child := range children {
			childMap, ok := child.(map[string]interface{})
			if !ok {
				continue
			}
			var childPath string
			if isList && key == "value" {
				childPath = projection.AppendIndex(base, i)
			} else if idShort, ok := childMap["idShort"].(string); ok && idShort != "" {
				childPath = projection.AppendName(base, idShort)
			} else {
				childPath = projection.AppendIndex(base, i)
			}
			if err := visit(childMap, childPath); err != nil {
				return err
			}
			if err := walkElements(childMap, childPath, visit); err != nil {
				return err
			}
		}
	}
	for _, key := range []string{"inputVariables", "outputVariables", "inoutputVariables"} {
		group, ok := node[key].([]interface{})
		if !ok {
			continue
		}
		for i, wrapper := range group {
			wrapperMap, ok := wrapper.(map[string]interface{})
			if !ok {
				continue
			}
			element, ok := wrapperMap["value"].(map[string]interface{})
			if !ok {
				continue
			}
			childPath := projection.AppendIndex(projection.AppendName(base, key), i)
			if err := visit(element, childPath); err != nil {
				return err
			}
			if err := walkElements(element, childPath, visit); err != nil {
				return err
			}
		}
	}
	return nil
}
