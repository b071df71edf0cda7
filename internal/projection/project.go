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

package projection

import (
	"github.com/titan-aas/titan-go-components/internal/common"
)

// Keys that carry nested children. level=core drops them; content=metadata
// drops them together with the value-carrying keys.
var nestedChildKeys = []string{"submodelElements", "statements", "annotations"}

// Keys dropped by content=metadata in addition to the nested children.
var valueCarryingKeys = []string{
	"value", "min", "max", "valueId", "first", "second",
	"inputVariables", "outputVariables", "inoutputVariables",
}

// Project applies the modifier set to the subtree addressed by path inside
// the document. The input document is never mutated. submodelID seeds
// content=reference and content=path results; entityKeyType is the IDTA key
// type of the root document ("Submodel", "AssetAdministrationShell",
// "ConceptDescription").
func Project(doc map[string]interface{}, path string, entityKeyType, entityID string, mods Modifiers) (interface{}, error) {
	node, err := Navigate(doc, path)
	if err != nil {
		return nil, err
	}

	switch mods.Content {
	case ContentReference:
		return referenceTo(entityKeyType, entityID, path), nil
	case ContentPath:
		return pathsOf(node, path), nil
	case ContentValue:
		value, ok := ExtractValue(node)
		if !ok {
			return nil, common.NewErrBadRequest("element at '" + path + "' has no value representation")
		}
		return value, nil
	case ContentMetadata:
		return metadataOf(node), nil
	default:
		projected := deepCopyMap(node)
		if mods.Level == LevelCore {
			stripNested(projected)
		}
		if mods.Extent == ExtentWithoutBlobValue {
			stripBlobValues(projected)
		}
		return projected, nil
	}
}

// referenceTo builds a model reference for the addressed element. Path
// segments become SubmodelElement keys; an empty path references the entity
// itself.
func referenceTo(entityKeyType, entityID, path string) map[string]interface{} {
	keys := []interface{}{
		map[string]interface{}{"type": entityKeyType, "value": entityID},
	}
	steps, _ := ParseIDShortPath(path)
	segment := ""
	for _, step := range steps {
		if step.IsIndex {
			segment = AppendIndex(segment, step.Index)
			keys[len(keys)-1].(map[string]interface{})["value"] = segment
			continue
		}
		segment = step.Name
		keys = append(keys, map[string]interface{}{"type": "SubmodelElement", "value": segment})
	}
	return map[string]interface{}{"type": "ModelReference", "keys": keys}
}

// pathsOf lists the idShortPath of the node and of every nested element in
// document order.
func pathsOf(node map[string]interface{}, base string) []interface{} {
	var paths []interface{}
	if base != "" {
		paths = append(paths, base)
	}
	collectChildPaths(node, base, &paths)
	if paths == nil {
		paths = []interface{}{}
	}
	return paths
}

func collectChildPaths(node map[string]interface{}, base string, out *[]interface{}) {
	isList := node["modelType"] == "SubmodelElementList"
	for _, key := range childContainerKeys {
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
				childPath = AppendIndex(base, i)
			} else if idShort, ok := childMap["idShort"].(string); ok && idShort != "" {
				childPath = AppendName(base, idShort)
			} else {
				continue
			}
			*out = append(*out, childPath)
			collectChildPaths(childMap, childPath, out)
		}
	}
}

// metadataOf keeps identification and semantic fields only: the nested
// children and every value-carrying key are dropped at the top level.
func metadataOf(node map[string]interface{}) map[string]interface{} {
	projected := deepCopyMap(node)
	for _, key := range nestedChildKeys {
		delete(projected, key)
	}
	for _, key := range valueCarryingKeys {
		delete(projected, key)
	}
	return projected
}

// stripNested removes the child containers in place (operates on a copy).
func stripNested(node map[string]interface{}) {
	for _, key := range nestedChildKeys {
		delete(node, key)
	}
	switch node["modelType"] {
	case "SubmodelElementCollection", "SubmodelElementList":
		delete(node, "value")
	}
}

// stripBlobValues removes the value of every Blob in the subtree.
func stripBlobValues(node map[string]interface{}) {
	if node["modelType"] == "Blob" {
		delete(node, "value")
	}
	for _, key := range childContainerKeys {
		children, ok := node[key].([]interface{})
		if !ok {
			continue
		}
		for _, child := range children {
			if childMap, ok := child.(map[string]interface{}); ok {
				stripBlobValues(childMap)
			}
		}
	}
	for key := range variableGroupKeys {
		group, ok := node[key].([]interface{})
		if !ok {
			continue
		}
		for _, wrapper := range group {
			wrapperMap, ok := wrapper.(map[string]interface{})
			if !ok {
				continue
			}
			if element, ok := wrapperMap["value"].(map[string]interface{}); ok {
				stripBlobValues(element)
			}
		}
	}
}

func deepCopyMap(node map[string]interface{}) map[string]interface{} {
	copied := make(map[string]interface{}, len(node))
	for key, value := range node {
		copied[key] = deepCopyValue(value)
	}
	return copied
}

func deepCopyValue(value interface{}) interface{} {
	switch typed := value.(type) {
	case map[string]interface{}:
		return deepCopyMap(typed)
	case []interface{}:
		copied := make([]interface{}, len(typed))
		for i, item := range typed {
			copied[i] = deepCopyValue(item)
		}
		return copied
	default:
		return typed
	}
}
