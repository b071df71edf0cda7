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

// Container keys whose entries are submodel elements and are crossed by name
// steps. "value" only counts when it actually holds an element slice, which
// distinguishes collection children from a Property's scalar value.
var childContainerKeys = []string{"submodelElements", "value", "statements", "annotations"}

// Operation-variable groups navigable via the synthetic segments
// inputVariables[i] etc. Each entry is a {value: element} wrapper.
var variableGroupKeys = map[string]bool{
	"inputVariables":    true,
	"outputVariables":   true,
	"inoutputVariables": true,
}

// Location addresses an element found inside a document, together with the
// hooks needed to mutate it in place. Replace swaps the element; Remove
// detaches it from its container (nil when the element sits inside an
// operation variable, which cannot shrink).
type Location struct {
	Element map[string]interface{}
	Path    string
	Replace func(newElement map[string]interface{})
	Remove  func()
}

// Navigate resolves an idShortPath inside a document and returns the
// addressed subtree. The empty path returns the document itself.
func Navigate(root map[string]interface{}, path string) (map[string]interface{}, error) {
	location, err := Locate(root, path)
	if err != nil {
		return nil, err
	}
	return location.Element, nil
}

// Locate resolves an idShortPath and returns the element with its mutation
// hooks. Mutation hooks on the root document are nil.
func Locate(root map[string]interface{}, path string) (*Location, error) {
	steps, err := ParseIDShortPath(path)
	if err != nil {
		return nil, err
	}

	location := &Location{Element: root, Path: path}
	current := root
	var pendingVariables []interface{}

	for stepIndex, step := range steps {
		if pendingVariables != nil {
			// Only an index step can follow a variable-group segment.
			if !step.IsIndex {
				return nil, notFound(path)
			}
			if step.Index >= len(pendingVariables) {
				return nil, notFound(path)
			}
			wrapper, ok := pendingVariables[step.Index].(map[string]interface{})
			if !ok {
				return nil, notFound(path)
			}
			element, ok := wrapper["value"].(map[string]interface{})
			if !ok {
				return nil, notFound(path)
			}
			current = element
			location = &Location{
				Element: element,
				Replace: func(newElement map[string]interface{}) { wrapper["value"] = newElement },
			}
			pendingVariables = nil
			continue
		}

		if step.IsIndex {
			parent, key, children := listChildren(current)
			if children == nil || step.Index >= len(children) {
				return nil, notFound(path)
			}
			element, ok := children[step.Index].(map[string]interface{})
			if !ok {
				return nil, notFound(path)
			}
			index := step.Index
			current = element
			location = &Location{
				Element: element,
				Replace: func(newElement map[string]interface{}) { children[index] = newElement },
				Remove: func() {
					parent[key] = append(append([]interface{}{}, children[:index]...), children[index+1:]...)
				},
			}
			continue
		}

		// Name step: a variable-group segment exposes the wrapper slice for
		// the following index step.
		if variableGroupKeys[step.Name] {
			if group, ok := current[step.Name].([]interface{}); ok {
				if stepIndex == len(steps)-1 {
					return nil, notFound(path)
				}
				pendingVariables = group
				continue
			}
		}

		parent, key, children, index := findChild(current, step.Name)
		if children == nil {
			return nil, notFound(path)
		}
		element := children[index].(map[string]interface{})
		childIndex := index
		current = element
		location = &Location{
			Element: element,
			Replace: func(newElement map[string]interface{}) { children[childIndex] = newElement },
			Remove: func() {
				parent[key] = append(append([]interface{}{}, children[:childIndex]...), children[childIndex+1:]...)
			},
		}
	}

	if pendingVariables != nil {
		return nil, notFound(path)
	}
	location.Path = path
	return location, nil
}

func notFound(path string) error {
	return common.NewErrNotFound("no submodel element at idShortPath '" + path + "'")
}

// listChildren returns the element slice an index step selects from:
// the "value" slice of a SubmodelElementList (or collection).
func listChildren(node map[string]interface{}) (map[string]interface{}, string, []interface{}) {
	if children, ok := node["value"].([]interface{}); ok {
		return node, "value", children
	}
	return nil, "", nil
}

// findChild searches the node's element containers for a child with the
// given idShort. Returns the owning node, the container key, the slice and
// the position, or a nil slice when absent.
func findChild(node map[string]interface{}, idShort string) (map[string]interface{}, string, []interface{}, int) {
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
			if childMap["idShort"] == idShort {
				return node, key, children, i
			}
		}
	}
	return nil, "", nil, 0
}

// ElementContainer resolves the container an element would be inserted into:
// the submodelElements of the document itself for an empty parent path, or
// the value slice of the addressed collection/list. Returns the owning node
// and container key; the caller appends and reassigns.
func ElementContainer(root map[string]interface{}, parentPath string) (map[string]interface{}, string, error) {
	if parentPath == "" {
		return root, "submodelElements", nil
	}
	parent, err := Navigate(root, parentPath)
	if err != nil {
		return nil, "", err
	}
	switch parent["modelType"] {
	case "SubmodelElementCollection", "SubmodelElementList":
		return parent, "value", nil
	default:
		return nil, "", common.NewErrBadRequest("element at '" + parentPath + "' cannot contain children")
	}
}
