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
	"fmt"

	"github.com/titan-aas/titan-go-components/internal/common"
)

// MergePatch applies an RFC 7386 merge-patch to a document and returns the
// patched copy. null members remove keys; objects merge recursively; every
// other value replaces.
func MergePatch(target map[string]interface{}, patch map[string]interface{}) map[string]interface{} {
	result := deepCopyMap(target)
	for key, patchValue := range patch {
		if patchValue == nil {
			delete(result, key)
			continue
		}
		patchMap, patchIsMap := patchValue.(map[string]interface{})
		targetMap, targetIsMap := result[key].(map[string]interface{})
		if patchIsMap && targetIsMap {
			result[key] = MergePatch(targetMap, patchMap)
			continue
		}
		result[key] = deepCopyValue(patchValue)
	}
	return result
}

// ApplyValuePatch applies a content=value body to an element in place. The
// accepted shape depends on the variant; Blob and File values must go
// through the attachment endpoint.
func ApplyValuePatch(element map[string]interface{}, value interface{}) error {
	switch element["modelType"] {
	case "Property":
		text, ok := value.(string)
		if !ok {
			return valuePatchError("Property value must be a string")
		}
		element["value"] = text
		return nil

	case "MultiLanguageProperty":
		strings, ok := value.([]interface{})
		if !ok {
			return valuePatchError("MultiLanguageProperty value must be a language-string array")
		}
		element["value"] = deepCopyValue(strings)
		return nil

	case "Range":
		bounds, ok := value.(map[string]interface{})
		if !ok {
			return valuePatchError("Range value must be an object with min and max")
		}
		for key, bound := range bounds {
			if key != "min" && key != "max" {
				return valuePatchError("Range value accepts only min and max")
			}
			text, ok := bound.(string)
			if !ok {
				return valuePatchError("Range bounds must be strings")
			}
			element[key] = text
		}
		return nil

	case "ReferenceElement":
		reference, ok := value.(map[string]interface{})
		if !ok {
			return valuePatchError("ReferenceElement value must be a reference object")
		}
		element["value"] = deepCopyValue(reference)
		return nil

	case "Blob", "File":
		return valuePatchError(fmt.Sprintf("%s values are updated through the attachment endpoint", element["modelType"]))

	case "SubmodelElementCollection", "SubmodelElementList":
		values, ok := value.([]interface{})
		if !ok {
			return valuePatchError("collection value must be an array of nested values in order")
		}
		children, _ := element["value"].([]interface{})
		valueIndex := 0
		for _, child := range children {
			childMap, ok := child.(map[string]interface{})
			if !ok {
				continue
			}
			if _, hasValue := ExtractValue(childMap); !hasValue {
				continue
			}
			if valueIndex >= len(values) {
				return valuePatchError("collection value has fewer entries than value-bearing children")
			}
			if err := ApplyValuePatch(childMap, values[valueIndex]); err != nil {
				return err
			}
			valueIndex++
		}
		if valueIndex != len(values) {
			return valuePatchError("collection value has more entries than value-bearing children")
		}
		return nil

	default:
		return valuePatchError(fmt.Sprintf("%v has no value representation", element["modelType"]))
	}
}

func valuePatchError(message string) error {
	return common.NewErrBadRequest(message)
}
