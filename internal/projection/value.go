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

// ExtractValue produces the content=value representation of an element or a
// whole Submodel document. Variants without a value notion (Capability,
// Operation, BasicEventElement, relationships) report ok=false.
func ExtractValue(node map[string]interface{}) (interface{}, bool) {
	// A Submodel document: map of top-level element values keyed by idShort.
	if _, isSubmodel := node["submodelElements"]; node["modelType"] == "Submodel" || isSubmodel {
		values := map[string]interface{}{}
		children, _ := node["submodelElements"].([]interface{})
		for _, child := range children {
			childMap, ok := child.(map[string]interface{})
			if !ok {
				continue
			}
			idShort, _ := childMap["idShort"].(string)
			if value, ok := ExtractValue(childMap); ok && idShort != "" {
				values[idShort] = value
			}
		}
		return values, true
	}

	switch node["modelType"] {
	case "Property", "Blob", "File", "ReferenceElement":
		return deepCopyValue(node["value"]), true
	case "MultiLanguageProperty":
		if value, ok := node["value"]; ok {
			return deepCopyValue(value), true
		}
		return []interface{}{}, true
	case "Range":
		rangeValue := map[string]interface{}{}
		if min, ok := node["min"]; ok {
			rangeValue["min"] = deepCopyValue(min)
		}
		if max, ok := node["max"]; ok {
			rangeValue["max"] = deepCopyValue(max)
		}
		return rangeValue, true
	case "Entity":
		entityValue := map[string]interface{}{}
		for _, key := range []string{"entityType", "globalAssetId", "specificAssetIds"} {
			if value, ok := node[key]; ok {
				entityValue[key] = deepCopyValue(value)
			}
		}
		return entityValue, true
	case "SubmodelElementCollection", "SubmodelElementList":
		values := []interface{}{}
		children, _ := node["value"].([]interface{})
		for _, child := range children {
			childMap, ok := child.(map[string]interface{})
			if !ok {
				continue
			}
			if value, ok := ExtractValue(childMap); ok {
				values = append(values, value)
			}
		}
		return values, true
	default:
		return nil, false
	}
}
