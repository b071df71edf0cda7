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
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titan-aas/titan-go-components/internal/common"
)

func decodeDoc(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var doc map[string]interface{}
	require.NoError(t, jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal([]byte(raw), &doc))
	return doc
}

const testSubmodel = `{
  "modelType":"Submodel","id":"urn:sm:test","idShort":"TechnicalData",
  "submodelElements":[
    {"modelType":"Property","idShort":"MaxTorque","valueType":"xs:double","value":"12.5"},
    {"modelType":"SubmodelElementCollection","idShort":"General","value":[
      {"modelType":"Property","idShort":"Vendor","valueType":"xs:string","value":"ACME"},
      {"modelType":"Blob","idShort":"Logo","contentType":"image/png","value":"aGVsbG8="}
    ]},
    {"modelType":"SubmodelElementList","idShort":"Samples","typeValueListElement":"Property","value":[
      {"modelType":"Property","valueType":"xs:int","value":"1"},
      {"modelType":"Property","valueType":"xs:int","value":"2"}
    ]},
    {"modelType":"Operation","idShort":"Calibrate","inputVariables":[
      {"value":{"modelType":"Property","idShort":"Offset","valueType":"xs:double","value":"0.5"}}
    ]},
    {"modelType":"Entity","idShort":"Drive","entityType":"SelfManagedEntity","statements":[
      {"modelType":"Property","idShort":"Mounted","valueType":"xs:boolean","value":"true"}
    ]}
  ]}`

func TestParseIDShortPath(t *testing.T) {
	tests := []struct {
		path    string
		steps   int
		wantErr bool
	}{
		{"", 0, false},
		{"General", 1, false},
		{"General.Vendor", 2, false},
		{"Samples[0]", 2, false},
		{"Samples[0].Nested[12]", 4, false},
		{"[0]", 0, true},
		{"General.", 0, true},
		{".Vendor", 0, true},
		{"Samples[", 0, true},
		{"Samples[-1]", 0, true},
		{"Samples[x]", 0, true},
		{"1Bad", 0, true},
		{"has space", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			steps, err := ParseIDShortPath(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, common.IsErrBadRequest(err))
				return
			}
			require.NoError(t, err)
			assert.Len(t, steps, tt.steps)
		})
	}
}

func TestNavigate(t *testing.T) {
	doc := decodeDoc(t, testSubmodel)

	tests := []struct {
		name     string
		path     string
		wantType string
		wantID   string
	}{
		{"topLevel", "MaxTorque", "Property", "MaxTorque"},
		{"intoCollection", "General.Vendor", "Property", "Vendor"},
		{"listIndex", "Samples[1]", "Property", ""},
		{"operationVariable", "Calibrate.inputVariables[0]", "Property", "Offset"},
		{"entityStatement", "Drive.Mounted", "Property", "Mounted"},
		{"emptyPathIsRoot", "", "Submodel", "TechnicalData"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := Navigate(doc, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, node["modelType"])
			if tt.wantID != "" {
				assert.Equal(t, tt.wantID, node["idShort"])
			}
		})
	}
}

func TestNavigateNotFound(t *testing.T) {
	doc := decodeDoc(t, testSubmodel)
	for _, path := range []string{"Missing", "General.Missing", "Samples[9]", "MaxTorque.Child", "Calibrate.inputVariables[3]"} {
		_, err := Navigate(doc, path)
		require.Error(t, err, path)
		assert.True(t, common.IsErrNotFound(err), path)
	}
}

func TestLocateReplaceAndRemove(t *testing.T) {
	doc := decodeDoc(t, testSubmodel)

	location, err := Locate(doc, "General.Vendor")
	require.NoError(t, err)
	location.Replace(map[string]interface{}{
		"modelType": "Property", "idShort": "Vendor", "valueType": "xs:string", "value": "Globex",
	})
	node, err := Navigate(doc, "General.Vendor")
	require.NoError(t, err)
	assert.Equal(t, "Globex", node["value"])

	location, err = Locate(doc, "Samples[0]")
	require.NoError(t, err)
	require.NotNil(t, location.Remove)
	location.Remove()
	node, err = Navigate(doc, "Samples[0]")
	require.NoError(t, err)
	assert.Equal(t, "2", node["value"])
}

func TestProjectValue(t *testing.T) {
	doc := decodeDoc(t, testSubmodel)
	mods := DefaultModifiers()
	mods.Content = ContentValue

	value, err := Project(doc, "MaxTorque", "Submodel", "urn:sm:test", mods)
	require.NoError(t, err)
	assert.Equal(t, "12.5", value)

	value, err = Project(doc, "General", "Submodel", "urn:sm:test", mods)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"ACME", "aGVsbG8="}, value)

	value, err = Project(doc, "Drive", "Submodel", "urn:sm:test", mods)
	require.NoError(t, err)
	entityValue, ok := value.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "SelfManagedEntity", entityValue["entityType"])

	// Submodel-level $value is keyed by idShort.
	value, err = Project(doc, "", "Submodel", "urn:sm:test", mods)
	require.NoError(t, err)
	submodelValue, ok := value.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "12.5", submodelValue["MaxTorque"])

	// No value representation for Capability-like variants.
	_, err = Project(doc, "Calibrate", "Submodel", "urn:sm:test", mods)
	require.Error(t, err)
}

func TestProjectReference(t *testing.T) {
	doc := decodeDoc(t, testSubmodel)
	mods := DefaultModifiers()
	mods.Content = ContentReference

	result, err := Project(doc, "General.Vendor", "Submodel", "urn:sm:test", mods)
	require.NoError(t, err)
	reference := result.(map[string]interface{})
	assert.Equal(t, "ModelReference", reference["type"])
	keys := reference["keys"].([]interface{})
	require.Len(t, keys, 3)
	assert.Equal(t, "urn:sm:test", keys[0].(map[string]interface{})["value"])
	assert.Equal(t, "Vendor", keys[2].(map[string]interface{})["value"])
}

func TestProjectPath(t *testing.T) {
	doc := decodeDoc(t, testSubmodel)
	mods := DefaultModifiers()
	mods.Content = ContentPath

	result, err := Project(doc, "General", "Submodel", "urn:sm:test", mods)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"General", "General.Vendor", "General.Logo"}, result)

	result, err = Project(doc, "Samples", "Submodel", "urn:sm:test", mods)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"Samples", "Samples[0]", "Samples[1]"}, result)
}

func TestProjectLevelCore(t *testing.T) {
	doc := decodeDoc(t, testSubmodel)
	mods := DefaultModifiers()
	mods.Level = LevelCore

	result, err := Project(doc, "General", "Submodel", "urn:sm:test", mods)
	require.NoError(t, err)
	projected := result.(map[string]interface{})
	_, hasChildren := projected["value"]
	assert.False(t, hasChildren)

	result, err = Project(doc, "", "Submodel", "urn:sm:test", mods)
	require.NoError(t, err)
	_, hasElements := result.(map[string]interface{})["submodelElements"]
	assert.False(t, hasElements)
}

func TestProjectExtentWithoutBlobValue(t *testing.T) {
	doc := decodeDoc(t, testSubmodel)
	mods := DefaultModifiers()
	mods.Extent = ExtentWithoutBlobValue

	result, err := Project(doc, "General", "Submodel", "urn:sm:test", mods)
	require.NoError(t, err)
	children := result.(map[string]interface{})["value"].([]interface{})
	blob := children[1].(map[string]interface{})
	_, hasValue := blob["value"]
	assert.False(t, hasValue)
	assert.Equal(t, "image/png", blob["contentType"])

	// The input document is never mutated.
	original, err := Navigate(doc, "General.Logo")
	require.NoError(t, err)
	assert.Equal(t, "aGVsbG8=", original["value"])
}

func TestProjectMetadata(t *testing.T) {
	doc := decodeDoc(t, testSubmodel)
	mods := DefaultModifiers()
	mods.Content = ContentMetadata

	result, err := Project(doc, "MaxTorque", "Submodel", "urn:sm:test", mods)
	require.NoError(t, err)
	projected := result.(map[string]interface{})
	assert.Equal(t, "MaxTorque", projected["idShort"])
	assert.Equal(t, "xs:double", projected["valueType"])
	_, hasValue := projected["value"]
	assert.False(t, hasValue)
}

func TestParseModifiers(t *testing.T) {
	mods, err := ParseModifiers("", "", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultModifiers(), mods)

	mods, err = ParseModifiers("value", "core", "withoutBlobValue")
	require.NoError(t, err)
	assert.Equal(t, ContentValue, mods.Content)
	assert.Equal(t, LevelCore, mods.Level)
	assert.Equal(t, ExtentWithoutBlobValue, mods.Extent)

	_, err = ParseModifiers("everything", "", "")
	assert.Error(t, err)
	_, err = ParseModifiers("", "shallow", "")
	assert.Error(t, err)
	_, err = ParseModifiers("", "", "noBlobs")
	assert.Error(t, err)
}

func TestMergePatch(t *testing.T) {
	target := decodeDoc(t, `{"a":"1","b":{"c":"2","d":"3"},"e":"4"}`)
	patch := decodeDoc(t, `{"a":"9","b":{"c":null},"f":"5"}`)

	result := MergePatch(target, patch)
	assert.Equal(t, "9", result["a"])
	assert.Equal(t, "4", result["e"])
	assert.Equal(t, "5", result["f"])
	nested := result["b"].(map[string]interface{})
	_, removed := nested["c"]
	assert.False(t, removed)
	assert.Equal(t, "3", nested["d"])

	// Input untouched.
	assert.Equal(t, "1", target["a"])
}

func TestApplyValuePatch(t *testing.T) {
	doc := decodeDoc(t, testSubmodel)

	element, err := Navigate(doc, "MaxTorque")
	require.NoError(t, err)
	require.NoError(t, ApplyValuePatch(element, "99.9"))
	assert.Equal(t, "99.9", element["value"])
	assert.Error(t, ApplyValuePatch(element, 3.2))

	rangeElement := decodeDoc(t, `{"modelType":"Range","idShort":"W","valueType":"xs:int","min":"1","max":"10"}`)
	require.NoError(t, ApplyValuePatch(rangeElement, map[string]interface{}{"min": "2", "max": "20"}))
	assert.Equal(t, "2", rangeElement["min"])
	assert.Error(t, ApplyValuePatch(rangeElement, map[string]interface{}{"other": "x"}))

	blob, err := Navigate(doc, "General.Logo")
	require.NoError(t, err)
	assert.Error(t, ApplyValuePatch(blob, "bmV3"))

	list, err := Navigate(doc, "Samples")
	require.NoError(t, err)
	require.NoError(t, ApplyValuePatch(list, []interface{}{"5", "6"}))
	first, err := Navigate(doc, "Samples[0]")
	require.NoError(t, err)
	assert.Equal(t, "5", first["value"])
	assert.Error(t, ApplyValuePatch(list, []interface{}{"only-one"}))

	// A collection holding a Blob cannot be value-patched in bulk.
	collection, err := Navigate(doc, "General")
	require.NoError(t, err)
	assert.Error(t, ApplyValuePatch(collection, []interface{}{"Globex", "bmV3"}))
}

func TestElementContainer(t *testing.T) {
	doc := decodeDoc(t, testSubmodel)

	parent, key, err := ElementContainer(doc, "")
	require.NoError(t, err)
	assert.Equal(t, "submodelElements", key)
	assert.Equal(t, doc["id"], parent["id"])

	parent, key, err = ElementContainer(doc, "General")
	require.NoError(t, err)
	assert.Equal(t, "value", key)
	assert.Equal(t, "General", parent["idShort"])

	_, _, err = ElementContainer(doc, "MaxTorque")
	require.Error(t, err)
	assert.True(t, common.IsErrBadRequest(err))
}
