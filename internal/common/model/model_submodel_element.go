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

package model

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var jsonModel = jsoniter.ConfigCompatibleWithStandardLibrary

// SubmodelElement is the closed polymorphic element set of the metamodel,
// discriminated by modelType.
type SubmodelElement interface {
	GetModelType() string
	GetIdShort() string
	GetSemanticID() *Reference

	// ValidateElement checks variant-specific structural constraints.
	// insideList relaxes the idShort requirement for direct list children.
	ValidateElement(insideList bool) error
}

// ElementCommon carries the attributes shared by every SubmodelElement
// variant. It is embedded by each concrete type.
type ElementCommon struct {
	IDShort                 string               `json:"idShort,omitempty"`
	Category                string               `json:"category,omitempty"`
	DisplayName             []LangStringNameType `json:"displayName,omitempty"`
	Description             []LangStringTextType `json:"description,omitempty"`
	ModelType               string               `json:"modelType"`
	SemanticID              *Reference           `json:"semanticId,omitempty"`
	SupplementalSemanticIDs []Reference          `json:"supplementalSemanticIds,omitempty"`
	Qualifiers              []Qualifier          `json:"qualifiers,omitempty"`
}

func (c *ElementCommon) GetModelType() string      { return c.ModelType }
func (c *ElementCommon) GetIdShort() string        { return c.IDShort }
func (c *ElementCommon) GetSemanticID() *Reference { return c.SemanticID }

// validateCommon enforces the idShort rules shared by all variants. Every
// element carries an idShort unless it is a direct child of a
// SubmodelElementList, which addresses children by index.
func (c *ElementCommon) validateCommon(insideList bool) error {
	if c.IDShort == "" {
		if !insideList {
			return newValidationError(c.ModelType + " requires an idShort outside a SubmodelElementList")
		}
		return nil
	}
	return ValidateIDShort(c.IDShort)
}

// commonElementFields are the allowed keys shared by every variant.
var commonElementFields = []string{
	"idShort", "category", "displayName", "description", "modelType",
	"semanticId", "supplementalSemanticIds", "qualifiers",
	"extensions", "embeddedDataSpecifications",
}

func elementFieldSet(extra ...string) map[string]bool {
	return fieldSet(append(extra, commonElementFields...)...)
}

// UnmarshalSubmodelElement creates the concrete SubmodelElement for a JSON
// payload by dispatching on modelType, then decoding the variant under the
// strict unknown-field policy.
func UnmarshalSubmodelElement(data []byte) (SubmodelElement, error) {
	var raw struct {
		ModelType string `json:"modelType"`
	}
	if err := jsonModel.Unmarshal(data, &raw); err != nil {
		return nil, newParseError("SubmodelElement", err)
	}

	var element SubmodelElement
	var allowed map[string]bool
	switch raw.ModelType {
	case "Property":
		element, allowed = &Property{}, propertyFields
	case "MultiLanguageProperty":
		element, allowed = &MultiLanguageProperty{}, multiLanguagePropertyFields
	case "Range":
		element, allowed = &Range{}, rangeFields
	case "Blob":
		element, allowed = &Blob{}, blobFields
	case "File":
		element, allowed = &File{}, fileFields
	case "ReferenceElement":
		element, allowed = &ReferenceElement{}, referenceElementFields
	case "RelationshipElement":
		element, allowed = &RelationshipElement{}, relationshipElementFields
	case "AnnotatedRelationshipElement":
		element, allowed = &AnnotatedRelationshipElement{}, annotatedRelationshipElementFields
	case "Entity":
		element, allowed = &Entity{}, entityFields
	case "Capability":
		element, allowed = &Capability{}, capabilityFields
	case "Operation":
		element, allowed = &Operation{}, operationFields
	case "BasicEventElement":
		element, allowed = &BasicEventElement{}, basicEventElementFields
	case "SubmodelElementCollection":
		element, allowed = &SubmodelElementCollection{}, submodelElementCollectionFields
	case "SubmodelElementList":
		element, allowed = &SubmodelElementList{}, submodelElementListFields
	default:
		return nil, newValidationError(fmt.Sprintf("unsupported modelType: %q", raw.ModelType))
	}

	if err := checkUnknownFields(data, allowed); err != nil {
		return nil, err
	}
	if err := jsonModel.Unmarshal(data, element); err != nil {
		return nil, newParseError(raw.ModelType, err)
	}
	return element, nil
}

// unmarshalElementSlice decodes a JSON array of polymorphic elements.
func unmarshalElementSlice(data []byte) ([]SubmodelElement, error) {
	var items []jsoniter.RawMessage
	if err := jsonModel.Unmarshal(data, &items); err != nil {
		return nil, newParseError("SubmodelElement array", err)
	}
	elements := make([]SubmodelElement, 0, len(items))
	for _, item := range items {
		element, err := UnmarshalSubmodelElement(item)
		if err != nil {
			return nil, err
		}
		elements = append(elements, element)
	}
	return elements, nil
}
