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

import jsoniter "github.com/json-iterator/go"

// AssetAdministrationShell is the top-level identifiable of the AAS metamodel.
type AssetAdministrationShell struct {
	Identifiable
	ModelType        string           `json:"modelType"`
	AssetInformation AssetInformation `json:"assetInformation"`
	Submodels        []Reference      `json:"submodels,omitempty"`
	DerivedFrom      *Reference       `json:"derivedFrom,omitempty"`
}

// ParseAssetAdministrationShell strictly parses and validates an AAS payload.
func ParseAssetAdministrationShell(data []byte) (*AssetAdministrationShell, error) {
	if err := checkUnknownFields(data, aasFields); err != nil {
		return nil, err
	}
	var shell AssetAdministrationShell
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &shell); err != nil {
		return nil, newParseError("AssetAdministrationShell", err)
	}
	if shell.ModelType == "" {
		shell.ModelType = "AssetAdministrationShell"
	}
	if err := shell.Validate(); err != nil {
		return nil, err
	}
	return &shell, nil
}

var aasFields = fieldSet(
	"id", "idShort", "category", "displayName", "description", "administration",
	"modelType", "assetInformation", "submodels", "derivedFrom",
	"extensions", "embeddedDataSpecifications",
)

// Validate checks the metamodel constraints of the shell.
func (a *AssetAdministrationShell) Validate() error {
	if err := validateIdentifier(a.ID); err != nil {
		return err
	}
	if err := validateOptionalIDShort(a.IDShort); err != nil {
		return err
	}
	if err := validateAdministration(a.Administration); err != nil {
		return err
	}
	if a.ModelType != "AssetAdministrationShell" {
		return newValidationError("modelType must be AssetAdministrationShell")
	}
	switch a.AssetInformation.AssetKind {
	case AssetKindType, AssetKindInstance, AssetKindNotSet:
	default:
		return newValidationError("assetInformation.assetKind must be Type, Instance or NotApplicable")
	}
	return nil
}
