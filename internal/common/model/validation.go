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

// Metamodel validation rules shared by every parse path. The limits are the
// ones fixed by IDTA-01001: identifiers up to 2000 characters, idShort up to
// 128 characters matching [a-zA-Z_][a-zA-Z0-9_]*, administration version up
// to 4 characters.
package model

import (
	"encoding/base64"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/titan-aas/titan-go-components/internal/common"
)

const (
	maxIdentifierLength = 2000
	maxIDShortLength    = 128
	maxVersionLength    = 4
)

var idShortPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// BlobReferencePrefix marks externalized blob values inside documents.
const BlobReferencePrefix = "/blobs/"

func newValidationError(message string) error {
	return common.NewErrBadRequest(message)
}

func newParseError(what string, err error) error {
	return common.NewErrBadRequest("failed to parse " + what + ": " + err.Error())
}

func validateIdentifier(id string) error {
	if id == "" {
		return newValidationError("id must not be empty")
	}
	if len(id) > maxIdentifierLength {
		return newValidationError("id exceeds 2000 characters")
	}
	return nil
}

// validateOptionalIDShort accepts an empty idShort; the list-child rule is
// enforced where the parent context is known.
func validateOptionalIDShort(idShort string) error {
	if idShort == "" {
		return nil
	}
	return ValidateIDShort(idShort)
}

// ValidateIDShort enforces the idShort grammar.
func ValidateIDShort(idShort string) error {
	if len(idShort) > maxIDShortLength {
		return newValidationError("idShort exceeds 128 characters")
	}
	if !idShortPattern.MatchString(idShort) {
		return newValidationError("idShort '" + idShort + "' does not match [a-zA-Z_][a-zA-Z0-9_]*")
	}
	return nil
}

func validateAdministration(admin *AdministrativeInformation) error {
	if admin == nil {
		return nil
	}
	if len(admin.Version) > maxVersionLength {
		return newValidationError("administration.version exceeds 4 characters")
	}
	if len(admin.Revision) > maxVersionLength {
		return newValidationError("administration.revision exceeds 4 characters")
	}
	return nil
}

// ValidBlobValue reports whether a Blob/File value is one of the three
// structurally possible forms: plain base64, a base64 data URI, or an
// internal blob reference.
func ValidBlobValue(value string) bool {
	if value == "" {
		return true
	}
	if strings.HasPrefix(value, BlobReferencePrefix) {
		return true
	}
	if strings.HasPrefix(value, "data:") {
		_, ok := DecodeDataURI(value)
		return ok
	}
	_, err := base64.StdEncoding.DecodeString(value)
	return err == nil
}

// DecodeDataURI extracts the base64 body of a data URI. Returns false when
// the URI is not base64-encoded or malformed.
func DecodeDataURI(uri string) ([]byte, bool) {
	idx := strings.Index(uri, ";base64,")
	if !strings.HasPrefix(uri, "data:") || idx < 0 {
		return nil, false
	}
	decoded, err := base64.StdEncoding.DecodeString(uri[idx+len(";base64,"):])
	if err != nil {
		return nil, false
	}
	return decoded, true
}

// fieldSet builds the allowed-key set for the strict parse policy.
func fieldSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}

// checkUnknownFields rejects payloads carrying keys outside the metamodel.
func checkUnknownFields(data []byte, allowed map[string]bool) error {
	var raw map[string]jsoniter.RawMessage
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &raw); err != nil {
		return common.NewErrBadRequest("payload is not a JSON object")
	}
	for key := range raw {
		if !allowed[key] {
			return common.NewErrBadRequest("unknown field '" + key + "'")
		}
	}
	return nil
}
