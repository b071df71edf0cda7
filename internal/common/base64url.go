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

package common

import (
	"encoding/base64"
	"unicode/utf8"
)

// EncodeID encodes an AAS identifier for use in a URL path segment.
// The encoding is Base64URL without padding as specified in RFC 4648 §5.
// An empty identifier encodes to an empty string.
func EncodeID(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

// DecodeID decodes a Base64URL-without-padding path segment back into the
// raw AAS identifier. It rejects empty input, characters outside the
// Base64URL alphabet, impossible lengths (length mod 4 == 1) and byte
// sequences that do not decode to valid UTF-8.
func DecodeID(encoded string) (string, error) {
	if encoded == "" {
		return "", NewErrInvalidBase64URL("empty identifier")
	}
	if len(encoded)%4 == 1 {
		return "", NewErrInvalidBase64URL("invalid identifier length")
	}
	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", NewErrInvalidBase64URL("identifier is not base64url: " + encoded)
	}
	if !utf8.Valid(decoded) {
		return "", NewErrInvalidBase64URL("identifier does not decode to valid UTF-8")
	}
	return string(decoded), nil
}
