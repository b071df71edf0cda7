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

// Canonicalization produces the deterministic byte form of an entity. The
// canonical bytes are the only input to ETag derivation and the on-disk
// doc_bytes column, so the transformation must be total and idempotent:
// canonicalizing the output again yields the identical byte sequence.
package common

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
)

// Canonicalize parses a JSON document and re-serializes it in canonical form:
// object keys sorted lexically by code point, no insignificant whitespace,
// null-valued object members dropped, integers emitted literally and floats
// with their shortest round-trip representation.
func Canonicalize(doc []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return nil, NewErrBadRequest("invalid JSON document: " + err.Error())
	}
	if dec.More() {
		return nil, NewErrBadRequest("trailing data after JSON document")
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CanonicalizeValue canonicalizes an already-decoded JSON tree.
func CanonicalizeValue(value interface{}) ([]byte, error) {
	// Round-trip through encoding/json so that typed structs, json.RawMessage
	// and plain maps all normalize to the same tree shape.
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, NewInternalServerError("canonicalize: " + err.Error())
	}
	return Canonicalize(raw)
}

// ETagOf derives the strong entity tag: hex of the first 16 bytes of the
// SHA-256 over the canonical bytes.
func ETagOf(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:16])
}

func writeCanonical(buf *bytes.Buffer, value interface{}) error {
	switch v := value.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		writeCanonicalString(buf, v)
	case json.Number:
		writeCanonicalNumber(buf, v)
	case float64:
		// Only reachable via CanonicalizeValue round-trips.
		writeCanonicalNumber(buf, json.Number(strconv.FormatFloat(v, 'g', -1, 64)))
	case []interface{}:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for key, item := range v {
			if item == nil {
				// Optional null members carry no information in the AAS
				// serialization and must not influence the ETag.
				continue
			}
			keys = append(keys, key)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, key)
			buf.WriteByte(':')
			if err := writeCanonical(buf, v[key]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return NewInternalServerError("canonicalize: unsupported value type")
	}
	return nil
}

func writeCanonicalString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u`)
				const hexdigits = "0123456789abcdef"
				buf.WriteByte('0')
				buf.WriteByte('0')
				buf.WriteByte(hexdigits[(r>>4)&0xf])
				buf.WriteByte(hexdigits[r&0xf])
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

func writeCanonicalNumber(buf *bytes.Buffer, n json.Number) {
	raw := n.String()
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		buf.WriteString(strconv.FormatInt(i, 10))
		return
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		return
	}
	// Out-of-range integers keep their literal form.
	buf.WriteString(raw)
}
