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
	"strconv"
	"strings"
)

const (
	// DefaultPageLimit applies when the client sends no limit parameter.
	DefaultPageLimit = 100
	// MaxPageLimit caps client-requested page sizes.
	MaxPageLimit = 1000
)

// Cursor is the decoded keyset position of a paginated listing. Listings are
// stably ordered by (created_at, id), so a cursor pins both.
type Cursor struct {
	CreatedAtUnixNano int64
	ID                string
}

// EncodeCursor renders an opaque cursor token for the client.
func EncodeCursor(c Cursor) string {
	raw := strconv.FormatInt(c.CreatedAtUnixNano, 10) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses an opaque cursor token. An empty token is the start of
// the listing.
func DecodeCursor(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, NewErrBadRequest("malformed cursor")
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return Cursor{}, NewErrBadRequest("malformed cursor")
	}
	ts, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Cursor{}, NewErrBadRequest("malformed cursor")
	}
	return Cursor{CreatedAtUnixNano: ts, ID: parts[1]}, nil
}

// ClampLimit normalizes a client-supplied limit to the allowed range.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageLimit
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}

// PagingMetadata is the paging block of IDTA paged results.
type PagingMetadata struct {
	Cursor string `json:"cursor,omitempty"`
}
