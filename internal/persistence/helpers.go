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

package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/titan-aas/titan-go-components/internal/common"
	"github.com/titan-aas/titan-go-components/internal/common/model"
)

var jsonStd = jsoniter.ConfigCompatibleWithStandardLibrary

// Entry is one (canonical bytes, ETag) tuple served by the fast GET path.
type Entry struct {
	Bytes []byte
	ETag  string
}

// Page is one keyset-paginated listing result.
type Page struct {
	Items      []Entry
	NextCursor string
}

// checkIfMatch enforces the conditional-write contract: a missing or
// wildcard If-Match always passes; anything else must equal the current ETag.
func checkIfMatch(ifMatch, currentETag string) error {
	if ifMatch == "" || ifMatch == "*" {
		return nil
	}
	if trimQuotes(ifMatch) != currentETag {
		return common.NewErrPreconditionFailed("If-Match '" + ifMatch + "' does not match current ETag")
	}
	return nil
}

func trimQuotes(etag string) string {
	if len(etag) >= 2 && etag[0] == '"' && etag[len(etag)-1] == '"' {
		return etag[1 : len(etag)-1]
	}
	return etag
}

// getEntry reads the canonical pair of one entity.
func (s *Store) getEntry(ctx context.Context, table, tenant, id string) (Entry, error) {
	var entry Entry
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT doc_bytes, etag FROM %s WHERE tenant_id=$1 AND id=$2`, table),
		tenant, id,
	).Scan(&entry.Bytes, &entry.ETag)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, common.NewErrNotFound("no entity with id '" + id + "'")
	}
	return entry, err
}

// currentETagForUpdate locks the row and reads its ETag inside a transaction.
func currentETagForUpdate(ctx context.Context, tx *sql.Tx, table, tenant, id string) (string, error) {
	var etag string
	err := tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT etag FROM %s WHERE tenant_id=$1 AND id=$2 FOR UPDATE`, table),
		tenant, id,
	).Scan(&etag)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.NewErrNotFound("no entity with id '" + id + "'")
	}
	return etag, err
}

// listEntries pages a table in (created_at, id) order. extraWhere is ANDed
// into the filter with positional parameters continuing after the built-ins.
func (s *Store) listEntries(ctx context.Context, table, tenant, cursor string, limit int, extraWhere string, extraArgs ...interface{}) (Page, error) {
	limit = common.ClampLimit(limit)

	query := fmt.Sprintf(`SELECT doc_bytes, etag, created_at, id FROM %s WHERE tenant_id=$1`, table)
	args := []interface{}{tenant}

	if cursor != "" {
		after, err := common.DecodeCursor(cursor)
		if err != nil {
			return Page{}, err
		}
		query += fmt.Sprintf(` AND (created_at, id) > ($%d, $%d)`, len(args)+1, len(args)+2)
		args = append(args, time.Unix(0, after.CreatedAtUnixNano).UTC(), after.ID)
	}
	if extraWhere != "" {
		// extraWhere carries %s verbs for its positional parameters.
		query += " AND " + fmt.Sprintf(extraWhere, placeholders(len(args)+1, len(extraArgs))...)
		args = append(args, extraArgs...)
	}
	query += fmt.Sprintf(` ORDER BY created_at, id LIMIT %d`, limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Page{}, err
	}
	defer rows.Close()

	var page Page
	var lastCreated time.Time
	var lastID string
	for rows.Next() {
		var entry Entry
		var createdAt time.Time
		var id string
		if err := rows.Scan(&entry.Bytes, &entry.ETag, &createdAt, &id); err != nil {
			return Page{}, err
		}
		if len(page.Items) == limit {
			page.NextCursor = common.EncodeCursor(common.Cursor{
				CreatedAtUnixNano: lastCreated.UnixNano(),
				ID:                lastID,
			})
			return page, rows.Err()
		}
		page.Items = append(page.Items, entry)
		lastCreated, lastID = createdAt, id
	}
	return page, rows.Err()
}

func placeholders(start, count int) []interface{} {
	out := make([]interface{}, count)
	for i := 0; i < count; i++ {
		out[i] = fmt.Sprintf("$%d", start+i)
	}
	return out
}

// decodeDoc parses canonical bytes back into the generic tree the projection
// engine operates on.
func decodeDoc(bytes []byte) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := jsonStd.Unmarshal(bytes, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// publish hands an event to the bus after commit. A failure never fails the
// request; the database stays authoritative.
func publish(ctx context.Context, bus EventPublisher, event model.Event) {
	if bus == nil {
		return
	}
	if err := bus.Publish(ctx, event); err != nil {
		log.Error("publishing "+string(event.EventType)+" event for "+event.Identifier, err)
	}
}
