/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
)

// Query describes a catalog search. Text uses SQLite FTS5 syntax (terms,
// "phrases", AND/OR/NOT, prefix*). Empty Text lists templates instead.
// Negative widens the match to the negative prompt column.
type Query struct {
	Text     string
	Folder   string
	Negative bool
	Limit    int
	Offset   int
}

// Result is a single match.
type Result struct {
	Path     string
	Name     string
	Combined string
	Preview  string
	Snippet  string
}

// Search runs q against the catalog.
func (c *Catalog) Search(ctx context.Context, q Query) ([]Result, error) {
	var args []any
	var sb strings.Builder
	text := strings.TrimSpace(q.Text)
	if text != "" {
		match := text
		if !q.Negative {
			match = "combined : (" + text + ")"
		}
		sb.WriteString("SELECT t.path, t.name, t.combined, t.preview, snippet(fts_templates, -1, '[', ']', '…', 12)\n")
		sb.WriteString("FROM fts_templates JOIN templates t ON fts_templates.rowid = t.id\n")
		sb.WriteString("WHERE fts_templates MATCH ?\n")
		args = append(args, match)
	} else {
		sb.WriteString("SELECT t.path, t.name, t.combined, t.preview, ''\nFROM templates t\nWHERE 1=1\n")
	}
	if q.Folder != "" {
		abs, err := filepath.Abs(q.Folder)
		if err != nil {
			return nil, err
		}
		sb.WriteString(" AND t.folder = ?\n")
		args = append(args, abs)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := max(q.Offset, 0)
	if text != "" {
		sb.WriteString("ORDER BY rank, t.name\n")
	} else {
		sb.WriteString("ORDER BY t.folder, t.name\n")
	}
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	rows, err := c.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []Result
	for rows.Next() {
		var r Result
		var sn sql.NullString
		if err := rows.Scan(&r.Path, &r.Name, &r.Combined, &r.Preview, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Snippet = sn.String
		out = append(out, r)
	}
	return out, rows.Err()
}
