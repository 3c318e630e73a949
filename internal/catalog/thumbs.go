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
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"promptmanager/internal/thumbnail"
)

// accessLayout sorts lexically in time order, unlike RFC3339Nano.
const accessLayout = "2006-01-02T15:04:05.000000000Z"

// DefaultThumbCacheBytes caps the thumbnail cache unless configured.
const DefaultThumbCacheBytes int64 = 64 << 20

// SetThumbCacheLimit changes the thumbnail cache cap; n <= 0 disables
// eviction.
func (c *Catalog) SetThumbCacheLimit(n int64) { c.thumbCap = n }

// Thumbnail returns a PNG of mediaPath scaled to fit box. Cached entries
// are reused while the source file's mtime is unchanged.
func (c *Catalog) Thumbnail(ctx context.Context, mediaPath string, box thumbnail.Size) ([]byte, error) {
	fi, err := os.Stat(mediaPath)
	if err != nil {
		return nil, err
	}
	mtime := fi.ModTime().UTC().Format(time.RFC3339Nano)
	if b, err := c.getThumb(ctx, mediaPath, box, mtime); err != nil {
		return nil, err
	} else if b != nil {
		return b, nil
	}
	data, err := thumbnail.Render(mediaPath, box)
	if err != nil {
		return nil, err
	}
	if err := c.putThumb(ctx, mediaPath, box, mtime, data); err != nil {
		return nil, err
	}
	return data, nil
}

// getThumb returns the cached blob and marks it used, or nil when missing
// or stale.
func (c *Catalog) getThumb(ctx context.Context, mediaPath string, box thumbnail.Size, mtime string) ([]byte, error) {
	var blob []byte
	var cached string
	err := c.db.QueryRowContext(ctx, `SELECT blob, mtime FROM thumbs WHERE media_path=? AND w=? AND h=?`, mediaPath, box.W, box.H).Scan(&blob, &cached)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query thumb: %w", err)
	}
	if cached != mtime {
		return nil, nil
	}
	now := time.Now().UTC().Format(accessLayout)
	_, _ = c.db.ExecContext(ctx, `UPDATE thumbs SET last_access=? WHERE media_path=? AND w=? AND h=?`, now, mediaPath, box.W, box.H)
	return blob, nil
}

// putThumb upserts a blob and enforces the cache cap via LRU eviction.
func (c *Catalog) putThumb(ctx context.Context, mediaPath string, box thumbnail.Size, mtime string, blob []byte) error {
	now := time.Now().UTC().Format(accessLayout)
	_, err := c.db.ExecContext(ctx, `INSERT INTO thumbs(media_path, w, h, mtime, blob, size, updated_at, last_access)
		VALUES(?,?,?,?,?,?,?,?)
		ON CONFLICT(media_path, w, h) DO UPDATE SET mtime=excluded.mtime, blob=excluded.blob, size=excluded.size,
			updated_at=excluded.updated_at, last_access=excluded.last_access`,
		mediaPath, box.W, box.H, mtime, blob, len(blob), now, now)
	if err != nil {
		return fmt.Errorf("upsert thumb: %w", err)
	}
	if c.thumbCap > 0 {
		return c.EvictThumbsToFit(ctx, c.thumbCap)
	}
	return nil
}

// EvictThumbsToFit deletes least recently used thumbnails until the total
// size is at most capBytes.
func (c *Catalog) EvictThumbsToFit(ctx context.Context, capBytes int64) error {
	total, err := c.ThumbBytes(ctx)
	if err != nil {
		return err
	}
	if total <= capBytes {
		return nil
	}
	rows, err := c.db.QueryContext(ctx, `SELECT id, size FROM thumbs ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	var victims []any
	cur := total
	for rows.Next() && cur > capBytes {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, id)
		cur -= sz
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// the cursor must be closed before writing on a single connection
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	q := `DELETE FROM thumbs WHERE id IN (` + strings.TrimSuffix(strings.Repeat("?,", len(victims)), ",") + `)`
	if _, err := c.db.ExecContext(ctx, q, victims...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	return nil
}

// ThumbBytes returns the total size of cached thumbnails.
func (c *Catalog) ThumbBytes(ctx context.Context) (int64, error) {
	var total int64
	if err := c.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM thumbs`).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum thumbs size: %w", err)
	}
	return total, nil
}
