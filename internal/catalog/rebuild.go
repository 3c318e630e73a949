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
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"promptmanager/internal/batch"
	"promptmanager/internal/domain"
	"promptmanager/internal/storage"
	"promptmanager/internal/telemetry"
)

// Record is one indexed template.
type Record struct {
	Path         string
	Folder       string
	Name         string
	State        domain.PromptState
	Combined     string
	DefaultImage string
	Preview      string
	MediaCount   int
	ModTime      time.Time
}

// RebuildStats summarizes a folder rebuild.
type RebuildStats struct {
	Indexed int
	Skipped int
	Elapsed time.Duration
}

// Rebuild replaces the catalog entries of folder with freshly parsed
// templates. Templates that fail to load are skipped and counted. Up to
// workers templates are parsed at once.
func (c *Catalog) Rebuild(ctx context.Context, folder string, workers int) (RebuildStats, error) {
	start := time.Now()
	abs, err := filepath.Abs(folder)
	if err != nil {
		return RebuildStats{}, err
	}
	paths, err := storage.ListTemplates(abs)
	if err != nil {
		return RebuildStats{}, fmt.Errorf("list templates: %w", err)
	}
	if workers <= 0 {
		workers = 4
	}

	records := make([]*Record, len(paths))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, p := range paths {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			rec, err := readRecord(p)
			if err != nil {
				c.log.Warn("skipping template", slog.String("path", p), slog.Any("err", err))
				return nil
			}
			records[i] = rec
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return RebuildStats{}, err
	}

	stats := RebuildStats{}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM templates WHERE folder=?`, abs); err != nil {
		return stats, fmt.Errorf("clear folder: %w", err)
	}
	for _, rec := range records {
		if rec == nil {
			stats.Skipped++
			continue
		}
		if err := insertRecord(ctx, tx, rec); err != nil {
			return stats, err
		}
		stats.Indexed++
	}
	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("commit rebuild: %w", err)
	}
	_, _ = c.db.ExecContext(ctx, `INSERT INTO fts_templates(fts_templates) VALUES('optimize')`)
	stats.Elapsed = time.Since(start)
	c.log.Info("catalog rebuilt", slog.String("folder", abs), slog.Int("indexed", stats.Indexed), slog.Int("skipped", stats.Skipped), slog.Duration("elapsed", stats.Elapsed))
	telemetry.Event(telemetry.EventCatalogRebuilt, map[string]any{"indexed": stats.Indexed, "skipped": stats.Skipped})
	return stats, nil
}

func readRecord(path string) (*Record, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	doc, err := storage.ReadDocument(path)
	if err != nil {
		return nil, err
	}
	st := doc.State()
	folder := filepath.Dir(path)
	name := filepath.Base(path)
	stem := name[:len(name)-len(filepath.Ext(name))]
	media := storage.FindRelatedMedia(folder, stem).Paths()
	return &Record{
		Path:         path,
		Folder:       folder,
		Name:         name,
		State:        st,
		Combined:     batch.Join(st.Top, st.Middle, st.Bottom),
		DefaultImage: doc.DefaultImage,
		Preview:      storage.PickPreview(path, media),
		MediaCount:   len(media),
		ModTime:      fi.ModTime(),
	}, nil
}

func insertRecord(ctx context.Context, tx *sql.Tx, r *Record) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO templates(path, folder, name, top, middle, bottom, negative, combined, default_image, preview, media_count, mtime, indexed_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(path) DO UPDATE SET folder=excluded.folder, name=excluded.name, top=excluded.top, middle=excluded.middle,
			bottom=excluded.bottom, negative=excluded.negative, combined=excluded.combined, default_image=excluded.default_image,
			preview=excluded.preview, media_count=excluded.media_count, mtime=excluded.mtime, indexed_at=excluded.indexed_at`,
		r.Path, r.Folder, r.Name, r.State.Top, r.State.Middle, r.State.Bottom, r.State.Negative, r.Combined,
		r.DefaultImage, r.Preview, r.MediaCount, r.ModTime.UTC().Format(time.RFC3339Nano), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert %s: %w", r.Name, err)
	}
	return nil
}

// Records returns every indexed template, optionally limited to folder,
// ordered by folder and name.
func (c *Catalog) Records(ctx context.Context, folder string) ([]Record, error) {
	q := `SELECT path, folder, name, top, middle, bottom, negative, combined, default_image, preview, media_count, mtime FROM templates`
	var args []any
	if folder != "" {
		abs, err := filepath.Abs(folder)
		if err != nil {
			return nil, err
		}
		q += ` WHERE folder=?`
		args = append(args, abs)
	}
	q += ` ORDER BY folder, name`
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var r Record
		var mtime string
		if err := rows.Scan(&r.Path, &r.Folder, &r.Name, &r.State.Top, &r.State.Middle, &r.State.Bottom, &r.State.Negative,
			&r.Combined, &r.DefaultImage, &r.Preview, &r.MediaCount, &mtime); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.ModTime, _ = time.Parse(time.RFC3339Nano, mtime)
		out = append(out, r)
	}
	return out, rows.Err()
}
