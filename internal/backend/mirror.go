/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package backend mirrors the local template catalog into a shared
// PostgreSQL database so several machines can search one template library.
package backend

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"promptmanager/internal/catalog"
	applog "promptmanager/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNoDSN is returned by Open when no connection string is configured.
var ErrNoDSN = errors.New("no postgres DSN configured (catalog.pg_dsn or SDPM_PG_DSN)")

// Mirror is a connection to the shared catalog database.
type Mirror struct {
	db  *sql.DB
	log *slog.Logger
}

// Open connects to dsn and checks the connection.
func Open(ctx context.Context, dsn string) (*Mirror, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, ErrNoDSN
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &Mirror{db: db, log: applog.WithComponent("backend")}, nil
}

// Close releases the connection pool.
func (m *Mirror) Close() error { return m.db.Close() }

// Migrate applies pending embedded migrations.
func (m *Mirror) Migrate(ctx context.Context) error {
	return applyMigrations(ctx, m.db, m.log)
}

// Publish upserts records and removes rows of the same folders that are no
// longer present. It returns the number of rows written.
func (m *Mirror) Publish(ctx context.Context, records []catalog.Record) (int, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin publish: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	keep := map[string][]string{}
	for _, r := range records {
		_, err := tx.ExecContext(ctx, `INSERT INTO prompt_templates
			(path, folder, name, top, middle, bottom, negative, combined, default_image, preview, media_count, modified_at, published_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12, now())
			ON CONFLICT (path) DO UPDATE SET folder=EXCLUDED.folder, name=EXCLUDED.name, top=EXCLUDED.top,
				middle=EXCLUDED.middle, bottom=EXCLUDED.bottom, negative=EXCLUDED.negative, combined=EXCLUDED.combined,
				default_image=EXCLUDED.default_image, preview=EXCLUDED.preview, media_count=EXCLUDED.media_count,
				modified_at=EXCLUDED.modified_at, published_at=now()`,
			r.Path, r.Folder, r.Name, r.State.Top, r.State.Middle, r.State.Bottom, r.State.Negative,
			r.Combined, r.DefaultImage, r.Preview, r.MediaCount, r.ModTime)
		if err != nil {
			return 0, fmt.Errorf("publish %s: %w", r.Name, err)
		}
		keep[r.Folder] = append(keep[r.Folder], r.Path)
	}
	for folder, paths := range keep {
		if _, err := tx.ExecContext(ctx, `DELETE FROM prompt_templates WHERE folder = $1 AND NOT (path = ANY($2))`, folder, paths); err != nil {
			return 0, fmt.Errorf("prune %s: %w", folder, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit publish: %w", err)
	}
	m.log.Info("catalog published", slog.Int("templates", len(records)), slog.Int("folders", len(keep)))
	return len(records), nil
}

// Search matches text against the mirrored prompts. Empty text lists the
// most recently published templates.
func (m *Mirror) Search(ctx context.Context, text string, limit int) ([]catalog.Result, error) {
	if limit <= 0 {
		limit = 100
	}
	var (
		q    string
		args []any
	)
	if strings.TrimSpace(text) != "" {
		q = `SELECT path, name, combined, preview,
				COALESCE(ts_headline('simple', combined, plainto_tsquery('simple', $1), 'StartSel=[, StopSel=], MaxFragments=1, MinWords=5, MaxWords=15'), '')
			FROM prompt_templates
			WHERE search_vector @@ plainto_tsquery('simple', $1)
			ORDER BY ts_rank(search_vector, plainto_tsquery('simple', $1)) DESC, name
			LIMIT $2`
		args = []any{text, limit}
	} else {
		q = `SELECT path, name, combined, preview, '' FROM prompt_templates ORDER BY published_at DESC, name LIMIT $1`
		args = []any{limit}
	}
	rows, err := m.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search pg query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []catalog.Result
	for rows.Next() {
		var r catalog.Result
		if err := rows.Scan(&r.Path, &r.Name, &r.Combined, &r.Preview, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PublishFolder mirrors the catalog rows of folder into the database at dsn,
// applying pending migrations first.
func PublishFolder(ctx context.Context, dsn string, cat *catalog.Catalog, folder string) (int, error) {
	m, err := Open(ctx, dsn)
	if err != nil {
		return 0, err
	}
	defer func() { _ = m.Close() }()
	if err := m.Migrate(ctx); err != nil {
		return 0, err
	}
	records, err := cat.Records(ctx, folder)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	return m.Publish(ctx, records)
}

// migrationFiles lists the embedded .sql files in apply order.
func migrationFiles() ([]string, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// applyMigrations applies embedded SQL migrations in filename order and
// records each one in schema_migrations.
func applyMigrations(ctx context.Context, db *sql.DB, l *slog.Logger) error {
	files, err := migrationFiles()
	if err != nil {
		return err
	}
	// dialect=PostgreSQL
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied := map[int64]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, fname := range files {
		ver, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[ver] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		if strings.TrimSpace(string(b)) == "" {
			continue
		}
		l.Info("applying migration", slog.String("file", fname))
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(b)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES ($1, $2)`, ver, fname); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", fname, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", fname, err)
		}
	}
	return nil
}

// parseVersion reads the numeric prefix of a migration file name such as
// 0002_prompt_templates_search.sql.
func parseVersion(name string) (int64, error) {
	base := path.Base(name)
	prefix, _, ok := strings.Cut(base, "_")
	if !ok {
		return 0, errors.New("invalid migration filename: " + name)
	}
	v, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid migration version in %s: %w", name, err)
	}
	return v, nil
}
