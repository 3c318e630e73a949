/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package catalog maintains a disposable SQLite index of template folders:
// parsed prompts with full-text search, preview choices and a thumbnail
// cache with LRU eviction. Everything in it can be rebuilt from the
// template files.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "promptmanager/internal/log"
	"promptmanager/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// schemaVersion tracks the catalog schema. Bump it and add a step to
// runMigrations for every change.
const schemaVersion = 2

// Catalog is an open catalog database.
type Catalog struct {
	db       *sql.DB
	path     string
	log      *slog.Logger
	thumbCap int64
}

// Open creates or opens the catalog at path, enables WAL and brings the
// schema up to date.
func Open(path string) (*Catalog, error) {
	l := applog.WithOperation(applog.WithComponent("catalog"), "open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("catalog path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	for _, step := range []func(context.Context, *sql.DB) error{ensureMetaAndVersion, ensureSchema, runMigrations} {
		if err := step(ctx, db); err != nil {
			_ = db.Close()
			l.Error("prepare catalog failed", slog.Any("err", err))
			return nil, err
		}
	}
	l.Debug("catalog ready")
	return &Catalog{db: db, path: path, log: applog.WithComponent("catalog"), thumbCap: DefaultThumbCacheBytes}, nil
}

// OpenOrRecreate opens the catalog and, if the file is unreadable or fails
// an integrity check, moves it aside and starts a fresh one. The bool
// reports whether that happened.
func OpenOrRecreate(ctx context.Context, path string) (*Catalog, bool, error) {
	c, err := Open(path)
	if err == nil {
		if c.healthy(ctx) {
			return c, false, nil
		}
		_ = c.Close()
	}
	applog.WithComponent("catalog").Warn("catalog unusable, recreating", slog.String("path", path), slog.Any("err", err))
	backupFile(path)
	for _, suffix := range []string{"", "-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}
	c, err = Open(path)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

func (c *Catalog) healthy(ctx context.Context) bool {
	var chk string
	if err := c.db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.EqualFold(strings.TrimSpace(chk), "ok") {
		return false
	}
	_, err := c.db.ExecContext(ctx, `SELECT 1 FROM templates LIMIT 1;`)
	return err == nil
}

// backupFile copies a catalog file to a timestamped .bak next to it.
func backupFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	bak := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102-150405"))
	_ = os.WriteFile(bak, data, 0o644)
}

// Path returns the database file location.
func (c *Catalog) Path() string { return c.path }

// Close releases the database.
func (c *Catalog) Close() error { return c.db.Close() }

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// fresh database: start at 1 so every migration step runs
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, version.String(), now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, version.String(), now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS templates (
			id            INTEGER PRIMARY KEY,
			path          TEXT NOT NULL UNIQUE,
			folder        TEXT NOT NULL,
			name          TEXT NOT NULL,
			top           TEXT NOT NULL DEFAULT '',
			middle        TEXT NOT NULL DEFAULT '',
			bottom        TEXT NOT NULL DEFAULT '',
			negative      TEXT NOT NULL DEFAULT '',
			combined      TEXT NOT NULL DEFAULT '',
			default_image TEXT NOT NULL DEFAULT '',
			preview       TEXT NOT NULL DEFAULT '',
			media_count   INTEGER NOT NULL DEFAULT 0,
			mtime         TEXT NOT NULL,
			indexed_at    TEXT NOT NULL
		);`,
		// FTS over the joined positive prompt and the negative prompt, kept in
		// sync with templates by the triggers below.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_templates USING fts5(
			combined,
			negative,
			content='templates',
			content_rowid='id',
			tokenize = 'unicode61'
		);`,
		`CREATE TABLE IF NOT EXISTS thumbs (
			id          INTEGER PRIMARY KEY,
			media_path  TEXT    NOT NULL,
			w           INTEGER NOT NULL,
			h           INTEGER NOT NULL,
			mtime       TEXT    NOT NULL,
			blob        BLOB    NOT NULL,
			size        INTEGER NOT NULL DEFAULT 0,
			updated_at  TEXT    NOT NULL,
			last_access TEXT
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_thumbs_variant ON thumbs(media_path, w, h);`,
		`CREATE INDEX IF NOT EXISTS idx_thumbs_access ON thumbs(last_access);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure catalog schema: %w", err)
		}
	}
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS templates_ai AFTER INSERT ON templates BEGIN
			INSERT INTO fts_templates(rowid, combined, negative) VALUES (new.id, new.combined, new.negative);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS templates_ad AFTER DELETE ON templates BEGIN
			INSERT INTO fts_templates(fts_templates, rowid, combined, negative) VALUES ('delete', old.id, old.combined, old.negative);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS templates_au AFTER UPDATE ON templates BEGIN
			INSERT INTO fts_templates(fts_templates, rowid, combined, negative) VALUES ('delete', old.id, old.combined, old.negative);
			INSERT INTO fts_templates(rowid, combined, negative) VALUES (new.id, new.combined, new.negative);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema steps up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{`CREATE INDEX IF NOT EXISTS idx_templates_folder ON templates(folder);`}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// SchemaVersion returns the schema version recorded in the database.
func (c *Catalog) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := c.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}
