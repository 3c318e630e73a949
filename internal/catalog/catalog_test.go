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
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"promptmanager/internal/domain"
	"promptmanager/internal/storage"
	"promptmanager/internal/thumbnail"
)

func openTest(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache", "catalog.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func saveTemplate(t *testing.T, dir, name string, st domain.PromptState) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if _, err := storage.Save(p, st, nil); err != nil {
		t.Fatalf("save %s: %v", name, err)
	}
	return p
}

func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
}

func TestOpenMigratesToCurrentSchema(t *testing.T) {
	c := openTest(t)
	v, err := c.SchemaVersion(context.Background())
	if err != nil || v != schemaVersion {
		t.Fatalf("schema version = %d, %v", v, err)
	}
	if _, err := Open(""); err == nil {
		t.Fatalf("empty path must be rejected")
	}
}

func TestRebuildAndSearch(t *testing.T) {
	ctx := context.Background()
	c := openTest(t)
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "cat_1.png"), 4, 4)
	saveTemplate(t, dir, "cat.json", domain.PromptState{Top: "masterpiece", Middle: "a ginger cat", Negative: "blurry"})
	saveTemplate(t, dir, "dog.json", domain.PromptState{Middle: "a sleepy dog", Bottom: "film grain", Negative: "cat"})
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}

	stats, err := c.Rebuild(ctx, dir, 2)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if stats.Indexed != 2 || stats.Skipped != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	res, err := c.Search(ctx, Query{Text: "cat"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].Name != "cat.json" {
		t.Fatalf("positive-only search = %+v", res)
	}
	if filepath.Base(res[0].Preview) != "cat_1.png" {
		t.Fatalf("preview = %q", res[0].Preview)
	}
	res, err = c.Search(ctx, Query{Text: "cat", Negative: true})
	if err != nil || len(res) != 2 {
		t.Fatalf("search incl. negative = %+v, %v", res, err)
	}
	res, err = c.Search(ctx, Query{Folder: dir})
	if err != nil || len(res) != 2 || res[0].Name != "cat.json" {
		t.Fatalf("listing = %+v, %v", res, err)
	}

	// rebuilding after a delete drops the stale row
	if err := os.Remove(filepath.Join(dir, "dog.json")); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Rebuild(ctx, dir, 0); err != nil {
		t.Fatal(err)
	}
	recs, err := c.Records(ctx, dir)
	if err != nil || len(recs) != 1 {
		t.Fatalf("records after delete = %+v, %v", recs, err)
	}
	if recs[0].Combined != "masterpiece, __________ ,a ginger cat" || recs[0].MediaCount != 1 || recs[0].ModTime.IsZero() {
		t.Fatalf("unexpected record %+v", recs[0])
	}
}

func TestRebuildHonoursCancellation(t *testing.T) {
	c := openTest(t)
	dir := t.TempDir()
	saveTemplate(t, dir, "a.json", domain.PromptState{Top: "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Rebuild(ctx, dir, 1); err == nil {
		t.Fatalf("expected context error")
	}
	if _, err := c.Rebuild(context.Background(), filepath.Join(dir, "missing"), 1); err == nil {
		t.Fatalf("expected error for missing folder")
	}
}

func TestThumbnailCacheAndEviction(t *testing.T) {
	ctx := context.Background()
	c := openTest(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	writeImage(t, a, 400, 300)
	writeImage(t, b, 400, 300)

	first, err := c.Thumbnail(ctx, a, thumbnail.Chooser)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	again, err := c.Thumbnail(ctx, a, thumbnail.Chooser)
	if err != nil || string(again) != string(first) {
		t.Fatalf("cached thumbnail differs: %v", err)
	}
	total, _ := c.ThumbBytes(ctx)
	if total != int64(len(first)) {
		t.Fatalf("ThumbBytes = %d, want %d", total, len(first))
	}

	time.Sleep(5 * time.Millisecond)
	c.SetThumbCacheLimit(int64(len(first)) + 1)
	if _, err := c.Thumbnail(ctx, b, thumbnail.Chooser); err != nil {
		t.Fatal(err)
	}
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM thumbs WHERE media_path=?`, a).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("least recently used thumbnail should be evicted")
	}
	if _, err := c.Thumbnail(ctx, filepath.Join(dir, "clip.mp4"), thumbnail.Chooser); err == nil {
		t.Fatalf("missing video should fail")
	}
}

func TestOpenOrRecreateOnCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.sqlite")
	if err := os.WriteFile(path, []byte("THIS IS NOT SQLITE"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, recreated, err := OpenOrRecreate(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenOrRecreate: %v", err)
	}
	defer c.Close()
	if !recreated {
		t.Fatalf("expected the corrupt file to be replaced")
	}
	matches, _ := filepath.Glob(path + ".*.bak")
	if len(matches) == 0 {
		t.Fatalf("expected a backup of the corrupt file")
	}
	c2, recreated, err := OpenOrRecreate(context.Background(), filepath.Join(t.TempDir(), "fresh.sqlite"))
	if err != nil || recreated {
		t.Fatalf("fresh catalog: recreated=%v err=%v", recreated, err)
	}
	_ = c2.Close()
}
