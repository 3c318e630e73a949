/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"promptmanager/internal/domain"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portrait.json")
	want := domain.PromptState{Top: "masterpiece, ", Middle: "a cat\n", Bottom: "  8k", Negative: "blurry"}

	doc, err := Save(path, want, nil)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if doc.DefaultImage != "" {
		t.Fatalf("no media present, got default %q", doc.DefaultImage)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestSaveWritesIndentedJSONWithoutDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.json")
	if _, err := Save(path, domain.PromptState{Top: "a<b>&c"}, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	if !strings.Contains(s, "\n    \"prompt_parts\": {\n        \"top\": \"a<b>&c\"") {
		t.Fatalf("unexpected layout:\n%s", s)
	}
	if strings.Contains(s, "default_image") {
		t.Fatalf("default_image should be omitted:\n%s", s)
	}
	// no temp files left behind
	ents, _ := os.ReadDir(dir)
	if len(ents) != 1 {
		t.Fatalf("expected only the template in dir, got %d entries", len(ents))
	}
}

func TestSaveRecordsSingleImage(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "hero.png", "hero_clip.mp4", "other.png")
	called := false
	doc, err := Save(filepath.Join(dir, "hero.json"), domain.PromptState{Top: "x"}, func([]string) string {
		called = true
		return ""
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if called {
		t.Fatalf("chooser must not be asked for a single image")
	}
	if doc.DefaultImage != "hero.png" {
		t.Fatalf("default = %q, want hero.png", doc.DefaultImage)
	}
	reread, err := ReadDocument(filepath.Join(dir, "hero.json"))
	if err != nil {
		t.Fatal(err)
	}
	if reread.DefaultImage != "hero.png" {
		t.Fatalf("stored default = %q", reread.DefaultImage)
	}
}

func TestSaveAsksChooserForSeveralImages(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "hero_b.png", "hero_a.jpg")
	var offered []string
	doc, err := Save(filepath.Join(dir, "hero.json"), domain.PromptState{}, func(c []string) string {
		offered = c
		return c[1]
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(offered) != 2 || filepath.Base(offered[0]) != "hero_a.jpg" {
		t.Fatalf("unexpected candidates: %v", offered)
	}
	if doc.DefaultImage != "hero_b.png" {
		t.Fatalf("default = %q, want hero_b.png", doc.DefaultImage)
	}

	// declining leaves the field out
	doc, err = Save(filepath.Join(dir, "hero.json"), domain.PromptState{}, func([]string) string { return "" })
	if err != nil {
		t.Fatal(err)
	}
	if doc.DefaultImage != "" {
		t.Fatalf("declined chooser should record nothing, got %q", doc.DefaultImage)
	}
}

func TestLoadMissingKeysDefaultEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.json")
	if err := os.WriteFile(path, []byte(`{"prompt_parts": {"middle": "m"}, "negative_prompt": null}`), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != (domain.PromptState{Middle: "m"}) {
		t.Fatalf("got %+v", got)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"malformed.json": `{"prompt_parts": `,
		"wrongtype.json": `{"prompt_parts": {"top": 5}}`,
		"array.json":     `[1, 2]`,
	}
	for name, body := range cases {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := Load(p)
		var le *domain.LoadError
		if !errors.As(err, &le) {
			t.Fatalf("%s: expected LoadError, got %v", name, err)
		}
		if le.Path != p {
			t.Fatalf("%s: LoadError path = %q", name, le.Path)
		}
	}
	_, err := Load(filepath.Join(dir, "missing.json"))
	var le *domain.LoadError
	if !errors.As(err, &le) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing file: expected LoadError wrapping ErrNotExist, got %v", err)
	}
}

func TestSaveErrorOnUnwritableFolder(t *testing.T) {
	dir := t.TempDir()
	_, err := Save(filepath.Join(dir, "no", "such", "dir", "t.json"), domain.PromptState{Top: "x"}, nil)
	var se *domain.SaveError
	if !errors.As(err, &se) {
		t.Fatalf("expected SaveError, got %v", err)
	}
}

func TestSetDefaultImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.json")
	want := domain.PromptState{Top: "a", Negative: "n"}
	if _, err := Save(path, want, nil); err != nil {
		t.Fatal(err)
	}
	if err := SetDefaultImage(path, filepath.Join(dir, "t_1.webp")); err != nil {
		t.Fatalf("SetDefaultImage: %v", err)
	}
	doc, err := ReadDocument(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.DefaultImage != "t_1.webp" || doc.State() != want {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if err := SetDefaultImage(path, ""); err != nil {
		t.Fatal(err)
	}
	if doc, _ = ReadDocument(path); doc.DefaultImage != "" {
		t.Fatalf("default not cleared: %q", doc.DefaultImage)
	}
}

func TestListTemplates(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.json", "a.JSON", "c.txt", "a.png")
	if err := os.Mkdir(filepath.Join(dir, "sub.json"), 0o755); err != nil {
		t.Fatal(err)
	}
	got, err := ListTemplates(dir)
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	if len(got) != 2 || filepath.Base(got[0]) != "a.JSON" || filepath.Base(got[1]) != "b.json" {
		t.Fatalf("unexpected listing: %v", got)
	}
	if _, err := ListTemplates(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected error for missing folder")
	}
}
