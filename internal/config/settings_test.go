/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSettingsMissingFileIsEmpty(t *testing.T) {
	s := LoadSettings(filepath.Join(t.TempDir(), SettingsFileName))
	if s.DefaultTemplateDir != "" {
		t.Fatalf("expected empty settings, got %q", s.DefaultTemplateDir)
	}
}

func TestSettingsMalformedFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), SettingsFileName)
	for _, body := range []string{"{not json", "[1,2]", `{"default_template_dir": 7}`} {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if s := LoadSettings(path); s.DefaultTemplateDir != "" {
			t.Fatalf("%s: expected empty dir, got %q", body, s.DefaultTemplateDir)
		}
	}
}

func TestSettingsPreserveUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), SettingsFileName)
	in := `{"default_template_dir": "/old", "window": {"w": 800}, "recent": ["a", "b"]}`
	if err := os.WriteFile(path, []byte(in), 0o644); err != nil {
		t.Fatal(err)
	}
	s := LoadSettings(path)
	if s.DefaultTemplateDir != "/old" {
		t.Fatalf("DefaultTemplateDir = %q", s.DefaultTemplateDir)
	}
	s.SetDefaultTemplateDir("  /new/templates ")
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("saved file is not JSON: %v", err)
	}
	if out["default_template_dir"] != "/new/templates" {
		t.Fatalf("dir not refreshed: %v", out["default_template_dir"])
	}
	if _, ok := out["window"]; !ok {
		t.Fatalf("unknown key window dropped: %s", b)
	}
	if r, ok := out["recent"].([]any); !ok || len(r) != 2 {
		t.Fatalf("unknown key recent changed: %s", b)
	}
}

func TestSettingsClearWritesEmptyDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), SettingsFileName)
	s := LoadSettings(path)
	s.SetDefaultTemplateDir("")
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	if got := LoadSettings(path); got.DefaultTemplateDir != "" || got.Path() != path {
		t.Fatalf("unexpected reload: %+v", got)
	}
	b, _ := os.ReadFile(path)
	if string(b) != "{\n  \"default_template_dir\": \"\"\n}\n" {
		t.Fatalf("unexpected file content %q", b)
	}
}

func TestSettingsSaveError(t *testing.T) {
	s := LoadSettings(filepath.Join(t.TempDir(), "missing", "dir", SettingsFileName))
	if err := s.Save(); err == nil {
		t.Fatalf("expected error writing into a missing directory")
	}
}
