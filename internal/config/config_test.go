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
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromMergesFile(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvPGDSN, "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "config_version: 1\n" +
		"general:\n  confirm_quit: false\n  scratch_dir: /tmp/sd\n" +
		"logging:\n  level: DEBUG\n" +
		"history:\n  max_depth: 50\n" +
		"catalog:\n  workers: 8\n  pg_dsn: postgres://u@h/db\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.General.ConfirmQuit || cfg.General.ScratchDir != "/tmp/sd" {
		t.Fatalf("general not merged: %#v", cfg.General)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Fatalf("logging not merged: %#v", cfg.Logging)
	}
	if cfg.History.MaxDepth != 50 || cfg.Catalog.Workers != 8 || cfg.Catalog.PGDSN != "postgres://u@h/db" {
		t.Fatalf("history/catalog not merged: %#v %#v", cfg.History, cfg.Catalog)
	}
	if cfg.Catalog.ThumbCacheMB != Defaults().Catalog.ThumbCacheMB {
		t.Fatalf("unset fields should keep defaults")
	}
}

func TestLoadFromMissingOrBrokenFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFrom(filepath.Join(dir, "absent.yaml"))
	if err != nil || cfg.ConfigVersion != 1 {
		t.Fatalf("missing file should give defaults: %#v %v", cfg, err)
	}
	broken := filepath.Join(dir, "broken.yaml")
	_ = os.WriteFile(broken, []byte("general: [unterminated"), 0o644)
	cfg, err = LoadFrom(broken)
	if err != nil || !cfg.General.ConfirmQuit {
		t.Fatalf("broken file should give defaults: %#v %v", cfg, err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvHistoryMaxDepth, "25")
	t.Setenv(EnvCatalogWorkers, "nope")
	t.Setenv(EnvPGDSN, "postgres://env")
	t.Setenv(EnvTelemetryOptIn, "yes")
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.History.MaxDepth != 25 || cfg.Catalog.PGDSN != "postgres://env" || !cfg.Telemetry.OptIn {
		t.Fatalf("env overrides not applied: %#v", cfg)
	}
	if cfg.Catalog.Workers != 4 {
		t.Fatalf("invalid worker count should be ignored, got %d", cfg.Catalog.Workers)
	}
	if env, ok := EnvOverrideFor("catalog.pg_dsn"); !ok || env != EnvPGDSN {
		t.Fatalf("EnvOverrideFor = %q %v", env, ok)
	}
	if _, ok := EnvOverrideFor("catalog.path"); ok {
		t.Fatalf("catalog.path is not overridden")
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "X:/sdpm.log")
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/sdpm.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestSaveToThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := Defaults()
	want.General.Theme = "dark"
	want.History.MaxDepth = 10
	if err := SaveTo(path, want); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	got, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.General.Theme != "dark" || got.History.MaxDepth != 10 {
		t.Fatalf("round trip lost fields: %#v", got)
	}
}

func TestConfigPathOverride(t *testing.T) {
	t.Setenv(EnvConfigFile, "/etc/sdpm.yaml")
	p, err := ConfigPath()
	if err != nil || p != "/etc/sdpm.yaml" {
		t.Fatalf("ConfigPath = %q %v", p, err)
	}
}

func TestCatalogPathDefault(t *testing.T) {
	c := CatalogConfig{Path: "/x/cat.sqlite"}
	if p, _ := c.CatalogPath(); p != "/x/cat.sqlite" {
		t.Fatalf("explicit path ignored: %q", p)
	}
	c.Path = ""
	p, err := c.CatalogPath()
	if err != nil {
		t.Skipf("no user cache dir: %v", err)
	}
	if filepath.Base(p) != "catalog.sqlite" || filepath.Base(filepath.Dir(p)) != "promptmanager" {
		t.Fatalf("unexpected default catalog path %q", p)
	}
}
