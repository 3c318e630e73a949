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
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// The remembered template folder is not part of this file; see Settings.
type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	General       GeneralConfig   `yaml:"general"`
	Logging       LoggingConfig   `yaml:"logging"`
	History       HistoryConfig   `yaml:"history"`
	Catalog       CatalogConfig   `yaml:"catalog"`
	Telemetry     TelemetryConfig `yaml:"telemetry"`
}

type GeneralConfig struct {
	Theme       string `yaml:"theme"` // "system" | "light" | "dark"
	ConfirmQuit bool   `yaml:"confirm_quit"`
	ScratchDir  string `yaml:"scratch_dir"` // empty means the OS temp dir
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type HistoryConfig struct {
	MaxDepth int `yaml:"max_depth"` // 0 keeps every state
}

type CatalogConfig struct {
	Path         string `yaml:"path"` // empty means <user cache dir>/promptmanager/catalog.sqlite
	Workers      int    `yaml:"workers"`
	ThumbCacheMB int    `yaml:"thumb_cache_mb"`
	PGDSN        string `yaml:"pg_dsn"`
}

type TelemetryConfig struct {
	OptIn     bool   `yaml:"opt_in"`
	EventsURL string `yaml:"events_url"`
	CrashURL  string `yaml:"crash_url"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "system", ConfirmQuit: true},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
		History:       HistoryConfig{MaxDepth: 0},
		Catalog:       CatalogConfig{Workers: 4, ThumbCacheMB: 64},
		Telemetry:     TelemetryConfig{OptIn: false},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile      = "SDPM_CONFIG"
	EnvScratchDir      = "SDPM_SCRATCH_DIR"
	EnvHistoryMaxDepth = "SDPM_HISTORY_MAX_DEPTH"
	EnvCatalogPath     = "SDPM_CATALOG_PATH"
	EnvCatalogWorkers  = "SDPM_CATALOG_WORKERS"
	EnvPGDSN           = "SDPM_PG_DSN"
	EnvTelemetryOptIn  = "SDPM_TELEMETRY_OPT_IN"
	EnvTelemetryURL    = "SDPM_TELEMETRY_URL"
	EnvCrashUploadURL  = "SDPM_CRASH_UPLOAD_URL"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "SDPM_LOG_LEVEL"
	EnvLogFormat = "SDPM_LOG_FORMAT"
	EnvLogSource = "SDPM_LOG_SOURCE"
	EnvLogFile   = "SDPM_LOG_FILE"
)

// ConfigPath returns the per-user config file path. SDPM_CONFIG overrides it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "PromptManager")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "PromptManager")
	default: // linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "promptmanager")
		} else if home := os.Getenv("HOME"); home != "" {
			base = filepath.Join(home, ".config", "promptmanager")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// CatalogPath returns the configured catalog database path or the default
// location under the user cache directory.
func (c CatalogConfig) CatalogPath() (string, error) {
	if c.Path != "" {
		return c.Path, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "promptmanager", "catalog.sqlite"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
func Load() (AppConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit file path. A missing or unparsable file
// leaves the defaults in place.
func LoadFrom(path string) (AppConfig, error) {
	cfg := Defaults()
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo writes cfg as YAML to path, creating parent directories.
func SaveTo(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.ConfirmQuit = src.General.ConfirmQuit
	if strings.TrimSpace(src.General.ScratchDir) != "" {
		dst.General.ScratchDir = strings.TrimSpace(src.General.ScratchDir)
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
	if src.History.MaxDepth > 0 {
		dst.History.MaxDepth = src.History.MaxDepth
	}
	// catalog
	if src.Catalog.Path != "" {
		dst.Catalog.Path = src.Catalog.Path
	}
	if src.Catalog.Workers > 0 {
		dst.Catalog.Workers = src.Catalog.Workers
	}
	if src.Catalog.ThumbCacheMB > 0 {
		dst.Catalog.ThumbCacheMB = src.Catalog.ThumbCacheMB
	}
	if src.Catalog.PGDSN != "" {
		dst.Catalog.PGDSN = src.Catalog.PGDSN
	}
	dst.Telemetry.OptIn = src.Telemetry.OptIn
	if src.Telemetry.EventsURL != "" {
		dst.Telemetry.EventsURL = src.Telemetry.EventsURL
	}
	if src.Telemetry.CrashURL != "" {
		dst.Telemetry.CrashURL = src.Telemetry.CrashURL
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvScratchDir)); v != "" {
		cfg.General.ScratchDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvHistoryMaxDepth)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.History.MaxDepth = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvCatalogPath)); v != "" {
		cfg.Catalog.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCatalogWorkers)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Catalog.Workers = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvPGDSN)); v != "" {
		cfg.Catalog.PGDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.Telemetry.OptIn = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryURL)); v != "" {
		cfg.Telemetry.EventsURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCrashUploadURL)); v != "" {
		cfg.Telemetry.CrashURL = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env := map[string]string{
		"general.scratch_dir":  EnvScratchDir,
		"history.max_depth":    EnvHistoryMaxDepth,
		"catalog.path":         EnvCatalogPath,
		"catalog.workers":      EnvCatalogWorkers,
		"catalog.pg_dsn":       EnvPGDSN,
		"telemetry.opt_in":     EnvTelemetryOptIn,
		"telemetry.events_url": EnvTelemetryURL,
		"telemetry.crash_url":  EnvCrashUploadURL,
		"logging.level":        EnvLogLevel,
		"logging.format":       EnvLogFormat,
		"logging.source":       EnvLogSource,
		"logging.file":         EnvLogFile,
	}[key]
	if env != "" && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}
