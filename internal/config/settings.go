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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SettingsFileName is the name of the small JSON settings file kept in the
// user's home directory.
const SettingsFileName = ".sdpm_settings.json"

const keyDefaultTemplateDir = "default_template_dir"

// Settings holds state remembered between sessions. Keys written by other
// versions are kept as-is and written back on Save.
type Settings struct {
	DefaultTemplateDir string

	path  string
	extra map[string]json.RawMessage
}

// SettingsPath returns ~/.sdpm_settings.json.
func SettingsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, SettingsFileName), nil
}

// LoadSettings reads the settings file at path. A missing, unreadable or
// malformed file yields empty settings bound to the same path.
func LoadSettings(path string) *Settings {
	s := &Settings{path: path, extra: map[string]json.RawMessage{}}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return s
	}
	if v, ok := raw[keyDefaultTemplateDir]; ok {
		var dir string
		if json.Unmarshal(v, &dir) == nil {
			s.DefaultTemplateDir = dir
		}
		delete(raw, keyDefaultTemplateDir)
	}
	s.extra = raw
	return s
}

// Path returns the file the settings are saved to.
func (s *Settings) Path() string { return s.path }

// SetDefaultTemplateDir stores dir, or clears it when dir is blank.
func (s *Settings) SetDefaultTemplateDir(dir string) {
	s.DefaultTemplateDir = strings.TrimSpace(dir)
}

// Save writes every preserved key plus the current default_template_dir.
func (s *Settings) Save() error {
	out := make(map[string]json.RawMessage, len(s.extra)+1)
	for k, v := range s.extra {
		out[k] = v
	}
	dir, err := json.Marshal(s.DefaultTemplateDir)
	if err != nil {
		return err
	}
	out[keyDefaultTemplateDir] = dir
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return err
	}
	if err := os.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
