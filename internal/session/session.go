/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package session holds the state of one editing session: the four prompt
// fields with their undo history, the batch, the scratch export file, the
// remembered settings and the currently loaded template.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"promptmanager/internal/batch"
	"promptmanager/internal/config"
	"promptmanager/internal/domain"
	"promptmanager/internal/history"
	applog "promptmanager/internal/log"
	"promptmanager/internal/scratch"
	"promptmanager/internal/storage"
	"promptmanager/internal/telemetry"
)

// DefaultTemplateName is suggested when saving without a loaded template.
const DefaultTemplateName = "template.json"

// Options configures Open.
type Options struct {
	// ScratchDir is where the scratch file lives; empty means the OS temp dir.
	ScratchDir string
	// SettingsPath overrides ~/.sdpm_settings.json.
	SettingsPath string
	// HistoryDepth caps the undo stack; 0 keeps everything.
	HistoryDepth int
	// KeepStale skips purging scratch files left by earlier sessions.
	KeepStale bool
}

// OptionsFromConfig maps the app config onto session options.
func OptionsFromConfig(cfg config.AppConfig) Options {
	return Options{ScratchDir: cfg.General.ScratchDir, HistoryDepth: cfg.History.MaxDepth}
}

// Session is the application context shared by the UI and CLI.
type Session struct {
	History  *history.Manager
	Batch    *batch.List
	Settings *config.Settings
	Scratch  *scratch.File

	mu           sync.Mutex
	state        domain.PromptState
	templatePath string
	lastDir      string
	onApply      func(domain.PromptState)
	log          *slog.Logger
}

// Open starts a session: stale scratch files are purged, a new scratch file
// is created, settings are read and the empty prompt state is recorded as
// the first history entry.
func Open(opts Options) (*Session, error) {
	l := applog.WithComponent("session")
	if !opts.KeepStale {
		scratch.PurgeStale(opts.ScratchDir)
	}
	sf, err := scratch.Create(opts.ScratchDir)
	if err != nil {
		return nil, err
	}
	settingsPath := opts.SettingsPath
	if settingsPath == "" {
		if settingsPath, err = config.SettingsPath(); err != nil {
			l.Warn("settings path unavailable", slog.Any("err", err))
			settingsPath = filepath.Join(os.TempDir(), config.SettingsFileName)
		}
	}
	s := &Session{
		History:  history.NewManager(history.Config{MaxDepth: opts.HistoryDepth}),
		Batch:    &batch.List{},
		Settings: config.LoadSettings(settingsPath),
		Scratch:  sf,
		log:      l,
	}
	s.History.Snapshot(s.state)
	l.Debug("session opened", slog.String("scratch", sf.Path()), slog.String("settings", settingsPath))
	return s, nil
}

// Close saves settings and removes the scratch file.
func (s *Session) Close() error {
	err := s.Settings.Save()
	s.Scratch.Remove()
	return err
}

// OnApply registers fn to receive states restored by Undo, Redo and
// LoadTemplate. Edits reported from inside fn do not create snapshots.
func (s *Session) OnApply(fn func(domain.PromptState)) {
	s.mu.Lock()
	s.onApply = fn
	s.mu.Unlock()
}

// State returns the current prompt fields.
func (s *Session) State() domain.PromptState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Edit records an observed change of the prompt fields.
func (s *Session) Edit(st domain.PromptState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.History.Snapshot(st)
}

// Undo restores the previous state.
func (s *Session) Undo() (domain.PromptState, error) {
	st, err := s.History.Undo()
	if err != nil {
		return s.State(), err
	}
	s.apply(st)
	return st, nil
}

// Redo restores the most recently undone state.
func (s *Session) Redo() (domain.PromptState, error) {
	st, err := s.History.Redo()
	if err != nil {
		return s.State(), err
	}
	s.apply(st)
	return st, nil
}

func (s *Session) apply(st domain.PromptState) {
	s.mu.Lock()
	s.state = st
	fn := s.onApply
	s.mu.Unlock()
	if fn != nil {
		s.History.Apply(func() { fn(st) })
	}
}

// CombinedPrompt is the batch line the current fields would produce.
func (s *Session) CombinedPrompt() string {
	st := s.State()
	return batch.Join(st.Top, st.Middle, st.Bottom)
}

// AddToBatch appends the combined current prompt to the batch.
func (s *Session) AddToBatch() (int, error) {
	st := s.State()
	return s.Batch.Add(st.Top, st.Middle, st.Bottom)
}

// LoadEntry puts a batch entry back into the three positive fields, keeping
// the negative prompt. It is recorded as a normal edit.
func (s *Session) LoadEntry(index int) (domain.PromptState, error) {
	entry, err := s.Batch.At(index)
	if err != nil {
		return domain.PromptState{}, err
	}
	parts := batch.Split(entry)
	st := s.State()
	st.Top, st.Middle, st.Bottom = parts[0], parts[1], parts[2]
	s.Edit(st)
	return st, nil
}

// ExportBatch writes the serialized batch to the scratch file and returns
// its path.
func (s *Session) ExportBatch() (string, error) {
	content, err := s.Batch.Serialize()
	if err != nil {
		return "", err
	}
	if err := s.Scratch.Write(content); err != nil {
		return "", err
	}
	s.log.Info("batch exported", slog.Int("lines", s.Batch.Len()), slog.String("path", s.Scratch.Path()))
	telemetry.Event(telemetry.EventBatchExported, map[string]any{"lines": s.Batch.Len()})
	return s.Scratch.Path(), nil
}

// ScratchPath returns the scratch file path if the file exists.
func (s *Session) ScratchPath() (string, error) {
	if !s.Scratch.Exists() {
		return "", errors.New("scratch file doesn't exist, export the batch first")
	}
	return s.Scratch.Path(), nil
}

// SaveTemplate writes the current fields to path. On success the template
// becomes the current one and its folder is remembered.
func (s *Session) SaveTemplate(path string, choose storage.ImageChooser) (domain.TemplateDoc, error) {
	doc, err := storage.Save(path, s.State(), choose)
	if err != nil {
		s.log.Error("template save failed", slog.String("path", path), slog.Any("err", err))
		return doc, err
	}
	s.mu.Lock()
	s.templatePath = path
	s.lastDir = filepath.Dir(path)
	s.mu.Unlock()
	s.log.Info("template saved", slog.String("path", path), slog.String("default_image", doc.DefaultImage))
	telemetry.Event(telemetry.EventTemplateSaved, map[string]any{"has_default_image": doc.DefaultImage != ""})
	return doc, nil
}

// LoadTemplate replaces the four fields with the template at path and
// records the result in history. A failed load leaves the session as it was.
func (s *Session) LoadTemplate(path string) (domain.PromptState, error) {
	st, err := storage.Load(path)
	if err != nil {
		s.log.Warn("template load failed", slog.String("path", path), slog.Any("err", err))
		return s.State(), err
	}
	s.apply(st)
	s.History.Snapshot(st)
	s.mu.Lock()
	s.templatePath = path
	s.lastDir = filepath.Dir(path)
	s.mu.Unlock()
	s.log.Info("template loaded", slog.String("path", path))
	telemetry.Event(telemetry.EventTemplateLoaded, nil)
	return st, nil
}

// TemplatePath returns the path of the loaded or last saved template.
func (s *Session) TemplatePath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.templatePath
}

// SuggestSavePath returns the folder and file name to preselect in a save
// dialog: the current template if it still exists, otherwise
// template.json in the browse folder.
func (s *Session) SuggestSavePath() (dir, name string) {
	if p := s.TemplatePath(); p != "" {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return filepath.Dir(p), filepath.Base(p)
		}
	}
	return s.startDir(), DefaultTemplateName
}

// BrowseDir returns the folder the template browser should open, or "" when
// the user has to pick one: the default folder if it exists.
func (s *Session) BrowseDir() string {
	dir := s.Settings.DefaultTemplateDir
	if dir == "" {
		return ""
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return ""
	}
	return dir
}

// StartDir is the initial folder for pickers: the default folder, else the
// last used one, else the working directory.
func (s *Session) StartDir() string { return s.startDir() }

func (s *Session) startDir() string {
	if d := s.Settings.DefaultTemplateDir; d != "" {
		return d
	}
	s.mu.Lock()
	last := s.lastDir
	s.mu.Unlock()
	if last != "" {
		return last
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// RememberDir records dir as the last folder used in the browser.
func (s *Session) RememberDir(dir string) {
	s.mu.Lock()
	s.lastDir = dir
	s.mu.Unlock()
}

// SetDefaultTemplateDir persists dir as the default template folder. An
// empty dir clears it.
func (s *Session) SetDefaultTemplateDir(dir string) error {
	s.Settings.SetDefaultTemplateDir(dir)
	if err := s.Settings.Save(); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
