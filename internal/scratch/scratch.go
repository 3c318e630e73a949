/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package scratch manages the per-session export file that batch contents
// are written to for consumption by image generation tools.
package scratch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	applog "promptmanager/internal/log"
)

const (
	Prefix = "sd_prompt_"
	Suffix = ".txt"
)

// ErrRemoved is returned by Write after the file has been removed.
var ErrRemoved = errors.New("scratch file already removed")

// File is the session's scratch export file. It is created once and
// overwritten on every export.
type File struct {
	mu      sync.Mutex
	path    string
	removed bool
}

// Create makes a new empty scratch file in dir, or in the platform temp
// directory when dir is empty.
func Create(dir string) (*File, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, Prefix+"*"+Suffix)
	if err != nil {
		return nil, fmt.Errorf("create scratch file: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("close scratch file: %w", err)
	}
	applog.WithComponent("scratch").Debug("scratch file created", slog.String("path", path))
	return &File{path: path}, nil
}

// Path returns the absolute location of the file.
func (f *File) Path() string { return f.path }

// Write replaces the file content with text.
func (f *File) Write(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removed {
		return ErrRemoved
	}
	if err := os.WriteFile(f.path, []byte(text), 0o600); err != nil {
		return fmt.Errorf("write scratch file: %w", err)
	}
	return nil
}

// Exists reports whether the file is still on disk.
func (f *File) Exists() bool {
	if f == nil {
		return false
	}
	_, err := os.Stat(f.path)
	return err == nil
}

// Remove deletes the file. It is safe to call more than once and on a nil
// File; failures are logged at debug level and otherwise ignored.
func (f *File) Remove() {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removed {
		return
	}
	f.removed = true
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		applog.WithComponent("scratch").Debug("remove scratch file failed", slog.String("path", f.path), slog.Any("err", err))
	}
}

// PurgeStale deletes scratch files left behind in dir (the platform temp
// directory when empty) by earlier sessions and returns how many were
// removed. Errors never propagate.
func PurgeStale(dir string) int {
	if dir == "" {
		dir = os.TempDir()
	}
	matches, err := filepath.Glob(filepath.Join(dir, Prefix+"*"+Suffix))
	if err != nil {
		return 0
	}
	l := applog.WithComponent("scratch")
	n := 0
	for _, p := range matches {
		if !strings.HasPrefix(filepath.Base(p), Prefix) {
			continue
		}
		if err := os.Remove(p); err != nil {
			l.Debug("purge stale scratch file failed", slog.String("path", p), slog.Any("err", err))
			continue
		}
		n++
	}
	if n > 0 {
		l.Info("purged stale scratch files", slog.Int("count", n))
	}
	return n
}

// RemoveOnSignal removes the file when the process receives SIGINT or
// SIGTERM and then calls exit with status 130. The returned stop function
// detaches the hook.
func (f *File) RemoveOnSignal(exit func(code int)) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case sig := <-ch:
			applog.WithComponent("scratch").Info("signal received, removing scratch file", slog.String("signal", sig.String()))
			f.Remove()
			if exit != nil {
				exit(130)
			}
		case <-done:
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}
