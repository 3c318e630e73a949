/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package shell hands files and text over to the desktop: revealing the
// scratch file in the file manager, opening it in the default editor and
// copying prompts to the clipboard.
package shell

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/atotto/clipboard"
)

// ErrMissing is returned when the file to open does not exist.
var ErrMissing = errors.New("file doesn't exist")

// run starts an external command; tests replace it.
var run = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// writeClipboard is the clipboard backend; tests replace it.
var writeClipboard = clipboard.WriteAll

// RevealCommand returns the command that shows path in the platform file
// manager.
func RevealCommand(goos, path string) (string, []string) {
	switch goos {
	case "windows":
		return "explorer", []string{"/select,", path}
	case "darwin":
		return "open", []string{"-R", path}
	default:
		return "xdg-open", []string{filepath.Dir(path)}
	}
}

// OpenCommand returns the command that opens path with its default
// application.
func OpenCommand(goos, path string) (string, []string) {
	switch goos {
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", path}
	case "darwin":
		return "open", []string{path}
	default:
		return "xdg-open", []string{path}
	}
}

// OpenDirCommand returns the command that opens a folder in the file
// manager.
func OpenDirCommand(goos, dir string) (string, []string) {
	switch goos {
	case "windows":
		return "explorer", []string{dir}
	case "darwin":
		return "open", []string{dir}
	default:
		return "xdg-open", []string{dir}
	}
}

func requireFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%s: %w", path, ErrMissing)
	}
	return nil
}

// Reveal shows path in the file manager.
func Reveal(path string) error {
	if err := requireFile(path); err != nil {
		return err
	}
	name, args := RevealCommand(runtime.GOOS, path)
	if err := run(name, args...); err != nil {
		return fmt.Errorf("could not open file location: %w", err)
	}
	return nil
}

// Open opens path with the default application.
func Open(path string) error {
	if err := requireFile(path); err != nil {
		return err
	}
	name, args := OpenCommand(runtime.GOOS, path)
	if err := run(name, args...); err != nil {
		return fmt.Errorf("failed to open file for editing: %w", err)
	}
	return nil
}

// OpenDir opens dir in the file manager.
func OpenDir(dir string) error {
	if err := requireFile(dir); err != nil {
		return err
	}
	name, args := OpenDirCommand(runtime.GOOS, dir)
	if err := run(name, args...); err != nil {
		return fmt.Errorf("failed to open folder: %w", err)
	}
	return nil
}

// Copy places text on the system clipboard.
func Copy(text string) error {
	if err := writeClipboard(text); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return nil
}
