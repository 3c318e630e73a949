/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package export writes the batch to files outside the scratch file: plain
// text for generation tools and a printable PDF prompt sheet.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format is an export file format.
type Format string

const (
	FormatText Format = "txt"
	FormatPDF  Format = "pdf"
)

// ErrEmptyBatch is returned when there is nothing to export.
var ErrEmptyBatch = errors.New("batch is empty, nothing to export")

// FormatFor picks the format from the file extension of path.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", "":
		return FormatText, nil
	case ".pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", filepath.Ext(path))
	}
}

// Write exports entries to path in the format implied by its extension.
func Write(path string, entries []string, opt PDFOptions) error {
	f, err := FormatFor(path)
	if err != nil {
		return err
	}
	if f == FormatPDF {
		return WritePDF(path, entries, opt)
	}
	return WriteText(path, entries)
}

// WriteText writes entries one per line, the same layout as the scratch
// file.
func WriteText(path string, entries []string) error {
	if len(entries) == 0 {
		return ErrEmptyBatch
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(strings.Join(entries, "\n")), 0o644); err != nil {
		return fmt.Errorf("write text export: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	return nil
}
