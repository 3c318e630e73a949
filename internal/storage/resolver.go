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
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/patrickmn/go-cache"

	"promptmanager/internal/domain"
)

// Resolver answers preview questions about templates. Parsed default_image
// values are memoized per path and re-read when the file's mtime or size
// changes.
type Resolver struct {
	memo *cache.Cache
}

type defaultEntry struct {
	modTime time.Time
	size    int64
	name    string
}

// Default is the process-wide resolver used by the package helpers.
var Default = NewResolver(10 * time.Minute)

// NewResolver returns a resolver whose memo entries expire after ttl.
func NewResolver(ttl time.Duration) *Resolver {
	return &Resolver{memo: cache.New(ttl, 2*ttl)}
}

// DefaultImage returns the default_image basename stored in the template at
// path, or "" if there is none or the template cannot be read.
func (r *Resolver) DefaultImage(templatePath string) string {
	fi, err := os.Stat(templatePath)
	if err != nil || fi.IsDir() {
		return ""
	}
	if v, ok := r.memo.Get(templatePath); ok {
		if e := v.(defaultEntry); e.modTime.Equal(fi.ModTime()) && e.size == fi.Size() {
			return e.name
		}
	}
	name := readDefaultImage(templatePath)
	r.memo.SetDefault(templatePath, defaultEntry{modTime: fi.ModTime(), size: fi.Size(), name: name})
	return name
}

// Invalidate drops the memoized entry for path.
func (r *Resolver) Invalidate(templatePath string) { r.memo.Delete(templatePath) }

// PickPreview chooses the preview for a template among matches: the stored
// default image if it is an image that is among matches or exists next to the
// template, else the first image in matches, else "".
func (r *Resolver) PickPreview(templatePath string, matches []string) string {
	if def := r.DefaultImage(templatePath); def != "" && domain.IsImage(def) {
		for _, m := range matches {
			if filepath.Base(m) == def {
				return m
			}
		}
		candidate := filepath.Join(filepath.Dir(templatePath), def)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate
		}
	}
	for _, m := range matches {
		if domain.IsImage(m) {
			return m
		}
	}
	return ""
}

// IsDefault reports whether mediaPath is the template's default image.
func (r *Resolver) IsDefault(templatePath, mediaPath string) bool {
	def := r.DefaultImage(templatePath)
	return def != "" && filepath.Base(mediaPath) == def
}

// PickPreview uses the Default resolver.
func PickPreview(templatePath string, matches []string) string {
	return Default.PickPreview(templatePath, matches)
}

// IsDefault uses the Default resolver.
func IsDefault(templatePath, mediaPath string) bool {
	return Default.IsDefault(templatePath, mediaPath)
}

// readDefaultImage extracts default_image without schema validation; any
// error means no default.
func readDefaultImage(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	var doc struct {
		DefaultImage any `json:"default_image"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}
	s, ok := doc.DefaultImage.(string)
	if !ok || s == "" {
		return ""
	}
	return filepath.Base(s)
}
