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
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"promptmanager/internal/domain"
	"promptmanager/internal/log"
)

// MediaList is the ranked set of media files related to a template stem.
// The folder is scanned on first use; later iterations reuse the result.
type MediaList struct {
	folder string
	stem   string

	once  sync.Once
	paths []string
}

// FindRelatedMedia returns the media in folder whose file name starts with
// stem and carries an image or video extension. Images come before videos;
// within a kind, files are ordered by lower-cased basename. A missing or
// unreadable folder yields an empty list.
func FindRelatedMedia(folder, stem string) *MediaList {
	return &MediaList{folder: folder, stem: stem}
}

// All yields the absolute paths in rank order. It may be ranged over any
// number of times.
func (m *MediaList) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, p := range m.load() {
			if !yield(p) {
				return
			}
		}
	}
}

// Paths returns a copy of the ranked paths.
func (m *MediaList) Paths() []string { return slices.Clone(m.load()) }

// Len returns the number of matches.
func (m *MediaList) Len() int { return len(m.load()) }

// Images returns only the image matches, in rank order.
func (m *MediaList) Images() []string {
	var out []string
	for p := range m.All() {
		if domain.IsImage(p) {
			out = append(out, p)
		}
	}
	return out
}

func (m *MediaList) load() []string {
	m.once.Do(func() { m.paths = scanMedia(m.folder, m.stem) })
	return m.paths
}

func scanMedia(folder, stem string) []string {
	if folder == "" {
		folder = "."
	}
	abs, err := filepath.Abs(folder)
	if err != nil {
		abs = folder
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		log.WithComponent("media").Debug("scan folder failed", "folder", abs, "err", err)
		return nil
	}
	lowerStem := strings.ToLower(stem)
	seen := make(map[string]struct{}, len(entries))
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !domain.IsMedia(name) {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(name), lowerStem) {
			continue
		}
		p := filepath.Join(abs, name)
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	slices.SortFunc(out, compareMedia)
	return out
}

// compareMedia orders images before videos, then by lower-cased basename.
// The exact basename breaks remaining ties so the order is total.
func compareMedia(a, b string) int {
	ra, rb := mediaRank(a), mediaRank(b)
	if ra != rb {
		return ra - rb
	}
	ba, bb := filepath.Base(a), filepath.Base(b)
	if c := strings.Compare(strings.ToLower(ba), strings.ToLower(bb)); c != 0 {
		return c
	}
	return strings.Compare(ba, bb)
}

func mediaRank(p string) int {
	if domain.IsImage(p) {
		return 0
	}
	return 1
}
