/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

import (
	"path/filepath"
	"strings"
)

// Extensions recognised as template preview media, lower case with the dot.
var (
	ImageExts = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}
	VideoExts = []string{".mp4", ".mov", ".avi", ".mkv", ".webm"}
)

func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// IsImage reports whether path has an image extension (case-insensitive).
func IsImage(path string) bool { return hasExt(path, ImageExts) }

// IsVideo reports whether path has a video extension (case-insensitive).
func IsVideo(path string) bool { return hasExt(path, VideoExts) }

// IsMedia reports whether path is an image or a video.
func IsMedia(path string) bool { return IsImage(path) || IsVideo(path) }
