/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"promptmanager/internal/domain"
	"promptmanager/internal/storage"
	"promptmanager/internal/thumbnail"
)

// MediaItem is one related media file shown under a template.
type MediaItem struct {
	Path    string
	Name    string
	Video   bool
	Default bool
}

// Label is the text shown in the media list.
func (m MediaItem) Label() string {
	switch {
	case m.Default:
		return m.Name + "  (default)"
	case m.Video:
		return m.Name + "  (video)"
	}
	return m.Name
}

// TemplateItem is one row of the template browser.
type TemplateItem struct {
	Path    string
	Name    string
	Preview string
	Media   []MediaItem
}

// LoadFolder lists the templates in folder with their ranked media and
// the preview that would be shown for each.
func LoadFolder(folder string) ([]TemplateItem, error) {
	paths, err := storage.ListTemplates(folder)
	if err != nil {
		return nil, err
	}
	items := make([]TemplateItem, 0, len(paths))
	for _, p := range paths {
		items = append(items, LoadTemplateItem(p))
	}
	return items, nil
}

// LoadTemplateItem resolves the media of a single template.
func LoadTemplateItem(path string) TemplateItem {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	matches := storage.FindRelatedMedia(filepath.Dir(path), stem).Paths()
	it := TemplateItem{
		Path:    path,
		Name:    filepath.Base(path),
		Preview: storage.PickPreview(path, matches),
	}
	for _, m := range matches {
		it.Media = append(it.Media, MediaItem{
			Path:    m,
			Name:    filepath.Base(m),
			Video:   domain.IsVideo(m),
			Default: storage.IsDefault(path, m),
		})
	}
	return it
}

// PreviewCaption describes what the preview pane shows for it.
func (it TemplateItem) PreviewCaption() string {
	if it.Preview == "" {
		if len(it.Media) > 0 {
			return fmt.Sprintf("%s: no image preview (%d media)", it.Name, len(it.Media))
		}
		return it.Name + ": no preview"
	}
	return filepath.Base(it.Preview)
}

// Thumbnailer produces encoded thumbnails, typically the catalog cache.
type Thumbnailer interface {
	Thumbnail(ctx context.Context, mediaPath string, box thumbnail.Size) ([]byte, error)
}

// thumbBytes renders path through src when available and falls back to
// decoding the file directly.
func thumbBytes(ctx context.Context, src Thumbnailer, path string, box thumbnail.Size) ([]byte, error) {
	if src != nil {
		if b, err := src.Thumbnail(ctx, path, box); err == nil {
			return b, nil
		}
	}
	return thumbnail.Render(path, box)
}

// chooserTitle is the prompt of the default-image dialog.
func chooserTitle(n int) string {
	return fmt.Sprintf("Choose the default image (%d found)", n)
}
