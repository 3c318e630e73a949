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
	"strings"

	"promptmanager/internal/domain"
)

// TemplateExt is the file extension of template documents.
const TemplateExt = ".json"

// ImageChooser picks one of several candidate images (absolute paths) as the
// default preview. It returns the chosen path or "" to record no default.
type ImageChooser func(candidates []string) string

// Save writes s as a template document to path. Related images for the
// template stem are resolved first: a single image is recorded as
// default_image, several are offered to choose, none leaves the field out.
// The returned document is what was written.
func Save(path string, s domain.PromptState, choose ImageChooser) (domain.TemplateDoc, error) {
	doc := domain.NewTemplateDoc(s)
	folder, stem := splitTemplatePath(path)
	images := FindRelatedMedia(folder, stem).Images()
	switch {
	case len(images) == 1:
		doc.DefaultImage = filepath.Base(images[0])
	case len(images) > 1 && choose != nil:
		if picked := choose(images); picked != "" {
			doc.DefaultImage = filepath.Base(picked)
		}
	}
	if err := writeDocument(path, doc); err != nil {
		return domain.TemplateDoc{}, err
	}
	return doc, nil
}

// Load reads the template at path and returns its prompt state. Missing keys
// read as empty strings. Any failure is reported as *domain.LoadError.
func Load(path string) (domain.PromptState, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return domain.PromptState{}, err
	}
	return doc.State(), nil
}

// ReadDocument reads and validates the whole template document at path.
func ReadDocument(path string) (domain.TemplateDoc, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.TemplateDoc{}, &domain.LoadError{Path: path, Err: err}
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if err := validateTemplate(raw); err != nil {
		return domain.TemplateDoc{}, &domain.LoadError{Path: path, Err: err}
	}
	var doc domain.TemplateDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.TemplateDoc{}, &domain.LoadError{Path: path, Err: err}
	}
	return doc, nil
}

// SetDefaultImage rewrites the default_image field of the template at path.
// An empty name removes the field.
func SetDefaultImage(path, name string) error {
	doc, err := ReadDocument(path)
	if err != nil {
		return err
	}
	if name != "" {
		name = filepath.Base(name)
	}
	doc.DefaultImage = name
	return writeDocument(path, doc)
}

// EncodeDocument renders doc the way it is stored on disk: UTF-8 JSON with a
// four space indent and a trailing newline.
func EncodeDocument(doc domain.TemplateDoc) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeDocument(path string, doc domain.TemplateDoc) error {
	data, err := EncodeDocument(doc)
	if err != nil {
		return &domain.SaveError{Path: path, Err: err}
	}
	if err := writeFileAtomic(path, data); err != nil {
		return &domain.SaveError{Path: path, Err: err}
	}
	Default.Invalidate(path)
	return nil
}

// splitTemplatePath returns the folder and the stem (basename without
// extension) of a template path.
func splitTemplatePath(path string) (folder, stem string) {
	folder = filepath.Dir(path)
	base := filepath.Base(path)
	stem = strings.TrimSuffix(base, filepath.Ext(base))
	return folder, stem
}

// ListTemplates returns the template files of folder sorted by name.
func ListTemplates(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), TemplateExt) {
			continue
		}
		out = append(out, filepath.Join(folder, e.Name()))
	}
	return out, nil
}
