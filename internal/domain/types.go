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

// This file defines the core data model: the four prompt fields edited in the
// main window and the template document they are persisted as.

// PromptState is the content of the four prompt text fields.
// Two states are equal when every field matches byte for byte.
type PromptState struct {
	Top      string `json:"top"`
	Middle   string `json:"middle"`
	Bottom   string `json:"bottom"`
	Negative string `json:"negative"`
}

// Equal reports exact field-by-field equality.
func (s PromptState) Equal(o PromptState) bool { return s == o }

// IsZero reports whether all four fields are empty.
func (s PromptState) IsZero() bool { return s == PromptState{} }

// Positive returns the top, middle and bottom fields in order.
func (s PromptState) Positive() []string { return []string{s.Top, s.Middle, s.Bottom} }

// PromptParts is the positive half of a template document.
type PromptParts struct {
	Top    string `json:"top"`
	Middle string `json:"middle"`
	Bottom string `json:"bottom"`
}

// TemplateDoc is the on-disk JSON shape of a prompt template.
// DefaultImage is a bare file name resolved against the template's folder.
type TemplateDoc struct {
	PromptParts    PromptParts `json:"prompt_parts"`
	NegativePrompt string      `json:"negative_prompt"`
	DefaultImage   string      `json:"default_image,omitempty"`
}

// NewTemplateDoc builds a document from the current prompt fields.
func NewTemplateDoc(s PromptState) TemplateDoc {
	return TemplateDoc{
		PromptParts:    PromptParts{Top: s.Top, Middle: s.Middle, Bottom: s.Bottom},
		NegativePrompt: s.Negative,
	}
}

// State returns the prompt fields stored in the document.
func (d TemplateDoc) State() PromptState {
	return PromptState{
		Top:      d.PromptParts.Top,
		Middle:   d.PromptParts.Middle,
		Bottom:   d.PromptParts.Bottom,
		Negative: d.NegativePrompt,
	}
}
