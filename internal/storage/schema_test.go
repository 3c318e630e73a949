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
	"strings"
	"testing"
)

func TestValidateTemplate(t *testing.T) {
	valid := []string{
		`{}`,
		`{"prompt_parts": {"top": "a", "middle": "", "bottom": "c"}, "negative_prompt": "n", "default_image": "x.png"}`,
		`{"prompt_parts": null, "extra": [1, 2, 3]}`,
	}
	for _, doc := range valid {
		if err := validateTemplate([]byte(doc)); err != nil {
			t.Fatalf("%s: unexpected error %v", doc, err)
		}
	}
	invalid := []string{
		`"just a string"`,
		`{"prompt_parts": "flat"}`,
		`{"negative_prompt": false}`,
		`{"prompt_parts": {"bottom": ["x"]}}`,
	}
	for _, doc := range invalid {
		err := validateTemplate([]byte(doc))
		if err == nil || !strings.Contains(err.Error(), "invalid template") {
			t.Fatalf("%s: expected schema violation, got %v", doc, err)
		}
	}
	if err := validateTemplate([]byte(`{`)); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestTemplateSchemaIsJSON(t *testing.T) {
	if !strings.Contains(TemplateSchema(), `"negative_prompt"`) {
		t.Fatalf("schema missing negative_prompt")
	}
}
