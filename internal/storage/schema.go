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
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// templateSchema describes the template document. Every key is optional and
// null is accepted wherever a string is expected; both read back as "".
const templateSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Prompt template",
  "type": "object",
  "properties": {
    "prompt_parts": {
      "type": ["object", "null"],
      "properties": {
        "top":    {"type": ["string", "null"]},
        "middle": {"type": ["string", "null"]},
        "bottom": {"type": ["string", "null"]}
      }
    },
    "negative_prompt": {"type": ["string", "null"]},
    "default_image":   {"type": ["string", "null"]}
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

// TemplateSchema returns the JSON Schema used to validate template files.
func TemplateSchema() string { return templateSchema }

// validateTemplate checks raw against the template schema.
func validateTemplate(raw []byte) error {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(templateSchema))
	})
	if schemaErr != nil {
		return fmt.Errorf("compile template schema: %w", schemaErr)
	}
	res, err := compiledSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("malformed JSON: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return errors.New("invalid template: " + strings.Join(msgs, "; "))
}
