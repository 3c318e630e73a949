/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package history

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"promptmanager/internal/domain"
)

// distinct turns arbitrary strings into a sequence of pairwise-adjacent distinct states.
func distinct(raw []string) []domain.PromptState {
	out := make([]domain.PromptState, len(raw))
	for i, s := range raw {
		out[i] = domain.PromptState{Top: fmt.Sprintf("%d", i), Negative: s}
	}
	return out
}

func TestProperty_UndoRedoSymmetry(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("undo n-1 times restores S1, redo n-1 times restores Sn", prop.ForAll(
		func(raw []string) bool {
			states := distinct(raw)
			m := NewManager(Config{})
			for _, s := range states {
				m.Snapshot(s)
			}
			n := len(states)
			cur := states[n-1]
			for i := 0; i < n-1; i++ {
				var err error
				if cur, err = m.Undo(); err != nil {
					return false
				}
			}
			if !cur.Equal(states[0]) {
				return false
			}
			if _, err := m.Undo(); err != ErrNothingToUndo {
				return false
			}
			for i := 0; i < n-1; i++ {
				var err error
				if cur, err = m.Redo(); err != nil {
					return false
				}
			}
			return cur.Equal(states[n-1]) && !m.CanRedo()
		},
		gen.SliceOf(gen.AnyString()).SuchThat(func(v []string) bool { return len(v) > 0 }),
	))

	properties.Property("repeated snapshot of the same state keeps length", prop.ForAll(
		func(top, neg string) bool {
			m := NewManager(Config{})
			s := domain.PromptState{Top: top, Negative: neg}
			m.Snapshot(s)
			before, _ := m.Stats()
			m.Snapshot(s)
			after, _ := m.Stats()
			return before == after
		},
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
