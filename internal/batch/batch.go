/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package batch holds the ordered list of combined prompts queued for export.
package batch

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"promptmanager/internal/domain"
)

// Delimiter separates the top, middle and bottom parts inside a batch entry.
const Delimiter = ", __________ ,"

var (
	ErrIndexOutOfRange = errors.New("batch index out of range")
	// ErrEditDiscarded is returned by Edit when the new parts join to an empty
	// prompt; the original entry is kept.
	ErrEditDiscarded = errors.New("edit discarded: empty prompt")
)

// Clean collapses every whitespace run to a single space and trims the ends.
func Clean(s string) string { return strings.Join(strings.Fields(s), " ") }

// Join cleans each part and joins the non-empty ones with Delimiter.
func Join(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if c := Clean(p); c != "" {
			kept = append(kept, c)
		}
	}
	return strings.Join(kept, Delimiter)
}

// Split breaks an entry back into its top, middle and bottom parts.
// Entries with fewer parts leave the remaining slots blank; parts beyond the
// third are dropped.
func Split(entry string) [3]string {
	var out [3]string
	for i, p := range strings.Split(entry, Delimiter) {
		if i >= len(out) {
			break
		}
		out[i] = p
	}
	return out
}

// List is the ordered batch. The zero value is ready to use.
type List struct {
	mu      sync.RWMutex
	entries []string
}

// Add appends the joined prompt. An empty result is refused with a
// *domain.ValidationError and the list is unchanged.
func (l *List) Add(top, middle, bottom string) (int, error) {
	entry := Join(top, middle, bottom)
	if entry == "" {
		return -1, &domain.ValidationError{Op: "add to batch", Msg: "cannot add an empty prompt"}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return len(l.entries) - 1, nil
}

// Edit replaces the entry at index in place.
func (l *List) Edit(index int, top, middle, bottom string) error {
	entry := Join(top, middle, bottom)
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkLocked(index); err != nil {
		return err
	}
	if entry == "" {
		return ErrEditDiscarded
	}
	l.entries[index] = entry
	return nil
}

// Remove deletes the entry at index.
func (l *List) Remove(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkLocked(index); err != nil {
		return err
	}
	l.entries = append(l.entries[:index], l.entries[index+1:]...)
	return nil
}

// Move shifts the entry at index by delta (+1 or -1) and returns its new
// index. When the target falls outside the list nothing moves and the
// original index is returned; there is no wraparound.
func (l *List) Move(index, delta int) (int, error) {
	if delta != 1 && delta != -1 {
		return index, fmt.Errorf("move delta must be +1 or -1, got %d", delta)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkLocked(index); err != nil {
		return index, err
	}
	target := index + delta
	if target < 0 || target >= len(l.entries) {
		return index, nil
	}
	l.entries[index], l.entries[target] = l.entries[target], l.entries[index]
	return target, nil
}

// Clear empties the list when confirm returns true. It reports whether the
// list was cleared. A nil confirm is treated as a refusal.
func (l *List) Clear(confirm func() bool) bool {
	if confirm == nil || !confirm() {
		return false
	}
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
	return true
}

// Serialize joins all entries with newlines. An empty batch yields a
// *domain.ValidationError.
func (l *List) Serialize() (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 {
		return "", &domain.ValidationError{Op: "export batch", Msg: "batch is empty, nothing to save"}
	}
	return strings.Join(l.entries, "\n"), nil
}

// At returns the entry at index.
func (l *List) At(index int) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if err := l.checkLocked(index); err != nil {
		return "", err
	}
	return l.entries[index], nil
}

// Entries returns a copy of the entries in order.
func (l *List) Entries() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.entries...)
}

// Len returns the number of entries.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// CountLabel is the status line shown under the batch list.
func (l *List) CountLabel() string { return fmt.Sprintf("Lines in Batch: %d", l.Len()) }

func (l *List) checkLocked(index int) error {
	if index < 0 || index >= len(l.entries) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, len(l.entries))
	}
	return nil
}
