/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package history keeps linear undo/redo stacks of prompt states.
//
// The undo stack's top is always the state currently shown in the editor.
// Snapshots are deduplicated against that top on raw field content, so a
// whitespace-only edit is a distinct state.
package history

import (
	"errors"
	"sync"

	"promptmanager/internal/domain"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Config controls the depth cap.
type Config struct {
	// MaxDepth limits the undo stack length; the oldest entries are dropped
	// first. Zero means unlimited.
	MaxDepth int
}

// Manager provides in-memory undo/redo over PromptState snapshots.
// It is safe for concurrent use.
type Manager struct {
	cfg      Config
	mu       sync.Mutex
	undo     []domain.PromptState
	redo     []domain.PromptState
	applying int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = 0
	}
	return &Manager{cfg: cfg}
}

// Snapshot records s when the stack is empty or s differs from the current
// top, clearing the redo stack. It reports whether a push happened.
// Snapshots requested from inside Apply are ignored.
func (m *Manager) Snapshot(s domain.PromptState) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applying > 0 {
		return false
	}
	if n := len(m.undo); n > 0 && m.undo[n-1].Equal(s) {
		return false
	}
	m.undo = append(m.undo, s)
	m.redo = nil
	m.enforceCapLocked()
	return true
}

// Undo moves the current state to the redo stack and returns the state
// before it. With a single entry it returns ErrNothingToUndo and changes nothing.
func (m *Manager) Undo() (domain.PromptState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.undo)
	if n <= 1 {
		return domain.PromptState{}, ErrNothingToUndo
	}
	top := m.undo[n-1]
	m.undo = m.undo[:n-1]
	m.redo = append(m.redo, top)
	return m.undo[n-2], nil
}

// Redo moves the most recently undone state back onto the undo stack and
// returns it.
func (m *Manager) Redo() (domain.PromptState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.redo)
	if n == 0 {
		return domain.PromptState{}, ErrNothingToRedo
	}
	s := m.redo[n-1]
	m.redo = m.redo[:n-1]
	m.undo = append(m.undo, s)
	m.enforceCapLocked()
	return s, nil
}

// Apply runs fn with snapshotting suspended. Callers use it to write a state
// returned by Undo/Redo back into widgets whose change handlers would
// otherwise call Snapshot.
func (m *Manager) Apply(fn func()) {
	m.mu.Lock()
	m.applying++
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.applying--
		m.mu.Unlock()
	}()
	fn()
}

// Current returns the top of the undo stack.
func (m *Manager) Current() (domain.PromptState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.undo) == 0 {
		return domain.PromptState{}, false
	}
	return m.undo[len(m.undo)-1], true
}

// CanUndo reports whether Undo would succeed.
func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo) > 1
}

// CanRedo reports whether Redo would succeed.
func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo) > 0
}

// Stats returns the stack lengths for diagnostics.
func (m *Manager) Stats() (undoLen, redoLen int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo), len(m.redo)
}

// Reset drops both stacks.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo = nil
	m.redo = nil
}

func (m *Manager) enforceCapLocked() {
	if m.cfg.MaxDepth <= 0 || len(m.undo) <= m.cfg.MaxDepth {
		return
	}
	drop := len(m.undo) - m.cfg.MaxDepth
	m.undo = append([]domain.PromptState(nil), m.undo[drop:]...)
}
