/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package batch

import (
	"errors"
	"reflect"
	"testing"

	"promptmanager/internal/domain"
)

func TestClean(t *testing.T) {
	cases := map[string]string{
		"  a  b\t\nc ": "a b c",
		"":             "",
		" \n\t ":       "",
		"x\u00a0\u00a0y":  "x y",
	}
	for in, want := range cases {
		if got := Clean(in); got != want {
			t.Errorf("Clean(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAddRejectsEmpty(t *testing.T) {
	var l List
	if _, err := l.Add("a", "", ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	_, err := l.Add("", "  ", "\n")
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if got := l.Entries(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("entries = %q", got)
	}
}

func TestAddJoinsCleanedParts(t *testing.T) {
	var l List
	if _, err := l.Add(" a ", "b", ""); err != nil {
		t.Fatal(err)
	}
	if got, _ := l.At(0); got != "a, __________ ,b" {
		t.Fatalf("entry = %q", got)
	}
}

func TestEditReplacesInPlace(t *testing.T) {
	var l List
	l.Add("old", "", "")
	if err := l.Edit(0, "x", "y", "z"); err != nil {
		t.Fatal(err)
	}
	if got, _ := l.At(0); got != "x, __________ ,y, __________ ,z" {
		t.Fatalf("entry = %q", got)
	}
	if l.Len() != 1 {
		t.Fatalf("len = %d", l.Len())
	}
}

func TestEditEmptyIsDiscarded(t *testing.T) {
	var l List
	l.Add("first", "", "")
	l.Add("second", "", "")
	if err := l.Edit(1, " ", "", ""); !errors.Is(err, ErrEditDiscarded) {
		t.Fatalf("expected ErrEditDiscarded, got %v", err)
	}
	if got, _ := l.At(1); got != "second" {
		t.Fatalf("original entry must remain, got %q", got)
	}
	if err := l.Edit(5, "a", "", ""); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestRemoveAndMove(t *testing.T) {
	var l List
	for _, s := range []string{"a", "b", "c"} {
		l.Add(s, "", "")
	}
	idx, err := l.Move(0, -1)
	if err != nil || idx != 0 {
		t.Fatalf("move above top should be a no-op, idx=%d err=%v", idx, err)
	}
	idx, err = l.Move(2, 1)
	if err != nil || idx != 2 {
		t.Fatalf("move below bottom should be a no-op, idx=%d err=%v", idx, err)
	}
	if got := l.Entries(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("no-op moves changed order: %q", got)
	}
	idx, _ = l.Move(0, 1)
	if idx != 1 || !reflect.DeepEqual(l.Entries(), []string{"b", "a", "c"}) {
		t.Fatalf("move down failed: idx=%d %q", idx, l.Entries())
	}
	idx, _ = l.Move(2, -1)
	if idx != 1 || !reflect.DeepEqual(l.Entries(), []string{"b", "c", "a"}) {
		t.Fatalf("move up failed: idx=%d %q", idx, l.Entries())
	}
	if _, err := l.Move(0, 2); err == nil {
		t.Fatalf("delta 2 must be rejected")
	}
	if err := l.Remove(1); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(l.Entries(), []string{"b", "a"}) {
		t.Fatalf("remove failed: %q", l.Entries())
	}
	if err := l.Remove(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestClearRequiresConfirmation(t *testing.T) {
	var l List
	l.Add("a", "", "")
	if l.Clear(nil) || l.Clear(func() bool { return false }) {
		t.Fatalf("clear without confirmation must not empty the batch")
	}
	if l.Len() != 1 {
		t.Fatalf("batch changed without confirmation")
	}
	if !l.Clear(func() bool { return true }) || l.Len() != 0 {
		t.Fatalf("confirmed clear failed")
	}
	if l.CountLabel() != "Lines in Batch: 0" {
		t.Fatalf("label = %q", l.CountLabel())
	}
}

func TestSerialize(t *testing.T) {
	var l List
	_, err := l.Serialize()
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for empty batch, got %v", err)
	}
	l.Add("a", "b", "")
	l.Add("c", "", "")
	got, err := l.Serialize()
	if err != nil || got != "a, __________ ,b\nc" {
		t.Fatalf("serialize = %q err=%v", got, err)
	}
}

func TestSplit(t *testing.T) {
	cases := []struct {
		in   string
		want [3]string
	}{
		{"x, __________ ,y, __________ ,z", [3]string{"x", "y", "z"}},
		{"x, __________ ,y", [3]string{"x", "y", ""}},
		{"hand edited", [3]string{"hand edited", "", ""}},
		{"a, __________ ,b, __________ ,c, __________ ,d", [3]string{"a", "b", "c"}},
	}
	for _, c := range cases {
		if got := Split(c.in); got != c.want {
			t.Errorf("Split(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
