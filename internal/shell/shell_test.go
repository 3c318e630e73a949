/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package shell

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
)

func TestCommandsPerPlatform(t *testing.T) {
	p := filepath.Join("tmp", "sd_prompt_1.txt")
	cases := []struct {
		goos string
		name string
		args []string
	}{
		{"windows", "explorer", []string{"/select,", p}},
		{"darwin", "open", []string{"-R", p}},
		{"linux", "xdg-open", []string{"tmp"}},
	}
	for _, c := range cases {
		name, args := RevealCommand(c.goos, p)
		if name != c.name || !reflect.DeepEqual(args, c.args) {
			t.Fatalf("%s: RevealCommand = %s %v", c.goos, name, args)
		}
	}
	if name, args := OpenCommand("linux", p); name != "xdg-open" || args[0] != p {
		t.Fatalf("OpenCommand = %s %v", name, args)
	}
}

func stubRun(t *testing.T, fail error) *[]string {
	t.Helper()
	var calls []string
	old := run
	run = func(name string, args ...string) error {
		calls = append(calls, name)
		return fail
	}
	t.Cleanup(func() { run = old })
	return &calls
}

func TestRevealAndOpen(t *testing.T) {
	calls := stubRun(t, nil)
	file := filepath.Join(t.TempDir(), "x.txt")
	if err := Reveal(file); !errors.Is(err, ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Reveal(file); err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if err := Open(file); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := OpenDir(filepath.Dir(file)); err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	want, _ := RevealCommand(runtime.GOOS, file)
	if len(*calls) != 3 || (*calls)[0] != want {
		t.Fatalf("unexpected calls %v", *calls)
	}
}

func TestRunFailureIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	stubRun(t, boom)
	file := filepath.Join(t.TempDir(), "x.txt")
	_ = os.WriteFile(file, nil, 0o644)
	if err := Open(file); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestCopy(t *testing.T) {
	var got string
	old := writeClipboard
	writeClipboard = func(s string) error { got = s; return nil }
	t.Cleanup(func() { writeClipboard = old })
	if err := Copy("a, __________ ,b"); err != nil || got != "a, __________ ,b" {
		t.Fatalf("Copy: %q %v", got, err)
	}
	writeClipboard = func(string) error { return errors.New("no clipboard") }
	if err := Copy("x"); err == nil {
		t.Fatalf("expected error")
	}
}
