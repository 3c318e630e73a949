/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package crash

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"promptmanager/internal/domain"
	"promptmanager/internal/session"
)

func redirectReports(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old := reportDir
	reportDir = func() string { return dir }
	t.Cleanup(func() { reportDir = old })
	return dir
}

func silenceStderr(t *testing.T) {
	t.Helper()
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	t.Cleanup(func() {
		_ = w.Close()
		os.Stderr = old
		_, _ = io.Copy(io.Discard, r)
	})
}

func findFile(t *testing.T, dir, prefix string) string {
	t.Helper()
	ents, _ := os.ReadDir(dir)
	for _, e := range ents {
		if strings.HasPrefix(e.Name(), prefix) {
			return filepath.Join(dir, e.Name())
		}
	}
	return ""
}

func TestWriteReportWithoutSession(t *testing.T) {
	dir := redirectReports(t)
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("report written to %s", path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "Prompt Manager Crash Report") || !strings.Contains(s, "Panic: boom") {
		t.Fatalf("unexpected report: %s", s)
	}
}

func TestRecoverSavesPromptsAndRemovesScratch(t *testing.T) {
	dir := redirectReports(t)
	silenceStderr(t)
	code := 0
	oldExit := exitFn
	exitFn = func(c int) { code = c }
	t.Cleanup(func() { exitFn = oldExit })

	sd := t.TempDir()
	sess, err := session.Open(session.Options{ScratchDir: sd, SettingsPath: filepath.Join(sd, "s.json")})
	if err != nil {
		t.Fatal(err)
	}
	sess.Edit(domain.PromptState{Top: "unsaved", Negative: "neg"})
	if _, err := sess.AddToBatch(); err != nil {
		t.Fatal(err)
	}

	func() {
		defer Recover(sess)
		panic("boom")
	}()

	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	if sess.Scratch.Exists() {
		t.Fatalf("scratch file should be removed after a crash")
	}
	report := findFile(t, dir, "sdpm-crash-")
	if report == "" {
		t.Fatalf("crash report missing")
	}
	b, _ := os.ReadFile(report)
	if !strings.Contains(string(b), "BatchLines: 1") {
		t.Fatalf("report lacks session info: %s", b)
	}
	rec := findFile(t, dir, "sdpm-recovered-")
	if rec == "" {
		t.Fatalf("recovered prompts missing")
	}
	b, _ = os.ReadFile(rec)
	if !strings.Contains(string(b), "top: unsaved") || !strings.Contains(string(b), "[batch]\nunsaved") {
		t.Fatalf("unexpected recovery file: %s", b)
	}
}

func TestRecoverWithoutPanicIsNoop(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	t.Cleanup(func() { exitFn = oldExit })
	func() { defer Recover(nil) }()
	if called {
		t.Fatalf("exit must not be called without a panic")
	}
}
