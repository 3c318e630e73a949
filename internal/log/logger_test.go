/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func lastJSONLine(t *testing.T, path string) map[string]any {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var last string
	sc := bufio.NewScanner(strings.NewReader(string(b)))
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines found")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}
	return m
}

// TestInitAndStructuredLoggingToFile verifies that Init with a file handler writes JSON logs
// carrying the static, component and operation attributes.
func TestInitAndStructuredLoggingToFile(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "sdpm.json")
	Init(Options{Level: "debug", Format: "json", File: fpath})
	t.Cleanup(func() { _ = Close() })

	l := WithOperation(WithComponent("testcomp"), "op1")
	l.Info("hello world", slog.String("k", "v"))

	m := lastJSONLine(t, fpath)
	if m["app"] != "promptmanager" {
		t.Fatalf("missing app attr: %v", m["app"])
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr")
	}
	if m["component"] != "testcomp" || m["op"] != "op1" {
		t.Fatalf("component/op mismatch: %v / %v", m["component"], m["op"])
	}
	if m["msg"] != "hello world" || m["k"] != "v" {
		t.Fatalf("record mismatch: %v", m)
	}
}

func TestContextAttrsAreAppended(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "ctx.json")
	Init(Options{Level: "info", Format: "json", File: fpath})
	t.Cleanup(func() { _ = Close() })

	ctx := ContextWith(context.Background(), slog.String("template", "a.json"))
	ctx = ContextWith(ctx, slog.Int("entries", 3))
	WithComponent("ctx").InfoContext(ctx, "saved")

	m := lastJSONLine(t, fpath)
	if m["template"] != "a.json" {
		t.Fatalf("template attr missing: %v", m)
	}
	if n, ok := m["entries"].(float64); !ok || n != 3 {
		t.Fatalf("entries attr missing: %v", m)
	}
}

func TestSetLevelFiltersDebug(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "lvl.json")
	Init(Options{Level: "debug", Format: "json", File: fpath})
	t.Cleanup(func() { _ = Close() })

	SetLevel("warn")
	L().Info("dropped")
	L().Warn("kept")
	m := lastJSONLine(t, fpath)
	if m["msg"] != "kept" {
		t.Fatalf("expected warn record last, got %v", m["msg"])
	}
	b, _ := os.ReadFile(fpath)
	if strings.Contains(string(b), "dropped") {
		t.Fatalf("info record should have been filtered")
	}
}
