/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package crash turns an unrecovered panic into a crash report, keeps the
// unsaved batch and prompt fields, removes the scratch file and exits.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	applog "promptmanager/internal/log"
	"promptmanager/internal/session"
	"promptmanager/internal/telemetry"
	"promptmanager/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// reportDir is where crash reports and recovered batches are written.
var reportDir = os.TempDir

// Recover captures a panic, logs it with a stacktrace, writes an error
// report, saves the session's batch and prompt fields next to it and removes
// the session's scratch file.
//
// Usage: defer crash.Recover(sess)
func Recover(sess *session.Session) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, err := writeReport(sess, r, stack)
		if err != nil {
			l.Error("write crash report failed", slog.Any("err", err))
		}
		if sess != nil {
			if path, err := writeRecovery(sess); err != nil {
				l.Error("saving recovered prompts failed", slog.Any("err", err))
			} else if path != "" {
				l.Info("recovered prompts written", slog.String("path", path))
				_, _ = fmt.Fprintf(os.Stderr, "Unsaved prompts were written to: %s\n", path)
			}
			sess.Scratch.Remove()
		}

		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		exitFn(2)
	}
}

func stamp() string { return time.Now().Format("20060102-150405") }

func writeReport(sess *session.Session, panicVal any, stack []byte) (string, error) {
	path := filepath.Join(reportDir(), fmt.Sprintf("sdpm-crash-%s.log", stamp()))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Prompt Manager Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if sess != nil {
		_, _ = fmt.Fprintf(&buf, "Template: %s\n", sess.TemplatePath())
		_, _ = fmt.Fprintf(&buf, "BatchLines: %d\n", sess.Batch.Len())
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}

// writeRecovery saves the batch and the four prompt fields so nothing typed
// is lost. It returns "" when there is nothing to save.
func writeRecovery(sess *session.Session) (string, error) {
	st := sess.State()
	entries := sess.Batch.Entries()
	if st.IsZero() && len(entries) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "[prompt]\ntop: %s\nmiddle: %s\nbottom: %s\nnegative: %s\n", st.Top, st.Middle, st.Bottom, st.Negative)
	if len(entries) > 0 {
		_, _ = fmt.Fprintf(&buf, "\n[batch]\n%s\n", strings.Join(entries, "\n"))
	}
	path := filepath.Join(reportDir(), fmt.Sprintf("sdpm-recovered-%s.txt", stamp()))
	return path, os.WriteFile(path, buf.Bytes(), 0o644)
}
