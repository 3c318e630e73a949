/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package version exposes build information injected via ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Set via -ldflags "-X promptmanager/internal/version.Version=..." at release time.
var (
	Version = "0.3.0-dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String returns a one-line human readable version.
func String() string {
	s := Version
	if Commit != "" && Commit != "unknown" {
		s += " (" + Commit + ")"
	}
	return s
}

// Long returns a multi-line description including the toolchain and platform.
func Long() string {
	return fmt.Sprintf("promptmanager %s\n  commit: %s\n  built: %s\n  go: %s\n  platform: %s/%s",
		Version, Commit, Date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
