// Copyright 2025 The Outline Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging sets up the process-wide structured logger shared by
// both relay binaries.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// New builds a slog.Logger that writes human-readable lines to stderr and,
// if logFile is non-empty, appends the same lines to that file. Lines are
// colorized only when stderr is a terminal, and then the file receives the
// color codes too. level is parsed with ParseLevel.
func New(levelName, logFile string) (*slog.Logger, error) {
	level, err := ParseLevel(levelName)
	if err != nil {
		return nil, err
	}

	writer := io.Writer(os.Stderr)
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logging: failed to open log file %s: %w", logFile, err)
		}
		writer = io.MultiWriter(os.Stderr, f)
	}

	handler := tint.NewHandler(writer, &tint.Options{
		NoColor: !term.IsTerminal(int(os.Stderr.Fd())),
		Level:   level,
	})
	return slog.New(handler), nil
}

// ParseLevel maps a config string to a slog.Level, defaulting to Info for
// an empty string.
func ParseLevel(name string) (slog.Level, error) {
	switch name {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("logging: unknown log level %q", name)
	}
}
