// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

//go:build !windows

package config

import (
	"io/fs"
	"log/slog"
	"os"
)

// WarnInsecurePermissions logs a warning when path (the vector database or
// the config file) is group- or world-readable, and reports whether it did.
// Stored metadata holds the user's memories verbatim. It never fails.
func WarnInsecurePermissions(path string) bool {
	if path == "" {
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		slog.Debug("could not stat file for permission check", "path", path, "error", err)
		return false
	}

	mode := info.Mode()
	perm := mode.Perm()

	const groupRead fs.FileMode = 0o040
	const otherRead fs.FileMode = 0o004

	if perm&(groupRead|otherRead) == 0 {
		return false
	}
	slog.Warn(
		"file has insecure permissions, stored memories may be readable by other users",
		"path", path,
		"mode", mode,
		"recommended", "0600",
	)
	return true
}
