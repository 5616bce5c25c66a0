//go:build sqlite_cgo
// +build sqlite_cgo

package ledger

// This file is compiled when building with CGO and the sqlite_cgo tag.
// It links the system SQLite library through cgo.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "sqlite_cgo" ./...
//
// The CGO driver provides:
//   - Faster writes under large upload batches
//   - The battle-tested C SQLite implementation
//   - Requires a C toolchain on the build host
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
