// Package dbmigrations exposes embedded SQL migrations for borderless binaries.
package dbmigrations

import "embed"

// Files contains the embedded SQL migrations bundled into borderless binaries.
//
//go:embed *.sql
var Files embed.FS
