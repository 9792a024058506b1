//go:build sqlite_cgo

package state

import (
	_ "github.com/mattn/go-sqlite3" // CGO SQLite driver
)

// DriverName is the database/sql driver the store opens.
const DriverName = "sqlite3"
