//go:build !sqlite_cgo

package state

import (
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DriverName is the database/sql driver the store opens.
const DriverName = "sqlite"
