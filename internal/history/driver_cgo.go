//go:build cgo_sqlite

// History store driver selection, CGO variant. Building with
// -tags cgo_sqlite (and CGO_ENABLED=1) swaps the default pure-Go
// driver for mattn/go-sqlite3.
package history

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	driverName    = "sqlite3"
	driverType    = "cgo"
	driverPackage = "github.com/mattn/go-sqlite3"
)
