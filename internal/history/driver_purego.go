//go:build !cgo_sqlite

// History store driver selection, default variant: the pure-Go
// modernc.org/sqlite driver, so plain go build works without CGO.
package history

import (
	_ "modernc.org/sqlite"
)

const (
	driverName    = "sqlite"
	driverType    = "purego"
	driverPackage = "modernc.org/sqlite"
)
