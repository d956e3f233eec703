// Package blob selects the archive store used for backup copies and
// re-exports the core blob contract.
package blob

import (
	"clinicdesk/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	// ErrExists indicates a Put onto an existing key.
	ErrExists = core.ErrExists
	// ErrNotFound indicates an unknown key.
	ErrNotFound = core.ErrNotFound
)
