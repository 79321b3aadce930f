// Package pkgcode centralizes the CodeError offset reserved by each package
// in this module, the same way nabbar-golib's archive/archive, ftpclient and
// database packages each expose a MinPkgXxx constant that their sibling
// error.go files build their CodeError block on top of (via
// "iota + arcmod.MinPkgArchive"). Reserving the ranges in one file prevents
// two packages from ever registering overlapping codes.
package pkgcode

import liberr "github.com/sabouaram/barsys/errors"

const (
	MinPkgSemaphore liberr.CodeError = 4000 + iota*200
	MinPkgChunk
	MinPkgCompress
	MinPkgCrypt
	MinPkgStorage
	MinPkgArchive
	MinPkgIndex
	MinPkgJob
	MinPkgScheduler
	MinPkgWire
	MinPkgConnector
	MinPkgLogger
)

// Storage backend sub-packages each reserve a slice of MinPkgStorage's
// 200-wide range rather than getting one of their own, since they are
// never registered or initialized independently of the storage package
// whose interface they implement.
const (
	MinPkgStorageLocal   = MinPkgStorage + 20
	MinPkgStorageFTP     = MinPkgStorage + 40
	MinPkgStorageSFTP    = MinPkgStorage + 60
	MinPkgStorageWebDAV  = MinPkgStorage + 80
	MinPkgStorageOptical = MinPkgStorage + 100
)

// MinPkgIndexGorm reserves a slice of MinPkgIndex's range for the gorm
// persistence implementation, the same way each storage backend reserves
// a slice of MinPkgStorage's range: index/gorm is never registered or
// initialized independently of the index package whose Store contract it
// implements.
const (
	MinPkgIndexGorm = MinPkgIndex + 20
)
