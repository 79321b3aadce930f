/*
 * MIT License
 *
 * Copyright (c) 2023 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package index defines the four-level relational catalogue a backup
// system consults to answer "what has been archived" without reparsing
// any volume: one UUID per logical job identity, one Entity per archive
// run, one Storage per produced volume, one Entry per archived path.
// This package only carries the contract (Store) and the plain domain
// types it operates on; index/gorm is the persistence implementation.
package index

import (
	"time"

	"github.com/hashicorp/go-uuid"
)

// StorageState tracks a produced volume/file through its lifecycle.
type StorageState uint8

const (
	StorageNone StorageState = iota
	StorageOK
	StorageCreate
	StorageUpdateRequested
	StorageUpdate
	StorageError
)

func (s StorageState) String() string {
	switch s {
	case StorageOK:
		return "ok"
	case StorageCreate:
		return "create"
	case StorageUpdateRequested:
		return "update-requested"
	case StorageUpdate:
		return "update"
	case StorageError:
		return "error"
	default:
		return "none"
	}
}

// StorageMode records whether a Storage row was produced by an
// unattended schedule or by an operator-triggered run.
type StorageMode uint8

const (
	ModeManual StorageMode = iota
	ModeAuto
)

func (m StorageMode) String() string {
	if m == ModeAuto {
		return "auto"
	}
	return "manual"
}

// EntryKind mirrors archive.EntryType without importing the archive
// package: the catalogue must stay queryable (and migratable) even by
// tools that never link the archive codec itself.
type EntryKind uint8

const (
	EntryFile EntryKind = iota
	EntryImage
	EntryDirectory
	EntrySymlink
	EntryHardlink
	EntrySpecial
)

func (k EntryKind) String() string {
	switch k {
	case EntryFile:
		return "file"
	case EntryImage:
		return "image"
	case EntryDirectory:
		return "directory"
	case EntrySymlink:
		return "symlink"
	case EntryHardlink:
		return "hardlink"
	case EntrySpecial:
		return "special"
	default:
		return "unknown"
	}
}

// ArchiveType distinguishes a full run from one that only captures
// changes since a prior run.
type ArchiveType uint8

const (
	ArchiveFull ArchiveType = iota
	ArchiveIncremental
	ArchiveDifferential
	ArchiveContinuous
)

func (t ArchiveType) String() string {
	switch t {
	case ArchiveIncremental:
		return "incremental"
	case ArchiveDifferential:
		return "differential"
	case ArchiveContinuous:
		return "continuous"
	default:
		return "full"
	}
}

// UUID is one logical job identity, stable across every run of that
// job regardless of how many times its schedule fires.
type UUID struct {
	ID        string
	JobUUID   string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Locked is set while an Entity under this UUID is running, cleared
	// by UnlockEntity, and inspected by DeleteEntity to refuse deleting
	// an in-flight run.
	Locked bool

	// Aggregate columns maintained by UpdateEntityInfos/UpdateStorageInfos
	// rolling up through their owning Entity rows, so "find UUID with
	// execution statistics" is a single indexed read.
	EntityCount int64
	TotalBytes  int64
	LastRunAt   time.Time
}

// Entity is one archive run: a single job execution, identified by the
// (jobUUID, scheduleUUID, createdAt, archiveType) tuple.
type Entity struct {
	ID           string
	UUIDID       string
	ScheduleUUID string
	ArchiveType  ArchiveType
	CreatedAt    time.Time
	UpdatedAt    time.Time

	StorageCount int64
	EntryCount   int64
	TotalBytes   int64

	// Deleted marks the entity for the two-phase purge/prune cycle:
	// PurgeEntity sets this, PruneEntity removes entities that are both
	// Deleted and have no remaining Storage rows.
	Deleted bool
}

// Storage is one produced volume or file belonging to an Entity.
type Storage struct {
	ID       string
	EntityID string

	// Denormalised for query speed, per the catalogue's own invariant
	// that every level carries its ancestors' identifiers.
	UUIDID string

	Name  string
	Size  int64
	State StorageState
	Mode  StorageMode

	CreatedAt time.Time
	UpdatedAt time.Time

	EntryCount int64
	Deleted    bool
}

// Entry is one archived path within a Storage: file, image, directory,
// symlink, hardlink, or special.
type Entry struct {
	ID        string
	StorageID string

	// Denormalised ancestors, per the catalogue invariant.
	EntityID string
	UUIDID   string

	Kind EntryKind
	Name string
	Size int64

	Mtime time.Time

	// Newest is maintained so "latest version of a path" queries never
	// scan an entry's full history.
	Newest bool

	CreatedAt time.Time
}

// History records one completed (or aborted) run's summary, independent
// of whether its Entity/Storage rows have since been pruned — the
// catalogue's audit trail survives purge/prune.
type History struct {
	ID        string
	UUIDID    string
	EntityID  string
	Outcome   string
	Message   string
	StartedAt time.Time
	EndedAt   time.Time
}

// NewID returns a fresh UUID-formatted identifier for any of the four
// catalogue levels.
func NewID() (string, error) {
	return uuid.GenerateUUID()
}
