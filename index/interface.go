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

package index

import (
	"time"

	liberr "github.com/sabouaram/barsys/errors"
)

// NewEntryParams is the information needed to catalogue one archived
// path; Kind-specific fields that don't apply to a given kind are left
// zero.
type NewEntryParams struct {
	Kind  EntryKind
	Name  string
	Size  int64
	Mtime time.Time
}

// Store is the catalogue's full contract: every operation the core
// archive/job machinery uses to record and query what has been
// archived. A single implementation (index/gorm) backs it.
type Store interface {
	// FindUUID looks up a logical job identity by its job UUID, creating
	// nothing; ok is false when no such identity has ever been recorded.
	FindUUID(jobUUID string) (u UUID, ok bool, err liberr.Error)

	// NewUUID records a fresh logical job identity the first time a job
	// with jobUUID is ever run.
	NewUUID(jobUUID, name string) (UUID, liberr.Error)

	// NewEntity opens a new archive run under uuidID, returning the
	// created Entity row.
	NewEntity(uuidID, scheduleUUID string, archiveType ArchiveType) (Entity, liberr.Error)

	// NewStorage records a produced volume/file under entityID.
	NewStorage(entityID, name string, mode StorageMode) (Storage, liberr.Error)

	// AddFile/AddImage/AddDirectory/AddLink/AddHardlink/AddSpecial each
	// catalogue one archived path under storageID, marking it Newest and
	// clearing that flag on any prior entry of the same name under the
	// same UUID.
	AddFile(storageID string, p NewEntryParams) (Entry, liberr.Error)
	AddImage(storageID string, p NewEntryParams) (Entry, liberr.Error)
	AddDirectory(storageID string, p NewEntryParams) (Entry, liberr.Error)
	AddLink(storageID string, p NewEntryParams) (Entry, liberr.Error)
	AddHardlink(storageID string, p NewEntryParams) (Entry, liberr.Error)
	AddSpecial(storageID string, p NewEntryParams) (Entry, liberr.Error)

	// SetStorageState transitions a Storage row's state.
	SetStorageState(storageID string, state StorageState) liberr.Error

	// UpdateStorage replaces a Storage row's mutable fields (size, mode)
	// in place.
	UpdateStorage(storageID string, size int64, mode StorageMode) liberr.Error

	// UpdateStorageInfos recomputes a Storage row's aggregate columns
	// (entry count) from its current Entry rows.
	UpdateStorageInfos(storageID string) liberr.Error

	// UpdateEntityInfos recomputes an Entity row's aggregate columns
	// (storage count, entry count, total bytes) from its current Storage
	// rows, and rolls them up into the owning UUID row.
	UpdateEntityInfos(entityID string) liberr.Error

	// PurgeStorage marks one Storage row deleted without removing it; its
	// Entry rows are left untouched by this call.
	PurgeStorage(storageID string) liberr.Error

	// PurgeAllStoragesByID marks every Storage row under entityID
	// deleted.
	PurgeAllStoragesByID(entityID string) liberr.Error

	// PurgeAllStoragesByName marks every Storage row named name deleted,
	// across every Entity.
	PurgeAllStoragesByName(name string) liberr.Error

	// PurgeEntity marks entityID deleted; its Storage rows are left
	// untouched by this call (see PurgeAllStoragesByID).
	PurgeEntity(entityID string) liberr.Error

	// PruneEntity physically removes entityID once it is marked deleted
	// and has no remaining Storage rows. A no-op, not an error, when
	// either condition does not hold.
	PruneEntity(entityID string) liberr.Error

	// PurgeUUID marks every Entity under uuidID deleted.
	PurgeUUID(uuidID string) liberr.Error

	// PruneUUID physically removes uuidID once every Entity beneath it
	// has been pruned.
	PruneUUID(uuidID string) liberr.Error

	// UnlockEntity clears the owning UUID's Locked flag unconditionally;
	// it does not check whether entityID's run is still in progress.
	UnlockEntity(entityID string) liberr.Error

	// DeleteEntity removes entityID and its Storage/Entry rows
	// immediately, bypassing the purge/prune two-phase cycle; refuses
	// when the owning UUID is Locked.
	DeleteEntity(entityID string) liberr.Error

	// NewHistory appends one run-outcome record, independent of that
	// run's Entity/Storage rows' later purge/prune state.
	NewHistory(h History) (History, liberr.Error)

	// FindUUIDWithStats is "find UUID with execution statistics": a
	// single indexed read returning the UUID row with its aggregate
	// columns already populated.
	FindUUIDWithStats(jobUUID string) (UUID, bool, liberr.Error)

	// ListStoragesForEntity is "list storages for an entity".
	ListStoragesForEntity(entityID string) ([]Storage, liberr.Error)

	// ListEntriesForStorage is "list entries for a storage".
	ListEntriesForStorage(storageID string) ([]Entry, liberr.Error)

	// ListNewestEntriesMatching is "list newest entries matching a
	// pattern": pattern is a SQL LIKE pattern matched against Entry.Name
	// among rows under uuidID with Newest set.
	ListNewestEntriesMatching(uuidID, pattern string) ([]Entry, liberr.Error)

	// Close releases the underlying database connection.
	Close() liberr.Error
}
