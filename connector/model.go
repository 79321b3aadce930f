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

// Package connector drives a job running on a remote worker process
// over a wire.Session: it is the master side of the same command set
// connector/handler.go answers on the worker side.
package connector

import "time"

// wire command names both sides of a session agree on.
const (
	cmdJobNew         = "JOB_NEW"
	cmdJobDelete      = "JOB_DELETE"
	cmdJobRename      = "JOB_RENAME"
	cmdJobOptionSet   = "JOB_OPTION_SET"
	cmdJobEndpointSet = "JOB_ENDPOINT_SET"
	cmdIncludeAdd     = "INCLUDE_LIST_ADD"
	cmdExcludeAdd     = "EXCLUDE_LIST_ADD"
	cmdMountAdd       = "MOUNT_LIST_ADD"
	cmdSourceAdd      = "SOURCE_LIST_ADD"
	cmdJobStart       = "JOB_START"
	cmdJobAbort       = "JOB_ABORT"
	cmdJobStatus      = "JOB_STATUS"
	cmdVolumeLoad     = "VOLUME_LOAD"
	cmdVolumeUnload   = "VOLUME_UNLOAD"

	cmdInitStorage    = "INIT_STORAGE"
	cmdDoneStorage    = "DONE_STORAGE"
	cmdStorageCreate  = "STORAGE_CREATE"
	cmdStorageWrite   = "STORAGE_WRITE"
	cmdStorageClose   = "STORAGE_CLOSE"
	cmdStorageExists  = "STORAGE_EXISTS"

	cmdIndexNewUUID      = "INDEX_NEW_UUID"
	cmdIndexNewEntity    = "INDEX_NEW_ENTITY"
	cmdIndexNewStorage   = "INDEX_NEW_STORAGE"
	cmdIndexPurgeStorage = "INDEX_PURGE_STORAGE"
	cmdIndexPurgeEntity  = "INDEX_PURGE_ENTITY"
	cmdIndexPurgeUUID    = "INDEX_PURGE_UUID"
	cmdIndexPruneEntity  = "INDEX_PRUNE_ENTITY"
	cmdIndexPruneUUID    = "INDEX_PRUNE_UUID"
	cmdIndexUpdateInfos  = "INDEX_UPDATE_INFOS"
)

// PollInterval is how often Create's monitoring loop issues JOB_STATUS
// while a run is active.
const PollInterval = 500 * time.Millisecond

// JobConfig is everything Create needs to stand up one run on the
// worker side: the job's identity, its path lists, its storage
// endpoint, and its option bag (job.OptCompressAlgorithm and friends).
type JobConfig struct {
	Name        string
	JobUUID     string
	Endpoint    string
	ArchiveType string // "full"|"incremental"|"differential"|"continuous"|"" (job default)
	Includes    []string
	Excludes    []string
	Mounts      []string
	Sources     []string
	Options     map[string]string
}

// Status is one JOB_STATUS snapshot, decoded from the wire rather than
// sharing job.Snapshot directly since a connector session only ever
// sees the worker's string-encoded view of it.
type Status struct {
	State       string // job.State.String()
	ArchiveType string
	EntityID    string
	Message     string
	RunError    string
	StartedAt   time.Time
	EndedAt     time.Time

	// Disconnected is set (with no other field populated beyond State,
	// forced to "disconnected") when the polling loop detects the
	// session's connection dropped before the run reached a terminal
	// state, rather than when the worker itself answered JOB_STATUS.
	Disconnected bool
}

// Terminal reports whether s needs no further polling.
func (s Status) Terminal() bool {
	switch s.State {
	case "done", "ERROR", "aborted", "disconnected":
		return true
	}
	return false
}
