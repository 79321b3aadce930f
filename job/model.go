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

// Package job maintains the job list and drives each job's run through
// the archive writer: the state machine, pause/suspend, and the
// volume-request protocol a volume-aware storage backend blocks on.
package job

import (
	"context"
	"io"
	"time"

	"github.com/sabouaram/barsys/index"
)

// State is one job's position in the state machine.
type State uint8

const (
	StateNone State = iota
	StateWaiting
	StateRunning
	StateRequestVolume
	StateDone
	StateError
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateRunning:
		return "running"
	case StateRequestVolume:
		return "request volume"
	case StateDone:
		return "done"
	case StateError:
		return "ERROR"
	case StateAborted:
		return "aborted"
	default:
		return "-"
	}
}

// Active reports whether s counts as "this job currently occupies the
// dispatcher or is waiting to".
func (s State) Active() bool {
	return s == StateWaiting || s == StateRunning || s == StateRequestVolume
}

// Running reports whether s counts as "the archive writer is presently
// advancing", including its request-volume sub-state.
func (s State) Running() bool {
	return s == StateRunning || s == StateRequestVolume
}

// ArchiveType is the run mode a job executes under. TypeNormal is a
// request-time placeholder meaning "whatever this job is configured
// for"; it is never a job's resting ArchiveType once a run starts.
type ArchiveType uint8

const (
	TypeNormal ArchiveType = iota
	TypeFull
	TypeIncremental
	TypeDifferential
	TypeContinuous
)

func (t ArchiveType) String() string {
	switch t {
	case TypeFull:
		return "full"
	case TypeIncremental:
		return "incremental"
	case TypeDifferential:
		return "differential"
	case TypeContinuous:
		return "continuous"
	default:
		return "normal"
	}
}

func (t ArchiveType) toIndex() index.ArchiveType {
	switch t {
	case TypeIncremental:
		return index.ArchiveIncremental
	case TypeDifferential:
		return index.ArchiveDifferential
	case TypeContinuous:
		return index.ArchiveContinuous
	default:
		return index.ArchiveFull
	}
}

// RunState is the process-wide pause/suspend gate every job's inner
// write loop polls.
type RunState uint8

const (
	RunStateRunning RunState = iota
	RunStatePause
	RunStateSuspended
)

// ChangeEntry is one item a ChangeFeed hands to a CONTINUOUS job in
// place of walking an include list.
type ChangeEntry struct {
	Kind   index.EntryKind
	Name   string
	Target string // symlink/hardlink target, when Kind needs one
	FSType string // Kind == EntryImage only
	Major  uint32 // Kind == EntrySpecial only
	Minor  uint32
	Size   int64
	Mtime  time.Time
	Atime  time.Time
	Ctime  time.Time
	UID    uint32
	GID    uint32
	Mode   uint32

	// Open returns the entry's content; nil for metadata-only kinds
	// (directory, symlink, special).
	Open func() (io.ReadCloser, error)
}

// ChangeFeed is the external interface a CONTINUOUS job drains instead
// of walking its include list (spec.md §9 Open Question 3); tests
// supply an in-memory stub.
type ChangeFeed interface {
	// Next blocks until the next change is available, ctx is done, or
	// the feed is permanently exhausted (io.EOF).
	Next(ctx context.Context) (ChangeEntry, error)
}

// Job is one entry in the job list: its configuration plus the
// dispatcher-owned runtime state of its most recent (or in-progress)
// run.
type Job struct {
	ID   string
	Name string

	// UUID is the stable logical job identity passed to the index
	// catalogue's FindUUID/NewUUID; distinct from ID, which only
	// identifies this Job value within the engine's list.
	UUID string

	// Endpoint is the storage.Open URI the run's volumes are written
	// to (e.g. "local:///var/backups/nightly", "optical://").
	Endpoint string

	Includes []string
	Excludes []string
	Mounts   []string
	Sources  []string

	Options map[string]string

	// ArchiveType is this job's configured default, used whenever a
	// start request arrives as TypeNormal with no overriding type.
	ArchiveType ArchiveType

	// ManualVolumes, when true, makes the volume-request protocol
	// actually block on RequestVolume(n) until LoadVolume/UnloadVolume
	// is called; when false (the default) every requested volume is
	// satisfied immediately, degrading the protocol to a no-op for
	// backends that don't need an operator (storage/local) or tests
	// that don't exercise the blocking path.
	ManualVolumes bool

	ChangeFeed ChangeFeed

	CreatedAt time.Time

	// --- dispatcher-owned runtime state, guarded by Engine.mu ---

	State       State
	RunArchive  ArchiveType
	EntityID    string
	Message     string
	RunError    string
	StartedAt   time.Time
	EndedAt     time.Time

	scheduleUUID string

	requestedVolumeNumber int
	volumeNumber          int
	volumeUnloadFlag      bool
	abortRequested        bool
}

func newJob(id, name string) *Job {
	return &Job{
		ID:          id,
		Name:        name,
		Options:     map[string]string{},
		ArchiveType: TypeFull,
		CreatedAt:   time.Now(),
	}
}

// Snapshot is a caller-facing copy of a Job's current state, safe to
// read without holding the engine's lock (ListJobs/JobStatus return
// these rather than *Job itself).
type Snapshot struct {
	ID          string
	Name        string
	UUID        string
	State       State
	ArchiveType ArchiveType
	EntityID    string
	Message     string
	RunError    string
	StartedAt   time.Time
	EndedAt     time.Time
}

func (j *Job) snapshot() Snapshot {
	return Snapshot{
		ID:          j.ID,
		Name:        j.Name,
		UUID:        j.UUID,
		State:       j.State,
		ArchiveType: j.RunArchive,
		EntityID:    j.EntityID,
		Message:     j.Message,
		RunError:    j.RunError,
		StartedAt:   j.StartedAt,
		EndedAt:     j.EndedAt,
	}
}
