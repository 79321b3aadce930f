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

package job

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	liberr "github.com/sabouaram/barsys/errors"
	"github.com/sabouaram/barsys/index"
	"github.com/sabouaram/barsys/logger"
	"github.com/sabouaram/barsys/semaphore"
	"github.com/sabouaram/barsys/storage"
)

// Engine owns the job list and drives each run serially: at most one
// job occupies the dispatcher at a time (semaphore.New with weight 1,
// per this module's own documented job-dispatcher pattern), and every
// state transition is guarded by mu/cond so the volume-request
// protocol (see run.go) can block a running job without holding up
// the rest of the list.
type Engine struct {
	mu   sync.Mutex
	cond *sync.Cond

	jobs  map[string]*Job
	order []string

	idx     index.Store
	log     logger.Logger
	limiter *storage.Limiter

	sem semaphore.Sem
	ctx context.Context

	runState   RunState
	pauseUntil time.Time

	nextID uint64
}

// New returns an Engine backed by idx, logging through log, and
// driving at most one job run at a time. ctx bounds the lifetime of
// every run the engine ever starts.
func New(ctx context.Context, idx index.Store, log logger.Logger, limiter *storage.Limiter) *Engine {
	e := &Engine{
		jobs:    map[string]*Job{},
		idx:     idx,
		log:     log,
		limiter: limiter,
		sem:     semaphore.New(ctx, 1, false),
		ctx:     ctx,
	}
	e.cond = sync.NewCond(&e.mu)
	return e
}

func (e *Engine) newID() string {
	n := atomic.AddUint64(&e.nextID, 1)
	return "job-" + strconv.FormatUint(n, 10)
}

// ListJobs returns a stable-ordered snapshot of every known job.
func (e *Engine) ListJobs() []Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Snapshot, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.jobs[id].snapshot())
	}
	return out
}

// NewJob registers a fresh job named name, under logical identity
// jobUUID (the index catalogue's FindUUID/NewUUID key), and returns
// its engine-local id.
func (e *Engine) NewJob(name, jobUUID string) (string, liberr.Error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, id := range e.order {
		if e.jobs[id].Name == name {
			return "", ErrorJobExists.Error(nil)
		}
	}

	j := newJob(e.newID(), name)
	j.UUID = jobUUID

	e.jobs[j.ID] = j
	e.order = append(e.order, j.ID)
	return j.ID, nil
}

// CopyJob duplicates id's configuration (includes/excludes/mounts/
// sources/options/archive type/endpoint) under a new name, leaving
// the original untouched; the copy keeps its own UUID identity so it
// accrues an independent catalogue history.
func (e *Engine) CopyJob(id, newName, newJobUUID string) (string, liberr.Error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	src, ok := e.jobs[id]
	if !ok {
		return "", ErrorJobNotFound.Error(nil)
	}
	for _, other := range e.order {
		if e.jobs[other].Name == newName {
			return "", ErrorJobExists.Error(nil)
		}
	}

	cp := newJob(e.newID(), newName)
	cp.UUID = newJobUUID
	cp.Endpoint = src.Endpoint
	cp.Includes = append([]string(nil), src.Includes...)
	cp.Excludes = append([]string(nil), src.Excludes...)
	cp.Mounts = append([]string(nil), src.Mounts...)
	cp.Sources = append([]string(nil), src.Sources...)
	cp.ArchiveType = src.ArchiveType
	cp.ManualVolumes = src.ManualVolumes
	cp.ChangeFeed = src.ChangeFeed
	for k, v := range src.Options {
		cp.Options[k] = v
	}

	e.jobs[cp.ID] = cp
	e.order = append(e.order, cp.ID)
	return cp.ID, nil
}

// RenameJob changes id's display name; refused while id is active so
// a run in progress keeps a stable name for its lifetime.
func (e *Engine) RenameJob(id, newName string) liberr.Error {
	e.mu.Lock()
	defer e.mu.Unlock()

	j, ok := e.jobs[id]
	if !ok {
		return ErrorJobNotFound.Error(nil)
	}
	if j.State.Active() {
		return ErrorJobActive.Error(nil)
	}
	for _, other := range e.order {
		if other != id && e.jobs[other].Name == newName {
			return ErrorJobExists.Error(nil)
		}
	}
	j.Name = newName
	return nil
}

// DeleteJob removes id from the list; refused while the job is
// active.
func (e *Engine) DeleteJob(id string) liberr.Error {
	e.mu.Lock()
	defer e.mu.Unlock()

	j, ok := e.jobs[id]
	if !ok {
		return ErrorJobNotFound.Error(nil)
	}
	if j.State.Active() {
		return ErrorJobActive.Error(nil)
	}

	delete(e.jobs, id)
	for i, other := range e.order {
		if other == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	return nil
}

// SetOption stores a job-level configuration string (compress
// algorithm, crypt passphrase reference, volume size, endpoint...)
// consulted when the run builds its archive.WriterOptions.
func (e *Engine) SetOption(id, key, value string) liberr.Error {
	e.mu.Lock()
	defer e.mu.Unlock()

	j, ok := e.jobs[id]
	if !ok {
		return ErrorJobNotFound.Error(nil)
	}
	j.Options[key] = value
	return nil
}

// GetOption returns a previously stored option value.
func (e *Engine) GetOption(id, key string) (string, bool, liberr.Error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	j, ok := e.jobs[id]
	if !ok {
		return "", false, ErrorJobNotFound.Error(nil)
	}
	v, found := j.Options[key]
	return v, found, nil
}

// SetIncludes/SetExcludes/SetMounts/SetSources replace id's path
// lists wholesale; called repeatedly by a connector session relaying
// INCLUDE_LIST_ADD/EXCLUDE_LIST_ADD/MOUNT_LIST_ADD/SOURCE_LIST_ADD.
func (e *Engine) SetIncludes(id string, paths []string) liberr.Error {
	return e.withJob(id, func(j *Job) { j.Includes = append([]string(nil), paths...) })
}

func (e *Engine) SetExcludes(id string, paths []string) liberr.Error {
	return e.withJob(id, func(j *Job) { j.Excludes = append([]string(nil), paths...) })
}

func (e *Engine) SetMounts(id string, paths []string) liberr.Error {
	return e.withJob(id, func(j *Job) { j.Mounts = append([]string(nil), paths...) })
}

func (e *Engine) SetSources(id string, paths []string) liberr.Error {
	return e.withJob(id, func(j *Job) { j.Sources = append([]string(nil), paths...) })
}

// SetEndpoint sets the storage.Open URI volumes are written to.
func (e *Engine) SetEndpoint(id, endpoint string) liberr.Error {
	return e.withJob(id, func(j *Job) { j.Endpoint = endpoint })
}

// SetChangeFeed attaches the ChangeFeed a CONTINUOUS run drains.
func (e *Engine) SetChangeFeed(id string, feed ChangeFeed) liberr.Error {
	return e.withJob(id, func(j *Job) { j.ChangeFeed = feed })
}

// SetManualVolumes toggles whether id's volume-request protocol
// blocks for an operator decision (true) or auto-confirms every
// request immediately (false, the default).
func (e *Engine) SetManualVolumes(id string, manual bool) liberr.Error {
	return e.withJob(id, func(j *Job) { j.ManualVolumes = manual })
}

func (e *Engine) withJob(id string, fn func(j *Job)) liberr.Error {
	e.mu.Lock()
	defer e.mu.Unlock()

	j, ok := e.jobs[id]
	if !ok {
		return ErrorJobNotFound.Error(nil)
	}
	fn(j)
	return nil
}

// StartJob transitions id to WAITING and, once the dispatcher's
// single slot is free, runs it under archive type requested. A
// requested of TypeNormal is overridden by the job's own configured
// ArchiveType default (spec.md §4.8's "NORMAL overridden by scheduled
// type" rule is implemented by the scheduler passing its rule's
// ArchiveType here; a rule left at TypeNormal also resolves to the
// job's default).
func (e *Engine) StartJob(id string, requested ArchiveType) liberr.Error {
	return e.startJob(id, requested, "")
}

// StartScheduledJob is StartJob plus the schedule rule's identity,
// recorded on the resulting index.Entity row so a catalogue query can
// tell a scheduled run from an operator-triggered one.
func (e *Engine) StartScheduledJob(id string, requested ArchiveType, scheduleUUID string) liberr.Error {
	return e.startJob(id, requested, scheduleUUID)
}

func (e *Engine) startJob(id string, requested ArchiveType, scheduleUUID string) liberr.Error {
	e.mu.Lock()
	j, ok := e.jobs[id]
	if !ok {
		e.mu.Unlock()
		return ErrorJobNotFound.Error(nil)
	}
	if j.State.Active() {
		e.mu.Unlock()
		return ErrorJobActive.Error(nil)
	}
	if len(j.Includes) == 0 && j.ChangeFeed == nil {
		e.mu.Unlock()
		return ErrorNoIncludes.Error(nil)
	}
	if j.Endpoint == "" {
		e.mu.Unlock()
		return ErrorNoEndpoint.Error(nil)
	}

	runType := requested
	if runType == TypeNormal {
		runType = j.ArchiveType
	}
	if runType == TypeContinuous && j.ChangeFeed == nil {
		e.mu.Unlock()
		return ErrorNoChangeFeed.Error(nil)
	}

	j.State = StateWaiting
	j.RunArchive = runType
	j.scheduleUUID = scheduleUUID
	j.abortRequested = false
	j.Message = ""
	j.RunError = ""
	e.mu.Unlock()

	go e.dispatch(j)
	return nil
}

// LoadVolume satisfies a pending RequestVolume wait for id with the
// operator's supplied volume sequence number n; refused unless id is
// currently sitting in StateRequestVolume.
func (e *Engine) LoadVolume(id string, n int) liberr.Error {
	e.mu.Lock()
	defer e.mu.Unlock()

	j, ok := e.jobs[id]
	if !ok {
		return ErrorJobNotFound.Error(nil)
	}
	if j.State != StateRequestVolume {
		return ErrorJobNotActive.Error(nil)
	}
	j.volumeNumber = n
	e.cond.Broadcast()
	return nil
}

// UnloadVolume signals that the previously loaded volume was removed;
// the job's pending RequestVolume wait keeps blocking (this module has
// no "unload" VolumeDecision) until a subsequent LoadVolume arrives.
func (e *Engine) UnloadVolume(id string) liberr.Error {
	e.mu.Lock()
	defer e.mu.Unlock()

	j, ok := e.jobs[id]
	if !ok {
		return ErrorJobNotFound.Error(nil)
	}
	if j.State != StateRequestVolume {
		return ErrorJobNotActive.Error(nil)
	}
	j.volumeUnloadFlag = true
	e.cond.Broadcast()
	return nil
}

// requestVolume ports the original daemon's storageRequestVolume: lock,
// record the requested sequence number, move to StateRequestVolume, and
// block until the matching volume is loaded, the pending one is
// unloaded (looped, since VolumeDecision has no third state), or the
// job is aborted. A job not in ManualVolumes mode never actually
// blocks: the requested number is accepted immediately.
func (e *Engine) requestVolume(j *Job, n int) storage.VolumeDecision {
	e.mu.Lock()
	defer e.mu.Unlock()

	prevState := j.State
	j.requestedVolumeNumber = n
	j.State = StateRequestVolume
	e.cond.Broadcast()

	if !j.ManualVolumes {
		j.volumeNumber = n
	}

	for {
		if j.abortRequested {
			j.State = prevState
			return storage.VolumeAborted
		}
		if j.volumeUnloadFlag {
			j.volumeUnloadFlag = false
			continue
		}
		if j.volumeNumber == j.requestedVolumeNumber {
			j.State = prevState
			return storage.VolumeLoaded
		}
		e.cond.Wait()
	}
}

// dispatch blocks for the dispatcher's single slot, then runs j to a
// terminal state. One goroutine per StartJob call, serialized by
// e.sem's weight-1 acquire, a single job-dispatcher slot with no
// separate polling loop.
func (e *Engine) dispatch(j *Job) {
	if err := e.sem.NewWorker(); err != nil {
		e.mu.Lock()
		j.State = StateAborted
		j.Message = "dispatcher unavailable"
		e.mu.Unlock()
		return
	}
	defer e.sem.DeferWorker()

	e.runJob(j)
}

// AbortJob requests that id's in-progress run stop at its next safe
// point (a volume-request wait, or the next include-path boundary).
// A no-op, not an error, against a job that isn't active.
func (e *Engine) AbortJob(id string) liberr.Error {
	e.mu.Lock()
	defer e.mu.Unlock()

	j, ok := e.jobs[id]
	if !ok {
		return ErrorJobNotFound.Error(nil)
	}
	if !j.State.Active() {
		return nil
	}
	j.abortRequested = true
	e.cond.Broadcast()
	return nil
}

// JobStatus returns id's current snapshot, as polled by a connector
// session relaying JOB_STATUS.
func (e *Engine) JobStatus(id string) (Snapshot, liberr.Error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	j, ok := e.jobs[id]
	if !ok {
		return Snapshot{}, ErrorJobNotFound.Error(nil)
	}
	return j.snapshot(), nil
}

func (e *Engine) logFields(j *Job, extra map[string]interface{}) logger.Fields {
	f := logger.Fields{"job_id": j.ID, "job_name": j.Name, "state": j.State.String()}
	for k, v := range extra {
		f[k] = v
	}
	return f
}
