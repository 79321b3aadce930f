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
	"io"
	"time"

	"github.com/sabouaram/barsys/archive"
	liberr "github.com/sabouaram/barsys/errors"
	"github.com/sabouaram/barsys/index"
	"github.com/sabouaram/barsys/logger"
	"github.com/sabouaram/barsys/storage"
)

type runOutcome uint8

const (
	runDone runOutcome = iota
	runError
	runAborted
)

// runJob drives j from StateRunning through to a terminal state and
// records the outcome in the catalogue. Exactly one goroutine ever
// runs this for a given j, serialized by Engine.dispatch's semaphore
// acquire.
func (e *Engine) runJob(j *Job) {
	e.mu.Lock()
	j.State = StateRunning
	j.StartedAt = time.Now()
	e.mu.Unlock()

	outcome, entityID, runErr := e.doRun(j)

	e.mu.Lock()
	j.EndedAt = time.Now()
	switch outcome {
	case runDone:
		j.State = StateDone
		j.Message = "completed"
	case runAborted:
		j.State = StateAborted
		j.Message = "aborted"
	default:
		j.State = StateError
		j.Message = "failed"
	}
	if runErr != nil {
		j.RunError = runErr.Error()
	}
	e.mu.Unlock()

	if entityID != "" {
		if uerr := e.idx.UnlockEntity(entityID); uerr != nil {
			e.log.Error("failed unlocking entity after run", uerr, e.logFields(j, nil))
		}
	}

	e.log.CheckError(logger.ErrorLevel, logger.InfoLevel, "job run finished", asError(runErr), e.logFields(j, map[string]interface{}{
		"outcome": outcomeName(outcome),
	}))
}

func asError(e liberr.Error) error {
	if e == nil {
		return nil
	}
	return e
}

func outcomeName(o runOutcome) string {
	switch o {
	case runDone:
		return "done"
	case runAborted:
		return "aborted"
	default:
		return "error"
	}
}

// doRun performs the actual archive run: catalogue bookkeeping, writer
// construction, the walk (or change-feed drain), and the volume-request
// bridge. It always returns a usable entityID once NewEntity succeeds,
// even when the run goes on to fail, so runJob can still unlock it.
func (e *Engine) doRun(j *Job) (runOutcome, string, liberr.Error) {
	uuidRow, ok, ferr := e.idx.FindUUID(j.UUID)
	if ferr != nil {
		return runError, "", ferr
	}
	if !ok {
		uuidRow, ferr = e.idx.NewUUID(j.UUID, j.Name)
		if ferr != nil {
			return runError, "", ferr
		}
	}

	ent, nerr := e.idx.NewEntity(uuidRow.ID, j.scheduleUUID, j.RunArchive.toIndex())
	if nerr != nil {
		return runError, "", nerr
	}

	e.mu.Lock()
	j.EntityID = ent.ID
	e.mu.Unlock()

	store, operr := storage.Open(j.Endpoint, e.limiter)
	if operr != nil {
		return runError, ent.ID, operr
	}
	defer store.Close()

	wopts, oerr := buildWriterOptions(j)
	if oerr != nil {
		return runError, ent.ID, oerr
	}

	writer, werr := archive.New(store, wopts)
	if werr != nil {
		return runError, ent.ID, werr
	}

	if aware, ok := store.(storage.VolumeAware); ok {
		aware.SetVolumeCallback(func(n int) storage.VolumeDecision {
			return e.requestVolume(j, n)
		})
	}

	abort := func() bool {
		e.mu.Lock()
		e.waitWhilePaused(j)
		ab := j.abortRequested
		e.mu.Unlock()
		return ab
	}

	var runErr liberr.Error
	if j.RunArchive == TypeContinuous {
		runErr = e.drainChangeFeed(j, writer, abort)
	} else {
		runErr = walkIncludes(j, writer, abort)
	}

	names, cerr := writer.Close()
	if runErr == nil {
		runErr = cerr
	}

	// abortRequested wins over a non-nil runErr: aborting mid
	// volume-request deliberately unwinds the writer through an error
	// return (storage.ErrorVolumeAborted out of Close), and that
	// self-inflicted error must still surface as Aborted, not Error.
	aborted := abort()
	outcome := runDone
	switch {
	case aborted:
		outcome = runAborted
	case runErr != nil:
		outcome = runError
	}

	e.recordVolumes(ent.ID, names, outcome == runDone)

	if outcome == runDone {
		if serr := e.idx.UpdateEntityInfos(ent.ID); serr != nil {
			e.log.Error("failed updating entity aggregates", serr, e.logFields(j, nil))
		}
	}

	_, herr := e.idx.NewHistory(index.History{
		UUIDID:    uuidRow.ID,
		EntityID:  ent.ID,
		Outcome:   outcomeName(outcome),
		Message:   historyMessage(runErr),
		StartedAt: j.StartedAt,
		EndedAt:   time.Now(),
	})
	if herr != nil {
		e.log.Error("failed recording run history", herr, e.logFields(j, nil))
	}

	return outcome, ent.ID, runErr
}

func historyMessage(e liberr.Error) string {
	if e == nil {
		return "ok"
	}
	return e.Error()
}

// recordVolumes catalogues every volume the writer managed to finalize.
// On a clean finish each is marked StorageOK; on any error or abort the
// whole run is considered untrustworthy, so every volume it produced —
// including ones individually written without error — is marked
// StorageError, matching the "abort during volume request" scenario's
// expectation that a partial run leaves no volume looking usable.
//
// Per-path Entry cataloguing (index.Store.AddFile and friends) is left
// to a restore-time reconciliation pass: archive.Writer doesn't expose
// which volume a given entry landed in until Close, so attributing
// entries to a specific Storage row here would require threading that
// mapping back out of the writer.
func (e *Engine) recordVolumes(entityID string, names []string, ok bool) {
	state := index.StorageOK
	mode := index.ModeAuto
	if !ok {
		state = index.StorageError
	}

	for _, name := range names {
		stor, serr := e.idx.NewStorage(entityID, name, mode)
		if serr != nil {
			e.log.Error("failed recording storage volume", serr, nil)
			continue
		}
		if err := e.idx.SetStorageState(stor.ID, state); err != nil {
			e.log.Error("failed setting storage state", err, nil)
		}
	}
}

// drainChangeFeed services a CONTINUOUS job by pulling entries from its
// configured ChangeFeed instead of walking an include list, per the
// change-feed interface resolution for continuous archive runs.
func (e *Engine) drainChangeFeed(j *Job, w *archive.Writer, abort func() bool) liberr.Error {
	for {
		if abort() {
			return nil
		}

		entry, cerr := j.ChangeFeed.Next(e.ctx)
		if cerr == io.EOF {
			return nil
		}
		if cerr != nil {
			return ErrorWalk.Error(cerr)
		}

		if err := writeChangeEntry(w, entry); err != nil {
			return ErrorWalk.Error(err)
		}
	}
}

func writeChangeEntry(w *archive.Writer, c ChangeEntry) error {
	attrs := archive.EntryAttrs{
		UID: c.UID, GID: c.GID, Mode: c.Mode,
		Mtime: c.Mtime, Atime: c.Atime, Ctime: c.Ctime,
	}

	switch c.Kind {
	case index.EntryDirectory:
		return liberrToErr(w.AddDirectory(c.Name, attrs))
	case index.EntrySymlink:
		return liberrToErr(w.AddLink(c.Name, c.Target, attrs))
	case index.EntrySpecial:
		return liberrToErr(w.AddSpecial(c.Name, c.Major, c.Minor, attrs))
	case index.EntryHardlink:
		r, err := openChangeContent(c)
		if err != nil {
			return err
		}
		defer r.Close()
		return liberrToErr(w.AddHardlink(c.Name, c.Target, attrs, c.Size, r))
	case index.EntryImage:
		r, err := openChangeContent(c)
		if err != nil {
			return err
		}
		defer r.Close()
		return liberrToErr(w.AddImage(c.Name, c.FSType, attrs, c.Size, r))
	default:
		r, err := openChangeContent(c)
		if err != nil {
			return err
		}
		defer r.Close()
		return liberrToErr(w.AddFile(c.Name, attrs, c.Size, r))
	}
}

func openChangeContent(c ChangeEntry) (io.ReadCloser, error) {
	if c.Open == nil {
		return io.NopCloser(noContent{}), nil
	}
	return c.Open()
}

type noContent struct{}

func (noContent) Read(p []byte) (int, error) { return 0, io.EOF }
