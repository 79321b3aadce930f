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

import "time"

// SetPause puts the whole engine in PAUSE for d: every running job's
// write loop blocks at its next safe point until d elapses or Continue
// is called early. A zero or negative d clears any pause immediately.
func (e *Engine) SetPause(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.runState == RunStateSuspended {
		// SUSPENDED only ever clears via an explicit Continue.
		return
	}
	if d <= 0 {
		e.runState = RunStateRunning
		e.pauseUntil = time.Time{}
		e.cond.Broadcast()
		return
	}
	e.runState = RunStatePause
	e.pauseUntil = time.Now().Add(d)
	e.cond.Broadcast()
}

// Suspend puts the engine in SUSPENDED, which persists until Continue
// is called explicitly; unlike PAUSE it never auto-expires.
func (e *Engine) Suspend() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.runState = RunStateSuspended
	e.pauseUntil = time.Time{}
	e.cond.Broadcast()
}

// Continue clears PAUSE or SUSPENDED immediately, waking every job
// blocked in waitWhilePaused.
func (e *Engine) Continue() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.runState = RunStateRunning
	e.pauseUntil = time.Time{}
	e.cond.Broadcast()
}

// RunState reports the engine's current process-wide run state,
// auto-expiring a PAUSE whose deadline has passed.
func (e *Engine) RunState() RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runStateLocked()
}

// runStateLocked must be called with e.mu held.
func (e *Engine) runStateLocked() RunState {
	if e.runState == RunStatePause && !e.pauseUntil.IsZero() && !time.Now().Before(e.pauseUntil) {
		e.runState = RunStateRunning
		e.pauseUntil = time.Time{}
	}
	return e.runState
}

// waitWhilePaused blocks j's run loop while the engine is PAUSE or
// SUSPENDED, waking on RunState changes, j's own abort request, or a
// PAUSE deadline passing; it does not watch the engine context. Must be
// called with e.mu held; it releases and reacquires it while waiting,
// the same cond.Wait pattern used by the volume-request protocol
// (engine.go's requestVolume).
func (e *Engine) waitWhilePaused(j *Job) {
	for e.runStateLocked() != RunStateRunning {
		if j.abortRequested {
			return
		}
		if e.runState == RunStatePause {
			remaining := time.Until(e.pauseUntil)
			if remaining <= 0 {
				continue
			}
			timer := time.AfterFunc(remaining, func() {
				e.mu.Lock()
				e.cond.Broadcast()
				e.mu.Unlock()
			})
			e.cond.Wait()
			timer.Stop()
			continue
		}
		e.cond.Wait()
	}
}
