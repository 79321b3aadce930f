/*
 * MIT License
 *
 * Copyright (c) 2019 Nicolas JUHEL
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

// Package semaphore provides a weighted concurrency gate used to bound the
// number of simultaneous workers a component runs — the job dispatcher uses
// a weight of 1 to serialize job execution (spec.md §4.8).
package semaphore

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	libatm "github.com/sabouaram/barsys/atomic"
	liberr "github.com/sabouaram/barsys/errors"
)

// Sem is a weighted semaphore with optional progress reporting.
type Sem interface {
	Context() context.Context

	// Weighted returns the configured concurrency limit; for an unlimited
	// Sem it returns the negative weight New was given.
	Weighted() int64

	// NewWorker blocks until a slot is free or the context is canceled.
	NewWorker() liberr.Error

	// NewWorkerTry attempts to acquire a slot without blocking.
	NewWorkerTry() bool

	// DeferWorker releases one previously acquired slot.
	DeferWorker()

	// WaitAll blocks until every acquired slot has been released.
	WaitAll() liberr.Error

	// DeferMain releases resources owned by the semaphore itself (progress bars).
	DeferMain()

	// BarNumber attaches a numeric progress bar to this semaphore's worker
	// lifecycle, incrementing it once per DeferWorker call, when progress
	// reporting was requested at construction.
	BarNumber(title, unit string, total int64, silent bool, style interface{}) Bar
}

// Bar is a worker-scoped progress handle returned by BarNumber.
type Bar interface {
	NewWorker() liberr.Error
	DeferWorker()
}

type sem struct {
	ctx context.Context
	n   int64
	w   *semaphore.Weighted
	prg libatm.Value[bool]
}

// New returns a Sem bound to ctx, allowing up to weight concurrent workers.
// A negative weight disables the limit entirely (Weighted returns it
// unchanged and every acquire succeeds immediately). withProgress enables
// BarNumber; without it BarNumber returns a no-op Bar.
func New(ctx context.Context, weight int64, withProgress bool) Sem {
	s := &sem{
		ctx: ctx,
		n:   weight,
		prg: libatm.NewValue[bool](),
	}
	s.prg.Store(withProgress)

	if weight >= 0 {
		s.w = semaphore.NewWeighted(weight)
	}

	return s
}

func (o *sem) Context() context.Context {
	return o.ctx
}

func (o *sem) Weighted() int64 {
	return o.n
}

func (o *sem) NewWorker() liberr.Error {
	if o.w == nil {
		return nil
	}

	if err := o.w.Acquire(o.ctx, 1); err != nil {
		if o.ctx.Err() != nil {
			return ErrorWorkerContext.Error(err)
		}
		return ErrorWorkerTimeout.Error(err)
	}

	return nil
}

func (o *sem) NewWorkerTry() bool {
	if o.w == nil {
		return true
	}
	return o.w.TryAcquire(1)
}

func (o *sem) DeferWorker() {
	if o.w == nil {
		return
	}
	o.w.Release(1)
}

// WaitAll blocks by re-acquiring the full weight, which only succeeds once
// every in-flight worker has called DeferWorker, then immediately releases
// it back.
func (o *sem) WaitAll() liberr.Error {
	if o.w == nil || o.n <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(o.ctx, 10*time.Minute)
	defer cancel()

	if err := o.w.Acquire(ctx, o.n); err != nil {
		return ErrorWaitAll.Error(err)
	}

	o.w.Release(o.n)
	return nil
}

func (o *sem) DeferMain() {
	// no process-wide resource to release beyond the semaphore itself,
	// which is garbage collected with the Sem value.
}

func (o *sem) BarNumber(title, unit string, total int64, silent bool, style interface{}) Bar {
	if !o.prg.Load() {
		return &noopBar{}
	}
	return newNumberBar(o, title, unit, total, silent)
}

type noopBar struct{}

func (b *noopBar) NewWorker() liberr.Error { return nil }
func (b *noopBar) DeferWorker()            {}
