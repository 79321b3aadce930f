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

package semaphore

import (
	"io"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	liberr "github.com/sabouaram/barsys/errors"
)

var (
	progOnce sync.Once
	progress *mpb.Progress
)

func sharedProgress() *mpb.Progress {
	progOnce.Do(func() {
		progress = mpb.New()
	})
	return progress
}

type numberBar struct {
	s   *sem
	bar *mpb.Bar
}

func newNumberBar(s *sem, title, unit string, total int64, silent bool) Bar {
	var opts []mpb.ContainerOption
	if silent {
		opts = append(opts, mpb.WithOutput(io.Discard))
	}

	p := sharedProgress()
	if silent {
		// a silent bar still needs its own container so it does not share
		// the process-wide progress renderer's output stream.
		p = mpb.New(opts...)
	}

	b := p.AddBar(total,
		mpb.PrependDecorators(decor.Name(title)),
		mpb.AppendDecorators(decor.CountersNoUnit("%d / %d "+unit)),
	)

	return &numberBar{s: s, bar: b}
}

func (n *numberBar) NewWorker() liberr.Error {
	return n.s.NewWorker()
}

// DeferWorker increments the bar by one completed unit, then releases the
// worker slot it was holding.
func (n *numberBar) DeferWorker() {
	n.bar.Increment()
	n.s.DeferWorker()
}
