/*
 *  MIT License
 *
 *  Copyright (c) 2020 Nicolas JUHEL
 *
 *  Permission is hereby granted, free of charge, to any person obtaining a copy
 *  of this software and associated documentation files (the "Software"), to deal
 *  in the Software without restriction, including without limitation the rights
 *  to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 *  copies of the Software, and to permit persons to whom the Software is
 *  furnished to do so, subject to the following conditions:
 *
 *  The above copyright notice and this permission notice shall be included in all
 *  copies or substantial portions of the Software.
 *
 *  THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 *  IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 *  FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 *  AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 *  LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 *  OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 *  SOFTWARE.
 *
 */

// Package compress implements the archive's byte-compression stage: a
// stateful push/finish transform over none/deflate/bzip2/lzma, composable
// with an optional delta stage applied ahead of it.
package compress

import (
	"bytes"
	"compress/flate"
	"io"
	"sync/atomic"

	"github.com/dsnet/compress/bzip2"
	"github.com/ulikunitz/xz"

	liberr "github.com/sabouaram/barsys/errors"
)

// Engine is a stateful compress or decompress transform. Push may be
// called any number of times with successive fragments of the input;
// Finish drains the transform and returns every remaining output byte.
// Once Finish has been called the engine is spent and Push/Finish both
// fail with ErrorAlreadyFinished.
type Engine interface {
	Push(p []byte) liberr.Error
	Finish() ([]byte, liberr.Error)
}

type direction uint8

const (
	dirCompress direction = iota
	dirDecompress
)

type engine struct {
	algo   Algorithm
	level  int
	dir    direction
	in     bytes.Buffer
	done   atomic.Bool
}

// NewCompressor returns an Engine that compresses whatever is pushed into
// it using algo at the given level. level must lie in 0..algo.MaxLevel(),
// so None accepts only level 0.
func NewCompressor(algo Algorithm, level int) (Engine, liberr.Error) {
	if level < 0 || level > algo.MaxLevel() {
		return nil, ErrorInvalidLevel.Error(nil)
	}
	return &engine{algo: algo, level: level, dir: dirCompress}, nil
}

// NewDecompressor returns an Engine that decompresses whatever is pushed
// into it, assuming it was produced by algo.
func NewDecompressor(algo Algorithm) (Engine, liberr.Error) {
	return &engine{algo: algo, dir: dirDecompress}, nil
}

func (e *engine) Push(p []byte) liberr.Error {
	if e.done.Load() {
		return ErrorAlreadyFinished.Error(nil)
	}
	if _, err := e.in.Write(p); err != nil {
		return ErrorCompress.Error(err)
	}
	return nil
}

func (e *engine) Finish() ([]byte, liberr.Error) {
	if e.done.Swap(true) {
		return nil, ErrorAlreadyFinished.Error(nil)
	}

	if e.dir == dirCompress {
		return e.compress()
	}
	return e.decompress()
}

func (e *engine) compress() ([]byte, liberr.Error) {
	if e.algo == None {
		return e.in.Bytes(), nil
	}

	var out bytes.Buffer

	w, err := e.newWriter(&out)
	if err != nil {
		return nil, ErrorCompress.Error(err)
	}

	if _, err = io.Copy(w, &e.in); err != nil {
		return nil, ErrorCompress.Error(err)
	}
	if err = w.Close(); err != nil {
		return nil, ErrorCompress.Error(err)
	}

	return out.Bytes(), nil
}

func (e *engine) decompress() ([]byte, liberr.Error) {
	if e.algo == None {
		return e.in.Bytes(), nil
	}

	r, err := e.newReader(&e.in)
	if err != nil {
		return nil, ErrorDecompress.Error(err)
	}

	var out bytes.Buffer
	if _, err = io.Copy(&out, r); err != nil {
		return nil, ErrorDecompress.Error(err)
	}
	if rc, ok := r.(io.Closer); ok {
		_ = rc.Close()
	}

	return out.Bytes(), nil
}

func (e *engine) newWriter(w io.Writer) (io.WriteCloser, error) {
	switch e.algo {
	case Deflate:
		lvl := e.level
		if lvl == 0 {
			lvl = flate.DefaultCompression
		}
		return flate.NewWriter(w, lvl)
	case Bzip2:
		lvl := e.level
		if lvl == 0 {
			lvl = 6
		}
		return bzip2.NewWriter(w, &bzip2.WriterConfig{Level: lvl})
	case LZMA:
		return xz.NewWriter(w)
	default:
		return nil, ErrorUnknownAlgorithm.Error(nil)
	}
}

func (e *engine) newReader(r io.Reader) (io.Reader, error) {
	switch e.algo {
	case Deflate:
		return flate.NewReader(r), nil
	case Bzip2:
		return bzip2.NewReader(r, nil)
	case LZMA:
		return xz.NewReader(r)
	default:
		return nil, ErrorUnknownAlgorithm.Error(nil)
	}
}
