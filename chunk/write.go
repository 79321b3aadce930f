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

// Package chunk implements the archive's nestable TLV framing: a 4-byte id
// followed by an 8-byte little-endian size, wrapping an opaque payload that
// may itself be a sequence of chunks.
package chunk

import (
	"encoding/binary"
	"io"
	"os"

	libbuf "github.com/sabouaram/barsys/ioutils/bufferReadCloser"

	liberr "github.com/sabouaram/barsys/errors"
	libiou "github.com/sabouaram/barsys/ioutils"
)

// DefaultSpillThreshold bounds how much of a buffered chunk's payload is
// held in memory before it is spilled to a temporary file when WriteChunk
// is given a threshold of zero or less.
const DefaultSpillThreshold int64 = 64 * 1024 * 1024

// seeker is satisfied by any sink that supports the single-pass,
// seek-back-and-patch write path (local files).
type seeker interface {
	io.Writer
	io.Seeker
}

// WriteChunk writes one chunk of the given id to w, feeding the payload
// writer passed to fn. If w also implements io.Seeker, the header is
// written with a placeholder size, fn streams directly into w, and the
// size field is patched in place once fn returns. Otherwise the payload is
// buffered (spilling to a temp file past spillThreshold) and the header is
// written with the correct size before the buffered bytes are copied out.
func WriteChunk(w io.Writer, id ID, spillThreshold int64, fn func(io.Writer) error) liberr.Error {
	if s, ok := w.(seeker); ok {
		return writeChunkSeek(s, id, fn)
	}
	return writeChunkBuffered(w, id, spillThreshold, fn)
}

func writeChunkSeek(w seeker, id ID, fn func(io.Writer) error) liberr.Error {
	start, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return ErrorHeaderWrite.Error(err)
	}

	if e := writeHeader(w, id, 0); e != nil {
		return e
	}

	cw := &countingWriter{w: w}
	if err = fn(cw); err != nil {
		return ErrorPayloadWrite.Error(err)
	}

	end, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return ErrorHeaderPatch.Error(err)
	}

	if _, err = w.Seek(start, io.SeekStart); err != nil {
		return ErrorHeaderPatch.Error(err)
	}

	if e := writeHeader(w, id, uint64(cw.n)); e != nil {
		return e
	}

	if _, err = w.Seek(end, io.SeekStart); err != nil {
		return ErrorHeaderPatch.Error(err)
	}

	return nil
}

func writeChunkBuffered(w io.Writer, id ID, threshold int64, fn func(io.Writer) error) liberr.Error {
	if threshold <= 0 {
		threshold = DefaultSpillThreshold
	}

	sp := newSpill(threshold)
	defer sp.close()

	if err := fn(sp); err != nil {
		return ErrorPayloadWrite.Error(err)
	}

	if e := writeHeader(w, id, uint64(sp.size())); e != nil {
		return e
	}

	if _, err := sp.writeTo(w); err != nil {
		return ErrorPayloadWrite.Error(err)
	}

	return nil
}

func writeHeader(w io.Writer, id ID, size uint64) liberr.Error {
	var hdr [headerSize]byte
	copy(hdr[0:4], id[:])
	binary.LittleEndian.PutUint64(hdr[4:12], size)

	if _, err := w.Write(hdr[:]); err != nil {
		return ErrorHeaderWrite.Error(err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// spill accumulates a payload in memory up to threshold bytes, then
// transparently continues into a temporary file for the remainder.
type spill struct {
	threshold int64
	n         int64
	buf       libbuf.Buffer
	file      *os.File
}

func newSpill(threshold int64) *spill {
	return &spill{
		threshold: threshold,
		buf:       libbuf.NewBuffer(nil, nil),
	}
}

func (s *spill) Write(p []byte) (int, error) {
	if s.file != nil {
		n, err := s.file.Write(p)
		s.n += int64(n)
		return n, err
	}

	if s.n+int64(len(p)) > s.threshold {
		f, e := libiou.NewTempFile()
		if e != nil {
			return 0, e
		}
		if _, err := io.Copy(f, s.buf); err != nil {
			return 0, err
		}
		s.file = f
		n, err := s.file.Write(p)
		s.n += int64(n)
		return n, err
	}

	n, err := s.buf.Write(p)
	s.n += int64(n)
	return n, err
}

func (s *spill) size() int64 {
	return s.n
}

func (s *spill) writeTo(w io.Writer) (int64, error) {
	if s.file != nil {
		if _, err := s.file.Seek(0, io.SeekStart); err != nil {
			return 0, err
		}
		return io.Copy(w, s.file)
	}
	return io.Copy(w, s.buf)
}

func (s *spill) close() {
	if s.file != nil {
		_ = libiou.DelTempFile(s.file)
	}
	_ = s.buf.Close()
}
