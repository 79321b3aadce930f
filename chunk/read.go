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

package chunk

import (
	"encoding/binary"
	"io"

	liberr "github.com/sabouaram/barsys/errors"
)

// Chunk is one decoded (id, payload) pair. Reader is bounded to exactly
// Size bytes; reading past it returns io.EOF.
type Chunk struct {
	ID     ID
	Size   uint64
	Reader io.Reader
}

// Iterator yields the sequence of chunks found in a stream, optionally
// bounded to a parent chunk's declared size (bound < 0 means unbounded,
// used at the top of an archive volume).
type Iterator struct {
	src     io.Reader
	bound   int64 // remaining bytes permitted from src, -1 = unbounded
	current *io.LimitedReader
}

// IterChunks returns an Iterator reading chunks from r until EOF.
func IterChunks(r io.Reader) *Iterator {
	return &Iterator{src: r, bound: -1}
}

// IterChunksBounded returns an Iterator that will not read more than limit
// bytes from r in total across every chunk header and payload it yields —
// used when iterating the contents of an enclosing chunk.
func IterChunksBounded(r io.Reader, limit int64) *Iterator {
	return &Iterator{src: r, bound: limit}
}

// Next advances to the following chunk, discarding any unread remainder of
// the previous one. It returns (nil, false, nil) at a clean end of stream.
func (it *Iterator) Next() (*Chunk, bool, liberr.Error) {
	if it.current != nil && it.current.N > 0 {
		if _, err := io.Copy(io.Discard, it.current); err != nil {
			return nil, false, ErrorPayloadWrite.Error(err)
		}
	}
	it.current = nil

	if it.bound == 0 {
		return nil, false, nil
	}

	var hdr [headerSize]byte
	n, err := io.ReadFull(it.src, hdr[:])
	if err == io.EOF && n == 0 {
		return nil, false, nil
	} else if err != nil {
		return nil, false, ErrorUnexpectedEOF.Error(err)
	}

	if it.bound > 0 {
		it.bound -= int64(n)
		if it.bound < 0 {
			return nil, false, ErrorMalformedChunk.Error(nil)
		}
	}

	var id ID
	copy(id[:], hdr[0:4])
	size := binary.LittleEndian.Uint64(hdr[4:12])

	if it.bound >= 0 && int64(size) > it.bound {
		return nil, false, ErrorMalformedChunk.Error(nil)
	}
	if it.bound > 0 {
		it.bound -= int64(size)
	}

	lr := &io.LimitedReader{R: it.src, N: int64(size)}
	it.current = lr

	return &Chunk{ID: id, Size: size, Reader: lr}, true, nil
}
