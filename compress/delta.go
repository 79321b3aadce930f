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

package compress

import (
	"bytes"
	"encoding/binary"
	"io"

	liberr "github.com/sabouaram/barsys/errors"
)

// DeltaBlockSize is the fixed window used to anchor matches against the
// delta source. Smaller windows find more matches at the cost of a larger
// instruction stream.
const DeltaBlockSize = 64

const (
	opCopy   byte = 0
	opInsert byte = 1
)

// Delta produces an xdelta-style instruction stream that reconstructs
// target given source: a sequence of COPY(offset,len) instructions against
// source interleaved with INSERT(bytes) literals for everything that does
// not match. It is the optional stage applied ahead of byte compression;
// DeltaPatch inverts it.
func Delta(source, target []byte) []byte {
	index := indexBlocks(source)

	var (
		out     bytes.Buffer
		literal bytes.Buffer
		i       int
	)

	flushLiteral := func() {
		if literal.Len() == 0 {
			return
		}
		writeInsert(&out, literal.Bytes())
		literal.Reset()
	}

	for i < len(target) {
		if i+DeltaBlockSize <= len(target) {
			h := blockHash(target[i : i+DeltaBlockSize])
			if off, ok := index[h]; ok && bytes.Equal(source[off:off+DeltaBlockSize], target[i:i+DeltaBlockSize]) {
				flushLiteral()

				end := off + DeltaBlockSize
				j := i + DeltaBlockSize
				for end < len(source) && j < len(target) && source[end] == target[j] {
					end++
					j++
				}

				writeCopy(&out, uint64(off), uint64(end-off))
				i = j
				continue
			}
		}

		literal.WriteByte(target[i])
		i++
	}
	flushLiteral()

	return out.Bytes()
}

// DeltaPatch reconstructs the original target bytes from source and a
// stream produced by Delta.
func DeltaPatch(source, delta []byte) ([]byte, liberr.Error) {
	var out bytes.Buffer
	r := bytes.NewReader(delta)

	for r.Len() > 0 {
		op, err := r.ReadByte()
		if err != nil {
			return nil, ErrorDeltaCorrupt.Error(err)
		}

		switch op {
		case opCopy:
			off, length, e := readCopyArgs(r)
			if e != nil {
				return nil, e
			}
			if off+length > uint64(len(source)) {
				return nil, ErrorDeltaCorrupt.Error(nil)
			}
			out.Write(source[off : off+length])

		case opInsert:
			length, e := readUvarint(r)
			if e != nil {
				return nil, e
			}
			buf := make([]byte, length)
			if _, err = io.ReadFull(r, buf); err != nil {
				return nil, ErrorDeltaCorrupt.Error(err)
			}
			out.Write(buf)

		default:
			return nil, ErrorDeltaCorrupt.Error(nil)
		}
	}

	return out.Bytes(), nil
}

func indexBlocks(source []byte) map[uint64]int {
	idx := make(map[uint64]int, len(source)/DeltaBlockSize+1)
	for off := 0; off+DeltaBlockSize <= len(source); off += DeltaBlockSize {
		h := blockHash(source[off : off+DeltaBlockSize])
		if _, exists := idx[h]; !exists {
			idx[h] = off
		}
	}
	return idx
}

func blockHash(b []byte) uint64 {
	var h uint64 = 14695981039346656037 // FNV-1a offset basis
	for _, c := range b {
		h ^= uint64(c)
		h *= 1099511628211 // FNV-1a prime
	}
	return h
}

func writeUvarint(out *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	out.Write(tmp[:n])
}

func writeCopy(out *bytes.Buffer, offset, length uint64) {
	out.WriteByte(opCopy)
	writeUvarint(out, offset)
	writeUvarint(out, length)
}

func writeInsert(out *bytes.Buffer, literal []byte) {
	out.WriteByte(opInsert)
	writeUvarint(out, uint64(len(literal)))
	out.Write(literal)
}

func readUvarint(r *bytes.Reader) (uint64, liberr.Error) {
	v, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, ErrorDeltaCorrupt.Error(err)
	}
	return v, nil
}

func readCopyArgs(r *bytes.Reader) (offset uint64, length uint64, e liberr.Error) {
	offset, e = readUvarint(r)
	if e != nil {
		return 0, 0, e
	}
	length, e = readUvarint(r)
	if e != nil {
		return 0, 0, e
	}
	return offset, length, nil
}
