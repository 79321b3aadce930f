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

package archive

import (
	"bytes"
	"encoding/binary"
	"io"

	liberr "github.com/sabouaram/barsys/errors"
)

// incrementalMagic/incrementalVersion identify the binary incremental
// list file (BINL) a differential or incremental archive run consults
// to decide which source entries changed since the reference run.
var incrementalMagic = [4]byte{'B', 'I', 'N', 'L'}

const incrementalVersion uint16 = 1

// IncrementalRecord remembers enough about one previously archived
// entry to detect whether a later run's candidate has changed: its
// size, modification time, and a hash of the head of its content. This
// package stores and compares HeadHash; it does not compute it.
type IncrementalRecord struct {
	Name     string
	Size     uint64
	MtimeNS  int64
	HeadHash [32]byte
}

// IncrementalList is the in-memory form of a BINL file, keyed by entry
// name for O(1) lookup while walking a new candidate source tree.
type IncrementalList map[string]IncrementalRecord

// Changed reports whether cand should be re-archived: it is new, or its
// size/mtime/hash no longer matches the reference record.
func (l IncrementalList) Changed(cand IncrementalRecord) bool {
	ref, ok := l[cand.Name]
	if !ok {
		return true
	}
	return ref.Size != cand.Size || ref.MtimeNS != cand.MtimeNS || ref.HeadHash != cand.HeadHash
}

// WriteIncrementalList serializes list in BINL format.
func WriteIncrementalList(w io.Writer, list IncrementalList) liberr.Error {
	var buf bytes.Buffer

	buf.Write(incrementalMagic[:])
	_ = binary.Write(&buf, binary.LittleEndian, incrementalVersion)
	_ = binary.Write(&buf, binary.LittleEndian, uint64(len(list)))

	for _, rec := range list {
		writeString(&buf, rec.Name)
		_ = binary.Write(&buf, binary.LittleEndian, rec.Size)
		_ = binary.Write(&buf, binary.LittleEndian, rec.MtimeNS)
		buf.Write(rec.HeadHash[:])
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return ErrorIncrementalList.Error(err)
	}
	return nil
}

// ReadIncrementalList parses a BINL stream previously produced by
// WriteIncrementalList.
func ReadIncrementalList(r io.Reader) (IncrementalList, liberr.Error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, ErrorIncrementalList.Error(err)
	}
	if magic != incrementalMagic {
		return nil, ErrorIncrementalList.Error(nil)
	}

	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, ErrorIncrementalList.Error(err)
	}
	if version != incrementalVersion {
		return nil, ErrorUnsupportedIncrementalVersion.Error(nil)
	}

	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, ErrorIncrementalList.Error(err)
	}

	list := make(IncrementalList, count)

	for i := uint64(0); i < count; i++ {
		name, err := readString(r)
		if err != nil {
			return nil, ErrorIncrementalList.Error(err)
		}

		var rec IncrementalRecord
		rec.Name = name

		if err = binary.Read(r, binary.LittleEndian, &rec.Size); err != nil {
			return nil, ErrorIncrementalList.Error(err)
		}
		if err = binary.Read(r, binary.LittleEndian, &rec.MtimeNS); err != nil {
			return nil, ErrorIncrementalList.Error(err)
		}
		if _, err = io.ReadFull(r, rec.HeadHash[:]); err != nil {
			return nil, ErrorIncrementalList.Error(err)
		}

		list[name] = rec
	}

	return list, nil
}
