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
	"time"

	"github.com/sabouaram/barsys/crypt"
)

// CryptMode records, per entry, whether its data fragments were run
// through the symmetric or asymmetric crypt pipeline (or neither). The
// key material itself lives once per volume in the SALT/KEY0 chunk;
// this is carried per entry purely so the entry stays self-describing,
// matching the data model's "crypto parameters" field on every entry.
type CryptMode uint8

const (
	CryptNone CryptMode = iota
	CryptSymmetric
	CryptAsymmetric
)

// EntryMetadata is the fixed-layout record written as the first child of
// every entry chunk (file, image, directory, symlink, hardlink, special).
type EntryMetadata struct {
	// Type is never serialized into the META payload itself: a reader
	// already knows it from the enclosing top-level chunk's own id
	// (idFile, idImage, ...) before it ever parses META. Writers set it
	// so the in-memory value can drive chunkID()/dataChunkID() without
	// a second parameter threaded everywhere.
	Type EntryType

	Name       string
	Size       int64
	Mtime      time.Time
	Atime      time.Time
	Ctime      time.Time
	UID        uint32
	GID        uint32
	Mode       uint32
	Major      uint32
	Minor      uint32
	FSType     string // set for TypeImage
	LinkTarget string // set for TypeSymlink/TypeHardlink
	CryptAlgo  crypt.Algorithm
	CryptMode  CryptMode
}

func writeMeta(w io.Writer, m EntryMetadata) error {
	var buf bytes.Buffer

	writeString(&buf, m.Name)
	_ = binary.Write(&buf, binary.LittleEndian, m.Size)
	_ = binary.Write(&buf, binary.LittleEndian, m.Mtime.UnixNano())
	_ = binary.Write(&buf, binary.LittleEndian, m.Atime.UnixNano())
	_ = binary.Write(&buf, binary.LittleEndian, m.Ctime.UnixNano())
	_ = binary.Write(&buf, binary.LittleEndian, m.UID)
	_ = binary.Write(&buf, binary.LittleEndian, m.GID)
	_ = binary.Write(&buf, binary.LittleEndian, m.Mode)
	_ = binary.Write(&buf, binary.LittleEndian, m.Major)
	_ = binary.Write(&buf, binary.LittleEndian, m.Minor)
	writeString(&buf, m.FSType)
	writeString(&buf, m.LinkTarget)
	buf.WriteByte(byte(m.CryptAlgo))
	buf.WriteByte(byte(m.CryptMode))

	_, err := w.Write(buf.Bytes())
	return err
}

func readMeta(r io.Reader) (EntryMetadata, error) {
	var m EntryMetadata
	var err error

	if m.Name, err = readString(r); err != nil {
		return m, err
	}
	if err = binary.Read(r, binary.LittleEndian, &m.Size); err != nil {
		return m, err
	}

	var mtimeNS, atimeNS, ctimeNS int64
	if err = binary.Read(r, binary.LittleEndian, &mtimeNS); err != nil {
		return m, err
	}
	if err = binary.Read(r, binary.LittleEndian, &atimeNS); err != nil {
		return m, err
	}
	if err = binary.Read(r, binary.LittleEndian, &ctimeNS); err != nil {
		return m, err
	}
	m.Mtime = time.Unix(0, mtimeNS).UTC()
	m.Atime = time.Unix(0, atimeNS).UTC()
	m.Ctime = time.Unix(0, ctimeNS).UTC()

	if err = binary.Read(r, binary.LittleEndian, &m.UID); err != nil {
		return m, err
	}
	if err = binary.Read(r, binary.LittleEndian, &m.GID); err != nil {
		return m, err
	}
	if err = binary.Read(r, binary.LittleEndian, &m.Mode); err != nil {
		return m, err
	}
	if err = binary.Read(r, binary.LittleEndian, &m.Major); err != nil {
		return m, err
	}
	if err = binary.Read(r, binary.LittleEndian, &m.Minor); err != nil {
		return m, err
	}
	if m.FSType, err = readString(r); err != nil {
		return m, err
	}
	if m.LinkTarget, err = readString(r); err != nil {
		return m, err
	}

	var algo, mode [1]byte
	if _, err = io.ReadFull(r, algo[:]); err != nil {
		return m, err
	}
	if _, err = io.ReadFull(r, mode[:]); err != nil {
		return m, err
	}
	m.CryptAlgo = crypt.Algorithm(algo[0])
	m.CryptMode = CryptMode(mode[0])

	return m, nil
}

// writeString/readString implement the external format's "u16 length,
// UTF-8 bytes" string encoding, also used by the incremental list file.
func writeString(w *bytes.Buffer, s string) {
	_ = binary.Write(w, binary.LittleEndian, uint16(len(s)))
	w.WriteString(s)
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
