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
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sabouaram/barsys/chunk"
	"github.com/sabouaram/barsys/compress"
	"github.com/sabouaram/barsys/crypt"
	liberr "github.com/sabouaram/barsys/errors"
	"github.com/sabouaram/barsys/ioutils"
	"github.com/sabouaram/barsys/storage"
)

// fragmentBlockSize bounds how much source data one FDAT/IDAT fragment
// carries. Each fragment is delta-diffed, compressed and encrypted as
// one independent unit, so this is also the granularity at which a
// reader can start decoding without having buffered a whole entry.
const fragmentBlockSize = 4 * 1024 * 1024

// EntryAttrs carries the filesystem attributes common to every entry
// kind; AddSpecial additionally takes a device's major/minor numbers.
type EntryAttrs struct {
	UID, GID     uint32
	Mode         uint32
	Mtime, Atime, Ctime time.Time
}

// writerOnly strips every method but Write from whatever it wraps. A
// storage.Handle structurally satisfies io.Seeker on every backend,
// including ones (FTP, SFTP, WebDAV) whose Seek always fails; wrapping
// a handle in writerOnly before handing it to chunk.WriteChunk forces
// the safe buffered/spill path regardless of what the real handle's
// Seek does.
type writerOnly struct {
	io.Writer
}

// volumeState holds the in-progress local buffer and per-volume crypto
// material for the volume currently being written. Top-level entry
// chunks are built directly against tmp, a genuinely seekable *os.File,
// so chunk.WriteChunk takes its seek-and-patch path for them; the META
// and FDAT/IDAT chunks nested inside an entry are written through the
// non-seekable writer chunk.WriteChunk hands the entry's callback, and
// so take the buffered path.
type volumeState struct {
	index      int
	tmp        *os.File
	used       int64
	sessionKey []byte
}

// Writer assembles source entries into one or more volumes of the
// chunked archive format, rotating to a new volume whenever the
// current one reaches WriterOptions.VolumePartSize.
type Writer struct {
	store storage.Storage
	opts  WriterOptions
	vol   *volumeState
	names []string

	closed bool
}

// New returns a Writer that creates volumes named
// "<opts.VolumeBaseName>-%06d.bar" against store.
func New(store storage.Storage, opts WriterOptions) (*Writer, liberr.Error) {
	if opts.VolumeBaseName == "" {
		return nil, ErrorCreateVolume.Error(nil)
	}
	if opts.Crypt.symmetric() && opts.Crypt.Passphrase == nil {
		return nil, ErrorCryptPasswordRequired.Error(nil)
	}
	if opts.Crypt.asymmetric() && opts.Crypt.PublicKey == nil {
		return nil, ErrorCrypt.Error(nil)
	}
	return &Writer{store: store, opts: opts}, nil
}

// Names returns the volume names finalized so far, in write order.
// Safe to call before Close, so a caller aborting a run mid-write can
// still learn which volumes actually reached storage.
func (w *Writer) Names() []string {
	return append([]string(nil), w.names...)
}

func (w *Writer) volumeName(idx int) string {
	return fmt.Sprintf("%s-%06d.bar", w.opts.VolumeBaseName, idx)
}

// ensureVolume opens a new volume when none is open yet, or when the
// current one has reached its configured capacity.
func (w *Writer) ensureVolume() liberr.Error {
	if w.vol != nil && (w.opts.VolumePartSize <= 0 || w.vol.used < w.opts.VolumePartSize) {
		return nil
	}
	if w.vol != nil {
		if err := w.finalizeVolume(); err != nil {
			return err
		}
	}

	tmp, terr := ioutils.NewTempFile()
	if terr != nil {
		return ErrorCreateVolume.Error(terr)
	}

	vol := &volumeState{index: len(w.names) + 1, tmp: tmp}

	if w.opts.Crypt.enabled() {
		if err := w.initVolumeCrypto(vol); err != nil {
			_ = ioutils.DelTempFile(tmp)
			return err
		}
	}

	w.vol = vol
	return nil
}

// initVolumeCrypto mints this volume's session key and records it, once,
// in a SALT or KEY0 child chunk immediately following the eventual BAR0
// header. Every fragment written to this volume is then encrypted with
// crypt.EncodeSessionKey against the same key, so individual fragments
// never need to carry their own salt.
func (w *Writer) initVolumeCrypto(vol *volumeState) liberr.Error {
	cfg := w.opts.Crypt

	switch {
	case cfg.symmetric():
		salt, err := crypt.NewSalt()
		if err != nil {
			return ErrorCrypt.Error(err)
		}
		vol.sessionKey = crypt.DeriveKey(cfg.Passphrase.Deploy(), salt, cfg.Algorithm)

		werr := chunk.WriteChunk(vol.tmp, idSalt, w.opts.SpillThreshold, func(cw io.Writer) error {
			if _, e := cw.Write([]byte{byte(cfg.Algorithm)}); e != nil {
				return e
			}
			_, e := cw.Write(salt)
			return e
		})
		if werr != nil {
			return ErrorWriteChunk.Error(werr)
		}

	case cfg.asymmetric():
		sessionKey, err := crypt.NewSessionKey(cfg.Algorithm)
		if err != nil {
			return ErrorCrypt.Error(err)
		}
		wrapped, err := crypt.WrapKeyRSA(cfg.PublicKey, sessionKey)
		if err != nil {
			return ErrorCrypt.Error(err)
		}
		vol.sessionKey = sessionKey

		werr := chunk.WriteChunk(vol.tmp, idKey, w.opts.SpillThreshold, func(cw io.Writer) error {
			if _, e := cw.Write([]byte{byte(cfg.Algorithm)}); e != nil {
				return e
			}
			_, e := cw.Write(wrapped)
			return e
		})
		if werr != nil {
			return ErrorWriteChunk.Error(werr)
		}
	}

	return nil
}

// finalizeVolume flushes the current volume's buffered content to
// storage as a single BAR0 chunk and retires the local temp file. The
// real storage.Handle is only ever touched through writerOnly, so this
// is safe even against backends whose Seek always errors.
func (w *Writer) finalizeVolume() liberr.Error {
	vol := w.vol
	if vol == nil {
		return nil
	}

	if _, err := vol.tmp.Seek(0, io.SeekStart); err != nil {
		_ = ioutils.DelTempFile(vol.tmp)
		return ErrorCreateVolume.Error(err)
	}

	name := w.volumeName(vol.index)
	handle, err := w.store.Create(name, 0, w.opts.Priority)
	if err != nil {
		_ = ioutils.DelTempFile(vol.tmp)
		return err
	}

	werr := chunk.WriteChunk(writerOnly{handle}, idRoot, w.opts.SpillThreshold, func(cw io.Writer) error {
		_, e := io.Copy(cw, vol.tmp)
		return e
	})

	if cerr := handle.Close(); cerr != nil && werr == nil {
		werr = ErrorCreateVolume.Error(cerr)
	}

	_ = ioutils.DelTempFile(vol.tmp)

	if werr != nil {
		return ErrorWriteChunk.Error(werr)
	}

	w.names = append(w.names, name)
	w.vol = nil
	return nil
}

func meta(typ EntryType, name string, size int64, a EntryAttrs) EntryMetadata {
	return EntryMetadata{
		Type:  typ,
		Name:  name,
		Size:  size,
		Mtime: a.Mtime,
		Atime: a.Atime,
		Ctime: a.Ctime,
		UID:   a.UID,
		GID:   a.GID,
		Mode:  a.Mode,
	}
}

func (w *Writer) cryptMode() CryptMode {
	switch {
	case w.opts.Crypt.symmetric():
		return CryptSymmetric
	case w.opts.Crypt.asymmetric():
		return CryptAsymmetric
	default:
		return CryptNone
	}
}

// AddFile archives a regular file's content, read in full from r.
func (w *Writer) AddFile(name string, attrs EntryAttrs, size int64, r io.Reader) liberr.Error {
	m := meta(TypeFile, name, size, attrs)
	m.CryptAlgo = w.opts.Crypt.Algorithm
	m.CryptMode = w.cryptMode()
	return w.writeFragmentableEntry(m, r)
}

// AddImage archives an opaque filesystem image (a partition or disk
// dump), recording its detected filesystem type for informational use
// on restore.
func (w *Writer) AddImage(name, fsType string, attrs EntryAttrs, size int64, r io.Reader) liberr.Error {
	m := meta(TypeImage, name, size, attrs)
	m.FSType = fsType
	m.CryptAlgo = w.opts.Crypt.Algorithm
	m.CryptMode = w.cryptMode()
	return w.writeFragmentableEntry(m, r)
}

// AddHardlink archives a hardlinked file's own content so that every
// archived name is independently restorable without cross-entry
// bookkeeping; target is recorded for informational purposes only.
func (w *Writer) AddHardlink(name, target string, attrs EntryAttrs, size int64, r io.Reader) liberr.Error {
	m := meta(TypeHardlink, name, size, attrs)
	m.LinkTarget = target
	m.CryptAlgo = w.opts.Crypt.Algorithm
	m.CryptMode = w.cryptMode()
	return w.writeFragmentableEntry(m, r)
}

// AddDirectory archives a directory entry (metadata only).
func (w *Writer) AddDirectory(name string, attrs EntryAttrs) liberr.Error {
	return w.writeMetaOnlyEntry(meta(TypeDirectory, name, 0, attrs))
}

// AddLink archives a symbolic link entry pointing at target.
func (w *Writer) AddLink(name, target string, attrs EntryAttrs) liberr.Error {
	m := meta(TypeSymlink, name, 0, attrs)
	m.LinkTarget = target
	return w.writeMetaOnlyEntry(m)
}

// AddSpecial archives a device/FIFO/socket special file, major/minor
// only meaningful for block and character devices.
func (w *Writer) AddSpecial(name string, major, minor uint32, attrs EntryAttrs) liberr.Error {
	m := meta(TypeSpecial, name, 0, attrs)
	m.Major, m.Minor = major, minor
	return w.writeMetaOnlyEntry(m)
}

func (w *Writer) writeMetaOnlyEntry(m EntryMetadata) liberr.Error {
	if w.closed {
		return ErrorClosed.Error(nil)
	}
	if err := w.ensureVolume(); err != nil {
		return err
	}

	vol := w.vol
	werr := chunk.WriteChunk(vol.tmp, m.Type.chunkID(), w.opts.SpillThreshold, func(cw io.Writer) error {
		return writeMetaChunk(cw, m, w.opts.SpillThreshold)
	})
	if werr != nil {
		return ErrorWriteChunk.Error(werr)
	}
	return nil
}

// writeFragmentableEntry streams r's content into one or more FDAT/IDAT
// fragments. Whenever the current volume fills up mid-entry, a fresh
// top-level chunk carrying the same metadata is opened in the next
// volume; the writer never returns to the caller until the whole entry,
// however many volumes it spans, has been written, which keeps one
// entry's chunks contiguous for the reader's merge-by-name logic.
func (w *Writer) writeFragmentableEntry(m EntryMetadata, r io.Reader) liberr.Error {
	if w.closed {
		return ErrorClosed.Error(nil)
	}

	offset := int64(0)
	eof := false

	for !eof {
		if err := w.ensureVolume(); err != nil {
			return err
		}
		vol := w.vol

		werr := chunk.WriteChunk(vol.tmp, m.Type.chunkID(), w.opts.SpillThreshold, func(cw io.Writer) error {
			if e := writeMetaChunk(cw, m, w.opts.SpillThreshold); e != nil {
				return e
			}

			for {
				if w.opts.VolumePartSize > 0 && vol.used >= w.opts.VolumePartSize {
					return nil
				}

				blockSize := int64(fragmentBlockSize)
				if w.opts.VolumePartSize > 0 {
					if rem := w.opts.VolumePartSize - vol.used; rem < blockSize {
						blockSize = rem
					}
				}

				buf := make([]byte, blockSize)
				n, rerr := io.ReadFull(r, buf)
				if n > 0 {
					if e := w.writeFragment(cw, &m, m.Type.dataChunkID(), vol, offset, buf[:n]); e != nil {
						return e
					}
					offset += int64(n)
				}

				if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
					eof = true
					return nil
				}
				if rerr != nil {
					return rerr
				}
			}
		})
		if werr != nil {
			return ErrorWriteChunk.Error(werr)
		}
	}

	return nil
}

func writeMetaChunk(cw io.Writer, m EntryMetadata, spillThreshold int64) error {
	return chunk.WriteChunk(cw, idMeta, spillThreshold, func(mw io.Writer) error {
		return writeMeta(mw, m)
	})
}

// writeFragment runs one block through the optional delta, compression
// and encryption stages and writes it as one FDAT/IDAT chunk.
func (w *Writer) writeFragment(cw io.Writer, m *EntryMetadata, kind chunk.ID, vol *volumeState, offset int64, data []byte) error {
	payload := data
	delta := false

	if w.opts.Delta != nil {
		if ref, ok := w.opts.Delta(m.Name); ok {
			if d := compress.Delta(ref, data); len(d) < len(data) {
				payload = d
				delta = true
			}
		}
	}

	eng, eerr := compress.NewCompressor(w.opts.CompressAlgorithm, w.opts.CompressLevel)
	if eerr != nil {
		return ErrorCompress.Error(eerr)
	}
	if eerr = eng.Push(payload); eerr != nil {
		return ErrorCompress.Error(eerr)
	}
	compressed, eerr := eng.Finish()
	if eerr != nil {
		return ErrorCompress.Error(eerr)
	}

	final := compressed
	if w.opts.Crypt.enabled() {
		enc, cerr := crypt.EncodeSessionKey(w.opts.Crypt.Algorithm, vol.sessionKey, compressed)
		if cerr != nil {
			return ErrorCrypt.Error(cerr)
		}
		final = enc
	}

	var flags byte
	if delta {
		flags |= 1
	}
	size := uint64(len(payload))

	werr := chunk.WriteChunk(cw, kind, w.opts.SpillThreshold, func(fw io.Writer) error {
		if e := binary.Write(fw, binary.LittleEndian, uint64(offset)); e != nil {
			return e
		}
		if e := binary.Write(fw, binary.LittleEndian, size); e != nil {
			return e
		}
		if _, e := fw.Write([]byte{flags, byte(w.opts.CompressAlgorithm)}); e != nil {
			return e
		}
		_, e := fw.Write(final)
		return e
	})
	if werr != nil {
		return werr
	}

	vol.used += int64(len(data))
	return nil
}

// Close finalizes whatever volume is still open and returns the
// ordered list of volume names written. After Close the writer may not
// be used again.
func (w *Writer) Close() ([]string, liberr.Error) {
	if w.closed {
		return w.names, nil
	}
	w.closed = true

	if err := w.finalizeVolume(); err != nil {
		return w.names, err
	}
	if w.opts.Crypt.symmetric() {
		w.opts.Crypt.Passphrase.Undeploy()
	}

	return w.names, nil
}
