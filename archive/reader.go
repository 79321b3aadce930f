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
	"fmt"
	"io"

	"github.com/sabouaram/barsys/chunk"
	"github.com/sabouaram/barsys/compress"
	"github.com/sabouaram/barsys/crypt"
	liberr "github.com/sabouaram/barsys/errors"
	"github.com/sabouaram/barsys/storage"
)

// cryptSetup is the decoded form of a volume's SALT or KEY0 chunk.
type cryptSetup struct {
	mode    CryptMode
	algo    crypt.Algorithm
	salt    []byte
	wrapped []byte
}

// EntryHeader is one logical entry as seen by a Reader: its metadata
// plus the open fragment stream ReadEntryData pulls from, transparently
// following continuation chunks into later volumes.
type EntryHeader struct {
	EntryMetadata

	r       *Reader
	frag    *chunk.Iterator
	cur     io.Reader
	eof     bool
}

// Reader reconstructs entries from a sequence of volumes named
// "<base>-%06d.bar", opening successor volumes lazily by name as it
// runs out of chunks in the current one.
type Reader struct {
	store storage.Storage
	base  string
	opts  ReaderOptions

	volIdx int
	handle storage.Handle
	inner  *chunk.Iterator

	crypt      *cryptSetup
	sessionKey []byte

	pending *EntryHeader
	closed  bool
}

// Open prepares a Reader against the volume sequence rooted at
// "<base>-%06d.bar" in store. The first volume is not opened until the
// first call to NextEntry.
func Open(store storage.Storage, base string, opts ReaderOptions) *Reader {
	return &Reader{store: store, base: base, opts: opts}
}

func (r *Reader) volumeName(idx int) string {
	return fmt.Sprintf("%s-%06d.bar", r.base, idx)
}

// openNextVolume opens the successor of the volume last read (or the
// first volume, if none has been opened yet), consumes its optional
// crypto setup chunk, and leaves r.inner positioned at the first entry
// chunk. ok is false once no successor volume exists.
func (r *Reader) openNextVolume() (ok bool, lerr liberr.Error) {
	idx := r.volIdx + 1
	name := r.volumeName(idx)

	handle, err := r.store.Open(name, r.opts.Priority)
	if err != nil {
		if err.IsCode(storage.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}

	if r.handle != nil {
		_ = r.handle.Close()
	}
	r.handle = handle
	r.volIdx = idx
	r.crypt = nil
	r.sessionKey = nil

	outer := chunk.IterChunks(handle)
	root, rok, rerr := outer.Next()
	if rerr != nil {
		return false, ErrorReadChunk.Error(rerr)
	}
	if !rok || root.ID != idRoot {
		return false, ErrorMalformedEntry.Error(nil)
	}

	r.inner = chunk.IterChunksBounded(root.Reader, int64(root.Size))
	return true, nil
}

// parseCryptSetup inspects the first chunk of a freshly opened volume's
// inner stream, consuming it if it is a SALT/KEY0 chunk, and returns the
// first remaining chunk (the volume's first actual entry, if any).
func (r *Reader) parseCryptSetup() (*chunk.Chunk, bool, liberr.Error) {
	c, ok, err := r.inner.Next()
	if err != nil {
		return nil, false, ErrorReadChunk.Error(err)
	}
	if !ok {
		return nil, false, nil
	}

	switch c.ID {
	case idSalt:
		var algoByte [1]byte
		if _, e := io.ReadFull(c.Reader, algoByte[:]); e != nil {
			return nil, false, ErrorReadChunk.Error(e)
		}
		salt := make([]byte, 16)
		if _, e := io.ReadFull(c.Reader, salt); e != nil {
			return nil, false, ErrorReadChunk.Error(e)
		}
		r.crypt = &cryptSetup{mode: CryptSymmetric, algo: crypt.Algorithm(algoByte[0]), salt: salt}
		nc, nok, nerr := r.inner.Next()
		if nerr != nil {
			return nil, false, ErrorReadChunk.Error(nerr)
		}
		return nc, nok, nil
	case idKey:
		var algoByte [1]byte
		if _, e := io.ReadFull(c.Reader, algoByte[:]); e != nil {
			return nil, false, ErrorReadChunk.Error(e)
		}
		wrapped, e := io.ReadAll(c.Reader)
		if e != nil {
			return nil, false, ErrorReadChunk.Error(e)
		}
		r.crypt = &cryptSetup{mode: CryptAsymmetric, algo: crypt.Algorithm(algoByte[0]), wrapped: wrapped}
		nc, nok, nerr := r.inner.Next()
		if nerr != nil {
			return nil, false, ErrorReadChunk.Error(nerr)
		}
		return nc, nok, nil
	default:
		return c, true, nil
	}
}

// nextTopChunk returns the next top-level entry chunk, transparently
// advancing across volume boundaries and past each volume's crypto
// setup chunk. ok is false at a clean end of the whole archive.
func (r *Reader) nextTopChunk() (*chunk.Chunk, bool, liberr.Error) {
	for {
		if r.inner == nil {
			ok, err := r.openNextVolume()
			if err != nil {
				return nil, false, err
			}
			if !ok {
				return nil, false, nil
			}
			c, cok, cerr := r.parseCryptSetup()
			if cerr != nil {
				return nil, false, cerr
			}
			if cok {
				return c, true, nil
			}
			// empty volume: fall through and try the next one
			r.inner = nil
			continue
		}

		c, ok, err := r.inner.Next()
		if err != nil {
			return nil, false, ErrorReadChunk.Error(err)
		}
		if ok {
			return c, true, nil
		}

		r.inner = nil
	}
}

// nextEntryHeader reads one top-level entry chunk fully enough to
// expose its metadata, leaving its fragment stream (if any) open on
// the returned header.
func (r *Reader) nextEntryHeader() (*EntryHeader, bool, liberr.Error) {
	c, ok, err := r.nextTopChunk()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	et, known := entryTypeFromChunkID(c.ID)
	if !known {
		return nil, false, ErrorUnknownEntryType.Error(nil)
	}

	body := chunk.IterChunksBounded(c.Reader, int64(c.Size))

	mc, mok, merr := body.Next()
	if merr != nil {
		return nil, false, ErrorReadChunk.Error(merr)
	}
	if !mok || mc.ID != idMeta {
		return nil, false, ErrorMalformedEntry.Error(nil)
	}

	m, derr := readMeta(mc.Reader)
	if derr != nil {
		return nil, false, ErrorMetadataDecode.Error(derr)
	}
	m.Type = et

	eh := &EntryHeader{EntryMetadata: m, r: r, frag: body}
	if !et.fragmentable() {
		eh.eof = true
	}

	return eh, true, nil
}

// NextEntry returns the next logical entry in the archive, transparently
// merging an entry's chunks across however many volumes it spans.
// ok is false at a clean end of archive.
func (r *Reader) NextEntry() (*EntryHeader, bool, liberr.Error) {
	if r.closed {
		return nil, false, ErrorClosed.Error(nil)
	}
	if r.pending != nil {
		eh := r.pending
		r.pending = nil
		return eh, true, nil
	}
	return r.nextEntryHeader()
}

// ReadEntryData reads decoded entry content into p, following
// continuation chunks into later volumes as needed. A return of
// (0, true, nil) marks the clean end of this entry's data.
func (r *Reader) ReadEntryData(eh *EntryHeader, p []byte) (int, bool, liberr.Error) {
	for {
		if eh.cur != nil {
			n, err := eh.cur.Read(p)
			if n > 0 {
				return n, false, nil
			}
			if err != nil && err != io.EOF {
				return 0, false, ErrorReadChunk.Error(err)
			}
			eh.cur = nil
		}

		if eh.eof {
			return 0, true, nil
		}

		fc, fok, ferr := eh.frag.Next()
		if ferr != nil {
			return 0, false, ErrorReadChunk.Error(ferr)
		}
		if fok {
			data, derr := r.decodeFragment(fc, eh.Name)
			if derr != nil {
				return 0, false, derr
			}
			if len(data) == 0 {
				continue
			}
			eh.cur = bytes.NewReader(data)
			continue
		}

		// This top-level chunk is exhausted; see whether the next one
		// continues the same entry in this or a successor volume.
		next, nok, nerr := r.nextEntryHeader()
		if nerr != nil {
			return 0, false, nerr
		}
		if !nok {
			eh.eof = true
			return 0, true, nil
		}
		if next.Type == eh.Type && next.Name == eh.Name {
			eh.frag = next.frag
			continue
		}

		r.pending = next
		eh.eof = true
		return 0, true, nil
	}
}

// decodeFragment decrypts (if configured), decompresses and, for a
// delta-encoded fragment with a resolver available, reconstructs one
// FDAT/IDAT chunk's payload.
func (r *Reader) decodeFragment(c *chunk.Chunk, name string) ([]byte, liberr.Error) {
	var offset, size uint64
	if err := binary.Read(c.Reader, binary.LittleEndian, &offset); err != nil {
		return nil, ErrorReadChunk.Error(err)
	}
	if err := binary.Read(c.Reader, binary.LittleEndian, &size); err != nil {
		return nil, ErrorReadChunk.Error(err)
	}

	var head [2]byte
	if _, err := io.ReadFull(c.Reader, head[:]); err != nil {
		return nil, ErrorReadChunk.Error(err)
	}
	flags, algo := head[0], compress.Algorithm(head[1])

	ciphertext, err := io.ReadAll(c.Reader)
	if err != nil {
		return nil, ErrorReadChunk.Error(err)
	}

	plainCompressed, derr := r.decrypt(ciphertext)
	if derr != nil {
		return nil, derr
	}

	eng, eerr := compress.NewDecompressor(algo)
	if eerr != nil {
		return nil, ErrorDecompress.Error(eerr)
	}
	if eerr = eng.Push(plainCompressed); eerr != nil {
		return nil, ErrorDecompress.Error(eerr)
	}
	payload, eerr := eng.Finish()
	if eerr != nil {
		return nil, ErrorDecompress.Error(eerr)
	}

	if flags&1 == 0 {
		return payload, nil
	}

	// Delta-encoded: reconstruct against the caller-supplied reference,
	// if one is available; otherwise hand the delta bytes back as-is,
	// still usable by a caller that recognizes the delta wire format.
	if r.opts.Delta == nil {
		return payload, nil
	}
	ref, ok := r.opts.Delta(name)
	if !ok {
		return payload, nil
	}
	patched, perr := compress.DeltaPatch(ref, payload)
	if perr != nil {
		return nil, ErrorDeltaPatch.Error(perr)
	}
	return patched, nil
}

// decrypt reverses EncodeSessionKey against the current volume's
// session key, deriving or unwrapping that key on first use.
func (r *Reader) decrypt(ciphertext []byte) ([]byte, liberr.Error) {
	if r.crypt == nil {
		return ciphertext, nil
	}

	if r.sessionKey == nil {
		switch r.crypt.mode {
		case CryptSymmetric:
			if len(r.opts.Passphrases) == 0 {
				return nil, ErrorCryptPasswordRequired.Error(nil)
			}
			for _, p := range r.opts.Passphrases {
				key := crypt.DeriveKey(p.Deploy(), r.crypt.salt, r.crypt.algo)
				if pt, derr := crypt.DecodeSessionKey(key, ciphertext); derr == nil {
					r.sessionKey = key
					return pt, nil
				}
			}
			return nil, ErrorCryptPasswordRequired.Error(nil)

		case CryptAsymmetric:
			if r.opts.PrivateKey == nil {
				return nil, ErrorCryptPrivateKeyRequired.Error(nil)
			}
			key, kerr := crypt.UnwrapKeyRSA(r.opts.PrivateKey, r.crypt.wrapped)
			if kerr != nil {
				return nil, ErrorDecrypt.Error(kerr)
			}
			r.sessionKey = key
		}
	}

	pt, derr := crypt.DecodeSessionKey(r.sessionKey, ciphertext)
	if derr != nil {
		return nil, ErrorDecrypt.Error(derr)
	}
	return pt, nil
}

// Close releases the currently open volume handle. Close does not
// rewind; a closed Reader may not be used again.
func (r *Reader) Close() liberr.Error {
	if r.closed {
		return nil
	}
	r.closed = true

	for _, p := range r.opts.Passphrases {
		p.Undeploy()
	}

	if r.handle != nil {
		if err := r.handle.Close(); err != nil {
			return ErrorOpenVolume.Error(err)
		}
	}
	return nil
}
