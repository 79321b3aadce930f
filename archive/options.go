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
	"crypto/rsa"

	"github.com/sabouaram/barsys/compress"
	"github.com/sabouaram/barsys/crypt"
	"github.com/sabouaram/barsys/storage"
)

// DeltaSource, when set, lets the writer diff a candidate file's bytes
// against the last archived version of the same name before
// compressing it, trading CPU for a smaller delta-encoded fragment.
// Returning a nil slice (no prior version known) disables delta for
// that entry only.
type DeltaSource func(name string) (reference []byte, ok bool)

// CryptConfig selects, at most, one of the two crypt pipelines a
// writer or reader can use. Leaving both Passphrase and PublicKey/
// PrivateKey unset disables encryption entirely.
type CryptConfig struct {
	Algorithm crypt.Algorithm

	// Symmetric mode.
	Passphrase *crypt.Passphrase

	// Asymmetric mode: the writer wraps a fresh per-volume session key
	// under PublicKey; the reader unwraps it with PrivateKey.
	PublicKey  *rsa.PublicKey
	PrivateKey *rsa.PrivateKey
}

func (c CryptConfig) symmetric() bool  { return c.Passphrase != nil }
func (c CryptConfig) asymmetric() bool { return c.PublicKey != nil || c.PrivateKey != nil }
func (c CryptConfig) enabled() bool    { return c.symmetric() || c.asymmetric() }

// WriterOptions configures a new archive Writer.
type WriterOptions struct {
	// VolumeBaseName is the volume name stem; successive volumes are
	// named "<VolumeBaseName>-%06d.bar".
	VolumeBaseName string

	// VolumePartSize bounds how many uncompressed source bytes a single
	// volume accepts before the writer rotates to the next one. Zero
	// means unbounded (a single volume).
	VolumePartSize int64

	// SpillThreshold is handed straight to chunk.WriteChunk for every
	// chunk this writer emits.
	SpillThreshold int64

	CompressAlgorithm compress.Algorithm
	CompressLevel     int

	Delta DeltaSource
	Crypt CryptConfig

	Priority storage.Priority

	// Incremental holds a reference incremental list. The Writer stores
	// it but neither consults nor updates it: every entry handed to the
	// Add* methods is archived, and no records are added to the list.
	Incremental IncrementalList
}

// ReaderOptions configures a new archive Reader.
type ReaderOptions struct {
	// Passphrases is tried, in order, against every SALT chunk
	// encountered; the first one whose derived key successfully opens
	// the volume's first fragment is kept for the remainder of that
	// volume.
	Passphrases []*crypt.Passphrase

	// PrivateKey unwraps a KEY0 chunk's session key for asymmetric
	// volumes.
	PrivateKey *rsa.PrivateKey

	// Delta, when set, resolves a delta-encoded fragment's reference
	// bytes by entry name so ReadEntryData can reconstruct the original
	// content; a fragment arriving delta-encoded with no resolver (or a
	// resolver that returns ok=false) is handed back delta-encoded.
	Delta DeltaSource

	Priority storage.Priority
}
