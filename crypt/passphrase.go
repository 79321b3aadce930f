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

package crypt

import (
	"crypto/rand"
	"crypto/sha256"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDFIterations is the PBKDF2 round count used to derive a symmetric key
// from a passphrase. It is deliberately high enough to make brute-forcing
// a short passphrase expensive without making key derivation noticeable
// next to the archive I/O it precedes.
const PBKDFIterations = 200000

// SaltSize is the per-archive salt length stored alongside the derived
// key's algorithm id in every symmetrically encrypted chunk, per the
// "every encrypted chunk carries its algorithm id and salt in-band"
// invariant.
const SaltSize = 16

// NewSalt returns a fresh random per-archive salt.
func NewSalt() ([]byte, error) {
	s := make([]byte, SaltSize)
	_, err := rand.Read(s)
	return s, err
}

// DeriveKey runs PBKDF2-HMAC-SHA256 over passphrase and salt, returning a
// key sized for algo.
func DeriveKey(passphrase []byte, salt []byte, algo Algorithm) []byte {
	return pbkdf2.Key(passphrase, salt, PBKDFIterations, algo.KeySize(), sha256.New)
}

// Passphrase holds plaintext passphrase bytes with a narrow, explicit
// lifetime: Deploy returns the bytes for the duration of a single
// cryptographic call, Undeploy zeroes them immediately afterward. The
// underlying buffer is also best-effort memory-locked on platforms that
// support it so it cannot be paged to swap while deployed.
type Passphrase struct {
	mu       sync.Mutex
	buf      []byte
	deployed bool
}

// NewPassphrase copies s into a dedicated buffer owned by the returned
// Passphrase; the caller's own copy of s is not scrubbed and should be
// discarded by the caller.
func NewPassphrase(s string) *Passphrase {
	p := &Passphrase{buf: make([]byte, len(s))}
	copy(p.buf, s)
	return p
}

// Deploy locks the buffer in memory (best effort) and returns it. Every
// Deploy must be paired with exactly one Undeploy.
func (p *Passphrase) Deploy() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.deployed {
		lockMemory(p.buf)
		p.deployed = true
	}
	return p.buf
}

// Undeploy zeroes the passphrase bytes and releases the memory lock. The
// Passphrase may be Deploy'd again afterward if the caller retained the
// original string via a fresh NewPassphrase call; Undeploy alone destroys
// the plaintext for good.
func (p *Passphrase) Undeploy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deployed {
		unlockMemory(p.buf)
		p.deployed = false
	}
	for i := range p.buf {
		p.buf[i] = 0
	}
}
