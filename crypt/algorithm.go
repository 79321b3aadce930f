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
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"

	"golang.org/x/crypto/blowfish"
	"golang.org/x/crypto/cast5"
	"golang.org/x/crypto/twofish"
)

// Algorithm identifies a symmetric cipher available to the crypt pipeline.
// The id is carried in-band with every encrypted chunk so a decrypter
// never has to be told out-of-band which one was used.
type Algorithm uint8

const (
	AES128 Algorithm = iota + 1
	AES192
	AES256
	Twofish128
	Twofish256
	Blowfish
	CAST5
	ThreeDES
)

func (a Algorithm) String() string {
	switch a {
	case AES128:
		return "aes-128"
	case AES192:
		return "aes-192"
	case AES256:
		return "aes-256"
	case Twofish128:
		return "twofish-128"
	case Twofish256:
		return "twofish-256"
	case Blowfish:
		return "blowfish"
	case CAST5:
		return "cast5"
	case ThreeDES:
		return "3des"
	default:
		return "unknown"
	}
}

// KeySize returns the number of key bytes this algorithm expects.
func (a Algorithm) KeySize() int {
	switch a {
	case AES128:
		return 16
	case AES192:
		return 24
	case AES256, Twofish256:
		return 32
	case Twofish128:
		return 16
	case Blowfish:
		return 16 // a conservative default; blowfish accepts 4..56 bytes
	case CAST5:
		return cast5.KeySize
	case ThreeDES:
		return 24
	default:
		return 0
	}
}

// aeadCapable reports whether this algorithm's block size (128 bits) lets
// it run under GCM. The 64-bit block ciphers (3DES, CAST5, Blowfish) do
// not qualify and fall back to CBC + HMAC-SHA256 (encrypt-then-MAC).
func (a Algorithm) aeadCapable() bool {
	switch a {
	case AES128, AES192, AES256, Twofish128, Twofish256:
		return true
	default:
		return false
	}
}

func (a Algorithm) newBlock(key []byte) (cipher.Block, error) {
	switch a {
	case AES128, AES192, AES256:
		return aes.NewCipher(key)
	case Twofish128, Twofish256:
		return twofish.NewCipher(key)
	case Blowfish:
		return blowfish.NewCipher(key)
	case CAST5:
		return cast5.NewCipher(key)
	case ThreeDES:
		return des.NewTripleDESCipher(key)
	default:
		return nil, ErrorUnknownAlgorithm.Error(nil)
	}
}
