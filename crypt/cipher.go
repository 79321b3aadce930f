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
	"bytes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"

	liberr "github.com/sabouaram/barsys/errors"
)

// EncodeFramed seals plaintext under a key derived from passphrase and a
// freshly generated salt, then prefixes the ciphertext with everything a
// decrypter needs without any out-of-band configuration: the algorithm id,
// the salt, and the nonce/iv. Empty payloads pass through untouched (no
// ciphertext expansion for empty files).
func EncodeFramed(passphrase []byte, algo Algorithm, plaintext []byte) ([]byte, liberr.Error) {
	if len(plaintext) == 0 {
		return []byte{}, nil
	}
	if len(passphrase) == 0 {
		return nil, ErrorPassphraseRequired.Error(nil)
	}

	salt, err := NewSalt()
	if err != nil {
		return nil, ErrorByteNonceGen.Error(err)
	}
	key := DeriveKey(passphrase, salt, algo)

	body, e := seal(algo, key, plaintext)
	if e != nil {
		return nil, e
	}

	out := make([]byte, 0, 1+SaltSize+len(body))
	out = append(out, byte(algo))
	out = append(out, salt...)
	out = append(out, body...)
	return out, nil
}

// DecodeFramed reverses EncodeFramed using the same passphrase; the
// algorithm and salt are read back from the frame itself.
func DecodeFramed(passphrase []byte, framed []byte) ([]byte, liberr.Error) {
	if len(framed) == 0 {
		return []byte{}, nil
	}
	if len(framed) < 1+SaltSize {
		return nil, ErrorCiphertextShort.Error(nil)
	}
	if len(passphrase) == 0 {
		return nil, ErrorPassphraseRequired.Error(nil)
	}

	algo := Algorithm(framed[0])
	salt := framed[1 : 1+SaltSize]
	body := framed[1+SaltSize:]

	key := DeriveKey(passphrase, salt, algo)

	return open(algo, key, body)
}

// aeadNonceSize is the nonce length produced by crypto/cipher.NewGCM's
// standard constructor, which NewAlgo always uses regardless of the
// underlying block cipher.
const aeadNonceSize = 12

func seal(algo Algorithm, key, plaintext []byte) ([]byte, liberr.Error) {
	if !algo.aeadCapable() {
		blk, err := algo.newBlock(key)
		if err != nil {
			return nil, ErrorBlockCipherInit.Error(err)
		}
		return sealCBCHMAC(blk, key, plaintext)
	}

	nonce := make([]byte, aeadNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, ErrorByteNonceGen.Error(err)
	}

	c, err := NewAlgo(algo, key, nonce)
	if err != nil {
		return nil, ErrorBlockCipherInit.Error(err)
	}

	ct := c.Encode(plaintext)
	return append(nonce, ct...), nil
}

func open(algo Algorithm, key, framed []byte) ([]byte, liberr.Error) {
	if !algo.aeadCapable() {
		blk, err := algo.newBlock(key)
		if err != nil {
			return nil, ErrorBlockCipherInit.Error(err)
		}
		return openCBCHMAC(blk, key, framed)
	}

	if len(framed) < aeadNonceSize {
		return nil, ErrorCiphertextShort.Error(nil)
	}
	nonce, ct := framed[:aeadNonceSize], framed[aeadNonceSize:]

	c, err := NewAlgo(algo, key, nonce)
	if err != nil {
		return nil, ErrorBlockCipherInit.Error(err)
	}

	pt, derr := c.Decode(ct)
	if derr != nil {
		return nil, ErrorAESDecrypt.Error(derr)
	}
	return pt, nil
}

// sealCBCHMAC implements encrypt-then-MAC for the 64-bit block ciphers
// (3DES, CAST5, Blowfish) that cannot run under GCM: PKCS#7 padding, CBC
// encryption under a random IV, then an HMAC-SHA256 tag over iv||ciphertext
// computed with a key independent from the encryption key.
func sealCBCHMAC(blk cipher.Block, key, plaintext []byte) ([]byte, liberr.Error) {
	bs := blk.BlockSize()
	padded := pkcs7Pad(plaintext, bs)

	iv := make([]byte, bs)
	if _, err := rand.Read(iv); err != nil {
		return nil, ErrorByteNonceGen.Error(err)
	}

	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(blk, iv).CryptBlocks(ct, padded)

	macKey := hmacKey(key)
	mac := hmac.New(sha256.New, macKey)
	mac.Write(iv)
	mac.Write(ct)
	tag := mac.Sum(nil)

	out := make([]byte, 0, len(iv)+len(ct)+len(tag))
	out = append(out, iv...)
	out = append(out, ct...)
	out = append(out, tag...)
	return out, nil
}

func openCBCHMAC(blk cipher.Block, key, framed []byte) ([]byte, liberr.Error) {
	bs := blk.BlockSize()
	if len(framed) < bs+sha256.Size {
		return nil, ErrorCiphertextShort.Error(nil)
	}

	iv := framed[:bs]
	ct := framed[bs : len(framed)-sha256.Size]
	tag := framed[len(framed)-sha256.Size:]

	if len(ct)%bs != 0 || len(ct) == 0 {
		return nil, ErrorCiphertextShort.Error(nil)
	}

	macKey := hmacKey(key)
	mac := hmac.New(sha256.New, macKey)
	mac.Write(iv)
	mac.Write(ct)
	if !hmac.Equal(mac.Sum(nil), tag) {
		return nil, ErrorMACMismatch.Error(nil)
	}

	pt := make([]byte, len(ct))
	cipher.NewCBCDecrypter(blk, iv).CryptBlocks(pt, ct)

	return pkcs7Unpad(pt)
}

// hmacKey derives a MAC key independent of the encryption key from the
// same key material, so a single passphrase-derived key never does double
// duty as both an encryption and an authentication key.
func hmacKey(key []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte("barsys-crypt-mac"))
	return h.Sum(nil)
}

func pkcs7Pad(p []byte, blockSize int) []byte {
	pad := blockSize - len(p)%blockSize
	out := make([]byte, len(p)+pad)
	copy(out, p)
	for i := len(p); i < len(out); i++ {
		out[i] = byte(pad)
	}
	return out
}

func pkcs7Unpad(p []byte) ([]byte, liberr.Error) {
	if len(p) == 0 {
		return nil, ErrorCiphertextShort.Error(nil)
	}
	pad := int(p[len(p)-1])
	if pad == 0 || pad > len(p) {
		return nil, ErrorMACMismatch.Error(nil)
	}
	if !bytes.Equal(p[len(p)-pad:], bytes.Repeat([]byte{byte(pad)}, pad)) {
		return nil, ErrorMACMismatch.Error(nil)
	}
	return p[:len(p)-pad], nil
}
