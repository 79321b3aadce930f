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
	"crypto/rsa"
	"crypto/sha256"

	liberr "github.com/sabouaram/barsys/errors"
)

// NewSessionKey returns a random key sized for algo, used as the single
// per-archive symmetric key in asymmetric mode: the bulk payload is
// encrypted with it directly (via EncodeSessionKey/DecodeSessionKey,
// which carry no salt since the key is already random), and the key itself is
// wrapped once with the recipient's RSA public key into the archive's
// KEY0 chunk.
func NewSessionKey(algo Algorithm) ([]byte, liberr.Error) {
	key := make([]byte, algo.KeySize())
	if _, err := rand.Read(key); err != nil {
		return nil, ErrorByteKeygen.Error(err)
	}
	return key, nil
}

// WrapKeyRSA encrypts a session key produced by NewSessionKey with the
// recipient's RSA public key using OAEP, producing the KEY0 chunk payload.
func WrapKeyRSA(pub *rsa.PublicKey, sessionKey []byte) ([]byte, liberr.Error) {
	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, sessionKey, nil)
	if err != nil {
		return nil, ErrorRSAWrap.Error(err)
	}
	return ct, nil
}

// UnwrapKeyRSA decrypts a KEY0 chunk payload with the recipient's RSA
// private key, recovering the per-archive session key.
func UnwrapKeyRSA(priv *rsa.PrivateKey, wrapped []byte) ([]byte, liberr.Error) {
	pt, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, wrapped, nil)
	if err != nil {
		return nil, ErrorRSAUnwrap.Error(err)
	}
	return pt, nil
}

// EncodeSessionKey seals plaintext with an already-derived session key
// (asymmetric mode: no passphrase, no per-chunk salt — the key itself is
// unique per archive). The algorithm id is still carried in-band so the
// reader need only have the unwrapped session key, not know the algorithm
// out of band.
func EncodeSessionKey(algo Algorithm, sessionKey, plaintext []byte) ([]byte, liberr.Error) {
	if len(plaintext) == 0 {
		return []byte{}, nil
	}

	body, e := seal(algo, sessionKey, plaintext)
	if e != nil {
		return nil, e
	}

	out := make([]byte, 0, 1+len(body))
	out = append(out, byte(algo))
	out = append(out, body...)
	return out, nil
}

// DecodeSessionKey reverses EncodeSessionKey given the unwrapped session
// key.
func DecodeSessionKey(sessionKey, framed []byte) ([]byte, liberr.Error) {
	if len(framed) == 0 {
		return []byte{}, nil
	}
	if len(framed) < 1 {
		return nil, ErrorCiphertextShort.Error(nil)
	}

	algo := Algorithm(framed[0])
	return open(algo, sessionKey, framed[1:])
}
