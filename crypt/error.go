/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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
	"fmt"

	liberr "github.com/sabouaram/barsys/errors"
	pkgcode "github.com/sabouaram/barsys/internal/pkgcode"
)

const (
	ErrorEmptyParams liberr.CodeError = iota + pkgcode.MinPkgCrypt
	ErrorHexaDecode
	ErrorHexaKey
	ErrorHexaNonce
	ErrorByteKeygen
	ErrorByteNonceGen
	ErrorAESBlock
	ErrorAESGCM
	ErrorAESDecrypt
	ErrorUnknownAlgorithm
	ErrorInvalidKeySize
	ErrorBlockCipherInit
	ErrorCiphertextShort
	ErrorMACMismatch
	ErrorRSAWrap
	ErrorRSAUnwrap
	ErrorPassphraseRequired
)

func init() {
	if liberr.ExistInMapMessage(ErrorEmptyParams) {
		panic(fmt.Errorf("error code collision golib/crypt"))
	}
	liberr.RegisterIdFctMessage(ErrorEmptyParams, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorEmptyParams:
		return "given parameters is empty"
	case ErrorHexaDecode:
		return "hexa decode error"
	case ErrorHexaKey:
		return "converting hexa key error"
	case ErrorHexaNonce:
		return "converting hexa nonce error"
	case ErrorByteKeygen:
		return "key generate error"
	case ErrorByteNonceGen:
		return "nonce generate error"
	case ErrorAESBlock:
		return "init AES block error"
	case ErrorAESGCM:
		return "init AES GCM error"
	case ErrorAESDecrypt:
		return "decrypt AES GCM error"
	case ErrorUnknownAlgorithm:
		return "unknown crypt algorithm"
	case ErrorInvalidKeySize:
		return "key size does not match the selected algorithm"
	case ErrorBlockCipherInit:
		return "cannot initialize block cipher"
	case ErrorCiphertextShort:
		return "ciphertext shorter than the minimum framing overhead"
	case ErrorMACMismatch:
		return "authentication tag does not match, ciphertext rejected"
	case ErrorRSAWrap:
		return "cannot wrap symmetric key with recipient RSA public key"
	case ErrorRSAUnwrap:
		return "cannot unwrap symmetric key with RSA private key"
	case ErrorPassphraseRequired:
		return "symmetric mode requires a passphrase"
	}
	return liberr.NullMessage
}
