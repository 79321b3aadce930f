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
	"fmt"

	liberr "github.com/sabouaram/barsys/errors"
	pkgcode "github.com/sabouaram/barsys/internal/pkgcode"
)

const (
	ErrorCreateVolume liberr.CodeError = iota + pkgcode.MinPkgArchive
	ErrorOpenVolume
	ErrorWriteChunk
	ErrorReadChunk
	ErrorMetadataEncode
	ErrorMetadataDecode
	ErrorCompress
	ErrorDecompress
	ErrorDeltaPatch
	ErrorCrypt
	ErrorDecrypt
	ErrorMalformedEntry
	ErrorUnknownEntryType
	ErrorTruncatedArchive
	ErrorCryptPasswordRequired
	ErrorCryptPrivateKeyRequired
	ErrorIncrementalList
	ErrorUnsupportedIncrementalVersion
	ErrorClosed
)

func init() {
	if liberr.ExistInMapMessage(ErrorCreateVolume) {
		panic(fmt.Errorf("error code collision golib/archive"))
	}
	liberr.RegisterIdFctMessage(ErrorCreateVolume, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorCreateVolume:
		return "archive: cannot create volume storage"
	case ErrorOpenVolume:
		return "archive: cannot open volume storage"
	case ErrorWriteChunk:
		return "archive: cannot write chunk"
	case ErrorReadChunk:
		return "archive: cannot read chunk"
	case ErrorMetadataEncode:
		return "archive: cannot encode entry metadata"
	case ErrorMetadataDecode:
		return "archive: cannot decode entry metadata"
	case ErrorCompress:
		return "archive: compression stage failed"
	case ErrorDecompress:
		return "archive: decompression stage failed"
	case ErrorDeltaPatch:
		return "archive: delta patch stage failed"
	case ErrorCrypt:
		return "archive: encryption stage failed"
	case ErrorDecrypt:
		return "archive: decryption stage failed"
	case ErrorMalformedEntry:
		return "archive: malformed entry chunk"
	case ErrorUnknownEntryType:
		return "archive: unknown entry type"
	case ErrorTruncatedArchive:
		return "archive: entry data ends before its successor volume, archive appears truncated"
	case ErrorCryptPasswordRequired:
		return "archive: no known password decrypts this volume"
	case ErrorCryptPrivateKeyRequired:
		return "archive: volume is asymmetrically encrypted and no private key was supplied"
	case ErrorIncrementalList:
		return "archive: cannot read or write incremental list file"
	case ErrorUnsupportedIncrementalVersion:
		return "archive: incremental list file uses an unsupported record version"
	case ErrorClosed:
		return "archive: writer or reader already closed"
	}
	return liberr.NullMessage
}
