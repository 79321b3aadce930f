/*
 * MIT License
 *
 * Copyright (c) 2019 Nicolas JUHEL
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

package chunk

import (
	"fmt"

	liberr "github.com/sabouaram/barsys/errors"
	pkgcode "github.com/sabouaram/barsys/internal/pkgcode"
)

const (
	ErrorMalformedChunk liberr.CodeError = iota + pkgcode.MinPkgChunk
	ErrorUnexpectedEOF
	ErrorHeaderWrite
	ErrorHeaderPatch
	ErrorPayloadWrite
	ErrorSpillFile
	ErrorNotSeekable
)

func init() {
	if liberr.ExistInMapMessage(ErrorMalformedChunk) {
		panic(fmt.Errorf("error code collision golib/chunk"))
	}
	liberr.RegisterIdFctMessage(ErrorMalformedChunk, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorMalformedChunk:
		return "chunk declares a size larger than the remaining bytes in its parent"
	case ErrorUnexpectedEOF:
		return "fewer bytes available than the chunk header requires"
	case ErrorHeaderWrite:
		return "cannot write chunk header"
	case ErrorHeaderPatch:
		return "cannot seek back to patch chunk size"
	case ErrorPayloadWrite:
		return "cannot write chunk payload"
	case ErrorSpillFile:
		return "cannot spill buffered chunk payload to temporary file"
	case ErrorNotSeekable:
		return "sink does not support seeking and exceeds the buffered threshold"
	}
	return liberr.NullMessage
}
