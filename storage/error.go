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

package storage

import (
	"fmt"

	liberr "github.com/sabouaram/barsys/errors"
	pkgcode "github.com/sabouaram/barsys/internal/pkgcode"
)

const (
	ErrorUnknownScheme liberr.CodeError = iota + pkgcode.MinPkgStorage
	ErrorMalformedURI
	ErrorNotFound
	ErrorAlreadyExists
	ErrorNotSupported
	ErrorClosed
	ErrorVolumeRequested
	ErrorVolumeAborted
)

func init() {
	if liberr.ExistInMapMessage(ErrorUnknownScheme) {
		panic(fmt.Errorf("error code collision golib/storage"))
	}
	liberr.RegisterIdFctMessage(ErrorUnknownScheme, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorUnknownScheme:
		return "storage: unrecognized URI scheme"
	case ErrorMalformedURI:
		return "storage: malformed URI"
	case ErrorNotFound:
		return "storage: name not found"
	case ErrorAlreadyExists:
		return "storage: name already exists"
	case ErrorNotSupported:
		return "storage: operation not supported by this backend"
	case ErrorClosed:
		return "storage: handle already closed"
	case ErrorVolumeRequested:
		return "storage: backend is waiting for a volume change"
	case ErrorVolumeAborted:
		return "storage: volume request was aborted"
	}
	return liberr.NullMessage
}
