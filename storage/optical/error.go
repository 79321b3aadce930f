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

package optical

import (
	"fmt"

	liberr "github.com/sabouaram/barsys/errors"
	pkgcode "github.com/sabouaram/barsys/internal/pkgcode"
)

// File-level codes specific to this backend's mounted-filesystem I/O.
// Volume-request outcomes reuse the shared codes from the storage
// package (storage.ErrorVolumeRequested / storage.ErrorVolumeAborted)
// since they describe a contract every volume-aware backend shares,
// not something specific to optical media.
const (
	ErrorRootDir liberr.CodeError = iota + pkgcode.MinPkgStorageOptical
	ErrorOpen
	ErrorStat
	ErrorReadDir
	ErrorDelete
)

func init() {
	if liberr.ExistInMapMessage(ErrorRootDir) {
		panic(fmt.Errorf("error code collision golib/storage/optical"))
	}
	liberr.RegisterIdFctMessage(ErrorRootDir, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorRootDir:
		return "optical storage: cannot prepare mount directory"
	case ErrorOpen:
		return "optical storage: cannot open file"
	case ErrorStat:
		return "optical storage: cannot stat path"
	case ErrorReadDir:
		return "optical storage: cannot read directory"
	case ErrorDelete:
		return "optical storage: cannot delete file"
	}
	return liberr.NullMessage
}
