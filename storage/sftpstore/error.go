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

package sftpstore

import (
	"fmt"

	liberr "github.com/sabouaram/barsys/errors"
	pkgcode "github.com/sabouaram/barsys/internal/pkgcode"
)

const (
	ErrorEndpoint liberr.CodeError = iota + pkgcode.MinPkgStorageSFTP
	ErrorConnect
	ErrorRetr
	ErrorStor
	ErrorList
	ErrorDelete
	ErrorSeek
)

func init() {
	if liberr.ExistInMapMessage(ErrorEndpoint) {
		panic(fmt.Errorf("error code collision golib/storage/sftpstore"))
	}
	liberr.RegisterIdFctMessage(ErrorEndpoint, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorEndpoint:
		return "sftp storage: malformed endpoint"
	case ErrorConnect:
		return "sftp storage: SSH session failure"
	case ErrorRetr:
		return "sftp storage: remote read failed"
	case ErrorStor:
		return "sftp storage: remote write failed"
	case ErrorList:
		return "sftp storage: remote listing failed"
	case ErrorDelete:
		return "sftp storage: remote delete failed"
	case ErrorSeek:
		return "sftp storage: seek not supported on this handle"
	}
	return liberr.NullMessage
}
