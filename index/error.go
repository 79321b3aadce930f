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

package index

import (
	"fmt"

	liberr "github.com/sabouaram/barsys/errors"
	pkgcode "github.com/sabouaram/barsys/internal/pkgcode"
)

// Domain-level codes shared by every Store implementation; index/gorm
// reserves its own range (pkgcode.MinPkgIndexGorm) for errors specific
// to its persistence mechanics.
const (
	ErrorNotFound liberr.CodeError = iota + pkgcode.MinPkgIndex
	ErrorLocked
	ErrorInvalidParams
)

func init() {
	if liberr.ExistInMapMessage(ErrorNotFound) {
		panic(fmt.Errorf("error code collision golib/index"))
	}
	liberr.RegisterIdFctMessage(ErrorNotFound, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorNotFound:
		return "index: requested row does not exist"
	case ErrorLocked:
		return "index: refused, owning UUID is locked by an in-progress run"
	case ErrorInvalidParams:
		return "index: invalid parameters"
	}
	return liberr.NullMessage
}
