/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

package semaphore

import (
	"fmt"

	pkgcode "github.com/sabouaram/barsys/internal/pkgcode"
	liberr "github.com/sabouaram/barsys/errors"
)

const (
	ErrorWorkerTimeout liberr.CodeError = iota + pkgcode.MinPkgSemaphore
	ErrorWorkerContext
	ErrorWaitAll
)

func init() {
	if liberr.ExistInMapMessage(ErrorWorkerTimeout) {
		panic(fmt.Errorf("error code collision golib/semaphore"))
	}
	liberr.RegisterIdFctMessage(ErrorWorkerTimeout, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorWorkerTimeout:
		return "timeout waiting for a free worker slot"
	case ErrorWorkerContext:
		return "context canceled while waiting for a free worker slot"
	case ErrorWaitAll:
		return "error occurs while waiting for all workers to complete"
	}

	return liberr.NullMessage
}
