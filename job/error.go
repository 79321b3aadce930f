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

package job

import (
	"fmt"

	liberr "github.com/sabouaram/barsys/errors"
	pkgcode "github.com/sabouaram/barsys/internal/pkgcode"
)

const (
	ErrorJobNotFound liberr.CodeError = iota + pkgcode.MinPkgJob
	ErrorJobExists
	ErrorJobActive
	ErrorJobNotActive
	ErrorInvalidOption
	ErrorNoIncludes
	ErrorWalk
	ErrorAborted
	ErrorNoChangeFeed
	ErrorNoEndpoint
)

func init() {
	if liberr.ExistInMapMessage(ErrorJobNotFound) {
		panic(fmt.Errorf("error code collision golib/job"))
	}
	liberr.RegisterIdFctMessage(ErrorJobNotFound, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorJobNotFound:
		return "job: no job registered with this id"
	case ErrorJobExists:
		return "job: a job with this name already exists"
	case ErrorJobActive:
		return "job: refused, job is already waiting or running"
	case ErrorJobNotActive:
		return "job: refused, job is not currently running"
	case ErrorInvalidOption:
		return "job: invalid option value"
	case ErrorNoIncludes:
		return "job: job has no include paths configured"
	case ErrorWalk:
		return "job: failed walking an include path"
	case ErrorAborted:
		return "job: run aborted"
	case ErrorNoChangeFeed:
		return "job: archive type continuous requires a configured change feed"
	case ErrorNoEndpoint:
		return "job: job has no storage endpoint configured"
	}
	return liberr.NullMessage
}
