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
	"strings"
	"sync"

	liberr "github.com/sabouaram/barsys/errors"
)

// Opener builds a Storage backend from a scheme-stripped endpoint (the
// URI minus its "scheme://" prefix) and a shared Limiter. Backend
// packages register one of these per scheme from an init() func, the
// same registration-by-side-effect shape database/sql drivers use.
type Opener func(endpoint string, limiter *Limiter) (Storage, liberr.Error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Opener{}
)

// Register makes an Opener available under scheme (without "://"). It
// panics on a duplicate registration, mirroring the package's other
// init()-time collision guards (CodeError registries).
func Register(scheme string, open Opener) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[scheme]; exists {
		panic("storage: duplicate backend registration for scheme " + scheme)
	}
	registry[scheme] = open
}

// Open parses uri's "scheme://endpoint" prefix (a bare path with no
// "://" is treated as the filesystem scheme) and dispatches to the
// registered Opener. limiter may be nil; backends that don't honour
// bandwidth limiting are free to ignore it.
func Open(uri string, limiter *Limiter) (Storage, liberr.Error) {
	scheme, endpoint := splitScheme(uri)

	registryMu.RLock()
	open, ok := registry[scheme]
	registryMu.RUnlock()

	if !ok {
		return nil, ErrorUnknownScheme.Error(fmt.Errorf("scheme %q", scheme))
	}

	return open(endpoint, limiter)
}

func splitScheme(uri string) (scheme string, endpoint string) {
	if i := strings.Index(uri, "://"); i >= 0 {
		return uri[:i], uri[i+3:]
	}
	return "local", uri
}
