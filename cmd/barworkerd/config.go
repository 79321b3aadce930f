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

package main

import (
	"fmt"
	"os"

	liberr "github.com/sabouaram/barsys/errors"
)

// workerConfig is deliberately tiny: this process reads no flags and
// parses no config file of its own. BARSYS_CATALOGUE_DSN and
// BARSYS_LISTEN_ADDR locate the two resources the rest of main.go
// wires together; everything else (compression, crypt, volume
// sizing...) is a per-job setting a connector relays over the wire,
// not a worker process-wide setting.
type workerConfig struct {
	CatalogueDSN    string
	ListenAddr      string
	StorageEndpoint string
}

func loadWorkerConfig() (workerConfig, liberr.Error) {
	dsn := os.Getenv("BARSYS_CATALOGUE_DSN")
	if dsn == "" {
		return workerConfig{}, liberr.Make(fmt.Errorf("BARSYS_CATALOGUE_DSN is required"))
	}

	addr := os.Getenv("BARSYS_LISTEN_ADDR")
	if addr == "" {
		addr = ":9420"
	}

	return workerConfig{
		CatalogueDSN:    dsn,
		ListenAddr:      addr,
		StorageEndpoint: os.Getenv("BARSYS_STORAGE_ENDPOINT"),
	}, nil
}
