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

// masterConfig locates the master's own catalogue and, optionally, one
// remote worker it can hand jobs to over the wire protocol
// (BARSYS_WORKER_ADDR unset means this master only ever runs jobs
// against its own local storage backends). No flags, no config file:
// an external supervisor sets these before exec'ing the process.
type masterConfig struct {
	CatalogueDSN string
	WorkerAddr   string // "" => no remote worker dialed at startup
}

func loadMasterConfig() (masterConfig, liberr.Error) {
	dsn := os.Getenv("BARSYS_CATALOGUE_DSN")
	if dsn == "" {
		return masterConfig{}, liberr.Make(fmt.Errorf("BARSYS_CATALOGUE_DSN is required"))
	}

	return masterConfig{
		CatalogueDSN: dsn,
		WorkerAddr:   os.Getenv("BARSYS_WORKER_ADDR"),
	}, nil
}
