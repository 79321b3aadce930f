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

// Command barworkerd accepts master connections and answers JOB_*,
// INDEX_*, and STORAGE_* commands against a local catalogue, job
// engine, and storage backend. It takes no flags: every setting comes
// from the environment variables config.go documents, so that an
// external process supervisor (systemd unit, container entrypoint) is
// the only thing that has to know how this worker is configured.
package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sabouaram/barsys/connector"
	idxgorm "github.com/sabouaram/barsys/index/gorm"
	"github.com/sabouaram/barsys/job"
	"github.com/sabouaram/barsys/logger"
	"github.com/sabouaram/barsys/storage"
	_ "github.com/sabouaram/barsys/storage/local"
	_ "github.com/sabouaram/barsys/storage/optical"
	"github.com/sabouaram/barsys/wire"
)

func main() {
	log := logger.New(os.Stderr, logger.Fields{"component": "barworkerd"})

	cfg, cerr := loadWorkerConfig()
	if cerr != nil {
		log.Error("barworkerd: invalid configuration", cerr, nil)
		os.Exit(1)
	}

	idx, ierr := idxgorm.New(&idxgorm.Config{Driver: idxgorm.DriverSQLite, DSN: cfg.CatalogueDSN})
	if ierr != nil {
		log.Error("barworkerd: failed to open catalogue", ierr, nil)
		os.Exit(1)
	}
	defer func() { _ = idx.Close() }()

	var backend storage.Storage
	if cfg.StorageEndpoint != "" {
		b, berr := storage.Open(cfg.StorageEndpoint, nil)
		if berr != nil {
			log.Error("barworkerd: failed to open storage endpoint", berr, nil)
			os.Exit(1)
		}
		backend = b
		defer func() { _ = backend.Close() }()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	je := job.New(ctx, idx, log, nil)
	handler := connector.NewHandler(je, idx, backend)

	ln, lerr := net.Listen("tcp", cfg.ListenAddr)
	if lerr != nil {
		log.Error("barworkerd: failed to listen", lerr, logger.Fields{"addr": cfg.ListenAddr})
		os.Exit(1)
	}
	defer func() { _ = ln.Close() }()

	log.Info("barworkerd: listening", logger.Fields{"addr": cfg.ListenAddr})

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, aerr := ln.Accept()
		if aerr != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warning("barworkerd: accept failed", logger.Fields{"error": aerr.Error()})
			continue
		}
		go serve(ctx, conn, handler, log)
	}
}

func serve(ctx context.Context, conn net.Conn, handler wire.Handler, log logger.Logger) {
	sess := wire.New(ctx, conn, handler, log)
	<-sess.Start()
}
