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

// Command barmasterd owns the job list, the scheduler, and (when
// BARSYS_WORKER_ADDR names one) a connector session to a remote
// worker. It takes no flags: config.go documents the handful of
// environment variables an external supervisor sets before exec'ing
// this process.
package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sabouaram/barsys/connector"
	idxgorm "github.com/sabouaram/barsys/index/gorm"
	"github.com/sabouaram/barsys/job"
	"github.com/sabouaram/barsys/logger"
	"github.com/sabouaram/barsys/scheduler"
	_ "github.com/sabouaram/barsys/storage/local"
	_ "github.com/sabouaram/barsys/storage/optical"
	"github.com/sabouaram/barsys/wire"
)

func main() {
	log := logger.New(os.Stderr, logger.Fields{"component": "barmasterd"})

	cfg, cerr := loadMasterConfig()
	if cerr != nil {
		log.Error("barmasterd: invalid configuration", cerr, nil)
		os.Exit(1)
	}

	idx, ierr := idxgorm.New(&idxgorm.Config{Driver: idxgorm.DriverSQLite, DSN: cfg.CatalogueDSN})
	if ierr != nil {
		log.Error("barmasterd: failed to open catalogue", ierr, nil)
		os.Exit(1)
	}
	defer func() { _ = idx.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	je := job.New(ctx, idx, log, nil)

	sch := scheduler.New(ctx, je, log, time.Minute)
	if serr := sch.Start(); serr != nil {
		log.Error("barmasterd: failed to start scheduler", serr, nil)
		os.Exit(1)
	}
	defer sch.Stop()

	var conn *connector.Connector
	if cfg.WorkerAddr != "" {
		c, derr := dialWorker(ctx, cfg.WorkerAddr, log)
		if derr != nil {
			log.Error("barmasterd: failed to reach worker", derr, logger.Fields{"addr": cfg.WorkerAddr})
			os.Exit(1)
		}
		conn = c
		defer func() { _ = conn.Close() }()
		log.Info("barmasterd: connected to worker", logger.Fields{"addr": cfg.WorkerAddr})
	}

	log.Info("barmasterd: running", logger.Fields{"jobs": len(je.ListJobs())})
	<-ctx.Done()
	log.Info("barmasterd: shutting down", nil)
}

func dialWorker(ctx context.Context, addr string, log logger.Logger) (*connector.Connector, error) {
	nc, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, err
	}

	sess := wire.New(ctx, nc, nil, log)
	c := connector.New(sess)

	hctx, hcancel := context.WithTimeout(ctx, 10*time.Second)
	defer hcancel()
	if _, herr := c.Handshake(hctx, "barmasterd", wire.EncryptNone, ""); herr != nil {
		_ = c.Close()
		return nil, herr
	}
	return c, nil
}
