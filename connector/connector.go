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

package connector

import (
	"context"
	"encoding/base64"
	"strconv"
	"time"

	liberr "github.com/sabouaram/barsys/errors"
	"github.com/sabouaram/barsys/wire"
)

// Connector is the master-side driver for one job running on a remote
// worker: it turns a JobConfig into the wire calls that create,
// configure, and start the job, then polls JOB_STATUS until the run
// reaches a terminal state or the connection drops.
type Connector struct {
	sess *wire.Session
	done <-chan struct{}
}

// New wraps an already-constructed wire.Session (wire.New dialed over
// whatever transport the caller chose) and starts its read loop.
func New(sess *wire.Session) *Connector {
	return &Connector{sess: sess, done: sess.Start()}
}

// Handshake negotiates protocol version and authorization before any
// other command is sent.
func (c *Connector) Handshake(ctx context.Context, name string, encType wire.EncryptType, encryptedUUID string) (wire.HandshakeInfo, liberr.Error) {
	return c.sess.Handshake(ctx, 1, 0, name, encType, encryptedUUID)
}

// Close releases the underlying session.
func (c *Connector) Close() error {
	return c.sess.Close()
}

func (c *Connector) call(ctx context.Context, command string, params map[string]string) (wire.Response, liberr.Error) {
	resp, err := c.sess.Call(ctx, command, params)
	if err != nil {
		return resp, err
	}
	if resp.ErrorCode != 0 {
		return resp, ErrorRemoteFailed.Error(nil)
	}
	return resp, nil
}

// Create stands up config on the worker, starts it, and blocks,
// forwarding every JOB_STATUS snapshot to onUpdate, until the run
// reaches a terminal state, ctx is cancelled (in which case the
// worker is told to abort and the job is deleted before returning),
// or the session disconnects (the worker process died mid-run: a
// synthetic Disconnected Status is delivered and no further commands
// are sent, since there is nothing left to send them to).
func (c *Connector) Create(ctx context.Context, cfg JobConfig, onUpdate func(Status)) liberr.Error {
	jobID, err := c.createJob(ctx, cfg)
	if err != nil {
		return err
	}

	if err := c.configureJob(ctx, jobID, cfg); err != nil {
		return err
	}

	startParams := map[string]string{"job_id": jobID}
	if cfg.ArchiveType != "" {
		startParams["archive_type"] = cfg.ArchiveType
	}
	if _, err := c.call(ctx, cmdJobStart, startParams); err != nil {
		return err
	}

	return c.monitor(ctx, jobID, onUpdate)
}

func (c *Connector) createJob(ctx context.Context, cfg JobConfig) (string, liberr.Error) {
	resp, err := c.call(ctx, cmdJobNew, map[string]string{
		"name": cfg.Name, "job_uuid": cfg.JobUUID,
	})
	if err != nil {
		return "", err
	}
	return resp.Params["job_id"], nil
}

func (c *Connector) configureJob(ctx context.Context, jobID string, cfg JobConfig) liberr.Error {
	if cfg.Endpoint != "" {
		if _, err := c.call(ctx, cmdJobEndpointSet, map[string]string{"job_id": jobID, "endpoint": cfg.Endpoint}); err != nil {
			return err
		}
	}
	for k, v := range cfg.Options {
		if _, err := c.call(ctx, cmdJobOptionSet, map[string]string{"job_id": jobID, "key": k, "value": v}); err != nil {
			return err
		}
	}
	if err := c.addPaths(ctx, cmdIncludeAdd, jobID, cfg.Includes); err != nil {
		return err
	}
	if err := c.addPaths(ctx, cmdExcludeAdd, jobID, cfg.Excludes); err != nil {
		return err
	}
	if err := c.addPaths(ctx, cmdMountAdd, jobID, cfg.Mounts); err != nil {
		return err
	}
	return c.addPaths(ctx, cmdSourceAdd, jobID, cfg.Sources)
}

// addPaths sends one call per path rather than packing the whole list
// into a single frame, so a path containing a space or '=' never has
// to survive the single-line wire encoding of more than one value.
func (c *Connector) addPaths(ctx context.Context, command, jobID string, paths []string) liberr.Error {
	for _, p := range paths {
		if _, err := c.call(ctx, command, map[string]string{"job_id": jobID, "path": p}); err != nil {
			return err
		}
	}
	return nil
}

func (c *Connector) monitor(ctx context.Context, jobID string, onUpdate func(Status)) liberr.Error {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			if onUpdate != nil {
				onUpdate(Status{State: "disconnected", Disconnected: true})
			}
			return ErrorDisconnected.Error(nil)

		case <-ctx.Done():
			_, _ = c.sess.Call(context.Background(), cmdJobAbort, map[string]string{"job_id": jobID})
			_, _ = c.sess.Call(context.Background(), cmdJobDelete, map[string]string{"job_id": jobID})
			return nil

		case <-ticker.C:
			resp, err := c.call(ctx, cmdJobStatus, map[string]string{"job_id": jobID})
			if err != nil {
				continue
			}
			st := decodeStatus(resp)
			if onUpdate != nil {
				onUpdate(st)
			}
			if st.Terminal() {
				return nil
			}
		}
	}
}

func decodeStatus(resp wire.Response) Status {
	st := Status{
		State:       resp.Params["state"],
		ArchiveType: resp.Params["archive_type"],
		EntityID:    resp.Params["entity_id"],
		Message:     resp.Params["message"],
		RunError:    resp.Params["run_error"],
	}
	if v, ok := resp.Param("started_at"); ok {
		st.StartedAt, _ = time.Parse(time.RFC3339, v)
	}
	if v, ok := resp.Param("ended_at"); ok {
		st.EndedAt, _ = time.Parse(time.RFC3339, v)
	}
	return st
}

// LoadVolume/UnloadVolume relay an operator's volume decision to a job
// parked in its request-volume wait.
func (c *Connector) LoadVolume(ctx context.Context, jobID string, n int) liberr.Error {
	_, err := c.call(ctx, cmdVolumeLoad, map[string]string{"job_id": jobID, "number": itoa(n)})
	return err
}

func (c *Connector) UnloadVolume(ctx context.Context, jobID string) liberr.Error {
	_, err := c.call(ctx, cmdVolumeUnload, map[string]string{"job_id": jobID})
	return err
}

// InitStorage/DoneStorage bracket a sequence of storage_* calls
// against a worker's configured backend (the endpoint and its options
// were already established when the worker process was configured;
// this pair only marks the session's intent to use it).
func (c *Connector) InitStorage(ctx context.Context, name string, options map[string]string) liberr.Error {
	params := map[string]string{"name": name}
	for k, v := range options {
		params["opt_"+k] = v
	}
	_, err := c.call(ctx, cmdInitStorage, params)
	return err
}

func (c *Connector) DoneStorage(ctx context.Context) liberr.Error {
	_, err := c.call(ctx, cmdDoneStorage, nil)
	return err
}

// StorageCreate opens name for writing on the worker and returns an
// opaque handle id subsequent StorageWrite/StorageClose calls use.
func (c *Connector) StorageCreate(ctx context.Context, name string, sizeHint int64) (string, liberr.Error) {
	resp, err := c.call(ctx, cmdStorageCreate, map[string]string{
		"name": name, "size_hint": strconv.FormatInt(sizeHint, 10),
	})
	if err != nil {
		return "", err
	}
	return resp.Params["handle"], nil
}

// StorageWrite sends one chunk of data at offset against an
// already-created handle, base64-encoded so it survives the
// line-framed wire protocol regardless of content.
func (c *Connector) StorageWrite(ctx context.Context, handle string, offset int64, data []byte) liberr.Error {
	_, err := c.call(ctx, cmdStorageWrite, map[string]string{
		"handle": handle, "offset": strconv.FormatInt(offset, 10),
		"data_b64": base64.StdEncoding.EncodeToString(data),
	})
	return err
}

func (c *Connector) StorageClose(ctx context.Context, handle string) liberr.Error {
	_, err := c.call(ctx, cmdStorageClose, map[string]string{"handle": handle})
	return err
}

// StorageExists reports whether name already exists under the
// worker's configured backend.
func (c *Connector) StorageExists(ctx context.Context, name string) (bool, liberr.Error) {
	resp, err := c.call(ctx, cmdStorageExists, map[string]string{"name": name})
	if err != nil {
		return false, err
	}
	return resp.Params["exists"] == "1", nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
