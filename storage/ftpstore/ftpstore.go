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

// Package ftpstore implements the storage.Storage contract over a
// plain FTP session, registered under the "ftp" URI scheme.
package ftpstore

import (
	"context"
	"io"
	"net/textproto"
	"net/url"
	stdpath "path"
	"strings"

	libftp "github.com/jlaffaye/ftp"

	liberr "github.com/sabouaram/barsys/errors"
	"github.com/sabouaram/barsys/ftpclient"
	"github.com/sabouaram/barsys/storage"
)

func init() {
	storage.Register("ftp", New)
}

// notFoundCode is the FTP reply code a compliant server returns for a
// missing file or directory (RFC 959 §4.2.1).
const notFoundCode = 550

type backend struct {
	cli  ftpclient.FTPClient
	root string
	lim  *storage.Limiter
}

// New dials and authenticates an FTP session against endpoint, shaped
// as "[user[:pass]@]host[:port][/root/path]" (the scheme-stripped form
// of an "ftp://" URI), and returns a Storage rooted at that path.
func New(endpoint string, limiter *storage.Limiter) (storage.Storage, liberr.Error) {
	u, err := url.Parse("ftp://" + endpoint)
	if err != nil {
		return nil, ErrorEndpoint.Error(err)
	}

	host := u.Host
	if u.Port() == "" {
		host = host + ":21"
	}

	cfg := &ftpclient.Config{
		Hostname: host,
	}
	if u.User != nil {
		cfg.Login = u.User.Username()
		cfg.Password, _ = u.User.Password()
	}
	cfg.RegisterContext(func() context.Context {
		return context.Background()
	})

	cli, cerr := ftpclient.New(cfg)
	if cerr != nil {
		return nil, ErrorConnect.Error(cerr)
	}

	return &backend{cli: cli, root: u.Path, lim: limiter}, nil
}

func (b *backend) path(name string) string {
	return stdpath.Join("/", b.root, name)
}

// ensureDir best-effort creates each missing path segment of dir, the
// same way the local backend creates parent directories implicitly;
// MKD on an already-existing directory is tolerated.
func (b *backend) ensureDir(dir string) {
	if dir == "" || dir == "/" {
		return
	}

	var built string
	for _, seg := range strings.Split(strings.Trim(dir, "/"), "/") {
		if seg == "" {
			continue
		}
		built += "/" + seg
		_ = b.cli.MakeDir(built)
	}
}

func isNotFound(err error) bool {
	if pe, ok := err.(*textproto.Error); ok {
		return pe.Code == notFoundCode
	}
	return false
}

func (b *backend) Create(name string, sizeHint int64, priority storage.Priority) (storage.Handle, liberr.Error) {
	p := b.path(name)
	b.ensureDir(stdpath.Dir(p))

	pr, pw := io.Pipe()
	done := make(chan error, 1)

	go func() {
		done <- b.cli.Stor(p, pr)
	}()

	return &writeHandle{pw: pw, pr: pr, done: done, lim: b.lim, priority: priority}, nil
}

func (b *backend) Open(name string, priority storage.Priority) (storage.Handle, liberr.Error) {
	p := b.path(name)

	resp, err := b.cli.Retr(p)
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrorNotFound.Error(err)
		}
		return nil, ErrorRetr.Error(err)
	}

	return &readHandle{cli: b.cli, path: p, resp: resp, lim: b.lim, priority: priority}, nil
}

func (b *backend) Exists(name string) (bool, liberr.Error) {
	_, err := b.cli.FileSize(b.path(name))
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, ErrorRetr.Error(err)
}

func (b *backend) ListDirectory(path string) (storage.DirIterator, liberr.Error) {
	entries, err := b.cli.List(b.path(path))
	if err != nil {
		return nil, ErrorList.Error(err)
	}
	return &dirIterator{entries: entries}, nil
}

func (b *backend) Delete(name string) liberr.Error {
	err := b.cli.Delete(b.path(name))
	if err != nil && !isNotFound(err) {
		return ErrorDelete.Error(err)
	}
	return nil
}

func (b *backend) Close() liberr.Error {
	b.cli.Close()
	return nil
}

type dirIterator struct {
	entries []*libftp.Entry
	pos     int
}

func (it *dirIterator) Next() (storage.Metadata, bool, liberr.Error) {
	if it.pos >= len(it.entries) {
		return storage.Metadata{}, false, nil
	}

	e := it.entries[it.pos]
	it.pos++

	return storage.Metadata{
		Name:    e.Name,
		Size:    int64(e.Size),
		ModTime: e.Time,
		IsDir:   e.Type == libftp.EntryTypeFolder,
	}, true, nil
}

// writeHandle pushes bytes through an io.Pipe into a concurrently
// running STOR command, the usage the ftpclient package's own Stor doc
// comment recommends when an io.Writer-shaped caller is required.
type writeHandle struct {
	pw       *io.PipeWriter
	pr       *io.PipeReader
	done     chan error
	lim      *storage.Limiter
	priority storage.Priority
}

func (h *writeHandle) Read(_ []byte) (int, error) {
	return 0, io.EOF
}

func (h *writeHandle) Write(p []byte) (int, error) {
	if err := h.lim.WaitN(context.Background(), h.priority, len(p)); err != nil {
		return 0, err
	}
	return h.pw.Write(p)
}

func (h *writeHandle) Seek(_ int64, _ int) (int64, error) {
	return 0, ErrorSeek.Error(nil)
}

func (h *writeHandle) Close() error {
	if err := h.pw.Close(); err != nil {
		return err
	}
	if err := <-h.done; err != nil {
		return ErrorStor.Error(err)
	}
	return nil
}

// readHandle wraps a RETR response. Seek is limited to SeekStart (the
// only offset a fresh RETR/REST command can reproduce) and SeekCurrent
// with a zero offset (a position query); any other request fails with
// ErrorSeek rather than silently misbehaving.
type readHandle struct {
	cli      ftpclient.FTPClient
	path     string
	resp     *libftp.Response
	pos      int64
	lim      *storage.Limiter
	priority storage.Priority
}

func (h *readHandle) Read(p []byte) (int, error) {
	if err := h.lim.WaitN(context.Background(), h.priority, len(p)); err != nil {
		return 0, err
	}
	n, err := h.resp.Read(p)
	h.pos += int64(n)
	return n, err
}

func (h *readHandle) Write(_ []byte) (int, error) {
	return 0, ErrorSeek.Error(nil)
}

func (h *readHandle) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekCurrent:
		if offset == 0 {
			return h.pos, nil
		}
	case io.SeekStart:
		_ = h.resp.Close()
		resp, err := h.cli.RetrFrom(h.path, uint64(offset))
		if err != nil {
			return 0, ErrorRetr.Error(err)
		}
		h.resp = resp
		h.pos = offset
		return h.pos, nil
	}
	return 0, ErrorSeek.Error(nil)
}

func (h *readHandle) Close() error {
	return h.resp.Close()
}
