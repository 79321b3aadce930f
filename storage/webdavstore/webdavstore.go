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

// Package webdavstore implements the storage.Storage contract over
// WebDAV (RFC 4918), registered under the "webdav"/"webdavs" URI
// schemes. It speaks PUT/GET/HEAD/DELETE/PROPFIND directly over
// net/http rather than an ecosystem WebDAV client, since none of this
// module's retrieval pack carries one (golang.org/x/net/webdav there
// is a server implementation, not a client).
package webdavstore

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	stdpath "path"
	"strconv"
	"strings"

	liberr "github.com/sabouaram/barsys/errors"
	"github.com/sabouaram/barsys/storage"
)

func init() {
	storage.Register("webdav", func(endpoint string, limiter *storage.Limiter) (storage.Storage, liberr.Error) {
		return newBackend("http", endpoint, limiter)
	})
	storage.Register("webdavs", func(endpoint string, limiter *storage.Limiter) (storage.Storage, liberr.Error) {
		return newBackend("https", endpoint, limiter)
	})
}

type backend struct {
	client *http.Client
	base   *url.URL
	lim    *storage.Limiter
}

func newBackend(scheme, endpoint string, limiter *storage.Limiter) (storage.Storage, liberr.Error) {
	u, err := url.Parse(scheme + "://" + endpoint)
	if err != nil {
		return nil, ErrorEndpoint.Error(err)
	}
	return &backend{client: &http.Client{}, base: u, lim: limiter}, nil
}

func (b *backend) url(name string) string {
	u := *b.base
	u.Path = stdpath.Join("/", b.base.Path, name)
	return u.String()
}

func (b *backend) authorize(req *http.Request) {
	if b.base.User == nil {
		return
	}
	if pass, ok := b.base.User.Password(); ok {
		req.SetBasicAuth(b.base.User.Username(), pass)
	}
}

func (b *backend) Create(name string, sizeHint int64, priority storage.Priority) (storage.Handle, liberr.Error) {
	pr, pw := io.Pipe()

	req, err := http.NewRequest(http.MethodPut, b.url(name), pr)
	if err != nil {
		return nil, ErrorRequest.Error(err)
	}
	b.authorize(req)
	if sizeHint > 0 {
		req.ContentLength = sizeHint
	}

	done := make(chan error, 1)
	go func() {
		resp, derr := b.client.Do(req)
		if derr != nil {
			done <- derr
			return
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= 300 {
			//nolint #goerr113
			done <- fmt.Errorf("PUT %s: unexpected status %s", name, resp.Status)
			return
		}
		done <- nil
	}()

	return &writeHandle{pw: pw, done: done, lim: b.lim, priority: priority}, nil
}

func (b *backend) Open(name string, priority storage.Priority) (storage.Handle, liberr.Error) {
	req, err := http.NewRequest(http.MethodGet, b.url(name), nil)
	if err != nil {
		return nil, ErrorRequest.Error(err)
	}
	b.authorize(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, ErrorRequest.Error(err)
	}

	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		//nolint #goerr113
		return nil, storage.ErrorNotFound.Error(fmt.Errorf("GET %s: %s", name, resp.Status))
	}
	if resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		//nolint #goerr113
		return nil, ErrorStatus.Error(fmt.Errorf("GET %s: %s", name, resp.Status))
	}

	return &readHandle{body: resp.Body, lim: b.lim, priority: priority}, nil
}

func (b *backend) Exists(name string) (bool, liberr.Error) {
	req, err := http.NewRequest(http.MethodHead, b.url(name), nil)
	if err != nil {
		return false, ErrorRequest.Error(err)
	}
	b.authorize(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return false, ErrorRequest.Error(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode >= 300 {
		//nolint #goerr113
		return false, ErrorStatus.Error(fmt.Errorf("HEAD %s: %s", name, resp.Status))
	}
	return true, nil
}

func (b *backend) ListDirectory(path string) (storage.DirIterator, liberr.Error) {
	req, err := http.NewRequest("PROPFIND", b.url(path), nil)
	if err != nil {
		return nil, ErrorRequest.Error(err)
	}
	req.Header.Set("Depth", "1")
	req.Header.Set("Content-Type", "application/xml")
	b.authorize(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, ErrorRequest.Error(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		//nolint #goerr113
		return nil, storage.ErrorNotFound.Error(fmt.Errorf("PROPFIND %s: %s", path, resp.Status))
	}
	if resp.StatusCode != http.StatusMultiStatus {
		//nolint #goerr113
		return nil, ErrorStatus.Error(fmt.Errorf("PROPFIND %s: %s", path, resp.Status))
	}

	var ms multistatus
	if derr := xml.NewDecoder(resp.Body).Decode(&ms); derr != nil {
		return nil, ErrorPropfind.Error(derr)
	}

	return &dirIterator{entries: parseMultistatus(ms, b.url(path))}, nil
}

func (b *backend) Delete(name string) liberr.Error {
	req, err := http.NewRequest(http.MethodDelete, b.url(name), nil)
	if err != nil {
		return ErrorRequest.Error(err)
	}
	b.authorize(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return ErrorRequest.Error(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		//nolint #goerr113
		return ErrorStatus.Error(fmt.Errorf("DELETE %s: %s", name, resp.Status))
	}
	return nil
}

func (b *backend) Close() liberr.Error {
	return nil
}

type multistatus struct {
	XMLName  xml.Name   `xml:"multistatus"`
	Response []response `xml:"response"`
}

type response struct {
	Href     string     `xml:"href"`
	Propstat []propstat `xml:"propstat"`
}

type propstat struct {
	Prop   prop   `xml:"prop"`
	Status string `xml:"status"`
}

type prop struct {
	DisplayName   string       `xml:"displayname"`
	ContentLength string       `xml:"getcontentlength"`
	LastModified  string       `xml:"getlastmodified"`
	ResourceType  resourceType `xml:"resourcetype"`
}

type resourceType struct {
	Collection *struct{} `xml:"collection"`
}

// sameResource reports whether href and base name the same resource,
// ignoring host/scheme/trailing-slash differences a server is free to
// normalize away in its response.
func sameResource(href, base string) bool {
	hu, err := url.Parse(href)
	if err != nil {
		return false
	}
	bu, err := url.Parse(base)
	if err != nil {
		return false
	}
	return strings.TrimSuffix(hu.Path, "/") == strings.TrimSuffix(bu.Path, "/")
}

// parseMultistatus turns a PROPFIND Depth:1 response into directory
// entries, skipping the collection's own self-describing <response>
// (a Depth:1 PROPFIND always includes it alongside its children).
func parseMultistatus(ms multistatus, self string) []storage.Metadata {
	var entries []storage.Metadata

	for _, r := range ms.Response {
		if sameResource(r.Href, self) {
			continue
		}

		for _, ps := range r.Propstat {
			if !strings.Contains(ps.Status, "200") {
				continue
			}

			size, _ := strconv.ParseInt(ps.Prop.ContentLength, 10, 64)
			modTime, _ := http.ParseTime(ps.Prop.LastModified)

			name := ps.Prop.DisplayName
			if name == "" {
				name = stdpath.Base(strings.TrimSuffix(r.Href, "/"))
			}

			entries = append(entries, storage.Metadata{
				Name:    name,
				Size:    size,
				ModTime: modTime,
				IsDir:   ps.Prop.ResourceType.Collection != nil,
			})
		}
	}

	return entries
}

type dirIterator struct {
	entries []storage.Metadata
	pos     int
}

func (it *dirIterator) Next() (storage.Metadata, bool, liberr.Error) {
	if it.pos >= len(it.entries) {
		return storage.Metadata{}, false, nil
	}
	e := it.entries[it.pos]
	it.pos++
	return e, true, nil
}

type writeHandle struct {
	pw       *io.PipeWriter
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
	return 0, ErrorRequest.Error(nil)
}

func (h *writeHandle) Close() error {
	if err := h.pw.Close(); err != nil {
		return err
	}
	if err := <-h.done; err != nil {
		return ErrorRequest.Error(err)
	}
	return nil
}

type readHandle struct {
	body     io.ReadCloser
	pos      int64
	lim      *storage.Limiter
	priority storage.Priority
}

func (h *readHandle) Read(p []byte) (int, error) {
	if err := h.lim.WaitN(context.Background(), h.priority, len(p)); err != nil {
		return 0, err
	}
	n, err := h.body.Read(p)
	h.pos += int64(n)
	return n, err
}

func (h *readHandle) Write(_ []byte) (int, error) {
	return 0, ErrorRequest.Error(nil)
}

func (h *readHandle) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekCurrent && offset == 0 {
		return h.pos, nil
	}
	return 0, ErrorRequest.Error(nil)
}

func (h *readHandle) Close() error {
	return h.body.Close()
}
