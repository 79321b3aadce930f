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

// Package local implements the storage.Storage contract directly over
// the local filesystem.
package local

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	liberr "github.com/sabouaram/barsys/errors"
	"github.com/sabouaram/barsys/ioutils"
	"github.com/sabouaram/barsys/storage"
)

func init() {
	storage.Register("local", New)
}

type backend struct {
	root string
	lim  *storage.Limiter
}

// New builds a filesystem-backed Storage rooted at endpoint (a bare
// path, or a "local://" URI's path component). The root directory is
// created if missing.
func New(endpoint string, limiter *storage.Limiter) (storage.Storage, liberr.Error) {
	root := endpoint
	if root == "" {
		root = "."
	}

	if err := ioutils.PathCheckCreate(false, root, 0644, 0755); err != nil {
		return nil, ErrorRootDir.Error(err)
	}

	return &backend{root: root, lim: limiter}, nil
}

func (b *backend) path(name string) string {
	return filepath.Join(b.root, filepath.FromSlash(name))
}

func (b *backend) Create(name string, sizeHint int64, priority storage.Priority) (storage.Handle, liberr.Error) {
	p := b.path(name)

	if err := ioutils.PathCheckCreate(false, filepath.Dir(p), 0644, 0755); err != nil {
		return nil, ErrorRootDir.Error(err)
	}

	//nolint #gosec
	/* #nosec */
	f, err := os.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return nil, ErrorOpen.Error(err)
	}

	return &handle{f: f, lim: b.lim, priority: priority}, nil
}

func (b *backend) Open(name string, priority storage.Priority) (storage.Handle, liberr.Error) {
	p := b.path(name)

	//nolint #gosec
	/* #nosec */
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrorNotFound.Error(err)
		}
		return nil, ErrorOpen.Error(err)
	}

	return &handle{f: f, lim: b.lim, priority: priority}, nil
}

func (b *backend) Exists(name string) (bool, liberr.Error) {
	_, err := os.Stat(b.path(name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, ErrorStat.Error(err)
}

func (b *backend) ListDirectory(path string) (storage.DirIterator, liberr.Error) {
	entries, err := os.ReadDir(b.path(path))
	if err != nil {
		return nil, ErrorReadDir.Error(err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	return &dirIterator{entries: entries}, nil
}

func (b *backend) Delete(name string) liberr.Error {
	err := os.Remove(b.path(name))
	if err != nil && !os.IsNotExist(err) {
		return ErrorDelete.Error(err)
	}
	return nil
}

func (b *backend) Close() liberr.Error {
	return nil
}

type dirIterator struct {
	entries []os.DirEntry
	pos     int
}

func (it *dirIterator) Next() (storage.Metadata, bool, liberr.Error) {
	if it.pos >= len(it.entries) {
		return storage.Metadata{}, false, nil
	}

	e := it.entries[it.pos]
	it.pos++

	info, err := e.Info()
	if err != nil {
		return storage.Metadata{}, false, ErrorStat.Error(err)
	}

	return storage.Metadata{
		Name:    e.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   e.IsDir(),
	}, true, nil
}

type handle struct {
	f        *os.File
	lim      *storage.Limiter
	priority storage.Priority
}

func (h *handle) Read(p []byte) (int, error) {
	if err := h.lim.WaitN(context.Background(), h.priority, len(p)); err != nil {
		return 0, err
	}
	return h.f.Read(p)
}

func (h *handle) Write(p []byte) (int, error) {
	if err := h.lim.WaitN(context.Background(), h.priority, len(p)); err != nil {
		return 0, err
	}
	return h.f.Write(p)
}

func (h *handle) Seek(offset int64, whence int) (int64, error) {
	return h.f.Seek(offset, whence)
}

func (h *handle) Close() error {
	return h.f.Close()
}
