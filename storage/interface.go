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

// Package storage defines the uniform streaming I/O contract every backend
// (local filesystem, FTP, SFTP, WebDAV, optical media) implements, plus the
// scheme-prefixed URI dispatch and shared bandwidth limiting that sit in
// front of all of them.
package storage

import (
	"io"
	"time"

	liberr "github.com/sabouaram/barsys/errors"
)

// Priority hints how a backend should share a bandwidth bucket across
// concurrent transfers. HIGH-priority transfers draw from a larger share
// of the bucket than LOW ones (see highShare in bandwidth.go).
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityHigh
)

// Metadata describes one entry returned by Storage.ListDirectory.
type Metadata struct {
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Handle is the uniform streaming I/O contract every backend hands back
// from Create/Open: a seekable read/write stream that must be closed.
type Handle interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
}

// DirIterator lazily yields directory entries so a backend need not
// buffer an entire listing (FTP/WebDAV directories can be large).
type DirIterator interface {
	// Next returns the next entry, or ok=false once the listing is
	// exhausted. A non-nil error always carries ok=false.
	Next() (entry Metadata, ok bool, err liberr.Error)
}

// Storage is the contract every backend variant (local, FTP, SFTP,
// WebDAV, optical) implements uniformly.
type Storage interface {
	// Create opens name for writing. sizeHint, when positive, is the
	// expected size; the WebDAV backend sends it as the PUT
	// Content-Length, and the local and optical backends ignore it. priority
	// hints how this transfer should share the backend's bandwidth
	// bucket with concurrent ones.
	Create(name string, sizeHint int64, priority Priority) (Handle, liberr.Error)

	// Open opens an existing name for reading.
	Open(name string, priority Priority) (Handle, liberr.Error)

	// Exists reports whether name is present without opening it.
	Exists(name string) (bool, liberr.Error)

	// ListDirectory lazily lists path's immediate children.
	ListDirectory(path string) (DirIterator, liberr.Error)

	// Delete removes name. Deleting a name that does not exist is not
	// an error.
	Delete(name string) liberr.Error

	// Close releases any connection or resource the backend holds
	// (FTP/SFTP sessions, WebDAV clients). Close does not delete data.
	Close() liberr.Error
}

// VolumeDecision is the operator's answer to a RequestVolume event.
type VolumeDecision uint8

const (
	VolumeLoaded VolumeDecision = iota
	VolumeAborted
)

// VolumeCallback is invoked by a volume-aware backend (optical) when
// Create needs media the caller hasn't supplied yet. n is the 1-based
// volume sequence number being requested.
type VolumeCallback func(n int) VolumeDecision

// VolumeAware is implemented by backends whose Create can block waiting
// for operator action (spec.md's optical-media RequestVolume event).
// The job engine type-asserts for this interface and, when present,
// registers a callback that drives its REQUEST_VOLUME sub-state.
type VolumeAware interface {
	SetVolumeCallback(cb VolumeCallback)
}
