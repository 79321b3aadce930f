//go:build !unix

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

package job

import (
	"io/fs"
	"os"

	"github.com/sabouaram/barsys/archive"
	"github.com/sabouaram/barsys/index"
)

// statEntry is the non-unix fallback: file/directory/symlink only, no
// hardlink or special-device detection (neither is meaningfully
// recoverable from os.FileInfo alone off unix).
func statEntry(path string, info fs.FileInfo) (walkEntry, error) {
	we := walkEntry{path: path, size: info.Size()}
	we.attrs = archive.EntryAttrs{
		Mtime: info.ModTime(),
	}

	switch {
	case info.IsDir():
		we.kind = index.EntryDirectory
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return we, err
		}
		we.kind = index.EntrySymlink
		we.target = target
	default:
		we.kind = index.EntryFile
	}

	return we, nil
}
