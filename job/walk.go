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
	"path/filepath"
	"strings"

	"github.com/sabouaram/barsys/archive"
	liberr "github.com/sabouaram/barsys/errors"
	"github.com/sabouaram/barsys/index"
)

// walkEntry describes one filesystem path discovered by walkIncludes,
// platform attributes filled in by statEntry (walk_unix.go/walk_other.go).
type walkEntry struct {
	path   string
	kind   index.EntryKind
	attrs  archive.EntryAttrs
	size   int64
	target string // symlink/hardlink target
	major  uint32 // special files only
	minor  uint32

	// hardlinkKey, when non-empty, identifies the underlying inode; the
	// second and later walkEntry sharing a key is re-kinded Hardlink by
	// the caller.
	hardlinkKey string
}

func excluded(path string, excludes []string) bool {
	for _, pat := range excludes {
		if ok, _ := filepath.Match(pat, path); ok {
			return true
		}
		if strings.HasPrefix(path, strings.TrimSuffix(pat, "/")+"/") {
			return true
		}
	}
	return false
}

// walkIncludes walks j's include paths (skipping excludes), feeding
// each discovered entry to w, and stops early once abort is true.
func walkIncludes(j *Job, w *archive.Writer, abort func() bool) liberr.Error {
	seenInodes := map[string]string{}

	for _, root := range j.Includes {
		werr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if abort() {
				return filepath.SkipAll
			}
			if err != nil {
				return err
			}
			if excluded(path, j.Excludes) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			info, ierr := d.Info()
			if ierr != nil {
				return ierr
			}

			we, serr := statEntry(path, info)
			if serr != nil {
				return serr
			}

			if we.hardlinkKey != "" {
				if first, ok := seenInodes[we.hardlinkKey]; ok {
					we.kind = index.EntryHardlink
					we.target = first
				} else {
					seenInodes[we.hardlinkKey] = path
				}
			}

			return writeWalkEntry(w, we)
		})
		if werr != nil {
			return ErrorWalk.Error(werr)
		}
	}
	return nil
}

func writeWalkEntry(w *archive.Writer, we walkEntry) error {
	switch we.kind {
	case index.EntryDirectory:
		return liberrToErr(w.AddDirectory(we.path, we.attrs))
	case index.EntrySymlink:
		return liberrToErr(w.AddLink(we.path, we.target, we.attrs))
	case index.EntrySpecial:
		return liberrToErr(w.AddSpecial(we.path, we.major, we.minor, we.attrs))
	case index.EntryHardlink:
		f, err := os.Open(we.path)
		if err != nil {
			return err
		}
		defer f.Close()
		return liberrToErr(w.AddHardlink(we.path, we.target, we.attrs, we.size, f))
	default:
		f, err := os.Open(we.path)
		if err != nil {
			return err
		}
		defer f.Close()
		return liberrToErr(w.AddFile(we.path, we.attrs, we.size, f))
	}
}

func liberrToErr(e liberr.Error) error {
	if e == nil {
		return nil
	}
	return e
}
