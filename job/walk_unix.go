//go:build unix

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
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"time"

	"github.com/sabouaram/barsys/archive"
	"github.com/sabouaram/barsys/index"
)

// statEntry fills in a walkEntry's kind, attrs and hardlink/special
// details from the platform's syscall.Stat_t, the same struct the
// original C walker inspects via lstat(2).
func statEntry(path string, info fs.FileInfo) (walkEntry, error) {
	we := walkEntry{path: path, size: info.Size()}

	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return we, fmt.Errorf("job: unexpected stat type for %s", path)
	}

	we.attrs = archive.EntryAttrs{
		UID:   st.Uid,
		GID:   st.Gid,
		Mode:  uint32(st.Mode),
		Mtime: time.Unix(st.Mtim.Sec, st.Mtim.Nsec),
		Atime: time.Unix(st.Atim.Sec, st.Atim.Nsec),
		Ctime: time.Unix(st.Ctim.Sec, st.Ctim.Nsec),
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
	case info.Mode()&(os.ModeDevice|os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0:
		we.kind = index.EntrySpecial
		rdev := uint64(st.Rdev)
		we.major = uint32((rdev >> 8) & 0xfff)
		we.minor = uint32((rdev & 0xff) | ((rdev >> 12) &^ 0xff))
	default:
		we.kind = index.EntryFile
		if st.Nlink > 1 {
			we.hardlinkKey = fmt.Sprintf("%d:%d", st.Dev, st.Ino)
		}
	}

	return we, nil
}
