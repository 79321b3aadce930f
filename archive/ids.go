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

package archive

import "github.com/sabouaram/barsys/chunk"

var (
	idRoot      = chunk.NewID("BAR0")
	idFile      = chunk.NewID("FILE")
	idImage     = chunk.NewID("IMGE")
	idDirectory = chunk.NewID("DIR0")
	idLink      = chunk.NewID("LINK")
	idHardlink  = chunk.NewID("HLNK")
	idSpecial   = chunk.NewID("SPEC")
	idMeta      = chunk.NewID("META")
	idFileData  = chunk.NewID("FDAT")
	idImageData = chunk.NewID("IDAT")
	idKey       = chunk.NewID("KEY0")
	idSalt      = chunk.NewID("SALT")
)

// EntryType discriminates the six kinds of entry an archive can carry.
type EntryType uint8

const (
	TypeFile EntryType = iota
	TypeImage
	TypeDirectory
	TypeSymlink
	TypeHardlink
	TypeSpecial
)

func (t EntryType) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeImage:
		return "image"
	case TypeDirectory:
		return "directory"
	case TypeSymlink:
		return "symlink"
	case TypeHardlink:
		return "hardlink"
	case TypeSpecial:
		return "special"
	default:
		return "unknown"
	}
}

// fragmentable reports whether this entry type carries FDAT/IDAT data
// fragments (file, image, hardlink) as opposed to a metadata-only entry
// (directory, symlink, special).
func (t EntryType) fragmentable() bool {
	switch t {
	case TypeFile, TypeImage, TypeHardlink:
		return true
	default:
		return false
	}
}

func (t EntryType) chunkID() chunk.ID {
	switch t {
	case TypeFile:
		return idFile
	case TypeImage:
		return idImage
	case TypeDirectory:
		return idDirectory
	case TypeSymlink:
		return idLink
	case TypeHardlink:
		return idHardlink
	case TypeSpecial:
		return idSpecial
	default:
		return chunk.ID{}
	}
}

func (t EntryType) dataChunkID() chunk.ID {
	if t == TypeImage {
		return idImageData
	}
	return idFileData
}

func entryTypeFromChunkID(id chunk.ID) (EntryType, bool) {
	switch id {
	case idFile:
		return TypeFile, true
	case idImage:
		return TypeImage, true
	case idDirectory:
		return TypeDirectory, true
	case idLink:
		return TypeSymlink, true
	case idHardlink:
		return TypeHardlink, true
	case idSpecial:
		return TypeSpecial, true
	default:
		return 0, false
	}
}
