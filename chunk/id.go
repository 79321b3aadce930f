package chunk

// ID is the 4-byte tag that precedes every chunk's size field, e.g. "BAR0",
// "FILE", "DATA", "KEY0". Unknown IDs are not an error: a reader that does
// not recognize one skips its payload and moves on.
type ID [4]byte

func NewID(s string) ID {
	var id ID
	copy(id[:], s)
	return id
}

func (i ID) String() string {
	return string(i[:])
}

const headerSize = 4 + 8 // id + uint64 little-endian size
