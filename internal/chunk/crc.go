// Package chunk implements the PNG wire-level chunk framing: the
// length/type/data/crc32 layout, the four-letter type property flags,
// and the chunk-ordering state machine.
package chunk

import (
	"hash"
	"hash/crc32"
)

// Table is the read-only CRC-32 (IEEE / ISO 3309) lookup table shared by
// every chunk on read and write. It is built once at init time and never
// mutated afterward, matching the "process-wide tables are read-only
// after initialization" rule.
var Table = crc32.MakeTable(crc32.IEEE)

// NewCRC returns a fresh rolling CRC-32 hash seeded for a chunk. The
// caller writes the 4-byte type and the payload into it, in that order,
// then compares Sum32() against the wire CRC.
func NewCRC() hash.Hash32 {
	return crc32.New(Table)
}

// Sum computes the CRC-32 over typ||data in one call, used on write
// where the whole payload is already in memory.
func Sum(typ [4]byte, data []byte) uint32 {
	h := NewCRC()
	h.Write(typ[:])
	h.Write(data)
	return h.Sum32()
}
