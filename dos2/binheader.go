package dos2

import (
	"encoding/binary"
)

// BinaryHeader holds the load layout of a DOS 2 executable, recovered from
// the file content on a best-effort basis for listings. Addresses that
// aren't present are -1. Nothing in the file system engine depends on it.
type BinaryHeader struct {
	LoadStart int // first address the file loads into
	LoadEnd   int // last address, inclusive
	Init      int // INITAD vector, run after loading
	Run       int // RUNAD vector, run last
}

// Segment-address markers a binary's final load segment may end with: the
// RUNAD ($02E0-$02E1) and INITAD ($02E2-$02E3) vectors.
var runVector = []byte{0xE0, 0x02, 0xE1, 0x02}
var initVector = []byte{0xE2, 0x02, 0xE3, 0x02}

func matchesVector(content []byte, offset int, vector []byte) bool {
	for i, b := range vector {
		if content[offset+i] != b {
			return false
		}
	}
	return true
}

// SniffBinaryHeader inspects file content for the DOS 2 executable format:
// an 0xFFFF signature followed by a load-address range, optionally ending
// with init/run vector segments. It returns nil unless the signature is
// present. The results are presentation-only hints; a multi-segment binary
// may load more than the range reported here.
func SniffBinaryHeader(content []byte) *BinaryHeader {
	if len(content) <= 6 || content[0] != 0xFF || content[1] != 0xFF {
		return nil
	}

	header := &BinaryHeader{
		LoadStart: int(binary.LittleEndian.Uint16(content[2:4])),
		LoadEnd:   int(binary.LittleEndian.Uint16(content[4:6])),
		Init:      -1,
		Run:       -1,
	}

	// A two-byte vector write is six bytes: the vector's address range
	// followed by the value. When both vectors are set, one sits right
	// before the other at the end of the file.
	end := len(content)
	if matchesVector(content, end-6, initVector) {
		header.Init = int(binary.LittleEndian.Uint16(content[end-2:]))
		if end >= 12 && matchesVector(content, end-12, runVector) {
			header.Run = int(binary.LittleEndian.Uint16(content[end-8 : end-6]))
		}
	} else if matchesVector(content, end-6, runVector) {
		header.Run = int(binary.LittleEndian.Uint16(content[end-2:]))
		if end >= 12 && matchesVector(content, end-12, initVector) {
			header.Init = int(binary.LittleEndian.Uint16(content[end-8 : end-6]))
		}
	}

	return header
}
