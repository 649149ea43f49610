package dos2

import (
	"fmt"
	"io"

	"github.com/atarisk/atr/errors"
)

// DataBytesPerSector is the file content capacity of one sector. The last
// three bytes of every data sector are the trailer.
const DataBytesPerSector = 125

// atasciiEOL is the ATASCII end-of-line byte, which maps to '\n' when
// line-ending translation is requested.
const atasciiEOL = 0x9B

// trailer is the metadata in bytes 125-127 of a data sector: the owning
// file number (the directory slot, 0-63) in the top six bits of byte 125,
// a 10-bit pointer to the next sector of the chain split across the bottom
// two bits of byte 125 and all of byte 126, and the number of valid content
// bytes in byte 127. A next pointer of 0 ends the chain.
type trailer struct {
	FileNumber uint8
	Next       uint16
	Count      uint8 // valid content bytes, 0-125
}

func decodeTrailer(sector []byte) trailer {
	return trailer{
		FileNumber: sector[125] >> 2,
		Next:       uint16(sector[125]&0x03)<<8 | uint16(sector[126]),
		Count:      sector[127],
	}
}

func encodeTrailer(sector []byte, t trailer) {
	sector[125] = t.FileNumber<<2 | uint8(t.Next>>8)&0x03
	sector[126] = uint8(t.Next)
	sector[127] = t.Count
}

// ChainReader streams the content of one file by following its sector
// chain. It implements io.Reader; sectors are read from the volume lazily,
// one at a time, as the caller consumes bytes. A reader is not restartable:
// open a new one to read the file again.
type ChainReader struct {
	volume       *Volume
	next         uint
	pending      []byte
	translateEOL bool
	visited      uint
	err          error
}

// OpenChain returns a reader over the chain starting at `first`. A first
// sector of 0 denotes an empty file and yields an immediate EOF. When
// translateEOL is set, every ATASCII end-of-line byte (0x9B) in the content
// is rewritten to '\n'.
//
// Traversal is bounded by the volume's addressable sector count; a chain
// that exceeds the bound (necessarily a cycle) fails with EUCLEAN.
func (v *Volume) OpenChain(first uint, translateEOL bool) *ChainReader {
	return &ChainReader{
		volume:       v,
		next:         first,
		translateEOL: translateEOL,
	}
}

func (r *ChainReader) fetch() error {
	if r.visited >= r.volume.geo.AddressableSectors {
		return errors.ErrCorruptChain
	}
	r.visited++

	buffer, err := r.volume.ReadSector(r.next)
	if err != nil {
		return err
	}

	t := decodeTrailer(buffer)
	if t.Count > DataBytesPerSector {
		message := fmt.Sprintf(
			"sector %d claims %d content bytes; the maximum is %d",
			r.next, t.Count, DataBytesPerSector)
		return errors.NewWithMessage(errors.EUCLEAN, message)
	}

	r.pending = buffer[:t.Count]
	r.next = uint(t.Next)

	if r.translateEOL {
		for i, b := range r.pending {
			if b == atasciiEOL {
				r.pending[i] = '\n'
			}
		}
	}
	return nil
}

func (r *ChainReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}

	total := 0
	for total < len(p) {
		if len(r.pending) == 0 {
			if r.next == 0 {
				r.err = io.EOF
				break
			}
			err := r.fetch()
			if err != nil {
				r.err = err
				break
			}
			continue
		}

		n := copy(p[total:], r.pending)
		r.pending = r.pending[n:]
		total += n
	}

	if total > 0 {
		return total, nil
	}
	return 0, r.err
}

// writeChain encodes `content` into the given pre-allocated sectors and
// returns the first sector of the chain, or 0 for empty content. Every
// sector receives 125 content bytes, a pointer to its successor, and the
// file-number tag; the last sector gets a 0 pointer and the remaining byte
// count (125 exactly when the length is a multiple of 125).
//
// The sector list must hold exactly enough sectors for the content; a
// short list means the caller's allocation failed and is reported as
// ENOSPC.
func (v *Volume) writeChain(content []byte, fileNumber int, sectors []uint) (uint, error) {
	needed := (len(content) + DataBytesPerSector - 1) / DataBytesPerSector
	if len(sectors) < needed {
		message := fmt.Sprintf(
			"content needs %d sectors but only %d were allocated",
			needed, len(sectors))
		return 0, errors.NewWithMessage(errors.ENOSPC, message)
	}
	if needed == 0 {
		return 0, nil
	}

	for i := 0; i < needed; i++ {
		buffer := make([]byte, SectorSize)
		chunk := content[i*DataBytesPerSector:]
		t := trailer{FileNumber: uint8(fileNumber)}

		if i+1 == needed {
			t.Count = uint8(len(chunk))
		} else {
			chunk = chunk[:DataBytesPerSector]
			t.Next = uint16(sectors[i+1])
			t.Count = DataBytesPerSector
		}

		copy(buffer, chunk)
		encodeTrailer(buffer, t)

		err := v.WriteSector(sectors[i], buffer)
		if err != nil {
			return 0, err
		}
	}
	return sectors[0], nil
}
