package dos2

import (
	"encoding/binary"
	"fmt"

	"github.com/atarisk/atr/errors"
	bitmap "github.com/boljen/go-bitmap"
)

// Layout of the VTOC ("volume table of contents") sector. Bytes 5-9 and
// 100-127 are unused.
const (
	vtocType     = 0 // DOS code, always 2
	vtocNumSects = 1 // usable sectors, little endian
	vtocNumFree  = 3 // free sectors 0-719, little endian
	vtocBitmap   = 10
)

// sdBitmapSize is the number of bitmap bytes held in the VTOC sector,
// covering sectors 0-719. The high bit of the first byte is sector 0.
const sdBitmapSize = 90

// edBitmapSize is the full bitmap size on an enhanced-density disk,
// covering sectors 0-1023. The VTOC holds the first 90 bytes; the rest
// live in VTOC2.
const edBitmapSize = 128

// Layout of the VTOC2 sector. Bytes 0-83 repeat VTOC bitmap bytes 6-89
// (sectors 48-719). DOS 2.5 only ever writes that copy, it never reads it
// back, and neither do we.
const (
	vtoc2MirrorStart = 6  // first full-bitmap byte mirrored into VTOC2
	vtoc2Upper       = 84 // bitmap bytes for sectors 720-1023
	vtoc2NumFree     = 122
)

// FreeMap is the in-memory form of a volume's free-space bitmap: one bit
// per addressable sector, set when the sector is free. It is a plain value
// decoded from the VTOC sector(s); nothing is written back to the disk
// until the caller hands it to [Volume.WriteFreeMap].
type FreeMap struct {
	geo  Geometry
	bits bitmap.Bitmap
}

func newFreeMap(geo Geometry) *FreeMap {
	return &FreeMap{
		geo:  geo,
		bits: bitmap.New(int(geo.AddressableSectors)),
	}
}

// IsFree reports whether a sector is marked free.
func (m *FreeMap) IsFree(sector uint) bool {
	return m.bits.Get(int(sector))
}

// SetFree marks a sector free or in use.
func (m *FreeMap) SetFree(sector uint, free bool) {
	m.bits.Set(int(sector), free)
}

// CountFree returns the number of free sectors in the range [first, limit).
func (m *FreeMap) CountFree(first, limit uint) uint {
	count := uint(0)
	for sector := first; sector < limit; sector++ {
		if m.bits.Get(int(sector)) {
			count++
		}
	}
	return count
}

// TotalFree returns the number of free sectors on the whole volume.
func (m *FreeMap) TotalFree() uint {
	return m.CountFree(0, m.geo.AddressableSectors)
}

// Allocate claims the `count` lowest-numbered free sectors, marking each of
// them in use, and returns their indices in ascending order. If fewer than
// `count` sectors are free it fails with ENOSPC; the map should then be
// discarded, since some bits may already have been claimed.
func (m *FreeMap) Allocate(count uint) ([]uint, error) {
	sectors := make([]uint, 0, count)
	for s := uint(1); s < m.geo.AddressableSectors && uint(len(sectors)) < count; s++ {
		if m.bits.Get(int(s)) {
			m.bits.Set(int(s), false)
			sectors = append(sectors, s)
		}
	}

	if uint(len(sectors)) < count {
		message := fmt.Sprintf(
			"not enough space: need %d sectors but only %d are free",
			count,
			len(sectors),
		)
		return nil, errors.NewWithMessage(errors.ENOSPC, message)
	}
	return sectors, nil
}

// pack serializes the map into the on-disk bit order: the high bit of byte
// 0 is sector 0, the low bit of the last byte is the highest addressable
// sector.
func (m *FreeMap) pack() []byte {
	raw := make([]byte, m.geo.AddressableSectors/8)
	for s := uint(0); s < m.geo.AddressableSectors; s++ {
		if m.bits.Get(int(s)) {
			raw[s>>3] |= 0x80 >> (s & 7)
		}
	}
	return raw
}

func (m *FreeMap) unpack(raw []byte) {
	for s := uint(0); s < m.geo.AddressableSectors; s++ {
		m.bits.Set(int(s), raw[s>>3]&(0x80>>(s&7)) != 0)
	}
}

// ReadFreeMap decodes the free-space bitmap from the VTOC sector, plus
// VTOC2 on an enhanced-density disk.
func (v *Volume) ReadFreeMap() (*FreeMap, error) {
	m, _, err := v.readFreeMap(false)
	return m, err
}

// VerifyFreeMap decodes the free-space bitmap like [Volume.ReadFreeMap] and
// additionally cross-checks the stored counters: each region's free count
// against the actual number of free bits, the usable-sector total, and the
// VTOC type code. Every mismatch is reported as a diagnostic string; the
// check never stops at the first problem. The map itself is returned
// as-read even when diagnostics are present.
func (v *Volume) VerifyFreeMap() (*FreeMap, []string, error) {
	return v.readFreeMap(true)
}

func (v *Volume) readFreeMap(verify bool) (*FreeMap, []string, error) {
	vtoc, err := v.ReadSector(SectorVTOC)
	if err != nil {
		return nil, nil, err
	}

	m := newFreeMap(v.geo)
	raw := make([]byte, m.geo.AddressableSectors/8)
	copy(raw, vtoc[vtocBitmap:vtocBitmap+sdBitmapSize])

	var vtoc2 []byte
	if v.geo.HasVTOC2 {
		vtoc2, err = v.ReadSector(SectorVTOC2)
		if err != nil {
			return nil, nil, err
		}
		// Only the upper-range bits are authoritative; the mirrored copy of
		// the VTOC bitmap in bytes 0-83 is write-only.
		copy(raw[sdBitmapSize:], vtoc2[vtoc2Upper:vtoc2Upper+edBitmapSize-sdBitmapSize])
	}
	m.unpack(raw)

	if !verify {
		return m, nil, nil
	}

	var diagnostics []string
	storedFree := uint(binary.LittleEndian.Uint16(vtoc[vtocNumFree:]))
	actualFree := m.CountFree(0, sdBitmapSize*8)
	if storedFree != actualFree {
		diagnostics = append(diagnostics, fmt.Sprintf(
			"VTOC free count is %d but the bitmap has %d free sectors",
			storedFree, actualFree))
	}

	storedTotal := uint(binary.LittleEndian.Uint16(vtoc[vtocNumSects:]))
	if storedTotal != v.geo.UsableSectors {
		diagnostics = append(diagnostics, fmt.Sprintf(
			"VTOC usable sector count is %d; expected %d",
			storedTotal, v.geo.UsableSectors))
	}

	if vtoc[vtocType] != 2 {
		diagnostics = append(diagnostics, fmt.Sprintf(
			"VTOC type code is %d; expected 2", vtoc[vtocType]))
	}

	if v.geo.HasVTOC2 {
		storedUpper := uint(binary.LittleEndian.Uint16(vtoc2[vtoc2NumFree:]))
		actualUpper := m.CountFree(sdBitmapSize*8, v.geo.AddressableSectors)
		if storedUpper != actualUpper {
			diagnostics = append(diagnostics, fmt.Sprintf(
				"VTOC2 free count is %d but the bitmap has %d free sectors above 719",
				storedUpper, actualUpper))
		}
	}

	return m, diagnostics, nil
}

// WriteFreeMap writes the bitmap back into the VTOC sector along with a
// freshly recomputed free count for sectors 0-719. On an enhanced-density
// disk it also rewrites VTOC2: the mirrored copy of bitmap bytes 6-127 and
// the free count for sectors 720-1023. The type code and usable-sector
// total are preserved as found.
func (v *Volume) WriteFreeMap(m *FreeMap) error {
	// The bit for sector 0 is forced to "in use" no matter what the caller
	// did to the map; the sector doesn't exist.
	m.SetFree(0, false)
	raw := m.pack()

	vtoc, err := v.ReadSector(SectorVTOC)
	if err != nil {
		return err
	}
	copy(vtoc[vtocBitmap:vtocBitmap+sdBitmapSize], raw)
	binary.LittleEndian.PutUint16(vtoc[vtocNumFree:], uint16(m.CountFree(0, sdBitmapSize*8)))
	err = v.WriteSector(SectorVTOC, vtoc)
	if err != nil {
		return err
	}

	if !v.geo.HasVTOC2 {
		return nil
	}

	vtoc2, err := v.ReadSector(SectorVTOC2)
	if err != nil {
		return err
	}
	copy(vtoc2[:edBitmapSize-vtoc2MirrorStart], raw[vtoc2MirrorStart:])
	binary.LittleEndian.PutUint16(
		vtoc2[vtoc2NumFree:],
		uint16(m.CountFree(sdBitmapSize*8, v.geo.AddressableSectors)))
	return v.WriteSector(SectorVTOC2, vtoc2)
}

// FreeChain walks the sector chain starting at `first` and marks every
// visited sector free in m. The on-disk bitmap is untouched; callers decide
// whether to persist the result, which lets the consistency checker
// simulate a removal without side effects. Sectors already marked free are
// tolerated. Traversal is bounded by the addressable sector count, so a
// self-referential chain fails with EUCLEAN instead of looping forever.
func (v *Volume) FreeChain(m *FreeMap, first uint) error {
	sector := first
	for steps := uint(0); sector != 0; steps++ {
		if steps >= v.geo.AddressableSectors {
			return errors.ErrCorruptChain
		}

		buffer, err := v.ReadSector(sector)
		if err != nil {
			return err
		}
		m.SetFree(sector, true)
		sector = uint(decodeTrailer(buffer).Next)
	}
	return nil
}
