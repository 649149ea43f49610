package dos2

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/atarisk/atr/errors"
)

// Flag bits of a directory entry's first byte. A never-used slot has a
// flag byte of zero.
const (
	FlagOpenedForOutput = 0x01
	FlagDOS2            = 0x02 // created by DOS 2
	FlagLocked          = 0x20
	FlagInUse           = 0x40
	FlagDeleted         = 0x80
)

// DirEntrySize is the size of one directory entry on disk.
const DirEntrySize = 16

// EntriesPerSector is the number of directory entries in one sector.
const EntriesPerSector = SectorSize / DirEntrySize

// MaxDirEntries is the fixed capacity of the directory: 8 sectors of 8
// entries each. The entry's slot number doubles as the file number stored
// in every sector of its chain.
const MaxDirEntries = DirSectorCount * EntriesPerSector

// DirEntry is the decoded form of one 16-byte directory entry.
type DirEntry struct {
	Flags       uint8
	SectorCount uint16
	StartSector uint16
	Stem        [8]byte
	Suffix      [3]byte
}

func decodeDirEntry(raw []byte) DirEntry {
	var entry DirEntry
	entry.Flags = raw[0]
	entry.SectorCount = binary.LittleEndian.Uint16(raw[1:3])
	entry.StartSector = binary.LittleEndian.Uint16(raw[3:5])
	copy(entry.Stem[:], raw[5:13])
	copy(entry.Suffix[:], raw[13:16])
	return entry
}

func (e *DirEntry) encode(raw []byte) {
	raw[0] = e.Flags
	binary.LittleEndian.PutUint16(raw[1:3], e.SectorCount)
	binary.LittleEndian.PutUint16(raw[3:5], e.StartSector)
	copy(raw[5:13], e.Stem[:])
	copy(raw[13:16], e.Suffix[:])
}

// InUse reports whether the slot currently names a file.
func (e *DirEntry) InUse() bool {
	return e.Flags&FlagInUse != 0
}

// Locked reports whether the file is write-protected.
func (e *DirEntry) Locked() bool {
	return e.Flags&FlagLocked != 0
}

// Filename returns the entry's name in external form.
func (e *DirEntry) Filename() string {
	return BytesToFilename(e.Stem, e.Suffix)
}

// IsSystem reports whether the entry is a DOS system file (.SYS).
func (e *DirEntry) IsSystem() bool {
	return string(e.Suffix[:]) == "SYS"
}

// slotLocation maps a directory slot (0-63) to the sector holding it and
// the byte offset of the entry within that sector.
func slotLocation(slot int) (sector uint, offset int) {
	return SectorDirStart + uint(slot/EntriesPerSector),
		(slot % EntriesPerSector) * DirEntrySize
}

// ReadDirEntry decodes the directory entry in the given slot.
func (v *Volume) ReadDirEntry(slot int) (DirEntry, error) {
	if slot < 0 || slot >= MaxDirEntries {
		message := fmt.Sprintf("invalid directory slot: %d not in range [0, %d)", slot, MaxDirEntries)
		return DirEntry{}, errors.NewWithMessage(errors.EINVAL, message)
	}

	sector, offset := slotLocation(slot)
	buffer, err := v.ReadSector(sector)
	if err != nil {
		return DirEntry{}, err
	}
	return decodeDirEntry(buffer[offset : offset+DirEntrySize]), nil
}

// WriteDirEntry persists a full entry into the given slot, overwriting
// whatever was there. The rest of the directory sector is preserved.
func (v *Volume) WriteDirEntry(slot int, entry DirEntry) error {
	if slot < 0 || slot >= MaxDirEntries {
		message := fmt.Sprintf("invalid directory slot: %d not in range [0, %d)", slot, MaxDirEntries)
		return errors.NewWithMessage(errors.EINVAL, message)
	}

	sector, offset := slotLocation(slot)
	buffer, err := v.ReadSector(sector)
	if err != nil {
		return err
	}
	entry.encode(buffer[offset : offset+DirEntrySize])
	return v.WriteSector(sector, buffer)
}

// FindFile scans the directory in storage order and returns the slot and
// entry of the first in-use entry whose name matches, comparing names
// case-insensitively. A file that isn't there fails with ENOENT.
func (v *Volume) FindFile(name string) (int, DirEntry, error) {
	return v.findFile(name, false)
}

// findFile implements FindFile. When tombstone is set, the matched entry's
// flag byte is rewritten to just FlagDeleted before returning, which both
// marks the file deleted and releases the slot for reuse by the empty-slot
// scan. The sectors of the file's chain are NOT released here.
func (v *Volume) findFile(name string, tombstone bool) (int, DirEntry, error) {
	for sector := uint(SectorDirStart); sector < SectorDirStart+DirSectorCount; sector++ {
		buffer, err := v.ReadSector(sector)
		if err != nil {
			return -1, DirEntry{}, err
		}

		for offset := 0; offset < SectorSize; offset += DirEntrySize {
			entry := decodeDirEntry(buffer[offset : offset+DirEntrySize])
			if !entry.InUse() || !strings.EqualFold(entry.Filename(), name) {
				continue
			}

			if tombstone {
				buffer[offset] = FlagDeleted
				err = v.WriteSector(sector, buffer)
				if err != nil {
					return -1, DirEntry{}, err
				}
			}

			slot := int(sector-SectorDirStart)*EntriesPerSector + offset/DirEntrySize
			return slot, entry, nil
		}
	}

	message := fmt.Sprintf("file `%s` not found", name)
	return -1, DirEntry{}, errors.NewWithMessage(errors.ENOENT, message)
}

// FindEmptySlot returns the first directory slot whose in-use flag is
// clear, in the same scan order as FindFile. Slots of deleted files
// qualify. If all 64 slots hold live files it fails with ENFILE.
func (v *Volume) FindEmptySlot() (int, error) {
	for sector := uint(SectorDirStart); sector < SectorDirStart+DirSectorCount; sector++ {
		buffer, err := v.ReadSector(sector)
		if err != nil {
			return -1, err
		}

		for offset := 0; offset < SectorSize; offset += DirEntrySize {
			if buffer[offset]&FlagInUse == 0 {
				return int(sector-SectorDirStart)*EntriesPerSector + offset/DirEntrySize, nil
			}
		}
	}
	return -1, errors.ErrDirectoryFull
}
