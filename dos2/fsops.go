package dos2

import (
	"io"
	"sort"

	"github.com/atarisk/atr/errors"
)

// OpenFile returns a streaming reader over the named file's content. When
// translateEOL is set, ATASCII end-of-line bytes are rewritten to '\n'.
func (v *Volume) OpenFile(name string, translateEOL bool) (*ChainReader, error) {
	_, entry, err := v.FindFile(name)
	if err != nil {
		return nil, err
	}
	return v.OpenChain(uint(entry.StartSector), translateEOL), nil
}

// ReadFile returns the named file's entire content.
func (v *Volume) ReadFile(name string, translateEOL bool) ([]byte, error) {
	reader, err := v.OpenFile(name, translateEOL)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(reader)
}

// WriteFile stores `content` under the given name, silently replacing any
// existing file of that name first. The sequence follows DOS 2: release the
// old file, claim a directory slot, allocate and write the data sectors,
// persist the directory entry, and only then write the updated bitmap back.
// A failure partway through leaves the on-disk bitmap unchanged.
func (v *Volume) WriteFile(name string, content []byte) error {
	err := v.Remove(name)
	if err != nil && !errors.Is(err, errors.ENOENT) {
		return err
	}

	m, err := v.ReadFreeMap()
	if err != nil {
		return err
	}

	slot, err := v.FindEmptySlot()
	if err != nil {
		return err
	}

	needed := (len(content) + DataBytesPerSector - 1) / DataBytesPerSector
	sectors, err := m.Allocate(uint(needed))
	if err != nil {
		return err
	}

	first, err := v.writeChain(content, slot, sectors)
	if err != nil {
		return err
	}

	stem, suffix, err := FilenameToBytes(name)
	if err != nil {
		return err
	}
	entry := DirEntry{
		Flags:       FlagInUse,
		SectorCount: uint16(needed),
		StartSector: uint16(first),
		Stem:        stem,
		Suffix:      suffix,
	}
	err = v.WriteDirEntry(slot, entry)
	if err != nil {
		return err
	}

	return v.WriteFreeMap(m)
}

// Remove deletes the named file: the directory entry is tombstoned first,
// then the chain's sectors are marked free and the bitmap is written back.
// If tombstoning succeeds but the chain walk fails, the entry stays deleted
// while its sectors remain allocated; the consistency checker will flag
// those sectors as "should be free".
func (v *Volume) Remove(name string) error {
	_, entry, err := v.findFile(name, true)
	if err != nil {
		return err
	}

	m, err := v.ReadFreeMap()
	if err != nil {
		return err
	}
	err = v.FreeChain(m, uint(entry.StartSector))
	if err != nil {
		return err
	}
	return v.WriteFreeMap(m)
}

// FreeSectorCount reports the number of free sectors on the volume.
func (v *Volume) FreeSectorCount() (uint, error) {
	m, err := v.ReadFreeMap()
	if err != nil {
		return 0, err
	}
	return m.TotalFree(), nil
}

// FileInfo describes one live directory entry for presentation. Size is
// the actual byte length found by walking the file's chain, which can
// disagree with SectorCount*125 on a damaged disk.
type FileInfo struct {
	Name        string
	Slot        int
	Locked      bool
	System      bool
	StartSector uint
	SectorCount uint
	Size        int
	// Binary is non-nil when the file starts with the 0xFFFF executable
	// signature; it is best-effort presentation data only.
	Binary *BinaryHeader
}

// List returns one FileInfo per in-use directory entry, sorted by name. The
// slice is built fresh on every call; nothing about the listing is cached
// or persisted.
func (v *Volume) List() ([]FileInfo, error) {
	var files []FileInfo
	for slot := 0; slot < MaxDirEntries; slot++ {
		entry, err := v.ReadDirEntry(slot)
		if err != nil {
			return nil, err
		}
		if !entry.InUse() {
			continue
		}

		content, err := io.ReadAll(v.OpenChain(uint(entry.StartSector), false))
		if err != nil {
			return nil, err
		}

		files = append(files, FileInfo{
			Name:        entry.Filename(),
			Slot:        slot,
			Locked:      entry.Locked(),
			System:      entry.IsSystem(),
			StartSector: uint(entry.StartSector),
			SectorCount: uint(entry.SectorCount),
			Size:        len(content),
			Binary:      SniffBinaryHeader(content),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}
