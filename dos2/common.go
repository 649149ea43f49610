// Package dos2 reads and writes Atari DOS 2.0S/2.5 file systems inside ATR
// disk-image containers.
//
// An ATR container is a 16-byte header followed by raw 128-byte sectors.
// Sectors are numbered from 1; sector 0 does not exist. Two layouts are
// supported:
//
//   - Single density (DOS 2.0S): 40 tracks x 18 sectors = 720 sectors.
//     Sector 720 has no bitmap bit and is out of reach.
//   - Enhanced density (DOS 2.5): 40 tracks x 26 sectors = 1040 sectors.
//     Sectors above 1023 can't be referenced by the 10-bit chain pointers,
//     so only 1024 sectors are addressable. A second VTOC sector at 1024
//     carries the bitmap for sectors 720-1023.
//
// See http://atari.kensclassics.org/dos.htm for the on-disk format.
package dos2

import (
	"fmt"
	"strings"

	"github.com/atarisk/atr/errors"
)

// SectorSize is the size of every sector, in bytes.
const SectorSize = 128

// HeaderSize is the size of the ATR container header preceding sector 1.
const HeaderSize = 16

// Locations of the file system metadata. Both supported layouts keep the
// VTOC and the directory in the same place.
const (
	SectorVTOC      = 360  // free-space bitmap and counters
	SectorVTOC2     = 1024 // enhanced density only
	SectorDirStart  = 361  // first of the directory sectors
	DirSectorCount  = 8
	BootSectorCount = 3 // sectors 1-3 hold the boot loader
)

// Geometry describes one of the two supported disk layouts.
type Geometry struct {
	// Name is a human-readable label for the layout.
	Name string
	// AddressableSectors is one past the highest sector index a chain
	// pointer or bitmap bit can refer to: 720 or 1024.
	AddressableSectors uint
	// PhysicalSectors is the number of sectors actually present in the
	// container: 720 or 1040. The enhanced-density VTOC2 sector lives in
	// the gap between addressable and physical.
	PhysicalSectors uint
	// UsableSectors is the value the VTOC's total-sector field must hold:
	// the sectors left over for file data after the boot area, VTOC, and
	// directory are taken out. 707 or 1011.
	UsableSectors uint
	// HasVTOC2 is true for enhanced density.
	HasVTOC2 bool
}

var singleDensity = Geometry{
	Name:               "single density",
	AddressableSectors: 720,
	PhysicalSectors:    720,
	UsableSectors:      707,
	HasVTOC2:           false,
}

var enhancedDensity = Geometry{
	Name:               "enhanced density",
	AddressableSectors: 1024,
	PhysicalSectors:    1040,
	UsableSectors:      1011,
	HasVTOC2:           true,
}

// GetGeometry determines the disk layout from the size of the sector data,
// i.e. the container size minus the 16-byte header. Only the two sizes the
// DOS 2 family used are recognized; anything else fails with EMEDIUMTYPE.
func GetGeometry(dataSize int64) (Geometry, error) {
	switch dataSize {
	case 40 * 18 * SectorSize:
		return singleDensity, nil
	case 40 * 26 * SectorSize:
		return enhancedDensity, nil
	}
	message := fmt.Sprintf(
		"unrecognized image size %d; expected %d (single density) or %d (enhanced density)",
		dataSize,
		40*18*SectorSize,
		40*26*SectorSize,
	)
	return Geometry{}, errors.NewWithMessage(errors.EMEDIUMTYPE, message)
}

// FilenameToBytes converts an external filename into its on-disk form: an
// 8-character name and 3-character extension, upper-cased and padded with
// spaces. The extension may be absent.
func FilenameToBytes(name string) (stem [8]byte, suffix [3]byte, err error) {
	base := name
	extension := ""
	if dot := strings.IndexByte(name, '.'); dot >= 0 {
		base = name[:dot]
		extension = name[dot+1:]
	}

	if len(base) > len(stem) {
		message := fmt.Sprintf("filename stem can be at most 8 characters: `%s`", base)
		return stem, suffix, errors.NewWithMessage(errors.ENAMETOOLONG, message)
	}
	if len(extension) > len(suffix) {
		message := fmt.Sprintf("filename extension can be at most 3 characters: `%s`", extension)
		return stem, suffix, errors.NewWithMessage(errors.ENAMETOOLONG, message)
	}

	copy(stem[:], strings.ToUpper(fmt.Sprintf("%-8s", base)))
	copy(suffix[:], strings.ToUpper(fmt.Sprintf("%-3s", extension)))
	return stem, suffix, nil
}

// BytesToFilename converts the on-disk name fields into the external form:
// lower case, with a dot before the extension. A blank extension is omitted
// entirely, dot included.
func BytesToFilename(stem [8]byte, suffix [3]byte) string {
	base := strings.TrimRight(string(stem[:]), " ")
	extension := strings.TrimRight(string(suffix[:]), " ")

	var name string
	if len(extension) > 0 {
		name = base + "." + extension
	} else {
		name = base
	}
	return strings.ToLower(name)
}
