package dos2

import (
	"encoding/binary"
	"io"

	"github.com/atarisk/atr/errors"
	"github.com/noxer/bytewriter"
)

// Format writes a blank, consistent file system of the given geometry onto
// the stream and mounts it. Every sector is zeroed, the ATR container
// header is rebuilt, and the VTOC (plus VTOC2 on enhanced density) is
// initialized with the full complement of free sectors: 707 below sector
// 720 and, on enhanced density, another 304 above it.
func Format(stream io.ReadWriteSeeker, geo Geometry) (*Volume, error) {
	_, err := stream.Seek(0, io.SeekStart)
	if err != nil {
		return nil, errors.NewFromError(errors.EIO, err)
	}

	// The 16-byte container header: signature word, image size in 16-byte
	// paragraphs (low word, then a high byte at offset 6), and the sector
	// size. The engine only ever checks the container's size, but other
	// tools expect the signature.
	paragraphs := geo.PhysicalSectors * SectorSize / 16
	header := make([]byte, HeaderSize)
	writer := bytewriter.New(header)
	binary.Write(writer, binary.LittleEndian, uint16(0x0296))
	binary.Write(writer, binary.LittleEndian, uint16(paragraphs))
	binary.Write(writer, binary.LittleEndian, uint16(SectorSize))
	binary.Write(writer, binary.LittleEndian, uint8(paragraphs>>16))

	_, err = stream.Write(header)
	if err != nil {
		return nil, errors.NewFromError(errors.EIO, err)
	}

	empty := make([]byte, SectorSize)
	for sector := uint(0); sector < geo.PhysicalSectors; sector++ {
		_, err = stream.Write(empty)
		if err != nil {
			return nil, errors.NewFromError(errors.EIO, err)
		}
	}

	volume := &Volume{stream: stream, geo: geo}

	vtoc := make([]byte, SectorSize)
	writer = bytewriter.New(vtoc)
	writer.Write([]byte{2}) // DOS 2 type code
	binary.Write(writer, binary.LittleEndian, uint16(geo.UsableSectors))
	err = volume.WriteSector(SectorVTOC, vtoc)
	if err != nil {
		return nil, err
	}

	m := newFreeMap(geo)
	for sector := uint(1); sector < geo.AddressableSectors; sector++ {
		m.SetFree(sector, true)
	}
	for sector := uint(1); sector <= BootSectorCount; sector++ {
		m.SetFree(sector, false)
	}
	m.SetFree(SectorVTOC, false)
	for sector := uint(SectorDirStart); sector < SectorDirStart+DirSectorCount; sector++ {
		m.SetFree(sector, false)
	}

	err = volume.WriteFreeMap(m)
	if err != nil {
		return nil, err
	}
	return volume, nil
}
