package dos2

import (
	"fmt"
	"io"

	"github.com/atarisk/atr/errors"
)

// Volume provides sector-level access to one mounted disk image. It holds
// the backing stream and the geometry inferred from the stream's size, and
// nothing else: the bitmap, directory, and file chains are decoded from the
// stream on every operation rather than cached.
//
// A Volume assumes it has exclusive access to the stream for its lifetime.
// It is not safe for concurrent use.
type Volume struct {
	stream io.ReadWriteSeeker
	geo    Geometry
}

// Open mounts a disk image. The geometry is selected from the stream size;
// a stream that isn't exactly a single- or enhanced-density image fails
// with EMEDIUMTYPE and nothing is written.
func Open(stream io.ReadWriteSeeker) (*Volume, error) {
	size, err := stream.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, errors.NewFromError(errors.EIO, err)
	}

	geo, err := GetGeometry(size - HeaderSize)
	if err != nil {
		return nil, err
	}
	return &Volume{stream: stream, geo: geo}, nil
}

// Geometry returns the layout the volume was mounted with.
func (v *Volume) Geometry() Geometry {
	return v.geo
}

func (v *Volume) seekToSector(index uint) error {
	if index == 0 {
		return errors.ErrSectorZero
	}
	if index > v.geo.PhysicalSectors {
		message := fmt.Sprintf(
			"invalid sector number: %d not in range [1, %d]",
			index,
			v.geo.PhysicalSectors,
		)
		return errors.NewWithMessage(errors.EINVAL, message)
	}

	offset := int64(index-1)*SectorSize + HeaderSize
	_, err := v.stream.Seek(offset, io.SeekStart)
	if err != nil {
		return errors.NewFromError(errors.EIO, err)
	}
	return nil
}

// ReadSector reads one 128-byte sector. Sector 0 fails with EFAULT since it
// does not exist on any Atari disk.
func (v *Volume) ReadSector(index uint) ([]byte, error) {
	err := v.seekToSector(index)
	if err != nil {
		return nil, err
	}

	buffer := make([]byte, SectorSize)
	_, err = io.ReadFull(v.stream, buffer)
	if err != nil {
		return nil, errors.NewFromError(errors.EIO, err)
	}
	return buffer, nil
}

// WriteSector writes one 128-byte sector in place.
func (v *Volume) WriteSector(index uint, data []byte) error {
	if len(data) != SectorSize {
		message := fmt.Sprintf("sector data must be %d bytes, got %d", SectorSize, len(data))
		return errors.NewWithMessage(errors.EINVAL, message)
	}

	err := v.seekToSector(index)
	if err != nil {
		return err
	}

	_, err = v.stream.Write(data)
	if err != nil {
		return errors.NewFromError(errors.EIO, err)
	}
	return nil
}
