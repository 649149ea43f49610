// Package testing provides disk-image fixtures for tests.
package testing

import (
	"io"
	"testing"

	"github.com/atarisk/atr/dos2"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// NewBlankImage creates a freshly formatted in-memory disk image of the
// given geometry and returns both the mounted volume and the underlying
// stream. The stream is fixed-size; writes past the end fail.
func NewBlankImage(t *testing.T, geo dos2.Geometry) (*dos2.Volume, io.ReadWriteSeeker) {
	raw := make([]byte, dos2.HeaderSize+geo.PhysicalSectors*dos2.SectorSize)
	stream := bytesextra.NewReadWriteSeeker(raw)

	volume, err := dos2.Format(stream, geo)
	require.NoError(t, err, "formatting a blank image must not fail")
	return volume, stream
}

// SingleDensity returns the 92,160-byte (data) single-density geometry.
func SingleDensity(t *testing.T) dos2.Geometry {
	geo, err := dos2.GetGeometry(40 * 18 * dos2.SectorSize)
	require.NoError(t, err)
	return geo
}

// EnhancedDensity returns the 133,120-byte (data) enhanced-density geometry.
func EnhancedDensity(t *testing.T) dos2.Geometry {
	geo, err := dos2.GetGeometry(40 * 26 * dos2.SectorSize)
	require.NoError(t, err)
	return geo
}
