package dos2_test

import (
	"testing"

	"github.com/atarisk/atr/dos2"
	"github.com/atarisk/atr/errors"
	atrtest "github.com/atarisk/atr/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// patternOfLength builds deterministic, non-repeating-per-sector content so
// misplaced or reordered sectors show up as content mismatches.
func patternOfLength(length int) []byte {
	content := make([]byte, length)
	for i := range content {
		content[i] = byte(i * 7)
	}
	return content
}

// Lengths straddling every interesting boundary of the 125-byte sector
// payload: empty, single partial, one byte short of full, exactly full,
// just past full, exactly two sectors, and a large multi-sector file.
var roundTripLengths = []int{0, 1, 124, 125, 126, 249, 250, 10000}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, geo := range []dos2.Geometry{atrtest.SingleDensity(t), atrtest.EnhancedDensity(t)} {
		volume, _ := atrtest.NewBlankImage(t, geo)

		for _, length := range roundTripLengths {
			expected := patternOfLength(length)
			require.NoError(t, volume.WriteFile("trip.dat", expected), "%s: writing %d bytes", geo.Name, length)

			actual, err := volume.ReadFile("trip.dat", false)
			require.NoError(t, err, "%s: reading %d bytes", geo.Name, length)
			assert.Equal(t, expected, actual, "%s: %d-byte round trip corrupted the content", geo.Name, length)
		}
	}
}

// A file of exactly N*125 bytes ends with a full terminal sector: its byte
// count is 125, not 0, and no empty trailing sector is chained on.
func TestExactSectorMultipleTerminalCount(t *testing.T) {
	volume, _ := atrtest.NewBlankImage(t, atrtest.SingleDensity(t))

	require.NoError(t, volume.WriteFile("exact.dat", patternOfLength(250)))

	_, entry, err := volume.FindFile("exact.dat")
	require.NoError(t, err)
	require.EqualValues(t, 2, entry.SectorCount)

	// Walk to the terminal sector by hand and inspect its trailer.
	first, err := volume.ReadSector(uint(entry.StartSector))
	require.NoError(t, err)
	next := uint(first[125]&0x03)<<8 | uint(first[126])
	require.NotZero(t, next)

	last, err := volume.ReadSector(next)
	require.NoError(t, err)
	assert.EqualValues(t, 0, last[125]&0x03, "terminal sector must have a zero next pointer")
	assert.EqualValues(t, 0, last[126])
	assert.EqualValues(t, 125, last[127], "terminal byte count must be 125, not 0")
}

func TestEmptyFileOccupiesNoSectors(t *testing.T) {
	volume, _ := atrtest.NewBlankImage(t, atrtest.SingleDensity(t))

	free, err := volume.FreeSectorCount()
	require.NoError(t, err)

	require.NoError(t, volume.WriteFile("empty.dat", nil))

	_, entry, err := volume.FindFile("empty.dat")
	require.NoError(t, err)
	assert.EqualValues(t, 0, entry.SectorCount)
	assert.EqualValues(t, 0, entry.StartSector)

	content, err := volume.ReadFile("empty.dat", false)
	require.NoError(t, err)
	assert.Empty(t, content)

	after, err := volume.FreeSectorCount()
	require.NoError(t, err)
	assert.Equal(t, free, after)
}

// Spec scenario: a 300-byte file occupies ceil(300/125) = 3 sectors.
func TestThreeHundredByteFile(t *testing.T) {
	volume, _ := atrtest.NewBlankImage(t, atrtest.SingleDensity(t))

	expected := patternOfLength(300)
	require.NoError(t, volume.WriteFile("TEST.TXT", expected))

	_, entry, err := volume.FindFile("test.txt")
	require.NoError(t, err)
	assert.EqualValues(t, 3, entry.SectorCount)

	actual, err := volume.ReadFile("TEST.TXT", false)
	require.NoError(t, err)
	assert.Equal(t, expected, actual)

	free, err := volume.FreeSectorCount()
	require.NoError(t, err)
	assert.EqualValues(t, 707-3, free)
}

func TestWriteFileReplacesExisting(t *testing.T) {
	volume, _ := atrtest.NewBlankImage(t, atrtest.SingleDensity(t))

	require.NoError(t, volume.WriteFile("doc.txt", patternOfLength(1000)))
	require.NoError(t, volume.WriteFile("doc.txt", []byte("short now")))

	content, err := volume.ReadFile("doc.txt", false)
	require.NoError(t, err)
	assert.Equal(t, []byte("short now"), content)

	// The old chain's sectors must have been released.
	free, err := volume.FreeSectorCount()
	require.NoError(t, err)
	assert.EqualValues(t, 707-1, free)

	files, err := volume.List()
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestRemoveRestoresFreeSpace(t *testing.T) {
	volume, _ := atrtest.NewBlankImage(t, atrtest.SingleDensity(t))

	require.NoError(t, volume.WriteFile("big.dat", patternOfLength(5000)))
	require.NoError(t, volume.Remove("big.dat"))

	free, err := volume.FreeSectorCount()
	require.NoError(t, err)
	assert.EqualValues(t, 707, free)

	_, err = volume.ReadFile("big.dat", false)
	assert.True(t, errors.Is(err, errors.ENOENT))
}

func TestRemoveMissingFile(t *testing.T) {
	volume, _ := atrtest.NewBlankImage(t, atrtest.SingleDensity(t))
	err := volume.Remove("ghost.dat")
	assert.True(t, errors.Is(err, errors.ENOENT))
}

func TestWriteFileInsufficientSpace(t *testing.T) {
	volume, _ := atrtest.NewBlankImage(t, atrtest.SingleDensity(t))

	// 707 free sectors hold at most 707*125 = 88375 content bytes.
	err := volume.WriteFile("huge.dat", patternOfLength(90000))
	require.True(t, errors.Is(err, errors.ENOSPC), "expected ENOSPC, got: %v", err)

	// The failed write must not leak allocated sectors.
	free, err := volume.FreeSectorCount()
	require.NoError(t, err)
	assert.EqualValues(t, 707, free)
}

func TestReadFileTranslatesLineEndings(t *testing.T) {
	volume, _ := atrtest.NewBlankImage(t, atrtest.SingleDensity(t))

	require.NoError(t, volume.WriteFile("listing.lst", []byte{'A', 0x9B, 'B', 0x9B}))

	raw, err := volume.ReadFile("listing.lst", false)
	require.NoError(t, err)
	assert.Equal(t, []byte{'A', 0x9B, 'B', 0x9B}, raw)

	translated, err := volume.ReadFile("listing.lst", true)
	require.NoError(t, err)
	assert.Equal(t, []byte("A\nB\n"), translated)
}

func TestListIsSortedAndFresh(t *testing.T) {
	volume, _ := atrtest.NewBlankImage(t, atrtest.SingleDensity(t))

	require.NoError(t, volume.WriteFile("zebra.txt", []byte("z")))
	require.NoError(t, volume.WriteFile("apple.txt", patternOfLength(300)))
	require.NoError(t, volume.WriteFile("dos.sys", []byte("s")))

	files, err := volume.List()
	require.NoError(t, err)
	require.Len(t, files, 3)

	assert.Equal(t, "apple.txt", files[0].Name)
	assert.Equal(t, "dos.sys", files[1].Name)
	assert.Equal(t, "zebra.txt", files[2].Name)

	assert.Equal(t, 300, files[0].Size)
	assert.EqualValues(t, 3, files[0].SectorCount)
	assert.True(t, files[1].System)
	assert.Nil(t, files[0].Binary)

	// A listing is rebuilt from the directory every time.
	require.NoError(t, volume.Remove("apple.txt"))
	files, err = volume.List()
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestListReportsBinaryHeaders(t *testing.T) {
	volume, _ := atrtest.NewBlankImage(t, atrtest.SingleDensity(t))

	binary := []byte{
		0xFF, 0xFF, 0x00, 0x06, 0x02, 0x06,
		0xEA, 0xEA, 0xEA,
		0xE0, 0x02, 0xE1, 0x02, 0x00, 0x06,
	}
	require.NoError(t, volume.WriteFile("game.com", binary))

	files, err := volume.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.NotNil(t, files[0].Binary)
	assert.Equal(t, 0x0600, files[0].Binary.LoadStart)
	assert.Equal(t, 0x0600, files[0].Binary.Run)
}

// A chain whose terminal sector points back into itself must fail with
// EUCLEAN everywhere the chain is walked, not loop forever.
func TestCorruptChainCycleFailsReadAndFree(t *testing.T) {
	volume, _ := atrtest.NewBlankImage(t, atrtest.SingleDensity(t))
	require.NoError(t, volume.WriteFile("loop.dat", patternOfLength(50)))

	_, entry, err := volume.FindFile("loop.dat")
	require.NoError(t, err)

	buffer, err := volume.ReadSector(uint(entry.StartSector))
	require.NoError(t, err)
	buffer[125] = buffer[125]&0xFC | byte(entry.StartSector>>8)&0x03
	buffer[126] = byte(entry.StartSector)
	require.NoError(t, volume.WriteSector(uint(entry.StartSector), buffer))

	_, err = volume.ReadFile("loop.dat", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.EUCLEAN), "expected EUCLEAN, got: %s", err)

	m, err := volume.ReadFreeMap()
	require.NoError(t, err)
	err = volume.FreeChain(m, uint(entry.StartSector))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.EUCLEAN), "expected EUCLEAN, got: %s", err)
}
