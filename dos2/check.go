package dos2

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Sector owners in the checker's shadow map. Slots 0-63 mark ownership by
// the file in that directory slot; ownerReserved covers sector 0, the boot
// area, the VTOC, and the directory itself.
const (
	ownerFree     = -1
	ownerReserved = 64
)

// Finding is one inconsistency discovered by [Volume.Check].
type Finding struct {
	// Sector is the index the finding is about, or 0 for volume-level
	// findings such as counter mismatches.
	Sector  uint
	Message string
}

func (f Finding) String() string {
	return f.Message
}

// FileReport summarizes the chain walk of one live file.
type FileReport struct {
	Name string
	Slot int
	// DeclaredSectors is the sector count stored in the directory entry;
	// WalkedSectors is what following the chain actually found.
	DeclaredSectors uint
	WalkedSectors   uint
}

// Report is the outcome of a consistency check. A clean volume produces a
// Report with no findings.
type Report struct {
	Findings    []Finding
	Files       []FileReport
	UsedSectors uint
	FreeSectors uint
}

func (r *Report) addFinding(sector uint, format string, args ...interface{}) {
	r.Findings = append(r.Findings, Finding{
		Sector:  sector,
		Message: fmt.Sprintf(format, args...),
	})
}

// Err collapses the report into a single error, or nil if the volume is
// consistent.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, finding := range r.Findings {
		result = multierror.Append(result, fmt.Errorf("%s", finding.Message))
	}
	return result.ErrorOrNil()
}

// Check verifies the volume's allocation metadata without modifying it.
//
// It rebuilds the expected ownership of every addressable sector in an
// in-memory shadow map: the reserved sectors are marked first, then every
// in-use directory entry's chain is replayed, claiming each visited sector
// for that file. A sector claimed twice is reported as double-allocated,
// naming the competing owner, and a directory entry whose stored sector
// count disagrees with the walked chain length is flagged too. Finally the
// shadow map is diffed against the on-disk bitmap, read in verify mode so
// counter and type-code mismatches surface as well.
//
// Every problem found is accumulated in the returned report; nothing stops
// the pass early except an I/O failure. The checker never writes.
func (v *Volume) Check() (*Report, error) {
	report := &Report{}

	owners := make([]int, v.geo.AddressableSectors)
	names := make([]string, v.geo.AddressableSectors)
	for i := range owners {
		owners[i] = ownerFree
	}

	// Sector 0 doesn't exist, so nothing may claim it.
	owners[0] = ownerReserved
	for sector := uint(1); sector <= BootSectorCount; sector++ {
		owners[sector] = ownerReserved
	}
	owners[SectorVTOC] = ownerReserved
	for sector := uint(SectorDirStart); sector < SectorDirStart+DirSectorCount; sector++ {
		owners[sector] = ownerReserved
	}

	for slot := 0; slot < MaxDirEntries; slot++ {
		entry, err := v.ReadDirEntry(slot)
		if err != nil {
			return nil, err
		}
		if !entry.InUse() {
			continue
		}

		filename := entry.Filename()
		walked, err := v.replayChain(report, slot, filename, uint(entry.StartSector), owners, names)
		if err != nil {
			return nil, err
		}

		if walked != uint(entry.SectorCount) {
			report.addFinding(0,
				"directory size of `%s` (%d sectors) does not match size on disk (%d sectors)",
				filename, entry.SectorCount, walked)
		}
		report.Files = append(report.Files, FileReport{
			Name:            filename,
			Slot:            slot,
			DeclaredSectors: uint(entry.SectorCount),
			WalkedSectors:   walked,
		})
	}

	for _, owner := range owners {
		if owner != ownerFree {
			report.UsedSectors++
		}
	}
	report.FreeSectors = v.geo.AddressableSectors - report.UsedSectors

	m, diagnostics, err := v.VerifyFreeMap()
	if err != nil {
		return nil, err
	}
	for _, diagnostic := range diagnostics {
		report.addFinding(0, "%s", diagnostic)
	}

	for sector := uint(0); sector < v.geo.AddressableSectors; sector++ {
		allocated := !m.IsFree(sector)
		if allocated && owners[sector] == ownerFree {
			report.addFinding(sector,
				"VTOC shows sector %d allocated, but it should be free", sector)
		} else if !allocated && owners[sector] != ownerFree {
			report.addFinding(sector,
				"VTOC shows sector %d free, but it should be allocated", sector)
		}
	}

	return report, nil
}

// replayChain walks one file's chain, claiming each visited sector in the
// shadow map and reporting sectors that already have an owner. It returns
// the number of sectors visited. Chains that leave the addressable range
// or fail to terminate are reported as findings rather than errors; the
// walk simply stops there so the rest of the check can proceed.
func (v *Volume) replayChain(
	report *Report,
	slot int,
	filename string,
	first uint,
	owners []int,
	names []string,
) (uint, error) {
	walked := uint(0)
	sector := first

	for sector != 0 {
		if walked >= v.geo.AddressableSectors {
			report.addFinding(sector,
				"chain of `%s` does not terminate within the volume", filename)
			return walked, nil
		}
		if sector >= v.geo.AddressableSectors {
			report.addFinding(sector,
				"chain of `%s` points at sector %d, past the addressable range", filename, sector)
			return walked, nil
		}

		buffer, err := v.ReadSector(sector)
		if err != nil {
			return walked, err
		}

		if owners[sector] != ownerFree {
			competitor := "reserved"
			if names[sector] != "" {
				competitor = fmt.Sprintf("`%s`", names[sector])
			}
			report.addFinding(sector,
				"sector %d of `%s` already in use by %s (owner %d)",
				sector, filename, competitor, owners[sector])
		}
		owners[sector] = slot
		names[sector] = filename
		walked++

		sector = uint(decodeTrailer(buffer).Next)
	}
	return walked, nil
}
