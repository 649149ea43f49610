package dos2

import (
	"strings"
	"testing"

	"github.com/atarisk/atr/errors"
)

func TestGetGeometryInvalidSize(t *testing.T) {
	_, err := GetGeometry(92160 - 128)
	if err == nil {
		t.Errorf("GetGeometry didn't fail on an invalid image size.")
	}
	if !errors.Is(err, errors.EMEDIUMTYPE) {
		t.Errorf("expected EMEDIUMTYPE, got: %s", err.Error())
	}
}

func TestGetGeometrySingleDensity(t *testing.T) {
	geo, err := GetGeometry(40 * 18 * 128)
	if err != nil {
		t.Fatalf("couldn't get single-density geometry: %s", err.Error())
	}
	if geo.AddressableSectors != 720 || geo.PhysicalSectors != 720 {
		t.Errorf("wrong sector counts: %+v", geo)
	}
	if geo.UsableSectors != 707 || geo.HasVTOC2 {
		t.Errorf("wrong metadata layout: %+v", geo)
	}
}

func TestGetGeometryEnhancedDensity(t *testing.T) {
	geo, err := GetGeometry(40 * 26 * 128)
	if err != nil {
		t.Fatalf("couldn't get enhanced-density geometry: %s", err.Error())
	}
	if geo.AddressableSectors != 1024 || geo.PhysicalSectors != 1040 {
		t.Errorf("wrong sector counts: %+v", geo)
	}
	if geo.UsableSectors != 1011 || !geo.HasVTOC2 {
		t.Errorf("wrong metadata layout: %+v", geo)
	}
}

type FilenameTest struct {
	Filename string
	Stem     string
	Suffix   string
}

var filenameTests = [...]FilenameTest{
	{Filename: "", Stem: "        ", Suffix: "   "},
	{Filename: "qwerty.txt", Stem: "QWERTY  ", Suffix: "TXT"},
	{Filename: "aSdF.g", Stem: "ASDF    ", Suffix: "G  "},
	{Filename: "noext", Stem: "NOEXT   ", Suffix: "   "},
	{Filename: "autorun.sys", Stem: "AUTORUN ", Suffix: "SYS"},
	{Filename: "longest0.bas", Stem: "LONGEST0", Suffix: "BAS"},
}

func TestSerializeFilenames(t *testing.T) {
	for _, test := range filenameTests {
		stem, suffix, err := FilenameToBytes(test.Filename)
		if err != nil {
			t.Errorf("Error serializing `%s`: %s", test.Filename, err.Error())
		} else if string(stem[:]) != test.Stem || string(suffix[:]) != test.Suffix {
			t.Errorf(
				"Serialized filename is wrong; expected `%s`+`%s`, got `%s`+`%s`",
				test.Stem, test.Suffix, stem, suffix,
			)
		}
	}
}

func TestDeserializeFilenames(t *testing.T) {
	for _, test := range filenameTests {
		var stem [8]byte
		var suffix [3]byte
		copy(stem[:], test.Stem)
		copy(suffix[:], test.Suffix)

		deserialized := BytesToFilename(stem, suffix)
		if !strings.EqualFold(deserialized, test.Filename) {
			t.Errorf(
				"Deserialized filename is wrong; expected `%s`, got `%s`",
				strings.ToLower(test.Filename), deserialized,
			)
		}
	}
}

func TestSerializeFilenameTooLong(t *testing.T) {
	for _, name := range []string{"verylongname.txt", "file.text"} {
		_, _, err := FilenameToBytes(name)
		if !errors.Is(err, errors.ENAMETOOLONG) {
			t.Errorf("serializing `%s` should've failed with ENAMETOOLONG", name)
		}
	}
}
