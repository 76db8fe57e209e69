package measurement

import (
	"path/filepath"
	"strings"
)

// SampleIDLength is the number of leading filename characters that identify
// the sample or slide an image came from. The value follows the naming
// convention of the lab datasets this tool was built for; confirm it before
// running against images named differently.
const SampleIDLength = 5

// SampleID derives the sample identifier from an image path: the first
// SampleIDLength characters (runes) of the base filename, extension included.
// A base name shorter than SampleIDLength is returned whole.
//
// Examples:
//
//	SampleID("/data/AB123_slice4.tif") // "AB123"
//	SampleID("a.tif")                  // "a.tif"
func SampleID(path string) string {
	base := filepath.Base(path)
	runes := []rune(base)
	if len(runes) <= SampleIDLength {
		return base
	}
	return string(runes[:SampleIDLength])
}

// SampleName returns the base filename with its final extension removed.
//
//	SampleName("/data/AB123_slice4.tif")  // "AB123_slice4"
//	SampleName("/data/scan.ome.tif")      // "scan.ome"
func SampleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
