// Package measurement turns a blob detection result into per-image cell
// metrics: cell count, tissue area and cell density.
//
// A CellMeasurement is built once per image from the grayscale image, the
// raw BlobSet and a Calibration. Every metric is a read-only accessor that
// recomputes its value from those inputs.
//
// # Units
//
// Areas are reported in µm² using the Calibration's pixels-per-micron
// factor. Density is available per µm² and per mm² of tissue.
//
// # Tissue
//
// Tissue area is the number of pixels brighter than
// TissueIntensityThreshold, scaled to µm². Slide background in fluorescence
// scans is close to 0, so any signal counts as tissue.
//
// # Identifiers
//
// SampleID and SampleName derive the identifiers used in reports from an
// image's file path.
package measurement
