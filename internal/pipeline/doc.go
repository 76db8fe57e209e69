// Package pipeline runs cell counting over batches of slide images.
//
// For each image the pipeline loads the file, converts it to 8-bit
// grayscale, detects blobs, and builds a CellMeasurement. Images are
// independent: Runner processes them in parallel with a bounded number of
// workers, each writing its outcome to its own slot, and returns a Report
// with results and failures in input order plus batch statistics.
//
// # Failures
//
// An image that cannot be measured becomes a Failure with a FailureKind
// (see ClassifyError) and never aborts the batch. Options that would make
// every image fail, such as invalid detection parameters or calibration,
// are rejected by Run before any file is read. Nothing is retried:
// detection and measurement are deterministic.
//
// # Timeouts
//
// Options.ImageTimeout bounds detection on a single image. Large maximum
// scales on large scans can be slow, and a deadline turns a pathological
// image into a Timeout failure instead of stalling the batch.
package pipeline
