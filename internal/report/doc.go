// Package report exports batch measurements.
//
// The measurement table has one row per successfully measured image with
// the columns listed in Header. CSV output contains only that table; JSON
// and YAML output carry the run metadata, failures and batch summary as
// well. Failures can be exported separately with WriteFailuresCSV.
package report
