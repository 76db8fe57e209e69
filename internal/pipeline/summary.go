package pipeline

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates the measurements of a batch.
type Summary struct {
	ImagesProcessed    int     `json:"images_processed" yaml:"imagesProcessed"`
	ImagesFailed       int     `json:"images_failed" yaml:"imagesFailed"`
	TotalCells         int     `json:"total_cells" yaml:"totalCells"`
	TotalTissueAreaUM2 float64 `json:"total_tissue_area_um2" yaml:"totalTissueAreaUm2"`

	// Per-image cells_per_mm2 distribution.
	MeanCellsPerMM2   float64 `json:"mean_cells_per_mm2" yaml:"meanCellsPerMm2"`
	StdDevCellsPerMM2 float64 `json:"stddev_cells_per_mm2" yaml:"stddevCellsPerMm2"`
	MedianCellsPerMM2 float64 `json:"median_cells_per_mm2" yaml:"medianCellsPerMm2"`
	MinCellsPerMM2    float64 `json:"min_cells_per_mm2" yaml:"minCellsPerMm2"`
	MaxCellsPerMM2    float64 `json:"max_cells_per_mm2" yaml:"maxCellsPerMm2"`

	MeanPercentTissue float64 `json:"mean_percent_tissue" yaml:"meanPercentTissue"`

	// PooledCellsPerMM2 is total cells over total tissue area, so large
	// sections weigh more than small ones.
	PooledCellsPerMM2 float64 `json:"pooled_cells_per_mm2" yaml:"pooledCellsPerMm2"`
}

// Summarize computes batch statistics over successful results. All
// statistics are 0 when there are no results; the standard deviation is 0
// for a single result.
func Summarize(results []*Result, failed int) Summary {
	s := Summary{
		ImagesProcessed: len(results),
		ImagesFailed:    failed,
	}
	if len(results) == 0 {
		return s
	}

	density := make([]float64, len(results))
	percent := make([]float64, len(results))
	for i, r := range results {
		s.TotalCells += r.Metrics.CellCount
		s.TotalTissueAreaUM2 += r.Metrics.TissueAreaUM2
		density[i] = r.Metrics.CellsPerMM2
		percent[i] = r.Metrics.PercentTissueOfImage
	}

	s.MeanCellsPerMM2 = stat.Mean(density, nil)
	if len(density) > 1 {
		s.StdDevCellsPerMM2 = stat.StdDev(density, nil)
	}
	s.MinCellsPerMM2 = floats.Min(density)
	s.MaxCellsPerMM2 = floats.Max(density)
	s.MedianCellsPerMM2 = median(density)
	s.MeanPercentTissue = stat.Mean(percent, nil)

	if s.TotalTissueAreaUM2 > 0 {
		s.PooledCellsPerMM2 = float64(s.TotalCells) / s.TotalTissueAreaUM2 * 1e6
	}
	return s
}

// median returns the middle value of x, averaging the two middle values
// for even lengths. x is not modified.
func median(x []float64) float64 {
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
