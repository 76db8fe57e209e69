package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/cellcount/internal/pipeline"
)

// ErrUnknownFormat is returned by Write for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown report format")

// Supported output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Header is the column order of the measurement table.
var Header = []string{
	"id",
	"name",
	"cell_count",
	"tissue_area_um2",
	"cells_per_um2",
	"cells_per_mm2",
	"percent_tissue_of_image",
}

var failureHeader = []string{"id", "name", "path", "kind", "message"}

// Row is one line of the measurement table.
type Row struct {
	ID                   string  `json:"id" yaml:"id"`
	Name                 string  `json:"name" yaml:"name"`
	CellCount            int     `json:"cell_count" yaml:"cellCount"`
	TissueAreaUM2        float64 `json:"tissue_area_um2" yaml:"tissueAreaUm2"`
	CellsPerUM2          float64 `json:"cells_per_um2" yaml:"cellsPerUm2"`
	CellsPerMM2          float64 `json:"cells_per_mm2" yaml:"cellsPerMm2"`
	PercentTissueOfImage float64 `json:"percent_tissue_of_image" yaml:"percentTissueOfImage"`
}

// Rows converts pipeline results into table rows, keeping their order.
func Rows(results []*pipeline.Result) []Row {
	rows := make([]Row, 0, len(results))
	for _, r := range results {
		rows = append(rows, Row{
			ID:                   r.ID,
			Name:                 r.Name,
			CellCount:            r.Metrics.CellCount,
			TissueAreaUM2:        r.Metrics.TissueAreaUM2,
			CellsPerUM2:          r.Metrics.CellsPerUM2,
			CellsPerMM2:          r.Metrics.CellsPerMM2,
			PercentTissueOfImage: r.Metrics.PercentTissueOfImage,
		})
	}
	return rows
}

func (r Row) record() []string {
	return []string{
		r.ID,
		r.Name,
		strconv.Itoa(r.CellCount),
		formatFloat(r.TissueAreaUM2),
		formatFloat(r.CellsPerUM2),
		formatFloat(r.CellsPerMM2),
		formatFloat(r.PercentTissueOfImage),
	}
}

// formatFloat writes the shortest representation that round-trips.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV writes the header and one record per row.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.record()); err != nil {
			return fmt.Errorf("failed to write CSV row %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFailuresCSV writes one record per failed image.
func WriteFailuresCSV(w io.Writer, failures []pipeline.Failure) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(failureHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, f := range failures {
		if err := cw.Write([]string{f.ID, f.Name, f.Path, string(f.Kind), f.Message}); err != nil {
			return fmt.Errorf("failed to write failure %s: %w", f.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Snapshot is the serialized form of a batch report.
type Snapshot struct {
	RunID           string             `json:"run_id" yaml:"runId"`
	StartedAt       time.Time          `json:"started_at" yaml:"startedAt"`
	DurationSeconds float64            `json:"duration_seconds" yaml:"durationSeconds"`
	PixelsPerMicron float64            `json:"pixels_per_micron" yaml:"pixelsPerMicron"`
	Rows            []Row              `json:"rows" yaml:"rows"`
	Failures        []pipeline.Failure `json:"failures" yaml:"failures"`
	Summary         pipeline.Summary   `json:"summary" yaml:"summary"`
}

// NewSnapshot flattens a pipeline report. Failures is never nil so that
// an all-success run serializes as an empty list.
func NewSnapshot(rep *pipeline.Report) Snapshot {
	failures := rep.Failures
	if failures == nil {
		failures = []pipeline.Failure{}
	}
	return Snapshot{
		RunID:           rep.RunID,
		StartedAt:       rep.StartedAt,
		DurationSeconds: rep.Duration.Seconds(),
		PixelsPerMicron: rep.PixelsPerMicron,
		Rows:            Rows(rep.Results),
		Failures:        failures,
		Summary:         rep.Summary,
	}
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, rep *pipeline.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewSnapshot(rep)); err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	return nil
}

// WriteYAML writes the report as YAML.
func WriteYAML(w io.Writer, rep *pipeline.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewSnapshot(rep)); err != nil {
		return fmt.Errorf("failed to encode YAML report: %w", err)
	}
	return enc.Close()
}

// Write dispatches on format: csv writes the measurement table only, json
// and yaml write the full snapshot. Format is case-insensitive.
func Write(w io.Writer, format string, rep *pipeline.Report) error {
	switch strings.ToLower(format) {
	case FormatCSV:
		return WriteCSV(w, Rows(rep.Results))
	case FormatJSON:
		return WriteJSON(w, rep)
	case FormatYAML, "yml":
		return WriteYAML(w, rep)
	}
	return fmt.Errorf("%w: %q (want csv, json or yaml)", ErrUnknownFormat, format)
}

// FormatFromPath guesses the output format from a file extension,
// defaulting to csv.
func FormatFromPath(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return FormatYAML
	}
	return FormatCSV
}
