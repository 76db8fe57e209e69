package pipeline

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/cellcount/internal/imaging"
	"github.com/ironsheep/cellcount/internal/logger"
	"github.com/ironsheep/cellcount/internal/overlay"
)

// Report is the outcome of one batch run.
type Report struct {
	// RunID uniquely identifies the run in logs and exported files.
	RunID string `json:"run_id" yaml:"runId"`

	StartedAt time.Time     `json:"started_at" yaml:"startedAt"`
	Duration  time.Duration `json:"duration_ns" yaml:"duration"`

	// Options the batch was run with, for provenance.
	PixelsPerMicron float64 `json:"pixels_per_micron" yaml:"pixelsPerMicron"`

	// Results and Failures keep the order of the input paths.
	Results  []*Result `json:"results" yaml:"results"`
	Failures []Failure `json:"failures" yaml:"failures"`

	Summary Summary `json:"summary" yaml:"summary"`
}

// HasFailures reports whether any image failed.
func (r *Report) HasFailures() bool {
	return len(r.Failures) > 0
}

// Runner processes batches of image files in parallel.
//
// Each image is loaded, converted, detected and measured independently by
// one worker; a failing image is recorded and never stops the others.
// Runner is safe for concurrent use; each Run owns its own state.
type Runner struct {
	opts Options
	log  zerolog.Logger
	load func(path string) (image.Image, error)
}

// NewRunner creates a Runner. Options are validated by Run.
func NewRunner(opts Options, log zerolog.Logger) *Runner {
	return &Runner{
		opts: opts,
		log:  logger.WithComponent(log, "pipeline"),
		load: imaging.LoadFile,
	}
}

// Options returns the runner's options.
func (r *Runner) Options() Options {
	return r.opts
}

// Run processes every path and collects results and failures.
//
// Invalid options fail the whole run before any image is read, since every
// image would fail the same way. Otherwise Run always returns a Report:
// per-image errors, timeouts and cancellation are recorded as Failures.
func (r *Runner) Run(ctx context.Context, paths []string) (*Report, error) {
	if err := r.opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch options: %w", err)
	}

	report := &Report{
		RunID:           uuid.NewString(),
		StartedAt:       time.Now(),
		PixelsPerMicron: r.opts.Calibration.PixelsPerMicron,
	}
	log := r.log.With().Str("run_id", report.RunID).Logger()

	workers := r.opts.EffectiveWorkers()
	log.Info().
		Int("images", len(paths)).
		Int("workers", workers).
		Dur("image_timeout", r.opts.ImageTimeout).
		Msg("batch started")

	results := make([]*Result, len(paths))
	failures := make([]*Failure, len(paths))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			res, err := r.processPath(ctx, path)
			if err != nil {
				f := newFailure(path, err)
				failures[i] = &f
				log.Warn().
					Str("id", f.ID).
					Str("path", path).
					Str("kind", string(f.Kind)).
					Err(err).
					Msg("image failed")
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	for i := range paths {
		if results[i] != nil {
			report.Results = append(report.Results, results[i])
		} else if failures[i] != nil {
			report.Failures = append(report.Failures, *failures[i])
		}
	}

	report.Summary = Summarize(report.Results, len(report.Failures))
	report.Duration = time.Since(report.StartedAt)

	log.Info().
		Int("processed", report.Summary.ImagesProcessed).
		Int("failed", report.Summary.ImagesFailed).
		Int("cells", report.Summary.TotalCells).
		Dur("elapsed", report.Duration).
		Msg("batch finished")

	return report, nil
}

// processPath runs the full per-image pipeline for one file.
func (r *Runner) processPath(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: not started: %w", path, err)
	}

	start := time.Now()
	raw, err := r.load(path)
	if err != nil {
		return nil, err
	}

	res, err := ProcessImage(ctx, path, raw, r.opts)
	if err != nil {
		return nil, err
	}

	r.log.Debug().
		Str("id", res.ID).
		Str("path", path).
		Int("raw_blobs", res.RawBlobCount).
		Int("cells", res.Metrics.CellCount).
		Float64("cells_per_mm2", res.Metrics.CellsPerMM2).
		Dur("elapsed", time.Since(start)).
		Msg("image processed")

	if r.opts.OverlayDir != "" {
		r.writeOverlay(raw, res)
	}
	return res, nil
}

// writeOverlay renders and saves the QA figure for res. Failures are
// logged; they do not affect the measurement.
func (r *Runner) writeOverlay(raw image.Image, res *Result) {
	out := filepath.Join(r.opts.OverlayDir, overlay.FileName(res.Name))

	fig, err := overlay.Render(raw, res.Measurement.Blobs(), r.opts.Overlay)
	if err == nil {
		err = overlay.Save(fig, out)
	}
	if err != nil {
		r.log.Warn().Str("id", res.ID).Str("path", out).Err(err).Msg("overlay not written")
		return
	}
	r.log.Debug().Str("id", res.ID).Str("path", out).Msg("overlay written")
}
