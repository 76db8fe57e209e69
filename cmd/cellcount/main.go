package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ironsheep/cellcount/internal/config"
	"github.com/ironsheep/cellcount/internal/imaging"
	"github.com/ironsheep/cellcount/internal/logger"
	"github.com/ironsheep/cellcount/internal/pipeline"
	"github.com/ironsheep/cellcount/internal/report"
	"github.com/ironsheep/cellcount/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run dispatches a command line and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return exitUsage
	}

	switch args[0] {
	case "count":
		return runCount(ctx, args[1:], stdout, stderr)
	case "serve":
		return runServe(ctx, args[1:], stdin, stdout, stderr)
	case "init-config":
		return runInitConfig(args[1:], stdout, stderr)
	case "--version", "-v", "version":
		fmt.Fprintf(stdout, "cellcount %s\n", Version)
		fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
		return exitOK
	case "--help", "-h", "help":
		printUsage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		printUsage(stderr)
		return exitUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "cellcount - count cells in tissue slide images")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  cellcount count -dir DIR [options]   Count cells in every matching image")
	fmt.Fprintln(w, "  cellcount serve [options]            Run the MCP server on stdin/stdout")
	fmt.Fprintln(w, "  cellcount init-config FILE           Write a default YAML config")
	fmt.Fprintln(w, "  cellcount version                    Print version information")
	fmt.Fprintln(w, "  cellcount help                       Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'cellcount count -h' for count options.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Settings are read from -config, then .env and CELLCOUNT_* environment")
	fmt.Fprintln(w, "variables, then command line flags:")
	fmt.Fprintln(w, "  "+config.EnvPixelsPerMicron+"   Scanner calibration")
	fmt.Fprintln(w, "  "+config.EnvWorkers+"             Images processed at once")
	fmt.Fprintln(w, "  "+config.EnvImageTimeout+"       Per-image detection timeout (e.g. 2m)")
	fmt.Fprintln(w, "  "+config.EnvPattern+"             File name glob")
	fmt.Fprintln(w, "  "+config.EnvLogLevel+"           debug, info, warn or error")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "count exits with status 1 when any image could not be measured.")
}

// loadConfig builds the configuration from the config file and environment.
func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadDotEnv(""); err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// newLogger builds the CLI logger on w from the log section of cfg.
func newLogger(cfg *config.Config, w io.Writer) (zerolog.Logger, error) {
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return zerolog.Logger{}, err
	}
	if cfg.Log.Console {
		return logger.NewConsole(w, level), nil
	}
	return logger.New(w, level), nil
}

// setFlags returns the names of the flags given on the command line.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func runCount(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("count", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "YAML config file")
	dir := fs.String("dir", ".", "Directory containing the slide images")
	pattern := fs.String("pattern", imaging.DefaultPattern, "File name glob (*.tif also matches *.tiff)")
	limit := fs.Int("limit", 0, "Process at most N images, sorted by name (0 = all)")
	ppm := fs.Float64("ppm", pipeline.DefaultPixelsPerMicron, "Scanner calibration in pixels per micron")
	format := fs.String("format", report.FormatCSV, "Report format: csv, json or yaml (default from -out extension)")
	out := fs.String("out", "", "Report file (default stdout)")
	failuresOut := fs.String("failures", "", "Also write failed images to this CSV file")
	workers := fs.Int("workers", 0, "Images processed at once (0 = physical cores)")
	timeout := fs.Duration("timeout", 0, "Per-image detection timeout, e.g. 2m (0 = none)")
	overlayDir := fs.String("overlay-dir", "", "Write <name>_overlay.png QA figures to this directory")
	logLevel := fs.String("log-level", "info", "Log level: debug, info, warn, error")
	verbose := fs.Bool("verbose", false, "Shorthand for -log-level debug")
	jsonLogs := fs.Bool("json-logs", false, "Log JSON lines instead of console output")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", fs.Args())
		return exitUsage
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	set := setFlags(fs)
	if set["dir"] {
		cfg.Input.Dir = *dir
	}
	if set["pattern"] {
		cfg.Input.Pattern = *pattern
	}
	if set["limit"] {
		cfg.Input.Limit = *limit
	}
	if set["ppm"] {
		cfg.Calibration.PixelsPerMicron = *ppm
	}
	if set["workers"] {
		cfg.Processing.Workers = *workers
	}
	if set["timeout"] {
		cfg.Processing.ImageTimeout = *timeout
	}
	if set["out"] {
		cfg.Output.Path = *out
		if !set["format"] {
			cfg.Output.Format = report.FormatFromPath(*out)
		}
	}
	if set["format"] {
		cfg.Output.Format = *format
	}
	if set["overlay-dir"] {
		cfg.Output.OverlayDir = *overlayDir
	}
	if set["log-level"] {
		cfg.Log.Level = *logLevel
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *jsonLogs {
		cfg.Log.Console = false
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: invalid configuration: %v\n", err)
		return exitUsage
	}

	base, err := newLogger(cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	log := logger.WithComponent(base, "cli")

	src, err := imaging.NewSource(cfg.Input.Dir, cfg.Input.Pattern, cfg.Input.Limit)
	if err != nil {
		log.Error().Err(err).Msg("cannot list images")
		return exitFailed
	}
	log.Info().
		Str("dir", src.Dir()).
		Str("pattern", src.Pattern()).
		Int("images", src.Len()).
		Float64("pixels_per_micron", cfg.Calibration.PixelsPerMicron).
		Msg("counting cells")

	rep, err := pipeline.NewRunner(cfg.PipelineOptions(), base).Run(ctx, src.Paths())
	if err != nil {
		log.Error().Err(err).Msg("batch failed")
		return exitFailed
	}

	if err := writeReport(cfg.Output.Path, cfg.Output.Format, rep, stdout); err != nil {
		log.Error().Err(err).Msg("cannot write report")
		return exitFailed
	}
	if *failuresOut != "" {
		if err := writeFile(*failuresOut, func(w io.Writer) error {
			return report.WriteFailuresCSV(w, rep.Failures)
		}); err != nil {
			log.Error().Err(err).Msg("cannot write failures")
			return exitFailed
		}
	}

	log.Info().
		Str("run_id", rep.RunID).
		Int("processed", rep.Summary.ImagesProcessed).
		Int("failed", rep.Summary.ImagesFailed).
		Int("cells", rep.Summary.TotalCells).
		Float64("mean_cells_per_mm2", rep.Summary.MeanCellsPerMM2).
		Dur("elapsed", rep.Duration).
		Msg("done")

	if rep.HasFailures() {
		for _, f := range rep.Failures {
			log.Error().Str("id", f.ID).Str("kind", string(f.Kind)).Msg(f.Message)
		}
		return exitFailed
	}
	return exitOK
}

// writeReport writes rep to path, or to stdout when path is empty.
func writeReport(path, format string, rep *pipeline.Report, stdout io.Writer) error {
	if path == "" {
		return report.Write(stdout, format, rep)
	}
	return writeFile(path, func(w io.Writer) error {
		return report.Write(w, format, rep)
	})
}

// writeFile creates path and its directory and hands it to write.
func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runServe(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "YAML config file")
	ppm := fs.Float64("ppm", pipeline.DefaultPixelsPerMicron, "Default scanner calibration in pixels per micron")
	logLevel := fs.String("log-level", "info", "Log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	set := setFlags(fs)
	if set["ppm"] {
		cfg.Calibration.PixelsPerMicron = *ppm
	}
	if set["log-level"] {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: invalid configuration: %v\n", err)
		return exitUsage
	}

	// stdout carries the MCP protocol; logs go to stderr.
	log, err := newLogger(cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	cliLog := logger.WithComponent(log, "cli")
	cliLog.Debug().Str("version", Version).Str("build_time", BuildTime).Str("commit", GitCommit).Msg("starting MCP server")

	srv := server.New(cfg.PipelineOptions(), log)
	if err := srv.Serve(ctx, stdin, stdout); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("server error")
		return exitFailed
	}
	return exitOK
}

func runInitConfig(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("init-config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	force := fs.Bool("force", false, "Overwrite an existing file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Usage: cellcount init-config [-force] FILE")
		return exitUsage
	}
	path := fs.Arg(0)

	if _, err := os.Stat(path); err == nil && !*force {
		fmt.Fprintf(stderr, "Error: %s already exists (use -force to overwrite)\n", path)
		return exitFailed
	}
	if err := config.Save(config.DefaultConfig(), path); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailed
	}
	fmt.Fprintf(stdout, "Wrote default configuration to %s\n", path)
	return exitOK
}
