package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ironsheep/cellcount/internal/detection"
	"github.com/ironsheep/cellcount/internal/imaging"
	"github.com/ironsheep/cellcount/internal/measurement"
	"github.com/ironsheep/cellcount/internal/overlay"
	"github.com/ironsheep/cellcount/internal/pipeline"
	"github.com/ironsheep/cellcount/internal/report"
)

// defaultMaxBlobs caps the blob list returned by cells_detect_blobs.
const defaultMaxBlobs = 500

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "cells_measure").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.Warn().Str("tool", params.Name).Err(err).Msg("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	s.log.Debug().Str("tool", params.Name).Dur("elapsed", time.Since(start)).Msg("tool finished")

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies the server defaults for optional parameters
//  3. Loads images from cache as needed
//  4. Runs detection, measurement or rendering
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)

	// Cell Counting
	case "cells_default_params":
		return s.handleDefaultParams()
	case "cells_detect_blobs":
		return s.handleDetectBlobs(ctx, args)
	case "cells_measure":
		return s.handleMeasure(ctx, args)
	case "cells_count_directory":
		return s.handleCountDirectory(ctx, args)
	case "cells_overlay":
		return s.handleOverlay(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments, treating missing arguments as {}.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// measureArgs are the arguments shared by every tool that runs detection.
type measureArgs struct {
	Path            string          `json:"path"`
	PixelsPerMicron *float64        `json:"pixels_per_micron"`
	Params          json.RawMessage `json:"params"`
}

// options applies tool arguments on top of the server defaults. Params
// fields that are not set keep their default values.
func (s *Server) options(a measureArgs) (pipeline.Options, error) {
	opts := s.defaults
	if a.PixelsPerMicron != nil {
		opts.Calibration.PixelsPerMicron = *a.PixelsPerMicron
	}
	if len(a.Params) > 0 && string(a.Params) != "null" {
		if err := json.Unmarshal(a.Params, &opts.Params); err != nil {
			return opts, fmt.Errorf("invalid params: %w", err)
		}
	}
	return opts, nil
}

// measure loads the image at a.Path through the cache and measures it.
func (s *Server) measure(ctx context.Context, a measureArgs) (*pipeline.Result, error) {
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	opts, err := s.options(a)
	if err != nil {
		return nil, err
	}
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return pipeline.ProcessImage(ctx, a.Path, img, opts)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// === Cell Counting Handlers ===

// DefaultParamsResult describes the settings applied when a tool call
// leaves them unset.
type DefaultParamsResult struct {
	Params                   detection.ScaleSearchParams `json:"params"`
	PixelsPerMicron          float64                     `json:"pixels_per_micron"`
	MinCellRadius            float64                     `json:"min_cell_radius"`
	TissueIntensityThreshold int                         `json:"tissue_intensity_threshold"`
	SampleIDLength           int                         `json:"sample_id_length"`
	Overlay                  overlay.Options             `json:"overlay"`
}

func (s *Server) handleDefaultParams() (interface{}, error) {
	return &DefaultParamsResult{
		Params:                   s.defaults.Params,
		PixelsPerMicron:          s.defaults.Calibration.PixelsPerMicron,
		MinCellRadius:            measurement.MinCellRadius,
		TissueIntensityThreshold: measurement.TissueIntensityThreshold,
		SampleIDLength:           measurement.SampleIDLength,
		Overlay:                  s.defaults.Overlay,
	}, nil
}

type detectBlobsArgs struct {
	measureArgs
	MaxBlobs int `json:"max_blobs"`
}

// DetectBlobsResult is the raw detector output for one image.
type DetectBlobsResult struct {
	Path   string                      `json:"path"`
	Width  int                         `json:"width"`
	Height int                         `json:"height"`
	Params detection.ScaleSearchParams `json:"params"`

	// TotalBlobs counts every detected blob; Blobs may be truncated.
	TotalBlobs int `json:"total_blobs"`

	// CellCandidates counts blobs larger than the minimum cell radius.
	CellCandidates int              `json:"cell_candidates"`
	Blobs          []detection.Blob `json:"blobs"`
	Truncated      bool             `json:"truncated"`
}

func (s *Server) handleDetectBlobs(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectBlobsArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	if a.MaxBlobs <= 0 {
		a.MaxBlobs = defaultMaxBlobs
	}
	opts, err := s.options(a.measureArgs)
	if err != nil {
		return nil, err
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	gray := imaging.ToGray8(img)

	blobs, err := detection.DetectContext(ctx, gray, opts.Params)
	if err != nil {
		return nil, err
	}

	result := &DetectBlobsResult{
		Path:           a.Path,
		Width:          gray.Bounds().Dx(),
		Height:         gray.Bounds().Dy(),
		Params:         opts.Params,
		TotalBlobs:     blobs.Len(),
		CellCandidates: blobs.FilterMinRadius(measurement.MinCellRadius).Len(),
		Blobs:          blobs,
	}
	if result.Blobs == nil {
		result.Blobs = []detection.Blob{}
	}
	if len(result.Blobs) > a.MaxBlobs {
		result.Blobs = result.Blobs[:a.MaxBlobs]
		result.Truncated = true
	}
	return result, nil
}

type cellsMeasureArgs struct {
	measureArgs
	IncludeBlobs bool `json:"include_blobs"`
}

// MeasureResult is the measurement of one image.
type MeasureResult struct {
	*pipeline.Result
	Cells []detection.Blob `json:"cells,omitempty"`
}

func (s *Server) handleMeasure(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a cellsMeasureArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	res, err := s.measure(ctx, a.measureArgs)
	if err != nil {
		return nil, err
	}

	out := &MeasureResult{Result: res}
	if a.IncludeBlobs {
		out.Cells = res.Measurement.Blobs()
	}
	return out, nil
}

type countDirectoryArgs struct {
	Dir             string          `json:"dir"`
	Pattern         string          `json:"pattern"`
	Limit           int             `json:"limit"`
	PixelsPerMicron *float64        `json:"pixels_per_micron"`
	Params          json.RawMessage `json:"params"`
	Workers         int             `json:"workers"`
	OverlayDir      string          `json:"overlay_dir"`
}

func (s *Server) handleCountDirectory(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a countDirectoryArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Dir == "" {
		return nil, errors.New("dir is required")
	}

	opts, err := s.options(measureArgs{PixelsPerMicron: a.PixelsPerMicron, Params: a.Params})
	if err != nil {
		return nil, err
	}
	if a.Workers != 0 {
		opts.Workers = a.Workers
	}
	if a.OverlayDir != "" {
		opts.OverlayDir = a.OverlayDir
	}

	src, err := imaging.NewSource(a.Dir, a.Pattern, a.Limit)
	if err != nil {
		return nil, err
	}

	rep, err := pipeline.NewRunner(opts, s.base).Run(ctx, src.Paths())
	if err != nil {
		return nil, err
	}
	snap := report.NewSnapshot(rep)
	return &snap, nil
}

type overlayArgs struct {
	measureArgs
	Labels     bool    `json:"labels"`
	SideBySide bool    `json:"side_by_side"`
	TissueTint float64 `json:"tissue_tint"`
	Region     string  `json:"region"`
	Scale      float64 `json:"scale"`
	OutputPath string  `json:"output_path"`
}

// OverlayResult is a rendered QA figure, either inline or saved to disk.
type OverlayResult struct {
	ID        string `json:"id"`
	CellCount int    `json:"cell_count"`
	Region    string `json:"region,omitempty"`

	// OutputPath is set when the figure was written to disk.
	OutputPath string `json:"output_path,omitempty"`

	*imaging.EncodedImage
}

func (s *Server) handleOverlay(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a overlayArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Region == "" {
		a.Region = "full"
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}

	res, err := s.measure(ctx, a.measureArgs)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	ov := s.defaults.Overlay
	ov.Labels = a.Labels
	ov.SideBySide = a.SideBySide
	ov.TissueTint = a.TissueTint

	fig, err := overlay.Render(img, res.Measurement.Blobs(), ov)
	if err != nil {
		return nil, err
	}

	out := &OverlayResult{ID: res.ID, CellCount: res.Metrics.CellCount}

	if a.OutputPath != "" {
		if err := overlay.Save(fig, a.OutputPath); err != nil {
			return nil, err
		}
		out.OutputPath = a.OutputPath
		return out, nil
	}

	rect, err := imaging.NamedRegion(fig.Bounds(), a.Region)
	if err != nil {
		return nil, err
	}
	cropped, err := imaging.Crop(fig, rect, a.Scale)
	if err != nil {
		return nil, err
	}
	out.Region = a.Region
	out.EncodedImage, err = overlay.EncodePNGBase64(cropped)
	if err != nil {
		return nil, err
	}
	return out, nil
}
