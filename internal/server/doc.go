// Package server implements the MCP (Model Context Protocol) server for cell counting tools.
//
// This package provides a JSON-RPC 2.0 server that exposes blob detection,
// cell measurement and batch counting through the MCP protocol, so an MCP
// client can inspect slides, tune detection parameters and count folders of
// scans interactively.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Logs go to the logger passed to New, which must not write to stdout.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - image_load: Load image and get metadata
//   - cells_default_params: Detection defaults and measurement constants
//   - cells_detect_blobs: Raw multi-scale LoG blobs for one image
//   - cells_measure: Cell count, tissue area and density for one image
//   - cells_count_directory: Parallel batch over a directory
//   - cells_overlay: QA figure with detected cells circled
//
// Tools that run detection accept "params" with any subset of the blob
// search parameters and "pixels_per_micron"; unset values fall back to the
// options the server was created with.
//
// # Image Caching
//
// Single-image tools share an in-memory cache keyed by path, so tuning
// parameters on one slide decodes it once. Batch runs read files directly
// and do not fill the cache.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(pipeline.DefaultOptions(), log)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal().Err(err).Msg("server failed")
//	}
package server
