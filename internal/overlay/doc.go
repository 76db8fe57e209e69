// Package overlay renders detected cells over their source image for human
// quality checks.
//
// Rendering is never part of measurement: the pipeline only calls into this
// package when an overlay directory is configured, and the MCP server only
// when a client asks for a picture. Detection and measurement results are
// identical with or without overlays.
//
// The default figure mirrors the usual lab review layout: the untouched
// image on the left and the same image with a red circle per cell on the
// right. Circles can be numbered in detection order, and tissue can be
// shaded to show the area that density is computed against.
package overlay
