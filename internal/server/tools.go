package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// pathProperty is the schema of the image path argument shared by most tools.
var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file",
}

var ppmProperty = map[string]interface{}{
	"type":        "number",
	"description": "Scanner calibration in pixels per micron. Defaults to the server configuration.",
}

// paramsProperty describes partial overrides of the blob search parameters.
var paramsProperty = map[string]interface{}{
	"type":        "object",
	"description": "Optional blob search overrides; unset fields keep the server defaults.",
	"properties": map[string]interface{}{
		"min_scale": map[string]interface{}{
			"type":        "number",
			"description": "Smallest Gaussian sigma searched, in pixels (> 0)",
		},
		"max_scale": map[string]interface{}{
			"type":        "number",
			"description": "Largest Gaussian sigma searched (> min_scale)",
		},
		"num_scales": map[string]interface{}{
			"type":        "integer",
			"description": "Number of sigmas sampled (>= 1)",
		},
		"response_threshold": map[string]interface{}{
			"type":        "number",
			"description": "Minimum scale-normalized LoG response, 0-1",
		},
		"overlap_threshold": map[string]interface{}{
			"type":        "number",
			"description": "Disk overlap (IoU) above which the weaker blob is dropped, 0-1",
		},
		"log_scale_search": map[string]interface{}{
			"type":        "boolean",
			"description": "Sample sigmas logarithmically instead of linearly",
		},
		"exclude_border": map[string]interface{}{
			"type":        "boolean",
			"description": "Drop blobs whose disk crosses the image edge",
		},
	},
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format and color depth. The image is cached for subsequent calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},

		// Cell Counting
		{
			Name:        "cells_default_params",
			Description: "Return the default blob search parameters, calibration and measurement constants the server uses.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "cells_detect_blobs",
			Description: "Detect bright circular blobs (cell candidates) with a multi-scale Laplacian of Gaussian. Returns every blob before the minimum radius filter, strongest first.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty,
					"params": paramsProperty,
					"max_blobs": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of blobs returned. Default 500; the total count is always reported.",
						"default":     500,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "cells_measure",
			Description: "Count cells in one image and measure tissue area, cell density and percent tissue coverage.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":              pathProperty,
					"pixels_per_micron": ppmProperty,
					"params":            paramsProperty,
					"include_blobs": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the counted cells in the result. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "cells_count_directory",
			Description: "Count cells in every matching image of a directory in parallel. Returns per-image rows, failures and batch statistics.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"dir": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the directory of images",
					},
					"pattern": map[string]interface{}{
						"type":        "string",
						"description": "Glob matched against file names. Default *.tif (also matches *.tiff)",
						"default":     "*.tif",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Process at most this many images (sorted by name). 0 means all",
						"default":     0,
					},
					"pixels_per_micron": ppmProperty,
					"params":            paramsProperty,
					"workers": map[string]interface{}{
						"type":        "integer",
						"description": "Images processed at once. 0 uses the physical core count",
						"default":     0,
					},
					"overlay_dir": map[string]interface{}{
						"type":        "string",
						"description": "Optional directory for <name>_overlay.png QA figures",
					},
				},
				"required": []string{"dir"},
			},
		},
		{
			Name:        "cells_overlay",
			Description: "Draw the counted cells as circles on the image and return it as base64-encoded PNG, or save it to output_path. Use region and scale to zoom into part of the figure.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":              pathProperty,
					"pixels_per_micron": ppmProperty,
					"params":            paramsProperty,
					"labels": map[string]interface{}{
						"type":        "boolean",
						"description": "Number each circle. Default false",
						"default":     false,
					},
					"side_by_side": map[string]interface{}{
						"type":        "boolean",
						"description": "Show the untouched image next to the annotated one. Default false",
						"default":     false,
					},
					"tissue_tint": map[string]interface{}{
						"type":        "number",
						"description": "Opacity (0-1) of the tissue shading. Default 0",
						"default":     0,
					},
					"region": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"full", "top-left", "top-right", "bottom-left", "bottom-right", "top-half", "bottom-half", "left-half", "right-half", "center"},
						"description": "Named region of the figure to return. Default full",
						"default":     "full",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor for the returned region. Default 1.0",
						"default":     1.0,
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Save the full figure here instead of returning it",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
