package overlay

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Options controls how detected cells are drawn.
type Options struct {
	// CircleColor is the outline color as "#rrggbb".
	CircleColor string `json:"circle_color" yaml:"circleColor"`

	// LineWidth is the outline thickness in pixels. Must be >= 1.
	LineWidth int `json:"line_width" yaml:"lineWidth"`

	// SideBySide places the untouched image to the left of the annotated one.
	SideBySide bool `json:"side_by_side" yaml:"sideBySide"`

	// Labels numbers each circle in detection order, starting at 1.
	Labels bool `json:"labels" yaml:"labels"`

	// TissueTint shades the tissue area with TissueColor at this opacity.
	// 0 disables shading. Range [0,1].
	TissueTint float64 `json:"tissue_tint" yaml:"tissueTint"`

	// TissueColor is the shading color as "#rrggbb".
	TissueColor string `json:"tissue_color" yaml:"tissueColor"`
}

// DefaultOptions returns red 2-pixel circles in a side-by-side panel.
func DefaultOptions() Options {
	return Options{
		CircleColor: "#ff0000",
		LineWidth:   2,
		SideBySide:  true,
		TissueColor: "#00ff00",
	}
}

// Validate checks colors, line width and tint range.
func (o Options) Validate() error {
	if _, err := parseColor(o.CircleColor); err != nil {
		return fmt.Errorf("invalid circle color: %w", err)
	}
	if o.LineWidth < 1 {
		return fmt.Errorf("line width must be >= 1, got %d", o.LineWidth)
	}
	if o.TissueTint < 0 || o.TissueTint > 1 {
		return fmt.Errorf("tissue tint must be in [0,1], got %g", o.TissueTint)
	}
	if o.TissueTint > 0 {
		if _, err := parseColor(o.TissueColor); err != nil {
			return fmt.Errorf("invalid tissue color: %w", err)
		}
	}
	return nil
}

// parseColor parses a "#rrggbb" or "#rgb" string into an opaque color.
func parseColor(hex string) (color.NRGBA, error) {
	if hex == "" {
		return color.NRGBA{}, fmt.Errorf("empty color string")
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, err
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
