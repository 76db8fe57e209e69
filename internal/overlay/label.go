package overlay

import (
	"image"
	"image/color"
)

// digitGlyphs is a 3x5 pixel font for cell numbers.
var digitGlyphs = map[rune][]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
}

const (
	glyphAdvance = 4
	labelHeight  = 7
)

// drawLabel draws text on a filled background box with its top-left corner
// at (x, y). Characters without a glyph leave a blank cell. Pixels outside
// the image are skipped.
func drawLabel(img *image.NRGBA, x, y int, text string, fg, bg color.NRGBA) {
	bounds := img.Bounds()
	inside := func(px, py int) bool {
		return px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y
	}

	labelWidth := len(text) * glyphAdvance
	for dy := -1; dy < labelHeight-1; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			if px, py := x+dx, y+dy; inside(px, py) {
				img.SetNRGBA(px, py, bg)
			}
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := digitGlyphs[ch]
		if !ok {
			cx += glyphAdvance
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel != '1' {
					continue
				}
				if px, py := cx+col, y+row; inside(px, py) {
					img.SetNRGBA(px, py, fg)
				}
			}
		}
		cx += glyphAdvance
	}
}
