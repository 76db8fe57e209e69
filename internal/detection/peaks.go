package detection

import "sort"

// responseFloor keeps round-off residue of flat regions (≈1e-16) from
// qualifying as peaks when ResponseThreshold is 0.
const responseFloor = 1e-9

// candidate is a local maximum of the (row, col, scale) response volume.
type candidate struct {
	row, col int
	scale    int
	sigma    float64
	response float64
}

// localMaxima returns every voxel of cube that is >= all in-bounds voxels of
// its 3×3×3 neighborhood and strictly above threshold. cube[s] is the w×h
// response plane for sigmas[s].
//
// Results are ordered by descending response; ties fall back to row, col,
// then scale so the order is deterministic.
func localMaxima(cube [][]float64, sigmas []float64, w, h int, threshold float64) []candidate {
	if threshold < responseFloor {
		threshold = responseFloor
	}

	var out []candidate
	n := len(cube)
	for s := 0; s < n; s++ {
		plane := cube[s]
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v := plane[y*w+x]
				if v <= threshold {
					continue
				}
				if isNeighborhoodMax(cube, w, h, s, y, x, v) {
					out = append(out, candidate{
						row:      y,
						col:      x,
						scale:    s,
						sigma:    sigmas[s],
						response: v,
					})
				}
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.response != b.response {
			return a.response > b.response
		}
		if a.row != b.row {
			return a.row < b.row
		}
		if a.col != b.col {
			return a.col < b.col
		}
		return a.scale < b.scale
	})
	return out
}

func isNeighborhoodMax(cube [][]float64, w, h, s, y, x int, v float64) bool {
	for ds := -1; ds <= 1; ds++ {
		ns := s + ds
		if ns < 0 || ns >= len(cube) {
			continue
		}
		plane := cube[ns]
		for dy := -1; dy <= 1; dy++ {
			ny := y + dy
			if ny < 0 || ny >= h {
				continue
			}
			for dx := -1; dx <= 1; dx++ {
				nx := x + dx
				if nx < 0 || nx >= w {
					continue
				}
				if plane[ny*w+nx] > v {
					return false
				}
			}
		}
	}
	return true
}

// crossesBorder reports whether a disk of radius r centred at (row, col)
// extends past a w×h image.
func crossesBorder(row, col int, r float64, w, h int) bool {
	fr, fc := float64(row), float64(col)
	return fr-r < 0 || fc-r < 0 || fr+r > float64(h-1) || fc+r > float64(w-1)
}
