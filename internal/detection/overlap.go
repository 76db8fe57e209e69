package detection

import "math"

// diskIoU returns the intersection-over-union of two disks with radii r1, r2
// whose centers are d apart.
func diskIoU(r1, r2, d float64) float64 {
	if r1 <= 0 || r2 <= 0 {
		return 0
	}
	if d >= r1+r2 {
		return 0
	}

	a1 := math.Pi * r1 * r1
	a2 := math.Pi * r2 * r2

	// One disk inside the other: the union is the larger disk.
	if d <= math.Abs(r1-r2) {
		return math.Min(a1, a2) / math.Max(a1, a2)
	}

	cos1 := clampUnit((d*d + r1*r1 - r2*r2) / (2 * d * r1))
	cos2 := clampUnit((d*d + r2*r2 - r1*r1) / (2 * d * r2))

	lens := r1*r1*math.Acos(cos1) + r2*r2*math.Acos(cos2) -
		0.5*math.Sqrt(math.Abs((-d+r1+r2)*(d+r1-r2)*(d-r1+r2)*(d+r1+r2)))

	union := a1 + a2 - lens
	if union <= 0 {
		return 0
	}
	return lens / union
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// pruneOverlapping walks candidates strongest first and keeps each one only
// if its disk IoU with every already kept blob is <= threshold. Input must be
// sorted by descending response.
func pruneOverlapping(cands []candidate, threshold float64) []candidate {
	kept := make([]candidate, 0, len(cands))
	for _, c := range cands {
		rc := RadiusFromSigma(c.sigma)
		keep := true
		for _, k := range kept {
			rk := RadiusFromSigma(k.sigma)
			dy := float64(c.row - k.row)
			dx := float64(c.col - k.col)
			d := math.Hypot(dx, dy)
			if d >= rc+rk {
				continue
			}
			if diskIoU(rc, rk, d) > threshold {
				keep = false
				break
			}
		}
		if keep {
			kept = append(kept, c)
		}
	}
	return kept
}
