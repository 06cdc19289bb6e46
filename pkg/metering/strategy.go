package metering

import "math"

// Strategy produces candidate sample positions for one metering pattern
// and reduces the kept samples to a luminance.
type Strategy interface {
	// Positions returns the pixel positions to read, each with its weight.
	Positions(width, height int) []Sample

	// Filtered reports whether the luminance threshold applies.
	Filtered() bool

	// Aggregate reduces samples to one luminance. samples is non-empty.
	// It returns the samples that contributed.
	Aggregate(samples []Sample) (float64, []Sample)
}

// spot reads a single pixel at the frame center.
type spot struct{}

func (spot) Positions(width, height int) []Sample {
	return []Sample{{X: width / 2, Y: height / 2, Weight: 1}}
}

// Filtered is false: the center sample is kept even above threshold so
// spot metering always has an answer.
func (spot) Filtered() bool { return false }

func (spot) Aggregate(samples []Sample) (float64, []Sample) {
	return samples[0].Luminance, samples[:1]
}

// grid reads a G×G grid strictly inside the frame.
type grid struct {
	size int
}

func (g grid) Positions(width, height int) []Sample {
	n := g.size
	out := make([]Sample, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			x := int(float64(j+1) / float64(n+1) * float64(width))
			y := int(float64(i+1) / float64(n+1) * float64(height))
			out = append(out, Sample{X: x, Y: y, Weight: 1})
		}
	}
	return out
}

func (grid) Filtered() bool { return true }

func (grid) Aggregate(samples []Sample) (float64, []Sample) {
	kept := trim(samples)
	sum := 0.0
	for _, s := range kept {
		sum += s.Luminance
	}
	return sum / float64(len(kept)), kept
}

// rings walks C concentric squares around the center.
type rings struct {
	count int
}

func (r rings) Positions(width, height int) []Sample {
	c := r.count
	step := float64(max(width, height)) / float64(2*c+2)
	if step < 1 {
		step = 1
	}
	cx := float64(width) / 2
	cy := float64(height) / 2

	var out []Sample
	for i := 0; i < c; i++ {
		weight := float64(c-1-i) / float64(c)
		half := float64(i+1) * step
		perEdge := 2 * (i + 1)
		for k := 0; k < perEdge; k++ {
			t := -half + float64(k)*step
			// top, right, bottom, left; each edge stops short of the next corner
			out = append(out,
				ringSample(cx+t, cy-half, width, height, weight),
				ringSample(cx+half, cy+t, width, height, weight),
				ringSample(cx-t, cy+half, width, height, weight),
				ringSample(cx-half, cy-t, width, height, weight),
			)
		}
	}
	return out
}

func ringSample(x, y float64, width, height int, weight float64) Sample {
	return Sample{
		X:      clampInt(int(math.Floor(x)), 0, width-1),
		Y:      clampInt(int(math.Floor(y)), 0, height-1),
		Weight: weight,
	}
}

func (rings) Filtered() bool { return true }

func (rings) Aggregate(samples []Sample) (float64, []Sample) {
	kept := trim(samples)
	var sum, weights float64
	for _, s := range kept {
		sum += s.Luminance * s.Weight
		weights += s.Weight
	}
	if weights == 0 {
		// only zero-weight outer ring samples survived
		plain := 0.0
		for _, s := range kept {
			plain += s.Luminance
		}
		return plain / float64(len(kept)), kept
	}
	return sum / weights, kept
}

// strategyFor returns the strategy for the configured mode.
func strategyFor(opts Options) Strategy {
	switch opts.Mode {
	case FullWindow:
		return grid{size: clampInt(opts.GridSize, MinGrid, MaxGrid)}
	case CenterWeighted:
		return rings{count: clampInt(opts.RingCount, MinGrid, MaxGrid)}
	default:
		return spot{}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
