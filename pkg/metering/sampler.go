package metering

import (
	"log/slog"
	"math"
	"sort"

	"github.com/teslashibe/go-realcam/pkg/debug"
)

// Sampler meters a framebuffer with a configured pattern.
type Sampler struct {
	opts   Options
	logger *slog.Logger
}

// NewSampler creates a sampler. A nil logger uses slog.Default().
func NewSampler(opts Options, logger *slog.Logger) *Sampler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sampler{opts: opts, logger: logger}
}

// Options returns the current options.
func (s *Sampler) Options() Options {
	return s.opts
}

// SetOptions replaces the options; it takes effect on the next Meter call.
func (s *Sampler) SetOptions(opts Options) {
	s.opts = opts
}

// Meter reads the framebuffer and returns the aggregate luminance.
// It returns ErrNoData only when the viewport is empty. When the threshold
// discards every sample, the unfiltered samples of the same pattern are
// aggregated and Reading.Fallback is set.
func (s *Sampler) Meter(fb Framebuffer) (Reading, error) {
	if fb == nil {
		return Reading{}, ErrNoData
	}
	width, height := fb.Size()
	if width <= 0 || height <= 0 {
		return Reading{}, ErrNoData
	}

	strategy := strategyFor(s.opts)
	positions := strategy.Positions(width, height)
	for i := range positions {
		r, g, b := fb.ReadPixel(positions[i].X, positions[i].Y)
		positions[i].Luminance = sanitize(Luminance(r, g, b))
	}

	reading := Reading{Mode: s.opts.Mode, Candidates: len(positions)}

	candidates := positions
	if strategy.Filtered() {
		candidates = filter(positions, s.opts.Threshold)
		if len(candidates) == 0 {
			candidates = positions
			reading.Fallback = true
			s.logger.Debug("all metering samples above threshold, using unfiltered set",
				"mode", s.opts.Mode, "threshold", s.opts.Threshold, "samples", len(positions))
		}
	}

	sorted := make([]Sample, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Luminance < sorted[j].Luminance })

	reading.Luminance, reading.Samples = strategy.Aggregate(sorted)

	debug.MeterLog("📷 meter %s: %d/%d samples → %.4f (fallback=%v)\n",
		s.opts.Mode, len(reading.Samples), reading.Candidates, reading.Luminance, reading.Fallback)

	return reading, nil
}

// filter drops samples brighter than threshold.
func filter(samples []Sample, threshold float64) []Sample {
	kept := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if s.Luminance > threshold {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

// trim removes TrimCount samples from each end of a sorted slice when more
// than TrimMinSamples remain.
func trim(sorted []Sample) []Sample {
	if len(sorted) > TrimMinSamples {
		return sorted[TrimCount : len(sorted)-TrimCount]
	}
	return sorted
}

// TrimmedMean sorts values and returns the mean after outlier trimming,
// as FullWindow metering does. An empty slice yields 0.
func TrimmedMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	samples := make([]Sample, len(values))
	for i, v := range values {
		samples[i] = Sample{Luminance: v, Weight: 1}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].Luminance < samples[j].Luminance })
	l, _ := grid{}.Aggregate(samples)
	return l
}

func sanitize(l float64) float64 {
	if math.IsNaN(l) || l < 0 {
		return 0
	}
	return l
}
