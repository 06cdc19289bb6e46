// Package sim is a simulated renderer: a viewport whose pixels follow a
// scene radiance scaled by the current exposure, a playback timeline with
// an animated camera, and reference focus geometry.
//
// The viewport outputs radiance × 2^exposure, the relation the exposure
// controller assumes when it recovers scene luminance from a frame.
package sim

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"cogentcore.org/core/math32"

	"github.com/teslashibe/go-realcam/pkg/engine"
	"github.com/teslashibe/go-realcam/pkg/focus"
	"github.com/teslashibe/go-realcam/pkg/framebuf"
	"github.com/teslashibe/go-realcam/pkg/metering"
)

// Default viewport size and playback range.
const (
	DefaultWidth  = 64
	DefaultHeight = 36
	DefaultStart  = 1
	DefaultEnd    = 96
)

// Host is a simulated renderer. It implements engine.Host,
// engine.FrameSource and bake.Timeline.
type Host struct {
	logger *slog.Logger
	scene  *focus.GeometryScene

	mu       sync.Mutex
	width    int
	height   int
	radiance Radiance
	path     Path
	mode     engine.RenderMode
	exposure float64
	focus    float64
	start    int
	end      int
	current  int
	playing  bool
	sweeping bool
	resume   bool
	writes   int

	focalLength float64
	aperture    float64
	motionBlur  float64

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(engine.Frame)
}

// Option configures a Host.
type Option func(*Host)

// WithSize sets the viewport size.
func WithSize(w, h int) Option {
	return func(s *Host) {
		if w > 0 && h > 0 {
			s.width, s.height = w, h
		}
	}
}

// WithRadiance sets the scene luminance.
func WithRadiance(r Radiance) Option {
	return func(s *Host) {
		if r != nil {
			s.radiance = r
		}
	}
}

// WithPath sets the camera animation.
func WithPath(p Path) Option {
	return func(s *Host) {
		if p != nil {
			s.path = p
		}
	}
}

// WithRange sets the playback range; the head starts at start.
func WithRange(start, end int) Option {
	return func(s *Host) {
		s.start, s.end, s.current = start, end, start
	}
}

// WithScene replaces the reference geometry.
func WithScene(g *focus.GeometryScene) Option {
	return func(s *Host) {
		if g != nil {
			s.scene = g
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Host) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a playing host: middle-gray scene, camera dollying from
// the origin toward the back wall, 96 frames.
func New(opts ...Option) *Host {
	h := &Host{
		logger:   slog.Default(),
		scene:    Set(),
		width:    DefaultWidth,
		height:   DefaultHeight,
		radiance: Uniform(0.18),
		path:     Dolly(math32.Vec3(0, 0, 0), math32.Vec3(0, 0, -2), DefaultStart, DefaultEnd),
		start:    DefaultStart,
		end:      DefaultEnd,
		current:  DefaultStart,
		playing:  true,
		subs:     make(map[int]func(engine.Frame)),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "sim")
	return h
}

// Scene returns the reference geometry.
func (h *Host) Scene() *focus.GeometryScene {
	return h.scene
}

// RenderMode implements engine.RenderModer.
func (h *Host) RenderMode() engine.RenderMode {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mode
}

// SetRenderMode switches the viewport shading.
func (h *Host) SetRenderMode(m engine.RenderMode) {
	h.mu.Lock()
	h.mode = m
	h.mu.Unlock()
}

// Exposure implements exposure.State.
func (h *Host) Exposure() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exposure
}

// SetExposure implements exposure.State.
func (h *Host) SetExposure(v float64) {
	h.mu.Lock()
	h.exposure = v
	h.writes++
	h.mu.Unlock()
}

// ExposureWrites counts SetExposure calls.
func (h *Host) ExposureWrites() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.writes
}

// SetFocusDistance records the camera focus distance.
func (h *Host) SetFocusDistance(d float64) {
	h.mu.Lock()
	h.focus = d
	h.mu.Unlock()
}

// FocusDistance returns the last focus distance written.
func (h *Host) FocusDistance() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.focus
}

// SetFocalLength implements engine.Lens.
func (h *Host) SetFocalLength(mm float64) {
	h.mu.Lock()
	h.focalLength = mm
	h.mu.Unlock()
}

// SetAperture implements engine.Lens.
func (h *Host) SetAperture(fstop float64) {
	h.mu.Lock()
	h.aperture = fstop
	h.mu.Unlock()
}

// SetMotionBlurShutter implements engine.Lens.
func (h *Host) SetMotionBlurShutter(frames float64) {
	h.mu.Lock()
	h.motionBlur = frames
	h.mu.Unlock()
}

// Lens returns the last focal length, aperture and motion-blur shutter
// written.
func (h *Host) Lens() (focalLength, aperture, motionBlur float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.focalLength, h.aperture, h.motionBlur
}

// SetRadiance swaps the scene luminance.
func (h *Host) SetRadiance(r Radiance) {
	if r == nil {
		return
	}
	h.mu.Lock()
	h.radiance = r
	h.mu.Unlock()
}

// Viewport renders the current frame. Black in non-rendered modes is not
// simulated; the engine skips those frames.
func (h *Host) Viewport() metering.Framebuffer {
	h.mu.Lock()
	w, ht := h.width, h.height
	rad := h.radiance
	frame := h.current
	gain := math.Exp2(h.exposure)
	h.mu.Unlock()

	fb := framebuf.NewFloat(w, ht)
	for y := 0; y < ht; y++ {
		for x := 0; x < w; x++ {
			v := rad(x, y, w, ht, frame) * gain
			fb.Set(x, y, v, v, v)
		}
	}
	return fb
}

// CameraPose returns the animated camera at the current frame.
func (h *Host) CameraPose() focus.Pose {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.path(h.current)
}

// PlaybackRange implements bake.Timeline.
func (h *Host) PlaybackRange() (start, end, current int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.start, h.end, h.current
}

// SetCurrentFrame moves the playback head and pauses playback, as
// scrubbing does. During a bake sweep the playing flag is left to
// EndSweep. It does not draw.
func (h *Host) SetCurrentFrame(frame int) {
	h.mu.Lock()
	h.current = frame
	if !h.sweeping {
		h.playing = false
	}
	h.mu.Unlock()
}

// BeginSweep implements bake.SweepGuard: playback holds until EndSweep.
func (h *Host) BeginSweep() {
	h.mu.Lock()
	h.sweeping = true
	h.resume = h.playing
	h.playing = false
	h.mu.Unlock()
}

// EndSweep resumes playback if it was running when the sweep began.
func (h *Host) EndSweep() {
	h.mu.Lock()
	h.sweeping = false
	h.playing = h.resume
	h.mu.Unlock()
}

// Play resumes playback.
func (h *Host) Play() {
	h.mu.Lock()
	h.playing = true
	h.mu.Unlock()
}

// Pause stops playback; Step then redraws the current frame.
func (h *Host) Pause() {
	h.mu.Lock()
	h.playing = false
	h.mu.Unlock()
}

// Playing reports whether Step advances the head.
func (h *Host) Playing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

// Subscribe implements engine.FrameSource.
func (h *Host) Subscribe(fn func(engine.Frame)) func() {
	h.subMu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.subMu.Unlock()

	return func() {
		h.subMu.Lock()
		delete(h.subs, id)
		h.subMu.Unlock()
	}
}

// Step draws one frame: it advances the head when playing, looping over
// the range, and notifies subscribers.
func (h *Host) Step() engine.Frame {
	h.mu.Lock()
	if h.playing {
		h.current++
		if h.current > h.end || h.current < h.start {
			h.current = h.start
		}
	}
	f := engine.Frame{Number: h.current, Time: time.Now()}
	h.mu.Unlock()

	h.subMu.Lock()
	fns := make([]func(engine.Frame), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.subMu.Unlock()

	for _, fn := range fns {
		fn(f)
	}
	return f
}

// Run draws fps frames per second until ctx is done.
func (h *Host) Run(ctx context.Context, fps float64) {
	if fps <= 0 {
		fps = 24
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / fps))
	defer ticker.Stop()

	h.logger.Info("sim running", "fps", fps)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Step()
		}
	}
}
