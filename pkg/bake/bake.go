// Package bake writes the live focus distance into an animation track.
//
// Baking sweeps the playback range, samples focus at every step-th frame
// and inserts a keyframe on the focus channel. Un-baking removes every
// channel under that path. The playback head is always restored.
package bake

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-realcam/pkg/debug"
	"github.com/teslashibe/go-realcam/pkg/focus"
	"github.com/teslashibe/go-realcam/pkg/track"
)

// Channel is the animation path of the baked focus distance.
const Channel = "focus.distance"

// Timeline is the host's playback range and head.
type Timeline interface {
	PlaybackRange() (start, end, current int)
	SetCurrentFrame(frame int)
}

// PoseSource returns the camera pose at the current frame.
type PoseSource interface {
	CameraPose() focus.Pose
}

// TrackStore receives baked keyframes.
type TrackStore interface {
	InsertKeyframe(path string, frame int, value float64) error
	RemoveKeyframes(path string) error
	Channels() []string
}

// SweepGuard is implemented by timelines whose playback head is also
// moved by live playback. BeginSweep and EndSweep bracket every sweep;
// between them SetCurrentFrame must only move the head the sweep reads.
type SweepGuard interface {
	BeginSweep()
	EndSweep()
}

// Flusher is implemented by stores that persist on demand.
type Flusher interface {
	Flush() error
}

// Focuser measures the focus distance for a pose.
type Focuser interface {
	Focus(pose focus.Pose) float64
}

// FocusFunc adapts a function to Focuser.
type FocusFunc func(pose focus.Pose) float64

// Focus calls f.
func (f FocusFunc) Focus(pose focus.Pose) float64 { return f(pose) }

// State is the baker state.
type State int

const (
	Idle State = iota
	Baking
)

func (s State) String() string {
	if s == Baking {
		return "baking"
	}
	return "idle"
}

// Run describes one bake sweep.
type Run struct {
	ID        string        `json:"id"`
	Start     int           `json:"start"`
	End       int           `json:"end"`
	Step      int           `json:"step"`
	Frames    int           `json:"frames"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// Baker owns the Idle/Baking state machine.
type Baker struct {
	timeline Timeline
	poses    PoseSource
	focuser  Focuser
	store    TrackStore
	logger   *slog.Logger

	mu sync.Mutex // serializes sweeps

	stateMu sync.RWMutex
	state   State
	step    int
	last    *Run
}

// Option configures a Baker.
type Option func(*Baker)

// WithStep sets the frame stride. Values below 1 are ignored.
func WithStep(n int) Option {
	return func(b *Baker) {
		if n >= 1 {
			b.step = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Baker) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a baker. It starts in Baking when the store already holds
// focus keys, so keys persisted by an earlier run can be un-baked.
func New(timeline Timeline, poses PoseSource, focuser Focuser, store TrackStore, opts ...Option) *Baker {
	b := &Baker{
		timeline: timeline,
		poses:    poses,
		focuser:  focuser,
		store:    store,
		logger:   slog.Default(),
		step:     1,
	}
	for _, opt := range opts {
		opt(b)
	}
	if len(track.WithPrefix(store.Channels(), Channel)) > 0 {
		b.state = Baking
	}
	return b
}

// State returns the current state.
func (b *Baker) State() State {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	return b.state
}

// Step returns the frame stride.
func (b *Baker) Step() int {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	return b.step
}

// SetStep sets the frame stride used by the next sweep.
func (b *Baker) SetStep(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: step %d", ErrInvalidStep, n)
	}
	b.stateMu.Lock()
	b.step = n
	b.stateMu.Unlock()
	return nil
}

// LastRun returns the most recent sweep, if any.
func (b *Baker) LastRun() (Run, bool) {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	if b.last == nil {
		return Run{}, false
	}
	return *b.last, true
}

// SetEnabled moves the baker to Baking (on) or Idle (off).
// Disabling always removes every focus channel, whatever the state.
// Enabling while already Baking is a no-op; use Rebake to refresh keys.
// A failed or canceled sweep leaves no focus keyframes and stays Idle.
func (b *Baker) SetEnabled(ctx context.Context, on bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !on {
		return b.unbake()
	}
	if b.State() == Baking {
		return nil
	}
	return b.bake(ctx)
}

// Rebake removes the focus keys and sweeps again.
func (b *Baker) Rebake(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.unbake(); err != nil {
		return err
	}
	return b.bake(ctx)
}

func (b *Baker) bake(ctx context.Context) error {
	start, end, current := b.timeline.PlaybackRange()
	step := b.Step()

	run := Run{
		ID:        uuid.New().String(),
		Start:     start,
		End:       end,
		Step:      step,
		StartedAt: time.Now(),
	}

	// keys from an earlier sweep at another step must not survive
	err := b.removeFocusChannels()
	if err == nil {
		err = b.sweep(ctx, &run, current)
	}
	run.Duration = time.Since(run.StartedAt)

	if err != nil {
		run.Error = err.Error()
		if rmErr := b.removeFocusChannels(); rmErr != nil {
			b.logger.Error("failed to remove partial focus keys", "run", run.ID, "error", rmErr)
		}
		b.record(run, Idle)
		b.logger.Warn("focus bake aborted", "run", run.ID, "frames", run.Frames, "error", err)
		return err
	}

	if err := b.flush(); err != nil {
		b.record(run, Idle)
		return fmt.Errorf("%w: %v", ErrBakeFailed, err)
	}

	b.record(run, Baking)
	b.logger.Info("focus baked", "run", run.ID, "start", start, "end", end, "step", step,
		"frames", run.Frames, "duration", run.Duration)
	return nil
}

// sweep writes one key per step and restores the playback head on return.
func (b *Baker) sweep(ctx context.Context, run *Run, current int) error {
	if run.End < run.Start {
		return fmt.Errorf("%w: empty playback range %d..%d", ErrBakeFailed, run.Start, run.End)
	}

	if g, ok := b.timeline.(SweepGuard); ok {
		g.BeginSweep()
		defer g.EndSweep()
	}
	defer b.timeline.SetCurrentFrame(current)

	n := (run.End - run.Start + 1) / run.Step
	for i := 0; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("bake canceled after %d frames: %w", run.Frames, err)
		}

		frame := run.Start + i*run.Step
		b.timeline.SetCurrentFrame(frame)
		d := b.focuser.Focus(b.poses.CameraPose())

		if err := b.store.InsertKeyframe(Channel, frame, d); err != nil {
			return fmt.Errorf("%w: frame %d: %v", ErrBakeFailed, frame, err)
		}
		run.Frames++
		debug.FocusLog("🎞️  bake frame %d → %.3fm\n", frame, d)
	}
	return nil
}

func (b *Baker) unbake() error {
	if err := b.removeFocusChannels(); err != nil {
		return err
	}
	if err := b.flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrBakeFailed, err)
	}
	b.stateMu.Lock()
	b.state = Idle
	b.stateMu.Unlock()
	b.logger.Info("focus keys removed")
	return nil
}

func (b *Baker) removeFocusChannels() error {
	for _, path := range track.WithPrefix(b.store.Channels(), Channel) {
		if err := b.store.RemoveKeyframes(path); err != nil {
			return fmt.Errorf("%w: remove %s: %v", ErrBakeFailed, path, err)
		}
	}
	return nil
}

func (b *Baker) flush() error {
	if f, ok := b.store.(Flusher); ok {
		return f.Flush()
	}
	return nil
}

func (b *Baker) record(run Run, state State) {
	b.stateMu.Lock()
	b.last = &run
	b.state = state
	b.stateMu.Unlock()
}
