// Package engine runs auto-exposure and autofocus against a host renderer.
//
// An Engine owns the look set, the metering sampler, the exposure
// controller, the focus sampler and the keyframe baker. The host calls
// OnFrame once per displayed frame, either directly or through the single
// FrameSource subscription the engine holds while enabled.
//
// OnFrame, Bake and settings updates are serialized by one mutex. Frame
// sources must not deliver frames synchronously from inside
// Timeline.SetCurrentFrame, since a bake holds that mutex while it moves
// the playback head.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/teslashibe/go-realcam/pkg/bake"
	"github.com/teslashibe/go-realcam/pkg/camera"
	"github.com/teslashibe/go-realcam/pkg/exposure"
	"github.com/teslashibe/go-realcam/pkg/focus"
	"github.com/teslashibe/go-realcam/pkg/metering"
	"github.com/teslashibe/go-realcam/pkg/tonecurve"
)

// Config holds the collaborators of an Engine.
type Config struct {
	Host     Host
	Looks    *tonecurve.Set
	Scene    focus.Scene
	Timeline bake.Timeline
	Store    bake.TrackStore
	Settings camera.Settings
	Tuning   exposure.Tuning
	Logger   *slog.Logger
}

// Engine is one exposure and focus automation instance.
type Engine struct {
	host     Host
	looks    *tonecurve.Set
	timeline bake.Timeline
	store    bake.TrackStore
	logger   *slog.Logger

	meter      *metering.Sampler
	controller *exposure.Controller
	focus      *focus.Sampler
	baker      *bake.Baker

	mu       sync.Mutex
	settings camera.Settings
	curve    tonecurve.Curve
	subID    string
	unsub    func()
	status   Status

	// OnStatus is called after every frame and state change, outside the
	// engine lock.
	OnStatus func(Status)
}

// New creates a disabled engine. Settings are validated.
func New(cfg Config) (*Engine, error) {
	if cfg.Host == nil {
		return nil, ErrNoHost
	}
	if cfg.Looks == nil {
		return nil, ErrNoLooks
	}
	if errs := cfg.Settings.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", camera.ErrInvalidSettings, strings.Join(errs, "; "))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tuning := exposure.DefaultTuning().Merge(cfg.Tuning)

	e := &Engine{
		host:       cfg.Host,
		looks:      cfg.Looks,
		timeline:   cfg.Timeline,
		store:      cfg.Store,
		logger:     logger.With("component", "engine"),
		meter:      metering.NewSampler(cfg.Settings.MeteringOptions(), logger),
		controller: exposure.NewController(tuning),
		focus:      focus.NewSampler(cfg.Scene, cfg.Settings.FocusPoint, logger),
		settings:   cfg.Settings,
	}
	e.curve = e.looks.Look(cfg.Settings.Look)

	if cfg.Timeline != nil && cfg.Store != nil {
		e.baker = bake.New(cfg.Timeline, cfg.Host, e.focus, cfg.Store,
			bake.WithStep(cfg.Settings.BakeStep), bake.WithLogger(logger))
	}

	e.status = e.snapshot()
	return e, nil
}

// Enable subscribes to src and applies the current settings immediately.
// The engine holds at most one subscription; enabling while enabled
// returns the existing subscription id.
func (e *Engine) Enable(src FrameSource) string {
	e.mu.Lock()
	if e.unsub != nil {
		id := e.subID
		e.mu.Unlock()
		return id
	}

	id := uuid.New().String()
	e.subID = id
	e.applyLocked()
	e.status = e.snapshot()
	st := e.status
	e.mu.Unlock()

	// subscribe outside the lock; a source may deliver a frame right away
	unsub := src.Subscribe(func(f Frame) {
		e.OnFrame(f)
	})

	e.mu.Lock()
	if e.subID != id {
		// disabled while subscribing
		e.mu.Unlock()
		unsub()
		return ""
	}
	e.unsub = unsub
	e.mu.Unlock()

	e.logger.Info("engine enabled", "subscription", id)
	e.notify(st)
	return id
}

// Disable drops the frame subscription. It is a no-op when disabled.
func (e *Engine) Disable() {
	e.mu.Lock()
	unsub := e.unsub
	id := e.subID
	e.unsub = nil
	e.subID = ""
	e.status = e.snapshot()
	st := e.status
	e.mu.Unlock()

	if id == "" {
		return
	}
	if unsub != nil {
		unsub()
	}
	e.logger.Info("engine disabled", "subscription", id)
	e.notify(st)
}

// Enabled reports whether the engine holds a subscription.
func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.subID != ""
}

// OnFrame runs one metering, exposure and live focus pass.
func (e *Engine) OnFrame(f Frame) Status {
	e.mu.Lock()
	st := e.frameLocked(f)
	e.mu.Unlock()

	e.notify(st)
	return st
}

func (e *Engine) frameLocked(f Frame) Status {
	s := e.settings
	st := e.snapshot()
	st.Frame = f.Number

	mode := e.host.RenderMode()
	st.RenderMode = mode.String()

	switch {
	case mode != Rendered:
		st.Skipped = true
	case s.AutoExposure:
		reading, err := e.meter.Meter(e.host.Viewport())
		if err != nil {
			// empty viewport; leave exposure alone
			st.Skipped = true
			st.MeteringError = err.Error()
			break
		}
		res := e.controller.Update(reading.Luminance, e.host, s.ExposureParams(e.curve))
		st.Control = &res
		st.Meter = &MeterStatus{
			Mode:       reading.Mode.String(),
			Luminance:  reading.Luminance,
			Samples:    len(reading.Samples),
			Candidates: reading.Candidates,
			Fallback:   reading.Fallback,
		}
	case s.PhysicalExposure:
		e.host.SetExposure(exposure.PhysicalExposure(s.EV()))
	}

	if s.Autofocus && !e.baked() {
		fs := e.measureFocus()
		e.host.SetFocusDistance(fs.Distance)
		st.Focus = &fs
	}

	st.Exposure = e.host.Exposure()
	e.status = st
	return st
}

func (e *Engine) measureFocus() FocusStatus {
	pose := e.host.CameraPose()
	d, hit := e.focus.Distance(pose)
	if !hit {
		d = e.focus.Fallback()
	}
	return FocusStatus{Distance: d, Hit: hit}
}

// Bake writes (on) or removes (off) the focus keyframes.
func (e *Engine) Bake(ctx context.Context, on bool) error {
	e.mu.Lock()
	if e.baker == nil {
		e.mu.Unlock()
		return ErrNoTrack
	}
	err := e.baker.SetEnabled(ctx, on)
	e.status = e.snapshot()
	st := e.status
	e.mu.Unlock()

	e.notify(st)
	return err
}

// Rebake removes and re-writes the focus keyframes.
func (e *Engine) Rebake(ctx context.Context) error {
	e.mu.Lock()
	if e.baker == nil {
		e.mu.Unlock()
		return ErrNoTrack
	}
	err := e.baker.Rebake(ctx)
	e.status = e.snapshot()
	st := e.status
	e.mu.Unlock()

	e.notify(st)
	return err
}

// LastBake returns the most recent bake sweep.
func (e *Engine) LastBake() (bake.Run, bool) {
	if e.baker == nil {
		return bake.Run{}, false
	}
	return e.baker.LastRun()
}

// ApplySettings validates and installs new settings. It has the
// signature of camera.Manager.OnConfigChange.
//
// Turning autofocus off also removes baked focus keys. While enabled the
// lens, physical exposure and manual focus are applied immediately.
func (e *Engine) ApplySettings(s camera.Settings) error {
	if errs := s.Validate(); len(errs) > 0 {
		return fmt.Errorf("%w: %s", camera.ErrInvalidSettings, strings.Join(errs, "; "))
	}

	e.mu.Lock()
	prev := e.settings
	e.settings = s
	e.curve = e.looks.Look(s.Look)
	e.meter.SetOptions(s.MeteringOptions())
	e.focus.SetFallback(s.FocusPoint)

	var err error
	if e.baker != nil {
		if setErr := e.baker.SetStep(s.BakeStep); setErr != nil {
			err = setErr
		}
		if prev.Autofocus && !s.Autofocus {
			if bakeErr := e.baker.SetEnabled(context.Background(), false); bakeErr != nil {
				err = errors.Join(err, bakeErr)
			}
		}
	}
	if e.subID != "" {
		e.applyLocked()
	}
	e.status = e.snapshot()
	st := e.status
	e.mu.Unlock()

	e.logger.Debug("settings applied", "mode", s.MeteringMode, "look", e.curve.Name,
		"autofocus", s.Autofocus, "auto_exposure", s.AutoExposure)
	e.notify(st)
	return err
}

// applyLocked pushes settings that do not depend on a frame to the host.
func (e *Engine) applyLocked() {
	s := e.settings
	e.host.SetFocalLength(s.FocalLength)
	e.host.SetAperture(s.Aperture)
	e.host.SetMotionBlurShutter(s.MotionBlurShutter())
	if !s.AutoExposure && s.PhysicalExposure {
		e.host.SetExposure(exposure.PhysicalExposure(s.EV()))
	}
	if !s.Autofocus {
		e.host.SetFocusDistance(s.FocusPoint)
	}
}

// Settings returns the active settings.
func (e *Engine) Settings() camera.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// Tuning returns the controller tuning.
func (e *Engine) Tuning() exposure.Tuning {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.controller.Tuning()
}

// SetTuning merges the non-zero fields of t into the controller tuning.
func (e *Engine) SetTuning(t exposure.Tuning) exposure.Tuning {
	e.mu.Lock()
	defer e.mu.Unlock()
	merged := e.controller.Tuning().Merge(t)
	e.controller.SetTuning(merged)
	e.logger.Info("tuning updated", "damping", merged.Damping, "dead_zone", merged.DeadZone)
	return e.controller.Tuning()
}

// Looks returns the look set.
func (e *Engine) Looks() *tonecurve.Set {
	return e.looks
}

// Status returns the state after the last frame or change.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// snapshot builds a frame-independent status. Caller holds e.mu.
func (e *Engine) snapshot() Status {
	s := e.settings
	st := Status{
		Enabled:      e.subID != "",
		Subscription: e.subID,
		Frame:        e.status.Frame,
		RenderMode:   e.status.RenderMode,
		Look:         e.curve.Name,
		Exposure:     e.host.Exposure(),
		EV:           s.EV(),
		MotionBlur:   s.MotionBlurShutter(),
		Bake:         bake.Idle.String(),
	}
	if e.baker != nil {
		st.Bake = e.baker.State().String()
		if run, ok := e.baker.LastRun(); ok {
			st.LastBake = &run
		}
	}
	if !s.Autofocus {
		st.Focus = &FocusStatus{Distance: s.FocusPoint, Manual: true}
	}
	return st
}

func (e *Engine) baked() bool {
	return e.baker != nil && e.baker.State() == bake.Baking
}

func (e *Engine) notify(st Status) {
	if e.OnStatus != nil {
		e.OnStatus(st)
	}
}
