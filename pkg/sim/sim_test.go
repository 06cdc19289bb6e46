package sim

import (
	"context"
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-realcam/pkg/bake"
	"github.com/teslashibe/go-realcam/pkg/camera"
	"github.com/teslashibe/go-realcam/pkg/engine"
	"github.com/teslashibe/go-realcam/pkg/focus"
	"github.com/teslashibe/go-realcam/pkg/tonecurve"
	"github.com/teslashibe/go-realcam/pkg/track"
)

func newEngine(t *testing.T, h *Host, s camera.Settings, store bake.TrackStore) *engine.Engine {
	t.Helper()
	looks, err := tonecurve.LoadBuiltIn(nil)
	require.NoError(t, err)

	cfg := engine.Config{
		Host:     h,
		Looks:    looks,
		Scene:    h.Scene(),
		Settings: s,
	}
	if store != nil {
		cfg.Timeline = h
		cfg.Store = store
	}
	e, err := engine.New(cfg)
	require.NoError(t, err)
	return e
}

func TestViewportFollowsExposure(t *testing.T) {
	h := New(WithSize(4, 2), WithRadiance(Uniform(0.5)))

	w, ht := h.Viewport().Size()
	assert.Equal(t, 4, w)
	assert.Equal(t, 2, ht)

	h.SetExposure(1)
	r, g, b := h.Viewport().ReadPixel(3, 1)
	assert.InDelta(t, 1.0, r, 1e-6)
	assert.InDelta(t, 1.0, g, 1e-6)
	assert.InDelta(t, 1.0, b, 1e-6)

	h.SetRadiance(Window(0.1, 2))
	h.SetExposure(0)
	fb := h.Viewport()
	sky, _, _ := fb.ReadPixel(0, 0)
	room, _, _ := fb.ReadPixel(3, 1)
	assert.InDelta(t, 2.0, sky, 1e-6)
	assert.InDelta(t, 0.1, room, 1e-6)
}

func TestStepLoopsAndPauses(t *testing.T) {
	h := New(WithRange(1, 3))

	var got []int
	unsub := h.Subscribe(func(f engine.Frame) { got = append(got, f.Number) })
	for i := 0; i < 4; i++ {
		h.Step()
	}
	assert.Equal(t, []int{2, 3, 1, 2}, got)

	h.SetCurrentFrame(3)
	assert.False(t, h.Playing(), "scrubbing pauses playback")
	assert.Equal(t, 3, h.Step().Number)

	h.Play()
	assert.Equal(t, 1, h.Step().Number)

	unsub()
	h.Step()
	assert.Len(t, got, 6)
}

func TestDollyPath(t *testing.T) {
	p := Dolly(math32.Vec3(0, 0, 0), math32.Vec3(0, 0, -2), 1, 5)

	assert.InDelta(t, 0, p(1).Position.Z, 1e-6)
	assert.InDelta(t, -1, p(3).Position.Z, 1e-6)
	assert.InDelta(t, -2, p(5).Position.Z, 1e-6)
	assert.InDelta(t, -2, p(9).Position.Z, 1e-6, "clamped past the end")
	assert.InDelta(t, 0, p(-4).Position.Z, 1e-6, "clamped before the start")
}

func TestSetFocusTargets(t *testing.T) {
	g := Set()
	h := New(WithScene(g), WithPath(Static(focus.Pose{Rotation: math32.Quat{W: 1}})))

	pose := h.CameraPose()
	hit, ok := g.Intersect(pose.Position, pose.Forward())
	require.True(t, ok)
	assert.Equal(t, "ball", hit.Object)
	assert.InDelta(t, 3.5, hit.Distance, 1e-4)
}

func TestEngineConvergesAndHolds(t *testing.T) {
	// four times middle gray settles at -1: the viewport carries 2^E and
	// the controller undoes it once more
	h := New(WithSize(32, 18), WithRadiance(Uniform(0.72)))
	e := newEngine(t, h, camera.DefaultSettings(), nil)

	e.Enable(h)
	defer e.Disable()

	for i := 0; i < 80; i++ {
		h.Step()
	}
	assert.InDelta(t, -1, h.Exposure(), 0.02)

	st := e.Status()
	require.NotNil(t, st.Control)
	assert.True(t, st.Control.Held, "converged exposure should sit in the dead zone")

	writes := h.ExposureWrites()
	for i := 0; i < 10; i++ {
		h.Step()
	}
	assert.Equal(t, writes, h.ExposureWrites(), "holding must not write exposure")
}

func TestEngineSkipsOtherRenderModes(t *testing.T) {
	h := New(WithRadiance(Uniform(0.72)))
	e := newEngine(t, h, camera.DefaultSettings(), nil)
	e.Enable(h)
	defer e.Disable()

	h.SetRenderMode(engine.Other)
	for i := 0; i < 5; i++ {
		h.Step()
	}
	assert.Equal(t, 0, h.ExposureWrites())
	assert.True(t, e.Status().Skipped)
}

func TestBakeFromSim(t *testing.T) {
	h := New(
		WithRange(1, 5),
		WithPath(Dolly(math32.Vec3(0, 0, 0), math32.Vec3(0, 0, -2), 1, 5)),
	)
	store := track.NewMemoryStore()
	s := camera.DefaultSettings()
	s.Autofocus = true
	e := newEngine(t, h, s, store)

	require.NoError(t, e.Bake(context.Background(), true))

	keys := store.Keyframes(bake.Channel)
	require.Len(t, keys, 6)
	want := map[int]float64{1: 3.5, 3: 2.5, 5: 1.5, 6: 1.5}
	for _, k := range keys {
		if v, ok := want[k.Frame]; ok {
			assert.InDelta(t, v, k.Value, 1e-4, "frame %d", k.Frame)
		}
	}

	_, _, cur := h.PlaybackRange()
	assert.Equal(t, 1, cur, "playback head restored")
	assert.True(t, h.Playing(), "playback resumes after the bake")

	require.NoError(t, e.Bake(context.Background(), false))
	assert.Empty(t, store.Channels())
}

func TestBakeKeepsPausedHostPaused(t *testing.T) {
	h := New(WithRange(1, 5))
	h.Pause()
	s := camera.DefaultSettings()
	s.Autofocus = true
	e := newEngine(t, h, s, track.NewMemoryStore())

	require.NoError(t, e.Bake(context.Background(), true))
	assert.False(t, h.Playing())

	// scrubbing outside a bake still pauses
	h.Play()
	h.SetCurrentFrame(3)
	assert.False(t, h.Playing())
}

func TestEnablePushesLens(t *testing.T) {
	h := New()
	s := camera.DefaultSettings()
	s.FocalLength = 50
	s.Aperture = 4
	s.FPS, s.ShutterSpeed = 24, 48
	e := newEngine(t, h, s, track.NewMemoryStore())

	e.Enable(h)
	defer e.Disable()

	focal, aperture, blur := h.Lens()
	assert.Equal(t, 50.0, focal)
	assert.Equal(t, 4.0, aperture)
	assert.Equal(t, 0.5, blur)
}
