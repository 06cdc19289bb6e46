package engine

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"cogentcore.org/core/math32"

	"github.com/teslashibe/go-realcam/pkg/bake"
	"github.com/teslashibe/go-realcam/pkg/camera"
	"github.com/teslashibe/go-realcam/pkg/exposure"
	"github.com/teslashibe/go-realcam/pkg/focus"
	"github.com/teslashibe/go-realcam/pkg/metering"
	"github.com/teslashibe/go-realcam/pkg/tonecurve"
	"github.com/teslashibe/go-realcam/pkg/track"
)

// spotBuffer is black except for one gray pixel.
type spotBuffer struct {
	w, h  int
	x, y  int
	value float64
}

func (b spotBuffer) Size() (int, int) { return b.w, b.h }

func (b spotBuffer) ReadPixel(x, y int) (float64, float64, float64) {
	if x == b.x && y == b.y {
		return b.value, b.value, b.value
	}
	return 0, 0, 0
}

type fakeHost struct {
	mode      RenderMode
	exposure  float64
	writes    int
	fb        metering.Framebuffer
	pose      focus.Pose
	focusDist float64
	frame     int

	focalLength float64
	aperture    float64
	motionBlur  float64
}

func (h *fakeHost) RenderMode() RenderMode { return h.mode }
func (h *fakeHost) Exposure() float64      { return h.exposure }
func (h *fakeHost) SetExposure(v float64) {
	h.exposure = v
	h.writes++
}
func (h *fakeHost) Viewport() metering.Framebuffer { return h.fb }
func (h *fakeHost) CameraPose() focus.Pose {
	// dolly along -z as the playback head moves
	p := h.pose
	p.Position.Z += float32(h.frame)
	return p
}
func (h *fakeHost) SetFocusDistance(d float64)      { h.focusDist = d }
func (h *fakeHost) SetFocalLength(mm float64)       { h.focalLength = mm }
func (h *fakeHost) SetAperture(fstop float64)       { h.aperture = fstop }
func (h *fakeHost) SetMotionBlurShutter(fr float64) { h.motionBlur = fr }

func (h *fakeHost) PlaybackRange() (int, int, int) { return 1, 10, h.frame }
func (h *fakeHost) SetCurrentFrame(f int)          { h.frame = f }

type fakeSource struct {
	mu         sync.Mutex
	fn         func(Frame)
	subscribed int
}

func (s *fakeSource) Subscribe(fn func(Frame)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = fn
	s.subscribed++
	return func() {
		s.mu.Lock()
		s.fn = nil
		s.mu.Unlock()
	}
}

func (s *fakeSource) emit(f Frame) bool {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(f)
	return true
}

func newTestEngine(t *testing.T, host *fakeHost, s camera.Settings) *Engine {
	t.Helper()
	looks, err := tonecurve.LoadBuiltIn(nil)
	if err != nil {
		t.Fatalf("LoadBuiltIn failed: %v", err)
	}
	scene := focus.NewGeometryScene()
	scene.AddBox("wall", math32.Vec3(-10, -10, -20), math32.Vec3(10, 10, -4))

	e, err := New(Config{
		Host:     host,
		Looks:    looks,
		Scene:    scene,
		Timeline: host,
		Store:    track.NewMemoryStore(),
		Settings: s,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return e
}

func TestOnFrame_CenterSpotScenario(t *testing.T) {
	host := &fakeHost{fb: spotBuffer{w: 100, h: 100, x: 50, y: 50, value: 0.5}}
	s := camera.SpotSettings()
	s.Compensation = 0
	e := newTestEngine(t, host, s)

	st := e.OnFrame(Frame{Number: 1})

	if st.Meter == nil || math.Abs(st.Meter.Luminance-0.5) > 1e-12 {
		t.Fatalf("Expected metered luminance 0.5, got %+v", st.Meter)
	}
	future := -math.Log2(0.5 / 0.18)
	if st.Control.Held {
		t.Fatalf("Expected a correction for a bright spot")
	}
	if math.Abs(host.exposure-future) >= math.Abs(0-future) {
		t.Errorf("Expected exposure to move toward %v, got %v", future, host.exposure)
	}
	if math.Abs(math.Abs(host.exposure-future)-0.8*math.Abs(future)) > 1e-12 {
		t.Errorf("Expected one-fifth step, got exposure %v", host.exposure)
	}
	if st.Exposure != host.exposure {
		t.Errorf("Status exposure %v differs from host %v", st.Exposure, host.exposure)
	}
}

func TestOnFrame_GatedByRenderMode(t *testing.T) {
	host := &fakeHost{mode: Other, fb: spotBuffer{w: 10, h: 10, x: 5, y: 5, value: 0.9}}
	e := newTestEngine(t, host, camera.SpotSettings())

	st := e.OnFrame(Frame{Number: 3})
	if !st.Skipped || st.RenderMode != "other" {
		t.Errorf("Expected skipped frame in other mode, got %+v", st)
	}
	if host.writes != 0 {
		t.Errorf("Expected no exposure writes, got %d", host.writes)
	}
}

func TestOnFrame_EmptyViewport(t *testing.T) {
	host := &fakeHost{fb: spotBuffer{}}
	e := newTestEngine(t, host, camera.DefaultSettings())

	st := e.OnFrame(Frame{Number: 1})
	if !st.Skipped || st.MeteringError == "" {
		t.Errorf("Expected skipped frame with metering error, got %+v", st)
	}
	if host.writes != 0 {
		t.Errorf("Expected exposure untouched, got %d writes", host.writes)
	}
}

func TestEnable_SingleSubscription(t *testing.T) {
	host := &fakeHost{fb: spotBuffer{w: 10, h: 10, x: 5, y: 5, value: 0.18}}
	e := newTestEngine(t, host, camera.SpotSettings())
	src := &fakeSource{}

	id := e.Enable(src)
	if id == "" {
		t.Fatal("Expected a subscription id")
	}
	if again := e.Enable(src); again != id {
		t.Errorf("Expected existing id %s, got %s", id, again)
	}
	if src.subscribed != 1 {
		t.Errorf("Expected 1 subscription, got %d", src.subscribed)
	}

	var seen []int
	e.OnStatus = func(st Status) { seen = append(seen, st.Frame) }

	if !src.emit(Frame{Number: 7}) {
		t.Fatal("Expected frame delivered")
	}
	if e.Status().Frame != 7 || len(seen) != 1 || seen[0] != 7 {
		t.Errorf("Expected frame 7 processed, status=%+v seen=%v", e.Status(), seen)
	}

	e.Disable()
	if e.Enabled() {
		t.Error("Expected disabled")
	}
	if src.emit(Frame{Number: 8}) {
		t.Error("Expected no delivery after Disable")
	}
	e.Disable()
}

func TestEnable_AppliesSettingsImmediately(t *testing.T) {
	host := &fakeHost{}
	s := camera.DefaultSettings()
	s.AutoExposure = false
	s.PhysicalExposure = true
	s.Aperture, s.ShutterSpeed, s.ISO = 5.6, 500, 100
	s.Autofocus = false
	s.FocusPoint = 3.5
	e := newTestEngine(t, host, s)

	e.Enable(&fakeSource{})

	if want := exposure.PhysicalExposure(13.94); math.Abs(host.exposure-want) > 1e-12 {
		t.Errorf("Expected physical exposure %v, got %v", want, host.exposure)
	}
	if host.focusDist != 3.5 {
		t.Errorf("Expected manual focus 3.5, got %v", host.focusDist)
	}
}

func TestEnable_PushesLens(t *testing.T) {
	host := &fakeHost{}
	s := camera.DefaultSettings()
	s.FocalLength = 85
	s.Aperture = 2.8
	s.FPS, s.ShutterSpeed = 24, 48
	e := newTestEngine(t, host, s)

	if host.focalLength != 0 {
		t.Fatalf("Lens must not be written before Enable, got %v", host.focalLength)
	}
	e.Enable(&fakeSource{})

	if host.focalLength != 85 {
		t.Errorf("Expected focal length 85, got %v", host.focalLength)
	}
	if host.aperture != 2.8 {
		t.Errorf("Expected aperture 2.8, got %v", host.aperture)
	}
	if host.motionBlur != 0.5 {
		t.Errorf("Expected motion blur shutter 0.5, got %v", host.motionBlur)
	}

	s.FocalLength = 24
	s.ShutterSpeed = 96
	if err := e.ApplySettings(s); err != nil {
		t.Fatalf("ApplySettings failed: %v", err)
	}
	if host.focalLength != 24 {
		t.Errorf("Expected focal length 24 after update, got %v", host.focalLength)
	}
	if host.motionBlur != 0.25 {
		t.Errorf("Expected motion blur shutter 0.25 after update, got %v", host.motionBlur)
	}

	e.Disable()
	s.FocalLength = 50
	if err := e.ApplySettings(s); err != nil {
		t.Fatalf("ApplySettings failed: %v", err)
	}
	if host.focalLength != 24 {
		t.Errorf("Lens must not be written while disabled, got %v", host.focalLength)
	}
}

func TestOnFrame_LiveAutofocus(t *testing.T) {
	host := &fakeHost{fb: spotBuffer{w: 10, h: 10, x: 5, y: 5, value: 0.18}}
	s := camera.PortraitSettings()
	s.FocusPoint = 2
	e := newTestEngine(t, host, s)

	st := e.OnFrame(Frame{Number: 1})
	if st.Focus == nil || !st.Focus.Hit {
		t.Fatalf("Expected a focus hit, got %+v", st.Focus)
	}
	if math.Abs(host.focusDist-4) > 1e-5 {
		t.Errorf("Expected focus distance 4, got %v", host.focusDist)
	}

	// look straight up: nothing there
	host.pose = focus.NewPose(math32.Vector3{}, math32.Vec3(1, 0, 0), math32.Pi/2)
	st = e.OnFrame(Frame{Number: 2})
	if st.Focus.Hit || host.focusDist != 2 {
		t.Errorf("Expected fallback distance 2 on miss, got %v (%+v)", host.focusDist, st.Focus)
	}
}

func TestApplySettings_AutofocusOffUnbakes(t *testing.T) {
	host := &fakeHost{}
	s := camera.PortraitSettings()
	e := newTestEngine(t, host, s)
	store := e.store.(*track.MemoryStore)
	store.InsertKeyframe("location.z", 1, 0)

	if err := e.Bake(context.Background(), true); err != nil {
		t.Fatalf("Bake failed: %v", err)
	}
	keys := store.Keyframes(bake.Channel)
	if len(keys) != 11 {
		t.Fatalf("Expected 11 focus keys, got %d", len(keys))
	}
	// the camera dollies back one unit per frame
	if math.Abs(keys[0].Value-5) > 1e-5 || math.Abs(keys[9].Value-14) > 1e-5 {
		t.Errorf("Unexpected baked values %v", keys)
	}
	if e.Status().Bake != "baking" {
		t.Errorf("Expected bake state baking, got %s", e.Status().Bake)
	}

	s.Autofocus = false
	if err := e.ApplySettings(s); err != nil {
		t.Fatalf("ApplySettings failed: %v", err)
	}
	if store.Keyframes(bake.Channel) != nil {
		t.Error("Expected focus keys removed when autofocus is turned off")
	}
	if len(store.Keyframes("location.z")) != 1 {
		t.Error("Other channels must be untouched")
	}
	if e.Status().Bake != "idle" {
		t.Errorf("Expected idle, got %s", e.Status().Bake)
	}
}

func TestApplySettings_AutofocusOffRemovesPersistedKeys(t *testing.T) {
	host := &fakeHost{fb: spotBuffer{w: 10, h: 10, x: 5, y: 5, value: 0.18}}
	store := track.NewMemoryStore()
	store.InsertKeyframe(bake.Channel, 1, 7)
	store.InsertKeyframe(bake.Channel, 5, 7)

	looks, err := tonecurve.LoadBuiltIn(nil)
	if err != nil {
		t.Fatalf("LoadBuiltIn failed: %v", err)
	}
	s := camera.PortraitSettings()
	e, err := New(Config{Host: host, Looks: looks, Scene: focus.NewGeometryScene(),
		Timeline: host, Store: store, Settings: s})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if e.Status().Bake != "baking" {
		t.Fatalf("Expected existing focus keys to count as baked, got %s", e.Status().Bake)
	}
	host.focusDist = -1
	if st := e.OnFrame(Frame{Number: 1}); st.Focus != nil {
		t.Errorf("Live autofocus must not run over a baked track, got %+v", st.Focus)
	}
	if host.focusDist != -1 {
		t.Errorf("Focus distance written while baked: %v", host.focusDist)
	}

	s.Autofocus = false
	if err := e.ApplySettings(s); err != nil {
		t.Fatalf("ApplySettings failed: %v", err)
	}
	if keys := store.Keyframes(bake.Channel); keys != nil {
		t.Errorf("Expected persisted focus keys removed, got %v", keys)
	}
}

func TestApplySettings_RejectsInvalid(t *testing.T) {
	e := newTestEngine(t, &fakeHost{}, camera.DefaultSettings())
	bad := camera.DefaultSettings()
	bad.GridSize = 1

	if err := e.ApplySettings(bad); !errors.Is(err, camera.ErrInvalidSettings) {
		t.Errorf("Expected ErrInvalidSettings, got %v", err)
	}
	if e.Settings().GridSize != camera.DefaultSettings().GridSize {
		t.Error("Rejected settings must not be installed")
	}
}

func TestManagerDrivesEngine(t *testing.T) {
	e := newTestEngine(t, &fakeHost{}, camera.DefaultSettings())
	m, err := camera.NewManagerWith(e.Settings())
	if err != nil {
		t.Fatal(err)
	}
	m.OnConfigChange = e.ApplySettings

	if err := m.UpdateConfig(map[string]interface{}{"look": "Filmic High Contrast", "grid_size": 9.0}); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	if e.Status().Look != "Filmic High Contrast" {
		t.Errorf("Expected look applied, got %s", e.Status().Look)
	}
	if e.meter.Options().GridSize != 9 {
		t.Errorf("Expected grid 9, got %d", e.meter.Options().GridSize)
	}
}

func TestSetTuning_MergesNonZero(t *testing.T) {
	e := newTestEngine(t, &fakeHost{}, camera.DefaultSettings())
	got := e.SetTuning(exposure.Tuning{Damping: 8})
	if got.Damping != 8 || got.DeadZone != exposure.DefaultDeadZone {
		t.Errorf("Unexpected tuning %+v", got)
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(Config{Settings: camera.DefaultSettings()}); !errors.Is(err, ErrNoHost) {
		t.Errorf("Expected ErrNoHost, got %v", err)
	}
	if _, err := New(Config{Host: &fakeHost{}, Settings: camera.DefaultSettings()}); !errors.Is(err, ErrNoLooks) {
		t.Errorf("Expected ErrNoLooks, got %v", err)
	}
}
