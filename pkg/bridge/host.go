// Package bridge connects a remote renderer to the engine over WebSocket.
//
// The renderer streams drawn frames, its playback range, the camera path
// and the focus geometry. Host mirrors that state locally so the engine
// and the baker can read it without a round trip, and forwards exposure
// and focus writes back over the connection.
package bridge

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/teslashibe/go-realcam/pkg/engine"
	"github.com/teslashibe/go-realcam/pkg/focus"
	"github.com/teslashibe/go-realcam/pkg/framebuf"
	"github.com/teslashibe/go-realcam/pkg/metering"
	"github.com/teslashibe/go-realcam/pkg/protocol"
)

// Conn is an attached renderer connection
type Conn struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex
}

// Send writes a message to the renderer
func (c *Conn) Send(msg *protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Conn) touch() {
	c.mu.Lock()
	c.LastSeen = time.Now()
	c.mu.Unlock()
}

// Host is the engine-side mirror of a remote renderer.
// It implements engine.Host, engine.FrameSource, bake.Timeline and
// bake.SweepGuard. A bake sweep moves its own head; frames arriving
// meanwhile keep updating the live one.
type Host struct {
	logger *slog.Logger
	scene  *focus.GeometryScene

	mu         sync.RWMutex
	conn       *Conn
	renderMode engine.RenderMode
	viewport   metering.Framebuffer
	exposure   float64
	pose       focus.Pose
	poseFrame  int
	hasPose    bool
	start      int
	end        int
	current    int
	path       map[int]focus.Pose
	sweeping   bool
	head       int

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(engine.Frame)

	messagesSent atomic.Uint64
}

// NewHost creates a detached host with an empty scene.
func NewHost(logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		logger: logger.With("component", "bridge"),
		scene:  focus.NewGeometryScene(),
		path:   make(map[int]focus.Pose),
		subs:   make(map[int]func(engine.Frame)),
	}
}

// Scene returns the focus geometry sent by the renderer.
func (h *Host) Scene() *focus.GeometryScene {
	return h.scene
}

// Connected reports whether a renderer is attached.
func (h *Host) Connected() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conn != nil
}

// RenderMode implements engine.RenderModer.
func (h *Host) RenderMode() engine.RenderMode {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.renderMode
}

// Viewport returns the last decoded frame, or nil before the first one.
func (h *Host) Viewport() metering.Framebuffer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.viewport
}

// Exposure returns the last exposure written or reported by the renderer.
func (h *Host) Exposure() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.exposure
}

// SetExposure records v and sends it to the renderer.
func (h *Host) SetExposure(v float64) {
	h.mu.Lock()
	h.exposure = v
	frame := h.current
	h.mu.Unlock()

	msg, err := protocol.NewExposureMessage(frame, v)
	if err != nil {
		return
	}
	h.send(msg)
}

// SetFocusDistance sends d to the renderer.
func (h *Host) SetFocusDistance(d float64) {
	h.mu.RLock()
	frame := h.current
	h.mu.RUnlock()

	msg, err := protocol.NewFocusMessage(frame, d, true)
	if err != nil {
		return
	}
	h.send(msg)
}

// SetFocalLength implements engine.Lens.
func (h *Host) SetFocalLength(mm float64) {
	h.sendLens(protocol.LensData{FocalLength: &mm})
}

// SetAperture implements engine.Lens.
func (h *Host) SetAperture(fstop float64) {
	h.sendLens(protocol.LensData{Aperture: &fstop})
}

// SetMotionBlurShutter implements engine.Lens.
func (h *Host) SetMotionBlurShutter(frames float64) {
	h.sendLens(protocol.LensData{MotionBlurShutter: &frames})
}

func (h *Host) sendLens(lens protocol.LensData) {
	msg, err := protocol.NewLensMessage(lens)
	if err != nil {
		return
	}
	h.send(msg)
}

// CameraPose returns the pose carried by the frame under the head, else
// the camera path entry for that frame, else the last known pose. The
// head is the sweep head during a bake and the live frame otherwise.
func (h *Host) CameraPose() focus.Pose {
	h.mu.RLock()
	defer h.mu.RUnlock()

	frame := h.current
	if h.sweeping {
		frame = h.head
	}
	if h.hasPose && h.poseFrame == frame {
		return h.pose
	}
	if p, ok := h.path[frame]; ok {
		return p
	}
	return h.pose
}

// PlaybackRange implements bake.Timeline.
func (h *Host) PlaybackRange() (start, end, current int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.start, h.end, h.current
}

// SetCurrentFrame moves the local playback head, or the sweep head while
// a bake runs. Poses for baking come from the camera path, so the
// renderer is not asked to redraw.
func (h *Host) SetCurrentFrame(frame int) {
	h.mu.Lock()
	if h.sweeping {
		h.head = frame
	} else {
		h.current = frame
	}
	h.mu.Unlock()
}

// BeginSweep starts a separate sweep head at the live frame.
func (h *Host) BeginSweep() {
	h.mu.Lock()
	h.sweeping = true
	h.head = h.current
	h.mu.Unlock()
}

// EndSweep drops the sweep head; the live frame is left as the renderer
// last reported it.
func (h *Host) EndSweep() {
	h.mu.Lock()
	h.sweeping = false
	h.mu.Unlock()
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

// attach binds a connection; only one renderer may be attached.
func (h *Host) attach(c *Conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn != nil {
		return ErrHostConnected
	}
	h.conn = c
	return nil
}

func (h *Host) detach(c *Conn) {
	h.mu.Lock()
	if h.conn == c {
		h.conn = nil
	}
	h.mu.Unlock()
}

func (h *Host) send(msg *protocol.Message) {
	h.mu.RLock()
	conn := h.conn
	h.mu.RUnlock()
	if conn == nil {
		return
	}
	if err := conn.Send(msg); err != nil {
		h.logger.Debug("send failed", "type", msg.Type, "error", err)
		return
	}
	h.messagesSent.Add(1)
}

// applyFrame decodes a frame and installs it as the viewport.
func (h *Host) applyFrame(f *protocol.FrameData) error {
	fb, err := decodeFrame(f)
	if err != nil {
		return err
	}

	mode := engine.Other
	if f.RenderMode == "" || f.RenderMode == engine.Rendered.String() {
		mode = engine.Rendered
	}

	h.mu.Lock()
	old := h.viewport
	h.viewport = fb
	h.renderMode = mode
	h.current = f.Number
	if f.Pose != nil {
		h.pose = f.Pose.ToPose()
		h.poseFrame = f.Number
		h.hasPose = true
	}
	if f.Exposure != nil {
		h.exposure = *f.Exposure
	}
	h.mu.Unlock()

	if c, ok := old.(io.Closer); ok && old != fb {
		c.Close()
	}
	return nil
}

// applyTimeline installs the playback range and camera path.
func (h *Host) applyTimeline(t *protocol.TimelineData) {
	path := make(map[int]focus.Pose, len(t.Path))
	for _, fp := range t.Path {
		path[fp.Frame] = fp.Pose.ToPose()
	}

	h.mu.Lock()
	h.start, h.end, h.current = t.Start, t.End, t.Current
	if len(path) > 0 {
		h.path = path
	}
	h.mu.Unlock()
}

// deliver notifies subscribers of a drawn frame.
func (h *Host) deliver(f engine.Frame) {
	h.subMu.Lock()
	fns := make([]func(engine.Frame), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.subMu.Unlock()

	for _, fn := range fns {
		fn(f)
	}
}

// decodeFrame turns a frame payload into a framebuffer.
func decodeFrame(f *protocol.FrameData) (metering.Framebuffer, error) {
	raw, err := f.DecodeFrameData()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}

	switch f.Format {
	case protocol.FormatRGBF32:
		pix, err := protocol.DecodeFloat32(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
		}
		if f.Width <= 0 || f.Height <= 0 || len(pix) != 3*f.Width*f.Height {
			return nil, fmt.Errorf("%w: %dx%d with %d values", ErrBadFrame, f.Width, f.Height, len(pix))
		}
		return &framebuf.Float{W: f.Width, H: f.Height, Pix: pix}, nil

	case protocol.FormatJPEG:
		m, err := framebuf.DecodeJPEG(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
		}
		return m, nil

	case protocol.FormatPNG:
		img, _, err := framebuf.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
		}
		return img, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f.Format)
}
