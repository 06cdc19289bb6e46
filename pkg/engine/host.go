package engine

import (
	"time"

	"github.com/teslashibe/go-realcam/pkg/exposure"
	"github.com/teslashibe/go-realcam/pkg/focus"
	"github.com/teslashibe/go-realcam/pkg/metering"
)

// RenderMode is the host viewport shading mode.
type RenderMode int

const (
	// Rendered is the final shaded view; metering runs only in this mode.
	Rendered RenderMode = iota

	// Other covers solid, wireframe and material preview modes.
	Other
)

func (m RenderMode) String() string {
	if m == Rendered {
		return "rendered"
	}
	return "other"
}

// RenderModer reports the current render mode.
type RenderModer interface {
	RenderMode() RenderMode
}

// Lens receives the physical camera settings.
type Lens interface {
	// SetFocalLength writes the lens focal length in millimeters.
	SetFocalLength(mm float64)

	// SetAperture writes the lens f-number.
	SetAperture(fstop float64)

	// SetMotionBlurShutter writes the render motion-blur shutter in frames.
	SetMotionBlurShutter(frames float64)
}

// Host is the 3D application the engine drives.
type Host interface {
	RenderModer
	exposure.State
	Lens

	// Viewport returns the framebuffer of the last drawn frame.
	Viewport() metering.Framebuffer

	// CameraPose returns the active camera at the current frame.
	CameraPose() focus.Pose

	// SetFocusDistance writes the camera's focus distance in meters.
	SetFocusDistance(d float64)
}

// Frame is a draw notification.
type Frame struct {
	Number int       `json:"number"`
	Time   time.Time `json:"time"`
}

// FrameSource delivers one Frame per displayed frame.
type FrameSource interface {
	Subscribe(fn func(Frame)) (unsubscribe func())
}
