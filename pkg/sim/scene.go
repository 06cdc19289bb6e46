package sim

import (
	"cogentcore.org/core/math32"

	"github.com/teslashibe/go-realcam/pkg/focus"
)

// Radiance is the scene-linear luminance seen through pixel (x, y) of a
// w×h viewport at frame, before exposure.
type Radiance func(x, y, w, h, frame int) float64

// Uniform is a flat scene of luminance l.
func Uniform(l float64) Radiance {
	return func(x, y, w, h, frame int) float64 { return l }
}

// Window is an interior: a dark room of luminance room with a bright
// window of luminance sky covering the upper-left quarter of the view.
func Window(room, sky float64) Radiance {
	return func(x, y, w, h, frame int) float64 {
		if x < w/2 && y < h/2 {
			return sky
		}
		return room
	}
}

// Fade ramps a uniform scene from l0 at frame start to l1 at frame end,
// like a light being dimmed.
func Fade(l0, l1 float64, start, end int) Radiance {
	return func(x, y, w, h, frame int) float64 {
		return l0 + (l1-l0)*progress(frame, start, end)
	}
}

// Path is the camera animation.
type Path func(frame int) focus.Pose

// Static holds the camera at pose.
func Static(pose focus.Pose) Path {
	return func(int) focus.Pose { return pose }
}

// Dolly moves the camera from a to b over [start, end], looking down -Z.
func Dolly(a, b math32.Vector3, start, end int) Path {
	return func(frame int) focus.Pose {
		t := float32(progress(frame, start, end))
		return focus.Pose{
			Position: a.Add(b.Sub(a).MulScalar(t)),
			Rotation: math32.Quat{W: 1},
		}
	}
}

// Set is the default sim set: a back wall 10m away with a sphere and
// a box in front of it.
func Set() *focus.GeometryScene {
	g := focus.NewGeometryScene()
	g.AddBox("wall", math32.Vec3(-20, -20, -11), math32.Vec3(20, 20, -10))
	g.AddSphere("ball", math32.Vec3(0, 0, -4), 0.5)
	g.AddBox("crate", math32.Vec3(2, -1, -7), math32.Vec3(4, 1, -5))
	return g
}

func progress(frame, start, end int) float64 {
	if end <= start {
		return 0
	}
	t := float64(frame-start) / float64(end-start)
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
