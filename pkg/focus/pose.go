// Package focus measures the distance from the camera to the first surface
// along its view axis.
package focus

import "cogentcore.org/core/math32"

// Pose is a camera position and orientation in world space.
type Pose struct {
	Position math32.Vector3 `json:"position"`
	Rotation math32.Quat    `json:"rotation"`
}

// NewPose returns a pose at pos rotated by angle radians around axis.
func NewPose(pos, axis math32.Vector3, angle float32) Pose {
	return Pose{
		Position: pos,
		Rotation: math32.NewQuatAxisAngle(axis.Normal(), angle),
	}
}

// Forward returns the unit view direction: (0,0,-1) rotated by the pose.
// A zero quaternion is treated as the identity.
func (p Pose) Forward() math32.Vector3 {
	q := p.Rotation
	if q == (math32.Quat{}) {
		q = math32.Quat{W: 1}
	}
	return math32.Vec3(0, 0, -1).MulQuat(q).Normal()
}
