package focus

import (
	"log/slog"
	"sync"

	"cogentcore.org/core/math32"

	"github.com/teslashibe/go-realcam/pkg/debug"
)

// DefaultDistance is the focus distance, in meters, used when nothing is hit
// and no other default has been configured.
const DefaultDistance = 1.0

// Scene casts rays into the host scene.
type Scene interface {
	// CastRay returns the first surface point hit from origin along dir.
	CastRay(origin, dir math32.Vector3) (math32.Vector3, bool)
}

// Sampler measures focus distance against a scene.
type Sampler struct {
	scene  Scene
	logger *slog.Logger

	mu       sync.RWMutex
	fallback float64
}

// NewSampler creates a sampler. A nil logger uses slog.Default().
func NewSampler(scene Scene, fallback float64, logger *slog.Logger) *Sampler {
	if logger == nil {
		logger = slog.Default()
	}
	if fallback < 0 {
		fallback = DefaultDistance
	}
	return &Sampler{scene: scene, fallback: fallback, logger: logger}
}

// Distance returns the distance from the pose to the first hit along its
// forward vector. It reports false when the ray hits nothing.
func (s *Sampler) Distance(pose Pose) (float64, bool) {
	if s.scene == nil {
		return 0, false
	}
	hit, ok := s.scene.CastRay(pose.Position, pose.Forward())
	if !ok {
		return 0, false
	}
	return float64(hit.DistanceTo(pose.Position)), true
}

// Focus returns the hit distance, or the fallback distance on a miss.
func (s *Sampler) Focus(pose Pose) float64 {
	d, ok := s.Distance(pose)
	if !ok {
		d = s.Fallback()
		debug.FocusLog("🎯 focus miss → %.3fm\n", d)
		return d
	}
	debug.FocusLog("🎯 focus hit %.3fm\n", d)
	return d
}

// Fallback returns the distance used on a miss.
func (s *Sampler) Fallback() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fallback
}

// SetFallback sets the distance used on a miss.
func (s *Sampler) SetFallback(d float64) {
	if d < 0 {
		s.logger.Warn("ignoring negative focus fallback", "distance", d)
		return
	}
	s.mu.Lock()
	s.fallback = d
	s.mu.Unlock()
}
