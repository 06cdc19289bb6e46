// Package exposure converts metered luminance into a display exposure value.
//
// The Controller is a discrete-time loop: every rendered frame it compares
// the metered brightness, mapped through the active look, with the target
// middle gray. Inside a dead zone it holds; outside it moves a fixed
// fraction of the way toward the exposure that would bring the metered
// value to middle gray. That target is bounded first, so a black frame
// ramps toward Max instead of jumping there, and the result is clamped.
package exposure

import (
	"math"

	"github.com/teslashibe/go-realcam/pkg/tonecurve"
)

// State is the host's exposure value. Only the controller writes it while
// auto-exposure is enabled.
type State interface {
	Exposure() float64
	SetExposure(v float64)
}

// Params are the per-frame inputs taken from the exposure settings.
type Params struct {
	Curve        tonecurve.Curve
	Compensation float64 // EV compensation in stops
	Min          float64 // minimum exposure
	Max          float64 // maximum exposure
}

// Result records one controller step.
type Result struct {
	Metered  float64 `json:"metered"`
	Scene    float64 `json:"scene"`
	Display  float64 `json:"display"`
	Target   float64 `json:"target"`
	Future   float64 `json:"future"`
	Previous float64 `json:"previous"`
	Exposure float64 `json:"exposure"`
	Held     bool    `json:"held"`    // inside the dead zone
	Clamped  bool    `json:"clamped"` // limited by Min or Max
}

// Controller implements damped exposure convergence.
type Controller struct {
	// Damping divides the distance to the target exposure each frame.
	Damping float64

	// DeadZone is the half-width, in display space, of the hold band.
	DeadZone float64

	last Result
}

// NewController creates a controller from tuning values.
func NewController(t Tuning) *Controller {
	t = t.normalized()
	return &Controller{
		Damping:  t.Damping,
		DeadZone: t.DeadZone,
	}
}

// Step computes the next exposure from metered luminance avg and the
// current exposure e. It has no side effects beyond recording the result.
func (c *Controller) Step(avg, e float64, p Params) Result {
	avg = sanitize(avg)

	res := Result{Metered: avg, Previous: e, Exposure: e}

	// undo the current exposure to recover the scene value
	res.Scene = avg * math.Exp2(e)
	res.Display = tonecurve.Forward(p.Curve, tonecurve.Encode(res.Scene))

	middle := MiddleGray(p.Compensation)
	res.Target = tonecurve.Forward(p.Curve, tonecurve.Encode(middle))

	if res.Display >= res.Target-c.DeadZone && res.Display <= res.Target+c.DeadZone {
		res.Held = true
		res.Future = e
		res.Exposure, res.Clamped = clampExposure(e, p.Min, p.Max)
		c.last = res
		return res
	}

	// a black frame puts the target at +Inf
	res.Future, _ = clampExposure(-math.Log2(avg/middle), p.Min, p.Max)
	next := e - (e-res.Future)/c.Damping
	res.Exposure, res.Clamped = clampExposure(next, p.Min, p.Max)

	c.last = res
	return res
}

// Update runs Step against the host exposure state and writes the result back.
func (c *Controller) Update(avg float64, state State, p Params) Result {
	res := c.Step(avg, state.Exposure(), p)
	if res.Exposure != res.Previous {
		state.SetExposure(res.Exposure)
	}
	return res
}

// Last returns the most recent step.
func (c *Controller) Last() Result {
	return c.last
}

// SetTuning replaces damping and dead zone.
func (c *Controller) SetTuning(t Tuning) {
	t = t.normalized()
	c.Damping = t.Damping
	c.DeadZone = t.DeadZone
}

// Tuning returns the current damping and dead zone.
func (c *Controller) Tuning() Tuning {
	return Tuning{Damping: c.Damping, DeadZone: c.DeadZone}
}

// MiddleGray returns the scene-linear target for EV compensation ec.
func MiddleGray(ec float64) float64 {
	return tonecurve.MiddleGray * math.Exp2(ec)
}

// clampExposure limits v to [min, max] and reports whether it was limited.
// Infinite inputs clamp as well.
func clampExposure(v, min, max float64) (float64, bool) {
	if math.IsNaN(v) {
		return min, true
	}
	if v < min {
		return min, true
	}
	if v > max {
		return max, true
	}
	return v, false
}

// sanitize maps negative and non-finite luminance to 0 (a black frame).
func sanitize(avg float64) float64 {
	if math.IsNaN(avg) || math.IsInf(avg, 0) || avg < 0 {
		return 0
	}
	return avg
}
