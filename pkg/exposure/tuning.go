package exposure

// Default loop constants.
const (
	DefaultDamping  = 5.0
	DefaultDeadZone = 0.01
)

// Tuning holds the real-time adjustable loop parameters.
// These can be modified via the tuning API without restarting.
type Tuning struct {
	Damping  float64 `json:"damping"`   // frames-to-target divisor (>= 1)
	DeadZone float64 `json:"dead_zone"` // display-space hold half-width
}

// DefaultTuning returns damping 5 and a 0.01 dead zone.
func DefaultTuning() Tuning {
	return Tuning{
		Damping:  DefaultDamping,
		DeadZone: DefaultDeadZone,
	}
}

// SmoothTuning converges more slowly with a wider hold band.
func SmoothTuning() Tuning {
	return Tuning{
		Damping:  10,
		DeadZone: 0.02,
	}
}

// ResponsiveTuning converges quickly; expect some pumping on noisy frames.
func ResponsiveTuning() Tuning {
	return Tuning{
		Damping:  2,
		DeadZone: 0.005,
	}
}

// Merge applies only the non-zero fields of u, as the tuning API does.
func (t Tuning) Merge(u Tuning) Tuning {
	if u.Damping > 0 {
		t.Damping = u.Damping
	}
	if u.DeadZone > 0 {
		t.DeadZone = u.DeadZone
	}
	return t
}

// normalized keeps damping >= 1 and the dead zone non-negative.
func (t Tuning) normalized() Tuning {
	if t.Damping < 1 {
		t.Damping = 1
	}
	if t.DeadZone < 0 {
		t.DeadZone = 0
	}
	return t
}
