package engine

import (
	"github.com/teslashibe/go-realcam/pkg/bake"
	"github.com/teslashibe/go-realcam/pkg/exposure"
)

// MeterStatus summarizes the last metering pass.
type MeterStatus struct {
	Mode       string  `json:"mode"`
	Luminance  float64 `json:"luminance"`
	Samples    int     `json:"samples"`
	Candidates int     `json:"candidates"`
	Fallback   bool    `json:"fallback"`
}

// FocusStatus summarizes the last focus measurement.
type FocusStatus struct {
	Distance float64 `json:"distance"`
	Hit      bool    `json:"hit"`
	Manual   bool    `json:"manual"`
}

// Status is the engine state after the last frame.
type Status struct {
	Enabled      bool   `json:"enabled"`
	Subscription string `json:"subscription,omitempty"`
	Frame        int    `json:"frame"`
	RenderMode   string `json:"render_mode"`
	Skipped      bool   `json:"skipped"` // metering gated off this frame
	Look         string `json:"look"`

	Exposure      float64          `json:"exposure"`
	Control       *exposure.Result `json:"control,omitempty"`
	Meter         *MeterStatus     `json:"meter,omitempty"`
	EV            float64          `json:"ev"`
	MotionBlur    float64          `json:"motion_blur"`
	Focus         *FocusStatus     `json:"focus,omitempty"`
	Bake          string           `json:"bake"`
	LastBake      *bake.Run        `json:"last_bake,omitempty"`
	MeteringError string           `json:"metering_error,omitempty"`
}
