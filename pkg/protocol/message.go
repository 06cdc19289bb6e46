// Package protocol defines the WebSocket messages exchanged between a
// renderer host and the realcam engine, and the status feed for dashboards.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/go-realcam/pkg/focus"
	"github.com/teslashibe/go-realcam/pkg/track"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Host → Engine messages
	TypeFrame    MessageType = "frame"    // Drawn viewport frame
	TypeTimeline MessageType = "timeline" // Playback range and camera path
	TypeScene    MessageType = "scene"    // Focus geometry
	TypeSettings MessageType = "settings" // Partial settings update
	TypeBake     MessageType = "bake"     // Bake or un-bake focus keys

	// Engine → Host messages
	TypeExposure  MessageType = "exposure"  // New exposure value
	TypeFocus     MessageType = "focus"     // New focus distance
	TypeLens      MessageType = "lens"      // Focal length, aperture, motion blur
	TypeKeyframes MessageType = "keyframes" // Baked focus keys
	TypeStatus    MessageType = "status"    // Engine status
	TypeError     MessageType = "error"     // Rejected request

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Frame formats
const (
	FormatJPEG   = "jpeg"
	FormatPNG    = "png"
	FormatRGBF32 = "rgbf32" // little-endian float32 RGB triplets, linear
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Host → Engine Message Types
// =============================================================================

// PoseData is a camera transform: position and an (x, y, z, w) quaternion.
type PoseData struct {
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation"`
}

// FrameData contains one drawn viewport frame
type FrameData struct {
	Number     int       `json:"number"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Format     string    `json:"format"`                // "jpeg", "png", "rgbf32"
	Data       string    `json:"data"`                  // base64 encoded
	RenderMode string    `json:"render_mode,omitempty"` // "rendered" or "other"
	Pose       *PoseData `json:"pose,omitempty"`
	Exposure   *float64  `json:"exposure,omitempty"` // host exposure, if changed outside the engine
}

// FramePose is the camera pose at one frame
type FramePose struct {
	Frame int      `json:"frame"`
	Pose  PoseData `json:"pose"`
}

// TimelineData contains the playback range and, for baking, the camera path
type TimelineData struct {
	Start   int         `json:"start"`
	End     int         `json:"end"`
	Current int         `json:"current"`
	Path    []FramePose `json:"path,omitempty"`
}

// SceneData contains the geometry used for focus rays
type SceneData struct {
	Objects []focus.Object `json:"objects"`
}

// BakeCommand requests a bake (Enable) or un-bake; Rebake refreshes keys
type BakeCommand struct {
	Enable bool `json:"enable"`
	Rebake bool `json:"rebake,omitempty"`
}

// =============================================================================
// Engine → Host Message Types
// =============================================================================

// ExposureData carries the exposure written for a frame
type ExposureData struct {
	Frame int     `json:"frame"`
	Value float64 `json:"value"`
}

// FocusData carries the focus distance written for a frame
type FocusData struct {
	Frame    int     `json:"frame"`
	Distance float64 `json:"distance"`
	Hit      bool    `json:"hit"`
}

// LensData carries one or more physical camera values; unset fields are
// left unchanged by the renderer
type LensData struct {
	FocalLength       *float64 `json:"focal_length,omitempty"`        // mm
	Aperture          *float64 `json:"aperture,omitempty"`            // f-number
	MotionBlurShutter *float64 `json:"motion_blur_shutter,omitempty"` // frames
}

// KeyframeData carries a channel's keys; Removed means delete the channel
type KeyframeData struct {
	Channel   string           `json:"channel"`
	Keyframes []track.Keyframe `json:"keyframes,omitempty"`
	Removed   bool             `json:"removed,omitempty"`
}

// ErrorData describes a rejected request
type ErrorData struct {
	Request MessageType `json:"request"`
	Message string      `json:"message"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
