package protocol

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"

	"cogentcore.org/core/math32"

	"github.com/teslashibe/go-realcam/pkg/focus"
	"github.com/teslashibe/go-realcam/pkg/track"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewFrameMessage creates a frame message from encoded image bytes
func NewFrameMessage(number, width, height int, format string, image []byte, renderMode string, pose *PoseData) (*Message, error) {
	return NewMessage(TypeFrame, FrameData{
		Number:     number,
		Width:      width,
		Height:     height,
		Format:     format,
		Data:       base64.StdEncoding.EncodeToString(image),
		RenderMode: renderMode,
		Pose:       pose,
	})
}

// NewTimelineMessage creates a timeline message
func NewTimelineMessage(start, end, current int, path []FramePose) (*Message, error) {
	return NewMessage(TypeTimeline, TimelineData{
		Start:   start,
		End:     end,
		Current: current,
		Path:    path,
	})
}

// NewSceneMessage creates a scene geometry message
func NewSceneMessage(objects []focus.Object) (*Message, error) {
	return NewMessage(TypeScene, SceneData{Objects: objects})
}

// NewSettingsMessage creates a partial settings update
func NewSettingsMessage(params map[string]interface{}) (*Message, error) {
	return NewMessage(TypeSettings, params)
}

// NewBakeMessage creates a bake command
func NewBakeMessage(enable bool) (*Message, error) {
	return NewMessage(TypeBake, BakeCommand{Enable: enable})
}

// NewExposureMessage creates an exposure message
func NewExposureMessage(frame int, value float64) (*Message, error) {
	return NewMessage(TypeExposure, ExposureData{Frame: frame, Value: value})
}

// NewFocusMessage creates a focus message
func NewFocusMessage(frame int, distance float64, hit bool) (*Message, error) {
	return NewMessage(TypeFocus, FocusData{Frame: frame, Distance: distance, Hit: hit})
}

// NewLensMessage creates a lens message
func NewLensMessage(lens LensData) (*Message, error) {
	return NewMessage(TypeLens, lens)
}

// NewKeyframesMessage creates a keyframe message; nil keys mean the channel was removed
func NewKeyframesMessage(channel string, keys []track.Keyframe) (*Message, error) {
	return NewMessage(TypeKeyframes, KeyframeData{
		Channel:   channel,
		Keyframes: keys,
		Removed:   keys == nil,
	})
}

// NewStatusMessage wraps an engine status
func NewStatusMessage(status interface{}) (*Message, error) {
	return NewMessage(TypeStatus, status)
}

// NewErrorMessage reports a rejected request
func NewErrorMessage(request MessageType, err error) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Request: request, Message: err.Error()})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetFrameData extracts frame data from a message
func (m *Message) GetFrameData() (*FrameData, error) {
	var data FrameData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeFrameData decodes the base64 image data
func (f *FrameData) DecodeFrameData() ([]byte, error) {
	return base64.StdEncoding.DecodeString(f.Data)
}

// GetTimelineData extracts timeline data from a message
func (m *Message) GetTimelineData() (*TimelineData, error) {
	var data TimelineData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	if data.End < data.Start {
		return nil, fmt.Errorf("timeline end %d before start %d", data.End, data.Start)
	}
	return &data, nil
}

// GetSceneData extracts scene data from a message
func (m *Message) GetSceneData() (*SceneData, error) {
	var data SceneData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSettings extracts a partial settings update from a message
func (m *Message) GetSettings() (map[string]interface{}, error) {
	params := make(map[string]interface{})
	if err := m.ParseData(&params); err != nil {
		return nil, err
	}
	return params, nil
}

// GetBakeCommand extracts a bake command from a message
func (m *Message) GetBakeCommand() (*BakeCommand, error) {
	var data BakeCommand
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetExposureData extracts exposure data from a message
func (m *Message) GetExposureData() (*ExposureData, error) {
	var data ExposureData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetFocusData extracts focus data from a message
func (m *Message) GetFocusData() (*FocusData, error) {
	var data FocusData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetLensData extracts lens data from a message
func (m *Message) GetLensData() (*LensData, error) {
	var data LensData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetKeyframeData extracts keyframe data from a message
func (m *Message) GetKeyframeData() (*KeyframeData, error) {
	var data KeyframeData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts error data from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// =============================================================================
// Conversions
// =============================================================================

// ToPose converts wire pose data to a focus pose
func (p PoseData) ToPose() focus.Pose {
	return focus.Pose{
		Position: math32.Vec3(float32(p.Position[0]), float32(p.Position[1]), float32(p.Position[2])),
		Rotation: math32.Quat{
			X: float32(p.Rotation[0]),
			Y: float32(p.Rotation[1]),
			Z: float32(p.Rotation[2]),
			W: float32(p.Rotation[3]),
		},
	}
}

// FromPose converts a focus pose to wire pose data
func FromPose(p focus.Pose) PoseData {
	return PoseData{
		Position: [3]float64{float64(p.Position.X), float64(p.Position.Y), float64(p.Position.Z)},
		Rotation: [4]float64{float64(p.Rotation.X), float64(p.Rotation.Y), float64(p.Rotation.Z), float64(p.Rotation.W)},
	}
}

// EncodeFloat32 packs float32 samples little-endian for FormatRGBF32 frames
func EncodeFloat32(pix []float32) []byte {
	out := make([]byte, 4*len(pix))
	for i, v := range pix {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

// DecodeFloat32 unpacks FormatRGBF32 frame bytes
func DecodeFloat32(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("rgbf32 payload of %d bytes is not a multiple of 4", len(data))
	}
	pix := make([]float32, len(data)/4)
	for i := range pix {
		pix[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return pix, nil
}
