// Package track stores animation keyframes by channel path.
//
// A channel path names one animated property, such as "focus.distance".
// Each channel holds at most one keyframe per frame, kept in frame order.
package track

import (
	"sort"
	"strings"
)

// Keyframe is one animated value.
type Keyframe struct {
	Frame int     `json:"frame"`
	Value float64 `json:"value"`
}

// Channel is a named keyframe sequence.
type Channel struct {
	Path      string     `json:"path"`
	Keyframes []Keyframe `json:"keyframes"`
}

// Store defines the keyframe operations used by the baker and the API.
type Store interface {
	// InsertKeyframe sets the value at frame, replacing any existing key.
	InsertKeyframe(path string, frame int, value float64) error

	// RemoveKeyframes deletes a channel. Missing channels are a no-op.
	RemoveKeyframes(path string) error

	// Channels returns the channel paths in sorted order.
	Channels() []string

	// Keyframes returns a copy of a channel's keys, or nil.
	Keyframes(path string) []Keyframe
}

// WithPrefix returns the paths that start with prefix.
func WithPrefix(paths []string, prefix string) []string {
	var out []string
	for _, p := range paths {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	return out
}

// Evaluate returns the value of keys at frame, linearly interpolated and
// held constant outside the keyed range. It reports false for no keys.
func Evaluate(keys []Keyframe, frame float64) (float64, bool) {
	if len(keys) == 0 {
		return 0, false
	}
	if frame <= float64(keys[0].Frame) {
		return keys[0].Value, true
	}
	last := keys[len(keys)-1]
	if frame >= float64(last.Frame) {
		return last.Value, true
	}

	i := sort.Search(len(keys), func(i int) bool { return float64(keys[i].Frame) > frame })
	a, b := keys[i-1], keys[i]
	t := (frame - float64(a.Frame)) / float64(b.Frame-a.Frame)
	return a.Value + (b.Value-a.Value)*t, true
}

// insert places k into keys, which must be frame-sorted.
func insert(keys []Keyframe, k Keyframe) []Keyframe {
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Frame >= k.Frame })
	if i < len(keys) && keys[i].Frame == k.Frame {
		keys[i].Value = k.Value
		return keys
	}
	keys = append(keys, Keyframe{})
	copy(keys[i+1:], keys[i:])
	keys[i] = k
	return keys
}
