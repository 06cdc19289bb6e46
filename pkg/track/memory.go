package track

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore implements Store in memory.
type MemoryStore struct {
	channels map[string][]Keyframe
	mu       sync.RWMutex
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{channels: make(map[string][]Keyframe)}
}

// InsertKeyframe sets the value at frame.
func (s *MemoryStore) InsertKeyframe(path string, frame int, value float64) error {
	if err := checkKey(path, value); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[path] = insert(s.channels[path], Keyframe{Frame: frame, Value: value})
	return nil
}

// RemoveKeyframes deletes a channel.
func (s *MemoryStore) RemoveKeyframes(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels, path)
	return nil
}

// Channels returns the sorted channel paths.
func (s *MemoryStore) Channels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.channels))
	for p := range s.channels {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Keyframes returns a copy of a channel's keys.
func (s *MemoryStore) Keyframes(path string) []Keyframe {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys, ok := s.channels[path]
	if !ok {
		return nil
	}
	return append([]Keyframe(nil), keys...)
}

// Value evaluates a channel at frame.
func (s *MemoryStore) Value(path string, frame float64) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Evaluate(s.channels[path], frame)
}

// Snapshot returns every channel in path order.
func (s *MemoryStore) Snapshot() []Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Channel, 0, len(s.channels))
	for p, keys := range s.channels {
		out = append(out, Channel{Path: p, Keyframes: append([]Keyframe(nil), keys...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (s *MemoryStore) restore(channels []Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.channels = make(map[string][]Keyframe, len(channels))
	for _, ch := range channels {
		var keys []Keyframe
		for _, k := range ch.Keyframes {
			keys = insert(keys, k)
		}
		s.channels[ch.Path] = keys
	}
}

func checkKey(path string, value float64) error {
	if path == "" {
		return ErrEmptyPath
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %s = %v", ErrInvalidValue, path, value)
	}
	return nil
}
