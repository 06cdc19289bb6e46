package track

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JSONStore is a MemoryStore persisted to a JSON file.
// Mutations mark the store dirty; Flush writes it to disk.
type JSONStore struct {
	*MemoryStore

	path string
	id   string

	mu    sync.Mutex
	dirty bool
}

// storeData is the JSON structure for the store file.
type storeData struct {
	Version   int       `json:"version"`
	ID        string    `json:"id"`
	UpdatedAt string    `json:"updated_at"`
	Channels  []Channel `json:"channels"`
}

const currentVersion = 1

// NewJSONStore opens the store at path. If the file doesn't exist, it will
// be created on the first Flush.
func NewJSONStore(path string) (*JSONStore, error) {
	store := &JSONStore{
		MemoryStore: NewMemoryStore(),
		path:        path,
		id:          uuid.New().String(),
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := store.load(); err != nil {
			return nil, fmt.Errorf("failed to load store: %w", err)
		}
	}

	return store, nil
}

func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var stored storeData
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	if stored.Version > currentVersion {
		return fmt.Errorf("unsupported store version %d", stored.Version)
	}
	if stored.ID != "" {
		s.id = stored.ID
	}

	s.MemoryStore.restore(stored.Channels)
	return nil
}

// InsertKeyframe sets the value at frame and marks the store dirty.
func (s *JSONStore) InsertKeyframe(path string, frame int, value float64) error {
	if err := s.MemoryStore.InsertKeyframe(path, frame, value); err != nil {
		return err
	}
	s.markDirty()
	return nil
}

// RemoveKeyframes deletes a channel and marks the store dirty.
func (s *JSONStore) RemoveKeyframes(path string) error {
	if err := s.MemoryStore.RemoveKeyframes(path); err != nil {
		return err
	}
	s.markDirty()
	return nil
}

func (s *JSONStore) markDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// Flush writes the store to disk if it changed.
func (s *JSONStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	stored := storeData{
		Version:   currentVersion,
		ID:        s.id,
		UpdatedAt: time.Now().Format(time.RFC3339),
		Channels:  s.MemoryStore.Snapshot(),
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	// Write to temp file first, then rename (atomic write)
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.dirty = false
	return nil
}

// ID returns the store's identifier, stable across reloads.
func (s *JSONStore) ID() string {
	return s.id
}

// Path returns the file path of the store.
func (s *JSONStore) Path() string {
	return s.path
}
