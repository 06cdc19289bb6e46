package camera

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events an editor save produces.
const reloadDelay = 100 * time.Millisecond

// Watch reloads the settings file at path into m whenever it changes on
// disk, until ctx is done. Files equal to the current settings are
// ignored, so saving from OnConfigChange does not loop. Invalid files are
// logged and skipped.
func Watch(ctx context.Context, path string, m *Manager, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create settings watcher: %w", err)
	}
	defer watcher.Close()

	// watch the directory; editors replace the file rather than write it
	name := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(name)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	var reload <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				reload = time.After(reloadDelay)
			}

		case <-reload:
			reload = nil
			s, err := Load(path)
			if err != nil {
				logger.Warn("ignoring settings file", "path", path, "error", err)
				continue
			}
			if s == m.GetConfig() {
				continue
			}
			if err := m.SetConfig(s); err != nil {
				logger.Warn("failed to apply settings file", "path", path, "error", err)
				continue
			}
			logger.Info("settings reloaded", "path", path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("settings watcher error", "error", err)
		}
	}
}
