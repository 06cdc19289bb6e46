// Package config reads realcam settings overrides from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

// Environment variables.
const (
	EnvConfig   = "REALCAM_CONFIG"    // settings YAML file
	EnvPort     = "REALCAM_PORT"      // HTTP port
	EnvLogLevel = "REALCAM_LOG_LEVEL" // debug, info, warn, error
	EnvLooks    = "REALCAM_LOOKS"     // directory of extra look JSON files
	EnvTracks   = "REALCAM_TRACKS"    // JSON keyframe store path
	EnvFPS      = "REALCAM_SIM_FPS"   // simulated host frame rate
)

// Defaults.
const (
	DefaultPort     = "8090"
	DefaultLogLevel = "info"
	DefaultTracks   = "realcam-tracks.json"
	DefaultFPS      = 24.0
)

// Env holds the resolved environment.
type Env struct {
	ConfigPath string
	Port       string
	LogLevel   string
	LooksDir   string
	TracksPath string
	SimFPS     float64
}

// Load resolves all overrides, falling back to defaults.
func Load() Env {
	return Env{
		ConfigPath: os.Getenv(EnvConfig),
		Port:       Get(EnvPort, DefaultPort),
		LogLevel:   Get(EnvLogLevel, DefaultLogLevel),
		LooksDir:   os.Getenv(EnvLooks),
		TracksPath: Get(EnvTracks, DefaultTracks),
		SimFPS:     Float(EnvFPS, DefaultFPS),
	}
}

// Get returns the env var key, or def if unset.
func Get(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Float returns the env var key parsed as a positive float, or def.
func Float(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// Duration returns the env var key parsed as a duration, or def.
func Duration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}
	return d
}
