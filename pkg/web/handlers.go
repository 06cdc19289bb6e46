package web

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-realcam/pkg/bake"
	"github.com/teslashibe/go-realcam/pkg/camera"
	"github.com/teslashibe/go-realcam/pkg/engine"
	"github.com/teslashibe/go-realcam/pkg/exposure"
	"github.com/teslashibe/go-realcam/pkg/track"
)

// tuningPresets are the named loop tunings accepted by PUT /api/tuning
var tuningPresets = map[string]func() exposure.Tuning{
	"default":    exposure.DefaultTuning,
	"smooth":     exposure.SmoothTuning,
	"responsive": exposure.ResponsiveTuning,
}

// handleStatus returns the engine status after the last frame
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.engine.Status())
}

// handleEnable subscribes the engine to the frame source
func (s *Server) handleEnable(c *fiber.Ctx) error {
	if s.source == nil {
		return c.Status(409).JSON(fiber.Map{"error": "no frame source configured"})
	}
	id := s.engine.Enable(s.source)
	s.AddLog("engine", "enabled")
	return c.JSON(fiber.Map{"enabled": true, "subscription": id})
}

// handleDisable drops the frame subscription
func (s *Server) handleDisable(c *fiber.Ctx) error {
	s.engine.Disable()
	s.AddLog("engine", "disabled")
	return c.JSON(fiber.Map{"enabled": false})
}

// handleGetSettings returns the current settings
func (s *Server) handleGetSettings(c *fiber.Ctx) error {
	return c.JSON(s.manager.GetConfig())
}

// handleUpdateSettings applies a partial settings update
func (s *Server) handleUpdateSettings(c *fiber.Ctx) error {
	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	if err := s.manager.UpdateConfig(params); err != nil {
		return c.Status(settingsStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	s.AddLog("settings", fmt.Sprintf("updated %d field(s)", len(params)))
	return c.JSON(s.manager.GetConfig())
}

// handleListPresets returns the named settings presets
func (s *Server) handleListPresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"names":   camera.PresetNames(),
		"presets": camera.Presets(),
	})
}

// handleApplyPreset replaces the settings with a preset
func (s *Server) handleApplyPreset(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := s.manager.UpdateConfig(map[string]interface{}{"preset": name}); err != nil {
		return c.Status(settingsStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	s.AddLog("settings", "preset "+name)
	return c.JSON(s.manager.GetConfig())
}

// handleListLooks returns the available tone-curve looks
func (s *Server) handleListLooks(c *fiber.Ctx) error {
	looks := s.engine.Looks()
	return c.JSON(fiber.Map{
		"looks": looks.List(),
		"count": looks.Count(),
	})
}

// handleGetTuning returns the loop tuning
func (s *Server) handleGetTuning(c *fiber.Ctx) error {
	return c.JSON(s.engine.Tuning())
}

// TuningRequest is the body of PUT /api/tuning; a preset is applied
// before the explicit fields
type TuningRequest struct {
	Preset string `json:"preset"`
	exposure.Tuning
}

// handleUpdateTuning merges a tuning update
func (s *Server) handleUpdateTuning(c *fiber.Ctx) error {
	var req TuningRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	if req.Preset != "" {
		preset, ok := tuningPresets[req.Preset]
		if !ok {
			return c.Status(404).JSON(fiber.Map{"error": "unknown tuning preset: " + req.Preset})
		}
		s.engine.SetTuning(preset())
	}
	t := s.engine.SetTuning(req.Tuning)

	s.AddLog("settings", fmt.Sprintf("tuning damping=%.2f dead_zone=%.3f", t.Damping, t.DeadZone))
	return c.JSON(t)
}

// BakeRequest is the optional body of POST /api/bake
type BakeRequest struct {
	Rebake bool `json:"rebake"`
}

// handleBake writes the focus keyframes
func (s *Server) handleBake(c *fiber.Ctx) error {
	var req BakeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
	}

	var err error
	if req.Rebake {
		err = s.engine.Rebake(c.UserContext())
	} else {
		err = s.engine.Bake(c.UserContext(), true)
	}
	if err != nil {
		s.AddLog("error", "bake: "+err.Error())
		return c.Status(bakeStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	run, _ := s.engine.LastBake()
	s.AddLog("bake", fmt.Sprintf("baked %d frames (%d..%d step %d)", run.Frames, run.Start, run.End, run.Step))
	return c.JSON(fiber.Map{"state": s.engine.Status().Bake, "run": run})
}

// handleUnbake removes the focus keyframes
func (s *Server) handleUnbake(c *fiber.Ctx) error {
	if err := s.engine.Bake(c.UserContext(), false); err != nil {
		s.AddLog("error", "unbake: "+err.Error())
		return c.Status(bakeStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	s.AddLog("bake", "removed focus keys")
	return c.JSON(fiber.Map{"state": s.engine.Status().Bake})
}

// handleCapabilities returns the settings ranges
func (s *Server) handleCapabilities(c *fiber.Ctx) error {
	return c.JSON(camera.Capabilities())
}

// handleTracks returns every animation channel with its keys
func (s *Server) handleTracks(c *fiber.Ctx) error {
	if s.tracks == nil {
		return c.Status(404).JSON(fiber.Map{"error": engine.ErrNoTrack.Error()})
	}

	paths := s.tracks.Channels()
	sort.Strings(paths)
	channels := make([]track.Channel, 0, len(paths))
	for _, p := range paths {
		channels = append(channels, track.Channel{Path: p, Keyframes: s.tracks.Keyframes(p)})
	}
	return c.JSON(fiber.Map{
		"channels": channels,
		"focus":    track.WithPrefix(paths, bake.Channel),
	})
}

// handleGetLogs returns recent event entries
func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return c.JSON(s.logs)
}

func settingsStatus(err error) int {
	switch {
	case errors.Is(err, camera.ErrUnknownPreset):
		return 404
	case errors.Is(err, camera.ErrInvalidSettings):
		return 400
	}
	return 500
}

func bakeStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrNoTrack):
		return 409
	case errors.Is(err, bake.ErrInvalidStep):
		return 400
	}
	return 500
}
