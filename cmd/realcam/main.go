// realcam: Exposure and focus automation server
// Serves the HTTP API, the status feed and the renderer bridge, or drives
// a simulated renderer with -sim.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cogentcore.org/core/math32"
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-realcam/internal/config"
	"github.com/teslashibe/go-realcam/internal/log"
	"github.com/teslashibe/go-realcam/pkg/bake"
	"github.com/teslashibe/go-realcam/pkg/bridge"
	"github.com/teslashibe/go-realcam/pkg/camera"
	"github.com/teslashibe/go-realcam/pkg/debug"
	"github.com/teslashibe/go-realcam/pkg/engine"
	"github.com/teslashibe/go-realcam/pkg/focus"
	"github.com/teslashibe/go-realcam/pkg/sim"
	"github.com/teslashibe/go-realcam/pkg/tonecurve"
	"github.com/teslashibe/go-realcam/pkg/track"
	"github.com/teslashibe/go-realcam/pkg/web"
)

var (
	version = "0.3.0"

	port          = flag.String("port", "", "HTTP server port (default $REALCAM_PORT or 8090)")
	configPath    = flag.String("config", "", "Settings YAML file; saved on every change")
	looksDir      = flag.String("looks", "", "Directory of extra look JSON files")
	tracksPath    = flag.String("tracks", "", "Keyframe store JSON file")
	preset        = flag.String("preset", "", "Start from a settings preset")
	logLevel      = flag.String("log-level", "", "debug, info, warn, error")
	useSim        = flag.Bool("sim", false, "Drive a simulated renderer instead of waiting for one")
	fps           = flag.Float64("fps", 0, "Simulated frame rate")
	enable        = flag.Bool("enable", true, "Enable the engine at startup")
	debugFlag     = flag.Bool("debug", false, "Enable debug logging")
	debugMetering = flag.Bool("debug-metering", false, "Log every metering pass")
	debugFocus    = flag.Bool("debug-focus", false, "Log every focus ray and bake frame")
)

func main() {
	flag.Parse()

	env := config.Load()
	if *port != "" {
		env.Port = *port
	}
	if *configPath != "" {
		env.ConfigPath = *configPath
	}
	if *looksDir != "" {
		env.LooksDir = *looksDir
	}
	if *tracksPath != "" {
		env.TracksPath = *tracksPath
	}
	if *logLevel != "" {
		env.LogLevel = *logLevel
	}
	if *fps > 0 {
		env.SimFPS = *fps
	}
	if *debugFlag {
		env.LogLevel = "debug"
	}

	log.Init(env.LogLevel)
	debug.Enabled = *debugFlag
	debug.Metering = *debugMetering
	debug.Focus = *debugFocus
	logger := log.L()

	fmt.Println()
	fmt.Println("🎥 realcam v" + version)
	fmt.Println("   Exposure and focus automation")
	fmt.Println()

	looks, err := tonecurve.LoadBuiltIn(logger)
	if err != nil {
		log.Fatal("failed to load looks", "error", err)
	}
	if env.LooksDir != "" {
		if looks, err = looks.WithDir(env.LooksDir); err != nil {
			log.Fatal("failed to load look directory", "dir", env.LooksDir, "error", err)
		}
	}

	settings, err := loadSettings(env.ConfigPath, *preset)
	if err != nil {
		log.Fatal("failed to load settings", "error", err)
	}
	manager, err := camera.NewManagerWith(settings)
	if err != nil {
		log.Fatal("invalid settings", "error", err)
	}

	store, err := track.NewJSONStore(env.TracksPath)
	if err != nil {
		log.Fatal("failed to open keyframe store", "path", env.TracksPath, "error", err)
	}

	// Pick the renderer
	var (
		host     engine.Host
		source   engine.FrameSource
		timeline bake.Timeline
		scene    focus.Scene
		simHost  *sim.Host
		remote   *bridge.Host
	)
	if *useSim {
		simHost = sim.New(
			sim.WithRadiance(sim.Window(0.05, 2.5)),
			sim.WithPath(sim.Dolly(math32.Vec3(0, 0, 0), math32.Vec3(0, 0, -3), sim.DefaultStart, sim.DefaultEnd)),
			sim.WithLogger(logger),
		)
		host, source, timeline, scene = simHost, simHost, simHost, simHost.Scene()
	} else {
		remote = bridge.NewHost(logger)
		host, source, timeline, scene = remote, remote, remote, remote.Scene()
	}

	eng, err := engine.New(engine.Config{
		Host:     host,
		Looks:    looks,
		Scene:    scene,
		Timeline: timeline,
		Store:    store,
		Settings: settings,
		Logger:   logger,
	})
	if err != nil {
		log.Fatal("failed to create engine", "error", err)
	}

	manager.OnConfigChange = func(s camera.Settings) error {
		if err := eng.ApplySettings(s); err != nil {
			return err
		}
		if env.ConfigPath != "" {
			if err := camera.Save(env.ConfigPath, s); err != nil {
				logger.Warn("failed to save settings", "path", env.ConfigPath, "error", err)
			}
		}
		return nil
	}

	server := web.NewServer(web.Config{
		Port:    env.Port,
		Engine:  eng,
		Manager: manager,
		Source:  source,
		Tracks:  store,
		Logger:  logger,
		Debug:   *debugFlag,
	})
	eng.OnStatus = server.PublishStatus

	app := server.App()
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"version": version,
			"enabled": eng.Enabled(),
		})
	})

	if remote != nil {
		br := bridge.NewServer(bridge.Config{
			Host:       remote,
			Controller: eng,
			Settings:   manager,
			Tracks:     store,
			Logger:     logger,
		})
		br.RegisterRoutes(app)
		br.RegisterAPIRoutes(app.Group("/api"))
	} else {
		registerSimRoutes(app.Group("/api/sim"), simHost)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server.StartAsync(ctx)
	if env.ConfigPath != "" {
		go func() {
			if err := camera.Watch(ctx, env.ConfigPath, manager, logger); err != nil {
				logger.Warn("settings file not watched", "error", err)
			}
		}()
	}
	if simHost != nil {
		go simHost.Run(ctx, env.SimFPS)
	}
	if *enable {
		eng.Enable(source)
	}

	logger.Info("realcam ready",
		"api", "http://localhost:"+env.Port+"/api/status",
		"status_ws", "ws://localhost:"+env.Port+"/ws/status",
		"sim", *useSim)
	if remote != nil {
		logger.Info("waiting for renderer", "ws", "ws://localhost:"+env.Port+"/ws/host")
	}
	debug.Log("🔧 settings: %+v\n", settings)

	<-ctx.Done()
	fmt.Println("\n👋 Shutting down...")

	eng.Disable()
	if err := store.Flush(); err != nil {
		logger.Error("failed to flush keyframes", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	fmt.Println("✅ Goodbye!")
}

// loadSettings reads the settings file, or starts from a preset or the
// defaults when the file does not exist yet.
func loadSettings(path, presetName string) (camera.Settings, error) {
	if path != "" {
		s, err := camera.Load(path)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return camera.Settings{}, err
		}
	}
	if presetName != "" {
		p := camera.GetPreset(presetName)
		if p == nil {
			return camera.Settings{}, fmt.Errorf("%w: %s", camera.ErrUnknownPreset, presetName)
		}
		return *p, nil
	}
	return camera.DefaultSettings(), nil
}

// registerSimRoutes exposes playback control of the simulated renderer
func registerSimRoutes(api fiber.Router, h *sim.Host) {
	api.Post("/play", func(c *fiber.Ctx) error {
		h.Play()
		return c.JSON(fiber.Map{"playing": true})
	})
	api.Post("/pause", func(c *fiber.Ctx) error {
		h.Pause()
		return c.JSON(fiber.Map{"playing": false})
	})
	api.Put("/radiance", func(c *fiber.Ctx) error {
		var req struct {
			Room float64 `json:"room"`
			Sky  float64 `json:"sky"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		if req.Room < 0 || req.Sky < 0 {
			return c.Status(400).JSON(fiber.Map{"error": "radiance must be non-negative"})
		}
		h.SetRadiance(sim.Window(req.Room, req.Sky))
		return c.JSON(fiber.Map{"room": req.Room, "sky": req.Sky})
	})
}
