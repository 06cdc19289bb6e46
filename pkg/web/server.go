// Package web provides the HTTP API and live status feed for realcam
package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-realcam/pkg/camera"
	"github.com/teslashibe/go-realcam/pkg/engine"
	"github.com/teslashibe/go-realcam/pkg/hub"
	"github.com/teslashibe/go-realcam/pkg/protocol"
	"github.com/teslashibe/go-realcam/pkg/track"
)

// maxLogs is the size of the event log ring
const maxLogs = 500

// LogEntry represents an event line for the dashboard
type LogEntry struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // settings, bake, engine, error
	Message string `json:"message"`
}

// Config holds the collaborators of a Server
type Config struct {
	Port    string
	Engine  *engine.Engine
	Manager *camera.Manager
	Source  engine.FrameSource // enabled by POST /api/engine
	Tracks  track.Store        // optional, for GET /api/tracks
	Logger  *slog.Logger
	Debug   bool // log every request
}

// Server is the web API server
type Server struct {
	app     *fiber.App
	port    string
	engine  *engine.Engine
	manager *camera.Manager
	source  engine.FrameSource
	tracks  track.Store
	logger  *slog.Logger

	// Event log buffer (last maxLogs entries)
	logs   []LogEntry
	logsMu sync.RWMutex

	// Hubs for websocket broadcast
	statusHub *hub.Hub
	logHub    *hub.Hub
}

// NewServer creates a new web API server
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		port:      cfg.Port,
		engine:    cfg.Engine,
		manager:   cfg.Manager,
		source:    cfg.Source,
		tracks:    cfg.Tracks,
		logger:    logger.With("component", "web"),
		logs:      make([]LogEntry, 0, maxLogs),
		statusHub: hub.New("status", logger),
		logHub:    hub.New("logs", logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "realcam",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	if cfg.Debug {
		app.Use(fiberlogger.New())
	}

	// CORS for local development
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/engine", s.handleEnable)
	api.Delete("/engine", s.handleDisable)
	api.Get("/settings", s.handleGetSettings)
	api.Put("/settings", s.handleUpdateSettings)
	api.Get("/presets", s.handleListPresets)
	api.Post("/presets/:name", s.handleApplyPreset)
	api.Get("/looks", s.handleListLooks)
	api.Get("/tuning", s.handleGetTuning)
	api.Put("/tuning", s.handleUpdateTuning)
	api.Post("/bake", s.handleBake)
	api.Delete("/bake", s.handleUnbake)
	api.Get("/capabilities", s.handleCapabilities)
	api.Get("/tracks", s.handleTracks)
	api.Get("/logs", s.handleGetLogs)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/status", s.statusHub.Handler())
	app.Get("/ws/logs", s.logHub.Handler())

	s.app = app
	return s
}

// App returns the fiber app so other components can register routes
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the hubs until ctx is done and serves HTTP
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("web api listening", "url", "http://localhost:"+s.port)

	go s.statusHub.Run(ctx)
	go s.logHub.Run(ctx)

	return s.app.Listen(":" + s.port)
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync(ctx context.Context) {
	go func() {
		if err := s.Start(ctx); err != nil {
			s.logger.Error("web server error", "error", err)
		}
	}()
}

// PublishStatus broadcasts an engine status to /ws/status clients.
// It has the signature of engine.Engine.OnStatus.
func (s *Server) PublishStatus(st engine.Status) {
	msg, err := protocol.NewStatusMessage(st)
	if err != nil {
		return
	}
	s.statusHub.BroadcastProtocol(msg)
}

// AddLog adds an event entry and broadcasts to clients
func (s *Server) AddLog(logType, message string) {
	entry := LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Type:    logType,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogs {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	s.logHub.BroadcastJSON(entry)
}

// StatusHub returns the status hub for external use
func (s *Server) StatusHub() *hub.Hub {
	return s.statusHub
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
