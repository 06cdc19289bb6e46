package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-realcam/pkg/bake"
	"github.com/teslashibe/go-realcam/pkg/engine"
	"github.com/teslashibe/go-realcam/pkg/focus"
	"github.com/teslashibe/go-realcam/pkg/protocol"
	"github.com/teslashibe/go-realcam/pkg/track"
)

// Controller is the engine surface driven by bake commands
type Controller interface {
	Bake(ctx context.Context, on bool) error
	Rebake(ctx context.Context) error
}

// Configurer applies partial settings updates
type Configurer interface {
	UpdateConfig(params map[string]interface{}) error
}

// Tracks reads baked keyframes back for the renderer
type Tracks interface {
	Channels() []string
	Keyframes(path string) []track.Keyframe
}

// Config holds the collaborators of a Server. Nil collaborators make the
// corresponding requests fail with an error message.
type Config struct {
	Host       *Host
	Controller Controller
	Settings   Configurer
	Tracks     Tracks
	Logger     *slog.Logger
}

// Server accepts a renderer connection and routes its messages
type Server struct {
	host     *Host
	ctrl     Controller
	settings Configurer
	tracks   Tracks
	logger   *slog.Logger

	// Stats
	messagesReceived atomic.Uint64
	framesReceived   atomic.Uint64
	framesRejected   atomic.Uint64
	rejectedHosts    atomic.Uint64
}

// NewServer creates a bridge server. A nil Host gets a fresh one.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	host := cfg.Host
	if host == nil {
		host = NewHost(logger)
	}
	return &Server{
		host:     host,
		ctrl:     cfg.Controller,
		settings: cfg.Settings,
		tracks:   cfg.Tracks,
		logger:   logger.With("component", "bridge"),
	}
}

// Host returns the mirrored renderer
func (s *Server) Host() *Host {
	return s.host
}

// RegisterRoutes registers WebSocket routes on a Fiber app
func (s *Server) RegisterRoutes(app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/host", websocket.New(s.handleHost))
	app.Get("/ws/host/:id", websocket.New(s.handleHost))
}

// handleHost runs one renderer connection
func (s *Server) handleHost(c *websocket.Conn) {
	id := c.Params("id")
	if id == "" {
		id = uuid.New().String()
	}

	conn := &Conn{
		ID:        id,
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}

	if err := s.host.attach(conn); err != nil {
		s.rejectedHosts.Add(1)
		s.logger.Warn("rejected host", "id", id, "error", err)
		if msg, mErr := protocol.NewErrorMessage("", err); mErr == nil {
			conn.Send(msg)
		}
		return
	}
	s.logger.Info("host connected", "id", id)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
		s.host.detach(conn)
		s.logger.Info("host disconnected", "id", id)
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("host read error", "id", id, "error", err)
			}
			return
		}

		conn.touch()
		s.messagesReceived.Add(1)
		s.handleMessage(ctx, &wg, conn, data)
	}
}

// handleMessage processes an incoming message from the renderer
func (s *Server) handleMessage(ctx context.Context, wg *sync.WaitGroup, conn *Conn, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		s.logger.Debug("parse error", "id", conn.ID, "error", err)
		s.sendError(conn, "", err)
		return
	}

	switch msg.Type {
	case protocol.TypeFrame:
		s.framesReceived.Add(1)
		frame, err := msg.GetFrameData()
		if err == nil {
			err = s.host.applyFrame(frame)
		}
		if err != nil {
			s.framesRejected.Add(1)
			s.sendError(conn, msg.Type, err)
			return
		}
		s.host.deliver(engine.Frame{Number: frame.Number, Time: time.Now()})

	case protocol.TypeTimeline:
		tl, err := msg.GetTimelineData()
		if err != nil {
			s.sendError(conn, msg.Type, err)
			return
		}
		s.host.applyTimeline(tl)

	case protocol.TypeScene:
		scene, err := msg.GetSceneData()
		if err != nil {
			s.sendError(conn, msg.Type, err)
			return
		}
		s.host.scene.Replace(scene.Objects)
		s.logger.Debug("scene replaced", "objects", len(scene.Objects))

	case protocol.TypeSettings:
		if s.settings == nil {
			s.sendError(conn, msg.Type, errors.New("settings are read-only"))
			return
		}
		params, err := msg.GetSettings()
		if err == nil {
			err = s.settings.UpdateConfig(params)
		}
		if err != nil {
			s.sendError(conn, msg.Type, err)
		}

	case protocol.TypeBake:
		cmd, err := msg.GetBakeCommand()
		if err != nil {
			s.sendError(conn, msg.Type, err)
			return
		}
		if s.ctrl == nil {
			s.sendError(conn, msg.Type, engine.ErrNoTrack)
			return
		}
		// off the read loop; a disconnect cancels an in-flight sweep
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runBake(ctx, conn, cmd)
		}()

	case protocol.TypePing:
		var ping protocol.PingData
		msg.ParseData(&ping)
		pong, err := protocol.NewPongMessage(ping.ID, msg.Timestamp, time.Now().UnixMilli())
		if err == nil {
			s.sendTo(conn, pong)
		}

	case protocol.TypePong:
		// keepalive only

	default:
		s.sendError(conn, msg.Type, errors.New("unsupported message type"))
	}
}

// runBake executes a bake command and reports the resulting keys
func (s *Server) runBake(ctx context.Context, conn *Conn, cmd *protocol.BakeCommand) {
	var err error
	switch {
	case cmd.Rebake:
		err = s.ctrl.Rebake(ctx)
	default:
		err = s.ctrl.Bake(ctx, cmd.Enable)
	}
	if err != nil {
		s.logger.Warn("bake failed", "enable", cmd.Enable, "error", err)
		s.sendError(conn, protocol.TypeBake, err)
		return
	}

	if !cmd.Enable && !cmd.Rebake {
		if msg, err := protocol.NewKeyframesMessage(bake.Channel, nil); err == nil {
			s.sendTo(conn, msg)
		}
		return
	}
	if s.tracks == nil {
		return
	}
	for _, ch := range track.WithPrefix(s.tracks.Channels(), bake.Channel) {
		msg, err := protocol.NewKeyframesMessage(ch, s.tracks.Keyframes(ch))
		if err != nil {
			continue
		}
		s.sendTo(conn, msg)
	}
}

func (s *Server) sendError(conn *Conn, request protocol.MessageType, err error) {
	msg, mErr := protocol.NewErrorMessage(request, err)
	if mErr != nil {
		return
	}
	s.sendTo(conn, msg)
}

func (s *Server) sendTo(conn *Conn, msg *protocol.Message) {
	if err := conn.Send(msg); err != nil {
		s.logger.Debug("send failed", "id", conn.ID, "type", msg.Type, "error", err)
		return
	}
	s.host.messagesSent.Add(1)
}

// Stats contains bridge statistics
type Stats struct {
	Connected        bool   `json:"connected"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	FramesReceived   uint64 `json:"frames_received"`
	FramesRejected   uint64 `json:"frames_rejected"`
	RejectedHosts    uint64 `json:"rejected_hosts"`
}

// GetStats returns bridge statistics
func (s *Server) GetStats() Stats {
	return Stats{
		Connected:        s.host.Connected(),
		MessagesReceived: s.messagesReceived.Load(),
		MessagesSent:     s.host.messagesSent.Load(),
		FramesReceived:   s.framesReceived.Load(),
		FramesRejected:   s.framesRejected.Load(),
		RejectedHosts:    s.rejectedHosts.Load(),
	}
}

// HostInfo describes the attached renderer
type HostInfo struct {
	ID         string    `json:"id"`
	Connected  time.Time `json:"connected"`
	LastSeen   time.Time `json:"last_seen"`
	RenderMode string    `json:"render_mode"`
	Start      int       `json:"start"`
	End        int       `json:"end"`
	Current    int       `json:"current"`
	Objects    int       `json:"objects"`
}

// GetHostInfo returns the attached renderer, if any
func (s *Server) GetHostInfo() (HostInfo, bool) {
	h := s.host
	h.mu.RLock()
	conn := h.conn
	info := HostInfo{
		RenderMode: h.renderMode.String(),
		Start:      h.start,
		End:        h.end,
		Current:    h.current,
	}
	h.mu.RUnlock()
	if conn == nil {
		return HostInfo{}, false
	}

	conn.mu.Lock()
	info.ID = conn.ID
	info.Connected = conn.Connected
	info.LastSeen = conn.LastSeen
	conn.mu.Unlock()
	info.Objects = len(h.scene.Objects())
	return info, true
}

// RegisterAPIRoutes registers API routes for the renderer connection
func (s *Server) RegisterAPIRoutes(api fiber.Router) {
	host := api.Group("/host")

	host.Get("/", func(c *fiber.Ctx) error {
		info, ok := s.GetHostInfo()
		if !ok {
			return c.Status(404).JSON(fiber.Map{"error": ErrNotConnected.Error()})
		}
		return c.JSON(info)
	})

	host.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(s.GetStats())
	})

	// Replace focus geometry without a renderer, e.g. from a scene export
	host.Put("/scene", func(c *fiber.Ctx) error {
		var data protocol.SceneData
		if err := c.BodyParser(&data); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		for _, o := range data.Objects {
			if !validKind(o.Kind) {
				return c.Status(400).JSON(fiber.Map{"error": "unknown object kind: " + o.Kind})
			}
		}
		s.host.scene.Replace(data.Objects)
		return c.JSON(fiber.Map{"status": "ok", "objects": len(data.Objects)})
	})
}

func validKind(kind string) bool {
	switch kind {
	case focus.KindBox, focus.KindSphere, focus.KindTriangle:
		return true
	}
	return false
}
