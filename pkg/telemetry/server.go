package telemetry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// LogEntry is one diagnostic line kept for the dashboard.
type LogEntry struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Server serves loop diagnostics on localhost. It is a read-only
// surface: no control plane, no remote transport.
type Server struct {
	app       *fiber.App
	port      string
	collector *Collector
	logger    *slog.Logger

	logsMu sync.RWMutex
	logs   []LogEntry

	statusHub *Hub
	logHub    *Hub
}

// NewServer creates the dashboard server around a collector.
func NewServer(port string, collector *Collector) *Server {
	s := &Server{
		port:      port,
		collector: collector,
		logger:    slog.Default().With("component", "telemetry.server"),
		logs:      make([]LogEntry, 0, 500),
		statusHub: NewHub("status"),
		logHub:    NewHub("logs"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "VisionMate Diagnostics",
		DisableStartupMessage: true,
	})

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/logs", s.handleLogs)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))

	s.app = app

	// Push every cycle snapshot to connected clients.
	collector.OnUpdate(func(snap Snapshot) {
		s.statusHub.BroadcastJSON(snap)
	})

	return s
}

// Start listens on localhost and blocks.
func (s *Server) Start() error {
	go s.statusHub.Run()
	go s.logHub.Run()

	s.logger.Info("diagnostics dashboard listening", "addr", "127.0.0.1:"+s.port)
	return s.app.Listen("127.0.0.1:" + s.port)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Warn("dashboard server stopped", "error", err)
		}
	}()
}

// Shutdown stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// AddLog records a diagnostic line and broadcasts it.
func (s *Server) AddLog(level, message string) {
	entry := LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Level:   level,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > 500 {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	s.logHub.BroadcastJSON(entry)
}

// handleStatus returns the current metrics snapshot.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.collector.Snapshot())
}

// handleLogs returns the retained log ring.
func (s *Server) handleLogs(c *fiber.Ctx) error {
	s.logsMu.RLock()
	logs := make([]LogEntry, len(s.logs))
	copy(logs, s.logs)
	s.logsMu.RUnlock()
	return c.JSON(logs)
}

// handleStatusWS streams metrics snapshots.
func (s *Server) handleStatusWS(conn *websocket.Conn) {
	newClient(s.statusHub, conn).run()
}

// handleLogsWS streams diagnostic lines.
func (s *Server) handleLogsWS(conn *websocket.Conn) {
	newClient(s.logHub, conn).run()
}
