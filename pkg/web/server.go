// Package web exposes the live gaze estimate and calibration controls over
// HTTP and websockets.
package web

import (
	"context"
	"log/slog"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/pkg/errors"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/hub"
	"github.com/teslashibe/go-gaze/pkg/publish"
)

// Backend is the tracker as seen by the server.
type Backend interface {
	Snapshot() gaze.Snapshot
	Send(cmd gaze.Command) bool
}

// Server is the HTTP API server. It also implements gaze.Publisher so every
// published estimate is streamed to websocket clients.
type Server struct {
	app     *fiber.App
	addr    string
	backend Backend
	log     *slog.Logger

	// Hubs for websocket broadcast
	gazeHub   *hub.Hub
	cameraHub *hub.Hub

	// Scopes the hubs; cancelled by Shutdown or the Serve context
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a server listening on addr (e.g. ":8080").
func NewServer(addr string, backend Backend) *Server {
	s := &Server{
		addr:      addr,
		backend:   backend,
		log:       log.Component("web"),
		gazeHub:   hub.New("gaze"),
		cameraHub: hub.New("camera"),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	app := fiber.New(fiber.Config{
		AppName:               "go-gaze",
		DisableStartupMessage: true,
	})

	// CORS so browser overlays on other origins can poll the API
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Get("/gaze", s.handleGaze)
	api.Get("/status", s.handleStatus)
	api.Post("/calibration/start", s.handleCommand(gaze.CommandCalibrate))
	api.Post("/calibration/cancel", s.handleCommand(gaze.CommandCancelCalibration))

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/gaze", websocket.New(s.handleGazeWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// Start runs the hubs and serves until Shutdown. It blocks.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.addr)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	context.AfterFunc(ctx, s.cancel)
	go s.gazeHub.Run(s.ctx)
	go s.cameraHub.Run(s.ctx)

	s.log.Info("http api listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync(ctx context.Context) {
	go func() {
		if err := s.Start(ctx); err != nil {
			s.log.Error("web server stopped", "error", err)
		}
	}()
}

// Publish implements gaze.Publisher by streaming the estimate to
// /ws/gaze clients in the gaze file format.
func (s *Server) Publish(e gaze.Estimate) error {
	return s.gazeHub.BroadcastJSON(publish.NewRecord(e))
}

// SendCameraFrame streams a JPEG preview frame to /ws/camera clients.
func (s *Server) SendCameraFrame(jpeg []byte) {
	s.cameraHub.BroadcastBinary(jpeg)
}

// CameraClients reports how many clients watch the preview stream.
func (s *Server) CameraClients() int {
	return s.cameraHub.ClientCount()
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	s.cancel()
	return s.app.Shutdown()
}
