package web

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/hub"
	"github.com/teslashibe/go-gaze/pkg/publish"
)

// handleGaze returns the latest estimate in the gaze file format
func (s *Server) handleGaze(c *fiber.Ctx) error {
	return c.JSON(publish.NewRecord(s.backend.Snapshot().Estimate))
}

// handleStatus returns the full session snapshot
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.backend.Snapshot())
}

// handleCommand queues cmd for the tracking loop
func (s *Server) handleCommand(cmd gaze.Command) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !s.backend.Send(cmd) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "command queue full",
			})
		}
		s.log.Info("command queued", "cmd", cmd, "remote", c.IP())
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"command": cmd.String(),
		})
	}
}

// handleGazeWS streams estimates, starting with the current one
func (s *Server) handleGazeWS(c *websocket.Conn) {
	var greeting []hub.Message
	if data, err := json.Marshal(publish.NewRecord(s.backend.Snapshot().Estimate)); err == nil {
		greeting = append(greeting, hub.NewJSONMessage(data))
	}
	hub.NewClient(s.gazeHub, c, greeting...).Run()
}

// handleCameraWS streams JPEG preview frames
func (s *Server) handleCameraWS(c *websocket.Conn) {
	hub.NewClient(s.cameraHub, c).Run()
}
