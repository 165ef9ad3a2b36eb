// Package camera holds webcam capture settings.
package camera

import "fmt"

// Config holds webcam capture parameters.
type Config struct {
	Device    int  `json:"device"`    // Capture device index
	Width     int  `json:"width"`     // Requested frame width in pixels
	Height    int  `json:"height"`    // Requested frame height in pixels
	Framerate int  `json:"framerate"` // Requested FPS, 0 = driver default
	Mirror    bool `json:"mirror"`    // Flip horizontally so the preview behaves like a mirror
}

// Limits for requested resolutions. Drivers may still deliver less.
const (
	MinWidth  = 160
	MinHeight = 120
	MaxWidth  = 3840
	MaxHeight = 2160
)

// DefaultConfig requests 1280x720 at 30 fps from the first webcam, mirrored.
// Higher resolutions give the eye cascade more pixels per eye.
func DefaultConfig() Config {
	return Config{
		Device:    0,
		Width:     1280,
		Height:    720,
		Framerate: 30,
		Mirror:    true,
	}
}

// String describes the requested mode for logs.
func (c Config) String() string {
	return fmt.Sprintf("device %d %dx%d@%d", c.Device, c.Width, c.Height, c.Framerate)
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device < 0 {
		errors = append(errors, "device must be >= 0")
	}
	if c.Width < MinWidth || c.Width > MaxWidth {
		errors = append(errors, fmt.Sprintf("width must be between %d and %d", MinWidth, MaxWidth))
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errors = append(errors, fmt.Sprintf("height must be between %d and %d", MinHeight, MaxHeight))
	}
	if c.Framerate < 0 || c.Framerate > 120 {
		errors = append(errors, "framerate must be between 0 and 120")
	}

	return errors
}
