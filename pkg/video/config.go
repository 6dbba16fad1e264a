package video

import "time"

// SnapshotSize is the width of images sent to the classifier.
const SnapshotSize = 200

// Config holds camera and snapshot settings.
type Config struct {
	// Device is the capture device index for local webcams.
	Device int `json:"device"`

	Width     int `json:"width"`     // Frame width in pixels
	Height    int `json:"height"`    // Frame height in pixels
	Framerate int `json:"framerate"` // Target FPS
	Quality   int `json:"quality"`   // JPEG quality 1-100

	// Mirror flips frames horizontally so the picture matches a mirror.
	Mirror bool `json:"mirror"`

	// SnapshotSize is the width snapshots are scaled to.
	SnapshotSize int `json:"snapshot_size"`

	// MinInterval rate-limits how often frames are decoded.
	MinInterval time.Duration `json:"min_interval"`
}

// DefaultConfig returns 640x480 at 30 FPS, mirrored.
func DefaultConfig() Config {
	return Config{
		Device:       0,
		Width:        640,
		Height:       480,
		Framerate:    30,
		Quality:      85,
		Mirror:       true,
		SnapshotSize: SnapshotSize,
		MinInterval:  33 * time.Millisecond,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errs []string

	if c.Device < 0 {
		errs = append(errs, "device must be >= 0")
	}
	if c.Width < 160 || c.Width > 4096 {
		errs = append(errs, "width must be between 160 and 4096")
	}
	if c.Height < 120 || c.Height > 4096 {
		errs = append(errs, "height must be between 120 and 4096")
	}
	if c.Framerate < 1 || c.Framerate > 120 {
		errs = append(errs, "framerate must be between 1 and 120")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errs = append(errs, "quality must be between 1 and 100")
	}
	if c.SnapshotSize < 16 {
		errs = append(errs, "snapshot_size must be at least 16")
	}
	if c.MinInterval < 0 {
		errs = append(errs, "min_interval must not be negative")
	}

	return errs
}
