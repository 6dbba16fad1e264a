package session

import (
	"errors"
	"time"

	"github.com/teslashibe/go-shade/pkg/display"
	"github.com/teslashibe/go-shade/pkg/input"
	"github.com/teslashibe/go-shade/pkg/video"
)

// Config configures a session.
type Config struct {
	// FrameRate is the render loop rate in Hz.
	FrameRate int

	// Mode is the display mounted at startup.
	Mode display.Mode

	Display display.Config
	Input   input.Config

	// Viewport is the default overlay size.
	Viewport input.Viewport

	// Mirror flips camera frames before snapshots and sampling.
	Mirror bool

	// SnapshotWidth is the width of the photo sent to the classifier.
	SnapshotWidth int

	// SnapshotOverlay draws the visualization into the snapshot.
	SnapshotOverlay bool

	// SuggestTimeout bounds one classification.
	SuggestTimeout time.Duration

	// MailboxSize is the number of queued operations the loop accepts.
	MailboxSize int
}

// DefaultConfig returns a 60 Hz wedge session.
func DefaultConfig() Config {
	return Config{
		FrameRate:      60,
		Mode:           display.DefaultMode,
		Display:        display.DefaultConfig(),
		Input:          input.DefaultConfig(),
		Viewport:       input.Viewport{Width: 640, Height: 480},
		Mirror:         true,
		SnapshotWidth:  video.SnapshotSize,
		SuggestTimeout: 60 * time.Second,
		MailboxSize:    64,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.FrameRate <= 0 || c.FrameRate > 240 {
		return errors.New("session: frame rate must be in (0, 240]")
	}
	if _, err := display.ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		return errors.New("session: viewport must be positive")
	}
	if c.MailboxSize <= 0 {
		return errors.New("session: mailbox size must be positive")
	}
	return c.Display.Validate()
}
