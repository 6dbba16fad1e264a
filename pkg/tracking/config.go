package tracking

import (
	"errors"
	"time"

	"github.com/teslashibe/go-shade/pkg/geometry"
)

// Config holds tunable parameters for face tracking.
type Config struct {
	// DetectionInterval is how often the detector runs.
	DetectionInterval time.Duration

	// StaleAfter drops a face that has not been seen for this long.
	StaleAfter time.Duration

	// PositionSmoothing is the exponential smoothing factor (0-1, higher
	// trusts new data more).
	PositionSmoothing float64

	// FaceHeight is the face bounding-box height in face-space units.
	FaceHeight float64

	// Mirror flips detections horizontally to match a mirrored preview.
	Mirror bool

	// Camera is the scene camera used to lift image points into the scene.
	Camera geometry.Camera
}

// DefaultConfig returns the recommended tracking configuration.
func DefaultConfig() Config {
	return Config{
		DetectionInterval: 100 * time.Millisecond,
		StaleAfter:        time.Second,
		PositionSmoothing: 0.6,
		FaceHeight:        2.0,
		Mirror:            true,
		Camera:            geometry.DefaultCamera(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error
	if c.DetectionInterval <= 0 {
		errs = append(errs, errors.New("tracking: detection interval must be positive"))
	}
	if c.PositionSmoothing <= 0 || c.PositionSmoothing > 1 {
		errs = append(errs, errors.New("tracking: position smoothing must be in (0,1]"))
	}
	if c.FaceHeight <= 0 {
		errs = append(errs, errors.New("tracking: face height must be positive"))
	}
	if c.Camera.Z <= 0 || c.Camera.FOV <= 0 || c.Camera.Aspect <= 0 {
		errs = append(errs, errors.New("tracking: invalid camera"))
	}
	return errors.Join(errs...)
}
