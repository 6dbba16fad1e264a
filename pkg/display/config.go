package display

import (
	"errors"
	"math"
	"time"

	"github.com/teslashibe/go-shade/pkg/anim"
	"github.com/teslashibe/go-shade/pkg/tracking"
)

// Config holds fixed display parameters. None of these change at runtime.
type Config struct {
	// InnerRadius is the radius of the wedge's hole.
	InnerRadius float64

	// MinOuterRadius and MaxOuterRadius bound every segment height.
	MinOuterRadius float64
	MaxOuterRadius float64

	// CornerFactor scales corner rounding relative to the smaller radius.
	CornerFactor float64

	// Gap pushes each segment outward along its bisector.
	Gap float64

	// Sweep is the total angle shared by all segments, in radians.
	Sweep float64

	// Durations per transition.
	SelectDuration    time.Duration
	AppearDuration    time.Duration
	DisappearDuration time.Duration

	// RebuildHz caps how often segment geometry is rebuilt while animating.
	RebuildHz int

	// Anchor is the landmark the wedge follows.
	Anchor int

	// DotRadius is the dot marker radius in scene units.
	DotRadius float64

	// Spring parameters for smoothing wedge rotation.
	SpringFPS       int
	SpringFrequency float64
	SpringDamping   float64
}

// DefaultConfig returns the standard display configuration.
func DefaultConfig() Config {
	return Config{
		InnerRadius:       0.5,
		MinOuterRadius:    0.8,
		MaxOuterRadius:    1.2,
		CornerFactor:      0.1,
		Gap:               0.02,
		Sweep:             math.Pi,
		SelectDuration:    anim.SelectDuration,
		AppearDuration:    anim.AppearDuration,
		DisappearDuration: anim.DisappearDuration,
		RebuildHz:         anim.RebuildRate,
		Anchor:            tracking.WedgeAnchor,
		DotRadius:         0.08,
		SpringFPS:         60,
		SpringFrequency:   6.0,
		SpringDamping:     1.0,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error
	if c.InnerRadius <= 0 {
		errs = append(errs, errors.New("display: inner radius must be positive"))
	}
	if c.MinOuterRadius <= c.InnerRadius {
		errs = append(errs, errors.New("display: min outer radius must exceed inner radius"))
	}
	if c.MaxOuterRadius < c.MinOuterRadius {
		errs = append(errs, errors.New("display: max outer radius below min"))
	}
	if c.CornerFactor < 0 || c.CornerFactor > 1 {
		errs = append(errs, errors.New("display: corner factor must be in [0,1]"))
	}
	if c.Gap < 0 {
		errs = append(errs, errors.New("display: gap must not be negative"))
	}
	if c.Sweep <= 0 || c.Sweep > 2*math.Pi {
		errs = append(errs, errors.New("display: sweep must be in (0, 2pi]"))
	}
	if c.RebuildHz <= 0 {
		errs = append(errs, errors.New("display: rebuild rate must be positive"))
	}
	if c.DotRadius <= 0 {
		errs = append(errs, errors.New("display: dot radius must be positive"))
	}
	if c.SpringFPS <= 0 {
		errs = append(errs, errors.New("display: spring fps must be positive"))
	}
	return errors.Join(errs...)
}
