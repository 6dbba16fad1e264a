// Package debug provides global verbose-logging switches.
//
// Per-frame traces (tracker hits, throttled rebuilds, relay traffic) are too
// noisy for the normal debug level, so they are gated here and only emitted
// when the matching flag is set from the command line.
package debug

import (
	"github.com/teslashibe/go-shade/internal/log"
)

// Enabled controls general debug tracing.
var Enabled bool

// Tracking controls per-frame tracker and render-loop tracing.
// Set with --debug-tracking.
var Tracking bool

// Log emits a debug record when Enabled is set.
func Log(msg string, args ...any) {
	if Enabled {
		log.Debug(msg, args...)
	}
}

// TrackLog emits a debug record when Tracking is set.
func TrackLog(msg string, args ...any) {
	if Tracking {
		log.Debug(msg, append([]any{"trace", "tracking"}, args...)...)
	}
}
