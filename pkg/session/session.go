// Package session runs the render loop that owns the selection machine,
// the mounted display and the input adapter.
//
// All state changes happen on the loop goroutine. Other goroutines (HTTP
// handlers, websocket readers, the classifier) post closures with Do and
// wait for the result, so the core types need no locking.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-shade/internal/log"
	"github.com/teslashibe/go-shade/pkg/anim"
	"github.com/teslashibe/go-shade/pkg/choices"
	"github.com/teslashibe/go-shade/pkg/classifier"
	"github.com/teslashibe/go-shade/pkg/display"
	"github.com/teslashibe/go-shade/pkg/inference"
	"github.com/teslashibe/go-shade/pkg/input"
	"github.com/teslashibe/go-shade/pkg/protocol"
	"github.com/teslashibe/go-shade/pkg/render"
	"github.com/teslashibe/go-shade/pkg/selection"
	"github.com/teslashibe/go-shade/pkg/tone"
	"github.com/teslashibe/go-shade/pkg/tracking"
	"github.com/teslashibe/go-shade/pkg/video"
)

// Errors returned by session operations.
var (
	ErrStopped    = errors.New("session: stopped")
	ErrBusy       = errors.New("session: suggestion in progress")
	ErrNoVideo    = errors.New("session: no video source")
	ErrNoFace     = errors.New("session: no face tracked")
	ErrNoModel    = errors.New("session: no classifier configured")
	ErrNoRecorder = errors.New("session: no choice recorder configured")
	ErrNoDisplay  = errors.New("session: no display mounted")
)

// Suggester produces a tone suggestion for an encoded photo.
// *classifier.Classifier implements it.
type Suggester interface {
	SuggestEncoded(ctx context.Context, photo inference.Image) (classifier.Result, error)
}

// Publisher fans session events out to clients. Publish retains the value
// under key for late joiners; BroadcastJSON does not.
type Publisher interface {
	Publish(key string, v interface{}) error
	BroadcastJSON(v interface{}) error
}

// Deps are the session's collaborators. Only Tracker is required.
type Deps struct {
	Tracker    tracking.Tracker
	Video      video.Source
	Classifier Suggester
	Recorder   *choices.Recorder
	Publisher  Publisher
	Clock      anim.Clock
}

// State is a snapshot of the selection for clients.
type State struct {
	Index      int     `json:"index"`
	Tone       string  `json:"tone"`
	Hex        string  `json:"hex"`
	Suggested  *int    `json:"suggested"`
	Mode       string  `json:"mode"`
	Visibility string  `json:"visibility"`
	Rotation   float64 `json:"rotation"`
	Tracked    bool    `json:"tracked"`
	Loading    bool    `json:"loading"`
}

// Session owns the render loop.
type Session struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger

	mailbox  chan func()
	done     chan struct{}
	requests atomic.Uint64

	// loop-owned state below
	registry *tone.Registry
	machine  *selection.Machine
	adapter  *input.Adapter
	display  display.Display
	face     *tracking.Frame
	frame    tracking.Frame
	prims    []display.Primitive

	loading    bool
	pending    uint64
	suggestion classifier.Result
	photo      *inference.Image
	frames     uint64
	panics     uint64
}

// New creates a session and mounts the configured display.
func New(cfg Config, reg *tone.Registry, deps Deps) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Tracker == nil {
		return nil, errors.New("session: tracker required")
	}
	if deps.Clock == nil {
		deps.Clock = anim.SystemClock{}
	}

	s := &Session{
		cfg:        cfg,
		deps:       deps,
		logger:     log.Component("session"),
		mailbox:    make(chan func(), cfg.MailboxSize),
		done:       make(chan struct{}),
		registry:   reg,
		machine:    selection.New(reg),
		suggestion: classifier.Result{Index: -1},
	}
	s.adapter = input.New(cfg.Input, s.machine)
	s.machine.Subscribe(s.onSelection)
	if deps.Recorder != nil && deps.Recorder.OnSaved == nil {
		deps.Recorder.OnSaved = s.onChoice
	}

	if err := s.mount(cfg.Mode); err != nil {
		return nil, err
	}
	return s, nil
}

// Run drives the render loop until ctx is cancelled. Queued operations run
// between frames.
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.FrameRate))
	defer ticker.Stop()
	defer close(s.done)
	defer s.teardown()

	s.logger.Info("render loop started", "fps", s.cfg.FrameRate, "mode", s.display.Mode())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("render loop stopped", "frames", s.frames, "panics", s.panics)
			return
		case fn := <-s.mailbox:
			s.guard("operation", fn)
		case <-ticker.C:
			s.guard("frame", s.tick)
		}
	}
}

// Do runs fn on the loop goroutine and returns its error. It fails with
// ErrStopped once the loop has exited and with ctx's error if ctx ends
// first.
func (s *Session) Do(ctx context.Context, fn func() error) error {
	_, err := doValue(ctx, s, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

type outcome[T any] struct {
	value T
	err   error
}

// doValue runs fn on the loop goroutine and hands its result back over a
// channel. fn must only write its own locals: a caller whose ctx ends
// returns early while fn may still run later.
func doValue[T any](ctx context.Context, s *Session, fn func() (T, error)) (T, error) {
	var zero T
	result := make(chan outcome[T], 1)
	op := func() {
		defer func() {
			if r := recover(); r != nil {
				result <- outcome[T]{err: fmt.Errorf("session: operation panicked: %v", r)}
				panic(r)
			}
		}()
		v, err := fn()
		result <- outcome[T]{value: v, err: err}
	}

	select {
	case s.mailbox <- op:
	case <-s.done:
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case out := <-result:
		return out.value, out.err
	case <-s.done:
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// guard runs fn and keeps the loop alive if it panics.
func (s *Session) guard(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.panics++
			s.logger.Error("recovered panic", "in", what, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn()
}

// tick advances one frame: poll the tracker, then update the display.
func (s *Session) tick() {
	s.frames++
	if f, ok := s.deps.Tracker.Latest(); ok {
		s.frame = f
		s.face = &s.frame
	} else {
		s.face = nil
	}
	if s.display != nil {
		s.display.Update(s.deps.Clock.Now(), s.face)
	}
}

func (s *Session) teardown() {
	if s.display != nil {
		s.display.Dispose()
	}
}

// mount replaces the display. The new display re-asserts the default
// selection; the suggestion highlight is kept. An unknown mode leaves the
// current display in place, and a failed mount restores the previous mode.
func (s *Session) mount(mode display.Mode) error {
	mode, err := display.ParseMode(string(mode))
	if err != nil {
		return err
	}
	var prev display.Mode
	if s.display != nil {
		prev = s.display.Mode()
		s.display.Dispose()
		s.display = nil
		s.adapter.SetDisplay(nil)
	}
	d, err := display.Mount(mode, s.machine, s.cfg.Display, s.deps.Clock)
	if err != nil {
		if prev != "" {
			if old, rerr := display.Mount(prev, s.machine, s.cfg.Display, s.deps.Clock); rerr == nil {
				s.display = old
				s.adapter.SetDisplay(old)
			} else {
				s.logger.Error("restore display", "mode", prev, "error", rerr)
			}
		}
		return err
	}
	s.display = d
	s.adapter.SetDisplay(d)
	if s.face != nil {
		d.Update(s.deps.Clock.Now(), s.face)
	}
	s.publish(string(protocol.TypeMode), protocol.TypeMode, protocol.ModeData{Mode: string(mode)})
	return nil
}

// onSelection forwards machine events to clients.
func (s *Session) onSelection(selection.Event) {
	st := s.state()
	s.publish(string(protocol.TypeSelection), protocol.TypeSelection, protocol.SelectionData{
		Index:     st.Index,
		Tone:      st.Tone,
		Hex:       st.Hex,
		Suggested: st.Suggested,
	})
}

// publish sends a protocol message; key retains it for late joiners.
func (s *Session) publish(key string, typ protocol.MessageType, data interface{}) {
	if s.deps.Publisher == nil {
		return
	}
	msg, err := protocol.NewMessage(typ, data)
	if err != nil {
		s.logger.Warn("encode event", "type", typ, "error", err)
		return
	}
	if key != "" {
		err = s.deps.Publisher.Publish(key, msg)
	} else {
		err = s.deps.Publisher.BroadcastJSON(msg)
	}
	if err != nil {
		s.logger.Warn("publish event", "type", typ, "error", err)
	}
}

func (s *Session) state() State {
	i, t := s.machine.Selected()
	st := State{
		Index:      i,
		Tone:       t.Name,
		Hex:        t.Hex(),
		Visibility: display.Shown.String(),
		Tracked:    s.face != nil,
		Loading:    s.loading,
	}
	if sug, err := s.machine.Suggested(); err == nil {
		st.Suggested = &sug
	}
	if s.display == nil {
		// mid-mount
		return st
	}
	st.Mode = string(s.display.Mode())
	if a, ok := display.AsAnimator(s.display); ok {
		st.Visibility = a.Visibility().String()
	}
	if r, ok := display.AsRotator(s.display); ok {
		st.Rotation = r.Rotation()
	}
	return st
}

// Registry returns the tone registry. It is immutable and safe to share.
func (s *Session) Registry() *tone.Registry {
	return s.registry
}

// State returns the current selection state.
func (s *Session) State(ctx context.Context) (State, error) {
	return doValue(ctx, s, func() (State, error) {
		return s.state(), nil
	})
}

// Select selects tone i.
func (s *Session) Select(ctx context.Context, i int) error {
	return s.Do(ctx, func() error { return s.machine.SelectTone(i) })
}

// SelectName selects a tone by name.
func (s *Session) SelectName(ctx context.Context, name string) error {
	return s.Do(ctx, func() error { return s.machine.SelectName(name) })
}

// Next selects the next tone, wrapping around.
func (s *Session) Next(ctx context.Context) error {
	return s.Do(ctx, func() error { return s.machine.SelectNext() })
}

// Previous selects the previous tone, wrapping around.
func (s *Session) Previous(ctx context.Context) error {
	return s.Do(ctx, func() error { return s.machine.SelectPrevious() })
}

// SetMode switches the mounted display.
func (s *Session) SetMode(ctx context.Context, mode display.Mode) error {
	mode, err := display.ParseMode(string(mode))
	if err != nil {
		return err
	}
	return s.Do(ctx, func() error {
		if s.display != nil && s.display.Mode() == mode {
			return nil
		}
		s.logger.Info("switching display", "to", mode)
		return s.mount(mode)
	})
}

// Click handles a pointer click at viewport pixel (x, y).
func (s *Session) Click(ctx context.Context, x, y float64, vp input.Viewport) (bool, error) {
	return doValue(ctx, s, func() (bool, error) {
		return s.adapter.Click(x, y, vp)
	})
}

// Swipe handles horizontal travel from startX to endX.
func (s *Session) Swipe(ctx context.Context, startX, endX float64) (input.Gesture, error) {
	return doValue(ctx, s, func() (input.Gesture, error) {
		return s.adapter.Swipe(startX, endX)
	})
}

// Press starts a pointer sequence.
func (s *Session) Press(ctx context.Context, x, y float64, vp input.Viewport) error {
	return s.Do(ctx, func() error { return s.adapter.Press(x, y, vp) })
}

// Move continues a pointer sequence.
func (s *Session) Move(ctx context.Context, x, y float64, vp input.Viewport) error {
	return s.Do(ctx, func() error { return s.adapter.Move(x, y, vp) })
}

// Release ends a pointer sequence.
func (s *Session) Release(ctx context.Context, x float64) (input.Gesture, error) {
	return doValue(ctx, s, func() (input.Gesture, error) {
		return s.adapter.Release(x)
	})
}

// Scroll rotates the display. It reports whether the display rotated.
func (s *Session) Scroll(ctx context.Context, deltaY float64) (bool, error) {
	return doValue(ctx, s, func() (bool, error) {
		return s.adapter.Scroll(deltaY), nil
	})
}

// Key handles a key press.
func (s *Session) Key(ctx context.Context, name string) (input.Gesture, error) {
	return doValue(ctx, s, func() (input.Gesture, error) {
		return s.adapter.Key(name)
	})
}

// External applies a selection made from the page's tone swatches.
func (s *Session) External(ctx context.Context, i int) error {
	return s.Do(ctx, func() error { return s.adapter.External(i) })
}

// Overlay renders the visualization for a width x height viewport.
func (s *Session) Overlay(ctx context.Context, width, height int) (*image.RGBA, error) {
	r, err := render.New(s.cfg.Input.Camera, width, height)
	if err != nil {
		return nil, err
	}
	return doValue(ctx, s, func() (*image.RGBA, error) {
		if s.display == nil {
			return nil, ErrNoDisplay
		}
		s.prims = s.display.Primitives(s.prims[:0])
		return r.Draw(s.prims), nil
	})
}
