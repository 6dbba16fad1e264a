package web

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-shade/pkg/classifier"
	"github.com/teslashibe/go-shade/pkg/display"
	"github.com/teslashibe/go-shade/pkg/input"
	"github.com/teslashibe/go-shade/pkg/render"
	"github.com/teslashibe/go-shade/pkg/selection"
	"github.com/teslashibe/go-shade/pkg/session"
	"github.com/teslashibe/go-shade/pkg/tone"
)

// maxOverlaySide caps overlay renders.
const maxOverlaySide = 4096

// ToneInfo describes one registry tone.
type ToneInfo struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Hex   string `json:"hex"`
}

// SelectRequest selects by index or, when Name is set, by name.
type SelectRequest struct {
	Index *int   `json:"index"`
	Name  string `json:"name"`
}

// PointerRequest is a click or drag step in viewport pixels.
type PointerRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}

// SwipeRequest is a completed horizontal swipe.
type SwipeRequest struct {
	StartX float64 `json:"start_x"`
	EndX   float64 `json:"end_x"`
}

// DragRequest is one step of a pointer sequence: "press", "move" or
// "release".
type DragRequest struct {
	Phase string `json:"phase"`
	PointerRequest
}

// SuggestResponse is the classifier outcome. Suggested is null when the
// answer named no tone or the classifier failed.
type SuggestResponse struct {
	Suggested *int   `json:"suggested"`
	Tone      string `json:"tone,omitempty"`
	Text      string `json:"text,omitempty"`
	Provider  string `json:"provider,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) ctx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), s.opts.RequestTimeout)
}

// handleError maps session and core errors to HTTP statuses.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	var fe *fiber.Error
	var re *selection.RangeError
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.As(err, &re),
		errors.Is(err, input.ErrViewport),
		errors.Is(err, render.ErrViewport),
		errors.Is(err, display.ErrUnknownMode):
		return fiber.StatusBadRequest
	case errors.Is(err, tone.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, session.ErrBusy),
		errors.Is(err, session.ErrNoFace):
		return fiber.StatusConflict
	case errors.Is(err, session.ErrNoVideo),
		errors.Is(err, session.ErrNoModel),
		errors.Is(err, session.ErrNoRecorder),
		errors.Is(err, session.ErrStopped):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	ctx, cancel := s.ctx(c)
	defer cancel()
	if _, err := s.opts.Session.State(ctx); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":  "ok",
		"clients": s.opts.Events.ClientCount(),
		"dropped": s.opts.Events.Dropped(),
	})
}

func (s *Server) handleTones(c *fiber.Ctx) error {
	reg := s.opts.Session.Registry()
	tones := make([]ToneInfo, 0, reg.Len())
	for i, t := range reg.All() {
		tones = append(tones, ToneInfo{Index: i, Name: t.Name, Hex: t.Hex()})
	}
	return c.JSON(tones)
}

func (s *Server) handleGetSelection(c *fiber.Ctx) error {
	ctx, cancel := s.ctx(c)
	defer cancel()
	st, err := s.opts.Session.State(ctx)
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (s *Server) handleSetSelection(c *fiber.Ctx) error {
	var req SelectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	var err error
	switch {
	case req.Name != "":
		err = s.opts.Session.SelectName(ctx, req.Name)
	case req.Index != nil:
		err = s.opts.Session.Select(ctx, *req.Index)
	default:
		return fiber.NewError(fiber.StatusBadRequest, "index or name required")
	}
	if err != nil {
		return err
	}
	return s.handleGetSelection(c)
}

func (s *Server) handleNext(c *fiber.Ctx) error {
	ctx, cancel := s.ctx(c)
	defer cancel()
	if err := s.opts.Session.Next(ctx); err != nil {
		return err
	}
	return s.handleGetSelection(c)
}

func (s *Server) handlePrevious(c *fiber.Ctx) error {
	ctx, cancel := s.ctx(c)
	defer cancel()
	if err := s.opts.Session.Previous(ctx); err != nil {
		return err
	}
	return s.handleGetSelection(c)
}

func (r PointerRequest) viewport() input.Viewport {
	return input.Viewport{Width: r.Width, Height: r.Height}
}

func (s *Server) handleClick(c *fiber.Ctx) error {
	var req PointerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	ctx, cancel := s.ctx(c)
	defer cancel()
	hit, err := s.opts.Session.Click(ctx, req.X, req.Y, req.viewport())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"hit": hit})
}

func (s *Server) handleSwipe(c *fiber.Ctx) error {
	var req SwipeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	ctx, cancel := s.ctx(c)
	defer cancel()
	g, err := s.opts.Session.Swipe(ctx, req.StartX, req.EndX)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"gesture": g.String()})
}

func (s *Server) handleScroll(c *fiber.Ctx) error {
	var req struct {
		DeltaY float64 `json:"delta_y"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	ctx, cancel := s.ctx(c)
	defer cancel()
	rotated, err := s.opts.Session.Scroll(ctx, req.DeltaY)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"rotated": rotated})
}

func (s *Server) handleKey(c *fiber.Ctx) error {
	var req struct {
		Key string `json:"key"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	ctx, cancel := s.ctx(c)
	defer cancel()
	g, err := s.opts.Session.Key(ctx, req.Key)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"gesture": g.String()})
}

func (s *Server) handleDrag(c *fiber.Ctx) error {
	var req DragRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	ctx, cancel := s.ctx(c)
	defer cancel()

	gesture := input.GestureNone
	var err error
	switch req.Phase {
	case "press":
		err = s.opts.Session.Press(ctx, req.X, req.Y, req.viewport())
	case "move":
		err = s.opts.Session.Move(ctx, req.X, req.Y, req.viewport())
	case "release":
		gesture, err = s.opts.Session.Release(ctx, req.X)
	default:
		return fiber.NewError(fiber.StatusBadRequest, "phase must be press, move or release")
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"gesture": gesture.String()})
}

func (s *Server) handleGetMode(c *fiber.Ctx) error {
	ctx, cancel := s.ctx(c)
	defer cancel()
	st, err := s.opts.Session.State(ctx)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"mode": st.Mode})
}

func (s *Server) handleSetMode(c *fiber.Ctx) error {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	mode, err := display.ParseMode(strings.ToUpper(req.Mode))
	if err != nil {
		return err
	}
	ctx, cancel := s.ctx(c)
	defer cancel()
	if err := s.opts.Session.SetMode(ctx, mode); err != nil {
		return err
	}
	return s.handleGetSelection(c)
}

// handleSuggest runs the classifier. Classifier failures are reported in
// the body with a null suggestion; only unusable setups are HTTP errors.
func (s *Server) handleSuggest(c *fiber.Ctx) error {
	res, err := s.opts.Session.Suggest(c.UserContext())
	switch {
	case errors.Is(err, session.ErrBusy),
		errors.Is(err, session.ErrNoModel),
		errors.Is(err, session.ErrNoVideo),
		errors.Is(err, session.ErrStopped):
		return err
	}
	return c.JSON(suggestResponse(res, err))
}

func suggestResponse(res classifier.Result, err error) SuggestResponse {
	out := SuggestResponse{
		Text:      res.Text,
		Provider:  res.Provider,
		LatencyMs: res.Latency.Milliseconds(),
	}
	if res.Found() {
		i := res.Index
		out.Suggested = &i
		out.Tone = res.Tone.Name
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

func (s *Server) handleListChoices(c *fiber.Ctx) error {
	if s.opts.Choices == nil {
		return session.ErrNoRecorder
	}
	limit := c.QueryInt("limit", 50)
	ctx, cancel := s.ctx(c)
	defer cancel()
	list, err := s.opts.Choices.List(ctx, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"choices": list, "count": len(list)})
}

func (s *Server) handleConfirm(c *fiber.Ctx) error {
	ctx, cancel := s.ctx(c)
	defer cancel()
	choice, err := s.opts.Session.Confirm(ctx)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"user_tone": choice.UserTone,
		"ai_tone":   choice.AITone,
		"agreed":    choice.Agreed(),
	})
}

func (s *Server) handleSample(c *fiber.Ctx) error {
	ctx, cancel := s.ctx(c)
	defer cancel()
	sample, err := s.opts.Session.Sample(ctx)
	if err != nil {
		return err
	}
	colors := make([]string, len(sample.Colors))
	for i, col := range sample.Colors {
		colors[i] = col.Hex()
	}
	nearest := s.opts.Session.Registry().At(sample.Nearest)
	return c.JSON(fiber.Map{
		"average":  sample.Average.Hex(),
		"colors":   colors,
		"nearest":  ToneInfo{Index: sample.Nearest, Name: nearest.Name, Hex: nearest.Hex()},
		"distance": sample.Distance,
	})
}

func (s *Server) handleOverlay(c *fiber.Ctx) error {
	w := c.QueryInt("width", 640)
	h := c.QueryInt("height", 480)
	if w > maxOverlaySide || h > maxOverlaySide {
		return fiber.NewError(fiber.StatusBadRequest, "overlay too large")
	}
	ctx, cancel := s.ctx(c)
	defer cancel()
	img, err := s.opts.Session.Overlay(ctx, w, h)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(buf.Bytes())
}
