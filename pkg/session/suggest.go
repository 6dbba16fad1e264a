package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/teslashibe/go-shade/pkg/choices"
	"github.com/teslashibe/go-shade/pkg/classifier"
	"github.com/teslashibe/go-shade/pkg/display"
	"github.com/teslashibe/go-shade/pkg/inference"
	"github.com/teslashibe/go-shade/pkg/protocol"
	"github.com/teslashibe/go-shade/pkg/render"
	"github.com/teslashibe/go-shade/pkg/tracking"
	"github.com/teslashibe/go-shade/pkg/video"
)

// Suggest photographs the current frame, asks the classifier for a tone
// and highlights the answer. The wedge hides while the classifier runs and
// reappears with the result. A failed or unmatched answer clears the
// highlight and is reported with Index -1.
func (s *Session) Suggest(ctx context.Context) (classifier.Result, error) {
	none := classifier.Result{Index: -1}
	if s.deps.Classifier == nil {
		return none, ErrNoModel
	}
	if s.deps.Video == nil {
		return none, ErrNoVideo
	}

	// token ties the loading state to this request so an abandoned request
	// can release it
	token := s.requests.Add(1)
	snap, err := doValue(ctx, s, func() (image.Image, error) {
		if s.loading {
			return nil, ErrBusy
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame, err := s.deps.Video.Read()
		if err != nil {
			return nil, fmt.Errorf("session: read frame: %w", err)
		}

		var overlay image.Image
		if s.cfg.SnapshotOverlay {
			b := frame.Bounds()
			r, err := render.New(s.cfg.Input.Camera, b.Dx(), b.Dy())
			if err != nil {
				return nil, err
			}
			if s.display != nil {
				s.prims = s.display.Primitives(s.prims[:0])
				overlay = r.Draw(s.prims)
			}
		}
		snap := video.Compose(frame, overlay, s.cfg.Mirror, s.cfg.SnapshotWidth)

		s.loading = true
		s.pending = token
		if a, ok := display.AsAnimator(s.display); ok {
			if err := a.Disappear(s.deps.Clock.Now()); err != nil {
				s.logger.Debug("disappear", "error", err)
			}
		}
		s.publish(string(protocol.TypeSuggestion), protocol.TypeSuggestion, protocol.SuggestionData{Loading: true})
		return snap, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			go s.abandon(token)
		}
		return none, err
	}

	res, serr := none, error(nil)
	photo, perr := inference.FromImage(snap)
	if perr != nil {
		serr = fmt.Errorf("session: encode snapshot: %w", perr)
	} else {
		cctx := ctx
		if s.cfg.SuggestTimeout > 0 {
			var cancel context.CancelFunc
			cctx, cancel = context.WithTimeout(ctx, s.cfg.SuggestTimeout)
			defer cancel()
		}
		res, serr = s.deps.Classifier.SuggestEncoded(cctx, photo)
	}
	if serr != nil {
		res = none
		s.logger.Warn("suggestion failed", "error", serr)
	}

	// the loading state must be cleared even when the caller gave up
	err = s.Do(context.WithoutCancel(ctx), func() error {
		if s.pending == token {
			s.finishSuggest(res, photo, perr == nil)
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrStopped) {
		return res, err
	}
	return res, serr
}

// abandon releases the loading state of a request whose caller left before
// learning whether its snapshot was taken.
func (s *Session) abandon(token uint64) {
	err := s.Do(context.Background(), func() error {
		if s.loading && s.pending == token {
			s.finishSuggest(classifier.Result{Index: -1}, inference.Image{}, false)
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrStopped) {
		s.logger.Warn("release suggestion", "error", err)
	}
}

func (s *Session) finishSuggest(res classifier.Result, photo inference.Image, havePhoto bool) {
	s.loading = false
	s.pending = 0
	s.suggestion = res
	s.photo = nil
	if havePhoto {
		s.photo = &photo
	}

	if res.Found() {
		if err := s.machine.Suggest(res.Index); err != nil {
			s.logger.Warn("apply suggestion", "index", res.Index, "error", err)
		}
	} else {
		s.machine.ClearSuggestion()
	}

	if a, ok := display.AsAnimator(s.display); ok {
		if err := a.Appear(s.deps.Clock.Now()); err != nil {
			s.logger.Debug("appear", "error", err)
		}
	}

	data := protocol.SuggestionData{
		Text:      res.Text,
		Provider:  res.Provider,
		LatencyMs: res.Latency.Milliseconds(),
	}
	if res.Found() {
		i := res.Index
		data.Index = &i
		data.Tone = res.Tone.Name
	}
	s.publish(string(protocol.TypeSuggestion), protocol.TypeSuggestion, data)
}

// LastSuggestion returns the most recent classifier result.
func (s *Session) LastSuggestion(ctx context.Context) (classifier.Result, error) {
	return doValue(ctx, s, func() (classifier.Result, error) {
		return s.suggestion, nil
	})
}

// Confirm records the selected tone against the last suggestion. The
// record is saved in the background; the returned choice has no ID yet.
func (s *Session) Confirm(ctx context.Context) (choices.Choice, error) {
	if s.deps.Recorder == nil {
		return choices.Choice{}, ErrNoRecorder
	}
	type pick struct {
		choice choices.Choice
		photo  *inference.Image
	}
	p, err := doValue(ctx, s, func() (pick, error) {
		_, t := s.machine.Selected()
		c := choices.Choice{
			UserTone: t.Name,
			AIText:   s.suggestion.Text,
			Provider: s.suggestion.Provider,
		}
		if s.display != nil {
			c.Mode = string(s.display.Mode())
		}
		if s.suggestion.Found() {
			c.AITone = s.suggestion.Tone.Name
		}
		return pick{choice: c, photo: s.photo}, nil
	})
	if err != nil {
		return choices.Choice{}, err
	}
	s.deps.Recorder.Record(p.choice, p.photo)
	return p.choice, nil
}

// onChoice announces a saved choice. It runs on the recorder's goroutine.
func (s *Session) onChoice(c *choices.Choice) {
	s.publish("", protocol.TypeChoice, protocol.ChoiceData{
		ID:       c.ID,
		UserTone: c.UserTone,
		AITone:   c.AITone,
		Agreed:   c.Agreed(),
	})
}

// Sample is the camera color read at the dot anchors.
type Sample struct {
	Average colorful.Color
	Colors  []colorful.Color

	// Nearest is the registry tone closest to Average.
	Nearest  int
	Distance float64
}

// Sample reads the camera frame under the dot anchors and finds the
// registry tone nearest to their average.
func (s *Session) Sample(ctx context.Context) (Sample, error) {
	if s.deps.Video == nil {
		return Sample{}, ErrNoVideo
	}
	out, err := doValue(ctx, s, func() (Sample, error) {
		var out Sample
		if s.face == nil {
			return out, ErrNoFace
		}
		frame, err := s.deps.Video.Read()
		if err != nil {
			return out, fmt.Errorf("session: read frame: %w", err)
		}
		if s.cfg.Mirror {
			frame = video.Mirror(frame)
		}
		b := frame.Bounds()
		r, err := render.New(s.cfg.Input.Camera, b.Dx(), b.Dy())
		if err != nil {
			return out, err
		}

		world := make([]r3.Vector, len(tracking.DotAnchors))
		for i, a := range tracking.DotAnchors {
			world[i] = s.face.AnchorOrFace(a).Position()
		}
		sample, ok := video.SampleAverage(frame, r.Points(world))
		if !ok {
			return out, ErrNoFace
		}

		out.Average = toColorful(sample.Average)
		for i, c := range sample.Colors {
			if missed(sample.Missed, i) {
				continue
			}
			out.Colors = append(out.Colors, toColorful(c))
		}
		out.Nearest, out.Distance = s.registry.Nearest(sample.Average)
		return out, nil
	})
	if err != nil {
		return out, err
	}

	data := protocol.SampleData{
		Average: out.Average.Hex(),
		Nearest: s.registry.At(out.Nearest).Name,
	}
	for _, c := range out.Colors {
		data.Colors = append(data.Colors, c.Hex())
	}
	s.publish("", protocol.TypeSample, data)
	return out, nil
}

func toColorful(c color.RGBA) colorful.Color {
	out, _ := colorful.MakeColor(c)
	return out
}

func missed(list []int, i int) bool {
	for _, m := range list {
		if m == i {
			return true
		}
	}
	return false
}
