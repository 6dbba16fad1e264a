package tone

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Slice-count bounds for a registry.
const (
	MinTones = 2
	MaxTones = 20
)

var (
	// ErrEmptyName is returned when a tone has no name.
	ErrEmptyName = errors.New("tone: empty name")

	// ErrDuplicateName is returned when two tones share a name.
	ErrDuplicateName = errors.New("tone: duplicate name")

	// ErrCount is returned when a registry has too few or too many tones.
	ErrCount = errors.New("tone: tone count out of range")

	// ErrNotFound is returned when a name is not in the registry.
	ErrNotFound = errors.New("tone: not found")
)

// DefaultSpecs is the built-in palette.
var DefaultSpecs = []Spec{
	{Name: "PEARL", Hex: "#DEB99C"},
	{Name: "UDAY", Hex: "#AD846B"},
	{Name: "RAVEN", Hex: "#967759"},
	{Name: "BOJANGLES", Hex: "#5E4E3E"},
}

// Registry is an ordered, immutable list of tones.
type Registry struct {
	tones []Tone
	index map[string]int
}

// New builds a registry from specs. Order is preserved.
func New(specs []Spec) (*Registry, error) {
	if len(specs) < MinTones || len(specs) > MaxTones {
		return nil, fmt.Errorf("%w: got %d, want %d..%d", ErrCount, len(specs), MinTones, MaxTones)
	}

	r := &Registry{
		tones: make([]Tone, 0, len(specs)),
		index: make(map[string]int, len(specs)),
	}
	for _, s := range specs {
		t, err := Parse(s)
		if err != nil {
			return nil, err
		}
		if _, dup := r.index[t.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, t.Name)
		}
		r.index[t.Name] = len(r.tones)
		r.tones = append(r.tones, t)
	}
	return r, nil
}

// Default returns the built-in four-tone registry.
func Default() *Registry {
	r, err := New(DefaultSpecs)
	if err != nil {
		panic(err)
	}
	return r
}

// Len returns the number of tones.
func (r *Registry) Len() int {
	return len(r.tones)
}

// At returns the tone at index i. It panics when i is out of range.
func (r *Registry) At(i int) Tone {
	return r.tones[i]
}

// All returns a copy of the tones in order.
func (r *Registry) All() []Tone {
	out := make([]Tone, len(r.tones))
	copy(out, r.tones)
	return out
}

// Names returns the tone names in order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.tones))
	for i, t := range r.tones {
		names[i] = t.Name
	}
	return names
}

// Index returns the position of the named tone (case-insensitive).
func (r *Registry) Index(name string) (int, error) {
	i, ok := r.index[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return i, nil
}

// Match finds the tone whose name appears in text, ignoring case.
// When several names occur the earliest occurrence wins, and the longer
// name wins a tie at the same offset. ok is false when nothing matches.
func (r *Registry) Match(text string) (idx int, ok bool) {
	upper := strings.ToUpper(text)
	best, bestPos, bestLen := -1, -1, 0
	for i, t := range r.tones {
		pos := strings.Index(upper, t.Name)
		if pos < 0 {
			continue
		}
		if best < 0 || pos < bestPos || (pos == bestPos && len(t.Name) > bestLen) {
			best, bestPos, bestLen = i, pos, len(t.Name)
		}
	}
	return best, best >= 0
}

// Nearest returns the index of the tone perceptually closest to c (CIE Lab)
// and the distance to it.
func (r *Registry) Nearest(c color.Color) (int, float64) {
	target, _ := colorful.MakeColor(c)
	best, bestDist := 0, -1.0
	for i, t := range r.tones {
		d := target.DistanceLab(t.Color)
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}
