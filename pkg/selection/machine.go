// Package selection owns the single authoritative "selected tone" and the
// separate "suggested tone" highlight.
//
// Every input channel (pointer pick, swipe, keyboard, UI swatch, remote
// clients) calls into one Machine. Changes are published synchronously to
// observers in subscription order, so by the time SelectTone returns every
// display has already updated its selected flags and started its animation.
//
// A Machine is not safe for concurrent use; it belongs to the render loop.
package selection

import (
	"errors"
	"fmt"
	"math"

	"github.com/teslashibe/go-shade/pkg/tone"
)

// DefaultIndex is the selection asserted on mount and mode switch.
const DefaultIndex = 0

// ErrNoSuggestion is returned by Suggested when no tone is highlighted.
var ErrNoSuggestion = errors.New("selection: no suggestion")

// RangeError reports an out-of-range tone index.
type RangeError struct {
	Index int
	Len   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("selection: index %d out of range [0,%d)", e.Index, e.Len)
}

// EventKind distinguishes selection from suggestion changes.
type EventKind uint8

const (
	// Selected fires on every SelectTone, including re-selection.
	Selected EventKind = iota

	// Suggested fires when the highlight is set or cleared.
	Suggested
)

// String returns the kind name.
func (k EventKind) String() string {
	if k == Suggested {
		return "suggested"
	}
	return "selected"
}

// Event is delivered to observers.
type Event struct {
	Kind EventKind

	// Index is the selected index for Selected events, or the suggested
	// index (-1 when cleared) for Suggested events.
	Index int

	// Tone is the tone at Index. Zero when a suggestion is cleared.
	Tone tone.Tone

	// Previous is the index before the change (-1 if none).
	Previous int
}

// Observer receives events synchronously.
type Observer func(Event)

// Machine holds the selection state for one registry.
type Machine struct {
	registry  *tone.Registry
	selected  int
	suggested int

	observers []*observer
}

type observer struct {
	fn Observer
}

// New creates a machine with the default index selected. No event is
// published for the initial state.
func New(reg *tone.Registry) *Machine {
	return &Machine{
		registry:  reg,
		selected:  DefaultIndex,
		suggested: -1,
	}
}

// Registry returns the tone registry.
func (m *Machine) Registry() *tone.Registry {
	return m.registry
}

// Len returns the number of selectable tones.
func (m *Machine) Len() int {
	return m.registry.Len()
}

// Selected returns the selected index and tone.
func (m *Machine) Selected() (int, tone.Tone) {
	return m.selected, m.registry.At(m.selected)
}

// Index returns the selected index.
func (m *Machine) Index() int {
	return m.selected
}

// SelectTone selects index i. Out-of-range indices fail without changing
// state. Selecting the current index is valid and republishes the event,
// restarting any animation.
func (m *Machine) SelectTone(i int) error {
	if i < 0 || i >= m.Len() {
		return &RangeError{Index: i, Len: m.Len()}
	}
	prev := m.selected
	m.selected = i
	m.publish(Event{Kind: Selected, Index: i, Tone: m.registry.At(i), Previous: prev})
	return nil
}

// SelectNext selects (i+1) mod n.
func (m *Machine) SelectNext() error {
	return m.SelectTone((m.selected + 1) % m.Len())
}

// SelectPrevious selects (i-1+n) mod n.
func (m *Machine) SelectPrevious() error {
	n := m.Len()
	return m.SelectTone((m.selected - 1 + n) % n)
}

// SelectName selects a tone by name.
func (m *Machine) SelectName(name string) error {
	i, err := m.registry.Index(name)
	if err != nil {
		return err
	}
	return m.SelectTone(i)
}

// Reset re-asserts the default selection and clears the suggestion.
func (m *Machine) Reset() error {
	m.ClearSuggestion()
	return m.SelectTone(DefaultIndex)
}

// Suggest highlights index i without touching the selection.
func (m *Machine) Suggest(i int) error {
	if i < 0 || i >= m.Len() {
		return &RangeError{Index: i, Len: m.Len()}
	}
	prev := m.suggested
	m.suggested = i
	m.publish(Event{Kind: Suggested, Index: i, Tone: m.registry.At(i), Previous: prev})
	return nil
}

// ClearSuggestion removes the highlight. It publishes only if one was set.
func (m *Machine) ClearSuggestion() {
	if m.suggested < 0 {
		return
	}
	prev := m.suggested
	m.suggested = -1
	m.publish(Event{Kind: Suggested, Index: -1, Previous: prev})
}

// Suggested returns the highlighted index.
func (m *Machine) Suggested() (int, error) {
	if m.suggested < 0 {
		return -1, ErrNoSuggestion
	}
	return m.suggested, nil
}

// Subscribe registers fn and returns a function that removes it.
// Observers are called in subscription order.
func (m *Machine) Subscribe(fn Observer) (unsubscribe func()) {
	o := &observer{fn: fn}
	m.observers = append(m.observers, o)
	return func() {
		for i, x := range m.observers {
			if x == o {
				m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
				return
			}
		}
	}
}

func (m *Machine) publish(ev Event) {
	// snapshot so observers may unsubscribe during delivery
	obs := append([]*observer(nil), m.observers...)
	for _, o := range obs {
		o.fn(ev)
	}
}

// TargetWeights returns the weight layout for n segments with sel chosen:
// the selected segment takes 50 and the rest share the other 50 equally.
// A single segment takes the whole 100.
func TargetWeights(n, sel int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 100
		return w
	}
	other := 50 / float64(n-1)
	for k := range w {
		if k == sel {
			w[k] = 50
		} else {
			w[k] = other
		}
	}
	return w
}

// TargetHeights returns outer radii for n segments with sel chosen. The
// selected segment reaches hi; the others fall off linearly with index
// distance over floor(n/2), never below lo.
func TargetHeights(n, sel int, lo, hi float64) []float64 {
	h := make([]float64, n)
	half := float64(n / 2)
	for k := range h {
		if k == sel {
			h[k] = hi
			continue
		}
		d := math.Abs(float64(k - sel))
		v := lo
		if half > 0 {
			v = lo + (hi-lo)*(1-d/half)
		}
		h[k] = math.Max(lo, v)
	}
	return h
}
