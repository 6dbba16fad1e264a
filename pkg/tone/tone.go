// Package tone provides the ordered, immutable set of skin tones a user can
// pick from.
//
// A tone's position in its Registry is its identity: segment k of a display
// always renders tone k, and selection state is stored as an index.
package tone

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Tone is a named color.
type Tone struct {
	// Name is the unique, upper-case label (e.g. "RAVEN").
	Name string

	// Color is the tone's display color.
	Color colorful.Color
}

// Hex returns the color as "#rrggbb".
func (t Tone) Hex() string {
	return t.Color.Hex()
}

// String implements fmt.Stringer.
func (t Tone) String() string {
	return fmt.Sprintf("%s(%s)", t.Name, t.Hex())
}

// Spec describes a tone before parsing.
type Spec struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// Parse builds a Tone from a Spec. Names are normalized to upper case.
func Parse(s Spec) (Tone, error) {
	name := strings.ToUpper(strings.TrimSpace(s.Name))
	if name == "" {
		return Tone{}, ErrEmptyName
	}
	c, err := colorful.Hex(normalizeHex(s.Hex))
	if err != nil {
		return Tone{}, fmt.Errorf("tone: %s: invalid color %q: %w", name, s.Hex, err)
	}
	return Tone{Name: name, Color: c}, nil
}

// normalizeHex accepts "#abc", "abc", "0xaabbcc" and "#aabbcc".
func normalizeHex(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	return "#" + strings.ToLower(s)
}
