// Package hexcolor finds RGB hex color codes in arbitrary text and decodes
// them into canonical 3-byte [Color] values.
//
// Both the long form (#RRGGBB) and the short form (#RGB) are recognised, with
// or without the leading "#". Matches are word-bounded and deduplicated into
// a [Set]. The [Scanner] holds only an immutable compiled pattern and can be
// shared between goroutines.
package hexcolor

import (
	"fmt"
	"image/color"
	"sort"
	"strconv"
	"strings"
)

// ///////////////////////////////////////////////
// Color
// ///////////////////////////////////////////////

// Color is an opaque RGB triple. Two colors are equal when all three
// channels match, so Color can be used directly as a map key.
type Color struct {
	R uint8
	G uint8
	B uint8
}

// New returns the Color with the given channels.
func New(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// String renders the canonical form: "#" followed by six uppercase hex digits.
func (c Color) String() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// NRGBA converts c to a fully opaque [color.NRGBA].
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// MarshalText implements [encoding.TextMarshaler] using the canonical form.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler] via [ParseHex].
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseHex(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseHex parses a single color code in "#RRGGBB" or "#RGB" form. The "#"
// is optional and digits are case-insensitive. Unlike [Scanner.Scan] the
// whole string must be the code.
func ParseHex(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	default:
		return Color{}, fmt.Errorf("invalid hex color %q: must be 3 or 6 hex digits", s)
	}
	var ch [3]uint8
	for i := range ch {
		v, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("invalid hex color %q: %w", s, err)
		}
		ch[i] = uint8(v)
	}
	return Color{R: ch[0], G: ch[1], B: ch[2]}, nil
}

// ///////////////////////////////////////////////
// Set
// ///////////////////////////////////////////////

// Set is an unordered collection of distinct colors.
type Set map[Color]struct{}

// Add inserts c. Adding a color that is already present is a no-op.
func (s Set) Add(c Color) {
	s[c] = struct{}{}
}

// Has reports whether c is in the set.
func (s Set) Has(c Color) bool {
	_, ok := s[c]
	return ok
}

// Len returns the number of distinct colors.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the colors ordered by their canonical string.
func (s Set) Sorted() []Color {
	out := make([]Color, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}
