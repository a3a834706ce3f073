// Package palette aggregates scanner matches from many inputs into one
// deduplicated set of colors, tracking how often and where each color
// appeared.
//
// A [Palette] is filled with [Palette.AddDocument] and read back with
// [Palette.Entries], which applies the ignore list, minimum count and sort
// order from [Options]. [Fingerprint] summarises an entry list so callers can
// skip redundant re-renders.
package palette

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash"
	"github.com/lucasb-eyer/go-colorful"
	"tools.zach/dev/hexswatch/internal/hexcolor"
)

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Location is a 1-based line and column within a named source. Columns
// count runes, not bytes.
type Location struct {
	Source string `json:"source"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.Source, l.Line, l.Column)
}

// Entry is one distinct color together with its occurrences.
type Entry struct {
	// Color is the deduplicated value.
	Color hexcolor.Color
	// Count is the number of occurrences across all sources.
	Count int
	// Locations lists every occurrence in the order it was added.
	Locations []Location
	// seq is the insertion rank of the first occurrence.
	seq int
}

// Order selects how [Palette.Entries] sorts its result.
type Order string

const (
	OrderHex       Order = "hex"
	OrderHue       Order = "hue"
	OrderLightness Order = "lightness"
	OrderCount     Order = "count"
	OrderFirstSeen Order = "first_seen"
)

// ValidOrders returns every accepted [Order].
func ValidOrders() []Order {
	return []Order{OrderHex, OrderHue, OrderLightness, OrderCount, OrderFirstSeen}
}

// ParseOrder converts s to an [Order]. An empty string selects [OrderHex].
func ParseOrder(s string) (Order, error) {
	if s == "" {
		return OrderHex, nil
	}
	for _, o := range ValidOrders() {
		if string(o) == strings.ToLower(s) {
			return o, nil
		}
	}
	names := make([]string, 0, len(ValidOrders()))
	for _, o := range ValidOrders() {
		names = append(names, string(o))
	}
	return "", fmt.Errorf("invalid sort order %q: must be one of %s", s, strings.Join(names, ", "))
}

// Options controls which entries [Palette.Entries] returns and in what order.
type Options struct {
	// Ignore drops these colors from the result.
	Ignore []hexcolor.Color
	// MinCount drops colors seen fewer times than this. Values below 1 keep
	// everything.
	MinCount int
	// Order is the sort order; empty means [OrderHex].
	Order Order
}

// ///////////////////////////////////////////////
// Palette
// ///////////////////////////////////////////////

// Palette accumulates colors from any number of sources. It is not safe for
// concurrent mutation.
type Palette struct {
	entries map[hexcolor.Color]*Entry
	seq     int
}

// New returns an empty Palette.
func New() *Palette {
	return &Palette{entries: make(map[hexcolor.Color]*Entry)}
}

// AddDocument scans text with sc and records every occurrence under name.
// It returns the scanner's diagnostics for matches that were skipped.
func (p *Palette) AddDocument(sc *hexcolor.Scanner, name, text string) []error {
	matches, diags := sc.Matches(text)
	if len(matches) == 0 {
		return diags
	}
	idx := newLineIndex(text)
	for _, m := range matches {
		line, col := idx.position(text, m.Offset)
		p.add(m.Color, Location{Source: name, Line: line, Column: col})
	}
	return diags
}

// add records a single occurrence of c.
func (p *Palette) add(c hexcolor.Color, loc Location) {
	e, ok := p.entries[c]
	if !ok {
		e = &Entry{Color: c, seq: p.seq}
		p.seq++
		p.entries[c] = e
	}
	e.Count++
	e.Locations = append(e.Locations, loc)
}

// Len returns the number of distinct colors recorded.
func (p *Palette) Len() int {
	return len(p.entries)
}

// Colors returns the distinct colors as a set.
func (p *Palette) Colors() hexcolor.Set {
	s := make(hexcolor.Set, len(p.entries))
	for c := range p.entries {
		s.Add(c)
	}
	return s
}

// Entries returns copies of the recorded entries filtered and sorted per opts.
func (p *Palette) Entries(opts Options) []Entry {
	ignored := make(hexcolor.Set, len(opts.Ignore))
	for _, c := range opts.Ignore {
		ignored.Add(c)
	}

	out := make([]Entry, 0, len(p.entries))
	for c, e := range p.entries {
		if ignored.Has(c) || e.Count < opts.MinCount {
			continue
		}
		cp := *e
		cp.Locations = append([]Location(nil), e.Locations...)
		out = append(out, cp)
	}
	sortEntries(out, opts.Order)
	return out
}

// ///////////////////////////////////////////////
// Sorting
// ///////////////////////////////////////////////

// sortEntries orders entries in place. Every order falls back to the
// canonical hex string so the result is deterministic.
func sortEntries(entries []Entry, order Order) {
	byHex := func(i, j int) bool {
		return entries[i].Color.String() < entries[j].Color.String()
	}

	switch order {
	case OrderHue:
		keys := make(map[hexcolor.Color]hueKey, len(entries))
		for _, e := range entries {
			keys[e.Color] = newHueKey(e.Color)
		}
		sort.Slice(entries, func(i, j int) bool {
			a, b := keys[entries[i].Color], keys[entries[j].Color]
			if a != b {
				return a.less(b)
			}
			return byHex(i, j)
		})
	case OrderLightness:
		sort.Slice(entries, func(i, j int) bool {
			a, b := Lightness(entries[i].Color), Lightness(entries[j].Color)
			if a != b {
				return a < b
			}
			return byHex(i, j)
		})
	case OrderCount:
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Count != entries[j].Count {
				return entries[i].Count > entries[j].Count
			}
			return byHex(i, j)
		})
	case OrderFirstSeen:
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].seq < entries[j].seq
		})
	default:
		sort.Slice(entries, byHex)
	}
}

// grayThreshold is the HSL saturation below which a color has no
// meaningful hue and sorts with the grays.
const grayThreshold = 0.02

// hueKey orders chromatic colors by hue then lightness, followed by grays
// from dark to light.
type hueKey struct {
	gray bool
	hue  float64
	lum  float64
}

func newHueKey(c hexcolor.Color) hueKey {
	h, s, l := toColorful(c).Hsl()
	if s < grayThreshold {
		return hueKey{gray: true, lum: l}
	}
	return hueKey{hue: h, lum: l}
}

func (a hueKey) less(b hueKey) bool {
	if a.gray != b.gray {
		return !a.gray
	}
	if a.hue != b.hue {
		return a.hue < b.hue
	}
	return a.lum < b.lum
}

// ///////////////////////////////////////////////
// Color Helpers
// ///////////////////////////////////////////////

// toColorful converts c to go-colorful's float representation.
func toColorful(c hexcolor.Color) colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

// Lightness returns the CIE L*a*b* lightness of c in [0, 1].
func Lightness(c hexcolor.Color) float64 {
	l, _, _ := toColorful(c).Lab()
	return l
}

// contrastThreshold is the L* value above which dark text reads better
// than light text.
const contrastThreshold = 0.6

// Contrast returns black or white, whichever is more legible as a label
// drawn on a c-colored background.
func Contrast(c hexcolor.Color) hexcolor.Color {
	if Lightness(c) > contrastThreshold {
		return hexcolor.New(0, 0, 0)
	}
	return hexcolor.New(0xFF, 0xFF, 0xFF)
}

// ///////////////////////////////////////////////
// Fingerprint
// ///////////////////////////////////////////////

// Fingerprint hashes the ordered colors and counts of entries and, when
// withLocations is set, every occurrence's source, line and column. Two entry
// lists that render identically under the same location setting produce the
// same value.
func Fingerprint(entries []Entry, withLocations bool) uint64 {
	h := xxhash.New()
	var buf [7]byte
	for _, e := range entries {
		buf[0], buf[1], buf[2] = e.Color.R, e.Color.G, e.Color.B
		binary.BigEndian.PutUint32(buf[3:], uint32(e.Count))
		h.Write(buf[:])
		if !withLocations {
			continue
		}
		var pos [8]byte
		for _, loc := range e.Locations {
			h.Write([]byte(loc.Source))
			h.Write([]byte{0})
			binary.BigEndian.PutUint32(pos[:4], uint32(loc.Line))
			binary.BigEndian.PutUint32(pos[4:], uint32(loc.Column))
			h.Write(pos[:])
		}
	}
	return h.Sum64()
}

// ///////////////////////////////////////////////
// Line Index
// ///////////////////////////////////////////////

// lineIndex maps byte offsets to line and column numbers.
type lineIndex struct {
	// starts holds the byte offset at which each line begins.
	starts []int
}

func newLineIndex(text string) lineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return lineIndex{starts: starts}
}

// position returns the 1-based line and rune column of offset in text.
func (li lineIndex) position(text string, offset int) (line, col int) {
	i := sort.SearchInts(li.starts, offset+1) - 1
	if i < 0 {
		i = 0
	}
	start := li.starts[i]
	return i + 1, utf8.RuneCountInString(text[start:offset]) + 1
}
