package hexcolor

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
)

// colorPattern matches a word-bounded 6-digit or 3-digit hex run with an
// optional leading "#". Groups 1-3 hold the long-form channel pairs and
// groups 4-6 the short-form channel digits. Alternation is leftmost-first,
// so the long form wins at any position where both could apply.
const colorPattern = `\b#?([0-9A-Fa-f]{2})([0-9A-Fa-f]{2})([0-9A-Fa-f]{2})\b` +
	`|\b#?([0-9A-Fa-f])([0-9A-Fa-f])([0-9A-Fa-f])\b`

// defaultScanner backs the package-level [Scan].
var defaultScanner = NewScanner()

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Form identifies which notation a matched token used.
type Form int

const (
	// FormLong is the 6-digit notation, two digits per channel.
	FormLong Form = iota + 1
	// FormShort is the 3-digit notation, one digit per channel.
	FormShort
)

func (f Form) String() string {
	switch f {
	case FormLong:
		return "long"
	case FormShort:
		return "short"
	default:
		return "unknown"
	}
}

// Match is a single decoded occurrence of a color code.
type Match struct {
	// Color is the decoded value.
	Color Color
	// Token is the matched text, including the "#" when it was captured.
	Token string
	// Offset is the byte offset of Token within the scanned text.
	Offset int
	// Form records whether Token was written in long or short notation.
	Form Form
}

// ErrInvariant is matched by every [InvariantError]. It indicates a defect
// in the coupling between the pattern and the decoder, never bad input.
var ErrInvariant = errors.New("hexcolor: internal invariant violated")

// InvariantError describes a match that could not be decoded even though
// the pattern should only ever produce well-formed hex.
type InvariantError struct {
	Token  string
	Offset int
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("hexcolor: cannot decode %q at offset %d: %s", e.Token, e.Offset, e.Reason)
}

// Unwrap returns [ErrInvariant].
func (e *InvariantError) Unwrap() error {
	return ErrInvariant
}

// slot is one optional capture group.
type slot struct {
	text string
	ok   bool
}

// candidate holds the six capture slots of one pattern match. A valid
// candidate has either all three long slots or all three short slots set.
type candidate struct {
	token  string
	offset int

	longRed, longGreen, longBlue    slot
	shortRed, shortGreen, shortBlue slot
}

// newCandidate builds a candidate from a FindAllStringSubmatchIndex entry.
func newCandidate(text string, loc []int) candidate {
	group := func(n int) slot {
		if 2*n+1 >= len(loc) || loc[2*n] < 0 {
			return slot{}
		}
		return slot{text: text[loc[2*n]:loc[2*n+1]], ok: true}
	}
	return candidate{
		token:      text[loc[0]:loc[1]],
		offset:     loc[0],
		longRed:    group(1),
		longGreen:  group(2),
		longBlue:   group(3),
		shortRed:   group(4),
		shortGreen: group(5),
		shortBlue:  group(6),
	}
}

// ///////////////////////////////////////////////
// Decoding
// ///////////////////////////////////////////////

// form validates the slot shape and reports which notation is populated.
func (c candidate) form() (Form, error) {
	allLong := c.longRed.ok && c.longGreen.ok && c.longBlue.ok
	anyLong := c.longRed.ok || c.longGreen.ok || c.longBlue.ok
	allShort := c.shortRed.ok && c.shortGreen.ok && c.shortBlue.ok
	anyShort := c.shortRed.ok || c.shortGreen.ok || c.shortBlue.ok

	switch {
	case allLong && !anyShort:
		return FormLong, nil
	case allShort && !anyLong:
		return FormShort, nil
	default:
		return 0, c.invariant("capture slots are neither all long nor all short")
	}
}

// decode turns a validated candidate into a Match.
func (c candidate) decode() (Match, error) {
	f, err := c.form()
	if err != nil {
		return Match{}, err
	}

	parts := [3]slot{c.longRed, c.longGreen, c.longBlue}
	width := 2
	if f == FormShort {
		parts = [3]slot{c.shortRed, c.shortGreen, c.shortBlue}
		width = 1
	}

	var ch [3]uint8
	for i, p := range parts {
		if len(p.text) != width {
			return Match{}, c.invariant(fmt.Sprintf("channel %d has %d digits, want %d", i, len(p.text), width))
		}
		digits := p.text
		if f == FormShort {
			digits += digits
		}
		v, err := strconv.ParseUint(digits, 16, 8)
		if err != nil {
			return Match{}, c.invariant(err.Error())
		}
		ch[i] = uint8(v)
	}

	return Match{
		Color:  Color{R: ch[0], G: ch[1], B: ch[2]},
		Token:  c.token,
		Offset: c.offset,
		Form:   f,
	}, nil
}

func (c candidate) invariant(reason string) error {
	return &InvariantError{Token: c.token, Offset: c.offset, Reason: reason}
}

// ///////////////////////////////////////////////
// Scanner
// ///////////////////////////////////////////////

// Scanner extracts color codes from text. The zero value is not usable;
// construct one with [NewScanner].
type Scanner struct {
	re *regexp.Regexp
}

// NewScanner compiles the color pattern and returns a ready Scanner.
func NewScanner() *Scanner {
	return &Scanner{re: regexp.MustCompile(colorPattern)}
}

// Matches returns every decoded occurrence in input order. Matches that fail
// to decode are skipped, logged, and returned as [InvariantError] values in
// the second result; they never abort the scan.
func (s *Scanner) Matches(text string) ([]Match, []error) {
	locs := s.re.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil, nil
	}

	matches := make([]Match, 0, len(locs))
	var diags []error
	for _, loc := range locs {
		m, err := newCandidate(text, loc).decode()
		if err != nil {
			slog.Warn("skipping undecodable color match", "offset", loc[0], "error", err)
			diags = append(diags, err)
			continue
		}
		matches = append(matches, m)
	}
	return matches, diags
}

// Scan returns the distinct colors found anywhere in text. It never fails;
// empty or colorless input yields an empty set.
func (s *Scanner) Scan(text string) Set {
	matches, _ := s.Matches(text)
	set := make(Set, len(matches))
	for _, m := range matches {
		set.Add(m.Color)
	}
	return set
}

// Scan is [Scanner.Scan] on a shared package-level Scanner.
func Scan(text string) Set {
	return defaultScanner.Scan(text)
}
