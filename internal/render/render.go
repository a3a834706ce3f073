// Package render writes palette entries in the output formats supported by
// hexswatch: plain text, JSON, CSS custom properties, terminal swatches and a
// PNG tile sheet.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"tools.zach/dev/hexswatch/internal/hexcolor"
	"tools.zach/dev/hexswatch/internal/palette"
)

// ///////////////////////////////////////////////
// Formats
// ///////////////////////////////////////////////

// Format names an output encoding.
type Format string

const (
	FormatText   Format = "text"
	FormatJSON   Format = "json"
	FormatCSS    Format = "css"
	FormatSwatch Format = "swatch"
	FormatPNG    Format = "png"
)

// ErrUnknownFormat is returned for a format name that is not recognised.
var ErrUnknownFormat = errors.New("unknown output format")

// ErrEmpty is returned by formats that cannot represent an empty palette.
var ErrEmpty = errors.New("no colors to render")

// Formats returns every supported [Format].
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatCSS, FormatSwatch, FormatPNG}
}

// ParseFormat converts s to a [Format], case-insensitively.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats() {
		if string(f) == strings.ToLower(s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownFormat, s)
}

// Binary reports whether the format produces non-text output.
func (f Format) Binary() bool {
	return f == FormatPNG
}

// ///////////////////////////////////////////////
// Options
// ///////////////////////////////////////////////

// DefaultTileSize is the PNG tile edge in pixels.
const DefaultTileSize = 160

// Options controls rendering.
type Options struct {
	// Format selects the encoding.
	Format Format
	// ShowCounts adds occurrence counts where the format allows.
	ShowCounts bool
	// ShowLocations adds source:line:column occurrences to text and JSON.
	ShowLocations bool
	// TileSize is the PNG tile edge in pixels; zero means [DefaultTileSize].
	TileSize int
	// Columns fixes the number of tiles per row for swatch and PNG output.
	// Zero picks a layout automatically.
	Columns int
	// Width is the terminal width used to lay out swatches when Columns is
	// zero. Zero means 80.
	Width int
	// CSSPrefix names the custom properties, e.g. "color" → --color-1.
	CSSPrefix string
}

// ///////////////////////////////////////////////
// Write
// ///////////////////////////////////////////////

// Write encodes entries to w in the format selected by opts.
func Write(w io.Writer, entries []palette.Entry, opts Options) error {
	switch opts.Format {
	case FormatText, "":
		return writeText(w, entries, opts)
	case FormatJSON:
		return writeJSON(w, entries, opts)
	case FormatCSS:
		return writeCSS(w, entries, opts)
	case FormatSwatch:
		return writeSwatch(w, entries, opts)
	case FormatPNG:
		return writePNG(w, entries, opts)
	default:
		return fmt.Errorf("%w %q", ErrUnknownFormat, opts.Format)
	}
}

// writeText emits one canonical code per line with optional tab-separated
// count and locations.
func writeText(w io.Writer, entries []palette.Entry, opts Options) error {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Color.String())
		if opts.ShowCounts {
			fmt.Fprintf(&b, "\t%d", e.Count)
		}
		if opts.ShowLocations {
			b.WriteString("\t")
			for i, loc := range e.Locations {
				if i > 0 {
					b.WriteString(" ")
				}
				b.WriteString(loc.String())
			}
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// jsonEntry is the wire shape of one entry in JSON output.
type jsonEntry struct {
	Hex       hexcolor.Color     `json:"hex"`
	R         uint8              `json:"r"`
	G         uint8              `json:"g"`
	B         uint8              `json:"b"`
	Count     int                `json:"count"`
	Locations []palette.Location `json:"locations,omitempty"`
}

// writeJSON emits an indented JSON array. An empty palette is "[]".
func writeJSON(w io.Writer, entries []palette.Entry, opts Options) error {
	out := make([]jsonEntry, 0, len(entries))
	for _, e := range entries {
		je := jsonEntry{Hex: e.Color, R: e.Color.R, G: e.Color.G, B: e.Color.B, Count: e.Count}
		if opts.ShowLocations {
			je.Locations = e.Locations
		}
		out = append(out, je)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

// writeCSS emits a :root block of numbered custom properties.
func writeCSS(w io.Writer, entries []palette.Entry, opts Options) error {
	prefix := opts.CSSPrefix
	if prefix == "" {
		prefix = "color"
	}
	var b strings.Builder
	b.WriteString(":root {\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "  --%s-%d: %s;", prefix, i+1, e.Color)
		if opts.ShowCounts {
			fmt.Fprintf(&b, " /* %d */", e.Count)
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	_, err := io.WriteString(w, b.String())
	return err
}
