// Tests for [Write] across every [Format], [ParseFormat], and swatch
// column layout.
package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"tools.zach/dev/hexswatch/internal/hexcolor"
	"tools.zach/dev/hexswatch/internal/palette"
)

// sampleEntries builds entries for #336699 (x2) and #99AAFF (x1).
func sampleEntries(t *testing.T) []palette.Entry {
	t.Helper()
	p := palette.New()
	p.AddDocument(hexcolor.NewScanner(), "style.css", "background: #336699; border: 9af;\ncolor: #369;")
	entries := p.Entries(palette.Options{})
	if len(entries) != 2 {
		t.Fatalf("expected 2 sample entries, got %d", len(entries))
	}
	return entries
}

// ///////////////////////////////////////////////
// ParseFormat
// ///////////////////////////////////////////////

func TestParseFormat(t *testing.T) {
	for _, f := range Formats() {
		got, err := ParseFormat(strings.ToUpper(string(f)))
		if err != nil || got != f {
			t.Errorf("ParseFormat(%q) = %q, %v", strings.ToUpper(string(f)), got, err)
		}
	}
	if _, err := ParseFormat("yaml"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("ParseFormat(yaml) error = %v, want ErrUnknownFormat", err)
	}
	if !FormatPNG.Binary() || FormatText.Binary() {
		t.Error("Binary() misreports text/png")
	}
}

// ///////////////////////////////////////////////
// Text Formats
// ///////////////////////////////////////////////

func TestWrite_Text(t *testing.T) {
	entries := sampleEntries(t)

	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"plain", Options{Format: FormatText}, "#336699\n#99AAFF\n"},
		{"default format is text", Options{}, "#336699\n#99AAFF\n"},
		{"counts", Options{Format: FormatText, ShowCounts: true}, "#336699\t2\n#99AAFF\t1\n"},
		{
			"locations",
			Options{Format: FormatText, ShowLocations: true},
			"#336699\tstyle.css:1:14 style.css:2:9\n#99AAFF\tstyle.css:1:30\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Write(&buf, entries, tt.opts); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleEntries(t), Options{Format: FormatJSON, ShowLocations: true}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var got []struct {
		Hex       string             `json:"hex"`
		R         int                `json:"r"`
		G         int                `json:"g"`
		B         int                `json:"b"`
		Count     int                `json:"count"`
		Locations []palette.Location `json:"locations"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].Hex != "#336699" || got[0].R != 0x33 || got[0].G != 0x66 || got[0].B != 0x99 || got[0].Count != 2 {
		t.Errorf("entry 0 = %+v", got[0])
	}
	if len(got[0].Locations) != 2 || got[0].Locations[1].Line != 2 {
		t.Errorf("entry 0 locations = %+v", got[0].Locations)
	}
}

func TestWrite_JSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil, Options{Format: FormatJSON}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty JSON = %q, want []", buf.String())
	}
}

func TestWrite_CSS(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, sampleEntries(t), Options{Format: FormatCSS, CSSPrefix: "brand", ShowCounts: true})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := ":root {\n  --brand-1: #336699; /* 2 */\n  --brand-2: #99AAFF; /* 1 */\n}\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}

	// Output of the CSS format scans back to the same palette.
	back := hexcolor.Scan(buf.String())
	if back.Len() != 2 || !back.Has(hexcolor.New(0x33, 0x66, 0x99)) || !back.Has(hexcolor.New(0x99, 0xAA, 0xFF)) {
		t.Errorf("rescanned CSS = %v", back.Sorted())
	}
}

// ///////////////////////////////////////////////
// Swatch
// ///////////////////////////////////////////////

func TestWrite_Swatch(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleEntries(t), Options{Format: FormatSwatch, ShowCounts: true}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"#336699", "#99AAFF", "×2", "×1"} {
		if !strings.Contains(out, want) {
			t.Errorf("swatch output missing %q:\n%s", want, out)
		}
	}
}

func TestWrite_SwatchEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil, Options{Format: FormatSwatch}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestSwatchColumns(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want int
	}{
		{"explicit", Options{Columns: 3}, 3},
		{"default width", Options{}, 6},
		{"wide terminal", Options{Width: 120}, 10},
		{"narrow terminal", Options{Width: 5}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := swatchColumns(tt.opts); got != tt.want {
				t.Errorf("swatchColumns = %d, want %d", got, tt.want)
			}
		})
	}
}

// ///////////////////////////////////////////////
// PNG
// ///////////////////////////////////////////////

func TestWrite_PNG(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleEntries(t), Options{Format: FormatPNG, TileSize: 40, ShowCounts: true}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 80 || b.Dy() != 40 {
		t.Fatalf("image size = %dx%d, want 80x40", b.Dx(), b.Dy())
	}

	// Tile corners are never covered by the centered label.
	checks := []struct {
		x, y int
		want hexcolor.Color
	}{
		{1, 1, hexcolor.New(0x33, 0x66, 0x99)},
		{41, 38, hexcolor.New(0x99, 0xAA, 0xFF)},
	}
	for _, c := range checks {
		got := color.NRGBAModel.Convert(img.At(c.x, c.y)).(color.NRGBA)
		if got != c.want.NRGBA() {
			t.Errorf("pixel (%d,%d) = %v, want %v", c.x, c.y, got, c.want.NRGBA())
		}
	}

	// Some pixel in the first tile carries the white label.
	var labelled bool
	for y := 0; y < 40 && !labelled; y++ {
		for x := 0; x < 40; x++ {
			if color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA) == (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
				labelled = true
				break
			}
		}
	}
	if !labelled {
		t.Error("no label pixels drawn on first tile")
	}
}

func TestWrite_PNGLayout(t *testing.T) {
	entries := make([]palette.Entry, 10)
	for i := range entries {
		entries[i] = palette.Entry{Color: hexcolor.New(uint8(i*20), 0, 0), Count: 1}
	}

	var buf bytes.Buffer
	if err := Write(&buf, entries, Options{Format: FormatPNG, TileSize: 10}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	cfg, err := png.DecodeConfig(&buf)
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.Width != 80 || cfg.Height != 20 {
		t.Errorf("size = %dx%d, want 80x20 (8 columns, 2 rows)", cfg.Width, cfg.Height)
	}
}

func TestWrite_PNGEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil, Options{Format: FormatPNG}); !errors.Is(err, ErrEmpty) {
		t.Errorf("Write(empty png) error = %v, want ErrEmpty", err)
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil, Options{Format: "bmp"}); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("error = %v, want ErrUnknownFormat", err)
	}
}
