package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"tools.zach/dev/hexswatch/internal/palette"
)

// defaultPNGColumns caps the automatic row length of the tile sheet.
const defaultPNGColumns = 8

// writePNG renders a tile sheet: one square per entry filled with the color
// and labelled with its code, laid out left to right in rows.
func writePNG(w io.Writer, entries []palette.Entry, opts Options) error {
	if len(entries) == 0 {
		return ErrEmpty
	}

	size := opts.TileSize
	if size <= 0 {
		size = DefaultTileSize
	}
	cols := opts.Columns
	if cols <= 0 {
		cols = min(len(entries), defaultPNGColumns)
	}
	rows := (len(entries) + cols - 1) / cols

	img := image.NewNRGBA(image.Rect(0, 0, cols*size, rows*size))
	face := basicfont.Face7x13

	for i, e := range entries {
		x0 := (i % cols) * size
		y0 := (i / cols) * size
		tile := image.Rect(x0, y0, x0+size, y0+size)
		draw.Draw(img, tile, image.NewUniform(e.Color.NRGBA()), image.Point{}, draw.Src)

		lines := []string{e.Color.String()}
		if opts.ShowCounts {
			lines = append(lines, fmt.Sprintf("x%d", e.Count))
		}
		// Clip to the tile so long labels on small tiles stay inside it.
		clip := img.SubImage(tile).(*image.NRGBA)
		drawLabel(clip, tile, face, lines, palette.Contrast(e.Color).NRGBA())
	}

	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// drawLabel centers lines of text inside tile.
func drawLabel(dst draw.Image, tile image.Rectangle, face *basicfont.Face, lines []string, fg color.Color) {
	lineHeight := face.Height
	top := tile.Min.Y + (tile.Dy()-len(lines)*lineHeight)/2

	d := &font.Drawer{Dst: dst, Src: image.NewUniform(fg), Face: face}
	for i, line := range lines {
		width := d.MeasureString(line).Ceil()
		x := tile.Min.X + (tile.Dx()-width)/2
		y := top + i*lineHeight + face.Ascent
		d.Dot = fixed.P(x, y)
		d.DrawString(line)
	}
}
