package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"tools.zach/dev/hexswatch/internal/palette"
)

const (
	// swatchWidth fits " #RRGGBB " with a column of padding either side.
	swatchWidth  = 11
	swatchHeight = 3
	swatchGap    = 1
	defaultWidth = 80
)

// swatchColumns returns how many swatches fit on one row.
func swatchColumns(opts Options) int {
	if opts.Columns > 0 {
		return opts.Columns
	}
	width := opts.Width
	if width <= 0 {
		width = defaultWidth
	}
	return max(1, (width+swatchGap)/(swatchWidth+swatchGap))
}

// writeSwatch draws each entry as a colored block labelled with its code in
// a contrasting foreground. Styling degrades to plain text when w is not a
// color-capable terminal.
func writeSwatch(w io.Writer, entries []palette.Entry, opts Options) error {
	if len(entries) == 0 {
		return nil
	}

	r := lipgloss.NewRenderer(w)
	cols := swatchColumns(opts)

	tiles := make([]string, 0, len(entries))
	for i, e := range entries {
		label := e.Color.String()
		if opts.ShowCounts {
			label += fmt.Sprintf("\n×%d", e.Count)
		}
		style := r.NewStyle().
			Background(lipgloss.Color(e.Color.String())).
			Foreground(lipgloss.Color(palette.Contrast(e.Color).String())).
			Width(swatchWidth).
			Height(swatchHeight).
			Align(lipgloss.Center, lipgloss.Center)
		if (i+1)%cols != 0 && i != len(entries)-1 {
			style = style.MarginRight(swatchGap)
		}
		tiles = append(tiles, style.Render(label))
	}

	rows := make([]string, 0, (len(tiles)+cols-1)/cols)
	for start := 0; start < len(tiles); start += cols {
		end := min(start+cols, len(tiles))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, tiles[start:end]...))
	}

	_, err := io.WriteString(w, strings.Join(rows, "\n\n")+"\n")
	return err
}
