package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single config field.
// The genconfig tool uses [FieldDoc] values to annotate the generated config.default.toml.
type FieldDoc struct {
	// Comment is shown as a header comment above the field in the example config.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps TOML field paths (dot-separated, e.g. "output.format")
// to their [FieldDoc] entries. The genconfig tool uses this map to annotate the
// generated config.default.toml with inline comments and alternative examples.
var ConfigDocs = map[string]FieldDoc{
	// ── Root ──────────────────────────────────────────────────────
	"version": {
		Comment: "Config schema version. Do not edit.",
	},

	// ── Scan ─────────────────────────────────────────────────────
	"scan": {
		Comment: "Input loading",
	},
	"scan.max_file_bytes": {
		Comment: "Largest input accepted, in bytes, measured after decompression.\nLarger inputs are skipped with a warning. 0 disables the limit.",
		Alternatives: []string{
			`max_file_bytes = 1048576`,
		},
	},
	"scan.exclude": {
		Comment: "Doublestar patterns removed from glob expansions (\"**\" crosses directories).\nFiles named explicitly on the command line are never excluded.",
		Alternatives: []string{
			`exclude = ["**/vendor/**", "**/*.min.css"]`,
		},
	},
	"scan.allow_remote": {
		Comment: "Accept http:// and https:// inputs.",
	},
	"scan.remote_timeout_seconds": {
		Comment: "Timeout for each remote request attempt. Failed requests are retried twice.",
	},
	"scan.decompress": {
		Comment: "Transparently gunzip inputs whose name ends in .gz",
	},

	// ── Palette ──────────────────────────────────────────────────
	"palette": {
		Comment: "Palette filtering and ordering",
	},
	"palette.ignore": {
		Comment: "Colors left out of every palette. Accepts #RGB or #RRGGBB, with or without '#'.\nUseful for hex-looking words such as \"bad\" or \"cafe00\".",
		Alternatives: []string{
			`ignore = ["#FFFFFF", "#000000", "bad"]`,
		},
	},
	"palette.min_count": {
		Comment: "Drop colors seen fewer times than this across all inputs.",
	},
	"palette.sort": {
		Comment: "Entry order. Options: \"hex\", \"hue\", \"lightness\", \"count\", \"first_seen\"\n  hex:        ascending #RRGGBB\n  hue:        around the color wheel, grays last\n  lightness:  dark to light\n  count:      most frequent first\n  first_seen: order of first appearance in the inputs",
		Alternatives: []string{
			`sort = "hue"`,
			`sort = "count"`,
		},
	},

	// ── Output ───────────────────────────────────────────────────
	"output": {
		Comment: "Rendering",
	},
	"output.format": {
		Comment: "Output format. Options: \"text\", \"json\", \"css\", \"swatch\", \"png\"\n  swatch draws colored blocks in the terminal\n  png requires -out unless stdout is redirected",
		Alternatives: []string{
			`format = "swatch"`,
			`format = "json"`,
		},
	},
	"output.show_counts": {
		Comment: "Include how many times each color occurs.",
	},
	"output.show_locations": {
		Comment: "Include source:line:column for every occurrence (text and json only).",
	},
	"output.tile_size": {
		Comment: "PNG tile edge in pixels.",
	},
	"output.columns": {
		Comment: "Tiles per row for swatch and png output. 0 fits swatches to the terminal\nand uses up to 8 png columns.",
		Alternatives: []string{
			`columns = 4`,
		},
	},
	"output.css_prefix": {
		Comment: "Custom property prefix for css output: --<prefix>-1, --<prefix>-2, ...",
		Alternatives: []string{
			`css_prefix = "brand"`,
		},
	},

	// ── Watch ────────────────────────────────────────────────────
	"watch": {
		Comment: "Watch mode (-watch)",
	},
	"watch.poll_interval_seconds": {
		Comment: "Polling interval used when native file notifications are unavailable.",
	},

	// ── Log ──────────────────────────────────────────────────────
	"log": {
		Comment: "Logging configuration",
	},
	"log.level": {
		Comment: "Minimum log level. Options: \"trace\", \"debug\", \"info\", \"warn\", \"error\"",
		Alternatives: []string{
			`level = "debug"`,
			`level = "warn"`,
		},
	},
	"log.max_size_mb": {
		Comment: "Maximum log file size in megabytes before rotation.",
	},
}
