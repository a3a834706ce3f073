// Package config provides configuration loading and defaults for hexswatch.
//
// Configuration is loaded from a TOML file in the user's data directory.
// The package covers input scanning limits, palette filtering and ordering,
// output formatting, watch mode, and logging, with sensible defaults.
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/hexswatch/internal/atomicfile"
	"tools.zach/dev/hexswatch/internal/hexcolor"
	"tools.zach/dev/hexswatch/internal/palette"
	"tools.zach/dev/hexswatch/internal/paths"
	"tools.zach/dev/hexswatch/internal/render"
	"tools.zach/dev/hexswatch/internal/source"
)

// CurrentVersion is the config schema version written by this build.
const CurrentVersion = 1

// ErrNewerVersion is returned when a config file was written by a newer
// hexswatch than the one reading it.
var ErrNewerVersion = errors.New("config written by a newer version")

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level application configuration.
type Config struct {
	// Version is the config schema version.
	Version int `toml:"version"`
	// Scan holds input loading settings.
	Scan ScanConfig `toml:"scan"`
	// Palette holds aggregation filter and ordering settings.
	Palette PaletteConfig `toml:"palette"`
	// Output holds rendering settings.
	Output OutputConfig `toml:"output"`
	// Watch holds watch-mode settings.
	Watch WatchConfig `toml:"watch"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// ScanConfig holds input loading settings.
type ScanConfig struct {
	// MaxFileBytes caps each input after decompression (0 = unlimited).
	MaxFileBytes int64 `toml:"max_file_bytes"`
	// Exclude lists doublestar patterns dropped from glob expansions.
	Exclude []string `toml:"exclude"`
	// AllowRemote enables http and https inputs.
	AllowRemote bool `toml:"allow_remote"`
	// RemoteTimeoutSeconds bounds each remote request attempt.
	RemoteTimeoutSeconds int `toml:"remote_timeout_seconds"`
	// Decompress gunzips inputs ending in ".gz".
	Decompress bool `toml:"decompress"`
}

// PaletteConfig holds aggregation filter and ordering settings.
type PaletteConfig struct {
	// Ignore lists colors removed from every palette.
	Ignore []hexcolor.Color `toml:"ignore"`
	// MinCount drops colors seen fewer times than this.
	MinCount int `toml:"min_count"`
	// Sort is the entry order: hex, hue, lightness, count, or first_seen.
	Sort string `toml:"sort"`
}

// OutputConfig holds rendering settings.
type OutputConfig struct {
	// Format is the output format: text, json, css, swatch, or png.
	Format string `toml:"format"`
	// ShowCounts adds occurrence counts to the output.
	ShowCounts bool `toml:"show_counts"`
	// ShowLocations adds source:line:column positions (text and json).
	ShowLocations bool `toml:"show_locations"`
	// TileSize is the PNG tile edge in pixels.
	TileSize int `toml:"tile_size"`
	// Columns fixes the swatch and PNG row length (0 = automatic).
	Columns int `toml:"columns"`
	// CSSPrefix names the custom properties emitted by the css format.
	CSSPrefix string `toml:"css_prefix"`
}

// WatchConfig holds watch-mode settings.
type WatchConfig struct {
	// PollIntervalSeconds is the fallback polling interval for file changes.
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Scan: ScanConfig{
			MaxFileBytes:         10 << 20,
			Exclude:              []string{},
			AllowRemote:          false,
			RemoteTimeoutSeconds: 10,
			Decompress:           true,
		},
		Palette: PaletteConfig{
			Ignore:   []hexcolor.Color{},
			MinCount: 1,
			Sort:     string(palette.OrderHex),
		},
		Output: OutputConfig{
			Format:        string(render.FormatText),
			ShowCounts:    false,
			ShowLocations: false,
			TileSize:      render.DefaultTileSize,
			Columns:       0,
			CSSPrefix:     "color",
		},
		Watch: WatchConfig{
			PollIntervalSeconds: 2,
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// ///////////////////////////////////////////////
// Example Configuration
// ///////////////////////////////////////////////

// ExampleConfig returns a Config suitable for generating config.default.toml.
// It differs from the defaults only where an empty list would hide the
// expected syntax.
func ExampleConfig() *Config {
	cfg := DefaultConfig()
	cfg.Scan.Exclude = []string{"**/node_modules/**", "**/.git/**"}
	return cfg
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads and parses the configuration file from dataDir/config.toml.
// If the file doesn't exist, returns DefaultConfig.
func Load(dataDir string) (*Config, error) {
	cfg, err := LoadFile(filepath.Join(dataDir, paths.ConfigFile))
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return cfg, err
}

// LoadFile reads and parses the configuration file at path. Keys absent
// from the file keep their default values. A missing file is an error that
// satisfies errors.Is(err, os.ErrNotExist).
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	cfg.Version = 0
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	switch {
	case cfg.Version == 0:
		cfg.Version = CurrentVersion
	case cfg.Version > CurrentVersion:
		return nil, fmt.Errorf("%w: file has version %d, this build supports %d", ErrNewerVersion, cfg.Version, CurrentVersion)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to disk as TOML using atomic file write.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Scan.MaxFileBytes < 0 {
		return fmt.Errorf("scan.max_file_bytes must be >= 0, got %d", c.Scan.MaxFileBytes)
	}

	if c.Scan.RemoteTimeoutSeconds <= 0 {
		return fmt.Errorf("scan.remote_timeout_seconds must be > 0, got %d", c.Scan.RemoteTimeoutSeconds)
	}

	if c.Palette.MinCount < 0 {
		return fmt.Errorf("palette.min_count must be >= 0, got %d", c.Palette.MinCount)
	}

	if _, err := palette.ParseOrder(c.Palette.Sort); err != nil {
		return fmt.Errorf("invalid palette.sort: %w", err)
	}

	if _, err := render.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("invalid output.format: %w", err)
	}

	if c.Output.TileSize <= 0 || c.Output.TileSize > 4096 {
		return fmt.Errorf("output.tile_size must be between 1 and 4096, got %d", c.Output.TileSize)
	}

	if c.Output.Columns < 0 {
		return fmt.Errorf("output.columns must be >= 0, got %d", c.Output.Columns)
	}

	if strings.ContainsAny(c.Output.CSSPrefix, " \t\n:;{}()") {
		return fmt.Errorf("invalid output.css_prefix %q: must be a CSS identifier fragment", c.Output.CSSPrefix)
	}

	if c.Watch.PollIntervalSeconds <= 0 {
		return fmt.Errorf("watch.poll_interval_seconds must be > 0, got %d", c.Watch.PollIntervalSeconds)
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", c.Log.Level)
	}

	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be > 0, got %d", c.Log.MaxSizeMB)
	}

	return nil
}

// ///////////////////////////////////////////////
// Component Options
// ///////////////////////////////////////////////

// SourceOptions returns loader options for the [scan] section.
func (c *Config) SourceOptions() source.Options {
	return source.Options{
		MaxBytes:    c.Scan.MaxFileBytes,
		Exclude:     c.Scan.Exclude,
		AllowRemote: c.Scan.AllowRemote,
		Decompress:  c.Scan.Decompress,
		Timeout:     time.Duration(c.Scan.RemoteTimeoutSeconds) * time.Second,
	}
}

// PaletteOptions returns entry filter and order options for the [palette]
// section. The config must have passed [Config.Validate].
func (c *Config) PaletteOptions() palette.Options {
	order, _ := palette.ParseOrder(c.Palette.Sort)
	return palette.Options{
		Ignore:   c.Palette.Ignore,
		MinCount: c.Palette.MinCount,
		Order:    order,
	}
}

// RenderOptions returns output options for the [output] section. The
// config must have passed [Config.Validate].
func (c *Config) RenderOptions() render.Options {
	format, _ := render.ParseFormat(c.Output.Format)
	return render.Options{
		Format:        format,
		ShowCounts:    c.Output.ShowCounts,
		ShowLocations: c.Output.ShowLocations,
		TileSize:      c.Output.TileSize,
		Columns:       c.Output.Columns,
		CSSPrefix:     c.Output.CSSPrefix,
	}
}

// PollInterval returns the watch-mode polling fallback interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Watch.PollIntervalSeconds) * time.Second
}
