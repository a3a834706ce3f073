// Package hexswatch provides embedded assets for the hexswatch command.
//
// The root package exists solely to embed [config.default.toml] via
// [DefaultConfigTOML]. The command writes it to the data directory on first
// run so users start from an annotated file.
package hexswatch

import _ "embed"

// DefaultConfigTOML holds the raw bytes of config.default.toml, embedded at
// build time. Regenerate it with go generate ./internal/config.
//
//go:embed config.default.toml
var DefaultConfigTOML []byte
