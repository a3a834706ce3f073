// Package paths centralizes file and directory names used across the project.
// All data directory file names are defined here as the single source of truth.
package paths

import (
	"os"
	"path/filepath"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory file names.
const (
	ConfigFile = "config.toml"
	LogFile    = "hexswatch.log"
)

const (
	BinaryName = "hexswatch"
	DataDirRel = ".hexswatch" // relative to $HOME
)

// DataDirEnv overrides the default data directory when set.
const DataDirEnv = "HEXSWATCH_HOME"

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// DefaultDataDir returns $HEXSWATCH_HOME if set, otherwise ~/.hexswatch.
// Falls back to ./.hexswatch if the home directory cannot be determined.
func DefaultDataDir() DataDir {
	if env := os.Getenv(DataDirEnv); env != "" {
		return DataDir{Root: env}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DataDir{Root: filepath.Join(".", DataDirRel)}
	}
	return DataDir{Root: filepath.Join(home, DataDirRel)}
}

// Config returns the full path to the config file.
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// Log returns the full path to the log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// Ensure creates the data directory if it does not exist.
func (d DataDir) Ensure() error {
	return os.MkdirAll(d.Root, 0o755)
}
