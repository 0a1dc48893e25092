package commands

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/colonyops/tally/internal/core/cache"
	"github.com/colonyops/tally/internal/core/config"
	"github.com/colonyops/tally/internal/core/engine"
	"github.com/colonyops/tally/internal/core/loader"
	"github.com/colonyops/tally/internal/store/jsonfile"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	OutputDir  string

	// Populated in the Before hook and available to all commands.
	Config *config.Config
	Cache  *cache.Cache // nil when caching is disabled
	Loader *loader.Loader
	Store  *jsonfile.SessionStore
}

// expansionCache adapts the optional cache to the engine interface without
// smuggling a typed nil through.
func expansionCache(f *Flags) engine.ExpansionCache {
	if f.Cache == nil {
		return nil
	}
	return f.Cache
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "tally", "config.yaml")
}

// DefaultOutputDir returns the default session/report directory using
// XDG_DATA_HOME.
func DefaultOutputDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "tally")
}

// DefaultLogFile returns the default log file path using the system's state directory.
// On macOS: ~/Library/Logs/tally/tally.log
// On Linux: $XDG_STATE_HOME/tally/tally.log (defaults to ~/.local/state/tally/tally.log)
func DefaultLogFile() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome != "" {
		return filepath.Join(stateHome, "tally", "tally.log")
	}

	home, _ := os.UserHomeDir()

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Logs", "tally", "tally.log")
	}

	return filepath.Join(home, ".local", "state", "tally", "tally.log")
}
