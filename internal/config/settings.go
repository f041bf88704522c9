package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Timing defaults; overridable for tests and via settings/env
const (
	DefaultDebounce     = 800 * time.Millisecond
	DefaultHeartbeat    = 10 * time.Second
	DefaultRestoreDelay = 1200 * time.Millisecond
	DefaultStartupPause = 15 * time.Second
	DefaultFinalSaveLag = 1 * time.Second
)

const (
	DefaultBridgeAddr  = "127.0.0.1:7589"
	DefaultDBPath      = "~/.tabspaces/tabspaces.db"
	DefaultMaxLogFiles = 1000
)

// Settings represents the structure of ~/.tabspaces/settings.json, with
// TABSPACES_* environment variables layered on top.
type Settings struct {
	BridgeAddr  string `json:"bridge_addr,omitempty" envconfig:"BRIDGE_ADDR"`
	DBPath      string `json:"db_path,omitempty" envconfig:"DB_PATH"`
	Debug       *bool  `json:"debug,omitempty" envconfig:"DEBUG"`
	DebugFile   string `json:"debug_file,omitempty" envconfig:"DEBUG_FILE"`
	MaxLogFiles *int   `json:"max_log_files,omitempty" envconfig:"MAX_LOG_FILES"`

	// Timing overrides, in milliseconds; zero means default
	DebounceMS     int `json:"debounce_ms,omitempty" envconfig:"DEBOUNCE_MS"`
	HeartbeatMS    int `json:"heartbeat_ms,omitempty" envconfig:"HEARTBEAT_MS"`
	RestoreDelayMS int `json:"restore_delay_ms,omitempty" envconfig:"RESTORE_DELAY_MS"`
	StartupPauseMS int `json:"startup_pause_ms,omitempty" envconfig:"STARTUP_PAUSE_MS"`
}

// Timings is the resolved set of scheduler/restore intervals
type Timings struct {
	Debounce     time.Duration
	Heartbeat    time.Duration
	RestoreDelay time.Duration
	StartupPause time.Duration
	FinalSaveLag time.Duration
}

// Timings resolves the configured overrides onto the defaults
func (s *Settings) Timings() Timings {
	t := Timings{
		Debounce:     DefaultDebounce,
		Heartbeat:    DefaultHeartbeat,
		RestoreDelay: DefaultRestoreDelay,
		StartupPause: DefaultStartupPause,
		FinalSaveLag: DefaultFinalSaveLag,
	}
	if s.DebounceMS > 0 {
		t.Debounce = time.Duration(s.DebounceMS) * time.Millisecond
	}
	if s.HeartbeatMS > 0 {
		t.Heartbeat = time.Duration(s.HeartbeatMS) * time.Millisecond
	}
	if s.RestoreDelayMS > 0 {
		t.RestoreDelay = time.Duration(s.RestoreDelayMS) * time.Millisecond
	}
	if s.StartupPauseMS > 0 {
		t.StartupPause = time.Duration(s.StartupPauseMS) * time.Millisecond
	}
	return t
}

// GetBridgeAddr returns the websocket bridge listen address
func (s *Settings) GetBridgeAddr() string {
	if s.BridgeAddr != "" {
		return s.BridgeAddr
	}
	return DefaultBridgeAddr
}

// GetDBPath returns the sqlite database path
func (s *Settings) GetDBPath() string {
	if s.DBPath != "" {
		return s.DBPath
	}
	return DefaultDBPath
}

// GetDebug returns the debug flag with default false
func (s *Settings) GetDebug() bool {
	return s.Debug != nil && *s.Debug
}

// GetMaxLogFiles returns the log retention count with default 1000
func (s *Settings) GetMaxLogFiles() int {
	if s.MaxLogFiles != nil {
		return *s.MaxLogFiles
	}
	return DefaultMaxLogFiles
}

// LoadSettings loads settings from ~/.tabspaces/settings.json and applies
// TABSPACES_* environment overrides. A missing file is not an error.
func LoadSettings() (*Settings, error) {
	settings := &Settings{}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	path := filepath.Join(homeDir, ".tabspaces", "settings.json")
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults plus env below
	case err != nil:
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	default:
		if err := json.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("invalid settings.json: %w", err)
		}
	}

	if err := envconfig.Process("tabspaces", settings); err != nil {
		return nil, fmt.Errorf("invalid TABSPACES_* environment: %w", err)
	}

	if settings.DBPath != "" {
		settings.DBPath = ExpandPath(settings.DBPath)
	}
	if settings.DebugFile != "" {
		settings.DebugFile = ExpandPath(settings.DebugFile)
	}

	return settings, nil
}

// ExpandPath expands a leading ~ to the user's home directory
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, path[1:])
}
