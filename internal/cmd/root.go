package cmd

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"tabspaces/internal/config"
	"tabspaces/internal/logging"
)

// CLI represents the command-line interface structure
type CLI struct {
	Version     kong.VersionFlag `help:"Show version information"`
	Debug       bool             `help:"Enable debug logging to file" short:"d"`
	DebugFile   string           `help:"Custom path for debug log file (disables automatic cleanup)"`
	MaxLogFiles int              `help:"Maximum number of log files to keep (0 = unlimited)" default:"1000"`
	DBPath      string           `help:"Path to SQLite database" type:"path" default:"~/.tabspaces/tabspaces.db" env:"TABSPACES_DB_PATH"`
	BridgeAddr  string           `help:"Websocket bridge listen address" default:"127.0.0.1:7589" env:"TABSPACES_BRIDGE_ADDR"`

	Serve   ServeCmd   `cmd:"" help:"Run the workspace service (default)" default:"1"`
	Inspect InspectCmd `cmd:"inspect" help:"Inspect persisted state and snapshots"`

	// Internal fields (not flags)
	Container *Container       `kong:"-"`
	settings  *config.Settings `kong:"-"`
}

// SetSettings sets the settings on the CLI struct
func (c *CLI) SetSettings(settings *config.Settings) {
	c.settings = settings
}

// AfterApply initializes logging after CLI parsing and applies settings
func (c *CLI) AfterApply() error {
	// Apply settings with proper precedence: CLI flags > env vars > settings.json > defaults
	// Only apply if flag is at default value and env var is not set

	if c.settings != nil {
		if c.DBPath == config.ExpandPath(config.DefaultDBPath) {
			if _, hasEnv := os.LookupEnv("TABSPACES_DB_PATH"); !hasEnv {
				c.DBPath = config.ExpandPath(c.settings.GetDBPath())
			}
		}

		if c.BridgeAddr == config.DefaultBridgeAddr {
			if _, hasEnv := os.LookupEnv("TABSPACES_BRIDGE_ADDR"); !hasEnv {
				c.BridgeAddr = c.settings.GetBridgeAddr()
			}
		}

		if c.MaxLogFiles == config.DefaultMaxLogFiles {
			if _, hasEnv := os.LookupEnv("TABSPACES_MAX_LOG_FILES"); !hasEnv {
				c.MaxLogFiles = c.settings.GetMaxLogFiles()
			}
		}

		if !c.Debug {
			if _, hasEnv := os.LookupEnv("TABSPACES_DEBUG"); !hasEnv {
				c.Debug = c.settings.GetDebug()
			}
		}

		if c.DebugFile == "" && c.settings.DebugFile != "" {
			c.DebugFile = c.settings.DebugFile
		}
	}

	// Initialize logging before anything that logs
	if err := logging.Initialize(c.Debug, c.DebugFile, c.MaxLogFiles); err != nil {
		return err
	}

	// Propagate debug settings through the environment so the GORM logger
	// picks them up
	if c.Debug || c.DebugFile != "" {
		os.Setenv("TABSPACES_DEBUG", "1")
	}
	if c.MaxLogFiles != 1000 {
		os.Setenv("TABSPACES_MAX_LOG_FILES", fmt.Sprintf("%d", c.MaxLogFiles))
	}

	settings := c.settings
	if settings == nil {
		settings = &config.Settings{}
	}

	container, err := NewContainer(c.DBPath, c.BridgeAddr, settings.Timings())
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	c.Container = container

	return nil
}

// Close closes all resources held by the CLI
func (c *CLI) Close() error {
	if c.Container != nil {
		return c.Container.Close()
	}
	return nil
}
