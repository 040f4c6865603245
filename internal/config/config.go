package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds all daemon configuration
type Config struct {
	// Screen holds blank/wake behavior configuration
	Screen ScreenConfig

	// Power holds display-power driver configuration
	Power PowerConfig

	// Journal holds cycle-journal configuration
	Journal JournalConfig

	// Daemon holds daemon process configuration
	Daemon DaemonConfig

	// Web holds REST control server configuration
	Web WebConfig
}

// ScreenConfig holds the idle/blank state machine configuration
type ScreenConfig struct {
	Timeout      time.Duration // Idle time before the display is blanked; <= 0 disables the daemon
	SwallowTouch bool          // Whether to swallow the first input after a blank
	SettleDelay  time.Duration // Pause between power-on and overlay removal
	Debug        bool          // Per-event debug logging
}

// PowerConfig selects the display-power driver
type PowerConfig struct {
	Driver string // "xset" (external command) or "dpms" (in-process extension)
}

// JournalConfig holds cycle-journal configuration
type JournalConfig struct {
	Enabled bool   // Whether blank/wake cycles are recorded to sqlite
	Path    string // Path to sqlite database file; empty means ~/.config/kioskidle
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string // Path to PID file for daemon management
}

// WebConfig holds REST control server configuration
type WebConfig struct {
	Host  string // Host to bind to; the control API is localhost-only
	Port  int    // Port for the REST server
	Token string // Optional bearer token; empty disables auth
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Screen: ScreenConfig{
			Timeout:      0, // Disabled unless SCREEN_TIMEOUT is set
			SwallowTouch: true,
			SettleDelay:  50 * time.Millisecond,
			Debug:        false,
		},
		Power: PowerConfig{
			Driver: "xset",
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    "", // Empty means use default ~/.config/kioskidle/kioskidle.db
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/kioskidle-%d.pid", os.Getuid()),
		},
		Web: WebConfig{
			Host: "127.0.0.1",
			Port: 10000 + os.Getuid(),
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Power.Driver != "xset" && c.Power.Driver != "dpms" {
		return fmt.Errorf("power driver must be xset or dpms, got %q", c.Power.Driver)
	}

	if c.Screen.SettleDelay < 0 {
		return fmt.Errorf("settle delay cannot be negative")
	}

	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	return nil
}

// Enabled reports whether the daemon has anything to manage. A
// non-positive timeout or a disabled swallow means the process exits 0
// without touching the display.
func (c *Config) Enabled() bool {
	return c.Screen.Timeout > 0 && c.Screen.SwallowTouch
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Screen:
    Timeout: %v
    Swallow First Touch: %v
    Settle Delay: %v
    Debug: %v
  Power:
    Driver: %s
  Journal:
    Enabled: %v
    Path: %s
  Daemon:
    PID File: %s
  Web:
    Host: %s
    Port: %d`,
		c.Screen.Timeout,
		c.Screen.SwallowTouch,
		c.Screen.SettleDelay,
		c.Screen.Debug,
		c.Power.Driver,
		c.Journal.Enabled,
		c.Journal.Path,
		c.Daemon.PIDFile,
		c.Web.Host,
		c.Web.Port,
	)
}
