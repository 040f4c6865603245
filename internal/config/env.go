package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv loads configuration from environment variables.
// Environment variables override default values. SCREEN_TIMEOUT,
// SWALLOW_FIRST_TOUCH and KIOSK_IDLE_DEBUG keep the names the kiosk
// supervisor script exports; everything else is KIOSKIDLE_ prefixed.
func LoadFromEnv(cfg *Config) {
	if timeout := os.Getenv("SCREEN_TIMEOUT"); timeout != "" {
		if seconds, err := strconv.ParseFloat(timeout, 64); err == nil {
			cfg.Screen.Timeout = time.Duration(seconds * float64(time.Second))
		}
	}

	if swallow := os.Getenv("SWALLOW_FIRST_TOUCH"); swallow != "" {
		if val, err := strconv.ParseBool(swallow); err == nil {
			cfg.Screen.SwallowTouch = val
		}
	}

	if debug := os.Getenv("KIOSK_IDLE_DEBUG"); debug != "" {
		if val, err := strconv.ParseBool(debug); err == nil {
			cfg.Screen.Debug = val
		}
	}

	if settle := os.Getenv("KIOSKIDLE_SETTLE_MS"); settle != "" {
		if ms, err := strconv.Atoi(settle); err == nil && ms >= 0 {
			cfg.Screen.SettleDelay = time.Duration(ms) * time.Millisecond
		}
	}

	if driver := os.Getenv("KIOSKIDLE_POWER_DRIVER"); driver != "" {
		cfg.Power.Driver = driver
	}

	if journal := os.Getenv("KIOSKIDLE_JOURNAL"); journal != "" {
		if val, err := strconv.ParseBool(journal); err == nil {
			cfg.Journal.Enabled = val
		}
	}

	if dbPath := os.Getenv("KIOSKIDLE_DB_PATH"); dbPath != "" {
		cfg.Journal.Path = dbPath
	}

	if pidFile := os.Getenv("KIOSKIDLE_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	if restPort := os.Getenv("KIOSKIDLE_REST_PORT"); restPort != "" {
		if port, err := strconv.Atoi(restPort); err == nil && port > 0 && port <= 65535 {
			cfg.Web.Port = port
		}
	}

	if token := os.Getenv("KIOSKIDLE_REST_TOKEN"); token != "" {
		cfg.Web.Token = token
	}
}

// New creates a new Config with default values and loads from environment
func New() *Config {
	cfg := Default()
	LoadFromEnv(cfg)
	return cfg
}
