package commands

import (
	"path/filepath"
	"time"

	"stravatools/lib/configutil"
	"stravatools/lib/platforms/strava/core"
)

const ConfigFile = "config.json5"

const (
	DebugRequests = "requests"
	DebugVerbose  = "verbose"
)

// Config is read from config.json5 in the config directory, a
// config.local.json5 next to it overrides single fields.
type Config struct {
	BaseUrl string `json:"base_url"`
	// Cert is a PEM file replacing the system roots.
	Cert     string `json:"cert"`
	LogLevel string `json:"log_level"`
	// Debug is "", "requests" (log every request) or "verbose" (also dump
	// every message into DebugDir).
	Debug    string `json:"debug"`
	DebugDir string `json:"debug_dir"`
	// RequestsPerSecond of 0 turns pacing off.
	RequestsPerSecond *float64 `json:"requests_per_second"`
	TimeoutSeconds    int      `json:"timeout_seconds"`
	ArchiveDb         string   `json:"archive_db"`
	Remember          *bool    `json:"remember"`
}

func defaultConfig(dir string) Config {
	remember := true
	rate := 2.0
	return Config{
		BaseUrl:           core.DefaultBaseUrl,
		LogLevel:          "info",
		DebugDir:          filepath.Join(dir, "debug"),
		RequestsPerSecond: &rate,
		TimeoutSeconds:    30,
		Remember:          &remember,
	}
}

// ReadConfig reads the config of `dir`, missing fields take their defaults.
func ReadConfig(dir string) (Config, error) {
	return configutil.ReadOptional(filepath.Join(dir, ConfigFile), defaultConfig(dir))
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) RequestRate() float64 {
	if c.RequestsPerSecond == nil {
		return 0
	}
	return *c.RequestsPerSecond
}

func (c Config) RememberByDefault() bool {
	return c.Remember == nil || *c.Remember
}
