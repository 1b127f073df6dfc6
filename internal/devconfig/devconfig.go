// Package devconfig loads the configuration shared by both CLIs (spec §10):
// defaults, then an optional hujson (JSON-with-comments) config file,
// then CLI flags, highest precedence last. Adapted from the teacher's
// internal/ticket.LoadConfig layering.
package devconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/hujson"
)

// Config holds every option [internal/semaphore] and [internal/registry]
// accept, so one config file and one set of flags can drive both CLIs.
type Config struct {
	RegistryDir        string        `json:"registry_dir,omitempty"`
	MinPort            int           `json:"min_port,omitempty"`
	MaxPort            int           `json:"max_port,omitempty"`
	AllowPrivileged    bool          `json:"allow_privileged,omitempty"`
	MaxPortsPerRequest int           `json:"max_ports_per_request,omitempty"`
	MaxRegistrySize    int           `json:"max_registry_size,omitempty"`
	StaleTimeoutMS     int64         `json:"stale_timeout_ms,omitempty"`
	RetryIntervalMS    int64         `json:"retry_interval_ms,omitempty"`
}

// StaleTimeout returns the configured stale timeout as a [time.Duration].
func (c Config) StaleTimeout() time.Duration {
	if c.StaleTimeoutMS <= 0 {
		return 0
	}

	return time.Duration(c.StaleTimeoutMS) * time.Millisecond
}

// RetryInterval returns the configured retry interval as a [time.Duration].
func (c Config) RetryInterval() time.Duration {
	if c.RetryIntervalMS <= 0 {
		return 0
	}

	return time.Duration(c.RetryIntervalMS) * time.Millisecond
}

// ConfigFileName is the file name looked up under the config directory.
const ConfigFileName = "config.json"

// DefaultPath returns the default config file path:
// $XDG_CONFIG_HOME/devlock/config.json, or ~/.config/devlock/config.json.
func DefaultPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "devlock", ConfigFileName)
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "devlock", ConfigFileName)
	}

	return ""
}

// Load reads the config file at path (or [DefaultPath] if path is empty).
// A missing file at the default location is not an error: Load returns the
// zero Config. An explicitly-named missing file is an error.
func Load(path string, explicit bool, env map[string]string) (Config, error) {
	if path == "" {
		path = DefaultPath(env)
	}

	if path == "" {
		return Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Config{}, nil
		}

		return Config{}, fmt.Errorf("reading config file %q: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC in config file %q: %w", path, err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config file %q: %w", path, err)
	}

	return cfg, nil
}
