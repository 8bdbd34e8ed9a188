package arenabridge

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	defaults "github.com/Paranoid-AF/arenabridge/default"
)

// Config represents the daemon configuration.
type Config struct {
	Version int           `json:"version"`
	Bridge  BridgeConfig  `json:"bridge"`
	Editor  EditorConfig  `json:"editor"`
	Metrics MetricsConfig `json:"metrics"`
}

// BridgeConfig holds the listener and session settings.
type BridgeConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	// SessionTimeoutSeconds bounds each session's reads and writes.
	// Zero means sessions may block forever.
	SessionTimeoutSeconds int `json:"session_timeout_seconds"`
	// PendingTTLSeconds bounds how long an in-flight NEW_TASK reserves its name.
	PendingTTLSeconds int `json:"pending_ttl_seconds,omitempty"`
	MaxStringBytes    int `json:"max_string_bytes,omitempty"`
}

// EditorConfig holds settings for the editor loop.
type EditorConfig struct {
	// OpenCommand is run to open a generated file; $FILE expands to its path.
	OpenCommand string `json:"open_command"`
	QueueSize   int    `json:"queue_size,omitempty"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables the endpoint.
	Addr string `json:"addr"`
}

// ConfigDir returns the config directory path.
// Resolution order: $ARENABRIDGE_CONFIG_DIR > $XDG_CONFIG_HOME/arenabridge > ~/.config/arenabridge
func ConfigDir() string {
	if dir := os.Getenv("ARENABRIDGE_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "arenabridge")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "arenabridge-config")
	}
	return filepath.Join(home, ".config", "arenabridge")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// DefaultConfig returns the default configuration from the embedded default_config.json.
func DefaultConfig() *Config {
	var cfg Config
	if err := json.Unmarshal(defaults.DefaultConfigJSON, &cfg); err != nil {
		panic("arenabridge: invalid embedded default_config.json: " + err.Error())
	}
	return &cfg
}

// LoadConfig loads config from disk or returns defaults if not found.
func LoadConfig() (*Config, error) {
	path := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// Apply defaults for missing fields
	defaults := DefaultConfig()
	if cfg.Bridge.Host == "" {
		cfg.Bridge.Host = defaults.Bridge.Host
	}
	if cfg.Bridge.Port == 0 {
		cfg.Bridge.Port = defaults.Bridge.Port
	}
	if cfg.Bridge.PendingTTLSeconds == 0 {
		cfg.Bridge.PendingTTLSeconds = defaults.Bridge.PendingTTLSeconds
	}
	if cfg.Bridge.MaxStringBytes == 0 {
		cfg.Bridge.MaxStringBytes = defaults.Bridge.MaxStringBytes
	}
	if cfg.Editor.QueueSize == 0 {
		cfg.Editor.QueueSize = defaults.Editor.QueueSize
	}

	return &cfg, nil
}

// ValidateConfig checks configuration for potential issues and returns warnings.
func ValidateConfig(cfg *Config) []string {
	var warnings []string
	if cfg == nil {
		return warnings
	}
	if cfg.Bridge.Port < 0 || cfg.Bridge.Port > 65535 {
		warnings = append(warnings, fmt.Sprintf("bridge port %d is out of range", cfg.Bridge.Port))
	}
	if cfg.Bridge.SessionTimeoutSeconds < 0 {
		warnings = append(warnings, "session_timeout_seconds is negative; sessions will not time out")
	}
	if host := ResolveHost(cfg); host != "" {
		if ip := net.ParseIP(host); ip != nil && !ip.IsLoopback() {
			warnings = append(warnings, "bridge host "+host+" is not a loopback address; the bridge has no authentication")
		}
	}
	if cfg.Bridge.MaxStringBytes < 0 {
		warnings = append(warnings, "max_string_bytes is negative; the default limit applies")
	}
	return warnings
}

// ResolveHost returns the listen host.
// Priority: $ARENABRIDGE_HOST env > config value.
func ResolveHost(cfg *Config) string {
	if host := os.Getenv("ARENABRIDGE_HOST"); host != "" {
		return host
	}
	if cfg != nil {
		return cfg.Bridge.Host
	}
	return ""
}

// ResolvePort returns the listen port.
// Priority: $ARENABRIDGE_PORT env (when numeric) > config value.
func ResolvePort(cfg *Config) int {
	if v := os.Getenv("ARENABRIDGE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			return port
		}
	}
	if cfg != nil {
		return cfg.Bridge.Port
	}
	return 0
}

// ResolveAddr returns the host:port the bridge listens on.
func ResolveAddr(cfg *Config) string {
	return net.JoinHostPort(ResolveHost(cfg), strconv.Itoa(ResolvePort(cfg)))
}

// ResolveOpenCommand returns the command used to open generated files.
// Priority: $ARENABRIDGE_OPEN_COMMAND env > config value.
func ResolveOpenCommand(cfg *Config) string {
	if cmd := os.Getenv("ARENABRIDGE_OPEN_COMMAND"); cmd != "" {
		return cmd
	}
	if cfg != nil {
		return cfg.Editor.OpenCommand
	}
	return ""
}

// ResolveMetricsAddr returns the /metrics listen address.
// Priority: $ARENABRIDGE_METRICS_ADDR env > config value.
func ResolveMetricsAddr(cfg *Config) string {
	if addr := os.Getenv("ARENABRIDGE_METRICS_ADDR"); addr != "" {
		return addr
	}
	if cfg != nil {
		return cfg.Metrics.Addr
	}
	return ""
}

// SessionTimeout returns the per-session deadline, or zero when disabled.
func SessionTimeout(cfg *Config) time.Duration {
	if cfg == nil || cfg.Bridge.SessionTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(cfg.Bridge.SessionTimeoutSeconds) * time.Second
}

// PendingTTL returns how long an in-flight NEW_TASK reserves its name.
func PendingTTL(cfg *Config) time.Duration {
	if cfg == nil || cfg.Bridge.PendingTTLSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(cfg.Bridge.PendingTTLSeconds) * time.Second
}
