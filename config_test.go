package arenabridge

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDirPriority(t *testing.T) {
	t.Setenv("ARENABRIDGE_CONFIG_DIR", "/custom/dir")
	assert.Equal(t, "/custom/dir", ConfigDir())

	t.Setenv("ARENABRIDGE_CONFIG_DIR", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "arenabridge"), ConfigDir())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "127.0.0.1", cfg.Bridge.Host)
	assert.Equal(t, 4444, cfg.Bridge.Port)
	assert.Zero(t, cfg.Bridge.SessionTimeoutSeconds, "sessions must not time out by default")
	assert.Equal(t, 60, cfg.Bridge.PendingTTLSeconds)
	assert.Positive(t, cfg.Editor.QueueSize)
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("ARENABRIDGE_CONFIG_DIR", t.TempDir())
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFillsMissingFields(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ARENABRIDGE_CONFIG_DIR", dir)
	data := []byte(`{"bridge": {"port": 5555, "session_timeout_seconds": 30}}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), data, 0644))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 5555, cfg.Bridge.Port)
	assert.Equal(t, "127.0.0.1", cfg.Bridge.Host)
	assert.Equal(t, 30*time.Second, SessionTimeout(cfg))
	assert.Equal(t, 16, cfg.Editor.QueueSize)
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ARENABRIDGE_CONFIG_DIR", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{"), 0644))

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestResolveEnvOverrides(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("ARENABRIDGE_HOST", "::1")
	t.Setenv("ARENABRIDGE_PORT", "7000")
	t.Setenv("ARENABRIDGE_OPEN_COMMAND", "code -g $FILE")
	t.Setenv("ARENABRIDGE_METRICS_ADDR", "127.0.0.1:9100")

	assert.Equal(t, "[::1]:7000", ResolveAddr(cfg))
	assert.Equal(t, "code -g $FILE", ResolveOpenCommand(cfg))
	assert.Equal(t, "127.0.0.1:9100", ResolveMetricsAddr(cfg))
}

func TestResolvePortIgnoresGarbage(t *testing.T) {
	t.Setenv("ARENABRIDGE_PORT", "not-a-port")
	assert.Equal(t, 4444, ResolvePort(DefaultConfig()))
}

func TestValidateConfigWarnings(t *testing.T) {
	t.Setenv("ARENABRIDGE_HOST", "")
	assert.Empty(t, ValidateConfig(DefaultConfig()))
	assert.Empty(t, ValidateConfig(nil))

	cfg := DefaultConfig()
	cfg.Bridge.Port = 70000
	cfg.Bridge.Host = "10.0.0.1"
	cfg.Bridge.SessionTimeoutSeconds = -1
	assert.Len(t, ValidateConfig(cfg), 3)
}

func TestPendingTTLDefault(t *testing.T) {
	assert.Equal(t, time.Minute, PendingTTL(nil))
	cfg := DefaultConfig()
	cfg.Bridge.PendingTTLSeconds = 5
	assert.Equal(t, 5*time.Second, PendingTTL(cfg))
}
