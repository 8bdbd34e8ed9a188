package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	arenabridge "github.com/Paranoid-AF/arenabridge"
	"github.com/Paranoid-AF/arenabridge/bridge"
	"github.com/Paranoid-AF/arenabridge/peer"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("ARENABRIDGE_CONFIG_DIR", t.TempDir())
	t.Setenv("ARENABRIDGE_HOST", "127.0.0.1")
	t.Setenv("ARENABRIDGE_OPEN_COMMAND", "")
	t.Setenv("ARENABRIDGE_METRICS_ADDR", "")
}

func TestRunServesProject(t *testing.T) {
	isolateConfig(t)
	port := freePort(t)
	t.Setenv("ARENABRIDGE_PORT", strconv.Itoa(port))

	project := t.TempDir()
	out := filepath.Join(project, "output")
	require.NoError(t, os.MkdirAll(out, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "Foo.java"), []byte("class Foo {}"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- run(ctx, project) }()

	client := peer.NewClient(net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	var status arenabridge.Status
	var source string
	require.Eventually(t, func() bool {
		var err error
		status, source, err = client.GetSource(context.Background(), "Foo")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, arenabridge.StatusOK, status)
	assert.Equal(t, "class Foo {}", source)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRunBindFailureIsFatal(t *testing.T) {
	isolateConfig(t)
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()
	t.Setenv("ARENABRIDGE_PORT", strconv.Itoa(busy.Addr().(*net.TCPAddr).Port))

	err = run(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, bridge.ErrBind)
}

func TestRunMissingProject(t *testing.T) {
	isolateConfig(t)
	err := run(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "load project")
}

func TestConfigCommandDefaults(t *testing.T) {
	isolateConfig(t)
	cmd := rootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "--defaults"})
	require.NoError(t, cmd.Execute())

	var cfg arenabridge.Config
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &cfg))
	assert.Equal(t, 4444, cfg.Bridge.Port)
}

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(stdout.String(), "arenabridged "))
}
