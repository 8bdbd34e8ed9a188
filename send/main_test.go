package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paranoid-AF/arenabridge/peer"
	"github.com/Paranoid-AF/arenabridge/wire"
)

// fakeBridge answers every connection with the given strings.
func fakeBridge(t *testing.T, reply ...string) (addr string, commands chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	commands = make(chan string, 4)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			in := wire.NewReader(conn, 0)
			cmd, err := in.ReadString()
			if err == nil {
				commands <- cmd
				// Drain the arguments so closing does not reset the connection.
				switch cmd {
				case "GET_SOURCE":
					in.ReadString()
				case "NEW_TASK":
					in.ReadTask()
				}
			}
			out := wire.NewWriter(conn)
			for _, s := range reply {
				out.WriteString(s)
			}
			out.Flush()
			conn.Close()
		}
	}()
	return ln.Addr().String(), commands
}

func execute(t *testing.T, args ...string) peer.Result {
	t.Helper()
	cmd := rootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs(args)
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var res peer.Result
	_, err := toml.Decode(stdout.String(), &res)
	require.NoError(t, err)
	return res
}

func TestGetSourcePrintsTOML(t *testing.T) {
	addr, commands := fakeBridge(t, "OK", "class Foo {}")

	res := execute(t, "--addr", addr, "get-source", "Foo")
	assert.Equal(t, "GET_SOURCE", <-commands)
	assert.Equal(t, peer.Result{Command: "GET_SOURCE", Task: "Foo", Status: "OK", Source: "class Foo {}"}, res)
}

func TestNewTaskPrintsStatus(t *testing.T) {
	addr, commands := fakeBridge(t, "ALREADY_DEFINED")
	path := filepath.Join(t.TempDir(), "bar.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
name = "Bar"
[signature]
method_name = "solve"
return_type = "int"
`), 0644))

	res := execute(t, "--addr", addr, "new-task", path)
	assert.Equal(t, "NEW_TASK", <-commands)
	assert.Equal(t, "Bar", res.Task)
	assert.Equal(t, "ALREADY_DEFINED", res.Status)
}

func TestNewTaskMissingFile(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--addr", "127.0.0.1:1", "new-task", filepath.Join(t.TempDir(), "nope.toml")})
	assert.Error(t, cmd.Execute())
}
