package bridge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"
	"unicode/utf8"

	arenabridge "github.com/Paranoid-AF/arenabridge"
	"github.com/Paranoid-AF/arenabridge/wire"
)

// Handler serves the command of one session.
type Handler interface {
	Dispatch(ctx context.Context, cmd arenabridge.Command, in *wire.Reader, out *wire.Writer) (arenabridge.Status, error)
	Close()
}

// serveConn runs one session: read a command, dispatch it, close the
// connection. Failures end the session only.
func (a *acceptor) serveConn(ctx context.Context, conn net.Conn) {
	start := time.Now()
	defer a.metrics.observe(start)
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			a.metrics.abort("panic")
			slog.Error("session panicked", "project", a.projectID, "remote", conn.RemoteAddr(), "panic", r)
		}
	}()

	if a.timeout > 0 {
		conn.SetDeadline(start.Add(a.timeout))
	}

	in := wire.NewReader(conn, a.maxBytes)
	out := wire.NewLimitedWriter(conn, a.maxBytes)

	raw, err := in.ReadString()
	if err != nil {
		a.metrics.abort("command")
		if errors.Is(err, io.EOF) {
			slog.Debug("connection closed before command", "project", a.projectID, "remote", conn.RemoteAddr())
		} else {
			slog.Warn("session aborted", "project", a.projectID, "stage", "command", "error", err)
		}
		return
	}

	cmd := arenabridge.Command(raw)
	label := raw
	if !cmd.Valid() {
		label = "unknown"
		slog.Warn("unknown command", "project", a.projectID, "command", clip(raw), "bytes", len(raw))
	}
	slog.Debug("request", "project", a.projectID, "command", clip(raw))

	status, err := a.handler.Dispatch(ctx, cmd, in, out)
	if err != nil {
		a.metrics.abort("dispatch")
		slog.Warn("session aborted", "project", a.projectID, "command", label, "error", err)
		return
	}
	a.metrics.session(label, string(status))
	slog.Debug("response", "project", a.projectID, "command", label, "status", status)
}

// maxLoggedCommand bounds how much of an unrecognised command reaches the log.
const maxLoggedCommand = 64

// clip shortens s for logging without splitting a rune.
func clip(s string) string {
	if len(s) <= maxLoggedCommand {
		return s
	}
	cut := maxLoggedCommand
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
