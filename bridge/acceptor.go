package bridge

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"
)

// acceptor owns one project's listener and serves its connections one at a
// time on its own goroutine.
type acceptor struct {
	projectID string
	ln        net.Listener
	handler   Handler
	timeout   time.Duration
	maxBytes  int
	metrics   *Metrics
}

// run accepts until the listener is closed. A stalled session blocks every
// later connection for the project.
func (a *acceptor) run(ctx context.Context) {
	var delay time.Duration
	for {
		conn, err := a.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			// Back off on transient failures such as running out of descriptors.
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else if delay < time.Second {
				delay *= 2
			}
			slog.Warn("accept failed", "project", a.projectID, "error", err, "retry_in", delay)
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return
			}
		}
		delay = 0
		a.serveConn(ctx, conn)
	}
}
