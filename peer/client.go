// Package peer is the arena-client side of the bridge: it sends one command
// per connection and decodes the response.
package peer

import (
	"context"
	"fmt"
	"net"
	"time"

	arenabridge "github.com/Paranoid-AF/arenabridge"
	"github.com/Paranoid-AF/arenabridge/wire"
)

// DefaultTimeout bounds an exchange when the context has no deadline.
const DefaultTimeout = 10 * time.Second

// Client talks to a bridge listening on Addr.
type Client struct {
	Addr    string
	Timeout time.Duration
}

// NewClient creates a client for addr.
func NewClient(addr string) *Client {
	return &Client{Addr: addr, Timeout: DefaultTimeout}
}

func (c *Client) exchange(ctx context.Context, fn func(in *wire.Reader, out *wire.Writer) error) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return fmt.Errorf("connect to bridge: %w", err)
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if !ok && c.Timeout > 0 {
		deadline, ok = time.Now().Add(c.Timeout), true
	}
	if ok {
		conn.SetDeadline(deadline)
	}
	return fn(wire.NewReader(conn, 0), wire.NewWriter(conn))
}

// GetSource fetches the generated source of task name. source is empty
// unless status is OK.
func (c *Client) GetSource(ctx context.Context, name string) (status arenabridge.Status, source string, err error) {
	err = c.exchange(ctx, func(in *wire.Reader, out *wire.Writer) error {
		if err := out.WriteString(string(arenabridge.GetSource)); err != nil {
			return err
		}
		if err := out.WriteString(name); err != nil {
			return err
		}
		if err := out.Flush(); err != nil {
			return err
		}
		s, err := in.ReadString()
		if err != nil {
			return fmt.Errorf("read status: %w", err)
		}
		status = arenabridge.Status(s)
		if status != arenabridge.StatusOK {
			return nil
		}
		source, err = in.ReadString()
		if err != nil {
			return fmt.Errorf("read source: %w", err)
		}
		return nil
	})
	return status, source, err
}

// NewTask sends task to the bridge. OK means the bridge accepted the task;
// the stub is written afterwards.
func (c *Client) NewTask(ctx context.Context, task *arenabridge.TaskRecord) (status arenabridge.Status, err error) {
	err = c.exchange(ctx, func(in *wire.Reader, out *wire.Writer) error {
		if err := out.WriteString(string(arenabridge.NewTask)); err != nil {
			return err
		}
		if err := out.WriteTask(task); err != nil {
			return err
		}
		if err := out.Flush(); err != nil {
			return err
		}
		s, err := in.ReadString()
		if err != nil {
			return fmt.Errorf("read status: %w", err)
		}
		status = arenabridge.Status(s)
		return nil
	})
	return status, err
}
