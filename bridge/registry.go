// Package bridge is the socket server between the contest arena client and
// the editor: a process-wide registry holding at most one listener per
// project, an accept loop serving one session at a time, and the dispatcher
// for the GET_SOURCE and NEW_TASK commands.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/Paranoid-AF/arenabridge/editor"
	"github.com/Paranoid-AF/arenabridge/stub"
	"github.com/Paranoid-AF/arenabridge/workspace"
)

// ErrBind is returned by Start when the listener cannot be created.
var ErrBind = errors.New("bridge: bind failed")

// HandlerFactory builds the session handler for a project.
type HandlerFactory func(p *workspace.Project) (Handler, error)

// Options configure every listener a Registry starts.
type Options struct {
	// Addr is the fixed host:port each project listens on.
	Addr string
	// SessionTimeout bounds a whole session. Zero disables the deadline.
	SessionTimeout time.Duration
	// MaxStringBytes caps a single wire string. Zero selects the wire default.
	MaxStringBytes int
	Metrics        *Metrics
}

type binding struct {
	projectID string
	ln        net.Listener
	handler   Handler
	cancel    context.CancelFunc
	done      chan struct{}
}

// Registry maps project identity to its running listener.
type Registry struct {
	opts       Options
	newHandler HandlerFactory

	mu       sync.Mutex
	bindings map[string]*binding
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options, newHandler HandlerFactory) *Registry {
	return &Registry{
		opts:       opts,
		newHandler: newHandler,
		bindings:   make(map[string]*binding),
	}
}

// Start binds the listener for p and starts serving it, unless p is already
// running. The listener stops when ctx is cancelled.
func (r *Registry) Start(ctx context.Context, p *workspace.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := p.ID()
	if _, ok := r.bindings[id]; ok {
		return nil
	}

	handler, err := r.newHandler(p)
	if err != nil {
		return fmt.Errorf("create handler for %s: %w", id, err)
	}
	ln, err := net.Listen("tcp", r.opts.Addr)
	if err != nil {
		handler.Close()
		return fmt.Errorf("%w: %s: %w", ErrBind, r.opts.Addr, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	b := &binding{
		projectID: id,
		ln:        ln,
		handler:   handler,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	r.bindings[id] = b

	a := &acceptor{
		projectID: id,
		ln:        ln,
		handler:   handler,
		timeout:   r.opts.SessionTimeout,
		maxBytes:  r.opts.MaxStringBytes,
		metrics:   r.opts.Metrics,
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	go func() {
		defer close(b.done)
		a.run(ctx)
		r.remove(b)
		handler.Close()
		slog.Info("bridge stopped", "project", id)
	}()

	slog.Info("bridge listening", "project", id, "addr", ln.Addr().String())
	return nil
}

func (r *Registry) remove(b *binding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bindings[b.projectID] == b {
		delete(r.bindings, b.projectID)
	}
}

// IsRunning reports whether projectID has a listener.
func (r *Registry) IsRunning(projectID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.bindings[projectID]
	return ok
}

// DefaultHandlerFactory wires each project to the filesystem workspace, the
// template stub generator and the task file store, with deferred work on
// scheduler and files opened through opener.
func DefaultHandlerFactory(scheduler Scheduler, opener Opener, opts ...DispatcherOption) HandlerFactory {
	return func(p *workspace.Project) (Handler, error) {
		tasks := workspace.NewTaskStore(p)
		if known := tasks.FQNs(); len(known) > 0 {
			slog.Info("known tasks", "project", p.ID(), "count", len(known), "tasks", known)
		}
		return NewDispatcher(p.ID(), Collaborators{
			Workspace: p,
			Stubs:     stub.Load(p.StubTemplatePath()),
			Tasks:     tasks,
			Opener:    opener,
			Scheduler: scheduler,
		}, opts...), nil
	}
}

var _ Scheduler = (*editor.Loop)(nil)
var _ Opener = (*editor.Launcher)(nil)
