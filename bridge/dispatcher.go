package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	arenabridge "github.com/Paranoid-AF/arenabridge"
	"github.com/Paranoid-AF/arenabridge/editor"
	"github.com/Paranoid-AF/arenabridge/wire"
)

var errTaskExists = errors.New("task already defined")

// Workspace is the project filesystem surface used by the dispatcher.
type Workspace interface {
	FindSource(name string) (text string, found bool, err error)
	TaskDefined(name string) bool
	EnsureDefaultDir() (string, error)
	PackageName() string
	WriteSource(name, text string) (path string, err error)
}

// StubGenerator renders the skeleton source of a new task.
type StubGenerator interface {
	Generate(task *arenabridge.TaskRecord, fqn string) (string, error)
}

// TaskConfigurations persists the per-task configuration entry.
type TaskConfigurations interface {
	Persist(task *arenabridge.TaskRecord, fqn string) error
}

// Opener brings a generated file up in the editor.
type Opener interface {
	OpenForEditing(ctx context.Context, fqn, path string) error
}

// Scheduler runs deferred work on the editor's execution context.
type Scheduler interface {
	Submit(ctx context.Context, name string, fn func(ctx context.Context) error) (*editor.Job, error)
}

// Collaborators are the external services a Dispatcher works against.
type Collaborators struct {
	Workspace Workspace
	Stubs     StubGenerator
	Tasks     TaskConfigurations
	Opener    Opener
	Scheduler Scheduler
}

// Dispatcher implements GET_SOURCE and NEW_TASK for one project.
type Dispatcher struct {
	project string
	c       Collaborators
	pending *pendingSet
	metrics *Metrics
	onJob   func(task string, job *editor.Job)
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*dispatcherConfig)

type dispatcherConfig struct {
	pendingTTL time.Duration
	metrics    *Metrics
	onJob      func(task string, job *editor.Job)
}

// WithPendingTTL bounds how long an accepted NEW_TASK reserves its name.
func WithPendingTTL(ttl time.Duration) DispatcherOption {
	return func(c *dispatcherConfig) { c.pendingTTL = ttl }
}

// WithMetrics records job outcomes in m.
func WithMetrics(m *Metrics) DispatcherOption {
	return func(c *dispatcherConfig) { c.metrics = m }
}

// WithJobObserver calls fn with every finished deferred job.
func WithJobObserver(fn func(task string, job *editor.Job)) DispatcherOption {
	return func(c *dispatcherConfig) { c.onJob = fn }
}

// NewDispatcher creates a dispatcher for the project identified by projectID.
func NewDispatcher(projectID string, c Collaborators, opts ...DispatcherOption) *Dispatcher {
	cfg := dispatcherConfig{pendingTTL: time.Minute}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Dispatcher{
		project: projectID,
		c:       c,
		pending: newPendingSet(cfg.pendingTTL),
		metrics: cfg.metrics,
		onJob:   cfg.onJob,
	}
}

// Close releases the reservation cache.
func (d *Dispatcher) Close() {
	d.pending.close()
}

// Dispatch reads the arguments of cmd from in and writes its response to out.
// The returned error is non-nil only when the exchange itself failed.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd arenabridge.Command, in *wire.Reader, out *wire.Writer) (arenabridge.Status, error) {
	switch cmd {
	case arenabridge.GetSource:
		return d.getSource(in, out)
	case arenabridge.NewTask:
		return d.newTask(ctx, in, out)
	}
	return arenabridge.StatusOtherError, respond(out, arenabridge.StatusOtherError)
}

func (d *Dispatcher) getSource(in *wire.Reader, out *wire.Writer) (arenabridge.Status, error) {
	name, err := in.ReadString()
	if err != nil {
		return "", fmt.Errorf("read task name: %w", err)
	}

	text, found, err := d.c.Workspace.FindSource(name)
	if err != nil {
		slog.Warn("source lookup failed", "project", d.project, "task", name, "error", err)
	}
	if err == nil && found {
		if err = out.Check(text); err != nil {
			slog.Warn("source cannot be sent", "project", d.project, "task", name, "bytes", len(text), "error", err)
		}
	}
	if err != nil || !found {
		return arenabridge.StatusOtherError, respond(out, arenabridge.StatusOtherError)
	}
	return arenabridge.StatusOK, respond(out, arenabridge.StatusOK, text)
}

func (d *Dispatcher) newTask(ctx context.Context, in *wire.Reader, out *wire.Writer) (arenabridge.Status, error) {
	task, err := in.ReadTask()
	if err == nil {
		err = task.Validate()
	}
	if err != nil {
		slog.Warn("malformed task record", "project", d.project, "error", err)
		return arenabridge.StatusOtherError, respond(out, arenabridge.StatusOtherError)
	}

	if d.c.Workspace.TaskDefined(task.Name) || d.pending.has(task.Name) {
		slog.Debug("task already defined", "project", d.project, "task", task.Name)
		return arenabridge.StatusAlreadyDefined, respond(out, arenabridge.StatusAlreadyDefined)
	}

	token := d.pending.reserve(task.Name)
	if err := respond(out, arenabridge.StatusOK); err != nil {
		d.pending.release(task.Name, token)
		return "", err
	}

	job, err := d.c.Scheduler.Submit(ctx, "new-task "+task.Name, func(ctx context.Context) error {
		d.pending.refresh(task.Name, token)
		// A reservation that expired while queued may have let a second
		// request for the same name in behind this one.
		if d.c.Workspace.TaskDefined(task.Name) {
			return fmt.Errorf("%w: %s", errTaskExists, task.Name)
		}
		return d.createTask(ctx, task)
	})
	if err != nil {
		// OK is already on the wire; the peer cannot learn about this.
		d.pending.release(task.Name, token)
		d.metrics.job("rejected")
		slog.Error("failed to schedule task creation", "project", d.project, "task", task.Name, "error", err)
		return arenabridge.StatusOK, nil
	}
	go d.await(task.Name, token, job)
	return arenabridge.StatusOK, nil
}

func (d *Dispatcher) await(name, token string, job *editor.Job) {
	<-job.Done()
	d.pending.release(name, token)
	if err := job.Err(); err != nil {
		d.metrics.job("failed")
		slog.Error("task creation failed", "project", d.project, "task", name, "job", job.ID, "error", err)
	} else {
		d.metrics.job("succeeded")
	}
	if d.onJob != nil {
		d.onJob(name, job)
	}
}

// createTask runs on the editor loop.
func (d *Dispatcher) createTask(ctx context.Context, task *arenabridge.TaskRecord) error {
	if _, err := d.c.Workspace.EnsureDefaultDir(); err != nil {
		return err
	}
	fqn := qualify(d.packageFor(task), task.Name)

	text, err := d.c.Stubs.Generate(task, fqn)
	if err != nil {
		return err
	}
	path, err := d.c.Workspace.WriteSource(task.Name, text)
	if err != nil {
		return fmt.Errorf("write stub: %w", err)
	}
	if err := d.c.Tasks.Persist(task, fqn); err != nil {
		return fmt.Errorf("persist task configuration: %w", err)
	}
	slog.Info("task created", "project", d.project, "fqn", fqn, "file", path)
	return d.c.Opener.OpenForEditing(ctx, fqn, path)
}

// packageFor returns the default directory's package, or the record's package
// hint when the directory has none.
func (d *Dispatcher) packageFor(task *arenabridge.TaskRecord) string {
	if pkg := d.c.Workspace.PackageName(); pkg != "" {
		return pkg
	}
	if validPackage(task.PackageHint) {
		return task.PackageHint
	}
	return ""
}

func validPackage(pkg string) bool {
	if pkg == "" {
		return false
	}
	for _, seg := range strings.Split(pkg, ".") {
		if !arenabridge.IsIdentifier(seg) {
			return false
		}
	}
	return true
}

func qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// respond writes status followed by payload strings and flushes.
func respond(out *wire.Writer, status arenabridge.Status, payload ...string) error {
	if err := out.WriteString(string(status)); err != nil {
		return err
	}
	for _, p := range payload {
		if err := out.WriteString(p); err != nil {
			return err
		}
	}
	return out.Flush()
}
