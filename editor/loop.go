// Package editor hosts the editor-side execution context. All mutations
// triggered by the bridge run as jobs on a single goroutine, in submission
// order, one at a time.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrStopped is returned for jobs submitted to, or left queued on, a stopped loop.
var ErrStopped = errors.New("editor loop stopped")

// Job is the result-bearing handle of a submitted unit of work.
type Job struct {
	ID   string
	Name string

	fn   func(ctx context.Context) error
	done chan struct{}
	err  error
}

// Done is closed once the job has finished.
func (j *Job) Done() <-chan struct{} { return j.done }

// Err returns the job's error. Only valid after Done is closed.
func (j *Job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

// Wait blocks until the job finishes or ctx is cancelled.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Job) finish(err error) {
	j.err = err
	close(j.done)
}

// Loop runs jobs sequentially on one goroutine.
type Loop struct {
	queue    chan *Job
	stopping chan struct{}
	stopOnce sync.Once

	mu     sync.RWMutex
	closed bool
}

// NewLoop creates a loop whose queue holds up to queueSize pending jobs.
func NewLoop(queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Loop{
		queue:    make(chan *Job, queueSize),
		stopping: make(chan struct{}),
	}
}

// Run processes jobs until ctx is cancelled. Jobs still queued at that point
// finish with ErrStopped.
func (l *Loop) Run(ctx context.Context) {
	defer l.shutdown()
	for {
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case job := <-l.queue:
			l.execute(ctx, job)
		}
	}
}

func (l *Loop) shutdown() {
	l.stopOnce.Do(func() { close(l.stopping) })

	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	for {
		select {
		case job := <-l.queue:
			job.finish(ErrStopped)
		default:
			return
		}
	}
}

func (l *Loop) execute(ctx context.Context, job *Job) {
	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job %s panicked: %v", job.Name, r)
			}
		}()
		return job.fn(ctx)
	}()
	job.finish(err)

	if err != nil {
		slog.Error("editor job failed", "job", job.Name, "id", job.ID, "error", err)
		return
	}
	slog.Debug("editor job done", "job", job.Name, "id", job.ID, "elapsed", time.Since(start))
}

// Submit queues fn and returns its handle without waiting for it to run.
// It blocks only while the queue is full.
func (l *Loop) Submit(ctx context.Context, name string, fn func(ctx context.Context) error) (*Job, error) {
	job := &Job{
		ID:   uuid.NewString(),
		Name: name,
		fn:   fn,
		done: make(chan struct{}),
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, ErrStopped
	}
	select {
	case l.queue <- job:
		return job, nil
	case <-l.stopping:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
