package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T, size int) (*Loop, context.CancelFunc) {
	t.Helper()
	l := NewLoop(size)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return l, cancel
}

func TestSubmitRunsJob(t *testing.T) {
	l, _ := startLoop(t, 4)

	job, err := l.Submit(context.Background(), "hello", func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, job.Wait(ctx))
}

func TestJobErrorIsObservable(t *testing.T) {
	l, _ := startLoop(t, 4)
	boom := errors.New("boom")

	job, err := l.Submit(context.Background(), "fail", func(context.Context) error { return boom })
	require.NoError(t, err)

	<-job.Done()
	assert.ErrorIs(t, job.Err(), boom)
}

func TestJobPanicBecomesError(t *testing.T) {
	l, _ := startLoop(t, 4)

	job, err := l.Submit(context.Background(), "panic", func(context.Context) error { panic("bad") })
	require.NoError(t, err)
	<-job.Done()
	require.Error(t, job.Err())
	assert.Contains(t, job.Err().Error(), "panicked")

	// The loop keeps serving after a panic.
	next, err := l.Submit(context.Background(), "next", func(context.Context) error { return nil })
	require.NoError(t, err)
	<-next.Done()
	assert.NoError(t, next.Err())
}

func TestJobsRunInOrderOneAtATime(t *testing.T) {
	l, _ := startLoop(t, 64)

	var mu sync.Mutex
	var order []int
	running := 0
	overlap := false

	var jobs []*Job
	for i := 0; i < 20; i++ {
		i := i
		job, err := l.Submit(context.Background(), "step", func(context.Context) error {
			mu.Lock()
			running++
			if running > 1 {
				overlap = true
			}
			order = append(order, i)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
			return nil
		})
		require.NoError(t, err)
		jobs = append(jobs, job)
	}
	for _, j := range jobs {
		<-j.Done()
	}

	assert.False(t, overlap)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestErrBeforeDoneIsNil(t *testing.T) {
	l, _ := startLoop(t, 4)
	release := make(chan struct{})

	job, err := l.Submit(context.Background(), "block", func(context.Context) error {
		<-release
		return errors.New("late")
	})
	require.NoError(t, err)
	assert.NoError(t, job.Err())
	close(release)
	<-job.Done()
	assert.Error(t, job.Err())
}

func TestSubmitAfterStop(t *testing.T) {
	l, cancel := startLoop(t, 4)
	cancel()

	require.Eventually(t, func() bool {
		_, err := l.Submit(context.Background(), "late", func(context.Context) error { return nil })
		return errors.Is(err, ErrStopped)
	}, time.Second, time.Millisecond)
}

func TestQueuedJobsFailOnStop(t *testing.T) {
	l := NewLoop(4)
	job, err := l.Submit(context.Background(), "never", func(context.Context) error { return nil })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l.Run(ctx)

	<-job.Done()
	assert.ErrorIs(t, job.Err(), ErrStopped)
}

func TestSubmitRespectsContextWhenFull(t *testing.T) {
	l := NewLoop(1)
	_, err := l.Submit(context.Background(), "fills", func(context.Context) error { return nil })
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Submit(ctx, "blocked", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
