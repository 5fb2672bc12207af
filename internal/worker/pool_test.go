package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResult struct {
	pos int
	err error
}

func (r *stubResult) Position() int { return r.pos }
func (r *stubResult) Err() error    { return r.err }

type stubJob struct {
	idx      int
	delay    time.Duration
	fail     bool
	executed *int32
}

func (j *stubJob) Index() int { return j.idx }

func (j *stubJob) Execute(ctx context.Context) Result {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.delay > 0 {
		select {
		case <-time.After(j.delay):
		case <-ctx.Done():
			return &stubResult{pos: j.idx, err: ctx.Err()}
		}
	}
	if j.fail {
		return &stubResult{pos: j.idx, err: errors.New("job failed")}
	}
	return &stubResult{pos: j.idx}
}

func TestNewPool_WorkerFloor(t *testing.T) {
	assert.Equal(t, 3, NewPool(context.Background(), 3).workers)
	assert.Equal(t, 1, NewPool(context.Background(), 0).workers)
	assert.Equal(t, 1, NewPool(context.Background(), -4).workers)
}

func TestPool_RunsEveryJob(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	var executed int32
	const n = 25 // more than the queue buffers
	go func() {
		defer pool.Close()
		for i := 0; i < n; i++ {
			pool.Submit(&stubJob{idx: i, fail: i%5 == 0, executed: &executed})
		}
	}()

	seen := make(map[int]bool)
	failures := 0
	for r := range pool.Results() {
		seen[r.Position()] = true
		if r.Err() != nil {
			failures++
		}
	}

	assert.Len(t, seen, n)
	assert.Equal(t, 5, failures)
	assert.Equal(t, int32(n), atomic.LoadInt32(&executed))
}

func TestPool_SubmitAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1)
	pool.Start()
	cancel()

	require.Eventually(t, func() bool {
		return !pool.Submit(&stubJob{})
	}, time.Second, 5*time.Millisecond)
	pool.Shutdown()
}

func TestPool_ShutdownStopsLongJobs(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()
	pool.Submit(&stubJob{delay: time.Hour})
	pool.Submit(&stubJob{delay: time.Hour})

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not return")
	}
}
