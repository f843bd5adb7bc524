package download

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bowenkfan/multi-dl/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q := newQueue()
	var jobs []*model.Job
	for i := 0; i < 5; i++ {
		job := model.NewJob("src", "", "", "")
		jobs = append(jobs, job)
		q.push(job)
	}
	assert.Equal(t, 5, q.len())

	for _, want := range jobs {
		got, ok := q.pop()
		require.True(t, ok)
		assert.Same(t, want, got)
	}

	_, ok := q.pop()
	assert.False(t, ok)
}

func TestQueue_WaitWakesOnPush(t *testing.T) {
	q := newQueue()
	stop := make(chan struct{})

	done := make(chan time.Duration, 1)
	go func() {
		start := time.Now()
		q.wait(stop, time.Minute)
		done <- time.Since(start)
	}()

	time.Sleep(10 * time.Millisecond)
	q.push(model.NewJob("src", "", "", ""))

	select {
	case elapsed := <-done:
		assert.Less(t, elapsed, time.Second)
	case <-time.After(waitFor):
		t.Fatal("wait did not return after push")
	}
}

func TestQueue_WaitTimesOutAndStops(t *testing.T) {
	q := newQueue()

	start := time.Now()
	q.wait(make(chan struct{}), 20*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	stop := make(chan struct{})
	close(stop)
	start = time.Now()
	q.wait(stop, time.Minute)
	assert.Less(t, time.Since(start), time.Second)
}

func TestQueue_DrainEmpties(t *testing.T) {
	q := newQueue()
	q.push(model.NewJob("a", "", "", ""))
	q.push(model.NewJob("b", "", "", ""))

	drained := q.drain()
	assert.Len(t, drained, 2)
	assert.Zero(t, q.len())
}

func TestPool_EveryJobClaimedOnce(t *testing.T) {
	q := newQueue()
	var mu sync.Mutex
	seen := make(map[string]int)

	p := newPool(q, 4, 10*time.Millisecond, func(ctx context.Context, job *model.Job) {
		mu.Lock()
		seen[job.ID]++
		mu.Unlock()
	}, nil)
	require.NoError(t, p.Start(context.Background()))

	const n = 200
	for i := 0; i < n; i++ {
		q.push(model.NewJob("src", "", "", ""))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == n
	}, waitFor, tick)

	require.NoError(t, p.Stop(context.Background()))
	mu.Lock()
	defer mu.Unlock()
	for id, count := range seen {
		assert.Equal(t, 1, count, "job %s", id)
	}
	assert.Zero(t, p.Live())
}

func TestPool_ResizeRejectsBelowOne(t *testing.T) {
	p := newPool(newQueue(), 2, 0, func(context.Context, *model.Job) {}, nil)
	assert.ErrorIs(t, p.Resize(0), ErrInvalidConfiguration)
	assert.Equal(t, 2, p.Size())
	assert.Equal(t, DefaultPollInterval, p.interval)
}

func TestPool_StopIdleWorkersPromptly(t *testing.T) {
	p := newPool(newQueue(), 3, time.Minute, func(context.Context, *model.Job) {}, nil)
	require.NoError(t, p.Start(context.Background()))
	assert.Eventually(t, func() bool { return p.Live() == 3 }, waitFor, tick)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
	assert.Zero(t, p.Live())
	assert.Zero(t, p.Active())
}

func TestPool_SignalledWorkerPassesWakeUpOn(t *testing.T) {
	q := newQueue()
	p := newPool(q, 1, time.Hour, func(context.Context, *model.Job) {}, nil)
	w := &worker{stop: make(chan struct{})}
	p.signal(w)

	q.push(model.NewJob("src", "", "", ""))
	<-q.ready // the signalled worker wins the wake-up

	job, alive := p.claim(w)
	assert.False(t, alive)
	assert.Nil(t, job)
	assert.Equal(t, 1, q.len(), "a signalled worker must not take the job")

	select {
	case <-q.ready:
	default:
		t.Fatal("wake-up was swallowed by the signalled worker")
	}
}

func TestPool_ShrinkDoesNotStallQueuedJobs(t *testing.T) {
	for i := 0; i < 20; i++ {
		q := newQueue()
		ran := make(chan struct{}, 1)
		p := newPool(q, 2, time.Hour, func(context.Context, *model.Job) { ran <- struct{}{} }, nil)
		require.NoError(t, p.Start(context.Background()))
		require.Eventually(t, func() bool { return p.Live() == 2 }, waitFor, tick)
		time.Sleep(5 * time.Millisecond)

		q.push(model.NewJob("src", "", "", ""))
		require.NoError(t, p.Resize(1))

		select {
		case <-ran:
		case <-time.After(time.Second):
			t.Fatalf("iteration %d: queued job waited for the poll interval", i)
		}

		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		require.NoError(t, p.Stop(ctx))
		cancel()
	}
}
