package pool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/ropool/pkg/rop"
	"github.com/ib-77/ropool/pkg/rop/future"
)

var voidLogger = zerolog.New(io.Discard).With().Timestamp().Logger()

func newPool(t *testing.T, size int, opts ...Option) *Pool {
	t.Helper()
	p, err := New(size, append([]Option{WithLogger(voidLogger)}, opts...)...)
	require.NoError(t, err)
	return p
}

func TestNew_InvalidSize(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, -1} {
		p, err := New(size)
		assert.ErrorIs(t, err, ErrInvalidSize)
		assert.Nil(t, p)
	}
}

func TestNew_WorkersRunningOnReturn(t *testing.T) {
	t.Parallel()

	p := newPool(t, 3, WithName("ready"))
	defer p.Shutdown()

	assert.Equal(t, 3, p.Size())
	assert.Equal(t, 3, p.Live())
	assert.Equal(t, "ready", p.Name())
	assert.False(t, p.IsClosed())
}

func TestSubmit_ReturnsValue(t *testing.T) {
	t.Parallel()

	p := newPool(t, 2)
	defer p.Shutdown()

	f, err := p.Submit(func(ctx context.Context) (any, error) { return "done", nil })
	require.NoError(t, err)

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", v)
}

func TestGo_TypedValuesAndErrors(t *testing.T) {
	t.Parallel()

	p := newPool(t, 4)
	defer p.Shutdown()

	boom := errors.New("boom")
	tests := []struct {
		name string
		job  func(ctx context.Context) (int, error)
		want int
		err  error
	}{
		{name: "value", job: func(context.Context) (int, error) { return 7, nil }, want: 7},
		{name: "zero value", job: func(context.Context) (int, error) { return 0, nil }, want: 0},
		{name: "error", job: func(context.Context) (int, error) { return 7, boom }, err: boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Go(p, tt.job)
			require.NoError(t, err)

			v, err := f.Await(context.Background())
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				var jf *rop.JobFailure
				require.ErrorAs(t, err, &jf)
				assert.Equal(t, f.ID().String(), jf.JobID)
				assert.Zero(t, v)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestSubmit_NilJob(t *testing.T) {
	t.Parallel()

	p := newPool(t, 1)
	defer p.Shutdown()

	_, err := p.Submit(nil)
	assert.ErrorIs(t, err, ErrNilJob)
	_, err = Go[int](p, nil)
	assert.ErrorIs(t, err, ErrNilJob)
}

func TestAwait_TwiceSameOutcome(t *testing.T) {
	t.Parallel()

	p := newPool(t, 1)
	defer p.Shutdown()

	boom := errors.New("boom")
	f, err := Go(p, func(context.Context) (int, error) { return 0, boom })
	require.NoError(t, err)

	_, err1 := f.Get()
	_, err2 := f.Get()
	assert.ErrorIs(t, err1, boom)
	assert.Same(t, err1, err2)
}

func TestAwait_ConcurrentWaitersAfterJobFinished(t *testing.T) {
	t.Parallel()

	p := newPool(t, 2)
	defer p.Shutdown()

	var finished atomic.Bool
	release := make(chan struct{})
	f, err := Go(p, func(context.Context) (string, error) {
		<-release
		finished.Store(true)
		return "token", nil
	})
	require.NoError(t, err)

	const waiters = 16
	var wg sync.WaitGroup
	for range waiters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := f.Await(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "token", v)
			assert.True(t, finished.Load(), "await returned before the job finished")
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
}

func TestFailingJobDoesNotAffectSiblings(t *testing.T) {
	t.Parallel()

	p := newPool(t, 2)
	defer p.Shutdown()

	a, err := Go(p, func(context.Context) (int, error) { return 0, errors.New("A failed") })
	require.NoError(t, err)
	b, err := Go(p, func(context.Context) (int, error) {
		time.Sleep(30 * time.Millisecond)
		return 42, nil
	})
	require.NoError(t, err)

	_, err = a.Get()
	assert.EqualError(t, errors.Unwrap(err), "A failed")

	v, err := b.Get()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestPanickingJobIsCapturedAndWorkerSurvives(t *testing.T) {
	t.Parallel()

	p := newPool(t, 1)
	defer p.Shutdown()

	f, err := Go(p, func(context.Context) (int, error) { panic("kaboom") })
	require.NoError(t, err)

	_, err = f.Get()
	require.Error(t, err)
	assert.True(t, rop.IsPanic(err))
	var pe *rop.PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "kaboom", pe.Value)
	assert.NotEmpty(t, pe.Stack)

	// the single worker is still alive
	next, err := Go(p, func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	v, err := next.Get()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, p.Live())
}

func TestPanickingCallbackDoesNotKillWorker(t *testing.T) {
	t.Parallel()

	p := newPool(t, 1)
	defer p.Shutdown()

	release := make(chan struct{})
	a, err := Go(p, func(context.Context) (int, error) {
		<-release
		return 1, nil
	})
	require.NoError(t, err)
	a.OnComplete(func(rop.Result[int]) { panic("observer bug") })

	b, err := Go(p, func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	close(release)

	v, err := b.Get()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, p.Live())
}

func TestShutdown_RejectsAndStopsWorkers(t *testing.T) {
	t.Parallel()

	p := newPool(t, 4)
	p.Shutdown()

	assert.Equal(t, 0, p.Live())
	assert.True(t, p.IsClosed())

	_, err := p.Submit(func(context.Context) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, rop.ErrPoolClosed)
	_, err = Go(p, func(context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, rop.ErrPoolClosed)

	select {
	case <-p.Stopped():
	default:
		t.Fatal("stopped channel not closed after Shutdown")
	}

	// idempotent
	p.Shutdown()
	assert.Equal(t, uint64(2), p.Stats().Rejected)
}

func TestShutdownContext_AfterCleanStopIgnoresDoneContext(t *testing.T) {
	t.Parallel()

	p := newPool(t, 2)
	p.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for range 100 {
		require.NoError(t, p.ShutdownContext(ctx))
	}

	_, err := Go(p, func(context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, rop.ErrPoolClosed)
}

func TestShutdown_DrainsQueuedJobs(t *testing.T) {
	t.Parallel()

	p := newPool(t, 2)

	var ran atomic.Int32
	futures := make([]*future.Future[int], 0, 50)
	for i := range 50 {
		f, err := Go(p, func(context.Context) (int, error) {
			time.Sleep(time.Millisecond)
			ran.Add(1)
			return i, nil
		})
		require.NoError(t, err)
		futures = append(futures, f)
	}

	p.Shutdown()

	assert.Equal(t, int32(50), ran.Load())
	for i, f := range futures {
		require.True(t, f.IsDone())
		v, err := f.Get()
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 0, p.Pending())
}

func TestShutdown_DoesNotInterruptRunningJob(t *testing.T) {
	t.Parallel()

	p := newPool(t, 1)

	started := make(chan struct{})
	f, err := Go(p, func(ctx context.Context) (string, error) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		return "finished", ctx.Err()
	})
	require.NoError(t, err)

	<-started
	p.Shutdown()

	v, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, "finished", v)
}

func TestShutdownContext_AbandonsQueuedJobs(t *testing.T) {
	t.Parallel()

	p := newPool(t, 1)

	release := make(chan struct{})
	running, err := Go(p, func(ctx context.Context) (int, error) {
		select {
		case <-release:
			return 1, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})
	require.NoError(t, err)

	queued := make([]*future.Future[int], 0, 3)
	for range 3 {
		f, err := Go(p, func(context.Context) (int, error) { return 2, nil })
		require.NoError(t, err)
		queued = append(queued, f)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err = p.ShutdownContext(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	for _, f := range queued {
		_, err := f.Get()
		assert.ErrorIs(t, err, rop.ErrShutdownAbandoned)
		res, _ := f.Result()
		assert.True(t, res.IsCancel())
	}

	// the running job saw its context cancelled
	_, err = running.Get()
	assert.ErrorIs(t, err, context.Canceled)

	select {
	case <-p.Stopped():
	case <-time.After(time.Second):
		t.Fatal("workers did not exit after abandon")
	}
	assert.Equal(t, 0, p.Live())
	assert.Equal(t, 0, p.Pending())
	close(release)
}

func TestThousandJobsFingerprint(t *testing.T) {
	t.Parallel()

	const jobs = 1000
	p := newPool(t, 4)

	var (
		mu        sync.Mutex
		collector = make(map[string]int, jobs)
	)

	futures := make([]*future.Future[string], jobs)
	for i := range jobs {
		token := fmt.Sprintf("token-%04d", i)
		f, err := Go(p, func(context.Context) (string, error) {
			mu.Lock()
			collector[token]++
			mu.Unlock()
			return token, nil
		})
		require.NoError(t, err)
		futures[i] = f
	}

	p.Shutdown()

	require.Len(t, collector, jobs)
	for i, f := range futures {
		want := fmt.Sprintf("token-%04d", i)
		assert.Equal(t, 1, collector[want], want)

		v, err := f.Get()
		require.NoError(t, err)
		assert.Equal(t, want, v, "result delivered to the wrong future")
	}

	stats := p.Stats()
	assert.Equal(t, uint64(jobs), stats.Submitted)
	assert.Equal(t, uint64(jobs), stats.Completed)
	assert.Zero(t, stats.Failed)
}

func TestConcurrentSubmitDuringShutdown(t *testing.T) {
	t.Parallel()

	p := newPool(t, 4)

	const submitters = 8
	var (
		wg       sync.WaitGroup
		accepted = make(chan *future.Future[int], submitters*200)
	)
	for range submitters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				f, err := Go(p, func(context.Context) (int, error) { return i, nil })
				if err != nil {
					assert.ErrorIs(t, err, rop.ErrPoolClosed)
					return
				}
				accepted <- f
			}
		}()
	}

	time.Sleep(time.Millisecond)
	p.Shutdown()
	wg.Wait()
	close(accepted)

	// every accepted job ran before the workers exited
	for f := range accepted {
		assert.True(t, f.IsDone())
	}
}

func TestThenOnPoolFutures(t *testing.T) {
	t.Parallel()

	p := newPool(t, 2)
	defer p.Shutdown()

	ctx := context.Background()
	release := make(chan struct{})
	f, err := Go(p, func(context.Context) (int, error) {
		<-release
		return 20, nil
	})
	require.NoError(t, err)

	var calls atomic.Int32
	add := func(_ context.Context, v int) (int, error) {
		calls.Add(1)
		return v + 1, nil
	}

	before := future.Then(ctx, f, add)
	close(release)
	_, err = f.Get()
	require.NoError(t, err)
	after := future.Then(ctx, f, add)

	bv, err := before.Get()
	require.NoError(t, err)
	av, err := after.Get()
	require.NoError(t, err)
	assert.Equal(t, 21, bv)
	assert.Equal(t, 21, av)
	assert.Equal(t, int32(2), calls.Load())

	failed, err := Go(p, func(context.Context) (int, error) { return 0, errors.New("nope") })
	require.NoError(t, err)
	skipped := future.Then(ctx, failed, add)
	_, err = skipped.Get()
	assert.EqualError(t, errors.Unwrap(err), "nope")
	assert.Equal(t, int32(2), calls.Load())
}

func TestMultiplePoolsAreIndependent(t *testing.T) {
	t.Parallel()

	a := newPool(t, 1)
	b := newPool(t, 1)
	defer b.Shutdown()

	a.Shutdown()

	f, err := Go(b, func(context.Context) (int, error) { return 5, nil })
	require.NoError(t, err)
	v, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, 5, v)
	assert.Equal(t, 1, b.Live())
}

func TestLogsJobFailure(t *testing.T) {
	t.Parallel()

	var buf syncBuffer
	p, err := New(1, WithLogger(zerolog.New(&buf)), WithName("logged"))
	require.NoError(t, err)

	f, err := Go(p, func(context.Context) (int, error) { return 0, errors.New("disk full") })
	require.NoError(t, err)
	_, _ = f.Get()
	p.Shutdown()

	out := buf.String()
	assert.Contains(t, out, `"pool":"logged"`)
	assert.Contains(t, out, `"message":"job failed"`)
	assert.Contains(t, out, "disk full")
	assert.Contains(t, out, `"message":"pool stopped"`)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
