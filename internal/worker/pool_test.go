package worker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/userbook/internal/worker"
)

func newTestPool(t *testing.T, size int) *worker.Pool {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := worker.New(worker.Config{Size: size}, logger)
	p.Start()
	t.Cleanup(p.Stop)
	return p
}

func TestPool_Do(t *testing.T) {
	p := newTestPool(t, 2)

	t.Run("returns nil on success", func(t *testing.T) {
		ran := false
		err := p.Do(context.Background(), func(ctx context.Context) error {
			ran = true
			return nil
		})
		require.NoError(t, err)
		assert.True(t, ran)
	})

	t.Run("returns the job error", func(t *testing.T) {
		boom := errors.New("boom")
		err := p.Do(context.Background(), func(ctx context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("passes the caller context through", func(t *testing.T) {
		type key struct{}
		ctx := context.WithValue(context.Background(), key{}, "v")
		var got any
		err := p.Do(ctx, func(ctx context.Context) error {
			got = ctx.Value(key{})
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "v", got)
	})

	t.Run("recovers panics as errors", func(t *testing.T) {
		err := p.Do(context.Background(), func(ctx context.Context) error { panic("kaboom") })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "kaboom")

		// The worker survived and still accepts work.
		assert.NoError(t, p.Do(context.Background(), func(ctx context.Context) error { return nil }))
	})
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const size = 2
	p := newTestPool(t, size)

	var (
		running atomic.Int32
		peak    atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Do(context.Background(), func(ctx context.Context) error {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				running.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(size))
	assert.Equal(t, size, p.Size())
}

func TestPool_ContextCanceledWhileAllWorkersBusy(t *testing.T) {
	p := newTestPool(t, 1)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = p.Do(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	ran := false
	err := p.Do(ctx, func(ctx context.Context) error {
		ran = true
		return nil
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ran, "job must not run when it was never accepted")
}

func TestPool_StopWaitsAndRejects(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := worker.New(worker.Config{Size: 1}, logger)
	p.Start()

	started := make(chan struct{})
	var finished atomic.Bool
	go func() {
		_ = p.Do(context.Background(), func(ctx context.Context) error {
			close(started)
			time.Sleep(30 * time.Millisecond)
			finished.Store(true)
			return nil
		})
	}()
	<-started

	p.Stop()
	assert.True(t, finished.Load(), "Stop() returned before the running job finished")

	err := p.Do(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, worker.ErrPoolClosed)

	// A second Stop is harmless.
	p.Stop()
}

func TestNew_DefaultsSize(t *testing.T) {
	p := worker.New(worker.Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, worker.DefaultConfig().Size, p.Size())
}
