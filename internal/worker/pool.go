// Package worker runs blocking calls on a fixed set of goroutines.
//
// Request goroutines hand their storage calls to the pool with Do and wait
// for the result. The pool bounds how many blocking calls are in flight,
// independently of how many requests net/http is serving, and a request
// whose context ends stops waiting without tying up a worker slot on the
// request side.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrPoolClosed is returned by Do after Stop has been called.
var ErrPoolClosed = errors.New("worker: pool closed")

// Func is a unit of blocking work. It receives the submitter's context.
// It is an alias so that interfaces declared elsewhere with the plain func
// type are satisfied by *Pool.
type Func = func(ctx context.Context) error

type job struct {
	ctx    context.Context
	fn     Func
	result chan error // buffered(1) so a worker never blocks on an abandoned caller
}

// Pool manages a fixed set of worker goroutines fed by an unbuffered job channel.
type Pool struct {
	config    Config
	logger    *slog.Logger
	jobs      chan job
	done      chan struct{}
	wg        sync.WaitGroup
	startDone sync.Once
	stopDone  sync.Once
}

// New creates a pool. Call Start before submitting work.
func New(cfg Config, logger *slog.Logger) *Pool {
	if cfg.Size <= 0 {
		cfg.Size = DefaultConfig().Size
	}
	return &Pool{
		config: cfg,
		logger: logger,
		jobs:   make(chan job),
		done:   make(chan struct{}),
	}
}

// Size reports the number of workers.
func (p *Pool) Size() int {
	return p.config.Size
}

// Start launches the workers. Calling it more than once is a no-op.
func (p *Pool) Start() {
	p.startDone.Do(func() {
		p.logger.Info("starting worker pool", slog.Int("size", p.config.Size))
		for i := 0; i < p.config.Size; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
	})
}

// Stop rejects new work and waits for jobs already running to finish.
//
// The job channel is unbuffered, so a job is either held by a worker or was
// never accepted; nothing is left queued when Stop returns.
func (p *Pool) Stop() {
	p.stopDone.Do(func() {
		p.logger.Info("shutting down worker pool")
		close(p.done)
		p.wg.Wait()
	})
}

// Do runs fn on a worker and returns its error.
//
// It blocks until a worker accepts the job and then until the job
// finishes. If ctx ends first, Do returns ctx.Err(). A job that was already
// accepted keeps running to completion (its result is dropped), so fn must
// not touch caller state after observing ctx.Done.
func (p *Pool) Do(ctx context.Context, fn Func) error {
	j := job{ctx: ctx, fn: fn, result: make(chan error, 1)}

	select {
	case <-p.done:
		return ErrPoolClosed
	default:
	}

	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrPoolClosed
	}

	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return
		case j := <-p.jobs:
			j.result <- p.run(id, j)
		}
	}
}

// run executes one job. A panic is turned into an error: it happens on a
// worker goroutine, where the HTTP recoverer middleware cannot see it.
func (p *Pool) run(id int, j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker job panicked",
				slog.Int("worker", id),
				slog.Any("panic", r),
			)
			err = fmt.Errorf("worker: job panicked: %v", r)
		}
	}()
	return j.fn(j.ctx)
}
