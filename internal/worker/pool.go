// Package worker runs fire-and-forget background jobs on a fixed pool of
// goroutines. Callers get no completion signal beyond the submit result;
// job outcomes are observable only through persisted state and logs.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is one unit of background work. The context passed in is the pool's
// own background context bounded by the job timeout, not the context of
// whichever request submitted the job.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Pool is a fixed-size worker pool with a bounded job queue.
type Pool struct {
	jobs       chan Job
	logger     *logrus.Logger
	jobTimeout time.Duration
	wg         sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New creates and starts a pool with the given number of workers and queue
// capacity. A jobTimeout of zero leaves jobs unbounded.
func New(workers, queueSize int, jobTimeout time.Duration, logger *logrus.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool{
		jobs:       make(chan Job, queueSize),
		logger:     logger,
		jobTimeout: jobTimeout,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
	return p
}

// Submit enqueues a job without blocking. It reports false when the queue
// is full or the pool is shut down; the job is then dropped, which the
// caller should log.
func (p *Pool) Submit(job Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.jobs <- job:
		return true
	default:
		return false
	}
}

// Shutdown stops accepting jobs and waits for queued work to drain, up to
// the deadline on ctx.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) work() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.runOne(job)
	}
}

func (p *Pool) runOne(job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.WithField("job", job.Name).WithField("panic", r).Error("background job panicked")
		}
	}()

	ctx := context.Background()
	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.jobTimeout)
		defer cancel()
	}

	if err := job.Run(ctx); err != nil {
		p.logger.WithError(err).WithField("job", job.Name).Error("background job failed")
	}
}
