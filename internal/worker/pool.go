package worker

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"

	"scrapebot/internal/metrics"

	"github.com/sirupsen/logrus"
)

var (
	ErrPoolClosed = errors.New("worker pool closed")
	ErrPoolFull   = errors.New("worker pool queue full")
)

// Pool runs inbound events with bounded concurrency.
type Pool struct {
	tasks  chan func()
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	size   int
	logger *logrus.Logger
}

// New creates a worker pool with the given size.
func New(size int, logger *logrus.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	queueSize := size * 8
	if queueSize < 8 {
		queueSize = 8
	}

	p := &Pool{
		tasks:  make(chan func(), queueSize),
		size:   size,
		logger: logger,
	}

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				p.run(task)
			}
		}()
	}

	metrics.SetWorkerPoolSize(size)
	return p
}

func (p *Pool) run(task func()) {
	if task == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.WithFields(logrus.Fields{
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("Worker task panicked")
		}
	}()
	task()
}

// Submit enqueues a task without blocking. It returns ErrPoolFull when every
// queue slot is taken, so callers can acknowledge Slack regardless.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		metrics.RecordWorkerRejection()
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		return nil
	default:
		metrics.RecordWorkerRejection()
		return ErrPoolFull
	}
}

// Shutdown stops accepting tasks and waits for queued ones until ctx is done.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Size returns the worker count.
func (p *Pool) Size() int {
	return p.size
}
