// Package worker provides a bounded FIFO task pool. Each analysis
// category runs its own pool so a flood of policy runs cannot starve
// competitor runs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jonesrussell/regradar/internal/logger"
)

// PoolState represents the current state of the pool.
type PoolState int32

const (
	// PoolStateStopped means the pool is not running.
	PoolStateStopped PoolState = iota

	// PoolStateRunning means the pool is actively processing tasks.
	PoolStateRunning

	// PoolStateDraining means the pool is shutting down gracefully.
	PoolStateDraining
)

// String returns the string representation of a pool state.
func (s PoolState) String() string {
	switch s {
	case PoolStateStopped:
		return "stopped"
	case PoolStateRunning:
		return "running"
	case PoolStateDraining:
		return "draining"
	default:
		return "unknown"
	}
}

// ErrQueueFull is returned when the pending queue is at capacity.
// Submissions are rejected rather than silently dropped.
var ErrQueueFull = errors.New("worker queue full")

// ErrNotRunning is returned when submitting to a stopped pool.
var ErrNotRunning = errors.New("worker pool not running")

// Task is one unit of work.
type Task func(ctx context.Context)

// Config holds worker pool configuration.
type Config struct {
	// Name labels the pool in logs.
	Name string
	// Workers is the number of concurrent task runners.
	Workers int
	// QueueSize bounds the pending task queue.
	QueueSize int
}

// Validate checks the pool configuration.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("queue size must be at least 1, got %d", c.QueueSize)
	}
	return nil
}

// Pool runs submitted tasks on a fixed set of workers, preserving
// submission order.
type Pool struct {
	config Config
	logger logger.Interface
	state  atomic.Int32
	tasks  chan Task
	wg     sync.WaitGroup
	cancel context.CancelFunc

	// closeMu orders Submit's send against Stop's close: Stop flips the
	// state and closes the channel under the write lock, so a Submit
	// holding the read lock either lands before the close or sees the
	// pool draining.
	closeMu sync.RWMutex

	// Stats
	submitted atomic.Int64
	rejected  atomic.Int64
	completed atomic.Int64
}

// NewPool creates a new worker pool.
func NewPool(cfg Config, log logger.Interface) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	p := &Pool{
		config: cfg,
		logger: log.WithComponent("worker." + cfg.Name),
		tasks:  make(chan Task, cfg.QueueSize),
	}
	p.state.Store(int32(PoolStateStopped))

	return p, nil
}

// Start launches the workers.
func (p *Pool) Start() error {
	if !p.state.CompareAndSwap(int32(PoolStateStopped), int32(PoolStateRunning)) {
		return errors.New("pool is already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx, i)
	}

	p.logger.Info("worker pool started",
		"workers", p.config.Workers,
		"queue_size", p.config.QueueSize)

	return nil
}

// Submit enqueues a task. It fails fast with ErrQueueFull when the
// pending queue is at capacity.
func (p *Pool) Submit(task Task) error {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()

	if PoolState(p.state.Load()) != PoolStateRunning {
		return ErrNotRunning
	}

	select {
	case p.tasks <- task:
		p.submitted.Add(1)
		return nil
	default:
		p.rejected.Add(1)
		return ErrQueueFull
	}
}

// Stop drains the pool: queued tasks still run, new submissions are
// rejected, and Stop returns when the workers exit or ctx expires.
func (p *Pool) Stop(ctx context.Context) error {
	p.closeMu.Lock()
	if !p.state.CompareAndSwap(int32(PoolStateRunning), int32(PoolStateDraining)) {
		p.closeMu.Unlock()
		return errors.New("pool is not running")
	}
	close(p.tasks)
	p.closeMu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		p.cancel()
		<-done
	}

	p.state.Store(int32(PoolStateStopped))
	p.logger.Info("worker pool stopped",
		"submitted", p.submitted.Load(),
		"completed", p.completed.Load(),
		"rejected", p.rejected.Load())

	return nil
}

// State returns the current pool state.
func (p *Pool) State() PoolState {
	return PoolState(p.state.Load())
}

// Stats reports lifetime counters for the pool.
func (p *Pool) Stats() (submitted, completed, rejected int64) {
	return p.submitted.Load(), p.completed.Load(), p.rejected.Load()
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()

	for task := range p.tasks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("task panicked", "worker", id, "panic", r)
				}
			}()
			task(ctx)
		}()
		p.completed.Add(1)
	}
}
