package queue

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"StockCast/pkg/logger"
)

// ErrPoolClosed is returned by Submit after Stop.
var ErrPoolClosed = errors.New("queue: pool closed")

// Kind tells an I/O-bound pool from a CPU-bound one.
type Kind string

const (
	KindIO  Kind = "io"
	KindCPU Kind = "cpu"
)

// PoolConfig contains the configuration for a worker pool
type PoolConfig struct {
	Name       string
	Kind       Kind
	Workers    int           // number of workers, CPU pools default to NumCPU
	QueueSize  int           // size of the queue
	RetryLimit int           // number of retries after a failed attempt
	RetryDelay time.Duration // time delay between retries
}

type task struct {
	ctx context.Context
	job Job
}

// Pool is a bounded in-process worker pool.
type Pool struct {
	logger *logger.Logger
	config PoolConfig

	tasks    chan task
	quit     chan struct{}
	quitOnce sync.Once
	workers  sync.WaitGroup
	pending  sync.WaitGroup

	mu        sync.RWMutex
	isRunning bool
}

// NewPool creates a pool; call Start before submitting.
func NewPool(config PoolConfig, lgr *logger.Logger) *Pool {
	if lgr == nil {
		lgr = logger.Nop()
	}
	if config.Workers <= 0 {
		if config.Kind == KindCPU {
			config.Workers = runtime.NumCPU()
		} else {
			config.Workers = 1
		}
	}
	if config.QueueSize < 0 {
		config.QueueSize = 0
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}
	if config.Name == "" {
		config.Name = string(config.Kind)
	}
	return &Pool{
		logger: lgr.With(logger.String("pool", config.Name), logger.String("kind", string(config.Kind))),
		config: config,
		tasks:  make(chan task, config.QueueSize),
		quit:   make(chan struct{}),
	}
}

func (p *Pool) Name() string { return p.config.Name }

func (p *Pool) Workers() int { return p.config.Workers }

// Start launches the workers.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isRunning {
		return fmt.Errorf("pool %s already running", p.config.Name)
	}
	select {
	case <-p.quit:
		return ErrPoolClosed
	default:
	}
	p.isRunning = true
	for i := 0; i < p.config.Workers; i++ {
		p.workers.Add(1)
		go p.worker(i)
	}
	p.logger.Info("worker pool started", logger.Int("workers", p.config.Workers))
	return nil
}

// Submit hands job to a worker, blocking while the queue is full.
// The job runs with ctx; a job whose ctx is done before it starts is skipped.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.isRunning {
		return ErrPoolClosed
	}
	p.pending.Add(1)
	select {
	case p.tasks <- task{ctx: ctx, job: job}:
		return nil
	case <-ctx.Done():
		p.pending.Done()
		return ctx.Err()
	case <-p.quit:
		p.pending.Done()
		return ErrPoolClosed
	}
}

// Wait blocks until every submitted job has finished or ctx is done.
func (p *Pool) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop refuses new work, lets running jobs finish and drops queued ones.
func (p *Pool) Stop(ctx context.Context) error {
	p.quitOnce.Do(func() { close(p.quit) })

	p.mu.Lock()
	wasRunning := p.isRunning
	p.isRunning = false
	p.mu.Unlock()
	if !wasRunning {
		return nil
	}
	p.logger.Info("stopping worker pool...")

	doneCh := make(chan struct{})
	go func() {
		p.workers.Wait()
		close(doneCh)
	}()

	select {
	case <-ctx.Done():
		p.logger.Warn("timeout waiting for pool workers", logger.Error(ctx.Err()))
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-doneCh:
	}

	dropped := 0
	for {
		select {
		case t := <-p.tasks:
			p.logger.Debug("dropping queued job", logger.String("job", t.job.Name()))
			p.pending.Done()
			dropped++
			continue
		default:
		}
		break
	}
	p.logger.Info("worker pool stopped", logger.Int("dropped", dropped))
	return nil
}

func (p *Pool) worker(id int) {
	defer p.workers.Done()
	for {
		select {
		case <-p.quit:
			return
		case t := <-p.tasks:
			p.process(id, t)
		}
	}
}

func (p *Pool) process(id int, t task) {
	defer p.pending.Done()
	if err := t.ctx.Err(); err != nil {
		p.logger.Debug("job skipped", logger.String("job", t.job.Name()), logger.Error(err))
		return
	}

	for attempt := 0; ; attempt++ {
		start := time.Now()
		err := p.handle(t)
		if err == nil {
			return
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			p.logger.Warn("job cancelled",
				logger.String("job", t.job.Name()),
				logger.Int("worker_id", id),
				logger.Duration("elapsed", time.Since(start)))
			return
		}
		p.logger.Error("job failed",
			logger.String("job", t.job.Name()),
			logger.Int("worker_id", id),
			logger.Int("attempt", attempt+1),
			logger.Error(err))
		if attempt >= p.config.RetryLimit {
			return
		}
		select {
		case <-time.After(p.config.RetryDelay):
		case <-t.ctx.Done():
			return
		case <-p.quit:
			return
		}
	}
}

func (p *Pool) handle(t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", t.job.Name(), r)
		}
	}()
	return t.job.Handle(t.ctx)
}
