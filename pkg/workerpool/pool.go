// Package workerpool provides a bounded worker pool for controlled concurrency.
// Used to fan out EDI batch conversion and task command processing without
// letting a burst of payer files swamp the process.
package workerpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Job represents a unit of work to be processed
type Job struct {
	ID      string
	Payload interface{}
	Context context.Context
}

// JobResult represents the outcome of job processing
type JobResult struct {
	JobID   string
	Success bool
	Error   error
	Data    interface{}
}

// WorkerFunc is the function signature for job processing
type WorkerFunc func(ctx context.Context, job *Job) *JobResult

// Config holds worker pool configuration
type Config struct {
	// Workers is the number of concurrent workers
	Workers int
	// QueueSize is the size of the job queue
	QueueSize int
	// MaxRetries is the maximum number of retries for failed jobs
	MaxRetries int
	// RetryDelay is the base delay between retries, scaled per attempt
	RetryDelay time.Duration
	// GracefulShutdownTimeout is the timeout for graceful shutdown
	GracefulShutdownTimeout time.Duration
}

// DefaultConfig returns defaults sized for payer batch windows, where a
// nightly 278 file can carry a few thousand requests at once.
func DefaultConfig() Config {
	return Config{
		Workers:                 50,
		QueueSize:               5000,
		MaxRetries:              3,
		RetryDelay:              100 * time.Millisecond,
		GracefulShutdownTimeout: 30 * time.Second,
	}
}

// Pool manages a pool of workers for concurrent job processing
type Pool struct {
	config     Config
	workerFunc WorkerFunc
	logger     *zap.Logger

	jobChan    chan *Job
	resultChan chan *JobResult
	wg         sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	jobsSubmitted int64
	jobsCompleted int64
	jobsFailed    int64
	jobsRetried   int64
	activeWorkers int64
	queueDepth    int64
}

// New creates a new worker pool
func New(cfg Config, fn WorkerFunc, logger *zap.Logger) (*Pool, error) {
	if fn == nil {
		return nil, fmt.Errorf("worker function is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		config:     cfg,
		workerFunc: fn,
		logger:     logger,
		jobChan:    make(chan *Job, cfg.QueueSize),
		resultChan: make(chan *JobResult, cfg.QueueSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	return pool, nil
}

// Start launches all workers
func (p *Pool) Start() {
	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("worker pool started",
		zap.Int("workers", p.config.Workers),
		zap.Int("queue_size", p.config.QueueSize))
}

// Submit adds a job to the queue. It never blocks: callers get an error
// when the queue is full and decide whether to shed or wait.
func (p *Pool) Submit(job *Job) error {
	select {
	case <-p.ctx.Done():
		return fmt.Errorf("pool is shutting down")
	default:
	}

	select {
	case p.jobChan <- job:
		atomic.AddInt64(&p.jobsSubmitted, 1)
		atomic.AddInt64(&p.queueDepth, 1)
		return nil
	default:
		return fmt.Errorf("job queue is full")
	}
}

// Results returns the result channel for async processing
func (p *Pool) Results() <-chan *JobResult {
	return p.resultChan
}

// Stop gracefully shuts down the pool
func (p *Pool) Stop() error {
	p.logger.Info("stopping worker pool")

	p.cancel()
	close(p.jobChan)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
	case <-time.After(p.config.GracefulShutdownTimeout):
		p.logger.Warn("worker pool shutdown timed out")
	}

	close(p.resultChan)
	return nil
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("worker started", zap.Int("worker_id", id))
	atomic.AddInt64(&p.activeWorkers, 1)
	defer atomic.AddInt64(&p.activeWorkers, -1)

	for job := range p.jobChan {
		atomic.AddInt64(&p.queueDepth, -1)
		p.processJob(id, job)
	}

	p.logger.Debug("worker stopped", zap.Int("worker_id", id))
}

// processJob runs a job with linear backoff retries and reports the result.
func (p *Pool) processJob(workerID int, job *Job) {
	ctx := job.Context
	if ctx == nil {
		ctx = p.ctx
	}

	result := p.runWithRetries(ctx, job)

	if result.Success {
		atomic.AddInt64(&p.jobsCompleted, 1)
	} else {
		atomic.AddInt64(&p.jobsFailed, 1)
		p.logger.Error("job failed",
			zap.String("job_id", job.ID),
			zap.Int("worker_id", workerID),
			zap.Error(result.Error))
	}

	select {
	case p.resultChan <- result:
	default:
		p.logger.Warn("result channel full, dropping result",
			zap.String("job_id", job.ID))
	}
}

func (p *Pool) runWithRetries(ctx context.Context, job *Job) *JobResult {
	var lastErr error

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return &JobResult{JobID: job.ID, Success: false, Error: ctx.Err()}
		default:
		}

		result := p.workerFunc(ctx, job)
		if result.Success {
			return result
		}

		lastErr = result.Error

		if attempt < p.config.MaxRetries {
			atomic.AddInt64(&p.jobsRetried, 1)
			p.logger.Debug("retrying job",
				zap.String("job_id", job.ID),
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return &JobResult{JobID: job.ID, Success: false, Error: ctx.Err()}
			case <-time.After(p.config.RetryDelay * time.Duration(attempt+1)):
			}
		}
	}

	return &JobResult{
		JobID:   job.ID,
		Success: false,
		Error:   fmt.Errorf("job failed after %d retries: %w", p.config.MaxRetries, lastErr),
	}
}

// Stats holds current pool statistics
type Stats struct {
	JobsSubmitted int64
	JobsCompleted int64
	JobsFailed    int64
	JobsRetried   int64
	ActiveWorkers int64
	QueueDepth    int64
	QueueCapacity int
	Workers       int
}

// Stats returns current pool statistics
func (p *Pool) Stats() Stats {
	return Stats{
		JobsSubmitted: atomic.LoadInt64(&p.jobsSubmitted),
		JobsCompleted: atomic.LoadInt64(&p.jobsCompleted),
		JobsFailed:    atomic.LoadInt64(&p.jobsFailed),
		JobsRetried:   atomic.LoadInt64(&p.jobsRetried),
		ActiveWorkers: atomic.LoadInt64(&p.activeWorkers),
		QueueDepth:    atomic.LoadInt64(&p.queueDepth),
		QueueCapacity: p.config.QueueSize,
		Workers:       p.config.Workers,
	}
}

// IsHealthy returns true if the queue is not backing up.
func (p *Pool) IsHealthy() bool {
	stats := p.Stats()
	return float64(stats.QueueDepth)/float64(stats.QueueCapacity) < 0.9
}
