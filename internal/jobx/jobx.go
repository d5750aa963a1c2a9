// Package jobx is the at-least-once outbound work queue required by §5:
// best-effort external calls (notification email today, a payment webhook
// echo tomorrow) are never made inline from a request goroutine — they are
// enqueued here and drained by a background worker, so a slow or failing
// mail/provider call never holds up a license or identity operation. A
// worker takes a job off the ready list before running it; if the process
// dies before Complete or Fail, the job is not put back on any queue and its
// record stays in the active state.
package jobx

import (
	"context"
	"sync"
	"time"

	"github.com/giro-sh/license-server/internal/errx"
	"github.com/giro-sh/license-server/internal/logx"
)

// HandlerFunc processes one job. A non-nil error schedules a retry (up to
// Job.MaxRetries), after which the job is left in JobStatusFailed for
// operator inspection — the core itself never drops a job silently.
type HandlerFunc func(ctx context.Context, job *JobInfo) error

// Enqueuer is the narrow seam other packages depend on so they don't need
// to know about queues, retries or workers — only "make this happen,
// eventually".
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) (string, error)
	EnqueueDelayed(ctx context.Context, job Job, delay time.Duration) (string, error)
}

// StatusReader looks up a previously enqueued job by ID.
type StatusReader interface {
	GetJob(ctx context.Context, jobID string) (*JobInfo, error)
}

// Processor is the backend-specific half of the worker loop.
type Processor interface {
	Dequeue(ctx context.Context, queues []string, timeout time.Duration) (*JobInfo, error)
	Complete(ctx context.Context, jobID string, result []byte) error
	Fail(ctx context.Context, jobID string, errMsg string) (retry bool, err error)
	Retry(ctx context.Context, jobID string, delay time.Duration) error
	PromoteScheduled(ctx context.Context, queues []string) error
}

// Queue combines every backend operation a Client needs.
type Queue interface {
	Enqueuer
	StatusReader
	Processor
}

var registry = errx.NewRegistry("JOBX")

var CodeAlreadyRunning = registry.Register("ALREADY_RUNNING", errx.TypeConflict, 409, "worker is already running")

func errAlreadyRunning() *errx.Error { return registry.New(CodeAlreadyRunning) }

// Client is both the enqueuing client and the worker runtime: one process
// can enqueue jobs of a type it never consumes (the HTTP handlers do this)
// while another registers handlers and calls Start (the composition root's
// background service).
type Client struct {
	queue    Queue
	opts     WorkerOptions
	handlers map[string]HandlerFunc
	mu       sync.RWMutex
	running  bool
}

func NewClient(queue Queue, options ...WorkerOption) *Client {
	opts := defaultWorkerOptions()
	for _, o := range options {
		o(&opts)
	}
	return &Client{queue: queue, opts: opts, handlers: make(map[string]HandlerFunc)}
}

// Register binds a handler to a job type. Only meaningful before Start.
func (c *Client) Register(jobType string, handler HandlerFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[jobType] = handler
}

func (c *Client) Enqueue(ctx context.Context, job Job) (string, error) {
	if job.Queue == "" {
		job.Queue = "default"
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = 3
	}
	return c.queue.Enqueue(ctx, job)
}

func (c *Client) EnqueueDelayed(ctx context.Context, job Job, delay time.Duration) (string, error) {
	if job.Queue == "" {
		job.Queue = "default"
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = 3
	}
	return c.queue.EnqueueDelayed(ctx, job, delay)
}

func (c *Client) GetJob(ctx context.Context, jobID string) (*JobInfo, error) {
	return c.queue.GetJob(ctx, jobID)
}

// Start runs the scheduler and worker goroutines until ctx is cancelled.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errAlreadyRunning()
	}
	c.running = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	logx.WithFields(logx.Fields{"workers": c.opts.Concurrency, "queues": c.opts.Queues}).Info("jobx: starting workers")

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.schedulerLoop(ctx)
	}()

	for i := 0; i < c.opts.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.workerLoop(ctx, id)
		}(i)
	}

	<-ctx.Done()
	logx.Info("jobx: shutting down workers")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logx.Info("jobx: all workers stopped")
	case <-time.After(c.opts.ShutdownTimeout):
		logx.Warn("jobx: shutdown timed out, some jobs may not have completed")
	}

	return nil
}

func (c *Client) schedulerLoop(ctx context.Context) {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.queue.PromoteScheduled(ctx, c.opts.Queues); err != nil {
				if ctx.Err() != nil {
					return
				}
				logx.WithError(err).Warn("jobx: failed to promote scheduled jobs")
			}
		}
	}
}

func (c *Client) workerLoop(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := c.queue.Dequeue(ctx, c.opts.Queues, c.opts.DequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logx.WithError(err).Warnf("jobx: worker %d dequeue error", id)
			time.Sleep(c.opts.PollInterval)
			continue
		}
		if job == nil {
			continue
		}
		c.processJob(ctx, job)
	}
}

func (c *Client) processJob(ctx context.Context, job *JobInfo) {
	c.mu.RLock()
	handler, ok := c.handlers[job.Type]
	c.mu.RUnlock()

	if !ok {
		logx.Warnf("jobx: no handler for job type %q (id=%s)", job.Type, job.ID)
		_, _ = c.queue.Fail(ctx, job.ID, "no handler registered for job type")
		return
	}

	if err := handler(ctx, job); err != nil {
		logx.WithError(err).Warnf("jobx: job %s (type=%s) failed", job.ID, job.Type)

		shouldRetry, failErr := c.queue.Fail(ctx, job.ID, err.Error())
		if failErr != nil {
			logx.WithError(failErr).Errorf("jobx: failed to mark job %s as failed", job.ID)
			return
		}
		if shouldRetry {
			if retryErr := c.queue.Retry(ctx, job.ID, c.opts.DefaultRetryDelay); retryErr != nil {
				logx.WithError(retryErr).Errorf("jobx: failed to retry job %s", job.ID)
			}
		}
		return
	}

	if err := c.queue.Complete(ctx, job.ID, nil); err != nil {
		logx.WithError(err).Errorf("jobx: failed to complete job %s", job.ID)
	}
}
