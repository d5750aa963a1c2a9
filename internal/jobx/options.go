package jobx

import "time"

// WorkerOptions configures the worker runtime side of a Client.
type WorkerOptions struct {
	Queues            []string
	Concurrency       int
	PollInterval      time.Duration
	ShutdownTimeout   time.Duration
	DequeueTimeout    time.Duration
	DefaultRetryDelay time.Duration
}

func defaultWorkerOptions() WorkerOptions {
	return WorkerOptions{
		Queues:            []string{"default"},
		Concurrency:       2,
		PollInterval:      time.Second,
		ShutdownTimeout:   10 * time.Second,
		DequeueTimeout:    5 * time.Second,
		DefaultRetryDelay: 30 * time.Second,
	}
}

type WorkerOption func(*WorkerOptions)

func WithQueues(queues ...string) WorkerOption {
	return func(o *WorkerOptions) { o.Queues = queues }
}

func WithConcurrency(n int) WorkerOption {
	return func(o *WorkerOptions) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

func WithPollInterval(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) { o.PollInterval = d }
}

func WithShutdownTimeout(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) { o.ShutdownTimeout = d }
}

func WithDequeueTimeout(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) { o.DequeueTimeout = d }
}

func WithDefaultRetryDelay(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) { o.DefaultRetryDelay = d }
}
