package services

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/atomic"
)

var ErrQueueClosed = errors.New("sync queue closed")

const queueBuffer = 16

const (
	jobPending int32 = iota
	jobStarted
	jobAbandoned
)

type queuedJob struct {
	ctx   context.Context
	run   func(ctx context.Context) error
	done  chan error
	state atomic.Int32
}

// syncQueue executes submitted jobs one at a time in submission order.
// Closing it cancels the running job and fails the ones still waiting.
type syncQueue struct {
	mu      sync.RWMutex
	closed  bool
	jobs    chan *queuedJob
	depth   atomic.Int64
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	onDepth func(int)
}

func newSyncQueue(onDepth func(int)) *syncQueue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &syncQueue{
		jobs:    make(chan *queuedJob, queueBuffer),
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
		onDepth: onDepth,
	}
	go q.loop()
	return q
}

// Submit enqueues run and blocks until it finished. A caller whose context is
// cancelled while the job still waits returns at once and the job is dropped
// without running; a job already started is cancelled and awaited.
func (q *syncQueue) Submit(ctx context.Context, run func(ctx context.Context) error) error {
	j := &queuedJob{ctx: ctx, run: run, done: make(chan error, 1)}

	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	q.adjust(1)
	select {
	case q.jobs <- j:
	case <-ctx.Done():
		q.mu.RUnlock()
		q.adjust(-1)
		return ctx.Err()
	case <-q.ctx.Done():
		q.mu.RUnlock()
		q.adjust(-1)
		return ErrQueueClosed
	}
	q.mu.RUnlock()

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		if j.state.CompareAndSwap(jobPending, jobAbandoned) {
			return ctx.Err()
		}
		return <-j.done
	}
}

func (q *syncQueue) Depth() int {
	return int(q.depth.Load())
}

func (q *syncQueue) adjust(delta int64) {
	n := q.depth.Add(delta)
	if q.onDepth != nil {
		q.onDepth(int(n))
	}
}

func (q *syncQueue) loop() {
	defer close(q.stopped)
	for {
		select {
		case j := <-q.jobs:
			q.execute(j)
		case <-q.ctx.Done():
			q.failPending()
			return
		}
	}
}

func (q *syncQueue) failPending() {
	for {
		select {
		case j := <-q.jobs:
			q.adjust(-1)
			j.done <- ErrQueueClosed
		default:
			return
		}
	}
}

func (q *syncQueue) execute(j *queuedJob) {
	var err error
	switch {
	case !j.state.CompareAndSwap(jobPending, jobStarted):
		err = j.ctx.Err()
	case q.ctx.Err() != nil:
		err = ErrQueueClosed
	case j.ctx.Err() != nil:
		err = j.ctx.Err()
	default:
		err = q.run(j)
	}
	q.adjust(-1)
	j.done <- err
}

func (q *syncQueue) run(j *queuedJob) error {
	ctx, cancel := context.WithCancel(j.ctx)
	stop := context.AfterFunc(q.ctx, cancel)
	defer stop()
	defer cancel()
	return j.run(ctx)
}

// Close cancels the running job, fails queued ones and waits for the worker.
func (q *syncQueue) Close() {
	q.cancel()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	<-q.stopped
	q.failPending()
}
