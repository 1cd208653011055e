package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestSyncQueue_RunsInSubmissionOrder(t *testing.T) {
	q := newSyncQueue(nil)
	defer q.Close()

	gate := make(chan struct{})
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- q.Submit(context.Background(), func(context.Context) error {
			<-gate
			return nil
		})
	}()
	require.Eventually(t, func() bool { return q.Depth() == 1 }, time.Second, time.Millisecond)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Submit(context.Background(), func(context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}()
		require.Eventually(t, func() bool { return q.Depth() == i+2 }, time.Second, time.Millisecond)
	}

	close(gate)
	require.NoError(t, <-firstDone)
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	assert.Equal(t, 0, q.Depth())
}

func TestSyncQueue_CancelledWhileWaitingIsSkipped(t *testing.T) {
	q := newSyncQueue(nil)
	defer q.Close()

	gate := make(chan struct{})
	go func() {
		_ = q.Submit(context.Background(), func(context.Context) error {
			<-gate
			return nil
		})
	}()
	require.Eventually(t, func() bool { return q.Depth() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	ran := false
	done := make(chan error, 1)
	go func() {
		done <- q.Submit(ctx, func(context.Context) error {
			ran = true
			return nil
		})
	}()
	require.Eventually(t, func() bool { return q.Depth() == 2 }, time.Second, time.Millisecond)

	cancel()
	close(gate)
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.False(t, ran)
}

func TestSyncQueue_CancelledWaiterReturnsBeforeItsTurn(t *testing.T) {
	q := newSyncQueue(nil)
	defer q.Close()

	gate := make(chan struct{})
	defer close(gate)
	go func() {
		_ = q.Submit(context.Background(), func(context.Context) error {
			<-gate
			return nil
		})
	}()
	require.Eventually(t, func() bool { return q.Depth() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	ran := atomic.NewBool(false)
	done := make(chan error, 1)
	go func() {
		done <- q.Submit(ctx, func(context.Context) error {
			ran.Store(true)
			return nil
		})
	}()
	require.Eventually(t, func() bool { return q.Depth() == 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled waiter still blocked behind the running job")
	}
	assert.False(t, ran.Load())
}

func TestSyncQueue_CancelledWhileRunningWaitsForJob(t *testing.T) {
	q := newSyncQueue(nil)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	finished := atomic.NewBool(false)
	done := make(chan error, 1)
	go func() {
		done <- q.Submit(ctx, func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			finished.Store(true)
			return ctx.Err()
		})
	}()
	<-started

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.True(t, finished.Load())
}

func TestSyncQueue_ReportsDepth(t *testing.T) {
	var mu sync.Mutex
	var depths []int
	q := newSyncQueue(func(n int) {
		mu.Lock()
		depths = append(depths, n)
		mu.Unlock()
	})
	defer q.Close()

	require.NoError(t, q.Submit(context.Background(), func(context.Context) error { return nil }))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 0}, depths)
}

func TestSyncQueue_SubmitAfterClose(t *testing.T) {
	q := newSyncQueue(nil)
	q.Close()
	q.Close()

	err := q.Submit(context.Background(), func(context.Context) error {
		t.Fatal("must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrQueueClosed)
}
