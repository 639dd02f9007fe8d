// Package async provides a sink wrapper with a bounded queue so reporting
// never blocks the caller. Payloads are delivered in the background; the
// oldest payload is dropped when the queue is full.
package async

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/strongdm/faultline/pkg/faultline/telemetry"
)

// AsyncSinkOption configures the async sink.
type AsyncSinkOption func(*asyncSinkConfig)

type asyncSinkConfig struct {
	queueSize    int
	concurrency  int64
	writeTimeout time.Duration
	onDropped    func(count int)
	onError      func(payload telemetry.Payload, err error)
}

// WithQueueSize sets the maximum number of queued payloads (default: 1000).
func WithQueueSize(size int) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithConcurrency sets how many inner writes may run at once (default: 4).
func WithConcurrency(n int) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		if n > 0 {
			c.concurrency = int64(n)
		}
	}
}

// WithWriteTimeout bounds each inner write (default: 4s). A write that
// exceeds it is reported to the error callback and not retried.
func WithWriteTimeout(d time.Duration) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// WithOnDropped sets a callback invoked when payloads are dropped due to queue overflow.
func WithOnDropped(fn func(count int)) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		c.onDropped = fn
	}
}

// WithOnError sets a callback invoked when an inner write fails.
func WithOnError(fn func(payload telemetry.Payload, err error)) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		c.onError = fn
	}
}

type asyncSink struct {
	inner        telemetry.Sink
	queue        chan telemetry.Payload
	done         chan struct{}
	sem          *semaphore.Weighted
	concurrency  int64
	writeTimeout time.Duration
	onDropped    func(count int)
	onError      func(payload telemetry.Payload, err error)

	closeOnce sync.Once
	closeMu   sync.Mutex
	closed    bool
	loop      sync.WaitGroup
	inflight  sync.WaitGroup
	pending   atomic.Int64 // queued plus in-flight
}

// NewAsyncSink wraps a sink with a bounded queue for async writes.
// Write returns immediately; payloads are processed in the background.
func NewAsyncSink(inner telemetry.Sink, opts ...AsyncSinkOption) telemetry.Sink {
	cfg := &asyncSinkConfig{
		queueSize:    1000,
		concurrency:  4,
		writeTimeout: 4 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &asyncSink{
		inner:        inner,
		queue:        make(chan telemetry.Payload, cfg.queueSize),
		done:         make(chan struct{}),
		sem:          semaphore.NewWeighted(cfg.concurrency),
		concurrency:  cfg.concurrency,
		writeTimeout: cfg.writeTimeout,
		onDropped:    cfg.onDropped,
		onError:      cfg.onError,
	}

	s.loop.Add(1)
	go s.processLoop()

	return s
}

func (s *asyncSink) processLoop() {
	defer s.loop.Done()
	for {
		select {
		case payload := <-s.queue:
			s.dispatch(payload)
		case <-s.done:
			// Drain remaining payloads
			for {
				select {
				case payload := <-s.queue:
					s.dispatch(payload)
				default:
					return
				}
			}
		}
	}
}

// dispatch blocks until a write slot is free, then writes in the background.
func (s *asyncSink) dispatch(payload telemetry.Payload) {
	_ = s.sem.Acquire(context.Background(), 1)
	s.inflight.Add(1)
	go func() {
		defer s.pending.Add(-1)
		defer s.inflight.Done()
		defer s.sem.Release(1)
		s.write(payload)
	}()
}

func (s *asyncSink) write(payload telemetry.Payload) {
	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	err := safeWrite(ctx, s.inner, payload)
	if err == nil && ctx.Err() != nil {
		err = fmt.Errorf("async write: %w", ctx.Err())
	}
	if err != nil && s.onError != nil {
		s.onError(payload, err)
	}
}

func safeWrite(ctx context.Context, sink telemetry.Sink, payload telemetry.Payload) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("sink panic: %v", p)
		}
	}()
	return sink.Write(ctx, payload)
}

// Write enqueues a payload. If the queue is full, the oldest payload is dropped.
func (s *asyncSink) Write(ctx context.Context, payload telemetry.Payload) error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return telemetry.ErrClosed
	}

	s.pending.Add(1)
	select {
	case s.queue <- payload:
	default:
		s.dropOldestAndEnqueue(payload)
	}
	return nil
}

func (s *asyncSink) dropOldestAndEnqueue(payload telemetry.Payload) {
	select {
	case <-s.queue:
		s.dropped(1)
	default:
		// Queue was emptied by the processor
	}

	select {
	case s.queue <- payload:
	default:
		s.dropped(1)
	}
}

func (s *asyncSink) dropped(n int) {
	s.pending.Add(int64(-n))
	if s.onDropped != nil {
		s.onDropped(n)
	}
}

// Flush blocks until all queued and in-flight payloads are processed.
func (s *asyncSink) Flush(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for s.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return s.inner.Flush(ctx)
}

// Close drains the queue, waits for in-flight writes and closes the inner sink.
func (s *asyncSink) Close() error {
	s.closeOnce.Do(func() {
		s.closeMu.Lock()
		s.closed = true
		s.closeMu.Unlock()

		close(s.done)
		s.loop.Wait()
		s.inflight.Wait()
	})
	return s.inner.Close()
}
