// crash.go forwards payloads to a third-party crash-reporting client.

package crash

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/strongdm/faultline/pkg/faultline/telemetry"
)

// ErrClientMissing is returned when no crash-reporting client is registered
// under the requested provider name.
var ErrClientMissing = errors.New("crash: client library not present")

// DefaultProvider is the provider name used when none is configured.
const DefaultProvider = "default"

// ClientOptions is passed to Client.Init.
type ClientOptions struct {
	Environment string
	Release     string
	SampleRate  float64
}

// Client is the surface of a crash-reporting library.
type Client interface {
	Init(opts ClientOptions) error
	CaptureException(err error, payload telemetry.Payload)
	CaptureMessage(message string, payload telemetry.Payload)
	SetUser(user *telemetry.User)
}

// Flusher is implemented by clients that buffer captures.
type Flusher interface {
	Flush(timeout time.Duration) bool
}

// CapturedError is the error handed to CaptureException. It carries the
// scrubbed error details from the payload.
type CapturedError struct {
	Info telemetry.ErrorInfo
}

func (e *CapturedError) Error() string {
	if e.Info.Name == "" {
		return e.Info.Message
	}
	return e.Info.Name + ": " + e.Info.Message
}

// CrashSinkOption configures a crash sink.
type CrashSinkOption func(*crashSinkConfig)

type crashSinkConfig struct {
	provider     string
	clientOpts   ClientOptions
	flushTimeout time.Duration
}

// WithProvider selects the registered client. Default: "default".
func WithProvider(name string) CrashSinkOption {
	return func(c *crashSinkConfig) {
		c.provider = name
	}
}

// WithClientOptions sets the options passed to Client.Init.
func WithClientOptions(opts ClientOptions) CrashSinkOption {
	return func(c *crashSinkConfig) {
		c.clientOpts = opts
	}
}

// WithFlushTimeout bounds Flush when the context has no deadline. Default: 2s.
func WithFlushTimeout(d time.Duration) CrashSinkOption {
	return func(c *crashSinkConfig) {
		if d > 0 {
			c.flushTimeout = d
		}
	}
}

type crashSink struct {
	client       Client
	flushTimeout time.Duration

	mu       sync.Mutex
	lastUser string
	hasUser  bool
}

// NewCrashSink looks up the configured provider, initializes its client and
// returns a sink that forwards to it. It fails with ErrClientMissing when
// the provider is not registered.
func NewCrashSink(opts ...CrashSinkOption) (telemetry.Sink, error) {
	cfg := &crashSinkConfig{
		provider:     DefaultProvider,
		clientOpts:   ClientOptions{SampleRate: 1},
		flushTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctor, ok := lookup(cfg.provider)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClientMissing, cfg.provider)
	}
	client := ctor()
	if client == nil {
		return nil, fmt.Errorf("%w: %s", ErrClientMissing, cfg.provider)
	}
	if err := client.Init(cfg.clientOpts); err != nil {
		return nil, fmt.Errorf("init %s client: %w", cfg.provider, err)
	}
	return &crashSink{client: client, flushTimeout: cfg.flushTimeout}, nil
}

// Write captures the payload as an exception when it carries an error and as
// a message otherwise. The client's user is updated only when it changes.
func (s *crashSink) Write(ctx context.Context, payload telemetry.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.syncUser(payload.User)
	if payload.Error != nil {
		s.client.CaptureException(&CapturedError{Info: *payload.Error}, payload)
		return nil
	}
	s.client.CaptureMessage(payload.Message, payload)
	return nil
}

func (s *crashSink) syncUser(user *telemetry.User) {
	key := ""
	if user != nil {
		key = user.ID + "\x00" + user.Email + "\x00" + user.Username
	}
	if s.hasUser && key == s.lastUser {
		return
	}
	s.lastUser = key
	s.hasUser = true
	s.client.SetUser(user)
}

// Flush waits for buffered captures when the client supports it.
func (s *crashSink) Flush(ctx context.Context) error {
	f, ok := s.client.(Flusher)
	if !ok {
		return nil
	}
	timeout := s.flushTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !f.Flush(timeout) {
		return errors.New("crash: flush timed out")
	}
	return nil
}

// Close flushes pending captures.
func (s *crashSink) Close() error {
	return s.Flush(context.Background())
}
