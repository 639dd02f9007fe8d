// redisstream.go appends payloads to a capped redis stream.

package redisstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/strongdm/faultline/pkg/faultline/telemetry"
)

const (
	// DefaultStream is the stream key used when none is configured.
	DefaultStream = "faultline:reports"
	// DefaultMaxLen caps the stream length (approximate trimming).
	DefaultMaxLen = 10000
)

// StreamClient is the subset of the redis client used by the sink.
// *redis.Client satisfies it.
type StreamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamSinkOption configures a redis stream sink.
type RedisStreamSinkOption func(*redisStreamSink)

// WithStream sets the stream key. Default: "faultline:reports".
func WithStream(key string) RedisStreamSinkOption {
	return func(s *redisStreamSink) {
		if key != "" {
			s.stream = key
		}
	}
}

// WithMaxLen sets the approximate stream cap. Zero disables trimming.
func WithMaxLen(n int64) RedisStreamSinkOption {
	return func(s *redisStreamSink) {
		if n >= 0 {
			s.maxLen = n
		}
	}
}

// WithCloseClient makes Close also close the underlying client.
func WithCloseClient() RedisStreamSinkOption {
	return func(s *redisStreamSink) {
		s.closeClient = true
	}
}

type redisStreamSink struct {
	client      StreamClient
	stream      string
	maxLen      int64
	closeClient bool
}

// NewRedisStreamSink creates a sink that XADDs each payload to a stream.
// Every entry carries event_id, level and fingerprint fields for consumers
// that filter without decoding, plus the full JSON envelope under "payload".
func NewRedisStreamSink(client StreamClient, opts ...RedisStreamSinkOption) telemetry.Sink {
	s := &redisStreamSink{
		client: client,
		stream: DefaultStream,
		maxLen: DefaultMaxLen,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial connects to redis at url, verifies the connection and returns a
// sink that owns the client.
func Dial(url string, opts ...RedisStreamSinkOption) (telemetry.Sink, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStreamSink(rdb, append(opts, WithCloseClient())...), nil
}

func (s *redisStreamSink) Write(ctx context.Context, p telemetry.Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"event_id":    p.EventID,
			"level":       p.Level.String(),
			"fingerprint": p.Fingerprint,
			"payload":     string(data),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd failed: %w", err)
	}
	return nil
}

func (s *redisStreamSink) Flush(ctx context.Context) error {
	return nil
}

func (s *redisStreamSink) Close() error {
	if !s.closeClient {
		return nil
	}
	if closer, ok := s.client.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
