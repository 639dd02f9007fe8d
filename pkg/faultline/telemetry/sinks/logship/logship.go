// logship.go writes payloads as JSON lines for a log-aggregation collector.

package logship

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/strongdm/faultline/pkg/faultline"
	"github.com/strongdm/faultline/pkg/faultline/telemetry"
)

// LogshipSinkOption configures a logship sink.
type LogshipSinkOption func(*logshipConfig)

type logshipConfig struct {
	out     io.Writer
	service string
}

// WithWriter sets the destination. Default: os.Stdout.
func WithWriter(w io.Writer) LogshipSinkOption {
	return func(c *logshipConfig) {
		c.out = w
	}
}

// WithService stamps every line with a "service" field.
func WithService(name string) LogshipSinkOption {
	return func(c *logshipConfig) {
		c.service = name
	}
}

type logshipSink struct {
	logger zerolog.Logger
	out    io.Writer
}

// NewLogshipSink creates a sink that emits one JSON object per payload.
// Nothing is sent over the network: the aggregation backend's own agent
// tails the stream.
func NewLogshipSink(opts ...LogshipSinkOption) telemetry.Sink {
	cfg := &logshipConfig{out: os.Stdout}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx := zerolog.New(zerolog.SyncWriter(cfg.out)).Level(zerolog.TraceLevel).With()
	if cfg.service != "" {
		ctx = ctx.Str("service", cfg.service)
	}
	return &logshipSink{logger: ctx.Logger(), out: cfg.out}
}

func (s *logshipSink) Write(ctx context.Context, p telemetry.Payload) error {
	ev := s.logger.WithLevel(level(p.Level)).
		Time(zerolog.TimestampFieldName, p.Timestamp).
		Str("event_id", p.EventID).
		Str("fingerprint", p.Fingerprint)

	if p.Environment != "" {
		ev = ev.Str("environment", p.Environment)
	}
	if p.Release != "" {
		ev = ev.Str("release", p.Release)
	}
	if p.URL != "" {
		ev = ev.Str("url", p.URL)
	}
	if p.UserAgent != "" {
		ev = ev.Str("userAgent", p.UserAgent)
	}
	if p.Error != nil {
		ev = ev.Dict("error", zerolog.Dict().
			Str("message", p.Error.Message).
			Str("name", p.Error.Name).
			Str("code", p.Error.Code).
			Str("stack", p.Error.Stack))
	}
	if len(p.Context) > 0 {
		ev = ev.Dict("context", zerolog.Dict().Fields(p.Context))
	}
	if len(p.Tags) > 0 {
		tags := zerolog.Dict()
		for k, v := range p.Tags {
			tags = tags.Str(k, v)
		}
		ev = ev.Dict("tags", tags)
	}
	if p.User != nil {
		ev = ev.Interface("user", p.User)
	}
	if p.System != nil {
		ev = ev.Interface("system", p.System)
	}
	if p.ContextID != nil {
		ev = ev.Uint64("context_id", *p.ContextID)
	}
	ev.Msg(p.Message)
	return nil
}

// Flush syncs the writer when it supports it.
func (s *logshipSink) Flush(ctx context.Context) error {
	if syncer, ok := s.out.(interface{ Sync() error }); ok {
		if f, isFile := s.out.(*os.File); isFile && (f == os.Stdout || f == os.Stderr) {
			return nil
		}
		return syncer.Sync()
	}
	return nil
}

// Close flushes. The writer is owned by the caller.
func (s *logshipSink) Close() error {
	return s.Flush(context.Background())
}

func level(s faultline.Severity) zerolog.Level {
	switch s {
	case faultline.SeverityFatal:
		return zerolog.FatalLevel
	case faultline.SeverityError:
		return zerolog.ErrorLevel
	case faultline.SeverityWarn:
		return zerolog.WarnLevel
	case faultline.SeverityInfo:
		return zerolog.InfoLevel
	case faultline.SeverityDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}
