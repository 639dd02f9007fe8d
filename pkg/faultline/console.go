// console.go provides the severity-routed console mirror.

package faultline

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Console receives mirrored entries. The Logger picks the method by
// severity: FATAL and ERROR go to Error, WARN to Warn, everything else to Info.
// Implementations must be safe for concurrent use.
type Console interface {
	Error(e Entry)
	Warn(e Entry)
	Info(e Entry)
}

// ConsoleOption configures the zerolog console.
type ConsoleOption func(*consoleConfig)

type consoleConfig struct {
	errOut  io.Writer
	warnOut io.Writer
	infoOut io.Writer
	pretty  bool
}

// WithStreams sets the writers behind the error, warn and info streams.
// A nil writer keeps the default for that stream.
func WithStreams(errOut, warnOut, infoOut io.Writer) ConsoleOption {
	return func(c *consoleConfig) {
		if errOut != nil {
			c.errOut = errOut
		}
		if warnOut != nil {
			c.warnOut = warnOut
		}
		if infoOut != nil {
			c.infoOut = infoOut
		}
	}
}

// WithPretty switches from JSON lines to zerolog's human-readable writer.
func WithPretty() ConsoleOption {
	return func(c *consoleConfig) {
		c.pretty = true
	}
}

// zerologConsole writes entries as structured zerolog events, one logger per stream.
type zerologConsole struct {
	errLog  zerolog.Logger
	warnLog zerolog.Logger
	infoLog zerolog.Logger
}

// NewZerologConsole creates a console backed by zerolog.
// Defaults: error and warn streams on stderr, info stream on stdout, JSON lines.
func NewZerologConsole(opts ...ConsoleOption) Console {
	cfg := &consoleConfig{
		errOut:  os.Stderr,
		warnOut: os.Stderr,
		infoOut: os.Stdout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	build := func(w io.Writer) zerolog.Logger {
		if cfg.pretty {
			w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		}
		return zerolog.New(w).Level(zerolog.TraceLevel)
	}

	return &zerologConsole{
		errLog:  build(cfg.errOut),
		warnLog: build(cfg.warnOut),
		infoLog: build(cfg.infoOut),
	}
}

func (c *zerologConsole) Error(e Entry) { write(c.errLog, e) }
func (c *zerologConsole) Warn(e Entry)  { write(c.warnLog, e) }
func (c *zerologConsole) Info(e Entry)  { write(c.infoLog, e) }

// write emits e with its maps attached as nested objects.
// WithLevel never exits the process, even at FatalLevel.
func write(logger zerolog.Logger, e Entry) {
	ev := logger.WithLevel(zerologLevel(e.Level)).
		Time(zerolog.TimestampFieldName, e.Timestamp)
	if len(e.Context) > 0 {
		ev = ev.Dict("context", zerolog.Dict().Fields(map[string]interface{}(e.Context)))
	}
	if len(e.Metadata) > 0 {
		ev = ev.Dict("metadata", zerolog.Dict().Fields(map[string]interface{}(e.Metadata)))
	}
	if e.Source != "" {
		ev = ev.Str("source", e.Source)
	}
	if e.Err != nil {
		ev = ev.AnErr(zerolog.ErrorFieldName, e.Err)
	}
	if e.Stack != "" {
		ev = ev.Str("stack", e.Stack)
	}
	ev.Msg(e.Message)
}

func zerologLevel(s Severity) zerolog.Level {
	switch s {
	case SeverityFatal:
		return zerolog.FatalLevel
	case SeverityError:
		return zerolog.ErrorLevel
	case SeverityWarn:
		return zerolog.WarnLevel
	case SeverityInfo:
		return zerolog.InfoLevel
	case SeverityDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}
