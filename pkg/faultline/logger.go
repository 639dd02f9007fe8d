// logger.go implements the severity-leveled event logger.

package faultline

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// loggerCore is the state shared by a Logger and its children.
type loggerCore struct {
	cfg *loggerConfig

	mu        sync.Mutex
	history   *history
	context   Fields
	timers    map[string]time.Time
	forwarder Forwarder
}

// Logger emits severity-leveled entries, keeps a bounded history, mirrors to
// a Console and forwards ERROR/FATAL entries in production.
//
// No Logger method panics or returns an error: logging never breaks the caller.
type Logger struct {
	core   *loggerCore
	fields Fields
}

// New creates a Logger with the given options.
func New(opts ...Option) *Logger {
	cfg := defaultLoggerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Logger{
		core: &loggerCore{
			cfg:       cfg,
			history:   newHistory(cfg.maxLogs),
			timers:    make(map[string]time.Time),
			forwarder: cfg.forwarder,
		},
	}
}

// With returns a child logger that adds fields to the context of every entry
// it emits. The child shares history, LogContext and timers with its parent.
func (l *Logger) With(fields Fields) *Logger {
	return &Logger{core: l.core, fields: l.fields.merge(fields)}
}

// Threshold returns the configured minimum severity.
func (l *Logger) Threshold() Severity {
	return l.core.cfg.threshold
}

// SetForwarder replaces the telemetry forwarder. Used when the reporter is
// built after the logger.
func (l *Logger) SetForwarder(f Forwarder) {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	l.core.forwarder = f
}

// Fatal logs at FATAL. It does not exit the process.
func (l *Logger) Fatal(msg string, err error, meta Fields) {
	l.emit(SeverityFatal, msg, err, meta, false)
}

// Error logs at ERROR.
func (l *Logger) Error(msg string, err error, meta Fields) {
	l.emit(SeverityError, msg, err, meta, false)
}

// Warn logs at WARN.
func (l *Logger) Warn(msg string, err error, meta Fields) {
	l.emit(SeverityWarn, msg, err, meta, false)
}

func (l *Logger) Info(msg string, err error, meta Fields) {
	l.emit(SeverityInfo, msg, err, meta, false)
}

func (l *Logger) Debug(msg string, err error, meta Fields) {
	l.emit(SeverityDebug, msg, err, meta, false)
}

func (l *Logger) Trace(msg string, err error, meta Fields) {
	l.emit(SeverityTrace, msg, err, meta, false)
}

// Log emits an entry at an arbitrary level.
func (l *Logger) Log(level Severity, msg string, err error, meta Fields) {
	l.emit(level, msg, err, meta, false)
}

// LogDirect records and mirrors an entry but never forwards it to telemetry.
// The reporter logs its own failures through here so a failing sink cannot
// re-trigger reporting.
func (l *Logger) LogDirect(level Severity, msg string, err error, meta Fields) {
	l.emit(level, msg, err, meta, true)
}

// emit must only be called directly from exported Logger methods invoked by
// user code: the caller lookup below depends on that depth.
func (l *Logger) emit(level Severity, msg string, err error, meta Fields, direct bool) {
	cfg := l.core.cfg
	if !level.Valid() || !level.Enabled(cfg.threshold) {
		return
	}

	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: cfg.now(),
		Level:     level,
		Message:   msg,
		Err:       err,
		Stack:     stackOf(err),
		Metadata:  meta.clone(),
		direct:    direct,
	}
	if entry.Stack == "" && level == SeverityFatal {
		entry.Stack = string(debug.Stack())
	}
	if cfg.debug {
		if _, file, line, ok := runtime.Caller(2); ok {
			entry.Source = fmt.Sprintf("%s:%d", trimPath(file), line)
		}
	}

	core := l.core
	core.mu.Lock()
	entry.Context = core.context.merge(l.fields)
	evicted := false
	if cfg.persist {
		evicted = core.history.add(entry)
	}
	forwarder := core.forwarder
	core.mu.Unlock()

	logEntriesTotal.WithLabelValues(level.String()).Inc()
	if evicted {
		logEvictionsTotal.Inc()
	}

	if cfg.console != nil {
		safely(func() { mirror(cfg.console, copyEntry(entry)) })
	}
	if cfg.production && !direct && level <= SeverityError && forwarder != nil {
		safely(func() { forwarder.Forward(copyEntry(entry)) })
	}
}

func mirror(console Console, e Entry) {
	switch e.Level {
	case SeverityFatal, SeverityError:
		console.Error(e)
	case SeverityWarn:
		console.Warn(e)
	default:
		console.Info(e)
	}
}

// safely runs fn and swallows any panic it raises.
func safely(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

type stackTracer interface {
	StackTrace() string
}

// stackOf returns the trace carried by err, if any error in its chain has one.
func stackOf(err error) string {
	if err == nil {
		return ""
	}
	var st stackTracer
	if errors.As(err, &st) {
		return st.StackTrace()
	}
	return ""
}

// trimPath keeps the last two path elements of a source file.
func trimPath(file string) string {
	idx := strings.LastIndexByte(file, '/')
	if idx < 0 {
		return file
	}
	if prev := strings.LastIndexByte(file[:idx], '/'); prev >= 0 {
		return file[prev+1:]
	}
	return file
}

// SetContext merges patch into the LogContext. Later calls override keys of
// the same name. The context is only cleared by ClearContext.
func (l *Logger) SetContext(patch Fields) {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	l.core.context = l.core.context.merge(patch)
}

// ClearContext empties the LogContext.
func (l *Logger) ClearContext() {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	l.core.context = nil
}

// Context returns a copy of the current LogContext.
func (l *Logger) Context() Fields {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	return l.core.context.clone()
}

// PushContext snapshots the LogContext, merges patch and returns a function
// restoring the snapshot:
//
//	restore := logger.PushContext(faultline.Fields{"request_id": id})
//	defer restore()
func (l *Logger) PushContext(patch Fields) (restore func()) {
	l.core.mu.Lock()
	snapshot := l.core.context.clone()
	l.core.context = l.core.context.merge(patch)
	l.core.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.core.mu.Lock()
			l.core.context = snapshot
			l.core.mu.Unlock()
		})
	}
}

// WithContext runs fn with patch merged into the LogContext and restores the
// previous context on every exit path, including panics.
func (l *Logger) WithContext(patch Fields, fn func()) {
	restore := l.PushContext(patch)
	defer restore()
	fn()
}

// StartTimer records a monotonic start time for label. A no-op when
// performance tracking is disabled.
func (l *Logger) StartTimer(label string) {
	if !l.core.cfg.performance {
		return
	}
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	l.core.timers[label] = time.Now()
}

// EndTimer logs the time elapsed since StartTimer(label) at DEBUG and forgets
// the label. For an unknown label it logs one WARN and returns false.
// A no-op when performance tracking is disabled.
func (l *Logger) EndTimer(label string) (time.Duration, bool) {
	if !l.core.cfg.performance {
		return 0, false
	}

	l.core.mu.Lock()
	start, ok := l.core.timers[label]
	delete(l.core.timers, label)
	l.core.mu.Unlock()

	if !ok {
		l.emit(SeverityWarn, "Timer not found: "+label, nil, Fields{"label": label}, false)
		return 0, false
	}

	elapsed := time.Since(start)
	l.emit(SeverityDebug, fmt.Sprintf("Timer %s: %s", label, elapsed), nil, Fields{
		"label":       label,
		"duration_ms": float64(elapsed.Microseconds()) / 1000,
	}, false)
	return elapsed, true
}

// Logs returns a copy of the history, oldest first.
func (l *Logger) Logs() []Entry {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	return l.core.history.all()
}

// Len returns the number of entries currently held.
func (l *Logger) Len() int {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	return l.core.history.len()
}

// ClearLogs empties the history.
func (l *Logger) ClearLogs() {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	l.core.history.reset()
}

// ExportLogs serializes the history as an indented JSON array.
// Entries that fail to encode are replaced by their message.
func (l *Logger) ExportLogs() string {
	entries := l.Logs()
	data, err := json.MarshalIndent(entries, "", "  ")
	if err == nil {
		return string(data)
	}

	// Some metadata value refused to encode; fall back entry by entry.
	raw := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		raw = append(raw, encodeEntry(e))
	}
	data, _ = json.MarshalIndent(raw, "", "  ")
	return string(data)
}

// ExportLogsNDJSON serializes the history as newline-delimited JSON.
func (l *Logger) ExportLogsNDJSON() string {
	var b strings.Builder
	for _, e := range l.Logs() {
		b.Write(encodeEntry(e))
		b.WriteByte('\n')
	}
	return b.String()
}

func encodeEntry(e Entry) json.RawMessage {
	if data, err := json.Marshal(e); err == nil {
		return data
	}
	e.Context = nil
	e.Metadata = Fields{"encode_error": "unserializable fields dropped"}
	data, err := json.Marshal(e)
	if err != nil {
		data, _ = json.Marshal(map[string]string{"message": e.Message})
	}
	return data
}
