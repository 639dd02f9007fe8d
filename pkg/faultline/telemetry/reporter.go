// reporter.go provides the Reporter: sampling, enrichment, scrubbing and
// delivery of reports to the configured sink.

package telemetry

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/strongdm/faultline/pkg/faultline"
	"github.com/strongdm/faultline/pkg/faultline/fault"
)

// SinkFactory builds the backend on Initialize.
type SinkFactory func() (Sink, error)

// ReporterOption configures a Reporter.
type ReporterOption func(*reporterConfig)

type reporterConfig struct {
	enabled       bool
	sampleRate    float64
	environment   string
	release       string
	factory       SinkFactory
	scrubber      *Scrubber
	logger        *faultline.Logger
	random        func() float64
	now           func() time.Time
	captureSystem bool
}

// WithEnabled turns reporting on or off (default: enabled).
func WithEnabled(enabled bool) ReporterOption {
	return func(c *reporterConfig) {
		c.enabled = enabled
	}
}

// WithSampleRate sets the probability in [0,1] that a report is forwarded
// (default: 1). Values outside the range are ignored.
func WithSampleRate(rate float64) ReporterOption {
	return func(c *reporterConfig) {
		if rate >= 0 && rate <= 1 {
			c.sampleRate = rate
		}
	}
}

// WithEnvironment sets the environment stamped on every payload.
func WithEnvironment(env string) ReporterOption {
	return func(c *reporterConfig) {
		c.environment = env
	}
}

// WithRelease sets the release stamped on every payload.
func WithRelease(release string) ReporterOption {
	return func(c *reporterConfig) {
		c.release = release
	}
}

// WithSink uses sink as the backend.
func WithSink(sink Sink) ReporterOption {
	return func(c *reporterConfig) {
		c.factory = func() (Sink, error) { return sink, nil }
	}
}

// WithSinkFactory builds the backend lazily on Initialize.
func WithSinkFactory(factory SinkFactory) ReporterOption {
	return func(c *reporterConfig) {
		c.factory = factory
	}
}

// WithScrubber configures the reporter with a custom scrubber configuration.
func WithScrubber(cfg ScrubberConfig) ReporterOption {
	return func(c *reporterConfig) {
		c.scrubber = NewScrubber(cfg)
	}
}

// WithoutScrubbing disables payload scrubbing.
func WithoutScrubbing() ReporterOption {
	return func(c *reporterConfig) {
		c.scrubber = nil
	}
}

// WithLogger sets the logger the reporter records its own failures to
// (default: faultline.Default()). Those entries use the direct path and are
// never forwarded back to the reporter.
func WithLogger(l *faultline.Logger) ReporterOption {
	return func(c *reporterConfig) {
		c.logger = l
	}
}

// WithRandom replaces the uniform [0,1) source used for sampling.
func WithRandom(fn func() float64) ReporterOption {
	return func(c *reporterConfig) {
		c.random = fn
	}
}

// WithClock replaces the time source for payload timestamps.
func WithClock(now func() time.Time) ReporterOption {
	return func(c *reporterConfig) {
		c.now = now
	}
}

// WithSystemState attaches process metrics to FATAL payloads (default: on).
func WithSystemState(enabled bool) ReporterOption {
	return func(c *reporterConfig) {
		c.captureSystem = enabled
	}
}

// Reporter forwards reports to a sink. It never panics and never returns
// delivery failures to the caller; they are logged and dropped.
type Reporter struct {
	cfg       *reporterConfig
	startTime time.Time

	mu          sync.RWMutex
	sink        Sink
	initialized bool
	closed      bool
	user        *User
}

// NewReporter creates a Reporter. Call Initialize before reporting.
func NewReporter(opts ...ReporterOption) *Reporter {
	cfg := &reporterConfig{
		enabled:       true,
		sampleRate:    1,
		scrubber:      NewScrubber(DefaultScrubberConfig()),
		random:        rand.Float64,
		now:           time.Now,
		captureSystem: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Reporter{cfg: cfg, startTime: time.Now()}
}

func (r *Reporter) log() *faultline.Logger {
	if r.cfg.logger != nil {
		return r.cfg.logger
	}
	return faultline.Default()
}

// Initialize builds the backend. It is a no-op when reporting is disabled
// or the reporter is already initialized. A backend that fails to build is
// logged and replaced by a discarding sink.
func (r *Reporter) Initialize() {
	if !r.cfg.enabled {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.initialized || r.closed {
		return
	}
	r.initialized = true
	r.sink = discardSink{}

	if r.cfg.factory == nil {
		return
	}
	sink, err := buildSink(r.cfg.factory)
	if err != nil {
		r.log().LogDirect(faultline.SeverityWarn, "Telemetry backend unavailable, reporting disabled", err, nil)
		return
	}
	if sink != nil {
		r.sink = sink
	}
}

func buildSink(factory SinkFactory) (sink Sink, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("sink factory panic: %v", p)
		}
	}()
	return factory()
}

// Initialized reports whether Initialize has run with reporting enabled.
func (r *Reporter) Initialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initialized
}

// SetUser attaches u to every later report. nil clears it.
func (r *Reporter) SetUser(u *User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u == nil {
		r.user = nil
		return
	}
	copied := *u
	r.user = &copied
}

// Report samples, enriches and delivers one report. It returns once the
// sink's Write returns; wrap slow sinks in sinks/async.
func (r *Reporter) Report(ctx context.Context, report Report) {
	defer func() {
		if p := recover(); p != nil {
			reportsTotal.WithLabelValues(OutcomeFailed).Inc()
			r.log().LogDirect(faultline.SeverityWarn, "Telemetry report panicked", fmt.Errorf("panic: %v", p), nil)
		}
	}()

	r.mu.RLock()
	sink, ready, user := r.sink, r.initialized && !r.closed, r.user
	r.mu.RUnlock()

	if !ready {
		reportsTotal.WithLabelValues(OutcomeDisabled).Inc()
		return
	}
	if r.cfg.random() >= r.cfg.sampleRate {
		reportsTotal.WithLabelValues(OutcomeSampledOut).Inc()
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	payload := r.buildPayload(ctx, report, user)

	if err := sink.Write(ctx, payload); err != nil {
		reportsTotal.WithLabelValues(OutcomeFailed).Inc()
		r.log().LogDirect(faultline.SeverityWarn, "Failed to deliver telemetry report", err, faultline.Fields{
			"event_id": payload.EventID,
		})
		return
	}
	reportsTotal.WithLabelValues(OutcomeForwarded).Inc()
}

// Forward reports a logger entry. It satisfies faultline.Forwarder.
func (r *Reporter) Forward(e faultline.Entry) {
	ctx := make(map[string]any, len(e.Context)+len(e.Metadata))
	for k, v := range e.Context {
		ctx[k] = v
	}
	for k, v := range e.Metadata {
		ctx[k] = v
	}
	r.Report(context.Background(), Report{
		Message: e.Message,
		Level:   e.Level,
		Err:     e.Err,
		Context: ctx,
		Tags:    map[string]string{"origin": "logger", "log_id": e.ID},
	})
}

func (r *Reporter) buildPayload(ctx context.Context, report Report, user *User) Payload {
	level := report.Level
	if !level.Valid() {
		level = faultline.SeverityError
	}

	p := Payload{
		EventID:     uuid.NewString(),
		Message:     report.Message,
		Level:       level,
		Context:     copyContext(report.Context),
		Tags:        copyTags(report.Tags),
		User:        user,
		Timestamp:   r.cfg.now().UTC(),
		Release:     r.cfg.release,
		Environment: r.cfg.environment,
	}
	if report.User != nil {
		p.User = report.User
	}

	if report.Err != nil {
		details := fault.ExtractDetails(report.Err)
		p.Error = &ErrorInfo{
			Message: details.Message,
			Stack:   details.Stack,
			Name:    details.Name,
			Code:    details.Code,
		}
		if p.Message == "" {
			p.Message = details.Message
		}
		for k, v := range details.Context {
			if _, exists := p.Context[k]; !exists {
				p.Context[k] = v
			}
		}
	}
	if p.Message == "" {
		p.Message = fault.FallbackMessage
	}

	if info, ok := RequestInfoFromContext(ctx); ok {
		p.URL = info.URL
		p.UserAgent = info.UserAgent
	}
	if id, ok := ContextIDFromContext(ctx); ok {
		p.ContextID = &id
	}
	if r.cfg.captureSystem && level == faultline.SeverityFatal {
		p.System = CaptureSystemState(r.startTime)
	}

	if r.cfg.scrubber != nil {
		p = r.cfg.scrubber.Scrub(p)
	}
	p.Fingerprint = Fingerprint(p)
	return p
}

// Flush delegates to the sink.
func (r *Reporter) Flush(ctx context.Context) error {
	r.mu.RLock()
	sink := r.sink
	r.mu.RUnlock()
	if sink == nil {
		return nil
	}
	return sink.Flush(ctx)
}

// Close closes the sink. Later reports are dropped.
func (r *Reporter) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	sink := r.sink
	r.mu.Unlock()

	if sink == nil {
		return nil
	}
	return sink.Close()
}

func copyContext(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyTags(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
