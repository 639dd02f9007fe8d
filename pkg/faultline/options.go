// options.go defines functional options for the Logger.

package faultline

import "time"

// DefaultMaxLogs is the history capacity used when none is configured.
const DefaultMaxLogs = 1000

// Forwarder receives ERROR and FATAL entries in production-classified
// environments. telemetry.Reporter satisfies it.
type Forwarder interface {
	Forward(e Entry)
}

// Option configures a Logger.
type Option func(*loggerConfig)

type loggerConfig struct {
	threshold   Severity
	maxLogs     int
	persist     bool
	console     Console
	performance bool
	production  bool
	debug       bool
	forwarder   Forwarder
	now         func() time.Time
}

func defaultLoggerConfig() *loggerConfig {
	return &loggerConfig{
		threshold:   SeverityDebug,
		maxLogs:     DefaultMaxLogs,
		persist:     true,
		performance: true,
		now:         time.Now,
	}
}

// WithThreshold sets the minimum severity. Entries whose ordinal exceeds
// the threshold ordinal are dropped before any work is done.
func WithThreshold(threshold Severity) Option {
	return func(c *loggerConfig) {
		if threshold.Valid() {
			c.threshold = threshold
		}
	}
}

// WithMaxLogs sets the history capacity (default: 1000).
func WithMaxLogs(n int) Option {
	return func(c *loggerConfig) {
		if n > 0 {
			c.maxLogs = n
		}
	}
}

// WithPersistence enables or disables the in-memory history (default: enabled).
func WithPersistence(enabled bool) Option {
	return func(c *loggerConfig) {
		c.persist = enabled
	}
}

// WithConsole sets the console mirror. A nil console disables mirroring,
// which is also the default.
func WithConsole(console Console) Option {
	return func(c *loggerConfig) {
		c.console = console
	}
}

// WithPerformance enables or disables timers (default: enabled).
func WithPerformance(enabled bool) Option {
	return func(c *loggerConfig) {
		c.performance = enabled
	}
}

// WithProduction marks the environment as production. Only then are ERROR
// and FATAL entries handed to the Forwarder.
func WithProduction(production bool) Option {
	return func(c *loggerConfig) {
		c.production = production
	}
}

// WithDebug marks a debug build: entries carry their caller location.
func WithDebug(debug bool) Option {
	return func(c *loggerConfig) {
		c.debug = debug
	}
}

// WithForwarder sets the telemetry forwarder.
func WithForwarder(f Forwarder) Option {
	return func(c *loggerConfig) {
		c.forwarder = f
	}
}

// WithClock overrides the time source used for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *loggerConfig) {
		if now != nil {
			c.now = now
		}
	}
}
