// default.go provides the process-wide Logger.

package faultline

import "sync"

var (
	defaultOnce   sync.Once
	defaultLogger *Logger
)

// Init constructs the process-wide Logger on first call and returns it.
// Options passed after the first call are ignored.
func Init(opts ...Option) *Logger {
	defaultOnce.Do(func() {
		defaultLogger = New(opts...)
	})
	return defaultLogger
}

// Default returns the process-wide Logger, constructing it with default
// options if Init was never called.
func Default() *Logger {
	return Init()
}
