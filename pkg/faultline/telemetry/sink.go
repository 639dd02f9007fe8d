// sink.go defines the Sink interface for telemetry destinations.

package telemetry

import (
	"context"
	"errors"
)

// ErrClosed is returned by sinks and reporters used after Close.
var ErrClosed = errors.New("telemetry: closed")

// Sink is the destination for report payloads. Every backend implements
// the same three methods so the Reporter can swap them freely.
// Implementations must be safe for concurrent use.
type Sink interface {
	// Write delivers one payload. Called after scrubbing and enrichment.
	Write(ctx context.Context, payload Payload) error

	// Flush ensures any buffered payloads are delivered.
	// For synchronous sinks, this may be a no-op.
	Flush(ctx context.Context) error

	// Close releases resources held by the sink.
	// After Close is called, Write and Flush should return errors.
	Close() error
}

// discardSink is the Reporter's fallback when no backend is configured.
type discardSink struct{}

func (discardSink) Write(context.Context, Payload) error { return nil }
func (discardSink) Flush(context.Context) error          { return nil }
func (discardSink) Close() error                         { return nil }
