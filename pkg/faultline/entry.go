// entry.go defines the immutable log entry recorded by the Logger.

package faultline

import (
	"encoding/json"
	"time"
)

// Fields is a free-form key/value map attached to entries.
type Fields map[string]any

// clone returns a shallow copy of f, or nil when f is empty.
func (f Fields) clone() Fields {
	if len(f) == 0 {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// merge returns a new map holding f overlaid with patch.
// Later keys win; the merge is shallow.
func (f Fields) merge(patch Fields) Fields {
	if len(f) == 0 {
		return patch.clone()
	}
	out := f.clone()
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Entry is one recorded log event. Entries are built once by the Logger and
// never modified afterwards; accessors hand out copies.
type Entry struct {
	// ID is a unique identifier (UUID) assigned at emission.
	ID string

	// Timestamp is when the entry was emitted.
	Timestamp time.Time

	// Level is the entry severity.
	Level Severity

	// Message is the human-readable text.
	Message string

	// Context is the LogContext snapshot merged with child-logger fields.
	Context Fields

	// Source is the caller location (file:line). Populated in debug builds only.
	Source string

	// Err is the optional underlying fault.
	Err error

	// Stack is the optional trace text.
	Stack string

	// Metadata holds per-call key/value pairs.
	Metadata Fields

	// direct marks entries that must not be forwarded to telemetry.
	direct bool
}

// Direct reports whether the entry came from the non-forwarding path.
func (e Entry) Direct() bool {
	return e.direct
}

// copyEntry returns e with its maps duplicated so callers cannot reach
// the Logger's internal state.
func copyEntry(e Entry) Entry {
	e.Context = e.Context.clone()
	e.Metadata = e.Metadata.clone()
	return e
}

type entryJSON struct {
	ID        string   `json:"id"`
	Timestamp string   `json:"timestamp"`
	Level     Severity `json:"level"`
	Message   string   `json:"message"`
	Context   Fields   `json:"context,omitempty"`
	Source    string   `json:"source,omitempty"`
	Error     string   `json:"error,omitempty"`
	Stack     string   `json:"stack,omitempty"`
	Metadata  Fields   `json:"metadata,omitempty"`
}

// MarshalJSON encodes the entry with an ISO-8601 timestamp and the error
// flattened to its message.
func (e Entry) MarshalJSON() ([]byte, error) {
	out := entryJSON{
		ID:        e.ID,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		Level:     e.Level,
		Message:   e.Message,
		Context:   e.Context,
		Source:    e.Source,
		Stack:     e.Stack,
		Metadata:  e.Metadata,
	}
	if e.Err != nil {
		out.Error = e.Err.Error()
	}
	return json.Marshal(out)
}
