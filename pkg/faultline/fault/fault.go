// Package fault defines the closed set of typed faults used across faultline
// and total extraction functions over arbitrary failure values.
//
// Every fault is a Go error. Variants embed *Base, the common envelope, and
// are matched with errors.As through any wrapping chain:
//
//	var api *fault.APIFault
//	if errors.As(err, &api) { ... }
package fault

import (
	"fmt"
	"runtime"
	"strings"
)

// Kind tags a fault variant.
type Kind int

const (
	KindGeneric Kind = iota
	KindAPI
	KindValidation
	KindNetwork
	KindAuth
	KindPermission
	KindNotFound
	KindRateLimit
	// KindUnknown tags values that are not faults at all; see Normalize.
	KindUnknown
)

var kindNames = [...]string{
	"generic", "api", "validation", "network", "auth", "permission", "not_found", "rate_limit", "unknown",
}

func (k Kind) String() string {
	if k >= KindGeneric && k <= KindUnknown {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Fault is implemented by every variant.
type Fault interface {
	error
	// Kind returns the variant tag.
	Kind() Kind
	// Envelope returns the common envelope.
	Envelope() *Base
}

// Base is the envelope shared by all variants. StatusCode and UserFacing are
// fixed by the variant constructor.
type Base struct {
	Code       string
	StatusCode int
	Context    map[string]any
	UserFacing bool
	Metadata   map[string]any
	Message    string
	Cause      error

	pcs []uintptr
}

// New creates a generic fault: status 500, not user-facing.
func New(code, message string) *Base {
	return newBase(code, message, 500, false)
}

// Wrap creates a generic fault carrying cause. A nil cause yields a nil
// Fault, so the result can be returned as an error directly. Use
// Envelope to reach the builders.
func Wrap(cause error, code, message string) Fault {
	if cause == nil {
		return nil
	}
	b := newBase(code, message, 500, false)
	b.Cause = cause
	return b
}

func newBase(code, message string, status int, userFacing bool) *Base {
	b := &Base{
		Code:       code,
		StatusCode: status,
		UserFacing: userFacing,
		Message:    message,
	}
	b.pcs = callers(4)
	return b
}

// callers captures the stack above the constructor frames.
func callers(skip int) []uintptr {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip, pcs)
	return pcs[:n]
}

func (b *Base) Error() string {
	if b.Cause != nil && b.Message != "" {
		return b.Message + ": " + b.Cause.Error()
	}
	if b.Message != "" {
		return b.Message
	}
	if b.Cause != nil {
		return b.Cause.Error()
	}
	return b.Code
}

func (b *Base) Unwrap() error   { return b.Cause }
func (b *Base) Kind() Kind      { return KindGeneric }
func (b *Base) Envelope() *Base { return b }

// StackTrace renders the construction-site stack, one frame per line pair
// in the runtime's "function\n\tfile:line" format.
func (b *Base) StackTrace() string {
	if len(b.pcs) == 0 {
		return ""
	}
	var sb strings.Builder
	frames := runtime.CallersFrames(b.pcs)
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&sb, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return sb.String()
}

// WithContext sets a context key and returns b for chaining.
func (b *Base) WithContext(key string, value any) *Base {
	if b.Context == nil {
		b.Context = make(map[string]any)
	}
	b.Context[key] = value
	return b
}

// WithMetadata sets a metadata key and returns b for chaining.
func (b *Base) WithMetadata(key string, value any) *Base {
	if b.Metadata == nil {
		b.Metadata = make(map[string]any)
	}
	b.Metadata[key] = value
	return b
}
