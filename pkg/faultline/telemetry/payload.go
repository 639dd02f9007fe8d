// payload.go defines the report input and the envelope delivered to sinks.

package telemetry

import (
	"time"

	"github.com/strongdm/faultline/pkg/faultline"
)

// User identifies the person affected by a report.
type User struct {
	ID       string         `json:"id,omitempty"`
	Email    string         `json:"email,omitempty"`
	Username string         `json:"username,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// Report is the input to Reporter.Report.
type Report struct {
	Message string
	// Level is the report severity. The zero value is SeverityFatal.
	Level   faultline.Severity
	Err     error
	Context map[string]any
	Tags    map[string]string
	// User overrides the reporter-wide user for this report.
	User *User
}

// ErrorInfo describes the error attached to a report.
type ErrorInfo struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
	Name    string `json:"name"`
	Code    string `json:"code,omitempty"`
}

// SystemState captures process metrics at report time.
type SystemState struct {
	MemoryBytes    int64  `json:"memory_bytes"`
	GoroutineCount int    `json:"goroutine_count"`
	UptimeMs       int64  `json:"uptime_ms"`
	HostName       string `json:"host_name"`
}

// Payload is the JSON envelope every sink receives. All fields are filled
// and scrubbed by the Reporter before Write is called.
type Payload struct {
	EventID     string             `json:"event_id"`
	Message     string             `json:"message"`
	Level       faultline.Severity `json:"level"`
	Error       *ErrorInfo         `json:"error,omitempty"`
	Context     map[string]any     `json:"context"`
	Tags        map[string]string  `json:"tags"`
	User        *User              `json:"user"`
	Timestamp   time.Time          `json:"timestamp"`
	URL         string             `json:"url"`
	UserAgent   string             `json:"userAgent"`
	Release     string             `json:"release,omitempty"`
	Environment string             `json:"environment,omitempty"`
	Fingerprint string             `json:"fingerprint"`
	System      *SystemState       `json:"system,omitempty"`

	// ContextID links the report to an existing cxdb context.
	// Uses pointer to distinguish "not set" from "zero value".
	ContextID *uint64 `json:"context_id,omitempty"`
}
