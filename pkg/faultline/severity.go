// severity.go defines the ordered log severities.

package faultline

import (
	"fmt"
	"strings"
)

// Severity is a log importance level. Lower values are more important:
// FATAL < ERROR < WARN < INFO < DEBUG < TRACE.
type Severity int

const (
	SeverityFatal Severity = iota
	SeverityError
	SeverityWarn
	SeverityInfo
	SeverityDebug
	SeverityTrace
)

// Severities lists every level from most to least important.
var Severities = []Severity{
	SeverityFatal,
	SeverityError,
	SeverityWarn,
	SeverityInfo,
	SeverityDebug,
	SeverityTrace,
}

var severityNames = [...]string{"FATAL", "ERROR", "WARN", "INFO", "DEBUG", "TRACE"}

// String returns the upper-case level name.
func (s Severity) String() string {
	if s.Valid() {
		return severityNames[s]
	}
	return fmt.Sprintf("SEVERITY(%d)", int(s))
}

// Valid reports whether s is one of the six defined levels.
func (s Severity) Valid() bool {
	return s >= SeverityFatal && s <= SeverityTrace
}

// Enabled reports whether an entry at s passes the threshold.
// An entry is kept iff its ordinal is <= the threshold ordinal.
func (s Severity) Enabled(threshold Severity) bool {
	return s <= threshold
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, ok := ParseSeverity(string(text))
	if !ok {
		return fmt.Errorf("unknown severity %q", string(text))
	}
	*s = parsed
	return nil
}

// ParseSeverity converts a level name to a Severity. Matching is
// case-insensitive and accepts "warning" and "err" aliases.
func ParseSeverity(name string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fatal", "critical":
		return SeverityFatal, true
	case "error", "err":
		return SeverityError, true
	case "warn", "warning":
		return SeverityWarn, true
	case "info":
		return SeverityInfo, true
	case "debug":
		return SeverityDebug, true
	case "trace":
		return SeverityTrace, true
	default:
		return SeverityInfo, false
	}
}
