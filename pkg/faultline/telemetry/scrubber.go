// scrubber.go implements fail-closed sensitive data redaction for payloads.

package telemetry

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ScrubberConfig controls scrubbing behavior.
type ScrubberConfig struct {
	// SensitiveKeys contains additional case-insensitive substrings that mark
	// a context or tag key as sensitive.
	SensitiveKeys []string

	// MaxMessageSize is the maximum length for messages (default: 4096).
	MaxMessageSize int

	// MaxStackTraceSize is the maximum length for stack traces (default: 32768).
	MaxStackTraceSize int

	// MaxValueSize is the maximum length per tag value (default: 1024).
	MaxValueSize int

	// MaxContextSize is the maximum encoded size of the context (default: 16384).
	MaxContextSize int

	// ScrubMessages enables scrubbing of messages for secrets/PII (default: true).
	ScrubMessages bool

	// FailClosed enables fail-closed behavior: on any scrub error, fully redact (default: true).
	FailClosed bool
}

// DefaultScrubberConfig returns production-safe defaults.
func DefaultScrubberConfig() ScrubberConfig {
	return ScrubberConfig{
		MaxMessageSize:    4096,
		MaxStackTraceSize: 32768,
		MaxValueSize:      1024,
		MaxContextSize:    16384,
		ScrubMessages:     true,
		FailClosed:        true,
	}
}

// Redaction placeholders.
const (
	Redacted           = "[REDACTED]"
	RedactedScrubError = "[REDACTED:SCRUB_ERROR]"
	RedactedSizeLimit  = "[REDACTED:SIZE_LIMIT]"
)

// Compiled once at package init.
var messageScrubPatterns = []*regexp.Regexp{
	// API keys and tokens
	regexp.MustCompile(`(?i)(api[_-]?key|token)[=:\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)(authorization|bearer)[=:\s]+['"]?[\w\-\.]+['"]?[\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)sk-[a-zA-Z0-9_-]{20,}`),
	regexp.MustCompile(`(?i)ghp_[a-zA-Z0-9]{36}`),
	regexp.MustCompile(`(?i)gho_[a-zA-Z0-9]{36}`),
	regexp.MustCompile(`(?i)github_pat_[a-zA-Z0-9_]{22,}`),
	regexp.MustCompile(`(?i)xox[baprs]-[a-zA-Z0-9\-]{10,}`),
	regexp.MustCompile(`(?i)eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`), // JWT

	// Credentials
	regexp.MustCompile(`(?i)password[=:\s]+['"]?[^\s'",]+['"]?`),
	regexp.MustCompile(`(?i)secret[=:\s]+['"]?[^\s'",]+['"]?`),
	regexp.MustCompile(`(?i)passwd[=:\s]+['"]?[^\s'",]+['"]?`),
	regexp.MustCompile(`(?i)credential[=:\s]+['"]?[^\s'",]+['"]?`),

	// PII
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),
}

var sensitiveKeyPatterns = []string{
	"token",
	"key",
	"secret",
	"password",
	"credential",
	"auth",
	"passwd",
	"cookie",
}

var pathNormalizationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/home/[^/]+/`),
	regexp.MustCompile(`/Users/[^/]+/`),
	regexp.MustCompile(`C:\\Users\\[^\\]+\\`),
	regexp.MustCompile(`/tmp/[^/]+/`),
}

var addressPattern = regexp.MustCompile(`0x[0-9a-fA-F]+`)

// Scrubber redacts sensitive data from payloads.
type Scrubber struct {
	cfg  ScrubberConfig
	keys []string
}

// NewScrubber creates a new scrubber with the given configuration.
func NewScrubber(cfg ScrubberConfig) *Scrubber {
	keys := append([]string{}, sensitiveKeyPatterns...)
	for _, k := range cfg.SensitiveKeys {
		keys = append(keys, strings.ToLower(k))
	}
	return &Scrubber{cfg: cfg, keys: keys}
}

// Scrub returns a copy of p with every free-text field scrubbed.
func (s *Scrubber) Scrub(p Payload) Payload {
	p.Message = s.ScrubMessage(p.Message)
	if p.Error != nil {
		info := *p.Error
		info.Message = s.ScrubMessage(info.Message)
		info.Stack = s.ScrubStackTrace(info.Stack)
		p.Error = &info
	}
	p.Context = s.ScrubContext(p.Context)
	p.Tags = s.ScrubTags(p.Tags)
	p.URL = s.ScrubMessage(p.URL)
	return p
}

// ScrubMessage scrubs sensitive patterns from a message.
func (s *Scrubber) ScrubMessage(msg string) string {
	if !s.cfg.ScrubMessages {
		return msg
	}
	if len(msg) > s.cfg.MaxMessageSize {
		msg = truncateWithMarker(msg, s.cfg.MaxMessageSize)
	}
	for _, pattern := range messageScrubPatterns {
		msg = pattern.ReplaceAllString(msg, Redacted)
	}
	return msg
}

// ScrubTags redacts sensitive keys and truncates long values.
func (s *Scrubber) ScrubTags(tags map[string]string) map[string]string {
	if tags == nil {
		return nil
	}
	result := make(map[string]string, len(tags))
	for key, value := range tags {
		if s.isSensitiveKey(key) {
			result[key] = Redacted
			continue
		}
		if len(value) > s.cfg.MaxValueSize {
			value = truncateWithMarker(value, s.cfg.MaxValueSize)
		}
		result[key] = value
	}
	return result
}

// ScrubContext round-trips ctx through JSON and scrubs it recursively:
// sensitive keys are redacted, strings are scrubbed like messages. A context
// that cannot be encoded, or is too large, is replaced whole when FailClosed.
func (s *Scrubber) ScrubContext(ctx map[string]any) map[string]any {
	if ctx == nil {
		return nil
	}

	data, err := json.Marshal(ctx)
	if err != nil {
		if s.cfg.FailClosed {
			return map[string]any{"_scrubbed": RedactedScrubError}
		}
		return ctx
	}
	if len(data) > s.cfg.MaxContextSize {
		return map[string]any{"_scrubbed": RedactedSizeLimit}
	}

	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		return map[string]any{"_scrubbed": RedactedScrubError}
	}
	return s.scrubJSONMap(generic)
}

// ScrubStackTrace normalizes paths and limits stack trace size.
func (s *Scrubber) ScrubStackTrace(trace string) string {
	if trace == "" {
		return trace
	}
	result := trace
	for _, pattern := range pathNormalizationPatterns {
		result = pattern.ReplaceAllString(result, "/[PATH]/")
	}
	result = addressPattern.ReplaceAllString(result, "0x...")
	if len(result) > s.cfg.MaxStackTraceSize {
		result = truncateWithMarker(result, s.cfg.MaxStackTraceSize)
	}
	return result
}

func (s *Scrubber) isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range s.keys {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

func (s *Scrubber) scrubJSONValue(val any) any {
	switch v := val.(type) {
	case map[string]any:
		return s.scrubJSONMap(v)
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = s.scrubJSONValue(item)
		}
		return result
	case string:
		return s.ScrubMessage(v)
	default:
		return v // numbers, booleans, null
	}
}

func (s *Scrubber) scrubJSONMap(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for key, value := range m {
		if s.isSensitiveKey(key) {
			result[key] = Redacted
		} else {
			result[key] = s.scrubJSONValue(value)
		}
	}
	return result
}

func truncateWithMarker(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	marker := "...[TRUNCATED]"
	if maxLen <= len(marker) {
		return marker[:maxLen]
	}
	return s[:maxLen-len(marker)] + marker
}
