// fingerprint.go generates stable hashes for grouping similar reports.

package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// Fingerprint generates a hash for grouping similar reports.
// The fingerprint is based on:
//   - level, error name and error code
//   - first 3 stack frames (function names only, normalized)
//   - the message, only when there is neither an error nor a stack
//
// It ignores variable data like timestamps, event IDs, line numbers and
// memory addresses.
func Fingerprint(p Payload) string {
	parts := []string{p.Level.String()}

	stack := ""
	if p.Error != nil {
		parts = append(parts, p.Error.Name, p.Error.Code)
		stack = p.Error.Stack
	}

	frames := normalizeStackTrace(stack)
	parts = append(parts, frames...)
	if p.Error == nil && len(frames) == 0 {
		parts = append(parts, p.Message)
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:16])
}

var (
	// Match function names like "main.doSomething" or "pkg/subpkg.(*T).Method"
	funcNamePattern = regexp.MustCompile(`^([a-zA-Z0-9_./\-()*]+\.[a-zA-Z0-9_]+)`)

	memAddrPattern = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	offsetPattern  = regexp.MustCompile(`\+0x[0-9a-fA-F]+`)
)

// normalizeStackTrace extracts the first 3 function names from a stack trace,
// stripping line numbers, memory addresses, and other variable data.
func normalizeStackTrace(trace string) []string {
	if trace == "" {
		return nil
	}

	var frames []string
	for _, line := range strings.Split(trace, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "goroutine ") {
			continue
		}
		// File lines: "/src/app/main.go:42 +0x1d"
		if strings.HasPrefix(line, "/") || strings.Contains(line, ".go:") {
			continue
		}

		funcLine := offsetPattern.ReplaceAllString(line, "")
		funcLine = memAddrPattern.ReplaceAllString(funcLine, "")
		// Drop the argument list; receivers like "(*T)" stay.
		if strings.HasSuffix(funcLine, ")") {
			if idx := strings.LastIndex(funcLine, "("); idx > 0 {
				funcLine = funcLine[:idx]
			}
		}
		funcLine = strings.TrimSpace(funcLine)
		if funcLine == "" {
			continue
		}

		if match := funcNamePattern.FindString(funcLine); match != "" {
			frames = append(frames, match)
			if len(frames) >= 3 {
				break
			}
		}
	}
	return frames
}
