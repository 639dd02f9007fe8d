package logship

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strongdm/faultline/pkg/faultline"
	"github.com/strongdm/faultline/pkg/faultline/telemetry"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), "line: %s", line)
		lines = append(lines, m)
	}
	return lines
}

func TestLogshipSink_ImplementsSinkInterface(t *testing.T) {
	var _ telemetry.Sink = NewLogshipSink()
}

func TestLogshipSink_WritesOneJSONLinePerPayload(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogshipSink(WithWriter(&buf), WithService("admin"))

	contextID := uint64(9)
	p := telemetry.Payload{
		EventID:     "evt-1",
		Message:     "Role update failed",
		Level:       faultline.SeverityError,
		Error:       &telemetry.ErrorInfo{Message: "conflict", Name: "fault.APIFault", Code: "API_409"},
		Context:     map[string]any{"roleId": "r-1"},
		Tags:        map[string]string{"component": "roles"},
		User:        &telemetry.User{ID: "u-1"},
		Timestamp:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		URL:         "https://admin.example.com/roles",
		Environment: "production",
		Release:     "1.4.0",
		Fingerprint: "fp-1",
		ContextID:   &contextID,
	}
	require.NoError(t, sink.Write(context.Background(), p))
	require.NoError(t, sink.Write(context.Background(), telemetry.Payload{EventID: "evt-2", Message: "second", Level: faultline.SeverityWarn}))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	first := lines[0]
	assert.Equal(t, "error", first["level"])
	assert.Equal(t, "Role update failed", first["message"])
	assert.Equal(t, "admin", first["service"])
	assert.Equal(t, "evt-1", first["event_id"])
	assert.Equal(t, "fp-1", first["fingerprint"])
	assert.Equal(t, "production", first["environment"])
	assert.Equal(t, "https://admin.example.com/roles", first["url"])
	assert.Equal(t, float64(9), first["context_id"])

	errInfo := first["error"].(map[string]any)
	assert.Equal(t, "API_409", errInfo["code"])
	assert.Equal(t, "r-1", first["context"].(map[string]any)["roleId"])
	assert.Equal(t, "roles", first["tags"].(map[string]any)["component"])
	assert.Equal(t, "u-1", first["user"].(map[string]any)["id"])

	assert.Equal(t, "warn", lines[1]["level"])
	assert.NotContains(t, lines[1], "error")
	assert.NotContains(t, lines[1], "user")
}

func TestLogshipSink_FatalDoesNotExit(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogshipSink(WithWriter(&buf))

	require.NoError(t, sink.Write(context.Background(), telemetry.Payload{Message: "boom", Level: faultline.SeverityFatal}))
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "fatal", lines[0]["level"])
}

func TestLogshipSink_ConcurrentWritesStayLineDelimited(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogshipSink(WithWriter(&buf))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sink.Write(context.Background(), telemetry.Payload{Message: "concurrent", Level: faultline.SeverityError})
		}()
	}
	wg.Wait()

	assert.Len(t, decodeLines(t, &buf), 20)
}

func TestLogshipSink_FlushAndClose(t *testing.T) {
	sink := NewLogshipSink(WithWriter(&bytes.Buffer{}))
	assert.NoError(t, sink.Flush(context.Background()))
	assert.NoError(t, sink.Close())
}
