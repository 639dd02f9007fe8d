package faultline

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologConsole_RoutesStreamsAndAttachesObjects(t *testing.T) {
	var errBuf, warnBuf, infoBuf bytes.Buffer
	console := NewZerologConsole(WithStreams(&errBuf, &warnBuf, &infoBuf))
	logger := New(WithConsole(console))

	logger.SetContext(Fields{"user": "bob"})
	logger.Error("db down", errors.New("dial tcp: refused"), Fields{"attempt": 3})
	logger.Warn("slow", nil, nil)
	logger.Info("ok", nil, nil)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(errBuf.Bytes()), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "db down", line["message"])
	assert.Equal(t, "dial tcp: refused", line["error"])

	ctx, ok := line["context"].(map[string]any)
	require.True(t, ok, "context should be a nested object")
	assert.Equal(t, "bob", ctx["user"])

	meta, ok := line["metadata"].(map[string]any)
	require.True(t, ok, "metadata should be a nested object")
	assert.EqualValues(t, 3, meta["attempt"])

	assert.Contains(t, warnBuf.String(), `"message":"slow"`)
	assert.Contains(t, infoBuf.String(), `"message":"ok"`)
}

func TestZerologConsole_FatalDoesNotExit(t *testing.T) {
	var buf bytes.Buffer
	console := NewZerologConsole(WithStreams(&buf, nil, nil))
	console.Error(Entry{Level: SeverityFatal, Message: "fatal but alive", Timestamp: time.Now()})
	assert.Contains(t, buf.String(), `"level":"fatal"`)
}

func TestZerologConsole_Pretty(t *testing.T) {
	var buf bytes.Buffer
	console := NewZerologConsole(WithStreams(nil, nil, &buf), WithPretty())
	console.Info(Entry{Level: SeverityInfo, Message: "human readable", Timestamp: time.Now()})
	assert.Contains(t, buf.String(), "human readable")
	assert.NotContains(t, buf.String(), `"message"`)
}
