package redisstream

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strongdm/faultline/pkg/faultline"
	"github.com/strongdm/faultline/pkg/faultline/telemetry"
)

// mockStreamClient records XAdd calls.
type mockStreamClient struct {
	mu     sync.Mutex
	calls  []*redis.XAddArgs
	err    error
	closed bool
}

func (m *mockStreamClient) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, a)
	if m.err != nil {
		return redis.NewStringResult("", m.err)
	}
	return redis.NewStringResult("1700000000000-0", nil)
}

func (m *mockStreamClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockStreamClient) getCalls() []*redis.XAddArgs {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*redis.XAddArgs, len(m.calls))
	copy(result, m.calls)
	return result
}

func TestRedisStreamSink_ImplementsSinkInterface(t *testing.T) {
	var _ telemetry.Sink = NewRedisStreamSink(&mockStreamClient{})
}

func TestRedisStreamSink_Write_AddsCappedEntry(t *testing.T) {
	client := &mockStreamClient{}
	sink := NewRedisStreamSink(client, WithStream("admin:errors"), WithMaxLen(500))

	err := sink.Write(context.Background(), telemetry.Payload{
		EventID:     "evt-1",
		Message:     "Role update failed",
		Level:       faultline.SeverityError,
		Fingerprint: "fp-1",
	})
	require.NoError(t, err)

	calls := client.getCalls()
	require.Len(t, calls, 1)
	args := calls[0]
	assert.Equal(t, "admin:errors", args.Stream)
	assert.Equal(t, int64(500), args.MaxLen)
	assert.True(t, args.Approx)

	values := args.Values.(map[string]any)
	assert.Equal(t, "evt-1", values["event_id"])
	assert.Equal(t, "ERROR", values["level"])
	assert.Equal(t, "fp-1", values["fingerprint"])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(values["payload"].(string)), &decoded))
	assert.Equal(t, "Role update failed", decoded["message"])
	assert.Equal(t, "ERROR", decoded["level"])
}

func TestRedisStreamSink_Defaults(t *testing.T) {
	client := &mockStreamClient{}
	sink := NewRedisStreamSink(client)

	require.NoError(t, sink.Write(context.Background(), telemetry.Payload{}))
	args := client.getCalls()[0]
	assert.Equal(t, DefaultStream, args.Stream)
	assert.Equal(t, int64(DefaultMaxLen), args.MaxLen)
}

func TestRedisStreamSink_MaxLenZeroDisablesTrimming(t *testing.T) {
	client := &mockStreamClient{}
	sink := NewRedisStreamSink(client, WithMaxLen(0))

	require.NoError(t, sink.Write(context.Background(), telemetry.Payload{}))
	args := client.getCalls()[0]
	assert.Zero(t, args.MaxLen)
	assert.False(t, args.Approx)
}

func TestRedisStreamSink_Write_WrapsError(t *testing.T) {
	cause := errors.New("READONLY")
	sink := NewRedisStreamSink(&mockStreamClient{err: cause})

	err := sink.Write(context.Background(), telemetry.Payload{})
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "xadd failed")
}

func TestRedisStreamSink_Close(t *testing.T) {
	client := &mockStreamClient{}
	require.NoError(t, NewRedisStreamSink(client).Close())
	assert.False(t, client.closed)

	require.NoError(t, NewRedisStreamSink(client, WithCloseClient()).Close())
	assert.True(t, client.closed)
}

func TestDial_InvalidURL(t *testing.T) {
	_, err := Dial("not-a-redis-url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse redis URL")
}
