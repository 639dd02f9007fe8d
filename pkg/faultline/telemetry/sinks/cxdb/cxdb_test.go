package cxdb

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	cxdbclient "github.com/strongdm/ai-cxdb/clients/go"
	cxdtypes "github.com/strongdm/ai-cxdb/clients/go/types"

	"github.com/strongdm/faultline/pkg/faultline"
	"github.com/strongdm/faultline/pkg/faultline/telemetry"
)

// mockCXDBClient is a test double for the cxdb client.
type mockCXDBClient struct {
	mu             sync.Mutex
	createContexts []uint64 // baseTurnIDs passed to CreateContext
	appendRequests []*cxdbclient.AppendRequest
	nextContextID  uint64
	createErr      error
	appendErr      error
	closed         bool
}

func (m *mockCXDBClient) CreateContext(ctx context.Context, baseTurnID uint64) (*cxdbclient.ContextHead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.createContexts = append(m.createContexts, baseTurnID)
	m.nextContextID++
	return &cxdbclient.ContextHead{ContextID: m.nextContextID}, nil
}

func (m *mockCXDBClient) AppendTurn(ctx context.Context, req *cxdbclient.AppendRequest) (*cxdbclient.AppendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return nil, m.appendErr
	}
	m.appendRequests = append(m.appendRequests, req)
	return &cxdbclient.AppendResult{ContextID: req.ContextID, TurnID: 1, Depth: 1}, nil
}

func (m *mockCXDBClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockCXDBClient) getAppendRequests() []*cxdbclient.AppendRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*cxdbclient.AppendRequest, len(m.appendRequests))
	copy(result, m.appendRequests)
	return result
}

func (m *mockCXDBClient) getCreateContextCalls() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]uint64, len(m.createContexts))
	copy(result, m.createContexts)
	return result
}

func decodeConversationItem(t *testing.T, payload []byte) cxdtypes.ConversationItem {
	t.Helper()
	var item cxdtypes.ConversationItem
	if err := cxdbclient.DecodeMsgpackInto(payload, &item); err != nil {
		t.Fatalf("DecodeMsgpackInto failed: %v", err)
	}
	return item
}

func decodeDetailsJSON(t *testing.T, content string) map[string]any {
	t.Helper()
	var details map[string]any
	if err := json.Unmarshal([]byte(content), &details); err != nil {
		t.Fatalf("details JSON unmarshal failed: %v", err)
	}
	return details
}

func TestCXDBSink_ImplementsSinkInterface(t *testing.T) {
	var _ telemetry.Sink = NewCXDBSink(&mockCXDBClient{})
}

func TestCXDBSink_Write_WithContextID_AppendsTurn(t *testing.T) {
	client := &mockCXDBClient{}
	sink := NewCXDBSink(client)

	contextID := uint64(12345)
	payload := telemetry.Payload{
		EventID:   "evt-123",
		Timestamp: time.Date(2026, 1, 26, 12, 0, 0, 0, time.UTC),
		Level:     faultline.SeverityError,
		Message:   "role update failed",
		ContextID: &contextID,
	}

	if err := sink.Write(context.Background(), payload); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	if calls := client.getCreateContextCalls(); len(calls) != 0 {
		t.Errorf("should not create context when ContextID is set, got %d calls", len(calls))
	}

	reqs := client.getAppendRequests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 append request, got %d", len(reqs))
	}
	req := reqs[0]
	if req.ContextID != 12345 {
		t.Errorf("ContextID = %d, want 12345", req.ContextID)
	}
	if req.TypeID != cxdtypes.TypeIDConversationItem {
		t.Errorf("TypeID = %q, want %q", req.TypeID, cxdtypes.TypeIDConversationItem)
	}
	if req.IdempotencyKey != "evt-123" {
		t.Errorf("IdempotencyKey = %q, want evt-123", req.IdempotencyKey)
	}
}

func TestCXDBSink_Write_WithoutContextID_CreatesOrphan(t *testing.T) {
	client := &mockCXDBClient{}
	sink := NewCXDBSink(client, WithOrphanLabels([]string{"error", "admin"}), WithClientTag("admin-ui"))

	if err := sink.Write(context.Background(), telemetry.Payload{EventID: "evt-1", Message: "boom"}); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	calls := client.getCreateContextCalls()
	if len(calls) != 1 || calls[0] != 0 {
		t.Fatalf("CreateContext calls = %v, want [0]", calls)
	}

	item := decodeConversationItem(t, client.getAppendRequests()[0].Payload)
	if item.ContextMetadata == nil {
		t.Fatal("ContextMetadata should be set for orphan contexts")
	}
	if item.ContextMetadata.ClientTag != "admin-ui" {
		t.Errorf("ClientTag = %q", item.ContextMetadata.ClientTag)
	}
	if len(item.ContextMetadata.Labels) != 2 || item.ContextMetadata.Labels[1] != "admin" {
		t.Errorf("Labels = %v", item.ContextMetadata.Labels)
	}
}

func TestCXDBSink_Write_ConversationItemFormat(t *testing.T) {
	client := &mockCXDBClient{}
	sink := NewCXDBSink(client)

	contextID := uint64(99)
	payload := telemetry.Payload{
		EventID:     "evt-456",
		Timestamp:   time.Date(2026, 1, 26, 12, 0, 0, 0, time.UTC),
		Fingerprint: "fp123",
		Level:       faultline.SeverityFatal,
		Message:     strings.Repeat("m", 120),
		Error:       &telemetry.ErrorInfo{Message: "boom", Name: "fault.APIFault", Code: "SERVER_001"},
		Tags:        map[string]string{"component": "roles"},
		ContextID:   &contextID,
	}

	if err := sink.Write(context.Background(), payload); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	item := decodeConversationItem(t, client.getAppendRequests()[0].Payload)
	if item.ItemType != cxdtypes.ItemTypeSystem {
		t.Errorf("ItemType = %q", item.ItemType)
	}
	if item.Status != cxdtypes.ItemStatusComplete {
		t.Errorf("Status = %q", item.Status)
	}
	if item.ID != "evt-456" || item.Timestamp != payload.Timestamp.UnixMilli() {
		t.Errorf("ID/Timestamp = %q/%d", item.ID, item.Timestamp)
	}
	if item.System == nil || item.System.Kind != cxdtypes.SystemKindError {
		t.Fatalf("System = %+v", item.System)
	}
	if !strings.HasPrefix(item.System.Title, "FATAL: mmm") || len(item.System.Title) > 100 {
		t.Errorf("Title = %q", item.System.Title)
	}
	if item.ContextMetadata != nil {
		t.Error("ContextMetadata should be nil for non-orphan contexts")
	}

	details := decodeDetailsJSON(t, item.System.Content)
	if details["event_id"] != "evt-456" || details["fingerprint"] != "fp123" || details["level"] != "FATAL" {
		t.Errorf("details = %v", details)
	}
	errInfo, _ := details["error"].(map[string]any)
	if errInfo["code"] != "SERVER_001" {
		t.Errorf("error details = %v", errInfo)
	}
}

func TestCXDBSink_Write_PropagatesClientErrors(t *testing.T) {
	sink := NewCXDBSink(&mockCXDBClient{createErr: errors.New("unavailable")})
	if err := sink.Write(context.Background(), telemetry.Payload{}); err == nil || !strings.Contains(err.Error(), "create orphan context") {
		t.Errorf("err = %v", err)
	}

	id := uint64(1)
	sink = NewCXDBSink(&mockCXDBClient{appendErr: errors.New("full")})
	if err := sink.Write(context.Background(), telemetry.Payload{ContextID: &id}); err == nil || !strings.Contains(err.Error(), "append turn") {
		t.Errorf("err = %v", err)
	}
}

func TestCXDBSink_FlushAndClose(t *testing.T) {
	client := &mockCXDBClient{}
	if err := NewCXDBSink(client).Flush(context.Background()); err != nil {
		t.Errorf("Flush returned error: %v", err)
	}
	if err := NewCXDBSink(client).Close(); err != nil || client.closed {
		t.Errorf("Close without WithCloseClient must leave the client open")
	}
	if err := NewCXDBSink(client, WithCloseClient()).Close(); err != nil || !client.closed {
		t.Errorf("Close with WithCloseClient should close the client")
	}
}

func TestE2E_ReporterToCXDB_Scrubbed(t *testing.T) {
	client := &mockCXDBClient{}
	reporter := telemetry.NewReporter(
		telemetry.WithSink(NewCXDBSink(client)),
		telemetry.WithLogger(faultline.New()),
		telemetry.WithEnvironment("production"),
	)
	reporter.Initialize()

	ctx := telemetry.WithContextID(context.Background(), 7)
	reporter.Report(ctx, telemetry.Report{
		Message: "sync failed api_key=sk-abcdefghijklmnopqrstuvwxyz",
		Level:   faultline.SeverityError,
		Err:     errors.New("upstream 502"),
		Context: map[string]any{"password": "hunter2"},
	})

	reqs := client.getAppendRequests()
	if len(reqs) != 1 || reqs[0].ContextID != 7 {
		t.Fatalf("append requests = %v", reqs)
	}
	item := decodeConversationItem(t, reqs[0].Payload)
	if strings.Contains(item.System.Content, "sk-abcdefghijklmnopqrstuvwxyz") || strings.Contains(item.System.Content, "hunter2") {
		t.Errorf("secrets leaked into cxdb: %s", item.System.Content)
	}
	details := decodeDetailsJSON(t, item.System.Content)
	if details["environment"] != "production" {
		t.Errorf("environment = %v", details["environment"])
	}
}
