// Package cxdb provides a sink that persists reports to cxdb as SystemMessage items.
package cxdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	cxdbclient "github.com/strongdm/ai-cxdb/clients/go"
	cxdtypes "github.com/strongdm/ai-cxdb/clients/go/types"

	"github.com/strongdm/faultline/pkg/faultline/telemetry"
)

// CXDBClient is the minimal interface for cxdb client operations.
// The real *cxdb.Client satisfies this interface.
type CXDBClient interface {
	CreateContext(ctx context.Context, baseTurnID uint64) (*cxdbclient.ContextHead, error)
	AppendTurn(ctx context.Context, req *cxdbclient.AppendRequest) (*cxdbclient.AppendResult, error)
}

// CXDBSinkOption configures the CXDB sink.
type CXDBSinkOption func(*cxdbSinkConfig)

type cxdbSinkConfig struct {
	orphanLabels []string
	clientTag    string
	closeClient  bool
}

// WithOrphanLabels sets labels for orphan report contexts.
func WithOrphanLabels(labels []string) CXDBSinkOption {
	return func(c *cxdbSinkConfig) {
		c.orphanLabels = labels
	}
}

// WithClientTag sets the client tag for orphan contexts.
func WithClientTag(tag string) CXDBSinkOption {
	return func(c *cxdbSinkConfig) {
		c.clientTag = tag
	}
}

// WithCloseClient makes Close also close the client when it implements io.Closer.
func WithCloseClient() CXDBSinkOption {
	return func(c *cxdbSinkConfig) {
		c.closeClient = true
	}
}

type cxdbSink struct {
	client       CXDBClient
	orphanLabels []string
	clientTag    string
	closeClient  bool
}

// NewCXDBSink creates a sink that writes to cxdb. Payloads carrying a
// context ID are appended to that context; others get a new orphan context.
func NewCXDBSink(client CXDBClient, opts ...CXDBSinkOption) telemetry.Sink {
	cfg := &cxdbSinkConfig{
		orphanLabels: []string{"error", "unlinked"},
		clientTag:    "faultline",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &cxdbSink{
		client:       client,
		orphanLabels: cfg.orphanLabels,
		clientTag:    cfg.clientTag,
		closeClient:  cfg.closeClient,
	}
}

// Dial connects to a cxdb server and returns a sink that owns the connection.
func Dial(addr string, opts ...CXDBSinkOption) (telemetry.Sink, error) {
	client, err := cxdbclient.Dial(addr, cxdbclient.WithClientTag("faultline"))
	if err != nil {
		return nil, fmt.Errorf("dial cxdb %s: %w", addr, err)
	}
	return NewCXDBSink(client, append(opts, WithCloseClient())...), nil
}

func (s *cxdbSink) Write(ctx context.Context, payload telemetry.Payload) error {
	var contextID uint64
	isOrphan := false

	if payload.ContextID != nil {
		contextID = *payload.ContextID
	} else {
		head, err := s.client.CreateContext(ctx, 0)
		if err != nil {
			return fmt.Errorf("create orphan context: %w", err)
		}
		contextID = head.ContextID
		isOrphan = true
	}

	item := s.buildConversationItem(payload, isOrphan)

	encoded, err := cxdbclient.EncodeMsgpack(item)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req := &cxdbclient.AppendRequest{
		ContextID:      contextID,
		ParentTurnID:   0,
		TypeID:         cxdtypes.TypeIDConversationItem,
		TypeVersion:    cxdtypes.TypeVersionConversationItem,
		Payload:        encoded,
		IdempotencyKey: payload.EventID,
	}

	if _, err := s.client.AppendTurn(ctx, req); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// buildConversationItem creates a canonical ConversationItem from a Payload.
func (s *cxdbSink) buildConversationItem(payload telemetry.Payload, isOrphan bool) *cxdtypes.ConversationItem {
	// Title: "LEVEL: truncated message"
	msg := payload.Message
	const maxMsgLen = 80
	if len(msg) > maxMsgLen {
		msg = msg[:maxMsgLen] + "..."
	}
	title := payload.Level.String() + ": " + msg
	if len(title) > 100 {
		title = title[:97] + "..."
	}

	item := &cxdtypes.ConversationItem{
		ItemType:  cxdtypes.ItemTypeSystem,
		Status:    cxdtypes.ItemStatusComplete,
		Timestamp: payload.Timestamp.UnixMilli(),
		ID:        payload.EventID,
		System: &cxdtypes.SystemMessage{
			Kind:    cxdtypes.SystemKindError,
			Title:   title,
			Content: buildDetails(payload),
		},
	}

	// cxdb expects context metadata on the first turn of a new context.
	if isOrphan {
		item.ContextMetadata = &cxdtypes.ContextMetadata{
			Labels:    s.orphanLabels,
			ClientTag: s.clientTag,
		}
	}
	return item
}

// buildDetails encodes the full payload as JSON for SystemMessage.Content.
func buildDetails(payload telemetry.Payload) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(`{"event_id":%q,"error":"failed to encode details: %s"}`, payload.EventID, err)
	}
	return string(data)
}

// Flush is a no-op for the cxdb sink (writes are synchronous).
func (s *cxdbSink) Flush(ctx context.Context) error {
	return nil
}

func (s *cxdbSink) Close() error {
	if !s.closeClient {
		return nil
	}
	if c, ok := s.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
