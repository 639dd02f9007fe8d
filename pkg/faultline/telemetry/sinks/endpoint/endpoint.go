// endpoint.go POSTs each payload as a JSON envelope to a custom HTTP endpoint.

package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/strongdm/faultline/pkg/faultline/telemetry"
)

const defaultTimeout = 4 * time.Second

// EndpointSinkOption configures an endpoint sink.
type EndpointSinkOption func(*endpointSink)

// WithTimeout sets the HTTP client timeout. Default: 4s.
func WithTimeout(d time.Duration) EndpointSinkOption {
	return func(s *endpointSink) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

// WithHeaders sets custom HTTP headers sent with every POST.
func WithHeaders(h map[string]string) EndpointSinkOption {
	return func(s *endpointSink) {
		s.headers = h
	}
}

// WithHTTPClient replaces the HTTP client. A zero Timeout on it is left as is.
func WithHTTPClient(c *http.Client) EndpointSinkOption {
	return func(s *endpointSink) {
		if c != nil {
			s.client = c
		}
	}
}

type endpointSink struct {
	url     string
	client  *http.Client
	headers map[string]string
}

// envelope is the wire body. It carries the fields every endpoint expects
// plus the enrichment the reporter adds.
type envelope struct {
	Message     string                 `json:"message"`
	Level       string                 `json:"level"`
	Error       *envelopeError         `json:"error,omitempty"`
	Context     map[string]any         `json:"context"`
	Tags        map[string]string      `json:"tags"`
	User        *telemetry.User        `json:"user"`
	Timestamp   string                 `json:"timestamp"`
	URL         string                 `json:"url"`
	UserAgent   string                 `json:"userAgent"`
	EventID     string                 `json:"eventId,omitempty"`
	Fingerprint string                 `json:"fingerprint,omitempty"`
	Environment string                 `json:"environment,omitempty"`
	Release     string                 `json:"release,omitempty"`
	System      *telemetry.SystemState `json:"system,omitempty"`
}

type envelopeError struct {
	Message string `json:"message"`
	Stack   string `json:"stack"`
	Name    string `json:"name"`
}

// NewEndpointSink creates a sink that POSTs to url. Delivery is a single
// attempt; a transport failure or non-2xx status is returned to the caller
// and never retried.
func NewEndpointSink(url string, opts ...EndpointSinkOption) telemetry.Sink {
	s := &endpointSink{
		url:    url,
		client: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *endpointSink) Write(ctx context.Context, p telemetry.Payload) error {
	body, err := json.Marshal(toEnvelope(p))
	if err != nil {
		return fmt.Errorf("endpoint: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint: HTTP %d", resp.StatusCode)
	}
	return nil
}

func (s *endpointSink) Flush(ctx context.Context) error {
	return nil
}

func (s *endpointSink) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func toEnvelope(p telemetry.Payload) envelope {
	env := envelope{
		Message:     p.Message,
		Level:       p.Level.String(),
		Context:     p.Context,
		Tags:        p.Tags,
		User:        p.User,
		Timestamp:   p.Timestamp.UTC().Format(time.RFC3339Nano),
		URL:         p.URL,
		UserAgent:   p.UserAgent,
		EventID:     p.EventID,
		Fingerprint: p.Fingerprint,
		Environment: p.Environment,
		Release:     p.Release,
		System:      p.System,
	}
	if env.Context == nil {
		env.Context = map[string]any{}
	}
	if env.Tags == nil {
		env.Tags = map[string]string{}
	}
	if p.Error != nil {
		env.Error = &envelopeError{
			Message: p.Error.Message,
			Stack:   p.Error.Stack,
			Name:    p.Error.Name,
		}
	}
	return env
}
