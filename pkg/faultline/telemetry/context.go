// context.go propagates request origin and cxdb context IDs through
// context.Context so reports can carry them.

package telemetry

import (
	"context"
	"net/http"
)

type requestKey struct{}
type contextIDKey struct{}

// contextIDSet is used to distinguish "zero value" from "not set"
type contextIDSet struct {
	id uint64
}

// RequestInfo is the origin of the work that produced a report.
type RequestInfo struct {
	URL       string
	UserAgent string
}

// WithRequestInfo returns a context carrying info.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestKey{}, info)
}

// WithRequest returns a context carrying the URL and User-Agent of r.
func WithRequest(ctx context.Context, r *http.Request) context.Context {
	if r == nil {
		return ctx
	}
	info := RequestInfo{UserAgent: r.UserAgent()}
	if r.URL != nil {
		info.URL = r.URL.String()
	}
	return WithRequestInfo(ctx, info)
}

// RequestInfoFromContext extracts the request origin. Returns false if unset.
func RequestInfoFromContext(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(requestKey{}).(RequestInfo)
	return info, ok
}

// WithContextID returns a context with the cxdb context ID attached so the
// cxdb sink appends to it instead of creating an orphan context.
func WithContextID(ctx context.Context, contextID uint64) context.Context {
	return context.WithValue(ctx, contextIDKey{}, contextIDSet{id: contextID})
}

// ContextIDFromContext extracts the cxdb context ID. Returns 0 and false if not set.
func ContextIDFromContext(ctx context.Context) (uint64, bool) {
	set, ok := ctx.Value(contextIDKey{}).(contextIDSet)
	if !ok {
		return 0, false
	}
	return set.id, true
}
