package telemetry

import (
	"context"
	"net/http/httptest"
	"testing"
)

func TestRequestInfo_RoundTrip(t *testing.T) {
	ctx := context.Background()
	if _, ok := RequestInfoFromContext(ctx); ok {
		t.Fatal("empty context should carry no request info")
	}

	req := httptest.NewRequest("POST", "http://admin.local/roles?page=2", nil)
	req.Header.Set("User-Agent", "curl/8.0")
	info, ok := RequestInfoFromContext(WithRequest(ctx, req))
	if !ok {
		t.Fatal("request info missing")
	}
	if info.URL != "http://admin.local/roles?page=2" || info.UserAgent != "curl/8.0" {
		t.Errorf("info = %+v", info)
	}

	if WithRequest(ctx, nil) != ctx {
		t.Error("nil request should return ctx unchanged")
	}
}

func TestContextID_ZeroIsSet(t *testing.T) {
	ctx := context.Background()
	if _, ok := ContextIDFromContext(ctx); ok {
		t.Fatal("empty context should carry no context ID")
	}

	id, ok := ContextIDFromContext(WithContextID(ctx, 0))
	if !ok || id != 0 {
		t.Errorf("ContextIDFromContext = %d, %v; want 0, true", id, ok)
	}
}
