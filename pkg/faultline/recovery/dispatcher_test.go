package recovery

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strongdm/faultline/pkg/faultline"
	"github.com/strongdm/faultline/pkg/faultline/fault"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *faultline.Logger) {
	t.Helper()
	logger := newTestLogger()
	r := NewRegistry(WithRegistryLogger(logger))
	RegisterBuiltins(r)
	return NewDispatcher(WithRegistry(r), WithLogger(logger)), logger
}

func TestDispatcher_EndToEnd(t *testing.T) {
	d, _ := newTestDispatcher(t)

	unauthorized := d.Resolve(fault.NewAPIFault(401, http.MethodGet, "/api/me", nil, 0))
	assert.Equal(t, ActionRedirect, unauthorized.Action)
	assert.True(t, unauthorized.RedirectToLogin)

	unavailable := d.Resolve(fault.NewAPIFault(503, http.MethodGet, "/api/users", nil, 0))
	assert.Equal(t, ActionRetry, unavailable.Action)
	assert.Equal(t, 2000, unavailable.RetryDelayMs)

	invalid := d.Resolve(fault.NewValidationFault("", map[string][]string{
		"email": {"required"},
		"name":  {"too short"},
	}, nil))
	assert.Contains(t, invalid.UserMessage, "2 validation errors")
	assert.Equal(t, ActionNone, invalid.Action)
}

func TestDispatcher_StatusTable(t *testing.T) {
	tests := []struct {
		status   int
		action   Action
		delayMs  int
		redirect bool
	}{
		{401, ActionRedirect, 0, true},
		{403, ActionContactSupport, 0, false},
		{404, ActionNone, 0, false},
		{429, ActionRetry, 5000, false},
		{500, ActionRetry, 3000, false},
		{502, ActionRetry, 2000, false},
		{503, ActionRetry, 2000, false},
		{504, ActionRetry, 2000, false},
		{507, ActionRetry, 3000, false},
		{409, ActionNone, 0, false},
	}
	d, _ := newTestDispatcher(t)
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			got := d.Resolve(fault.NewAPIFault(tt.status, http.MethodPost, "/api/roles", nil, 0))
			assert.True(t, got.Handled)
			assert.Equal(t, tt.action, got.Action)
			assert.Equal(t, tt.delayMs, got.RetryDelayMs)
			assert.Equal(t, tt.redirect, got.RedirectToLogin)
			assert.NotEmpty(t, got.UserMessage)
		})
	}
}

func TestDispatcher_UserMessagesComeFromCatalog(t *testing.T) {
	catalog := NewCatalog()
	catalog.Set("RATE_001", "Slow down.")
	logger := newTestLogger()
	r := NewRegistry(WithRegistryLogger(logger))
	for _, s := range Builtins(catalog) {
		require.NoError(t, r.Register(s))
	}
	d := NewDispatcher(WithRegistry(r), WithCatalog(catalog), WithLogger(logger))

	assert.Equal(t, "Slow down.", d.Resolve(fault.NewAPIFault(429, http.MethodGet, "/x", nil, 0)).UserMessage)
	assert.Equal(t, "Slow down.", d.Resolve(fault.NewRateLimitFault(10, 11, time.Now())).UserMessage)
	assert.Equal(t, catalog.Message("USER_001"), d.Resolve(fault.NewNotFoundFault("user", "7")).UserMessage)
}

func TestDispatcher_RegisteredBuiltinsUseDispatcherCatalog(t *testing.T) {
	catalog := NewCatalog()
	require.NoError(t, catalog.LoadYAML([]byte("RATE_001: Easy there.\nDEFAULT: custom default\n")))
	logger := newTestLogger()
	r := NewRegistry(WithRegistryLogger(logger))
	RegisterBuiltins(r)
	d := NewDispatcher(WithRegistry(r), WithCatalog(catalog), WithLogger(logger))

	assert.Equal(t, "Easy there.", d.Resolve(fault.NewAPIFault(429, http.MethodGet, "/x", nil, 0)).UserMessage)
	assert.Equal(t, "custom default", d.Resolve("boom").UserMessage)
	assert.Equal(t, "custom default", d.Resolve(errors.New("boom")).UserMessage)

	logs := logger.Logs()
	require.NotEmpty(t, logs)
	assert.Equal(t, StrategyAPI, logs[0].Metadata["strategy"])
}

func TestDispatcher_DefaultRegistryUsesDispatcherCatalog(t *testing.T) {
	catalog := NewCatalog()
	catalog.Set("SERVER_001", "The upstream is slow today.")
	d := NewDispatcher(WithRegistry(DefaultRegistry()), WithCatalog(catalog), WithLogger(newTestLogger()))

	got := d.Resolve(fault.NewAPIFault(503, http.MethodGet, "/x", nil, 0))
	assert.Equal(t, ActionRetry, got.Action)
	assert.Equal(t, "The upstream is slow today.", got.UserMessage)
}

func TestDispatcher_NetworkFaultOwnPolicy(t *testing.T) {
	d, _ := newTestDispatcher(t)

	retry := d.Resolve(fault.NewNetworkFault(nil, 1, 3, true, 1500*time.Millisecond))
	assert.Equal(t, ActionRetry, retry.Action)
	assert.Equal(t, 1500, retry.RetryDelayMs)

	exhausted := d.Resolve(fault.NewNetworkFault(nil, 3, 3, true, time.Second))
	assert.Equal(t, ActionContactSupport, exhausted.Action)
	assert.Zero(t, exhausted.RetryDelayMs)
}

func TestDispatcher_NetworkFaultBeatsWrappingStatus(t *testing.T) {
	d, _ := newTestDispatcher(t)

	api := fault.NewAPIFault(503, http.MethodGet, "/api/users", nil, 0)
	api.Cause = fault.NewNetworkFault(nil, 0, 3, false, time.Second)

	got := d.Resolve(api)
	assert.Equal(t, ActionContactSupport, got.Action)
}

func TestDispatcher_PlainNetworkErrors(t *testing.T) {
	d, _ := newTestDispatcher(t)

	got := d.Resolve(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")})
	assert.Equal(t, ActionRetry, got.Action)
	assert.Equal(t, NetworkRetryMs, got.RetryDelayMs)
	assert.Equal(t, "NET_001", got.Context["code"])
}

func TestDispatcher_AuthFault(t *testing.T) {
	d, _ := newTestDispatcher(t)

	redirect := d.Resolve(fault.NewAuthFault(fault.AuthRefresh, "", true))
	assert.Equal(t, ActionRedirect, redirect.Action)
	assert.True(t, redirect.RedirectToLogin)
	assert.Equal(t, d.Catalog().Message("AUTH_002"), redirect.UserMessage)

	stay := d.Resolve(fault.NewAuthFault(fault.AuthVerify, "", false))
	assert.Equal(t, ActionNone, stay.Action)
	assert.False(t, stay.RedirectToLogin)
}

func TestDispatcher_GenericAndUnrecognized(t *testing.T) {
	d, _ := newTestDispatcher(t)

	for _, v := range []any{errors.New("plain"), "just a string", 42, nil, map[string]any{"message": "odd"}} {
		got := d.Resolve(v)
		assert.Equal(t, ActionContactSupport, got.Action, "%#v", v)
		assert.False(t, got.Handled, "%#v", v)
		assert.Equal(t, d.Catalog().Message(DefaultCode), got.UserMessage)
	}

	typed := d.Resolve(fault.New("SERVER_001", "boom"))
	assert.Equal(t, ActionContactSupport, typed.Action)
	assert.True(t, typed.Handled)
}

func TestDispatcher_PanicYieldsReloadDecision(t *testing.T) {
	logger := newTestLogger()
	r := NewRegistry(WithRegistryLogger(logger))
	require.NoError(t, r.Register(Strategy{
		Name:      "exploding",
		Priority:  1000,
		Predicate: func(any) bool { return true },
		Handle:    func(any) Decision { panic("handler bug") },
	}))
	d := NewDispatcher(WithRegistry(r), WithLogger(logger))

	var got Decision
	require.NotPanics(t, func() { got = d.Resolve(errors.New("boom")) })
	assert.Equal(t, Decision{Handled: false, UserMessage: "critical error, reload", Action: ActionReload}, got)
	assert.Equal(t, 1, countLevel(logger, faultline.SeverityFatal))
}

func TestDispatcher_LogsEpisode(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Resolve(fault.NewAPIFault(404, http.MethodGet, "/api/users/9", nil, 25*time.Millisecond))
	d.Resolve(fault.NewAPIFault(500, http.MethodDelete, "/api/roles/2", nil, 0))
	d.Resolve(errors.New("unclassified"))

	logs := logger.Logs()
	require.Len(t, logs, 3)

	assert.Equal(t, faultline.SeverityWarn, logs[0].Level)
	assert.Equal(t, http.MethodGet, logs[0].Metadata["method"])
	assert.Equal(t, "/api/users/9", logs[0].Metadata["url"])
	assert.Equal(t, 404, logs[0].Metadata["statusCode"])
	assert.Equal(t, int64(25), logs[0].Metadata["duration_ms"])
	assert.Equal(t, StrategyAPI, logs[0].Metadata["strategy"])

	assert.Equal(t, faultline.SeverityError, logs[1].Level)
	assert.Equal(t, faultline.SeverityError, logs[2].Level)
}

func TestDispatcher_StrategyWithoutHandlerUsesPolicy(t *testing.T) {
	logger := newTestLogger()
	r := NewRegistry(WithRegistryLogger(logger))
	require.NoError(t, r.Register(Strategy{Name: "observe", Priority: 1, Predicate: func(any) bool { return true }}))
	d := NewDispatcher(WithRegistry(r), WithLogger(logger))

	got := d.Resolve(fault.NewAPIFault(429, http.MethodGet, "/x", nil, 0))
	assert.Equal(t, ActionRetry, got.Action)
	assert.Equal(t, 5000, got.RetryDelayMs)
}

func TestDecision_RetryDelay(t *testing.T) {
	assert.Equal(t, 2*time.Second, Decision{RetryDelayMs: 2000}.RetryDelay())
}
