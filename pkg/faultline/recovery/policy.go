// policy.go implements the default status and variant policy table.

package recovery

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/strongdm/faultline/pkg/faultline/fault"
)

// Retry delays applied by the status table.
const (
	RateLimitRetryMs = 5000
	GatewayRetryMs   = 2000
	ServerRetryMs    = 3000
	NetworkRetryMs   = 2000
)

// Decide applies the policy table to v without logging. Variants are checked
// most specific first. A network fault's own retry fields take precedence
// over any status it is wrapped with.
func Decide(v any, catalog *Catalog) Decision {
	if catalog == nil {
		catalog = NewCatalog()
	}

	if nf, ok := fault.As[*fault.NetworkFault](v); ok {
		return networkFaultDecision(nf, catalog)
	}
	if sc, ok := fault.As[fault.StatusCoder](v); ok {
		return statusDecision(sc.HTTPStatus(), codeOf(v), catalog)
	}
	if fe, ok := fault.As[fault.FieldErrorer](v); ok {
		return validationDecision(fe, catalog)
	}
	if fault.IsNetworkError(v) {
		return networkErrorDecision(v, catalog)
	}
	if af, ok := fault.As[*fault.AuthFault](v); ok {
		return authDecision(af, catalog)
	}
	if f, ok := fault.As[fault.Fault](v); ok {
		switch f.Kind() {
		case fault.KindPermission, fault.KindNotFound, fault.KindRateLimit:
			return statusDecision(f.Envelope().StatusCode, f.Envelope().Code, catalog)
		}
	}
	return genericDecision(v, catalog)
}

func statusDecision(status int, code string, catalog *Catalog) Decision {
	d := Decision{
		Handled: true,
		Context: map[string]any{"statusCode": status},
	}
	switch {
	case status == http.StatusUnauthorized:
		d.Action = ActionRedirect
		d.RedirectToLogin = true
		d.UserMessage = message(catalog, code, "AUTH_001")
	case status == http.StatusForbidden:
		d.Action = ActionContactSupport
		d.UserMessage = message(catalog, code, "AUTH_003")
	case status == http.StatusNotFound:
		d.Action = ActionNone
		d.UserMessage = message(catalog, code, "RESOURCE_404")
	case status == http.StatusTooManyRequests:
		d.Action = ActionRetry
		d.RetryDelayMs = RateLimitRetryMs
		d.UserMessage = message(catalog, code, "RATE_001")
	case status == http.StatusBadGateway, status == http.StatusServiceUnavailable, status == http.StatusGatewayTimeout:
		d.Action = ActionRetry
		d.RetryDelayMs = GatewayRetryMs
		d.UserMessage = message(catalog, code, "SERVER_001")
	case status >= 500:
		d.Action = ActionRetry
		d.RetryDelayMs = ServerRetryMs
		d.UserMessage = message(catalog, code, "SERVER_001")
	default:
		d.Action = ActionNone
		d.UserMessage = message(catalog, code, DefaultCode)
	}
	if code != "" {
		d.Context["code"] = code
	}
	return d
}

func validationDecision(fe fault.FieldErrorer, catalog *Catalog) Decision {
	fields := fe.ValidationErrors()
	n := 0
	for _, msgs := range fields {
		n += len(msgs)
	}
	noun := "validation errors"
	if n == 1 {
		noun = "validation error"
	}
	return Decision{
		Handled:     true,
		Action:      ActionNone,
		UserMessage: fmt.Sprintf("%s (%d %s)", catalog.Message("VALIDATION_001"), n, noun),
		Context: map[string]any{
			"statusCode":  http.StatusBadRequest,
			"errorCount":  n,
			"fieldErrors": fields,
		},
	}
}

func networkFaultDecision(nf *fault.NetworkFault, catalog *Catalog) Decision {
	d := Decision{
		Handled:     true,
		UserMessage: catalog.Message("NET_001"),
		Context: map[string]any{
			"retryCount": nf.RetryCount,
			"maxRetries": nf.MaxRetries,
		},
	}
	if nf.CanRetry() {
		d.Action = ActionRetry
		d.RetryDelayMs = int(nf.RetryDelay.Milliseconds())
	} else {
		d.Action = ActionContactSupport
	}
	return d
}

// networkErrorDecision handles transport errors that carry no retry policy
// of their own.
func networkErrorDecision(v any, catalog *Catalog) Decision {
	code := "NET_001"
	var ne net.Error
	if err, ok := v.(error); ok && errors.As(err, &ne) && ne.Timeout() {
		code = "NET_002"
	}
	return Decision{
		Handled:      true,
		Action:       ActionRetry,
		RetryDelayMs: NetworkRetryMs,
		UserMessage:  catalog.Message(code),
		Context:      map[string]any{"code": code},
	}
}

func authDecision(af *fault.AuthFault, catalog *Catalog) Decision {
	d := Decision{
		Handled:         true,
		Action:          ActionNone,
		RedirectToLogin: af.ShouldRedirectToLogin,
		UserMessage:     message(catalog, af.Code, "AUTH_001"),
		Context: map[string]any{
			"authAction": string(af.Action),
			"code":       af.Code,
		},
	}
	if af.ShouldRedirectToLogin {
		d.Action = ActionRedirect
	}
	return d
}

func genericDecision(v any, catalog *Catalog) Decision {
	d := Decision{
		Handled:     false,
		Action:      ActionContactSupport,
		UserMessage: catalog.Message(DefaultCode),
	}
	if f, ok := fault.As[fault.Fault](v); ok {
		d.Handled = true
		d.UserMessage = message(catalog, f.Envelope().Code, DefaultCode)
		d.Context = map[string]any{"code": f.Envelope().Code}
	}
	return d
}

// message prefers the catalog entry for code, then for fallback.
func message(catalog *Catalog, code, fallback string) string {
	if code != "" {
		if msg, ok := catalog.Lookup(code); ok {
			return msg
		}
	}
	return catalog.Message(fallback)
}

func codeOf(v any) string {
	if f, ok := fault.As[fault.Fault](v); ok {
		return f.Envelope().Code
	}
	return ""
}
