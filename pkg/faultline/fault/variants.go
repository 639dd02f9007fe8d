// variants.go defines the domain fault variants.

package fault

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// APIFault describes a failed HTTP call. Its StatusCode mirrors the
// response status; it is user-facing for 4xx responses only.
type APIFault struct {
	*Base
	ResponseStatus int
	ResponseData   any
	Method         string
	URL            string
	Duration       time.Duration
}

// NewAPIFault creates an APIFault for a response with the given status.
func NewAPIFault(status int, method, url string, data any, duration time.Duration) *APIFault {
	text := http.StatusText(status)
	if text == "" {
		text = "Unexpected response"
	}
	f := &APIFault{
		Base:           newBase(apiCode(status), fmt.Sprintf("%s %s: %d %s", method, url, status, text), status, status >= 400 && status < 500),
		ResponseStatus: status,
		ResponseData:   data,
		Method:         method,
		URL:            url,
		Duration:       duration,
	}
	return f
}

func (f *APIFault) Kind() Kind { return KindAPI }

// HTTPStatus returns the response status.
func (f *APIFault) HTTPStatus() int { return f.ResponseStatus }

func apiCode(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return "AUTH_001"
	case status == http.StatusForbidden:
		return "AUTH_003"
	case status == http.StatusNotFound:
		return "RESOURCE_404"
	case status == http.StatusTooManyRequests:
		return "RATE_001"
	case status >= 500:
		return "SERVER_001"
	default:
		return fmt.Sprintf("API_%d", status)
	}
}

// ValidationFault carries per-field messages. Always HTTP 400, user-facing.
type ValidationFault struct {
	*Base
	FieldErrors   map[string][]string
	InvalidValues map[string]any
}

// NewValidationFault creates a ValidationFault. A nil map is treated as empty.
func NewValidationFault(message string, fieldErrors map[string][]string, invalid map[string]any) *ValidationFault {
	if fieldErrors == nil {
		fieldErrors = map[string][]string{}
	}
	if message == "" {
		message = fmt.Sprintf("validation failed: %s", strings.Join(sortedKeys(fieldErrors), ", "))
	}
	return &ValidationFault{
		Base:          newBase("VALIDATION_001", message, http.StatusBadRequest, true),
		FieldErrors:   fieldErrors,
		InvalidValues: invalid,
	}
}

func (f *ValidationFault) Kind() Kind { return KindValidation }

// ValidationErrors returns the per-field messages.
func (f *ValidationFault) ValidationErrors() map[string][]string { return f.FieldErrors }

// ErrorCount returns the total number of field messages.
func (f *ValidationFault) ErrorCount() int {
	n := 0
	for _, msgs := range f.FieldErrors {
		n += len(msgs)
	}
	return n
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NetworkFault describes a transport failure with its own retry policy.
// Always status 503, user-facing.
type NetworkFault struct {
	*Base
	RetryCount  int
	MaxRetries  int
	ShouldRetry bool
	RetryDelay  time.Duration
}

// NewNetworkFault creates a NetworkFault wrapping cause (which may be nil).
func NewNetworkFault(cause error, retryCount, maxRetries int, shouldRetry bool, retryDelay time.Duration) *NetworkFault {
	f := &NetworkFault{
		Base:        newBase("NET_001", "network request failed", http.StatusServiceUnavailable, true),
		RetryCount:  retryCount,
		MaxRetries:  maxRetries,
		ShouldRetry: shouldRetry,
		RetryDelay:  retryDelay,
	}
	f.Cause = cause
	return f
}

func (f *NetworkFault) Kind() Kind { return KindNetwork }

// CanRetry reports whether the fault's own policy allows another attempt.
func (f *NetworkFault) CanRetry() bool {
	return f.ShouldRetry && f.RetryCount < f.MaxRetries
}

// AuthAction names the authentication step that failed.
type AuthAction string

const (
	AuthLogin    AuthAction = "login"
	AuthLogout   AuthAction = "logout"
	AuthRefresh  AuthAction = "refresh"
	AuthVerify   AuthAction = "verify"
	AuthRegister AuthAction = "register"
)

// Valid reports whether a is one of the five defined actions.
func (a AuthAction) Valid() bool {
	switch a {
	case AuthLogin, AuthLogout, AuthRefresh, AuthVerify, AuthRegister:
		return true
	}
	return false
}

// AuthFault describes an authentication failure. Always 401, user-facing.
type AuthFault struct {
	*Base
	Action                AuthAction
	ShouldRedirectToLogin bool
}

// NewAuthFault creates an AuthFault.
func NewAuthFault(action AuthAction, message string, redirectToLogin bool) *AuthFault {
	if message == "" {
		message = fmt.Sprintf("authentication failed during %s", action)
	}
	return &AuthFault{
		Base:                  newBase(authCode(action), message, http.StatusUnauthorized, true),
		Action:                action,
		ShouldRedirectToLogin: redirectToLogin,
	}
}

func (f *AuthFault) Kind() Kind { return KindAuth }

func authCode(action AuthAction) string {
	switch action {
	case AuthLogin:
		return "AUTH_001"
	case AuthRefresh:
		return "AUTH_002"
	case AuthVerify:
		return "AUTH_004"
	case AuthRegister:
		return "AUTH_005"
	default:
		return "AUTH_001"
	}
}

// PermissionFault describes a missing capability. Always 403, user-facing.
type PermissionFault struct {
	*Base
	RequiredCapability string
	HeldCapabilities   []string
}

// NewPermissionFault creates a PermissionFault.
func NewPermissionFault(required string, held []string) *PermissionFault {
	return &PermissionFault{
		Base:               newBase("AUTH_003", fmt.Sprintf("missing capability %q", required), http.StatusForbidden, true),
		RequiredCapability: required,
		HeldCapabilities:   held,
	}
}

func (f *PermissionFault) Kind() Kind { return KindPermission }

// NotFoundFault describes a missing resource. Always 404, user-facing.
type NotFoundFault struct {
	*Base
	ResourceType string
	ResourceID   string
}

// NewNotFoundFault creates a NotFoundFault.
func NewNotFoundFault(resourceType, resourceID string) *NotFoundFault {
	return &NotFoundFault{
		Base:         newBase(notFoundCode(resourceType), fmt.Sprintf("%s %q not found", resourceType, resourceID), http.StatusNotFound, true),
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

func (f *NotFoundFault) Kind() Kind { return KindNotFound }

func notFoundCode(resourceType string) string {
	switch strings.ToLower(resourceType) {
	case "user":
		return "USER_001"
	case "role":
		return "ROLE_001"
	default:
		return "RESOURCE_404"
	}
}

// RateLimitFault describes a throttled request. Always 429, user-facing.
type RateLimitFault struct {
	*Base
	Limit     int
	Current   int
	ResetTime time.Time
}

// NewRateLimitFault creates a RateLimitFault.
func NewRateLimitFault(limit, current int, reset time.Time) *RateLimitFault {
	return &RateLimitFault{
		Base:      newBase("RATE_001", fmt.Sprintf("rate limit exceeded: %d/%d", current, limit), http.StatusTooManyRequests, true),
		Limit:     limit,
		Current:   current,
		ResetTime: reset,
	}
}

func (f *RateLimitFault) Kind() Kind { return KindRateLimit }

// Unknown is the opaque variant holding a value that was not a fault.
// It is produced only by Normalize.
type Unknown struct {
	*Base
	Raw any
}

func (f *Unknown) Kind() Kind { return KindUnknown }
